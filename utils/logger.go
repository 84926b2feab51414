package utils

import (
	"os"

	"github.com/sirupsen/logrus"
)

var (
	InfoLogger  = logrus.New()
	ErrorLogger = logrus.New()
)

// InitLogger points InfoLogger at stdout and ErrorLogger at stderr. An empty
// or unknown level falls back to info. ErrorLogger always keeps error
// entries, so failures are logged through ErrorLogger.Errorf.
func InitLogger(levels ...string) {
	level := logrus.InfoLevel
	if len(levels) > 0 {
		if parsed, err := logrus.ParseLevel(levels[0]); err == nil {
			level = parsed
		}
	}

	// Set output untuk InfoLogger ke stdout
	InfoLogger.SetOutput(os.Stdout)
	InfoLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	InfoLogger.SetLevel(level)

	// Set output untuk ErrorLogger ke stderr
	ErrorLogger.SetOutput(os.Stderr)
	ErrorLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	ErrorLogger.SetLevel(logrus.ErrorLevel)
}
