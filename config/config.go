package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/yeremiapane/restaurant-queue/utils"
)

type Config struct {
	Server struct {
		Port           string   `envconfig:"PORT" default:"8080"`
		GinMode        string   `envconfig:"GIN_MODE" default:"debug"`
		LogLevel       string   `envconfig:"LOG_LEVEL" default:"info"`
		AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://127.0.0.1:5500"`
	} `envconfig:"SERVER"`

	DB struct {
		Driver       string `envconfig:"DRIVER" default:"sqlite"`
		DSN          string `envconfig:"DSN" default:"restaurant_queue.db"`
		MaxOpenConns int    `envconfig:"MAX_OPEN_CONNS" default:"10"`
	} `envconfig:"DB"`

	Redis struct {
		Addr     string `envconfig:"ADDR"`
		Password string `envconfig:"PASSWORD"`
		DB       int    `envconfig:"DB" default:"0"`
		Channel  string `envconfig:"CHANNEL" default:"restaurant-queue:changes"`
	} `envconfig:"REDIS"`

	JWT struct {
		Secret      string `envconfig:"SECRET" default:"change-me"`
		ExpireHours int    `envconfig:"EXPIRE_HOURS" default:"24"`
	} `envconfig:"JWT"`

	Admin struct {
		Name     string `envconfig:"NAME" default:"Admin"`
		Email    string `envconfig:"EMAIL"`
		Password string `envconfig:"PASSWORD"`
	} `envconfig:"ADMIN"`

	Queue struct {
		CleaningDelay      time.Duration `envconfig:"CLEANING_DELAY" default:"2s"`
		WaitTimerUpdater   bool          `envconfig:"WAIT_TIMER_UPDATER" default:"true"`
		ChangePollInterval time.Duration `envconfig:"CHANGE_POLL_INTERVAL" default:"500ms"`
		SeedTables         bool          `envconfig:"SEED_TABLES" default:"true"`
		JoinRatePerMinute  int           `envconfig:"JOIN_RATE_PER_MINUTE" default:"30"`
	} `envconfig:"QUEUE"`
}

// Load reads an optional .env file and then the process environment.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		utils.InfoLogger.Printf("Warning: .env file not found or error loading: %v", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	return &cfg, nil
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWT.ExpireHours) * time.Hour
}
