package notify

import (
	"context"

	"github.com/yeremiapane/restaurant-queue/models"
)

// Feed carries committed changes between processes sharing one database.
// Handlers only receive changes written by other processes.
type Feed interface {
	Publish(ctx context.Context, changes []models.DBChange) error
	Start(handler func(models.DBChange)) error
	Stop()
}

// Forward returns a feed handler that wakes the hub listeners of the
// changed collection.
func Forward(hub *Hub) func(models.DBChange) {
	return func(change models.DBChange) {
		hub.Notify(change.Collection)
	}
}
