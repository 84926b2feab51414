package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-queue/database"
	"github.com/yeremiapane/restaurant-queue/database/dbtest"
	"github.com/yeremiapane/restaurant-queue/models"
	"github.com/yeremiapane/restaurant-queue/notify"
	"github.com/yeremiapane/restaurant-queue/utils"
)

func newTestStore(t *testing.T) (*database.Store, *dbtest.Clock) {
	t.Helper()
	utils.InitLogger("warn")
	clock := dbtest.NewClock()
	store := database.NewStore(dbtest.Open(t), notify.NewHub(), database.WithClock(clock.Now))
	return store, clock
}

func newTestService(t *testing.T) (*QueueService, *database.Store, *dbtest.Clock) {
	t.Helper()
	store, clock := newTestStore(t)
	svc := NewQueueService(store, store, Options{CleaningDelay: 10 * time.Millisecond, WaitTimerUpdater: true})
	return svc, store, clock
}

func seedTables(t *testing.T, tables *TableRegistry, capacities ...int) []models.Table {
	t.Helper()
	out := make([]models.Table, 0, len(capacities))
	for _, capacity := range capacities {
		table, err := tables.Create(context.Background(), 0, capacity)
		require.NoError(t, err)
		out = append(out, table)
	}
	return out
}

// addWaiting inserts a customer one second after the previous one so join
// order is unambiguous.
func addWaiting(t *testing.T, queue *QueueRegistry, clock *dbtest.Clock, name string, partySize int) models.Customer {
	t.Helper()
	clock.Advance(time.Second)
	customer, err := queue.Insert(context.Background(), JoinRequest{
		Name:      name,
		Phone:     "0812345678",
		PartySize: partySize,
	})
	require.NoError(t, err)
	return customer
}
