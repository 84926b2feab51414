package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-queue/models"
	"github.com/yeremiapane/restaurant-queue/utils"
)

func TestBestFit(t *testing.T) {
	tables := []models.Table{
		{ID: "t6", Number: 3, Capacity: 6, Status: models.TableAvailable},
		{ID: "t2", Number: 1, Capacity: 2, Status: models.TableAvailable},
		{ID: "t4b", Number: 5, Capacity: 4, Status: models.TableAvailable},
		{ID: "t4a", Number: 2, Capacity: 4, Status: models.TableAvailable},
		{ID: "t8", Number: 4, Capacity: 8, Status: models.TableOccupied},
	}

	tests := []struct {
		name      string
		partySize int
		wantID    string
		wantFound bool
	}{
		{name: "smallest fitting table", partySize: 3, wantID: "t4a", wantFound: true},
		{name: "exact fit", partySize: 2, wantID: "t2", wantFound: true},
		{name: "occupied tables are ignored", partySize: 7, wantFound: false},
		{name: "largest available", partySize: 6, wantID: "t6", wantFound: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := BestFit(tables, tt.partySize)
			assert.Equal(t, tt.wantFound, found)
			if tt.wantFound {
				assert.Equal(t, tt.wantID, got.ID)
			}
		})
	}
}

func TestAssignWithTransaction(t *testing.T) {
	svc, store, clock := newTestService(t)
	ctx := context.Background()
	table := seedTables(t, svc.Tables, 4)[0]
	customer := addWaiting(t, svc.Queue, clock, "Rina", 3)

	assignment, err := svc.Engine.AssignWithTransaction(ctx, customer.ID, table.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, assignment.TableNumber)

	storedTable, err := store.GetTable(ctx, table.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TableOccupied, storedTable.Status)
	require.NotNil(t, storedTable.OccupiedSince)
	assert.True(t, storedTable.OccupiedSince.Equal(clock.Now()))

	storedCustomer, err := store.GetCustomer(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CustomerAssigned, storedCustomer.Status)
	require.NotNil(t, storedCustomer.TableNumber)
	assert.Equal(t, 1, *storedCustomer.TableNumber)
	require.NotNil(t, storedCustomer.AssignedAt)

	other := addWaiting(t, svc.Queue, clock, "Budi", 2)
	_, err = svc.Engine.AssignWithTransaction(ctx, other.ID, table.ID)
	assert.ErrorIs(t, err, ErrTableUnavailable)
	assert.True(t, utils.IsConflict(err))

	second := seedTables(t, svc.Tables, 4)[0]
	_, err = svc.Engine.AssignWithTransaction(ctx, customer.ID, second.ID)
	assert.ErrorIs(t, err, ErrAlreadyAssigned)

	storedSecond, err := store.GetTable(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TableAvailable, storedSecond.Status, "failed assignment leaves the table untouched")

	_, err = svc.Engine.AssignWithTransaction(ctx, "missing", second.ID)
	assert.ErrorIs(t, err, ErrCustomerNotFound)
	_, err = svc.Engine.AssignWithTransaction(ctx, other.ID, "missing")
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestAssignWithTransaction_ConcurrentCallersGetOneTable(t *testing.T) {
	svc, store, clock := newTestService(t)
	ctx := context.Background()
	table := seedTables(t, svc.Tables, 4)[0]

	const callers = 8
	customers := make([]models.Customer, callers)
	for i := range customers {
		customers[i] = addWaiting(t, svc.Queue, clock, "Guest", 2)
	}

	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := range customers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Engine.AssignWithTransaction(ctx, customers[i].ID, table.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrTableUnavailable)
	}
	assert.Equal(t, 1, succeeded)

	list, err := store.ListCustomers(ctx)
	require.NoError(t, err)
	assigned := 0
	for _, c := range list {
		if c.Status == models.CustomerAssigned {
			assigned++
		}
	}
	assert.Equal(t, 1, assigned)
}

func TestTryAssignAutomatically_BestFitInJoinOrder(t *testing.T) {
	svc, store, clock := newTestService(t)
	ctx := context.Background()
	seedTables(t, svc.Tables, 2, 4, 6)

	first := addWaiting(t, svc.Queue, clock, "First", 3)
	second := addWaiting(t, svc.Queue, clock, "Second", 3)
	third := addWaiting(t, svc.Queue, clock, "Third", 3)
	big := addWaiting(t, svc.Queue, clock, "Big", 12)

	res, err := svc.Engine.TryAssignAutomatically(ctx)
	require.NoError(t, err)
	require.Len(t, res.Assigned, 2)
	assert.Equal(t, 2, res.Unplaced)

	assertTable := func(id string, want *int) {
		c, err := store.GetCustomer(ctx, id)
		require.NoError(t, err)
		if want == nil {
			assert.Equal(t, models.CustomerWaiting, c.Status)
			assert.Nil(t, c.TableNumber)
			return
		}
		assert.Equal(t, models.CustomerAssigned, c.Status)
		require.NotNil(t, c.TableNumber)
		assert.Equal(t, *want, *c.TableNumber)
	}
	two, three := 2, 3
	assertTable(first.ID, &two)
	assertTable(second.ID, &three)
	assertTable(third.ID, nil)
	assertTable(big.ID, nil)

	res, err = svc.Engine.TryAssignAutomatically(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Assigned, "sweeps are idempotent once nothing fits")
}

func TestTryAssignAutomatically_NestedCallsAreFolded(t *testing.T) {
	svc, store, clock := newTestService(t)
	ctx := context.Background()
	seedTables(t, svc.Tables, 2, 2)
	addWaiting(t, svc.Queue, clock, "A", 2)
	addWaiting(t, svc.Queue, clock, "B", 2)

	var nested []SweepResult
	unsubscribe := store.Subscribe(models.CollectionCustomers, func() {
		res, err := svc.Engine.TryAssignAutomatically(ctx)
		require.NoError(t, err)
		nested = append(nested, res)
	})
	defer unsubscribe()

	res, err := svc.Engine.TryAssignAutomatically(ctx)
	require.NoError(t, err)
	assert.Len(t, res.Assigned, 2)

	require.NotEmpty(t, nested)
	for _, n := range nested {
		assert.Empty(t, n.Assigned, "a sweep requested during a sweep only schedules a rerun")
	}
}

func TestJoinQueue(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	seedTables(t, svc.Tables, 2, 4, 6)

	res, err := svc.JoinQueue(ctx, JoinRequest{Name: "Rina", Phone: "0812345678", PartySize: 3})
	require.NoError(t, err)
	assert.Equal(t, models.CustomerAssigned, res.Status)
	require.NotNil(t, res.TableNumber)
	assert.Equal(t, 2, *res.TableNumber)
	assert.Nil(t, res.EstimatedWaitTime)

	res, err = svc.JoinQueue(ctx, JoinRequest{Name: "Big party", Phone: "0812345679", PartySize: 12})
	require.NoError(t, err)
	assert.Equal(t, models.CustomerWaiting, res.Status)
	assert.Nil(t, res.TableNumber)
	require.NotNil(t, res.EstimatedWaitTime)
	require.NotNil(t, res.PositionInQueue)
	assert.Equal(t, 0, *res.EstimatedWaitTime)
	assert.Equal(t, 1, *res.PositionInQueue)
}

func TestJoinQueue_EstimateCountsEarlierWaitingParties(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		addWaiting(t, svc.Queue, clock, "Earlier", 2)
	}
	clock.Advance(time.Second)

	res, err := svc.JoinQueue(ctx, JoinRequest{Name: "Rina", Phone: "0812345678", PartySize: 2})
	require.NoError(t, err)
	assert.Equal(t, models.CustomerWaiting, res.Status)
	assert.Equal(t, 15, *res.EstimatedWaitTime)
	assert.Equal(t, 4, *res.PositionInQueue)
}

func TestJoinQueue_Validation(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  JoinRequest
	}{
		{name: "missing name", req: JoinRequest{Name: "  ", Phone: "0812345678", PartySize: 2}},
		{name: "short phone", req: JoinRequest{Name: "Rina", Phone: "12345", PartySize: 2}},
		{name: "phone with letters", req: JoinRequest{Name: "Rina", Phone: "08123abcde", PartySize: 2}},
		{name: "phone with plus sign", req: JoinRequest{Name: "Rina", Phone: "+123456789", PartySize: 2}},
		{name: "phone with minus sign", req: JoinRequest{Name: "Rina", Phone: "-123456789", PartySize: 2}},
		{name: "phone with decimal point", req: JoinRequest{Name: "Rina", Phone: "1234.56789", PartySize: 2}},
		{name: "empty party", req: JoinRequest{Name: "Rina", Phone: "0812345678", PartySize: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.JoinQueue(ctx, tt.req)
			require.Error(t, err)
			var appErr *utils.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, utils.KindValidation, appErr.Kind)
		})
	}

	list, err := store.ListCustomers(ctx)
	require.NoError(t, err)
	assert.Empty(t, list, "rejected joins are not stored")
}

func TestWatchTables_SweepsWhenTableFrees(t *testing.T) {
	svc, store, clock := newTestService(t)
	ctx := context.Background()
	table := seedTables(t, svc.Tables, 4)[0]
	_, err := svc.Tables.SetStatus(ctx, table.ID, models.TableReserved)
	require.NoError(t, err)

	customer := addWaiting(t, svc.Queue, clock, "Rina", 4)

	stop := svc.Engine.WatchTables(ctx, svc.Tables)
	defer stop()

	_, err = svc.Tables.SetStatus(ctx, table.ID, models.TableAvailable)
	require.NoError(t, err)

	stored, err := store.GetCustomer(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CustomerAssigned, stored.Status)
}
