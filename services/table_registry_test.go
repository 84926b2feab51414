package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-queue/models"
	"github.com/yeremiapane/restaurant-queue/utils"
)

func TestTableRegistry_Create(t *testing.T) {
	store, _ := newTestStore(t)
	tables := NewTableRegistry(store)
	ctx := context.Background()

	first, err := tables.Create(ctx, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, models.TableAvailable, first.Status)
	assert.Nil(t, first.OccupiedSince)

	fixed, err := tables.Create(ctx, 7, 2)
	require.NoError(t, err)
	assert.Equal(t, 7, fixed.Number)

	next, err := tables.Create(ctx, -1, 6)
	require.NoError(t, err)
	assert.Equal(t, 8, next.Number)

	_, err = tables.Create(ctx, 7, 2)
	assert.True(t, utils.IsConflict(err), "duplicate number: %v", err)

	_, err = tables.Create(ctx, 9, 0)
	assert.True(t, utils.IsValidation(err), "zero capacity: %v", err)

	n, err := tables.NextNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, 9, n)
}

func TestTableRegistry_Remove(t *testing.T) {
	store, _ := newTestStore(t)
	tables := NewTableRegistry(store)
	ctx := context.Background()
	seeded := seedTables(t, tables, 2, 4)

	_, err := tables.SetStatus(ctx, seeded[0].ID, models.TableOccupied)
	require.NoError(t, err)

	err = tables.Remove(ctx, seeded[0].ID)
	assert.True(t, utils.IsConflict(err), "occupied table: %v", err)

	require.NoError(t, tables.Remove(ctx, seeded[1].ID))

	err = tables.Remove(ctx, seeded[1].ID)
	assert.True(t, utils.IsNotFound(err), "already removed: %v", err)

	list, err := tables.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestTableRegistry_SetStatus(t *testing.T) {
	tests := []struct {
		name    string
		path    []models.TableStatus
		wantErr func(error) bool
	}{
		{name: "seat and clean", path: []models.TableStatus{models.TableOccupied, models.TableCleaning, models.TableAvailable}},
		{name: "reserve and release", path: []models.TableStatus{models.TableReserved, models.TableAvailable}},
		{name: "free occupied directly", path: []models.TableStatus{models.TableOccupied, models.TableAvailable}},
		{name: "same status is a no-op", path: []models.TableStatus{models.TableAvailable}},
		{name: "available cannot be cleaned", path: []models.TableStatus{models.TableCleaning}, wantErr: utils.IsConflict},
		{name: "reserved cannot be occupied", path: []models.TableStatus{models.TableReserved, models.TableOccupied}, wantErr: utils.IsConflict},
		{name: "unknown status", path: []models.TableStatus{"Broken"}, wantErr: utils.IsValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStore(t)
			tables := NewTableRegistry(store)
			table := seedTables(t, tables, 4)[0]

			var err error
			for _, status := range tt.path {
				table, err = tables.SetStatus(context.Background(), table.ID, status)
				if err != nil {
					break
				}
				assert.Equal(t, status, table.Status)
				assert.Equal(t, status == models.TableOccupied, table.OccupiedSince != nil)
			}

			if tt.wantErr != nil {
				assert.True(t, tt.wantErr(err), "unexpected error: %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestTableRegistry_InitializeDefaults(t *testing.T) {
	store, _ := newTestStore(t)
	tables := NewTableRegistry(store)
	ctx := context.Background()

	created, err := tables.InitializeDefaults(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(DefaultTableCapacities), created)

	list, err := tables.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 10)
	for i, table := range list {
		assert.Equal(t, i+1, table.Number)
		assert.Equal(t, DefaultTableCapacities[i], table.Capacity)
		assert.Equal(t, models.TableAvailable, table.Status)
	}

	created, err = tables.InitializeDefaults(ctx)
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestTableRegistry_Subscribe(t *testing.T) {
	store, _ := newTestStore(t)
	tables := NewTableRegistry(store)
	ctx := context.Background()

	var snapshots [][]models.Table
	unsubscribe := tables.Subscribe(ctx, func(list []models.Table) {
		snapshots = append(snapshots, list)
	})

	require.Len(t, snapshots, 1, "initial snapshot is delivered on subscribe")
	assert.Empty(t, snapshots[0])

	seedTables(t, tables, 2)
	require.Len(t, snapshots, 2)
	assert.Len(t, snapshots[1], 1)

	unsubscribe()
	seedTables(t, tables, 4)
	assert.Len(t, snapshots, 2)
}
