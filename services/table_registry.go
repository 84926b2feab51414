package services

import (
	"context"
	"strings"

	"github.com/yeremiapane/restaurant-queue/database"
	"github.com/yeremiapane/restaurant-queue/models"
	"github.com/yeremiapane/restaurant-queue/utils"
)

// DefaultTableCapacities is the floor plan seeded into an empty restaurant.
var DefaultTableCapacities = []int{2, 2, 4, 4, 6, 6, 6, 8, 8, 10}

// TableRegistry owns the restaurant's tables and their state machine.
type TableRegistry struct {
	repo database.Repository
}

func NewTableRegistry(repo database.Repository) *TableRegistry {
	return &TableRegistry{repo: repo}
}

// List returns every table ordered by number.
func (r *TableRegistry) List(ctx context.Context) ([]models.Table, error) {
	return r.repo.ListTables(ctx)
}

func (r *TableRegistry) Get(ctx context.Context, id string) (models.Table, error) {
	return r.repo.GetTable(ctx, id)
}

func (r *TableRegistry) FindByNumber(ctx context.Context, number int) (models.Table, error) {
	tables, err := r.repo.ListTables(ctx)
	if err != nil {
		return models.Table{}, err
	}
	for _, t := range tables {
		if t.Number == number {
			return t, nil
		}
	}
	return models.Table{}, utils.NewNotFoundError("table number %d not found", number)
}

// NextNumber is one more than the highest table number in use, or 1.
func (r *TableRegistry) NextNumber(ctx context.Context) (int, error) {
	tables, err := r.repo.ListTables(ctx)
	if err != nil {
		return 0, err
	}
	return nextNumber(tables), nil
}

func nextNumber(tables []models.Table) int {
	highest := 0
	for _, t := range tables {
		if t.Number > highest {
			highest = t.Number
		}
	}
	return highest + 1
}

// Create adds an Available table. A number of zero or less takes the next
// free number.
func (r *TableRegistry) Create(ctx context.Context, number, capacity int) (models.Table, error) {
	if capacity <= 0 {
		return models.Table{}, utils.NewValidationError("capacity must be positive")
	}

	var table models.Table
	err := r.repo.RunAtomic(ctx, func(tx database.Repository) error {
		tables, err := tx.ListTables(ctx)
		if err != nil {
			return err
		}
		if number <= 0 {
			number = nextNumber(tables)
		}
		for _, t := range tables {
			if t.Number == number {
				return utils.NewConflictError("table %d already exists", number)
			}
		}

		table = models.Table{
			Number:   number,
			Capacity: capacity,
			Status:   models.TableAvailable,
		}
		return tx.CreateTable(ctx, &table)
	})
	if err != nil {
		return models.Table{}, err
	}

	utils.InfoLogger.Printf("Table %d created with capacity %d", table.Number, table.Capacity)
	return table, nil
}

// Remove deletes a table that is currently Available.
func (r *TableRegistry) Remove(ctx context.Context, id string) error {
	return r.repo.RunAtomic(ctx, func(tx database.Repository) error {
		table, err := tx.GetTable(ctx, id)
		if err != nil {
			return err
		}
		if table.Status != models.TableAvailable {
			return utils.NewConflictError("table %d is %s and cannot be removed",
				table.Number, strings.ToLower(string(table.Status)))
		}
		return tx.DeleteTable(ctx, id)
	})
}

// SetStatus moves a table along its state machine. Setting the current
// status again is a no-op. OccupiedSince is stamped on entering Occupied and
// cleared on every other status.
func (r *TableRegistry) SetStatus(ctx context.Context, id string, status models.TableStatus) (models.Table, error) {
	if !status.Valid() {
		return models.Table{}, utils.NewValidationError("invalid table status %q", status)
	}

	var table models.Table
	err := r.repo.RunAtomic(ctx, func(tx database.Repository) error {
		current, err := tx.GetTable(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == status {
			table = current
			return nil
		}
		if !current.Status.CanTransitionTo(status) {
			return utils.NewConflictError("table %d cannot move from %s to %s",
				current.Number, current.Status, status)
		}

		fields := map[string]any{"status": status, "occupied_since": nil}
		if status == models.TableOccupied {
			fields["occupied_since"] = tx.Now()
		}
		ok, err := tx.UpdateTableIfStatus(ctx, id, current.Status, fields)
		if err != nil {
			return err
		}
		if !ok {
			return utils.NewConflictError("table %d changed concurrently", current.Number)
		}

		table, err = tx.GetTable(ctx, id)
		return err
	})
	if err != nil {
		return models.Table{}, err
	}
	return table, nil
}

// Subscribe calls fn with the current tables and again after every change
// until the returned function is called.
func (r *TableRegistry) Subscribe(ctx context.Context, fn func([]models.Table)) func() {
	deliver := func() {
		tables, err := r.repo.ListTables(ctx)
		if err != nil {
			utils.ErrorLogger.Errorf("Error loading tables for subscriber: %v", err)
			return
		}
		fn(tables)
	}

	unsubscribe := r.repo.Subscribe(models.CollectionTables, deliver)
	deliver()
	return unsubscribe
}

// InitializeDefaults seeds DefaultTableCapacities when no table exists and
// reports how many tables were created.
func (r *TableRegistry) InitializeDefaults(ctx context.Context) (int, error) {
	created := 0
	err := r.repo.RunAtomic(ctx, func(tx database.Repository) error {
		tables, err := tx.ListTables(ctx)
		if err != nil {
			return err
		}
		if len(tables) > 0 {
			return nil
		}
		for i, capacity := range DefaultTableCapacities {
			table := models.Table{
				Number:   i + 1,
				Capacity: capacity,
				Status:   models.TableAvailable,
			}
			if err := tx.CreateTable(ctx, &table); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if created > 0 {
		utils.InfoLogger.Printf("Seeded %d default tables", created)
	}
	return created, nil
}
