package services

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/yeremiapane/restaurant-queue/database"
	"github.com/yeremiapane/restaurant-queue/models"
	"github.com/yeremiapane/restaurant-queue/utils"
)

var (
	ErrTableUnavailable = &utils.AppError{Kind: utils.KindConflict, Message: "table unavailable"}
	ErrAlreadyAssigned  = &utils.AppError{Kind: utils.KindConflict, Message: "already assigned"}
	ErrTableNotFound    = &utils.AppError{Kind: utils.KindNotFound, Message: "table not found"}
	ErrCustomerNotFound = &utils.AppError{Kind: utils.KindNotFound, Message: "customer not found"}
)

// Assignment is one customer placed at one table.
type Assignment struct {
	CustomerID  string `json:"customerId"`
	TableID     string `json:"tableId"`
	TableNumber int    `json:"tableNumber"`
}

// SweepResult summarizes one pass over the waiting queue.
type SweepResult struct {
	Assigned []Assignment `json:"assigned"`
	// Unplaced counts waiting customers no available table could fit.
	Unplaced int `json:"unplaced"`
	// Failed counts attempts that lost a race or hit a storage error.
	Failed int `json:"failed"`
}

// JoinResult is what a customer is told after joining.
type JoinResult struct {
	ID                string                `json:"id"`
	Status            models.CustomerStatus `json:"status"`
	TableNumber       *int                  `json:"tableNumber,omitempty"`
	EstimatedWaitTime *int                  `json:"estimatedWaitTime,omitempty"`
	PositionInQueue   *int                  `json:"positionInQueue,omitempty"`
	Message           string                `json:"message"`
}

// AssignmentEngine pairs waiting customers with available tables. Sweeps in
// one process never overlap; a sweep requested while one runs is folded into
// a single follow-up pass.
type AssignmentEngine struct {
	repo  database.Repository
	queue *QueueRegistry

	mu       sync.Mutex
	sweeping bool
	rerun    bool
}

func NewAssignmentEngine(repo database.Repository, queue *QueueRegistry) *AssignmentEngine {
	return &AssignmentEngine{repo: repo, queue: queue}
}

// BestFit picks the smallest available table that seats partySize, the
// lowest number winning ties.
func BestFit(tables []models.Table, partySize int) (models.Table, bool) {
	var best models.Table
	found := false
	for _, t := range tables {
		if t.Status != models.TableAvailable || t.Capacity < partySize {
			continue
		}
		if !found || t.Capacity < best.Capacity ||
			(t.Capacity == best.Capacity && t.Number < best.Number) {
			best = t
			found = true
		}
	}
	return best, found
}

// AssignWithTransaction seats customerID at tableID only if, at commit time,
// the table is Available and the customer is Waiting. Both records change or
// neither does.
func (e *AssignmentEngine) AssignWithTransaction(ctx context.Context, customerID, tableID string) (Assignment, error) {
	var result Assignment
	err := e.repo.RunAtomic(ctx, func(tx database.Repository) error {
		table, err := tx.GetTable(ctx, tableID)
		if err != nil {
			if utils.IsNotFound(err) {
				return ErrTableNotFound
			}
			return err
		}
		if table.Status != models.TableAvailable {
			return ErrTableUnavailable
		}

		customer, err := tx.GetCustomer(ctx, customerID)
		if err != nil {
			if utils.IsNotFound(err) {
				return ErrCustomerNotFound
			}
			return err
		}
		if customer.Status != models.CustomerWaiting {
			return ErrAlreadyAssigned
		}

		now := tx.Now()
		ok, err := tx.UpdateTableIfStatus(ctx, tableID, models.TableAvailable, map[string]any{
			"status":         models.TableOccupied,
			"occupied_since": now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return ErrTableUnavailable
		}

		number := table.Number
		ok, err = tx.UpdateCustomerIfStatus(ctx, customerID, models.CustomerWaiting, map[string]any{
			"status":       models.CustomerAssigned,
			"table_number": number,
			"assigned_at":  now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyAssigned
		}

		result = Assignment{CustomerID: customerID, TableID: tableID, TableNumber: number}
		return nil
	})
	if err != nil {
		return Assignment{}, err
	}

	utils.InfoLogger.Printf("Customer %s assigned to table %d", customerID, result.TableNumber)
	return result, nil
}

// TryAssignAutomatically runs one sweep, or if a sweep is already running in
// this process, asks it to run once more and returns an empty result.
func (e *AssignmentEngine) TryAssignAutomatically(ctx context.Context) (SweepResult, error) {
	e.mu.Lock()
	if e.sweeping {
		e.rerun = true
		e.mu.Unlock()
		return SweepResult{}, nil
	}
	e.sweeping = true
	e.mu.Unlock()

	var total SweepResult
	for {
		res, err := e.sweep(ctx)
		total.Assigned = append(total.Assigned, res.Assigned...)
		total.Unplaced = res.Unplaced
		total.Failed += res.Failed

		e.mu.Lock()
		if err != nil || !e.rerun {
			e.sweeping = false
			e.rerun = false
			e.mu.Unlock()
			return total, err
		}
		e.rerun = false
		e.mu.Unlock()
	}
}

func (e *AssignmentEngine) sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult

	tables, err := e.repo.ListTables(ctx)
	if err != nil {
		return res, err
	}
	customers, err := e.repo.ListCustomers(ctx)
	if err != nil {
		return res, err
	}

	available := make([]models.Table, 0, len(tables))
	for _, t := range tables {
		if t.Status == models.TableAvailable {
			available = append(available, t)
		}
	}

	waiting := make([]models.Customer, 0, len(customers))
	for _, c := range customers {
		if c.Status == models.CustomerWaiting {
			waiting = append(waiting, c)
		}
	}
	sort.SliceStable(waiting, func(i, j int) bool {
		if !waiting[i].JoinedAt.Equal(waiting[j].JoinedAt) {
			return waiting[i].JoinedAt.Before(waiting[j].JoinedAt)
		}
		return waiting[i].ID < waiting[j].ID
	})

	for _, c := range waiting {
		table, ok := BestFit(available, c.PartySize)
		if !ok {
			res.Unplaced++
			continue
		}

		assignment, err := e.AssignWithTransaction(ctx, c.ID, table.ID)
		if err != nil {
			res.Failed++
			utils.ErrorLogger.Errorf("Error assigning customer %s to table %d: %v", c.ID, table.Number, err)
			if tableLost(err) {
				available = withoutTable(available, table.ID)
			}
			continue
		}

		available = withoutTable(available, table.ID)
		res.Assigned = append(res.Assigned, assignment)
	}

	if len(res.Assigned) > 0 {
		utils.InfoLogger.Printf("Sweep assigned %d customers, %d still waiting", len(res.Assigned), res.Unplaced)
	}
	return res, nil
}

// tableLost reports whether a failed attempt means the table itself can no
// longer be offered. Other failures belong to the customer or are transient.
func tableLost(err error) bool {
	return errors.Is(err, ErrTableUnavailable) || errors.Is(err, ErrTableNotFound)
}

func withoutTable(tables []models.Table, id string) []models.Table {
	out := tables[:0:0]
	for _, t := range tables {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

// JoinQueue validates and inserts a customer, seats them at once if a table
// fits, and otherwise reports their place in line.
func (e *AssignmentEngine) JoinQueue(ctx context.Context, req JoinRequest) (JoinResult, error) {
	req.normalize()
	if err := validateStruct(req); err != nil {
		return JoinResult{}, err
	}

	tables, err := e.repo.ListTables(ctx)
	if err != nil {
		return JoinResult{}, err
	}
	table, fits := BestFit(tables, req.PartySize)

	customer, err := e.queue.Insert(ctx, req)
	if err != nil {
		return JoinResult{}, err
	}
	utils.InfoLogger.Printf("Customer %s joined the queue with a party of %d", customer.ID, customer.PartySize)

	if fits {
		assignment, err := e.AssignWithTransaction(ctx, customer.ID, table.ID)
		if err == nil {
			return assignedResult(customer.ID, models.CustomerAssigned, assignment.TableNumber), nil
		}
		utils.ErrorLogger.Errorf("Error seating new customer %s at table %d: %v", customer.ID, table.Number, err)
	}

	ahead, err := e.queue.WaitingAhead(ctx, customer)
	if err != nil {
		utils.ErrorLogger.Errorf("Error counting customers ahead of %s: %v", customer.ID, err)
	}

	if _, err := e.TryAssignAutomatically(ctx); err != nil {
		utils.ErrorLogger.Errorf("Error running assignment sweep after join: %v", err)
	}

	if current, err := e.queue.Get(ctx, customer.ID); err == nil &&
		current.Status != models.CustomerWaiting && current.TableNumber != nil {
		return assignedResult(customer.ID, current.Status, *current.TableNumber), nil
	}

	estimate := EstimateWaitMinutes(ahead)
	position := ahead + 1
	return JoinResult{
		ID:                customer.ID,
		Status:            models.CustomerWaiting,
		EstimatedWaitTime: &estimate,
		PositionInQueue:   &position,
		Message:           "Added to queue",
	}, nil
}

func assignedResult(customerID string, status models.CustomerStatus, tableNumber int) JoinResult {
	return JoinResult{
		ID:          customerID,
		Status:      status,
		TableNumber: &tableNumber,
		Message:     "Table assigned",
	}
}

// WatchTables runs a sweep whenever a table becomes Available, including
// tables already Available when watching starts.
func (e *AssignmentEngine) WatchTables(ctx context.Context, tables *TableRegistry) func() {
	var mu sync.Mutex
	available := make(map[string]bool)

	return tables.Subscribe(ctx, func(snapshot []models.Table) {
		mu.Lock()
		fresh := false
		next := make(map[string]bool, len(snapshot))
		for _, t := range snapshot {
			if t.Status != models.TableAvailable {
				continue
			}
			next[t.ID] = true
			if !available[t.ID] {
				fresh = true
			}
		}
		available = next
		mu.Unlock()

		if !fresh {
			return
		}
		if _, err := e.TryAssignAutomatically(ctx); err != nil {
			utils.ErrorLogger.Errorf("Error running assignment sweep for freed table: %v", err)
		}
	})
}
