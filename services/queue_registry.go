package services

import (
	"context"

	"github.com/yeremiapane/restaurant-queue/database"
	"github.com/yeremiapane/restaurant-queue/models"
	"github.com/yeremiapane/restaurant-queue/utils"
)

// QueueEntry is a customer together with the wait time an observer should
// display for them right now.
type QueueEntry struct {
	models.Customer
	WaitTimeView
}

// QueueRegistry owns the customer records.
type QueueRegistry struct {
	repo database.Repository
}

func NewQueueRegistry(repo database.Repository) *QueueRegistry {
	return &QueueRegistry{repo: repo}
}

func (q *QueueRegistry) entry(c models.Customer) QueueEntry {
	return QueueEntry{Customer: c, WaitTimeView: DeriveWaitTime(c, q.repo.Now())}
}

// Insert adds a Waiting customer with a fresh countdown.
func (q *QueueRegistry) Insert(ctx context.Context, req JoinRequest) (models.Customer, error) {
	customer := models.Customer{
		Name:            req.Name,
		Phone:           req.Phone,
		PartySize:       req.PartySize,
		Status:          models.CustomerWaiting,
		WaitTime:        InitialWaitMinutes,
		WaitTimeInitial: InitialWaitMinutes,
	}
	if err := q.repo.CreateCustomer(ctx, &customer); err != nil {
		return models.Customer{}, err
	}
	return customer, nil
}

// List returns every customer oldest first.
func (q *QueueRegistry) List(ctx context.Context) ([]models.Customer, error) {
	return q.repo.ListCustomers(ctx)
}

// Entries returns every customer oldest first with derived wait times.
func (q *QueueRegistry) Entries(ctx context.Context) ([]QueueEntry, error) {
	customers, err := q.repo.ListCustomers(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]QueueEntry, 0, len(customers))
	for _, c := range customers {
		entries = append(entries, q.entry(c))
	}
	return entries, nil
}

func (q *QueueRegistry) Get(ctx context.Context, id string) (models.Customer, error) {
	return q.repo.GetCustomer(ctx, id)
}

func (q *QueueRegistry) Entry(ctx context.Context, id string) (QueueEntry, error) {
	c, err := q.repo.GetCustomer(ctx, id)
	if err != nil {
		return QueueEntry{}, err
	}
	return q.entry(c), nil
}

// WaitingAhead counts Waiting customers who joined strictly before c.
func (q *QueueRegistry) WaitingAhead(ctx context.Context, c models.Customer) (int, error) {
	customers, err := q.repo.ListCustomers(ctx)
	if err != nil {
		return 0, err
	}
	ahead := 0
	for _, other := range customers {
		if other.ID == c.ID || other.Status != models.CustomerWaiting {
			continue
		}
		if other.JoinedAt.Before(c.JoinedAt) {
			ahead++
		}
	}
	return ahead, nil
}

// Seat moves an Assigned customer to Seated.
func (q *QueueRegistry) Seat(ctx context.Context, id string) error {
	return q.repo.RunAtomic(ctx, func(tx database.Repository) error {
		c, err := tx.GetCustomer(ctx, id)
		if err != nil {
			return err
		}
		if c.Status != models.CustomerAssigned {
			return utils.NewConflictError("customer %s is %s, not Assigned", id, c.Status)
		}
		ok, err := tx.UpdateCustomerIfStatus(ctx, id, models.CustomerAssigned, map[string]any{
			"status": models.CustomerSeated,
		})
		if err != nil {
			return err
		}
		if !ok {
			return utils.NewConflictError("customer %s changed concurrently", id)
		}
		return nil
	})
}

func (q *QueueRegistry) Remove(ctx context.Context, id string) error {
	return q.repo.DeleteCustomer(ctx, id)
}

// Clear removes every customer and reports how many were removed.
func (q *QueueRegistry) Clear(ctx context.Context) (int64, error) {
	removed, err := q.repo.DeleteAllCustomers(ctx)
	if err != nil {
		return 0, err
	}
	utils.InfoLogger.Printf("Queue cleared, %d customers removed", removed)
	return removed, nil
}

// UpdateWaitTime persists a countdown value for a customer and returns the
// value actually stored.
func (q *QueueRegistry) UpdateWaitTime(ctx context.Context, id string, minutes float64) (float64, error) {
	value, reset := NormalizeWaitTime(minutes)
	err := q.repo.UpdateCustomer(ctx, id, map[string]any{
		"wait_time":            value,
		"wait_time_updated_at": q.repo.Now(),
		"timer_reset":          reset,
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}

// Subscribe calls fn with the current queue and again after every change
// until the returned function is called.
func (q *QueueRegistry) Subscribe(ctx context.Context, fn func([]QueueEntry)) func() {
	deliver := func() {
		entries, err := q.Entries(ctx)
		if err != nil {
			utils.ErrorLogger.Errorf("Error loading queue for subscriber: %v", err)
			return
		}
		fn(entries)
	}

	unsubscribe := q.repo.Subscribe(models.CollectionCustomers, deliver)
	deliver()
	return unsubscribe
}

// SubscribeCustomer follows a single customer. fn receives nil once the
// customer no longer exists.
func (q *QueueRegistry) SubscribeCustomer(ctx context.Context, id string, fn func(*QueueEntry)) func() {
	deliver := func() {
		entry, err := q.Entry(ctx, id)
		if err != nil {
			if utils.IsNotFound(err) {
				fn(nil)
				return
			}
			utils.ErrorLogger.Errorf("Error loading customer %s for subscriber: %v", id, err)
			return
		}
		fn(&entry)
	}

	unsubscribe := q.repo.Subscribe(models.CollectionCustomers, deliver)
	deliver()
	return unsubscribe
}
