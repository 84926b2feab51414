package services

import (
	"context"
	"time"

	"github.com/yeremiapane/restaurant-queue/database"
	"github.com/yeremiapane/restaurant-queue/models"
	"github.com/yeremiapane/restaurant-queue/utils"
)

type Options struct {
	CleaningDelay time.Duration
	// WaitTimerUpdater makes this process write wait-time countdowns back to
	// storage. Other processes only display them.
	WaitTimerUpdater bool
}

// QueueService is the single entry point the HTTP layer and other callers
// use for queue and table operations.
type QueueService struct {
	Tables   *TableRegistry
	Queue    *QueueRegistry
	Engine   *AssignmentEngine
	Cleaning *CleaningScheduler
	Timers   *WaitTimeSynchronizer

	logs CleaningLogStore
	stop []func()
}

func NewQueueService(repo database.Repository, logs CleaningLogStore, opts Options) *QueueService {
	tables := NewTableRegistry(repo)
	queue := NewQueueRegistry(repo)
	engine := NewAssignmentEngine(repo, queue)
	return &QueueService{
		Tables:   tables,
		Queue:    queue,
		Engine:   engine,
		Cleaning: NewCleaningScheduler(tables, engine, logs, opts.CleaningDelay),
		Timers:   NewWaitTimeSynchronizer(queue, opts.WaitTimerUpdater, repo.Now),
		logs:     logs,
	}
}

// Start resumes interrupted cleanings before the table watcher and the wait
// timer come up.
func (s *QueueService) Start(ctx context.Context) error {
	if err := s.Cleaning.Resume(ctx); err != nil {
		return err
	}
	s.stop = append(s.stop, s.Engine.WatchTables(ctx, s.Tables))
	s.Timers.Start(ctx)
	s.stop = append(s.stop, s.Timers.Stop, s.Cleaning.Stop)
	return nil
}

func (s *QueueService) Stop() {
	for _, fn := range s.stop {
		fn()
	}
	s.stop = nil
}

func (s *QueueService) JoinQueue(ctx context.Context, req JoinRequest) (JoinResult, error) {
	return s.Engine.JoinQueue(ctx, req)
}

func (s *QueueService) GetQueue(ctx context.Context) ([]QueueEntry, error) {
	return s.Queue.Entries(ctx)
}

func (s *QueueService) GetCustomer(ctx context.Context, id string) (QueueEntry, error) {
	return s.Queue.Entry(ctx, id)
}

func (s *QueueService) OnQueueChange(ctx context.Context, fn func([]QueueEntry)) func() {
	return s.Queue.Subscribe(ctx, fn)
}

func (s *QueueService) OnCustomerChange(ctx context.Context, id string, fn func(*QueueEntry)) func() {
	return s.Queue.SubscribeCustomer(ctx, id, fn)
}

func (s *QueueService) GetTables(ctx context.Context) ([]models.Table, error) {
	return s.Tables.List(ctx)
}

func (s *QueueService) OnTablesChange(ctx context.Context, fn func([]models.Table)) func() {
	return s.Tables.Subscribe(ctx, fn)
}

// UpdateCustomerStatus moves a customer forward. Assigning requires a table
// number and goes through the assignment transaction; seating a waiting
// customer assigns them first.
func (s *QueueService) UpdateCustomerStatus(ctx context.Context, id string, status models.CustomerStatus, tableNumber *int) (models.Customer, error) {
	if !status.Valid() {
		return models.Customer{}, utils.NewValidationError("invalid customer status %q", status)
	}

	customer, err := s.Queue.Get(ctx, id)
	if err != nil {
		return models.Customer{}, err
	}
	if customer.Status == status {
		return customer, nil
	}

	switch {
	case customer.Status == models.CustomerWaiting &&
		(status == models.CustomerAssigned || status == models.CustomerSeated):
		if tableNumber == nil {
			return models.Customer{}, utils.NewValidationError("tableNumber is required to assign a customer")
		}
		table, err := s.Tables.FindByNumber(ctx, *tableNumber)
		if err != nil {
			return models.Customer{}, err
		}
		if _, err := s.Engine.AssignWithTransaction(ctx, id, table.ID); err != nil {
			return models.Customer{}, err
		}
		if status == models.CustomerSeated {
			if err := s.Queue.Seat(ctx, id); err != nil {
				return models.Customer{}, err
			}
		}
	case customer.Status == models.CustomerAssigned && status == models.CustomerSeated:
		if err := s.Queue.Seat(ctx, id); err != nil {
			return models.Customer{}, err
		}
	default:
		return models.Customer{}, utils.NewConflictError("customer cannot move from %s to %s", customer.Status, status)
	}

	utils.InfoLogger.Printf("Customer %s is now %s", id, status)
	return s.Queue.Get(ctx, id)
}

func (s *QueueService) RemoveCustomer(ctx context.Context, id string) error {
	return s.Queue.Remove(ctx, id)
}

func (s *QueueService) ClearQueue(ctx context.Context) (int64, error) {
	return s.Queue.Clear(ctx)
}

func (s *QueueService) UpdateWaitTime(ctx context.Context, id string, minutes float64) (float64, error) {
	return s.Queue.UpdateWaitTime(ctx, id, minutes)
}

// UpdateTableStatus applies a manual status change. Cleaning goes through
// CompleteService so the table always comes back; Available frees the table.
func (s *QueueService) UpdateTableStatus(ctx context.Context, id string, status models.TableStatus) (models.Table, error) {
	switch status {
	case models.TableCleaning:
		return s.CompleteService(ctx, id)
	case models.TableAvailable:
		return s.FreeTable(ctx, id)
	}
	return s.Tables.SetStatus(ctx, id, status)
}

func (s *QueueService) AddTable(ctx context.Context, number, capacity int) (models.Table, error) {
	table, err := s.Tables.Create(ctx, number, capacity)
	if err != nil {
		return models.Table{}, err
	}
	s.sweep(ctx, "new table")
	return table, nil
}

func (s *QueueService) RemoveTable(ctx context.Context, id string) error {
	return s.Tables.Remove(ctx, id)
}

func (s *QueueService) CompleteService(ctx context.Context, id string) (models.Table, error) {
	return s.Cleaning.CompleteService(ctx, id)
}

// FreeTable makes a table Available straight away and offers it to the queue.
func (s *QueueService) FreeTable(ctx context.Context, id string) (models.Table, error) {
	table, err := s.Tables.SetStatus(ctx, id, models.TableAvailable)
	if err != nil {
		return models.Table{}, err
	}
	s.sweep(ctx, "freed table")
	return s.Tables.Get(ctx, table.ID)
}

func (s *QueueService) ReserveTable(ctx context.Context, id string) (models.Table, error) {
	return s.Tables.SetStatus(ctx, id, models.TableReserved)
}

func (s *QueueService) TryAssignTablesAutomatically(ctx context.Context) (SweepResult, error) {
	return s.Engine.TryAssignAutomatically(ctx)
}

func (s *QueueService) InitializeDefaults(ctx context.Context) (int, error) {
	return s.Tables.InitializeDefaults(ctx)
}

func (s *QueueService) CleaningLogs(ctx context.Context) ([]models.CleaningLog, error) {
	if s.logs == nil {
		return nil, nil
	}
	return s.logs.ListCleaningLogs(ctx)
}

func (s *QueueService) sweep(ctx context.Context, reason string) {
	if _, err := s.Engine.TryAssignAutomatically(ctx); err != nil {
		utils.ErrorLogger.Errorf("Error running assignment sweep after %s: %v", reason, err)
	}
}

// DashboardStats counts tables by status and customers by status.
type DashboardStats struct {
	TotalTables    int                           `json:"totalTables"`
	Tables         map[models.TableStatus]int    `json:"tables"`
	TotalCustomers int                           `json:"totalCustomers"`
	Customers      map[models.CustomerStatus]int `json:"customers"`
	FreeSeats      int                           `json:"freeSeats"`
}

func (s *QueueService) Stats(ctx context.Context) (DashboardStats, error) {
	tables, err := s.Tables.List(ctx)
	if err != nil {
		return DashboardStats{}, err
	}
	customers, err := s.Queue.List(ctx)
	if err != nil {
		return DashboardStats{}, err
	}

	stats := DashboardStats{
		TotalTables:    len(tables),
		Tables:         map[models.TableStatus]int{},
		TotalCustomers: len(customers),
		Customers:      map[models.CustomerStatus]int{},
	}
	for _, st := range []models.TableStatus{models.TableAvailable, models.TableOccupied, models.TableReserved, models.TableCleaning} {
		stats.Tables[st] = 0
	}
	for _, st := range []models.CustomerStatus{models.CustomerWaiting, models.CustomerAssigned, models.CustomerSeated} {
		stats.Customers[st] = 0
	}
	for _, t := range tables {
		stats.Tables[t.Status]++
		if t.Status == models.TableAvailable {
			stats.FreeSeats += t.Capacity
		}
	}
	for _, c := range customers {
		stats.Customers[c.Status]++
	}
	return stats, nil
}
