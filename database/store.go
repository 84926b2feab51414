package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yeremiapane/restaurant-queue/models"
	"github.com/yeremiapane/restaurant-queue/notify"
	"github.com/yeremiapane/restaurant-queue/utils"
	"gorm.io/gorm"
)

// Repository is the storage collaborator the queue core is written against.
// Every mutation is recorded in the change log and announced to subscribers
// once it has committed.
type Repository interface {
	// Now is the storage clock used for creation and wait-time timestamps.
	Now() time.Time

	ListTables(ctx context.Context) ([]models.Table, error)
	GetTable(ctx context.Context, id string) (models.Table, error)
	CreateTable(ctx context.Context, table *models.Table) error
	UpdateTable(ctx context.Context, id string, fields map[string]any) error
	UpdateTableIfStatus(ctx context.Context, id string, expected models.TableStatus, fields map[string]any) (bool, error)
	DeleteTable(ctx context.Context, id string) error

	ListCustomers(ctx context.Context) ([]models.Customer, error)
	GetCustomer(ctx context.Context, id string) (models.Customer, error)
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	UpdateCustomer(ctx context.Context, id string, fields map[string]any) error
	UpdateCustomerIfStatus(ctx context.Context, id string, expected models.CustomerStatus, fields map[string]any) (bool, error)
	DeleteCustomer(ctx context.Context, id string) error
	DeleteAllCustomers(ctx context.Context) (int64, error)

	// RunAtomic runs fn against a consistent snapshot; its writes commit
	// together or not at all, and the error fn returns is returned unchanged.
	RunAtomic(ctx context.Context, fn func(tx Repository) error) error

	Subscribe(c models.Collection, fn notify.Listener) (unsubscribe func())
}

type Option func(*Store)

func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

func WithFeed(feed notify.Feed) Option {
	return func(s *Store) { s.feed = feed }
}

func WithOrigin(origin string) Option {
	return func(s *Store) { s.origin = origin }
}

// WithChangeLog turns the db_changes table on or off. Only the polling feed
// reads it; with another feed the rows would pile up unread.
func WithChangeLog(enabled bool) Option {
	return func(s *Store) { s.noChangeLog = !enabled }
}

// Store implements Repository on GORM.
type Store struct {
	db     *gorm.DB
	hub    *notify.Hub
	feed   notify.Feed
	origin string
	clock  func() time.Time

	noChangeLog bool

	tx *txState
}

type txState struct {
	changes []models.DBChange
}

func NewStore(db *gorm.DB, hub *notify.Hub, opts ...Option) *Store {
	s := &Store{
		db:     db,
		hub:    hub,
		origin: uuid.NewString(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Origin() string { return s.origin }

func (s *Store) Now() time.Time { return s.clock().UTC() }

func (s *Store) Subscribe(c models.Collection, fn notify.Listener) func() {
	return s.hub.Subscribe(c, fn)
}

func (s *Store) RunAtomic(ctx context.Context, fn func(tx Repository) error) error {
	return s.atomic(ctx, func(tx *Store) error { return fn(tx) })
}

func (s *Store) atomic(ctx context.Context, fn func(tx *Store) error) error {
	if s.tx != nil {
		return fn(s)
	}

	state := &txState{}
	err := s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&Store{
			db:     gtx,
			hub:    s.hub,
			feed:   s.feed,
			origin: s.origin,
			clock:  s.clock,
			tx:     state,

			noChangeLog: s.noChangeLog,
		})
	})
	if err != nil {
		return err
	}

	s.publish(ctx, state.changes)
	return nil
}

func (s *Store) publish(ctx context.Context, changes []models.DBChange) {
	if len(changes) == 0 {
		return
	}

	if s.feed != nil {
		if err := s.feed.Publish(ctx, changes); err != nil {
			utils.ErrorLogger.Errorf("Error publishing %d changes: %v", len(changes), err)
		}
	}

	seen := make(map[models.Collection]bool)
	for _, change := range changes {
		if seen[change.Collection] {
			continue
		}
		seen[change.Collection] = true
		s.hub.Notify(change.Collection)
	}
}

// record collects a change for the current transaction, writing it to
// db_changes unless the change log is off.
func (s *Store) record(ctx context.Context, c models.Collection, recordID, action string) error {
	change := models.DBChange{
		Collection: c,
		RecordID:   recordID,
		ActionType: action,
		Origin:     s.origin,
		ChangedAt:  s.Now(),
	}
	if !s.noChangeLog {
		if err := s.db.WithContext(ctx).Create(&change).Error; err != nil {
			return fmt.Errorf("failed to record %s change: %w", c, err)
		}
	}
	s.tx.changes = append(s.tx.changes, change)
	return nil
}

func (s *Store) ListTables(ctx context.Context) ([]models.Table, error) {
	var tables []models.Table
	if err := s.db.WithContext(ctx).Order("number ASC").Find(&tables).Error; err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return tables, nil
}

func (s *Store) GetTable(ctx context.Context, id string) (models.Table, error) {
	var table models.Table
	if err := s.db.WithContext(ctx).First(&table, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return table, utils.NewNotFoundError("table %s not found", id)
		}
		return table, fmt.Errorf("failed to get table %s: %w", id, err)
	}
	return table, nil
}

func (s *Store) CreateTable(ctx context.Context, table *models.Table) error {
	return s.atomic(ctx, func(tx *Store) error {
		if table.ID == "" {
			table.ID = uuid.NewString()
		}
		if err := tx.db.WithContext(ctx).Create(table).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return utils.NewConflictError("table %d already exists", table.Number)
			}
			return fmt.Errorf("failed to create table: %w", err)
		}
		return tx.record(ctx, models.CollectionTables, table.ID, models.ActionInsert)
	})
}

func (s *Store) UpdateTable(ctx context.Context, id string, fields map[string]any) error {
	return s.atomic(ctx, func(tx *Store) error {
		if _, err := tx.GetTable(ctx, id); err != nil {
			return err
		}
		if err := tx.db.WithContext(ctx).Model(&models.Table{}).Where("id = ?", id).Updates(fields).Error; err != nil {
			return fmt.Errorf("failed to update table %s: %w", id, err)
		}
		return tx.record(ctx, models.CollectionTables, id, models.ActionUpdate)
	})
}

func (s *Store) UpdateTableIfStatus(ctx context.Context, id string, expected models.TableStatus, fields map[string]any) (bool, error) {
	var updated bool
	err := s.atomic(ctx, func(tx *Store) error {
		res := tx.db.WithContext(ctx).Model(&models.Table{}).
			Where("id = ? AND status = ?", id, expected).
			Updates(fields)
		if res.Error != nil {
			return fmt.Errorf("failed to update table %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		updated = true
		return tx.record(ctx, models.CollectionTables, id, models.ActionUpdate)
	})
	return updated, err
}

func (s *Store) DeleteTable(ctx context.Context, id string) error {
	return s.atomic(ctx, func(tx *Store) error {
		if _, err := tx.GetTable(ctx, id); err != nil {
			return err
		}
		if err := tx.db.WithContext(ctx).Delete(&models.Table{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete table %s: %w", id, err)
		}
		return tx.record(ctx, models.CollectionTables, id, models.ActionDelete)
	})
}

// ListCustomers returns the queue oldest first.
func (s *Store) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	var customers []models.Customer
	if err := s.db.WithContext(ctx).Order("joined_at ASC, id ASC").Find(&customers).Error; err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return customers, nil
}

func (s *Store) GetCustomer(ctx context.Context, id string) (models.Customer, error) {
	var customer models.Customer
	if err := s.db.WithContext(ctx).First(&customer, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return customer, utils.NewNotFoundError("customer %s not found", id)
		}
		return customer, fmt.Errorf("failed to get customer %s: %w", id, err)
	}
	return customer, nil
}

// CreateCustomer stamps JoinedAt and WaitTimeUpdatedAt with the storage
// clock, whatever the caller set.
func (s *Store) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	return s.atomic(ctx, func(tx *Store) error {
		if customer.ID == "" {
			customer.ID = uuid.NewString()
		}
		now := tx.Now()
		customer.JoinedAt = now
		customer.WaitTimeUpdatedAt = now
		if err := tx.db.WithContext(ctx).Create(customer).Error; err != nil {
			return fmt.Errorf("failed to create customer: %w", err)
		}
		return tx.record(ctx, models.CollectionCustomers, customer.ID, models.ActionInsert)
	})
}

func (s *Store) UpdateCustomer(ctx context.Context, id string, fields map[string]any) error {
	return s.atomic(ctx, func(tx *Store) error {
		if _, err := tx.GetCustomer(ctx, id); err != nil {
			return err
		}
		if err := tx.db.WithContext(ctx).Model(&models.Customer{}).Where("id = ?", id).Updates(fields).Error; err != nil {
			return fmt.Errorf("failed to update customer %s: %w", id, err)
		}
		return tx.record(ctx, models.CollectionCustomers, id, models.ActionUpdate)
	})
}

func (s *Store) UpdateCustomerIfStatus(ctx context.Context, id string, expected models.CustomerStatus, fields map[string]any) (bool, error) {
	var updated bool
	err := s.atomic(ctx, func(tx *Store) error {
		res := tx.db.WithContext(ctx).Model(&models.Customer{}).
			Where("id = ? AND status = ?", id, expected).
			Updates(fields)
		if res.Error != nil {
			return fmt.Errorf("failed to update customer %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		updated = true
		return tx.record(ctx, models.CollectionCustomers, id, models.ActionUpdate)
	})
	return updated, err
}

func (s *Store) DeleteCustomer(ctx context.Context, id string) error {
	return s.atomic(ctx, func(tx *Store) error {
		if _, err := tx.GetCustomer(ctx, id); err != nil {
			return err
		}
		if err := tx.db.WithContext(ctx).Delete(&models.Customer{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete customer %s: %w", id, err)
		}
		return tx.record(ctx, models.CollectionCustomers, id, models.ActionDelete)
	})
}

func (s *Store) DeleteAllCustomers(ctx context.Context) (int64, error) {
	var deleted int64
	err := s.atomic(ctx, func(tx *Store) error {
		var ids []string
		if err := tx.db.WithContext(ctx).Model(&models.Customer{}).Pluck("id", &ids).Error; err != nil {
			return fmt.Errorf("failed to list customers: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}
		res := tx.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Customer{})
		if res.Error != nil {
			return fmt.Errorf("failed to clear customers: %w", res.Error)
		}
		deleted = res.RowsAffected
		for _, id := range ids {
			if err := tx.record(ctx, models.CollectionCustomers, id, models.ActionDelete); err != nil {
				return err
			}
		}
		return nil
	})
	return deleted, err
}

func (s *Store) CreateCleaningLog(ctx context.Context, entry *models.CleaningLog) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create cleaning log: %w", err)
	}
	return nil
}

func (s *Store) FinishCleaningLog(ctx context.Context, id uint) error {
	now := s.Now()
	err := s.db.WithContext(ctx).Model(&models.CleaningLog{}).Where("id = ?", id).Updates(map[string]any{
		"status":      models.CleaningDone,
		"finished_at": now,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to finish cleaning log %d: %w", id, err)
	}
	return nil
}

// ListCleaningLogs returns the log newest first.
func (s *Store) ListCleaningLogs(ctx context.Context) ([]models.CleaningLog, error) {
	var logs []models.CleaningLog
	if err := s.db.WithContext(ctx).Order("started_at DESC, id DESC").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list cleaning logs: %w", err)
	}
	return logs, nil
}
