package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yeremiapane/restaurant-queue/models"
	"github.com/yeremiapane/restaurant-queue/utils"
	"gorm.io/gorm"
)

const (
	changeBatchSize = 100
	maxGapSpan      = 1000
)

// DBFeed polls the db_changes log written by every process. Each process
// keeps its own cursor, so rows are never marked or consumed.
//
// Ids are allocated before commit, so a lower id can become visible after a
// higher one. Ids skipped by the cursor are kept as gaps and looked up again
// until they show up or GapTimeout passes.
type DBFeed struct {
	DB         *gorm.DB
	StopChan   chan struct{}
	Interval   time.Duration
	Retention  time.Duration
	GapTimeout time.Duration

	origin    string
	cursor    uint
	gaps      map[uint]time.Time
	handler   func(models.DBChange)
	lastPrune time.Time
	stopOnce  sync.Once
	mu        sync.Mutex
}

func NewDBFeed(db *gorm.DB, origin string) *DBFeed {
	return &DBFeed{
		DB:         db,
		StopChan:   make(chan struct{}),
		Interval:  1 * time.Second,
		Retention:  1 * time.Hour,
		GapTimeout: 1 * time.Minute,
		origin:     origin,
		gaps:       make(map[uint]time.Time),
	}
}

// Publish is a no-op: the store writes change rows in the same transaction
// as the mutation they describe.
func (f *DBFeed) Publish(ctx context.Context, changes []models.DBChange) error {
	return nil
}

// Start positions the cursor at the newest existing change and begins polling.
func (f *DBFeed) Start(handler func(models.DBChange)) error {
	var last models.DBChange
	err := f.DB.Order("id DESC").Limit(1).Find(&last).Error
	if err != nil {
		return fmt.Errorf("failed to read change cursor: %w", err)
	}

	f.mu.Lock()
	f.cursor = last.ID
	f.handler = handler
	f.mu.Unlock()

	go func() {
		ticker := time.NewTicker(f.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := f.Poll(context.Background()); err != nil {
					utils.ErrorLogger.Errorf("Error polling changes: %v", err)
				}
			case <-f.StopChan:
				return
			}
		}
	}()

	utils.InfoLogger.Printf("Change feed polling every %s from change %d", f.Interval, last.ID)
	return nil
}

func (f *DBFeed) Stop() {
	f.stopOnce.Do(func() {
		close(f.StopChan)
	})
}

// Poll delivers changes newer than the cursor, plus late arrivals in known
// gaps, and returns how many rows it read. Several changes of one collection
// in a batch are delivered once.
func (f *DBFeed) Poll(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	for id, since := range f.gaps {
		if now.Sub(since) > f.GapTimeout {
			delete(f.gaps, id)
		}
	}

	query := f.DB.WithContext(ctx).Where("id > ?", f.cursor)
	if len(f.gaps) > 0 {
		pending := make([]uint, 0, len(f.gaps))
		for id := range f.gaps {
			pending = append(pending, id)
		}
		query = query.Or("id IN ?", pending)
	}

	var changes []models.DBChange
	if err := query.Order("id ASC").Limit(changeBatchSize).Find(&changes).Error; err != nil {
		return 0, fmt.Errorf("failed to fetch changes: %w", err)
	}

	latest := make(map[models.Collection]models.DBChange)
	var order []models.Collection
	for _, change := range changes {
		f.advance(change.ID, now)
		if change.Origin == f.origin {
			continue
		}
		if _, seen := latest[change.Collection]; !seen {
			order = append(order, change.Collection)
		}
		latest[change.Collection] = change
	}

	if len(order) > 0 {
		utils.InfoLogger.Printf("Found %d foreign changes in %d collections", len(changes), len(order))
	}

	if f.handler != nil {
		for _, c := range order {
			f.handler(latest[c])
		}
	}

	f.prune(ctx)
	return len(changes), nil
}

// advance moves the cursor past id, remembering the ids it skips. An id
// below the cursor fills its gap.
func (f *DBFeed) advance(id uint, now time.Time) {
	if id <= f.cursor {
		delete(f.gaps, id)
		return
	}
	from := f.cursor + 1
	if id-from > maxGapSpan {
		from = id - maxGapSpan
	}
	for missing := from; missing < id; missing++ {
		f.gaps[missing] = now
	}
	f.cursor = id
}

func (f *DBFeed) prune(ctx context.Context) {
	now := time.Now()
	if f.Retention <= 0 || now.Sub(f.lastPrune) < time.Minute {
		return
	}
	f.lastPrune = now

	cutoff := now.Add(-f.Retention).UTC()
	if err := f.DB.WithContext(ctx).Where("changed_at < ?", cutoff).Delete(&models.DBChange{}).Error; err != nil {
		utils.ErrorLogger.Errorf("Error pruning change log: %v", err)
	}
}
