package services

import (
	"context"
	"sync"
	"time"

	"github.com/yeremiapane/restaurant-queue/models"
	"github.com/yeremiapane/restaurant-queue/utils"
)

// CleaningLogStore records cleaning cycles.
type CleaningLogStore interface {
	CreateCleaningLog(ctx context.Context, entry *models.CleaningLog) error
	FinishCleaningLog(ctx context.Context, id uint) error
	ListCleaningLogs(ctx context.Context) ([]models.CleaningLog, error)
}

// CleaningScheduler turns finished service into a Cleaning period that ends,
// after a fixed delay, with the table Available and a new assignment sweep.
type CleaningScheduler struct {
	tables *TableRegistry
	engine *AssignmentEngine
	logs   CleaningLogStore
	delay  time.Duration

	mu      sync.Mutex
	pending map[string]*pendingCleaning
	wg      sync.WaitGroup
}

type pendingCleaning struct {
	timer *time.Timer
	logID uint
}

func NewCleaningScheduler(tables *TableRegistry, engine *AssignmentEngine, logs CleaningLogStore, delay time.Duration) *CleaningScheduler {
	return &CleaningScheduler{
		tables:  tables,
		engine:  engine,
		logs:    logs,
		delay:   delay,
		pending: make(map[string]*pendingCleaning),
	}
}

// CompleteService moves an Occupied table to Cleaning and schedules its
// return to Available.
func (s *CleaningScheduler) CompleteService(ctx context.Context, tableID string) (models.Table, error) {
	current, err := s.tables.Get(ctx, tableID)
	if err != nil {
		return models.Table{}, err
	}
	if current.Status != models.TableOccupied {
		return models.Table{}, utils.NewConflictError("table %d is %s, not Occupied", current.Number, current.Status)
	}

	table, err := s.tables.SetStatus(ctx, tableID, models.TableCleaning)
	if err != nil {
		return models.Table{}, err
	}

	var logID uint
	if s.logs != nil {
		entry := models.CleaningLog{
			TableID:     table.ID,
			TableNumber: table.Number,
			Status:      models.CleaningInProgress,
			StartedAt:   s.tables.repo.Now(),
		}
		if err := s.logs.CreateCleaningLog(ctx, &entry); err != nil {
			utils.ErrorLogger.Errorf("Error recording cleaning of table %d: %v", table.Number, err)
		}
		logID = entry.ID
	}

	utils.InfoLogger.Printf("Table %d is being cleaned", table.Number)
	s.schedule(table.ID, logID)
	return table, nil
}

// schedule (re)starts the cleaning timer of a table. A cleaning it replaces
// never fires, so its log is closed here.
func (s *CleaningScheduler) schedule(tableID string, logID uint) {
	s.mu.Lock()
	var replaced uint
	if old, ok := s.pending[tableID]; ok && old.timer.Stop() {
		s.wg.Done()
		if old.logID != logID {
			replaced = old.logID
		}
	}
	p := &pendingCleaning{logID: logID}
	s.wg.Add(1)
	p.timer = time.AfterFunc(s.delay, func() {
		defer s.wg.Done()
		s.finish(tableID, p)
	})
	s.pending[tableID] = p
	s.mu.Unlock()

	s.closeLog(context.Background(), replaced)
}

func (s *CleaningScheduler) closeLog(ctx context.Context, logID uint) {
	if s.logs == nil || logID == 0 {
		return
	}
	if err := s.logs.FinishCleaningLog(ctx, logID); err != nil {
		utils.ErrorLogger.Errorf("Error closing cleaning log %d: %v", logID, err)
	}
}

func (s *CleaningScheduler) finish(tableID string, p *pendingCleaning) {
	s.mu.Lock()
	if s.pending[tableID] == p {
		delete(s.pending, tableID)
	}
	s.mu.Unlock()

	ctx := context.Background()
	table, err := s.tables.Get(ctx, tableID)
	if err != nil {
		utils.ErrorLogger.Errorf("Error finishing cleaning of table %s: %v", tableID, err)
		return
	}
	if table.Status == models.TableCleaning {
		if _, err := s.tables.SetStatus(ctx, tableID, models.TableAvailable); err != nil {
			utils.ErrorLogger.Errorf("Error making table %d available after cleaning: %v", table.Number, err)
			return
		}
		utils.InfoLogger.Printf("Table %d cleaned and available", table.Number)
	}

	s.closeLog(ctx, p.logID)

	if _, err := s.engine.TryAssignAutomatically(ctx); err != nil {
		utils.ErrorLogger.Errorf("Error running assignment sweep after cleaning: %v", err)
	}
}

// Resume schedules the end of cleaning for tables left in Cleaning by a
// previous run.
func (s *CleaningScheduler) Resume(ctx context.Context) error {
	tables, err := s.tables.List(ctx)
	if err != nil {
		return err
	}

	open := make(map[string]uint)
	if s.logs != nil {
		logs, err := s.logs.ListCleaningLogs(ctx)
		if err != nil {
			return err
		}
		// newest first, so the first open log per table wins
		for _, l := range logs {
			if _, seen := open[l.TableID]; !seen && l.Status == models.CleaningInProgress {
				open[l.TableID] = l.ID
			}
		}
	}

	for _, t := range tables {
		if t.Status == models.TableCleaning {
			utils.InfoLogger.Printf("Resuming cleaning of table %d", t.Number)
			s.schedule(t.ID, open[t.ID])
		}
	}
	return nil
}

// Wait blocks until every scheduled cleaning has finished or been stopped.
func (s *CleaningScheduler) Wait() {
	s.wg.Wait()
}

// Stop cancels cleanings that have not started finishing yet. Their tables
// stay in Cleaning until the next Resume.
func (s *CleaningScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.pending {
		if p.timer.Stop() {
			s.wg.Done()
		}
		delete(s.pending, id)
	}
}
