package services

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/yeremiapane/restaurant-queue/models"
	"github.com/yeremiapane/restaurant-queue/utils"
)

// WaitTimeSynchronizer keeps a local countdown for every waiting customer,
// reconciles it with stored values as they change, and, when designated,
// writes it back so other observers stay in step.
type WaitTimeSynchronizer struct {
	queue      *QueueRegistry
	designated bool
	clock      func() time.Time

	StopChan chan struct{}
	stopOnce sync.Once

	mu          sync.Mutex
	display     map[string]float64
	lastPersist map[string]time.Time
	unsubscribe func()
}

func NewWaitTimeSynchronizer(queue *QueueRegistry, designated bool, clock func() time.Time) *WaitTimeSynchronizer {
	if clock == nil {
		clock = time.Now
	}
	return &WaitTimeSynchronizer{
		queue:       queue,
		designated:  designated,
		clock:       clock,
		StopChan:    make(chan struct{}),
		display:     make(map[string]float64),
		lastPersist: make(map[string]time.Time),
	}
}

// Start follows the queue and ticks once per TickInterval until Stop.
func (s *WaitTimeSynchronizer) Start(ctx context.Context) {
	unsubscribe := s.queue.Subscribe(ctx, func(entries []QueueEntry) {
		s.Reconcile(entries, s.clock())
	})
	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	utils.InfoLogger.Printf("Wait timer started (designated updater: %v)", s.designated)

	go func() {
		ticker := time.NewTicker(TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Tick(ctx, s.clock())
			case <-s.StopChan:
				utils.InfoLogger.Println("Wait timer stopped")
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *WaitTimeSynchronizer) Stop() {
	s.stopOnce.Do(func() {
		close(s.StopChan)
		s.mu.Lock()
		unsubscribe := s.unsubscribe
		s.mu.Unlock()
		if unsubscribe != nil {
			unsubscribe()
		}
	})
}

// Reconcile merges a queue snapshot into the local countdowns. New waiting
// customers start from their decayed stored value; customers no longer
// waiting are dropped; a stored reset is mirrored locally; any other drift
// beyond DriftTolerance is replaced by the stored value.
func (s *WaitTimeSynchronizer) Reconcile(entries []QueueEntry, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.Status != models.CustomerWaiting {
			continue
		}
		seen[e.ID] = true
		view := DeriveWaitTime(e.Customer, now)

		current, tracked := s.display[e.ID]
		if !tracked {
			s.display[e.ID] = DecayedWaitTime(e.WaitTime, e.WaitTimeUpdatedAt, now)
			s.lastPersist[e.ID] = e.WaitTimeUpdatedAt
			continue
		}

		switch {
		case view.WasReset:
			s.display[e.ID] = view.Calculated
		case view.ShouldReset && view.Calculated == ResetWaitMinutes:
			s.display[e.ID] = ResetWaitMinutes
		case math.Abs(current-view.Calculated) > DriftTolerance:
			s.display[e.ID] = view.Calculated
		}
	}

	for id := range s.display {
		if !seen[id] {
			delete(s.display, id)
			delete(s.lastPersist, id)
		}
	}
}

type waitTimeWrite struct {
	id    string
	value float64
}

// Tick advances every local countdown by one step. An elapsed countdown
// cycles back to ResetWaitMinutes and is written at once with the reset
// marker; others are written at most every PersistInterval. Only the
// designated updater writes. A failed write is retried on a later tick.
func (s *WaitTimeSynchronizer) Tick(ctx context.Context, now time.Time) {
	var writes []waitTimeWrite

	s.mu.Lock()
	for id, current := range s.display {
		if current <= ResetThreshold {
			s.display[id] = ResetWaitMinutes
			writes = append(writes, waitTimeWrite{id: id, value: current})
			continue
		}
		next := math.Max(0, current-TickDecrement)
		s.display[id] = next
		if now.Sub(s.lastPersist[id]) >= PersistInterval {
			writes = append(writes, waitTimeWrite{id: id, value: next})
		}
	}
	s.mu.Unlock()

	if !s.designated {
		return
	}

	for _, w := range writes {
		if _, err := s.queue.UpdateWaitTime(ctx, w.id, w.value); err != nil {
			if !utils.IsNotFound(err) {
				utils.ErrorLogger.Errorf("Error persisting wait time for customer %s: %v", w.id, err)
			}
			continue
		}
		s.mu.Lock()
		if _, ok := s.display[w.id]; ok {
			s.lastPersist[w.id] = now
		}
		s.mu.Unlock()
	}
}

// Display returns the local countdown for one customer.
func (s *WaitTimeSynchronizer) Display(id string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.display[id]
	return v, ok
}

// Snapshot copies every local countdown.
func (s *WaitTimeSynchronizer) Snapshot() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]float64, len(s.display))
	for id, v := range s.display {
		out[id] = v
	}
	return out
}
