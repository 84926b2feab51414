package services

import (
	"math"
	"time"

	"github.com/yeremiapane/restaurant-queue/models"
)

const (
	// InitialWaitMinutes is the countdown every new customer starts with and
	// the upper bound of any persisted wait time.
	InitialWaitMinutes = 7.0
	// ResetWaitMinutes is the value a countdown cycles back to once elapsed.
	ResetWaitMinutes = 3.0
	// ResetThreshold (about 3 seconds) counts as elapsed.
	ResetThreshold = 0.05
	// DriftTolerance (about 2 seconds) is the largest gap between a local
	// countdown and the stored one before the local value is replaced.
	DriftTolerance = 0.033
	// ResetWindow bounds how old a stored value may be for an observer to
	// treat its expiry as a fresh cycle rather than a stale record.
	ResetWindow = 30 * time.Second

	TickInterval    = time.Second
	TickDecrement   = 1.0 / 60.0
	PersistInterval = 5 * time.Second

	// MinutesPerWaitingParty is the advisory estimate per party ahead at join time.
	MinutesPerWaitingParty = 5
)

// WaitTimeView is what an observer shows for a waiting customer.
type WaitTimeView struct {
	Calculated  float64 `json:"calculatedWaitTime"`
	ShouldReset bool    `json:"shouldResetTimer"`
	WasReset    bool    `json:"timerWasReset"`
}

// DecayedWaitTime is the stored countdown minus the minutes elapsed since it
// was written, floored at zero. A write time in the future counts as now.
func DecayedWaitTime(waitTime float64, updatedAt, now time.Time) float64 {
	elapsed := now.Sub(updatedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	return math.Max(0, waitTime-elapsed.Minutes())
}

// DeriveWaitTime computes the display value of c at now. A countdown that
// expired within ResetWindow of its last write shows the reset value; an
// explicit reset marker is always reported.
func DeriveWaitTime(c models.Customer, now time.Time) WaitTimeView {
	decayed := DecayedWaitTime(c.WaitTime, c.WaitTimeUpdatedAt, now)
	view := WaitTimeView{
		Calculated: decayed,
		WasReset:   c.TimerReset,
	}

	if decayed <= ResetThreshold {
		view.ShouldReset = true
		if now.Sub(c.WaitTimeUpdatedAt) <= ResetWindow {
			view.Calculated = ResetWaitMinutes
		}
	}
	if c.TimerReset {
		view.ShouldReset = true
	}
	return view
}

// NormalizeWaitTime turns a requested countdown into the value to persist.
// Non-finite input falls back to the initial wait; an expired countdown
// becomes ResetWaitMinutes and reset is true.
func NormalizeWaitTime(minutes float64) (value float64, reset bool) {
	if math.IsNaN(minutes) || math.IsInf(minutes, 0) {
		return InitialWaitMinutes, false
	}
	if minutes <= ResetThreshold {
		return ResetWaitMinutes, true
	}
	return math.Min(InitialWaitMinutes, minutes), false
}

// EstimateWaitMinutes is the one-shot estimate given at join time.
func EstimateWaitMinutes(partiesAhead int) int {
	return partiesAhead * MinutesPerWaitingParty
}
