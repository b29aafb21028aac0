package domain

import (
	"fmt"
	"time"
)

const (
	MinTimerMinutes     = 5
	MaxTimerMinutes     = 120
	TimerStepMinutes    = 5
	DefaultTimerMinutes = 25
)

// TimerPhase is the state of the focus timer as seen by a single evaluation.
type TimerPhase string

const (
	TimerIdle    TimerPhase = "idle"
	TimerRunning TimerPhase = "running"
	TimerExpired TimerPhase = "expired"
)

// TimerState holds the focus timer of a session. StartedAt and End are nil
// unless the timer is running.
type TimerState struct {
	Minutes   int        `json:"minutes"`
	Running   bool       `json:"running"`
	StartedAt *time.Time `json:"start,omitempty"`
	End       *time.Time `json:"end,omitempty"`
}

// TimerReading is the outcome of evaluating the timer at a point in time.
type TimerReading struct {
	Phase     TimerPhase
	Remaining time.Duration
	Progress  float64
	EndsAt    time.Time
}

// NewTimer returns an idle timer set to the default duration.
func NewTimer() TimerState {
	return TimerState{Minutes: DefaultTimerMinutes}
}

// ValidTimerMinutes reports whether m is an allowed timer duration.
func ValidTimerMinutes(m int) bool {
	return m >= MinTimerMinutes && m <= MaxTimerMinutes && m%TimerStepMinutes == 0
}

// SetMinutes changes the configured duration. A running timer keeps the end
// time it was started with.
func (t *TimerState) SetMinutes(m int) error {
	if !ValidTimerMinutes(m) {
		return fmt.Errorf("timer duration must be between %d and %d minutes in steps of %d, got %d",
			MinTimerMinutes, MaxTimerMinutes, TimerStepMinutes, m)
	}
	t.Minutes = m
	return nil
}

// Start runs the timer from now for the configured duration.
func (t *TimerState) Start(now time.Time) {
	end := now.Add(time.Duration(t.Minutes) * time.Minute)
	t.Running = true
	t.StartedAt = &now
	t.End = &end
}

// Stop clears the running state regardless of elapsed time.
func (t *TimerState) Stop() {
	t.Running = false
	t.StartedAt = nil
	t.End = nil
}

// Evaluate computes the remaining time at now. An expired timer is stopped
// before returning, so the expired phase is reported exactly once.
func (t *TimerState) Evaluate(now time.Time) TimerReading {
	if !t.Running || t.End == nil {
		return TimerReading{Phase: TimerIdle}
	}
	remaining := t.End.Sub(now)
	if remaining <= 0 {
		t.Stop()
		return TimerReading{Phase: TimerExpired}
	}
	total := time.Duration(t.Minutes) * time.Minute
	if t.StartedAt != nil {
		total = t.End.Sub(*t.StartedAt)
	}
	progress := 0.0
	if total > 0 {
		progress = 1 - float64(remaining)/float64(total)
	}
	if progress < 0 {
		progress = 0
	}
	return TimerReading{
		Phase:     TimerRunning,
		Remaining: remaining,
		Progress:  progress,
		EndsAt:    *t.End,
	}
}

// Clock formats the remaining time as MM:SS, dropping fractional seconds.
func (r TimerReading) Clock() string {
	secs := int(r.Remaining / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
