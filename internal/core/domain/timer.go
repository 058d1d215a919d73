package domain

import "time"

// Timer is one work interval owned by exactly one user.
//
// A timer is created active and moves once to stopped; a stopped timer is
// terminal. ProgressMs is refreshed while the timer is active and
// DurationMs is fixed when it stops.
type Timer struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	Description string     `json:"description"`
	StartedAt   time.Time  `json:"startedAt"`
	StoppedAt   *time.Time `json:"stoppedAt,omitempty"`
	DurationMs  int64      `json:"durationMs"`
	ProgressMs  int64      `json:"progressMs"`
	IsActive    bool       `json:"isActive"`
}

// Elapsed returns the milliseconds between StartedAt and now, never negative.
func (t *Timer) Elapsed(now time.Time) int64 {
	ms := now.Sub(t.StartedAt).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}

// ProgressUpdate carries a freshly computed progress value for one timer.
type ProgressUpdate struct {
	TimerID    string
	ProgressMs int64
}
