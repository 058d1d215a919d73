package ports

import (
	"context"
	"time"

	"github.com/byrgyin/server-counter/internal/core/domain"
)

// TimerRepository defines persistence operations for timers.
//
// InsertActive and StopActive are single atomic conditional writes keyed on
// the owner; callers never read-then-write the active state.
type TimerRepository interface {
	// InsertActive stores t as the owner's active timer. Returns
	// domain.ErrTimerAlreadyActive when the owner already has one.
	InsertActive(ctx context.Context, t *domain.Timer) (*domain.Timer, error)
	// ListByOwner returns the owner's timers matching active, in insertion order.
	ListByOwner(ctx context.Context, ownerID string, active bool) ([]*domain.Timer, error)
	// FindByID returns domain.ErrTimerNotFound unless the timer exists and
	// belongs to ownerID.
	FindByID(ctx context.Context, ownerID, timerID string) (*domain.Timer, error)
	// StopActive stops the owner's active timer at the given instant. When
	// timerID is non-empty it must identify that active timer. Returns
	// domain.ErrNoActiveTimer when nothing matched.
	StopActive(ctx context.Context, ownerID, timerID string, at time.Time) (*domain.Timer, error)
	// UpdateProgress applies progress values to still-active timers. Stored
	// progress never decreases.
	UpdateProgress(ctx context.Context, updates []domain.ProgressUpdate) error
}

// ProgressRecorder accepts progress refreshes for asynchronous persistence.
// Record must not block the caller.
type ProgressRecorder interface {
	Record(ownerID string, updates []domain.ProgressUpdate)
}
