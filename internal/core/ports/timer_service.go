package ports

import (
	"context"

	"github.com/byrgyin/server-counter/internal/core/domain"
)

// TimerService defines the timer lifecycle use cases. Every operation fails
// with domain.ErrUnauthenticated when owner is nil.
type TimerService interface {
	Start(ctx context.Context, owner *domain.User, description string) (*domain.Timer, error)
	// List returns the owner's timers sorted by description.
	List(ctx context.Context, owner *domain.User, active bool) ([]*domain.Timer, error)
	// Get returns nil without error when the timer is missing or not owned.
	Get(ctx context.Context, owner *domain.User, timerID string) (*domain.Timer, error)
	Stop(ctx context.Context, owner *domain.User, timerID string) (*domain.Timer, error)
}
