package ports

import (
	"context"

	"github.com/byrgyin/server-counter/internal/core/domain"
)

// UserRepository defines persistence for user identities.
type UserRepository interface {
	// Create stores a new user and returns it with its assigned ID.
	// Returns domain.ErrUsernameTaken when the username already exists.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
}
