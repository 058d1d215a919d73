package ports

import (
	"context"

	"github.com/byrgyin/server-counter/internal/core/domain"
)

type AuthService interface {
	Signup(ctx context.Context, username, password string) (*domain.Session, *domain.User, error)
	Login(ctx context.Context, username, password string) (*domain.Session, *domain.User, error)
	Logout(ctx context.Context, token string) error
}

// SessionResolver turns a bearer token into a user. A nil user with a nil
// error means the caller is anonymous.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*domain.User, error)
}
