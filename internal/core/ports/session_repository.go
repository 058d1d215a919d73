package ports

import (
	"context"

	"github.com/byrgyin/server-counter/internal/core/domain"
)

// SessionRepository maps hashed session tokens to user IDs.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	// FindByTokenHash returns domain.ErrSessionNotFound when no session matches.
	FindByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	// DeleteByTokenHash is a no-op for unknown hashes.
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
}
