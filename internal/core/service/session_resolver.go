package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/byrgyin/server-counter/internal/core/domain"
	"github.com/byrgyin/server-counter/internal/core/ports"
)

// SessionResolver maps bearer tokens to users. Missing, unknown and orphaned
// sessions all resolve to anonymous (nil user, nil error); only store
// failures are reported as errors.
type SessionResolver struct {
	sessions ports.SessionRepository
	users    ports.UserRepository
	cache    SessionCache // nil disables caching
	log      zerolog.Logger
}

func NewSessionResolver(sessions ports.SessionRepository, users ports.UserRepository, cache SessionCache, log zerolog.Logger) *SessionResolver {
	return &SessionResolver{sessions: sessions, users: users, cache: cache, log: log}
}

func (r *SessionResolver) Resolve(ctx context.Context, token string) (*domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	hash := HashSessionToken(token)

	userID, err := r.lookupUserID(ctx, hash)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve session: %w", err)
	}

	user, err := r.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			r.log.Warn().Str("user_id", userID).Msg("session references missing user")
			r.evict(ctx, hash)
			return nil, nil
		}
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	return user, nil
}

func (r *SessionResolver) lookupUserID(ctx context.Context, hash string) (string, error) {
	if r.cache != nil {
		userID, ok, err := r.cache.Get(ctx, hash)
		switch {
		case err != nil:
			r.log.Warn().Err(err).Msg("session cache lookup failed, falling back to store")
		case ok:
			return userID, nil
		}
	}

	session, err := r.sessions.FindByTokenHash(ctx, hash)
	if err != nil {
		return "", err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, hash, session.UserID); err != nil {
			r.log.Warn().Err(err).Msg("failed to populate session cache")
		}
	}
	return session.UserID, nil
}

func (r *SessionResolver) evict(ctx context.Context, hash string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Revoke(ctx, hash); err != nil {
		r.log.Warn().Err(err).Msg("failed to evict session from cache")
	}
}
