package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/byrgyin/server-counter/internal/core/domain"
	"github.com/byrgyin/server-counter/internal/core/ports"
	"github.com/byrgyin/server-counter/internal/pkg/metrics"
)

// SessionCache abstracts the read-through session cache (Redis).
// Implementations map a session token hash to a user ID.
//
// Revoke must outlive the entry it removes: a Set that races with it
// cannot make Get report the token again.
type SessionCache interface {
	Get(ctx context.Context, tokenHash string) (userID string, ok bool, err error)
	Set(ctx context.Context, tokenHash, userID string) error
	Revoke(ctx context.Context, tokenHash string) error
}

// AuthService implements signup, login and logout.
type AuthService struct {
	users    ports.UserRepository
	sessions ports.SessionRepository
	hasher   PasswordHasher
	cache    SessionCache // nil disables caching
	log      zerolog.Logger
	now      func() time.Time

	// dummyDigest is compared against on unknown usernames so both login
	// failures cost one hash comparison.
	dummyOnce   sync.Once
	dummyDigest string
}

func NewAuthService(
	users ports.UserRepository,
	sessions ports.SessionRepository,
	hasher PasswordHasher,
	cache SessionCache,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		cache:    cache,
		log:      log,
		now:      time.Now,
	}
}

func (s *AuthService) Signup(ctx context.Context, username, password string) (*domain.Session, *domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, nil, fmt.Errorf("%w: username and password are required", domain.ErrInvalidInput)
	}

	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		metrics.AuthAttemptsTotal.WithLabelValues("signup", "username_taken").Inc()
		return nil, nil, domain.ErrUsernameTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		metrics.AuthAttemptsTotal.WithLabelValues("signup", "error").Inc()
		return nil, nil, fmt.Errorf("signup: %w", err)
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.users.Create(ctx, &domain.User{
		Username:     username,
		PasswordHash: digest,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		// A concurrent signup can win between the lookup and the insert.
		if errors.Is(err, domain.ErrUsernameTaken) {
			metrics.AuthAttemptsTotal.WithLabelValues("signup", "username_taken").Inc()
			return nil, nil, domain.ErrUsernameTaken
		}
		metrics.AuthAttemptsTotal.WithLabelValues("signup", "error").Inc()
		return nil, nil, fmt.Errorf("signup: create user: %w", err)
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("user created without session")
		metrics.AuthAttemptsTotal.WithLabelValues("signup", "error").Inc()
		return nil, nil, fmt.Errorf("signup: %w", err)
	}

	metrics.AuthAttemptsTotal.WithLabelValues("signup", "ok").Inc()
	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("user signed up")
	return session, user, nil
}

// Login verifies credentials and mints a new session. Unknown users and
// wrong passwords both yield domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.Session, *domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "invalid_credentials").Inc()
		return nil, nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			_ = s.hasher.Compare(s.unknownUserDigest(), password)
			metrics.AuthAttemptsTotal.WithLabelValues("login", "invalid_credentials").Inc()
			return nil, nil, domain.ErrInvalidCredentials
		}
		metrics.AuthAttemptsTotal.WithLabelValues("login", "error").Inc()
		return nil, nil, fmt.Errorf("login: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "invalid_credentials").Inc()
		return nil, nil, domain.ErrInvalidCredentials
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("login", "error").Inc()
		return nil, nil, fmt.Errorf("login: %w", err)
	}

	metrics.AuthAttemptsTotal.WithLabelValues("login", "ok").Inc()
	s.log.Info().Str("user_id", user.ID).Msg("user logged in")
	return session, user, nil
}

// Logout revokes the session behind token. Unknown tokens are ignored.
// The cache is revoked before the store so a failed logout leaves the
// session intact and the caller can retry.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	hash := HashSessionToken(token)

	if s.cache != nil {
		if err := s.cache.Revoke(ctx, hash); err != nil {
			s.log.Error().Err(err).Msg("failed to revoke cached session")
			return fmt.Errorf("logout: %w: %v", domain.ErrStoreUnavailable, err)
		}
	}
	if err := s.sessions.DeleteByTokenHash(ctx, hash); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (s *AuthService) unknownUserDigest() string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash("unknown-user-placeholder")
		if err != nil {
			s.log.Error().Err(err).Msg("failed to prepare placeholder digest")
			return
		}
		s.dummyDigest = digest
	})
	return s.dummyDigest
}

func (s *AuthService) createSession(ctx context.Context, userID string) (*domain.Session, error) {
	token, hash, err := GenerateSessionToken()
	if err != nil {
		return nil, err
	}
	session := &domain.Session{
		Token:     token,
		TokenHash: hash,
		UserID:    userID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}
