package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/byrgyin/server-counter/internal/core/domain"
	"github.com/byrgyin/server-counter/internal/core/ports"
	"github.com/byrgyin/server-counter/internal/pkg/metrics"
)

// TimerService implements the timer lifecycle. A user owns at most one
// active timer; the repository's conditional writes enforce it.
type TimerService struct {
	repo     ports.TimerRepository
	progress ports.ProgressRecorder
	log      zerolog.Logger
	now      func() time.Time
}

func NewTimerService(repo ports.TimerRepository, progress ports.ProgressRecorder, log zerolog.Logger) *TimerService {
	return &TimerService{repo: repo, progress: progress, log: log, now: time.Now}
}

// Start creates a new active timer for owner. It fails with
// domain.ErrTimerAlreadyActive if the owner already has one running.
func (s *TimerService) Start(ctx context.Context, owner *domain.User, description string) (*domain.Timer, error) {
	if owner == nil {
		return nil, domain.ErrUnauthenticated
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, fmt.Errorf("%w: description is required", domain.ErrInvalidInput)
	}

	created, err := s.repo.InsertActive(ctx, &domain.Timer{
		OwnerID:     owner.ID,
		Description: description,
		StartedAt:   s.timestamp(),
		IsActive:    true,
	})
	if err != nil {
		if errors.Is(err, domain.ErrTimerAlreadyActive) {
			metrics.TimerRejectionsTotal.WithLabelValues("already_active").Inc()
			return nil, err
		}
		return nil, fmt.Errorf("start timer: %w", err)
	}

	metrics.TimersStartedTotal.Inc()
	s.log.Info().Str("user_id", owner.ID).Str("timer_id", created.ID).Msg("timer started")
	return created, nil
}

// List returns the owner's timers with the given active state, sorted by
// description. Active timers get a fresh ProgressMs, which is handed to the
// progress recorder without waiting for it to be stored.
func (s *TimerService) List(ctx context.Context, owner *domain.User, active bool) ([]*domain.Timer, error) {
	if owner == nil {
		return nil, domain.ErrUnauthenticated
	}

	timers, err := s.repo.ListByOwner(ctx, owner.ID, active)
	if err != nil {
		return nil, fmt.Errorf("list timers: %w", err)
	}

	if active && len(timers) > 0 {
		now := s.now()
		updates := make([]domain.ProgressUpdate, 0, len(timers))
		for _, t := range timers {
			t.ProgressMs = t.Elapsed(now)
			updates = append(updates, domain.ProgressUpdate{TimerID: t.ID, ProgressMs: t.ProgressMs})
		}
		s.progress.Record(owner.ID, updates)
	}

	sortByDescription(timers)
	return timers, nil
}

// Get returns the timer only if owner owns it; otherwise nil.
func (s *TimerService) Get(ctx context.Context, owner *domain.User, timerID string) (*domain.Timer, error) {
	if owner == nil {
		return nil, domain.ErrUnauthenticated
	}

	t, err := s.repo.FindByID(ctx, owner.ID, strings.TrimSpace(timerID))
	if err != nil {
		if errors.Is(err, domain.ErrTimerNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get timer: %w", err)
	}
	return t, nil
}

// Stop ends the owner's active timer. A non-empty timerID must name that
// timer; otherwise domain.ErrNoActiveTimer is returned.
func (s *TimerService) Stop(ctx context.Context, owner *domain.User, timerID string) (*domain.Timer, error) {
	if owner == nil {
		return nil, domain.ErrUnauthenticated
	}

	stopped, err := s.repo.StopActive(ctx, owner.ID, strings.TrimSpace(timerID), s.timestamp())
	if err != nil {
		if errors.Is(err, domain.ErrNoActiveTimer) {
			metrics.TimerRejectionsTotal.WithLabelValues("no_active").Inc()
			return nil, err
		}
		return nil, fmt.Errorf("stop timer: %w", err)
	}

	metrics.TimersStoppedTotal.Inc()
	metrics.TimerDurationSeconds.Observe(float64(stopped.DurationMs) / 1000)
	s.log.Info().
		Str("user_id", owner.ID).
		Str("timer_id", stopped.ID).
		Int64("duration_ms", stopped.DurationMs).
		Msg("timer stopped")
	return stopped, nil
}

// timestamp returns now at the store's millisecond precision.
func (s *TimerService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// sortByDescription orders timers by description using root-locale
// collation. Equal descriptions keep their stored order.
func sortByDescription(timers []*domain.Timer) {
	c := collate.New(language.Und)
	slices.SortStableFunc(timers, func(a, b *domain.Timer) int {
		return c.CompareString(a.Description, b.Description)
	})
}
