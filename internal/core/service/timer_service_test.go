package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/byrgyin/server-counter/internal/core/domain"
)

// ---------------------------------------------------------------------------
// In-memory stubs
// ---------------------------------------------------------------------------

// stubTimerRepo mirrors the conditional writes of the Mongo repository under
// a single mutex.
type stubTimerRepo struct {
	mu      sync.Mutex
	timers  []*domain.Timer // insertion order
	nextID  int
	listErr error
}

func newStubTimerRepo() *stubTimerRepo {
	return &stubTimerRepo{}
}

func (r *stubTimerRepo) InsertActive(_ context.Context, t *domain.Timer) (*domain.Timer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.timers {
		if existing.OwnerID == t.OwnerID && existing.IsActive {
			return nil, domain.ErrTimerAlreadyActive
		}
	}
	r.nextID++
	clone := *t
	clone.ID = fmt.Sprintf("timer-%d", r.nextID)
	r.timers = append(r.timers, &clone)
	out := clone
	return &out, nil
}

func (r *stubTimerRepo) ListByOwner(_ context.Context, ownerID string, active bool) ([]*domain.Timer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []*domain.Timer
	for _, t := range r.timers {
		if t.OwnerID == ownerID && t.IsActive == active {
			clone := *t
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *stubTimerRepo) FindByID(_ context.Context, ownerID, timerID string) (*domain.Timer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.timers {
		if t.ID == timerID && t.OwnerID == ownerID {
			clone := *t
			return &clone, nil
		}
	}
	return nil, domain.ErrTimerNotFound
}

func (r *stubTimerRepo) StopActive(_ context.Context, ownerID, timerID string, at time.Time) (*domain.Timer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.timers {
		if t.OwnerID != ownerID || !t.IsActive || (timerID != "" && t.ID != timerID) {
			continue
		}
		stoppedAt := at
		t.IsActive = false
		t.StoppedAt = &stoppedAt
		t.DurationMs = t.Elapsed(at)
		clone := *t
		return &clone, nil
	}
	return nil, domain.ErrNoActiveTimer
}

func (r *stubTimerRepo) UpdateProgress(_ context.Context, updates []domain.ProgressUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range updates {
		for _, t := range r.timers {
			if t.ID == u.TimerID && t.IsActive && u.ProgressMs > t.ProgressMs {
				t.ProgressMs = u.ProgressMs
			}
		}
	}
	return nil
}

func (r *stubTimerRepo) activeCount(ownerID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.timers {
		if t.OwnerID == ownerID && t.IsActive {
			n++
		}
	}
	return n
}

type stubProgress struct {
	mu      sync.Mutex
	batches [][]domain.ProgressUpdate
}

func (p *stubProgress) Record(_ string, updates []domain.ProgressUpdate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, updates)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// fakeClock is advanced manually by tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestTimerService(repo *stubTimerRepo, progress *stubProgress) *TimerService {
	return NewTimerService(repo, progress, zerolog.Nop())
}

var (
	alice = &domain.User{ID: "user-alice", Username: "alice"}
	bob   = &domain.User{ID: "user-bob", Username: "bob"}
)

// ---------------------------------------------------------------------------
// Start / Stop
// ---------------------------------------------------------------------------

func TestTimerService_Start_Success(t *testing.T) {
	clock := newFakeClock()
	svc := newTestTimerService(newStubTimerRepo(), &stubProgress{})
	svc.now = clock.Now

	timer, err := svc.Start(context.Background(), alice, "  write report ")
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if timer.ID == "" || timer.OwnerID != alice.ID {
		t.Fatalf("unexpected timer: %+v", timer)
	}
	if timer.Description != "write report" {
		t.Fatalf("expected trimmed description, got %q", timer.Description)
	}
	if !timer.IsActive || timer.DurationMs != 0 || timer.ProgressMs != 0 || timer.StoppedAt != nil {
		t.Fatalf("new timer has unexpected state: %+v", timer)
	}
	if !timer.StartedAt.Equal(clock.Now()) {
		t.Fatalf("expected startedAt %v, got %v", clock.Now(), timer.StartedAt)
	}
}

func TestTimerService_Start_Validation(t *testing.T) {
	svc := newTestTimerService(newStubTimerRepo(), &stubProgress{})

	if _, err := svc.Start(context.Background(), alice, "   "); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Start(context.Background(), nil, "work"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestTimerService_Start_RejectsSecondActive(t *testing.T) {
	svc := newTestTimerService(newStubTimerRepo(), &stubProgress{})

	if _, err := svc.Start(context.Background(), alice, "first"); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	if _, err := svc.Start(context.Background(), alice, "second"); !errors.Is(err, domain.ErrTimerAlreadyActive) {
		t.Fatalf("expected ErrTimerAlreadyActive, got %v", err)
	}
	// Another owner is unaffected.
	if _, err := svc.Start(context.Background(), bob, "other"); err != nil {
		t.Fatalf("start for second owner failed: %v", err)
	}
}

func TestTimerService_Start_ConcurrentSingleActive(t *testing.T) {
	repo := newStubTimerRepo()
	svc := newTestTimerService(repo, &stubProgress{})

	const n = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	started, rejected := 0, 0

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Start(context.Background(), alice, fmt.Sprintf("task-%d", i))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				started++
			case errors.Is(err, domain.ErrTimerAlreadyActive):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if started != 1 || rejected != n-1 {
		t.Fatalf("expected 1 started and %d rejected, got %d and %d", n-1, started, rejected)
	}
	if got := repo.activeCount(alice.ID); got != 1 {
		t.Fatalf("expected exactly one active timer, got %d", got)
	}
}

func TestTimerService_StartStop(t *testing.T) {
	clock := newFakeClock()
	svc := newTestTimerService(newStubTimerRepo(), &stubProgress{})
	svc.now = clock.Now

	started, err := svc.Start(context.Background(), alice, "task")
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	clock.Advance(90 * time.Second)

	stopped, err := svc.Stop(context.Background(), alice, "")
	if err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if stopped.ID != started.ID || stopped.IsActive {
		t.Fatalf("unexpected stopped timer: %+v", stopped)
	}
	if stopped.DurationMs != 90_000 {
		t.Fatalf("expected duration 90000ms, got %d", stopped.DurationMs)
	}
	if stopped.StoppedAt == nil || !stopped.StoppedAt.Equal(clock.Now()) {
		t.Fatalf("unexpected stoppedAt: %v", stopped.StoppedAt)
	}

	if _, err := svc.Stop(context.Background(), alice, ""); !errors.Is(err, domain.ErrNoActiveTimer) {
		t.Fatalf("expected ErrNoActiveTimer on second stop, got %v", err)
	}
}

func TestTimerService_StopImmediately(t *testing.T) {
	svc := newTestTimerService(newStubTimerRepo(), &stubProgress{})

	if _, err := svc.Start(context.Background(), alice, "task"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	stopped, err := svc.Stop(context.Background(), alice, "")
	if err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if stopped.DurationMs < 0 || stopped.IsActive {
		t.Fatalf("unexpected stopped timer: %+v", stopped)
	}
}

func TestTimerService_Stop_ByID(t *testing.T) {
	svc := newTestTimerService(newStubTimerRepo(), &stubProgress{})

	first, _ := svc.Start(context.Background(), alice, "first")
	if _, err := svc.Stop(context.Background(), alice, first.ID); err != nil {
		t.Fatalf("stop by id failed: %v", err)
	}
	second, _ := svc.Start(context.Background(), alice, "second")

	// The stopped timer cannot be stopped again, even though another is active.
	if _, err := svc.Stop(context.Background(), alice, first.ID); !errors.Is(err, domain.ErrNoActiveTimer) {
		t.Fatalf("expected ErrNoActiveTimer for stopped id, got %v", err)
	}
	// Another owner cannot stop alice's timer.
	if _, err := svc.Stop(context.Background(), bob, second.ID); !errors.Is(err, domain.ErrNoActiveTimer) {
		t.Fatalf("expected ErrNoActiveTimer for foreign timer, got %v", err)
	}
	if _, err := svc.Stop(context.Background(), alice, second.ID); err != nil {
		t.Fatalf("stop second failed: %v", err)
	}
}

// ---------------------------------------------------------------------------
// List / Get
// ---------------------------------------------------------------------------

func TestTimerService_List_SortedByDescription(t *testing.T) {
	repo := newStubTimerRepo()
	svc := newTestTimerService(repo, &stubProgress{})

	for _, d := range []string{"b", "a", "c"} {
		if _, err := svc.Start(context.Background(), alice, d); err != nil {
			t.Fatalf("start %q failed: %v", d, err)
		}
		if _, err := svc.Stop(context.Background(), alice, ""); err != nil {
			t.Fatalf("stop %q failed: %v", d, err)
		}
	}

	timers, err := svc.List(context.Background(), alice, false)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	got := make([]string, 0, len(timers))
	for _, tm := range timers {
		got = append(got, tm.Description)
	}
	if fmt.Sprint(got) != "[a b c]" {
		t.Fatalf("expected [a b c], got %v", got)
	}
}

func TestTimerService_List_TiesKeepInsertionOrder(t *testing.T) {
	repo := newStubTimerRepo()
	svc := newTestTimerService(repo, &stubProgress{})

	var ids []string
	for i := 0; i < 3; i++ {
		tm, _ := svc.Start(context.Background(), alice, "same")
		_, _ = svc.Stop(context.Background(), alice, "")
		ids = append(ids, tm.ID)
	}

	timers, _ := svc.List(context.Background(), alice, false)
	for i, tm := range timers {
		if tm.ID != ids[i] {
			t.Fatalf("position %d: expected %s, got %s", i, ids[i], tm.ID)
		}
	}
}

func TestTimerService_List_FiltersByStatusAndOwner(t *testing.T) {
	svc := newTestTimerService(newStubTimerRepo(), &stubProgress{})

	_, _ = svc.Start(context.Background(), alice, "done")
	_, _ = svc.Stop(context.Background(), alice, "")
	_, _ = svc.Start(context.Background(), alice, "running")
	_, _ = svc.Start(context.Background(), bob, "bob's")

	active, _ := svc.List(context.Background(), alice, true)
	if len(active) != 1 || active[0].Description != "running" {
		t.Fatalf("unexpected active list: %+v", active)
	}
	old, _ := svc.List(context.Background(), alice, false)
	if len(old) != 1 || old[0].Description != "done" {
		t.Fatalf("unexpected stopped list: %+v", old)
	}
}

func TestTimerService_List_RefreshesProgress(t *testing.T) {
	clock := newFakeClock()
	progress := &stubProgress{}
	svc := newTestTimerService(newStubTimerRepo(), progress)
	svc.now = clock.Now

	started, _ := svc.Start(context.Background(), alice, "task")

	clock.Advance(2 * time.Second)
	first, err := svc.List(context.Background(), alice, true)
	if err != nil {
		t.Fatalf("first list failed: %v", err)
	}
	clock.Advance(3 * time.Second)
	second, err := svc.List(context.Background(), alice, true)
	if err != nil {
		t.Fatalf("second list failed: %v", err)
	}

	if first[0].ID != started.ID || second[0].ID != started.ID {
		t.Fatalf("unexpected timers listed")
	}
	if first[0].ProgressMs != 2000 || second[0].ProgressMs != 5000 {
		t.Fatalf("expected progress 2000 then 5000, got %d then %d", first[0].ProgressMs, second[0].ProgressMs)
	}
	if len(progress.batches) != 2 {
		t.Fatalf("expected 2 progress batches recorded, got %d", len(progress.batches))
	}
	if progress.batches[1][0].TimerID != started.ID || progress.batches[1][0].ProgressMs != 5000 {
		t.Fatalf("unexpected progress batch: %+v", progress.batches[1])
	}
}

func TestTimerService_List_StoppedDoesNotRecordProgress(t *testing.T) {
	progress := &stubProgress{}
	svc := newTestTimerService(newStubTimerRepo(), progress)

	_, _ = svc.Start(context.Background(), alice, "task")
	_, _ = svc.Stop(context.Background(), alice, "")
	if _, err := svc.List(context.Background(), alice, false); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if _, err := svc.List(context.Background(), bob, true); err != nil {
		t.Fatalf("empty active list failed: %v", err)
	}
	if len(progress.batches) != 0 {
		t.Fatalf("expected no progress batches, got %d", len(progress.batches))
	}
}

func TestTimerService_List_StoreFailure(t *testing.T) {
	repo := newStubTimerRepo()
	repo.listErr = fmt.Errorf("find: %w", domain.ErrStoreUnavailable)
	svc := newTestTimerService(repo, &stubProgress{})

	if _, err := svc.List(context.Background(), alice, true); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestTimerService_Get_Ownership(t *testing.T) {
	svc := newTestTimerService(newStubTimerRepo(), &stubProgress{})

	bobs, _ := svc.Start(context.Background(), bob, "bob's")

	got, err := svc.Get(context.Background(), alice, bobs.ID)
	if err != nil || got != nil {
		t.Fatalf("expected empty result for foreign timer, got %+v, %v", got, err)
	}
	got, err = svc.Get(context.Background(), alice, "does-not-exist")
	if err != nil || got != nil {
		t.Fatalf("expected empty result for missing timer, got %+v, %v", got, err)
	}
	got, err = svc.Get(context.Background(), bob, bobs.ID)
	if err != nil || got == nil || got.ID != bobs.ID {
		t.Fatalf("expected owner to see timer, got %+v, %v", got, err)
	}
}

func TestTimerService_RequiresOwner(t *testing.T) {
	svc := newTestTimerService(newStubTimerRepo(), &stubProgress{})
	ctx := context.Background()

	if _, err := svc.List(ctx, nil, true); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("List: expected ErrUnauthenticated, got %v", err)
	}
	if _, err := svc.Get(ctx, nil, "x"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("Get: expected ErrUnauthenticated, got %v", err)
	}
	if _, err := svc.Stop(ctx, nil, ""); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("Stop: expected ErrUnauthenticated, got %v", err)
	}
}
