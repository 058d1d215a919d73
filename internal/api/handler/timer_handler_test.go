package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/byrgyin/server-counter/internal/api/middleware"
	"github.com/byrgyin/server-counter/internal/core/domain"
)

type stubTimerService struct {
	startFn func(ctx context.Context, owner *domain.User, description string) (*domain.Timer, error)
	listFn  func(ctx context.Context, owner *domain.User, active bool) ([]*domain.Timer, error)
	getFn   func(ctx context.Context, owner *domain.User, id string) (*domain.Timer, error)
	stopFn  func(ctx context.Context, owner *domain.User, id string) (*domain.Timer, error)
	calls   int
}

func (s *stubTimerService) Start(ctx context.Context, owner *domain.User, description string) (*domain.Timer, error) {
	s.calls++
	return s.startFn(ctx, owner, description)
}

func (s *stubTimerService) List(ctx context.Context, owner *domain.User, active bool) ([]*domain.Timer, error) {
	s.calls++
	return s.listFn(ctx, owner, active)
}

func (s *stubTimerService) Get(ctx context.Context, owner *domain.User, id string) (*domain.Timer, error) {
	s.calls++
	return s.getFn(ctx, owner, id)
}

func (s *stubTimerService) Stop(ctx context.Context, owner *domain.User, id string) (*domain.Timer, error) {
	s.calls++
	return s.stopFn(ctx, owner, id)
}

var testUser = &domain.User{ID: "u1", Username: "alice"}

// authed runs h behind the Session middleware with a token that resolves to
// testUser.
func authed(h echo.HandlerFunc) echo.HandlerFunc {
	return middleware.Session(&fixedResolver{user: testUser})(h)
}

func withToken(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer tok-1")
	return req
}

func TestTimerHandler_List(t *testing.T) {
	e := newEcho()
	stub := &stubTimerService{
		listFn: func(_ context.Context, owner *domain.User, active bool) ([]*domain.Timer, error) {
			if owner.ID != "u1" || !active {
				t.Fatalf("unexpected args: %+v %v", owner, active)
			}
			return []*domain.Timer{
				{ID: "t1", Description: "a", IsActive: true, ProgressMs: 1200, StartedAt: time.Now().UTC()},
			}, nil
		},
	}
	handler := NewTimerHandler(stub)
	rec := httptest.NewRecorder()
	c := e.NewContext(withToken(httptest.NewRequest(http.MethodGet, "/api/timers?isActive=true", nil)), rec)

	if err := authed(handler.List)(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var timers []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &timers); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(timers) != 1 || timers[0]["id"] != "t1" || timers[0]["progressMs"] != float64(1200) {
		t.Fatalf("unexpected body: %v", timers)
	}
	if _, ok := timers[0]["stoppedAt"]; ok {
		t.Fatalf("running timer must omit stoppedAt")
	}
}

func TestTimerHandler_List_EmptyIsArray(t *testing.T) {
	e := newEcho()
	stub := &stubTimerService{
		listFn: func(context.Context, *domain.User, bool) ([]*domain.Timer, error) { return nil, nil },
	}
	handler := NewTimerHandler(stub)
	rec := httptest.NewRecorder()
	c := e.NewContext(withToken(httptest.NewRequest(http.MethodGet, "/api/timers?isActive=false", nil)), rec)

	if err := authed(handler.List)(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if body := rec.Body.String(); body != "[]\n" {
		t.Fatalf("expected empty array, got %q", body)
	}
}

func TestTimerHandler_List_InvalidFlag(t *testing.T) {
	for _, query := range []string{"", "?isActive=yes", "?isActive=1", "?isActive=TRUE"} {
		e := newEcho()
		stub := &stubTimerService{}
		handler := NewTimerHandler(stub)
		c := e.NewContext(withToken(httptest.NewRequest(http.MethodGet, "/api/timers"+query, nil)), httptest.NewRecorder())

		if code := httpStatus(t, authed(handler.List)(c)); code != http.StatusBadRequest {
			t.Fatalf("query %q: expected 400, got %d", query, code)
		}
		if stub.calls != 0 {
			t.Fatalf("query %q: service must not be called", query)
		}
	}
}

func TestTimerHandler_RequiresSession(t *testing.T) {
	e := newEcho()
	stub := &stubTimerService{}
	handler := NewTimerHandler(stub)

	for name, h := range map[string]echo.HandlerFunc{
		"list":  handler.List,
		"get":   handler.Get,
		"start": handler.Start,
		"stop":  handler.Stop,
	} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/timers?isActive=true", nil), httptest.NewRecorder())
		if err := h(c); !errors.Is(err, domain.ErrUnauthenticated) {
			t.Fatalf("%s: expected ErrUnauthenticated, got %v", name, err)
		}
	}
	if stub.calls != 0 {
		t.Fatalf("service must not be called for anonymous requests")
	}
}

func TestTimerHandler_Get(t *testing.T) {
	e := newEcho()
	stub := &stubTimerService{
		getFn: func(_ context.Context, _ *domain.User, id string) (*domain.Timer, error) {
			if id == "t1" {
				return &domain.Timer{ID: "t1", Description: "mine"}, nil
			}
			return nil, nil
		},
	}
	handler := NewTimerHandler(stub)

	for id, want := range map[string]int{"t1": 1, "other": 0} {
		rec := httptest.NewRecorder()
		c := e.NewContext(withToken(httptest.NewRequest(http.MethodGet, "/api/timers/"+id, nil)), rec)
		c.SetParamNames("id")
		c.SetParamValues(id)

		if err := authed(handler.Get)(c); err != nil {
			t.Fatalf("%s: handler error: %v", id, err)
		}
		var timers []domain.Timer
		if err := json.Unmarshal(rec.Body.Bytes(), &timers); err != nil {
			t.Fatalf("%s: invalid json: %v", id, err)
		}
		if len(timers) != want {
			t.Fatalf("%s: expected %d timers, got %d", id, want, len(timers))
		}
	}
}

func TestTimerHandler_Start(t *testing.T) {
	e := newEcho()
	stub := &stubTimerService{
		startFn: func(_ context.Context, owner *domain.User, description string) (*domain.Timer, error) {
			return &domain.Timer{ID: "t9", OwnerID: owner.ID, Description: description, IsActive: true}, nil
		},
	}
	handler := NewTimerHandler(stub)
	rec := httptest.NewRecorder()
	c := e.NewContext(withToken(jsonRequest(http.MethodPost, "/api/timers", `{"description":"write report"}`)), rec)

	if err := authed(handler.Start)(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var timer domain.Timer
	if err := json.Unmarshal(rec.Body.Bytes(), &timer); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if timer.ID != "t9" || timer.Description != "write report" || !timer.IsActive || timer.OwnerID != "u1" {
		t.Fatalf("unexpected timer: %+v", timer)
	}
}

func TestTimerHandler_Start_MissingDescription(t *testing.T) {
	e := newEcho()
	stub := &stubTimerService{}
	handler := NewTimerHandler(stub)
	c := e.NewContext(withToken(jsonRequest(http.MethodPost, "/api/timers", `{}`)), httptest.NewRecorder())

	if code := httpStatus(t, authed(handler.Start)(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	if stub.calls != 0 {
		t.Fatalf("service must not be called")
	}
}

func TestTimerHandler_Start_AlreadyActive(t *testing.T) {
	e := newEcho()
	stub := &stubTimerService{
		startFn: func(context.Context, *domain.User, string) (*domain.Timer, error) {
			return nil, domain.ErrTimerAlreadyActive
		},
	}
	handler := NewTimerHandler(stub)
	c := e.NewContext(withToken(jsonRequest(http.MethodPost, "/api/timers", `{"description":"x"}`)), httptest.NewRecorder())

	if err := authed(handler.Start)(c); !errors.Is(err, domain.ErrTimerAlreadyActive) {
		t.Fatalf("expected ErrTimerAlreadyActive, got %v", err)
	}
}

func TestTimerHandler_Stop(t *testing.T) {
	e := newEcho()
	stopped := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	stub := &stubTimerService{
		stopFn: func(_ context.Context, _ *domain.User, id string) (*domain.Timer, error) {
			if id != "t1" {
				return nil, domain.ErrNoActiveTimer
			}
			return &domain.Timer{ID: "t1", StoppedAt: &stopped, DurationMs: 4200}, nil
		},
	}
	handler := NewTimerHandler(stub)

	rec := httptest.NewRecorder()
	c := e.NewContext(withToken(httptest.NewRequest(http.MethodPost, "/api/timers/t1/stop", nil)), rec)
	c.SetParamNames("id")
	c.SetParamValues("t1")
	if err := authed(handler.Stop)(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var timer domain.Timer
	if err := json.Unmarshal(rec.Body.Bytes(), &timer); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if timer.DurationMs != 4200 || timer.IsActive || timer.StoppedAt == nil {
		t.Fatalf("unexpected timer: %+v", timer)
	}

	c = e.NewContext(withToken(httptest.NewRequest(http.MethodPost, "/api/timers/t2/stop", nil)), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("t2")
	if err := authed(handler.Stop)(c); !errors.Is(err, domain.ErrNoActiveTimer) {
		t.Fatalf("expected ErrNoActiveTimer, got %v", err)
	}
}

func TestTimerHandler_Stop_PathDecidesID(t *testing.T) {
	e := newEcho()
	var got string
	stub := &stubTimerService{
		stopFn: func(_ context.Context, _ *domain.User, id string) (*domain.Timer, error) {
			got = id
			return &domain.Timer{ID: id}, nil
		},
	}
	handler := NewTimerHandler(stub)

	c := e.NewContext(withToken(jsonRequest(http.MethodPost, "/api/timers/t1/stop", `{"id":"t2"}`)), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("t1")
	if err := authed(handler.Stop)(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got != "t1" {
		t.Fatalf("expected path id t1 to reach the service, got %q", got)
	}
}
