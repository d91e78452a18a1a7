package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/meltforce/repcoach/internal/exercise"
	"github.com/meltforce/repcoach/internal/levels"
	"github.com/meltforce/repcoach/internal/metrics"
	"github.com/meltforce/repcoach/internal/models"
	"github.com/meltforce/repcoach/internal/pose"
	"github.com/meltforce/repcoach/internal/pose/posetest"
	"github.com/meltforce/repcoach/internal/storage"
	"github.com/meltforce/repcoach/internal/trainer"
)

// TestHandleMeDefault verifies the /api/v1/me endpoint returns the dev user
// identity when no Tailscale middleware is active.
func TestHandleMeDefault(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	ctx := context.WithValue(req.Context(), userInfoKey, UserInfo{Login: "local", DisplayName: "Local Dev User"})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	s.handleMe(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var info UserInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if info.Login != "local" {
		t.Errorf("login = %q, want %q", info.Login, "local")
	}
	if info.DisplayName != "Local Dev User" {
		t.Errorf("display_name = %q, want %q", info.DisplayName, "Local Dev User")
	}
}

// TestHandleMeTailscaleUser verifies the /api/v1/me endpoint returns the
// Tailscale user identity when set in context.
func TestHandleMeTailscaleUser(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	ctx := context.WithValue(req.Context(), userInfoKey, UserInfo{Login: "alice@example.com", DisplayName: "Alice"})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	s.handleMe(rec, req)

	var info UserInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if info.Login != "alice@example.com" {
		t.Errorf("login = %q, want %q", info.Login, "alice@example.com")
	}
	if info.DisplayName != "Alice" {
		t.Errorf("display_name = %q, want %q", info.DisplayName, "Alice")
	}
}

const testAPIKey = "test-key"

// steppingClock advances by a fixed step on every read, so consecutive
// frames are always further apart than the debounce delay.
type steppingClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(c.step)
	return c.t
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "server.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(store.Close)
	if id, err := store.GetOrCreateUser(context.Background(), "local", "Local Dev User"); err != nil || id != 1 {
		t.Fatalf("seeding dev user: id=%d err=%v", id, err)
	}

	cat := levels.Catalogue{
		{ID: 1, Name: "Jacks", Exercise: exercise.JumpingJack, DurationSec: 600, TargetReps: 1, XPReward: 100, RequiredScore: 70},
		{ID: 2, Name: "Squat", Exercise: exercise.Squat, DurationSec: 600, TargetReps: 5, XPReward: 150, RequiredScore: 75},
	}
	clock := &steppingClock{t: time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC), step: 200 * time.Millisecond}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	mgr := trainer.NewManager(cat, trainer.Config{ProcessEveryNthFrame: 1}, log,
		trainer.WithStore(store), trainer.WithClock(clock.Now))
	return New(store, mgr, testAPIKey, log)
}

func do(t *testing.T, s *Server, method, path string, body any, withKey bool) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if withKey {
		req.Header.Set("X-API-Key", testAPIKey)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return v
}

func frameBody(f *pose.Frame) map[string]any {
	if f == nil {
		return map[string]any{"landmarks": nil}
	}
	return map[string]any{"landmarks": f.Landmarks}
}

// TestAttemptLifecycle drives an attempt over HTTP from start to automatic
// completion and checks the recorded progress and history.
func TestAttemptLifecycle(t *testing.T) {
	s := newTestServer(t)

	if rec := do(t, s, http.MethodPost, "/api/v1/attempts", map[string]int{"level_id": 1}, false); rec.Code != http.StatusUnauthorized {
		t.Fatalf("start without key: status = %d, want 401", rec.Code)
	}

	rec := do(t, s, http.MethodPost, "/api/v1/attempts", map[string]int{"level_id": 1}, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: status = %d body=%s", rec.Code, rec.Body)
	}
	snap := decode[trainer.Snapshot](t, rec)
	framesPath := "/api/v1/attempts/" + snap.ID.String() + "/frames"

	rec = do(t, s, http.MethodPost, framesPath, frameBody(nil), true)
	if rec.Code != http.StatusOK {
		t.Fatalf("null frame: status = %d body=%s", rec.Code, rec.Body)
	}
	if got := decode[trainer.Snapshot](t, rec); got.Observed || got.Correct || got.Count != 0 {
		t.Errorf("null frame snapshot = %+v", got)
	}

	var last trainer.Snapshot
	for _, f := range []*pose.Frame{
		posetest.JackClosed(), posetest.JackClosed(), posetest.JackClosed(),
		posetest.JackOpen(), posetest.JackOpen(),
	} {
		rec = do(t, s, http.MethodPost, framesPath, frameBody(f), true)
		if rec.Code != http.StatusOK {
			t.Fatalf("frame: status = %d body=%s", rec.Code, rec.Body)
		}
		last = decode[trainer.Snapshot](t, rec)
	}
	if !last.Finished || last.Count != 1 || last.Outcome == nil || last.Outcome.Score != 100 {
		t.Fatalf("final snapshot = %+v", last)
	}

	if rec := do(t, s, http.MethodPost, framesPath, frameBody(posetest.JackOpen()), true); rec.Code != http.StatusConflict {
		t.Errorf("frame after finish: status = %d, want 409", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/progress", nil, false)
	report := decode[models.ProgressReport](t, rec)
	if report.Scores[1] != 100 || report.CurrentLevel != 2 || report.Summary.CompletedLevels != 1 || report.TotalXP != 100 {
		t.Errorf("progress = %+v", report)
	}

	rec = do(t, s, http.MethodGet, "/api/v1/attempts?limit=10", nil, false)
	history := decode[[]models.AttemptRow](t, rec)
	if len(history) != 1 || history[0].ID != snap.ID || history[0].Reps != 1 {
		t.Errorf("history = %+v", history)
	}

	// Once discarded from memory the stored record is served instead.
	if rec := do(t, s, http.MethodDelete, "/api/v1/attempts/"+snap.ID.String(), nil, true); rec.Code != http.StatusNoContent {
		t.Fatalf("discard: status = %d", rec.Code)
	}
	rec = do(t, s, http.MethodGet, "/api/v1/attempts/"+snap.ID.String(), nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("stored attempt: status = %d", rec.Code)
	}
	if row := decode[models.AttemptRow](t, rec); row.Score != 100 || !row.Passed {
		t.Errorf("stored attempt = %+v", row)
	}
}

// TestSurrenderOverHTTP verifies the end endpoint scores a surrender with no
// XP and leaves the path locked.
func TestSurrenderOverHTTP(t *testing.T) {
	s := newTestServer(t)
	snap := decode[trainer.Snapshot](t, do(t, s, http.MethodPost, "/api/v1/attempts", map[string]int{"level_id": 1}, true))

	rec := do(t, s, http.MethodPost, "/api/v1/attempts/"+snap.ID.String()+"/end", map[string]bool{"surrender": true}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("end: status = %d body=%s", rec.Code, rec.Body)
	}
	got := decode[trainer.Snapshot](t, rec)
	if !got.Finished || got.Outcome == nil || !got.Outcome.Surrendered || got.Outcome.XP != 0 {
		t.Errorf("surrender snapshot = %+v", got)
	}

	if rec := do(t, s, http.MethodPost, "/api/v1/attempts", map[string]int{"level_id": 2}, true); rec.Code != http.StatusForbidden {
		t.Errorf("locked level: status = %d, want 403", rec.Code)
	}
}

// TestResetProgressOverHTTP verifies reset returns a fresh path.
func TestResetProgressOverHTTP(t *testing.T) {
	s := newTestServer(t)
	if err := s.store.SaveProgress(context.Background(), models.UserProgress{
		UserID: 1, CurrentLevel: 2, UnlockedLevels: []int{1, 2}, Scores: map[int]int{1: 90},
	}); err != nil {
		t.Fatal(err)
	}

	rec := do(t, s, http.MethodPost, "/api/v1/progress/reset", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset: status = %d", rec.Code)
	}
	report := decode[models.ProgressReport](t, rec)
	if report.CurrentLevel != 1 || len(report.Scores) != 0 || len(report.UnlockedLevels) != 1 {
		t.Errorf("report after reset = %+v", report)
	}
}

// TestAttemptErrors verifies malformed IDs, unknown attempts and unknown
// levels map to the right status codes.
func TestAttemptErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"bad id", http.MethodGet, "/api/v1/attempts/not-a-uuid", nil, http.StatusBadRequest},
		{"unknown attempt", http.MethodGet, "/api/v1/attempts/7f6f1d3e-93a4-4c49-9f1e-3a2e4f4a0b11", nil, http.StatusNotFound},
		{"unknown frame target", http.MethodPost, "/api/v1/attempts/7f6f1d3e-93a4-4c49-9f1e-3a2e4f4a0b11/frames", frameBody(nil), http.StatusNotFound},
		{"unknown level", http.MethodPost, "/api/v1/attempts", map[string]int{"level_id": 42}, http.StatusNotFound},
		{"bad json", http.MethodPost, "/api/v1/attempts", "nope", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(t, s, tt.method, tt.path, tt.body, true); rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

// TestLevelsEndpoint verifies the catalogue is served.
func TestLevelsEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/v1/levels", nil, false)
	got := decode[levels.Catalogue](t, rec)
	if len(got) != 2 || got[0].Exercise != exercise.JumpingJack {
		t.Errorf("levels = %+v", got)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing from API response")
	}
}

// TestMetricsEndpoint verifies /metrics is absent until metrics are set and
// then reports served requests.
func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	if rec := do(t, s, http.MethodGet, "/metrics", nil, false); rec.Code != http.StatusNotFound {
		t.Fatalf("metrics without manager: status = %d, want 404", rec.Code)
	}

	s.SetMetrics(metrics.NewTestManager())
	do(t, s, http.MethodGet, "/api/v1/levels", nil, false)
	rec := do(t, s, http.MethodGet, "/metrics", nil, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: status = %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, `repcoach_http_requests_total{method="GET",status="200"} 1`) {
		t.Errorf("exposition missing request counter:\n%s", body)
	}
}
