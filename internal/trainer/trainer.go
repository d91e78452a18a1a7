// Package trainer runs exercise attempts: it owns one classification session
// per attempt, enforces the level's time limit, scores the result and hands
// it to persistence.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/repcoach/internal/exercise"
	"github.com/meltforce/repcoach/internal/levels"
	"github.com/meltforce/repcoach/internal/metrics"
	"github.com/meltforce/repcoach/internal/models"
	"github.com/meltforce/repcoach/internal/pose"
)

var (
	ErrUnknownAttempt  = errors.New("unknown attempt")
	ErrAttemptFinished = errors.New("attempt already finished")
	ErrUnknownLevel    = errors.New("unknown level")
	ErrLevelLocked     = errors.New("level is locked")
)

// Store is the persistence the manager needs. Any storage.Store satisfies it.
type Store interface {
	InsertAttempt(ctx context.Context, row models.AttemptRow) error
	GetProgress(ctx context.Context, userID int) (models.UserProgress, error)
	SaveProgress(ctx context.Context, p models.UserProgress) error
}

// Config tunes the manager.
type Config struct {
	// ProcessEveryNthFrame classifies only every Nth delivered frame.
	ProcessEveryNthFrame int
	// Params overrides the default classifier parameters per exercise.
	Params map[exercise.Kind]exercise.Params
	// Retention is how long a finished attempt stays queryable.
	Retention time.Duration
}

const (
	defaultNthFrame  = 2
	defaultRetention = 10 * time.Minute
)

// Manager tracks live attempts. It is safe for concurrent use; frames for
// one attempt are serialized, different attempts proceed in parallel.
type Manager struct {
	levels  levels.Catalogue
	store   Store
	cfg     Config
	clock   exercise.Clock
	log     *slog.Logger
	metrics *metrics.Manager

	mu       sync.Mutex
	attempts map[uuid.UUID]*attempt

	// progressMu serializes progress read-modify-write across attempts.
	progressMu sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock injects the time source used for sessions and time limits.
func WithClock(c exercise.Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithStore persists finished attempts and progress. Without a store the
// manager scores attempts but records nothing and every level is open.
func WithStore(s Store) Option {
	return func(m *Manager) { m.store = s }
}

// WithMetrics records frames, reps and attempt outcomes.
func WithMetrics(mm *metrics.Manager) Option {
	return func(m *Manager) { m.metrics = mm }
}

// NewManager creates a manager for the given catalogue.
func NewManager(cat levels.Catalogue, cfg Config, log *slog.Logger, opts ...Option) *Manager {
	if cfg.ProcessEveryNthFrame <= 0 {
		cfg.ProcessEveryNthFrame = defaultNthFrame
	}
	if cfg.Retention <= 0 {
		cfg.Retention = defaultRetention
	}
	m := &Manager{
		levels:   cat,
		cfg:      cfg,
		clock:    time.Now,
		log:      log,
		attempts: make(map[uuid.UUID]*attempt),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Levels returns the catalogue the manager runs.
func (m *Manager) Levels() levels.Catalogue {
	return m.levels
}

type attempt struct {
	mu sync.Mutex

	id      uuid.UUID
	userID  int
	level   levels.Level
	session *exercise.Session
	started time.Time

	delivered   int
	frames      int
	observed    int
	longestHold time.Duration
	last        exercise.Result

	finished bool
	ended    time.Time
	outcome  levels.Outcome
}

// Snapshot is the externally visible state of an attempt.
type Snapshot struct {
	ID                 uuid.UUID       `json:"id"`
	LevelID            int             `json:"level_id"`
	Exercise           exercise.Kind   `json:"exercise"`
	State              exercise.State  `json:"state,omitempty"`
	Correct            bool            `json:"correct"`
	Observed           bool            `json:"observed"`
	Count              int             `json:"count"`
	HoldSeconds        float64         `json:"hold_seconds"`
	LongestHoldSeconds float64         `json:"longest_hold_seconds"`
	Progress           float64         `json:"progress"`
	RemainingSeconds   float64         `json:"remaining_seconds"`
	Frames             int             `json:"frames"`
	ObservedFrames     int             `json:"observed_frames"`
	Finished           bool            `json:"finished"`
	Outcome            *levels.Outcome `json:"outcome,omitempty"`
}

// Start opens a new attempt at levelID for userID.
func (m *Manager) Start(ctx context.Context, userID, levelID int) (Snapshot, error) {
	level, ok := m.levels.Find(levelID)
	if !ok {
		return Snapshot{}, fmt.Errorf("level %d: %w", levelID, ErrUnknownLevel)
	}
	if m.store != nil {
		p, err := m.store.GetProgress(ctx, userID)
		if err != nil {
			return Snapshot{}, fmt.Errorf("loading progress: %w", err)
		}
		if !m.levels.Unlocked(p, levelID) {
			return Snapshot{}, fmt.Errorf("level %d: %w", levelID, ErrLevelLocked)
		}
	}

	params := exercise.DefaultParams(level.Exercise).Override(m.cfg.Params[level.Exercise])
	a := &attempt{
		id:      uuid.New(),
		userID:  userID,
		level:   level,
		session: exercise.NewSession(level.Exercise, exercise.WithParams(params), exercise.WithClock(m.clock)),
		started: m.clock(),
	}

	m.mu.Lock()
	m.attempts[a.id] = a
	m.mu.Unlock()
	m.metrics.AttemptStarted()

	m.log.Info("attempt started", "attempt", a.id, "user_id", userID, "level", levelID, "exercise", level.Exercise)
	return a.snapshot(a.started), nil
}

// Process feeds one frame to the attempt. A nil frame means no body was
// detected. The attempt finishes on its own once the target is reached or
// the time limit has passed.
func (m *Manager) Process(ctx context.Context, id uuid.UUID, userID int, f *pose.Frame) (Snapshot, error) {
	a, err := m.lookup(id, userID)
	if err != nil {
		return Snapshot{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finished {
		return a.snapshot(a.ended), ErrAttemptFinished
	}
	now := m.clock()
	if a.expired(now) {
		err := m.finish(ctx, a, now, false)
		return a.snapshot(now), err
	}

	a.delivered++
	if (a.delivered-1)%m.cfg.ProcessEveryNthFrame != 0 {
		return a.snapshot(now), nil
	}

	r := a.session.Process(f)
	m.metrics.Frame(string(a.level.Exercise), r.Observed, r.Correct)
	a.frames++
	if r.Observed {
		a.observed++
	}
	a.longestHold = max(a.longestHold, r.Hold)
	a.last = r
	if r.Counted {
		m.metrics.Rep(string(a.level.Exercise))
		m.log.Debug("rep counted", "attempt", a.id, "count", r.Count, "state", r.State)
	}

	if a.level.Progress(a.session.Count(), a.longestHold) >= 100 {
		err := m.finish(ctx, a, now, false)
		return a.snapshot(now), err
	}
	return a.snapshot(now), nil
}

// Get returns the attempt's current state, finishing it first if its time
// limit has passed.
func (m *Manager) Get(ctx context.Context, id uuid.UUID, userID int) (Snapshot, error) {
	a, err := m.lookup(id, userID)
	if err != nil {
		return Snapshot{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	now := m.clock()
	if !a.finished && a.expired(now) {
		if err := m.finish(ctx, a, now, false); err != nil {
			return a.snapshot(now), err
		}
	}
	return a.snapshot(now), nil
}

// End finishes the attempt and scores it. A surrendered attempt earns no XP
// and does not advance progress.
func (m *Manager) End(ctx context.Context, id uuid.UUID, userID int, surrender bool) (Snapshot, error) {
	a, err := m.lookup(id, userID)
	if err != nil {
		return Snapshot{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.finished {
		return a.snapshot(a.ended), ErrAttemptFinished
	}
	now := m.clock()
	err = m.finish(ctx, a, now, surrender)
	return a.snapshot(now), err
}

// Discard drops the attempt without scoring or recording it.
func (m *Manager) Discard(id uuid.UUID, userID int) error {
	a, err := m.lookup(id, userID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.attempts, id)
	m.mu.Unlock()

	a.mu.Lock()
	if !a.finished {
		m.metrics.AttemptDiscarded()
	}
	a.mu.Unlock()
	m.log.Info("attempt discarded", "attempt", id)
	return nil
}

// Count returns the attempt's repetition count, or 0 for an unknown ID.
func (m *Manager) Count(id uuid.UUID) int {
	a := m.get(id)
	if a == nil {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.Count()
}

// HoldDuration returns the attempt's running hold, or 0 for an unknown ID.
func (m *Manager) HoldDuration(id uuid.UUID) time.Duration {
	a := m.get(id)
	if a == nil {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.finished {
		return 0
	}
	return a.session.HoldDuration()
}

// Active returns the number of attempts still running.
func (m *Manager) Active() int {
	m.mu.Lock()
	list := make([]*attempt, 0, len(m.attempts))
	for _, a := range m.attempts {
		list = append(list, a)
	}
	m.mu.Unlock()

	n := 0
	for _, a := range list {
		a.mu.Lock()
		if !a.finished {
			n++
		}
		a.mu.Unlock()
	}
	return n
}

// Sweep finishes attempts past their time limit and forgets finished ones
// older than the retention period.
func (m *Manager) Sweep(ctx context.Context) {
	now := m.clock()

	m.mu.Lock()
	list := make([]*attempt, 0, len(m.attempts))
	for _, a := range m.attempts {
		list = append(list, a)
	}
	m.mu.Unlock()

	for _, a := range list {
		a.mu.Lock()
		if !a.finished && a.expired(now) {
			if err := m.finish(ctx, a, now, false); err != nil {
				m.log.Error("finishing expired attempt", "attempt", a.id, "error", err)
			}
		}
		stale := a.finished && now.Sub(a.ended) > m.cfg.Retention
		a.mu.Unlock()

		if stale {
			m.mu.Lock()
			delete(m.attempts, a.id)
			m.mu.Unlock()
		}
	}
}

// Run sweeps every interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

func (m *Manager) get(id uuid.UUID) *attempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts[id]
}

func (m *Manager) lookup(id uuid.UUID, userID int) (*attempt, error) {
	a := m.get(id)
	if a == nil || a.userID != userID {
		return nil, fmt.Errorf("attempt %s: %w", id, ErrUnknownAttempt)
	}
	return a, nil
}

// finish scores a and records it. The caller holds a.mu.
func (m *Manager) finish(ctx context.Context, a *attempt, now time.Time, surrender bool) error {
	if a.finished {
		return nil
	}
	if limit := a.started.Add(a.level.Duration()); now.After(limit) {
		now = limit
	}
	a.longestHold = max(a.longestHold, a.session.HoldDurationAt(now))
	a.outcome = a.level.Score(a.session.Count(), a.longestHold, surrender)
	a.finished = true
	a.ended = now
	m.metrics.AttemptFinished(string(a.level.Exercise), a.outcome.Passed, surrender)

	m.log.Info("attempt finished",
		"attempt", a.id,
		"level", a.level.ID,
		"count", a.session.Count(),
		"score", a.outcome.Score,
		"passed", a.outcome.Passed,
		"surrendered", surrender,
	)

	if m.store == nil {
		return nil
	}
	row := models.AttemptRow{
		ID:          a.id,
		UserID:      a.userID,
		LevelID:     a.level.ID,
		Exercise:    string(a.level.Exercise),
		StartedAt:   a.started,
		EndedAt:     a.ended,
		Reps:        a.session.Count(),
		HoldSec:     a.longestHold.Seconds(),
		Frames:      a.frames,
		Observed:    a.observed,
		Score:       a.outcome.Score,
		Passed:      a.outcome.Passed,
		XP:          a.outcome.XP,
		Surrendered: surrender,
	}
	if err := m.store.InsertAttempt(ctx, row); err != nil {
		return fmt.Errorf("recording attempt: %w", err)
	}
	if surrender {
		return nil
	}

	return m.recordProgress(ctx, a.userID, a.level.ID, a.outcome)
}

func (m *Manager) recordProgress(ctx context.Context, userID, levelID int, o levels.Outcome) error {
	m.progressMu.Lock()
	defer m.progressMu.Unlock()

	p, err := m.store.GetProgress(ctx, userID)
	if err != nil {
		return fmt.Errorf("loading progress: %w", err)
	}
	p = m.levels.Record(p, levelID, o)
	if err := m.store.SaveProgress(ctx, p); err != nil {
		return fmt.Errorf("saving progress: %w", err)
	}
	return nil
}

func (a *attempt) expired(now time.Time) bool {
	return now.Sub(a.started) >= a.level.Duration()
}

// snapshot renders a. The caller holds a.mu.
func (a *attempt) snapshot(now time.Time) Snapshot {
	s := Snapshot{
		ID:                 a.id,
		LevelID:            a.level.ID,
		Exercise:           a.level.Exercise,
		State:              a.session.State(),
		Correct:            a.last.Correct,
		Observed:           a.last.Observed,
		Count:              a.session.Count(),
		LongestHoldSeconds: a.longestHold.Seconds(),
		Progress:           a.level.Progress(a.session.Count(), a.longestHold),
		Frames:             a.frames,
		ObservedFrames:     a.observed,
		Finished:           a.finished,
	}
	if a.finished {
		o := a.outcome
		s.Outcome = &o
		return s
	}
	s.HoldSeconds = a.session.HoldDuration().Seconds()
	if left := a.level.Duration() - now.Sub(a.started); left > 0 {
		s.RemainingSeconds = left.Seconds()
	}
	return s
}
