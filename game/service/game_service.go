package service

import (
	"context"
	"sync"
	"time"

	"github.com/wricardo/gobblets/game/clock"
	"github.com/wricardo/gobblets/game/engine"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	SelectCell(ctx context.Context, sessionID string, row, col int) (*CommandResult, error)
	SelectReserve(ctx context.Context, sessionID string, slot int) (*CommandResult, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	GetCellStack(ctx context.Context, sessionID string, row, col int) (*CellStackInfo, error)
	GetEventHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error

	// Results
	ListResults(ctx context.Context) ([]*MatchResult, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config *engine.GameConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string, config *engine.GameConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager handles game configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.GameConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.GameConfig
	SaveConfig(name string, config *engine.GameConfig) error
}

// ResultStore archives the outcome of finished matches
type ResultStore interface {
	SaveResult(result *MatchResult) error
	LoadResult(id string) (*MatchResult, error)
	ListResults() ([]*MatchResult, error)
}

// Notifier pushes session updates to connected clients
type Notifier interface {
	NotifyUpdate(sessionID string, snapshot engine.Snapshot, update engine.ClientUpdate)
	NotifyClock(sessionID string, snapshot engine.Snapshot)
}

// Session represents an active game session
type Session struct {
	ID        string
	ConfigID  string
	Engine    *engine.GameEngine
	Config    *engine.GameConfig
	CreatedAt time.Time

	mu           sync.Mutex
	lastAccessed time.Time
	events       []GameEvent
	clock        *clock.Scheduler
	cleanups     []func()
	closed       bool
}

// Touch records t as the last time the session was used
func (s *Session) Touch(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccessed = t
}

// LastAccessed returns the last time the session was used
func (s *Session) LastAccessed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessed
}

// AttachClock starts sched and stops it when the session closes
func (s *Session) AttachClock(ctx context.Context, sched *clock.Scheduler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	if err := sched.Start(ctx); err != nil {
		return err
	}
	s.clock = sched
	return nil
}

// Clock returns the session's scheduler, nil for untimed games
func (s *Session) Clock() *clock.Scheduler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock
}

// OnClose registers fn to run when the session closes
func (s *Session) OnClose(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanups = append(s.cleanups, fn)
}

// Close stops the clock and detaches every observer. It is idempotent and
// must not be called from an engine observer.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	sched := s.clock
	cleanups := s.cleanups
	s.cleanups = nil
	s.mu.Unlock()

	if sched != nil {
		sched.Stop()
	}
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

// Closed reports whether Close was called
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Events returns a copy of the session's event log
func (s *Session) Events() []GameEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]GameEvent(nil), s.events...)
}

func (s *Session) appendEvent(event GameEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event.Seq = len(s.events) + 1
	s.events = append(s.events, event)
}
