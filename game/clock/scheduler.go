package clock

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/gobblets/game/engine"
)

// DefaultInterval is the real-time cadence between ticks
const DefaultInterval = time.Second

var ErrAlreadyRunning = errors.New("scheduler already running")

// Engine is the part of the game engine the scheduler drives
type Engine interface {
	TickActive() (engine.PlayerID, bool)
	WaitTurnSwap(ctx context.Context) error
	WaitCommandIdle(ctx context.Context) error
	OnTimeout(id engine.PlayerID) (engine.ClientUpdate, error)
	IsGameOver() bool
	Snapshot() engine.Snapshot
}

// TickHook is called after every tick with a fresh snapshot
type TickHook func(snapshot engine.Snapshot)

// Option configures a Scheduler
type Option func(*Scheduler)

// WithInterval sets the real-time cadence between ticks
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithLogger sets the scheduler logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTickHook registers a function called after each tick
func WithTickHook(hook TickHook) Option {
	return func(s *Scheduler) {
		s.hook = hook
	}
}

// Scheduler ticks the active player's clock at a fixed cadence and resolves
// the timeout when it expires. It waits for any turn swap to finish before
// ticking, and for any in-flight command to finish publishing before
// resolving a timeout. The loop ends on its own once the game is over.
type Scheduler struct {
	engine   Engine
	interval time.Duration
	logger   *zap.Logger
	hook     TickHook

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewScheduler creates a stopped scheduler for e
func NewScheduler(e Engine, opts ...Option) *Scheduler {
	s := &Scheduler{
		engine:   e,
		interval: DefaultInterval,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	closed := make(chan struct{})
	close(closed)
	s.done = closed
	return s
}

// Start launches the tick loop. Cancelling ctx stops it like Stop does.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(ctx, s.done)
	return nil
}

// Stop cancels the loop and waits for it to exit. After Stop returns no
// further tick or timeout is delivered. Stop must not be called from an
// engine observer, since the loop may be waiting on that observer's command.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	<-done
}

// Running reports whether the loop is active
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Done returns a channel closed when the loop exits
func (s *Scheduler) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer func() {
		ticker.Stop()
		s.mu.Lock()
		s.running = false
		s.cancel()
		s.cancel = nil
		s.mu.Unlock()
		close(done)
	}()

	s.logger.Debug("clock started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("clock stopped")
			return
		case <-ticker.C:
		}

		if s.engine.IsGameOver() {
			s.logger.Debug("clock finished, game over")
			return
		}

		if err := s.engine.WaitTurnSwap(ctx); err != nil {
			return
		}
		if ctx.Err() != nil {
			return
		}

		player, expired := s.engine.TickActive()
		if player == "" {
			// game ended between the check and the tick
			return
		}
		if s.hook != nil {
			s.hook(s.engine.Snapshot())
		}
		if !expired {
			continue
		}

		s.logger.Info("clock expired", zap.String("player", string(player)))
		if err := s.engine.WaitCommandIdle(ctx); err != nil {
			return
		}
		if ctx.Err() != nil {
			return
		}

		if _, err := s.engine.OnTimeout(player); err != nil {
			if errors.Is(err, engine.ErrGameOver) {
				s.logger.Info("timeout ignored, game already decided", zap.String("player", string(player)))
			} else {
				s.logger.Error("timeout failed", zap.String("player", string(player)), zap.Error(err))
			}
		}
		return
	}
}
