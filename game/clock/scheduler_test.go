package clock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/wricardo/gobblets/game/engine"
)

const testInterval = 5 * time.Millisecond

func newTimedEngine(t *testing.T, limit string) *engine.GameEngine {
	t.Helper()
	e, err := engine.NewEngine(&engine.GameConfig{
		Name:        "clock-test",
		Description: "Clock tests",
		TimeLimit:   limit,
	})
	require.NoError(t, err)
	return e
}

func TestSchedulerTicksActivePlayer(t *testing.T) {
	e := newTimedEngine(t, "10:00")

	var ticks atomic.Int32
	s := NewScheduler(e,
		WithInterval(testInterval),
		WithLogger(zaptest.NewLogger(t)),
		WithTickHook(func(engine.Snapshot) { ticks.Add(1) }),
	)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, time.Millisecond)
	s.Stop()

	a, _ := e.Remaining(engine.FirstPlayerID)
	b, _ := e.Remaining(engine.SecondPlayerID)
	assert.Less(t, a, 10*time.Minute)
	assert.Equal(t, 10*time.Minute, b, "waiting player is never ticked")
}

func TestSchedulerResolvesTimeout(t *testing.T) {
	e := newTimedEngine(t, "0:02")

	var updates []engine.ClientUpdate
	var mu sync.Mutex
	e.Subscribe(engine.ObserverFunc(func(s engine.Snapshot, u engine.ClientUpdate) {
		mu.Lock()
		updates = append(updates, u)
		mu.Unlock()
	}))

	s := NewScheduler(e, WithInterval(testInterval))
	require.NoError(t, s.Start(context.Background()))

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not finish after the clock expired")
	}

	winner, ok := e.Winner()
	require.True(t, ok)
	assert.Equal(t, engine.SecondPlayerID, winner)
	assert.Equal(t, engine.WinByTimeout, e.WinReason())
	assert.False(t, s.Running())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, updates, 1)
	assert.Equal(t, engine.MsgTimeout, updates[0].Message)
}

// The clock expires while a command is publishing; the timeout waits for it.
func TestSchedulerDefersTimeoutUntilCommandCompletes(t *testing.T) {
	e := newTimedEngine(t, "0:01")

	release := make(chan struct{})
	entered := make(chan struct{})
	var once sync.Once
	e.Subscribe(engine.ObserverFunc(func(s engine.Snapshot, u engine.ClientUpdate) {
		if u.Message != engine.MsgSelectedStackPiece {
			return
		}
		once.Do(func() { close(entered) })
		<-release
	}))

	expired := make(chan struct{})
	var expiredOnce sync.Once
	s := NewScheduler(e,
		WithInterval(testInterval),
		WithTickHook(func(snap engine.Snapshot) {
			if snap.Players[0].OutOfTime {
				expiredOnce.Do(func() { close(expired) })
			}
		}),
	)

	commandDone := make(chan struct{})
	go func() {
		defer close(commandDone)
		_, _ = e.SelectReserveSlot(0)
	}()
	<-entered

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		t.Fatal("clock never expired")
	}

	assert.Never(t, e.IsGameOver, 50*time.Millisecond, 5*time.Millisecond,
		"timeout must wait for the in-flight command")
	assert.True(t, e.CommandInFlight())

	close(release)
	<-commandDone

	require.Eventually(t, e.IsGameOver, 2*time.Second, time.Millisecond)
	winner, _ := e.Winner()
	assert.Equal(t, engine.SecondPlayerID, winner)
	assert.Equal(t, engine.WinByTimeout, e.WinReason())
}

func TestSchedulerStopsWhenGameEnds(t *testing.T) {
	e := newTimedEngine(t, "5:00")
	s := NewScheduler(e, WithInterval(testInterval))
	require.NoError(t, s.Start(context.Background()))

	_, err := e.OnTimeout(engine.SecondPlayerID)
	require.NoError(t, err)

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler kept running after game over")
	}

	remaining, _ := e.Remaining(engine.FirstPlayerID)
	before := remaining
	time.Sleep(5 * testInterval)
	remaining, _ = e.Remaining(engine.FirstPlayerID)
	assert.Equal(t, before, remaining)
}

func TestSchedulerStop(t *testing.T) {
	e := newTimedEngine(t, "5:00")
	s := NewScheduler(e, WithInterval(testInterval))

	// Stop on a never-started scheduler returns immediately
	s.Stop()

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.Running())
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyRunning)

	s.Stop()
	assert.False(t, s.Running())

	remaining, _ := e.Remaining(engine.FirstPlayerID)
	time.Sleep(5 * testInterval)
	after, _ := e.Remaining(engine.FirstPlayerID)
	assert.Equal(t, remaining, after, "no ticks after Stop")

	// A stopped scheduler can be started again
	require.NoError(t, s.Start(context.Background()))
	s.Stop()
}

func TestSchedulerContextCancel(t *testing.T) {
	e := newTimedEngine(t, "5:00")
	s := NewScheduler(e, WithInterval(testInterval))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler ignored context cancellation")
	}
	assert.False(t, e.IsGameOver())
}

// fakeEngine records the scheduler's calls
type fakeEngine struct {
	mu        sync.Mutex
	calls     []string
	expireAt  int
	ticks     int
	timeoutFn func(engine.PlayerID) (engine.ClientUpdate, error)
}

func (f *fakeEngine) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeEngine) TickActive() (engine.PlayerID, bool) {
	f.record("tick")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticks++
	return engine.FirstPlayerID, f.ticks >= f.expireAt
}

func (f *fakeEngine) WaitTurnSwap(ctx context.Context) error {
	f.record("wait-swap")
	return nil
}

func (f *fakeEngine) WaitCommandIdle(ctx context.Context) error {
	f.record("wait-command")
	return nil
}

func (f *fakeEngine) OnTimeout(id engine.PlayerID) (engine.ClientUpdate, error) {
	f.record("timeout:" + string(id))
	if f.timeoutFn != nil {
		return f.timeoutFn(id)
	}
	return engine.ClientUpdate{Message: engine.MsgTimeout}, nil
}

func (f *fakeEngine) IsGameOver() bool { return false }

func (f *fakeEngine) Snapshot() engine.Snapshot { return engine.Snapshot{} }

func (f *fakeEngine) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func TestSchedulerCallOrder(t *testing.T) {
	f := &fakeEngine{expireAt: 2}
	s := NewScheduler(f, WithInterval(testInterval))
	require.NoError(t, s.Start(context.Background()))
	<-s.Done()

	assert.Equal(t, []string{
		"wait-swap", "tick",
		"wait-swap", "tick",
		"wait-command", "timeout:player1",
	}, f.Calls())
}

func TestSchedulerTimeoutAfterBoardWin(t *testing.T) {
	f := &fakeEngine{
		expireAt: 1,
		timeoutFn: func(engine.PlayerID) (engine.ClientUpdate, error) {
			return engine.ClientUpdate{}, engine.ErrGameOver
		},
	}
	s := NewScheduler(f, WithInterval(testInterval), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, s.Start(context.Background()))

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not exit after a rejected timeout")
	}
	assert.Contains(t, f.Calls(), "timeout:player1")
}
