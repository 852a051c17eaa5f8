package engine

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTimedEngine(t *testing.T, limit string) *GameEngine {
	t.Helper()
	config := createTestConfig()
	config.TimeLimit = limit
	e, err := NewEngine(config)
	require.NoError(t, err)
	return e
}

func drainClock(p *Player) {
	for !p.timer.Tick() {
	}
}

func TestConservationUnderRandomPlay(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for game := 0; game < 50; game++ {
		e := newTestEngine(t)

		for step := 0; step < 400 && !e.IsGameOver(); step++ {
			var err error
			if rng.Intn(3) == 0 {
				_, err = e.SelectReserveSlot(rng.Intn(ReserveStacks))
			} else {
				_, err = e.SelectBoardCell(rng.Intn(BoardSize), rng.Intn(BoardSize))
			}
			require.NoError(t, err)

			s := e.Snapshot()
			for _, p := range s.Players {
				if p.PiecesInReserve+p.PiecesOnBoard != PiecesPerPlayer {
					t.Fatalf("game %d step %d: %s holds %d reserve + %d board pieces",
						game, step, p.ID, p.PiecesInReserve, p.PiecesOnBoard)
				}
			}

			switch s.Phase {
			case PhaseNoSelection, PhaseGameOver:
				assert.Nil(t, s.Selection)
			case PhaseReserveSelected, PhaseBoardSelected:
				assert.NotNil(t, s.Selection)
			default:
				t.Fatalf("unexpected phase %q", s.Phase)
			}
		}

		if e.IsGameOver() {
			frozen := e.Snapshot()
			_, err := e.SelectBoardCell(rng.Intn(BoardSize), rng.Intn(BoardSize))
			assert.ErrorIs(t, err, ErrGameOver)
			_, err = e.SelectReserveSlot(rng.Intn(ReserveStacks))
			assert.ErrorIs(t, err, ErrGameOver)
			assert.Equal(t, frozen.Board, e.Snapshot().Board)
		}
	}
}

func TestEachCommandPublishesOnce(t *testing.T) {
	e := newTestEngine(t)
	rec := &recorder{}
	e.Subscribe(rec)

	_, _ = e.SelectBoardCell(0, 0)
	_, _ = e.SelectReserveSlot(0)
	_, _ = e.SelectReserveSlot(0)
	_, _ = e.SelectReserveSlot(0)
	_, _ = e.SelectBoardCell(1, 1)

	require.Len(t, rec.updates, 5)
	assert.Equal(t, []string{
		MsgInvalidSelection,
		MsgSelectedStackPiece,
		MsgDeselectedStackPiece,
		MsgSelectedStackPiece,
		MsgPlayedStackPiece,
	}, []string{
		rec.updates[0].Message,
		rec.updates[1].Message,
		rec.updates[2].Message,
		rec.updates[3].Message,
		rec.updates[4].Message,
	})
	assert.True(t, rec.updates[4].Rebuild)
}

func TestSignalsDuringPublish(t *testing.T) {
	e := newTestEngine(t)

	var commandInFlight, swapInFlight bool
	var active PlayerID
	e.Subscribe(ObserverFunc(func(s Snapshot, u ClientUpdate) {
		commandInFlight = e.CommandInFlight()
		swapInFlight = e.TurnSwapInFlight()
		active = e.ActivePlayer()
	}))

	_, _ = e.SelectReserveSlot(0)
	_, _ = e.SelectBoardCell(0, 0)

	assert.True(t, commandInFlight, "command stays in flight until publish completes")
	assert.False(t, swapInFlight, "rotation is complete before observers run")
	assert.Equal(t, SecondPlayerID, active, "observers may query the engine")

	assert.False(t, e.CommandInFlight())
	assert.NoError(t, e.WaitCommandIdle(context.Background()))
	assert.NoError(t, e.WaitTurnSwap(context.Background()))
}

func TestWaitCommandIdleHonoursContext(t *testing.T) {
	e := newTestEngine(t)
	e.command.enter()
	defer e.command.leave()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, e.WaitCommandIdle(ctx), context.DeadlineExceeded)
}

func TestTickActive(t *testing.T) {
	t.Run("untimed", func(t *testing.T) {
		e := newTestEngine(t)
		id, expired := e.TickActive()
		assert.Equal(t, FirstPlayerID, id)
		assert.False(t, expired)
		clock, _ := e.RemainingTime(FirstPlayerID)
		assert.Equal(t, "", clock)
	})

	t.Run("ticks only the active player", func(t *testing.T) {
		e := newTimedEngine(t, "0:03")
		assert.True(t, e.Timed())

		id, expired := e.TickActive()
		assert.Equal(t, FirstPlayerID, id)
		assert.False(t, expired)

		a, _ := e.RemainingTime(FirstPlayerID)
		b, _ := e.RemainingTime(SecondPlayerID)
		assert.Equal(t, "00:02", a)
		assert.Equal(t, "00:03", b)
		assert.Equal(t, "00:02 | 00:03", e.Snapshot().Clock())

		_, _ = e.SelectReserveSlot(0)
		_, _ = e.SelectBoardCell(0, 0)

		id, _ = e.TickActive()
		assert.Equal(t, SecondPlayerID, id)
		b, _ = e.RemainingTime(SecondPlayerID)
		assert.Equal(t, "00:02", b)
		assert.Equal(t, "00:02 | 00:02", e.Snapshot().Clock())
	})

	t.Run("reports expiry", func(t *testing.T) {
		e := newTimedEngine(t, "0:01")
		_, expired := e.TickActive()
		assert.True(t, expired)

		remaining, err := e.Remaining(FirstPlayerID)
		require.NoError(t, err)
		assert.Zero(t, remaining)
		assert.True(t, e.Snapshot().Players[0].OutOfTime)
	})

	t.Run("no ticks after game over", func(t *testing.T) {
		e := newTimedEngine(t, "0:05")
		_, _ = e.OnTimeout(SecondPlayerID)

		id, expired := e.TickActive()
		assert.Equal(t, PlayerID(""), id)
		assert.False(t, expired)
		a, _ := e.RemainingTime(FirstPlayerID)
		assert.Equal(t, "00:05", a)
	})
}

// A clock that expires while a placement is publishing is resolved only after
// the publish completes.
func TestTimeoutDeferredWhileCommandInFlight(t *testing.T) {
	e := newTimedEngine(t, "1:00")
	drainClock(e.players[0])

	result := make(chan error, 1)
	var once sync.Once
	e.Subscribe(ObserverFunc(func(s Snapshot, u ClientUpdate) {
		if u.Message != MsgSelectedStackPiece {
			return
		}
		once.Do(func() {
			go func() {
				if err := e.WaitCommandIdle(context.Background()); err != nil {
					result <- err
					return
				}
				_, err := e.OnTimeout(FirstPlayerID)
				result <- err
			}()

			select {
			case <-result:
				t.Error("timeout resolved while the command was still publishing")
			case <-time.After(30 * time.Millisecond):
			}
			assert.False(t, e.IsGameOver())
		})
	}))

	_, err := e.SelectReserveSlot(0)
	require.NoError(t, err)

	select {
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout never resolved")
	}

	winner, _ := e.Winner()
	assert.Equal(t, SecondPlayerID, winner)
	assert.Equal(t, WinByTimeout, e.WinReason())
}

// A line completed by the in-flight placement beats a clock that expired
// during it.
func TestBoardWinBeatsPendingTimeout(t *testing.T) {
	e := newTimedEngine(t, "1:00")
	put(t, e, FirstPlayerID, 2, 0, 0)
	put(t, e, FirstPlayerID, 2, 0, 1)
	put(t, e, FirstPlayerID, 2, 0, 2)

	result := make(chan error, 1)
	var once sync.Once
	e.Subscribe(ObserverFunc(func(s Snapshot, u ClientUpdate) {
		if u.Message != MsgPlayedStackPiece {
			return
		}
		once.Do(func() {
			drainClock(e.players[0])
			go func() {
				_ = e.WaitCommandIdle(context.Background())
				_, err := e.OnTimeout(FirstPlayerID)
				result <- err
			}()
		})
	}))

	_, _ = e.SelectReserveSlot(0)
	_, err := e.SelectBoardCell(0, 3)
	require.NoError(t, err)

	select {
	case err := <-result:
		assert.ErrorIs(t, err, ErrGameOver)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout attempt never returned")
	}

	winner, _ := e.Winner()
	assert.Equal(t, FirstPlayerID, winner)
	assert.Equal(t, WinByLine, e.WinReason())
}

func TestConcurrentQueriesDuringPlay(t *testing.T) {
	e := newTimedEngine(t, "10:00")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				_ = e.Snapshot()
				_, _ = e.CellStack(1, 1)
				_ = e.Phase()
				e.TickActive()
			}
		}()
	}

	rng := rand.New(rand.NewSource(7))
	for step := 0; step < 300 && !e.IsGameOver(); step++ {
		if rng.Intn(3) == 0 {
			_, _ = e.SelectReserveSlot(rng.Intn(ReserveStacks))
		} else {
			_, _ = e.SelectBoardCell(rng.Intn(BoardSize), rng.Intn(BoardSize))
		}
	}

	cancel()
	wg.Wait()
}
