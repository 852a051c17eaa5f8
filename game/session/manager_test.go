package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/wricardo/gobblets/game/engine"
	"github.com/wricardo/gobblets/game/service"
)

func untimed() *engine.GameConfig {
	return &engine.GameConfig{
		Name:         "classic",
		Description:  "Untimed game",
		TimeLimit:    engine.NoTimeLimit,
		StackPreview: true,
	}
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(WithLogger(zaptest.NewLogger(t)))
	t.Cleanup(m.CloseAll)
	return m
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		config  *engine.GameConfig
		wantErr error
	}{
		{name: "explicit id", id: "table-1", config: untimed()},
		{name: "generated id", id: "", config: untimed()},
		{name: "leading space", id: " table", config: untimed(), wantErr: ErrInvalidSessionID},
		{name: "slash", id: "a/b", config: untimed(), wantErr: ErrInvalidSessionID},
		{name: "backslash", id: `a\b`, config: untimed(), wantErr: ErrInvalidSessionID},
		{name: "bad time limit", id: "broken", config: &engine.GameConfig{Name: "x", TimeLimit: "soon"}, wantErr: engine.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t)

			s, err := m.Create(tt.id, tt.config)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, m.Count())
				return
			}

			require.NoError(t, err)
			if tt.id == "" {
				assert.Len(t, s.ID, 4)
			} else {
				assert.Equal(t, tt.id, s.ID)
			}
			require.NotNil(t, s.Engine)
			assert.Equal(t, engine.FirstPlayerID, s.Engine.ActivePlayer())
			assert.Equal(t, s.CreatedAt, s.LastAccessed())
		})
	}
}

func TestCreate_DuplicateIgnoresCase(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Create("Blitz-Table", untimed())
	require.NoError(t, err)

	_, err = m.Create("blitz-table", untimed())
	assert.ErrorIs(t, err, ErrSessionAlreadyExists)
	assert.Equal(t, 1, m.Count())
}

func TestCreate_GeneratedIDsAreUnique(t *testing.T) {
	m := newTestManager(t)

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		s, err := m.Create("", untimed())
		require.NoError(t, err)
		require.False(t, seen[s.ID], "duplicate id %s", s.ID)
		seen[s.ID] = true
	}
	assert.Equal(t, 200, m.Count())
}

func TestCreate_CopiesConfig(t *testing.T) {
	m := newTestManager(t)
	config := &engine.GameConfig{Name: "blitz", TimeLimit: "1:00"}

	s, err := m.Create("timed", config)
	require.NoError(t, err)

	config.TimeLimit = "9:00"
	assert.Equal(t, "1:00", s.Config.TimeLimit)
	assert.True(t, s.Engine.Timed())

	remaining, err := s.Engine.Remaining(engine.FirstPlayerID)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, remaining)
}

func TestGet(t *testing.T) {
	m := newTestManager(t)
	created, err := m.Create("Rapid-7", untimed())
	require.NoError(t, err)

	for _, id := range []string{"Rapid-7", "rapid-7", "RAPID-7"} {
		s, err := m.Get(id)
		require.NoError(t, err, id)
		assert.Same(t, created, s)
	}

	_, err = m.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, err, service.ErrSessionNotFound)
}

func TestGetOrCreate(t *testing.T) {
	m := newTestManager(t)

	first, err := m.GetOrCreate("lobby", untimed())
	require.NoError(t, err)

	_, err = first.Engine.SelectReserveSlot(0)
	require.NoError(t, err)

	again, err := m.GetOrCreate("LOBBY", untimed())
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, engine.PhaseReserveSelected, again.Engine.Phase())
}

func TestList(t *testing.T) {
	m := newTestManager(t)
	assert.Empty(t, m.List())

	for _, id := range []string{"t1", "t2", "t3"} {
		_, err := m.Create(id, untimed())
		require.NoError(t, err)
	}

	ids := make([]string, 0, 3)
	for _, s := range m.List() {
		ids = append(ids, s.ID)
	}
	assert.ElementsMatch(t, []string{"t1", "t2", "t3"}, ids)
}

func TestDelete(t *testing.T) {
	m := newTestManager(t)

	s, err := m.Create("Finished", untimed())
	require.NoError(t, err)
	closed := false
	s.OnClose(func() { closed = true })

	require.NoError(t, m.Delete("finished"))
	assert.True(t, closed)
	assert.True(t, s.Closed())

	_, err = m.Get("Finished")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Delete("Finished"), ErrSessionNotFound)
}

func TestUpdateLastAccessed(t *testing.T) {
	m := newTestManager(t)

	s, err := m.Create("touch", untimed())
	require.NoError(t, err)
	before := time.Now().Add(-time.Minute)
	s.Touch(before)

	require.NoError(t, m.UpdateLastAccessed("TOUCH"))
	assert.True(t, s.LastAccessed().After(before))

	assert.ErrorIs(t, m.UpdateLastAccessed("missing"), ErrSessionNotFound)
}

func TestCleanupExpiredSessions(t *testing.T) {
	m := newTestManager(t)

	stale, err := m.Create("stale", untimed())
	require.NoError(t, err)
	fresh, err := m.Create("fresh", untimed())
	require.NoError(t, err)
	stale.Touch(time.Now().Add(-2 * time.Hour))

	assert.Equal(t, 1, m.CleanupExpiredSessions(time.Hour))
	assert.True(t, stale.Closed())
	assert.False(t, fresh.Closed())

	_, err = m.Get("stale")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Get("fresh")
	assert.NoError(t, err)

	assert.Zero(t, m.CleanupExpiredSessions(time.Hour))
}

func TestRunJanitor(t *testing.T) {
	m := newTestManager(t)

	stale, err := m.Create("stale", untimed())
	require.NoError(t, err)
	stale.Touch(time.Now().Add(-time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.RunJanitor(ctx, 5*time.Millisecond, time.Minute) }()

	require.Eventually(t, func() bool { return m.Count() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
	assert.True(t, stale.Closed())
}

func TestCloseAll(t *testing.T) {
	m := NewManager()

	a, err := m.Create("a", untimed())
	require.NoError(t, err)
	b, err := m.Create("b", &engine.GameConfig{Name: "blitz", TimeLimit: "1:00"})
	require.NoError(t, err)

	m.CloseAll()

	assert.Zero(t, m.Count())
	assert.True(t, a.Closed())
	assert.True(t, b.Closed())
}

func TestSessionsAreIndependent(t *testing.T) {
	m := newTestManager(t)

	one, err := m.Create("one", untimed())
	require.NoError(t, err)
	two, err := m.Create("two", untimed())
	require.NoError(t, err)

	_, err = one.Engine.SelectReserveSlot(0)
	require.NoError(t, err)
	_, err = one.Engine.SelectBoardCell(0, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, one.Engine.MoveCount())
	assert.Equal(t, engine.SecondPlayerID, one.Engine.ActivePlayer())

	assert.Zero(t, two.Engine.MoveCount())
	assert.Equal(t, engine.FirstPlayerID, two.Engine.ActivePlayer())
	_, ok, err := two.Engine.TopPiece(0, 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConcurrentCreateAndDelete(t *testing.T) {
	m := newTestManager(t)

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("game-%d", i)
			if _, err := m.Create(id, untimed()); err != nil {
				errs <- err
				return
			}
			if i%2 == 0 {
				if err := m.Delete(id); err != nil {
					errs <- err
				}
			}
		}(i)
	}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Create("", untimed()); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}
	assert.Equal(t, 75, m.Count())
}
