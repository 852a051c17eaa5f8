package engine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoardConstants(t *testing.T) {
	tests := []struct {
		name     string
		actual   int
		expected int
	}{
		{"BoardSize", BoardSize, 4},
		{"ReserveStacks", ReserveStacks, 3},
		{"PieceSizes", PieceSizes, 4},
		{"PiecesPerPlayer", PiecesPerPlayer, 12},
	}

	for _, test := range tests {
		if test.actual != test.expected {
			t.Errorf("%s: expected %d, got %d", test.name, test.expected, test.actual)
		}
	}
}

func TestPiece(t *testing.T) {
	small := NewPiece(FirstPlayerID, 1)
	large := NewPiece(SecondPlayerID, 4)

	if !small.Smaller(large) {
		t.Error("Expected size 1 to be smaller than size 4")
	}
	if large.Smaller(small) {
		t.Error("Expected size 4 not to be smaller than size 1")
	}
	if small.Smaller(NewPiece(SecondPlayerID, 1)) {
		t.Error("Expected equal sizes not to be smaller")
	}

	assert.Panics(t, func() { NewPiece(FirstPlayerID, 0) })
	assert.Panics(t, func() { NewPiece(FirstPlayerID, 5) })
}

func TestPieceJSONMarshaling(t *testing.T) {
	data, err := json.Marshal(NewPiece(SecondPlayerID, 3))
	require.NoError(t, err)
	assert.JSONEq(t, `{"owner":"player2","size":3}`, string(data))
}

func TestStack(t *testing.T) {
	assert := assert.New(t)

	s := NewStack(LocationBoard)
	assert.True(s.Empty())
	assert.Equal(LocationBoard, s.Location())

	_, ok := s.Peek()
	assert.False(ok)
	_, ok = s.Pop()
	assert.False(ok)

	s.Push(NewPiece(FirstPlayerID, 1))
	s.Push(NewPiece(SecondPlayerID, 3))
	assert.Equal(2, s.Len())

	top, ok := s.Peek()
	assert.True(ok)
	assert.Equal(NewPiece(SecondPlayerID, 3), top)

	pieces := s.Pieces()
	assert.Equal([]Piece{NewPiece(SecondPlayerID, 3), NewPiece(FirstPlayerID, 1)}, pieces)

	// Pieces returns a copy
	pieces[0] = NewPiece(FirstPlayerID, 4)
	top, _ = s.Peek()
	assert.Equal(3, top.Size)

	popped, ok := s.Pop()
	assert.True(ok)
	assert.Equal(3, popped.Size)
	assert.Equal(1, s.Len())
}

func TestReserveStackOrder(t *testing.T) {
	s := newReserveStack(FirstPlayerID)

	if s.Location() != LocationReserve {
		t.Errorf("Expected reserve location, got %s", s.Location())
	}
	for want := 1; want <= 4; want++ {
		p, ok := s.Pop()
		if !ok {
			t.Fatalf("Expected a piece of size %d, stack empty", want)
		}
		if p.Size != want || p.Owner != FirstPlayerID {
			t.Errorf("Expected %s size %d, got %s size %d", FirstPlayerID, want, p.Owner, p.Size)
		}
	}
	if !s.Empty() {
		t.Error("Expected reserve to be empty after popping four pieces")
	}
}

func TestTimer(t *testing.T) {
	t.Run("counts down to zero", func(t *testing.T) {
		timer := NewTimer(3 * time.Second)
		assert.Equal(t, "00:03", timer.String())

		assert.False(t, timer.Tick())
		assert.False(t, timer.Tick())
		assert.True(t, timer.Tick())
		assert.True(t, timer.Expired())
		assert.Equal(t, "00:00", timer.String())
	})

	t.Run("tick past zero is a no-op", func(t *testing.T) {
		timer := NewTimer(time.Second)
		assert.True(t, timer.Tick())
		assert.True(t, timer.Tick())
		assert.Equal(t, time.Duration(0), timer.Remaining())
	})

	t.Run("partial second rounds to zero", func(t *testing.T) {
		timer := NewTimer(500 * time.Millisecond)
		assert.True(t, timer.Tick())
		assert.Equal(t, time.Duration(0), timer.Remaining())
	})

	t.Run("negative limit clamps", func(t *testing.T) {
		assert.True(t, NewTimer(-time.Second).Expired())
	})
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		in       time.Duration
		expected string
	}{
		{0, "00:00"},
		{59 * time.Second, "00:59"},
		{time.Minute, "01:00"},
		{5*time.Minute + 7*time.Second, "05:07"},
		{30 * time.Minute, "30:00"},
		{-time.Second, "00:00"},
	}

	for _, test := range tests {
		if got := FormatClock(test.in); got != test.expected {
			t.Errorf("FormatClock(%v): expected %s, got %s", test.in, test.expected, got)
		}
	}
}

func TestPlayer(t *testing.T) {
	assert := assert.New(t)

	p := NewPlayer(FirstPlayerID, "Player 1", 0)
	assert.Equal(FirstPlayerID, p.ID())
	assert.Equal("Player 1", p.Name())
	assert.False(p.HasTimer())
	assert.Equal("", p.Time())
	assert.False(p.OutOfTime())
	assert.Equal(PiecesPerPlayer, p.ReservePieces())

	for slot := 0; slot < ReserveStacks; slot++ {
		top, ok := p.PeekReserve(slot)
		assert.True(ok)
		assert.Equal(1, top.Size)
		assert.True(p.Owns(top))
	}

	assert.Nil(p.Reserve(-1))
	assert.Nil(p.Reserve(ReserveStacks))
	assert.True(p.ReserveEmpty(ReserveStacks))
	assert.False(p.Owns(NewPiece(SecondPlayerID, 1)))

	timed := NewPlayer(SecondPlayerID, "Player 2", time.Minute)
	assert.True(timed.HasTimer())
	assert.Equal("01:00", timed.Time())
}

func TestClientUpdateRejected(t *testing.T) {
	tests := []struct {
		message  string
		rejected bool
	}{
		{MsgInvalidSelection, true},
		{MsgInvalidMove, true},
		{MsgStackEmpty, true},
		{MsgSelectedBoardPiece, false},
		{MsgPlayedStackPiece, false},
		{MsgTimeout, false},
	}

	for _, test := range tests {
		if got := (ClientUpdate{Message: test.message}).Rejected(); got != test.rejected {
			t.Errorf("%q: expected rejected=%v, got %v", test.message, test.rejected, got)
		}
	}
}
