package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type previewSink struct {
	mu    sync.Mutex
	cells []Cell
	stack [][]Piece
}

func (s *previewSink) deliver(cell Cell, pieces []Piece) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cells = append(s.cells, cell)
	s.stack = append(s.stack, pieces)
}

func (s *previewSink) delivered() []Cell {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Cell(nil), s.cells...)
}

const testPreviewDelay = 20 * time.Millisecond

func TestPreviewerDelivers(t *testing.T) {
	e := newTestEngine(t)
	put(t, e, FirstPlayerID, 1, 1, 2)
	put(t, e, SecondPlayerID, 3, 1, 2)

	sink := &previewSink{}
	p := NewPreviewer(e, testPreviewDelay, sink.deliver)
	defer p.Close()

	require.NoError(t, p.Start(1, 2))
	cell, pending := p.Pending()
	assert.True(t, pending)
	assert.Equal(t, Cell{Row: 1, Col: 2}, cell)

	require.Eventually(t, func() bool { return len(sink.delivered()) == 1 }, time.Second, 5*time.Millisecond)

	sink.mu.Lock()
	assert.Equal(t, []Piece{NewPiece(SecondPlayerID, 3), NewPiece(FirstPlayerID, 1)}, sink.stack[0])
	sink.mu.Unlock()

	_, pending = p.Pending()
	assert.False(t, pending)
}

func TestPreviewerNewCellCancelsPrevious(t *testing.T) {
	e := newTestEngine(t)
	sink := &previewSink{}
	p := NewPreviewer(e, testPreviewDelay, sink.deliver)
	defer p.Close()

	require.NoError(t, p.Start(0, 0))
	require.NoError(t, p.Start(3, 3))

	require.Eventually(t, func() bool { return len(sink.delivered()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(3 * testPreviewDelay)
	assert.Equal(t, []Cell{{Row: 3, Col: 3}}, sink.delivered())
}

func TestPreviewerCancel(t *testing.T) {
	e := newTestEngine(t)
	sink := &previewSink{}
	p := NewPreviewer(e, testPreviewDelay, sink.deliver)
	defer p.Close()

	require.NoError(t, p.Start(2, 2))
	p.Cancel()

	time.Sleep(3 * testPreviewDelay)
	assert.Empty(t, sink.delivered())
}

func TestPreviewerRestart(t *testing.T) {
	e := newTestEngine(t)
	sink := &previewSink{}
	p := NewPreviewer(e, testPreviewDelay, sink.deliver)
	defer p.Close()

	require.NoError(t, p.Start(1, 1))
	require.NoError(t, p.Start(1, 1))
	require.NoError(t, p.Restart(1, 1))

	require.Eventually(t, func() bool { return len(sink.delivered()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(3 * testPreviewDelay)
	assert.Len(t, sink.delivered(), 1)

	// Hovering again after delivery schedules a new preview
	require.NoError(t, p.Start(1, 1))
	require.Eventually(t, func() bool { return len(sink.delivered()) == 2 }, time.Second, 5*time.Millisecond)
}

func TestPreviewerClose(t *testing.T) {
	e := newTestEngine(t)
	sink := &previewSink{}
	p := NewPreviewer(e, testPreviewDelay, sink.deliver)

	require.NoError(t, p.Start(0, 1))
	p.Close()
	require.NoError(t, p.Start(0, 2))

	time.Sleep(3 * testPreviewDelay)
	assert.Empty(t, sink.delivered())
}

func TestPreviewerBounds(t *testing.T) {
	p := NewPreviewer(newTestEngine(t), 0, func(Cell, []Piece) {})
	defer p.Close()

	assert.ErrorIs(t, p.Start(4, 0), ErrOutOfBounds)
	assert.ErrorIs(t, p.Restart(0, -1), ErrOutOfBounds)
	assert.Equal(t, DefaultPreviewDelay, p.delay)
}
