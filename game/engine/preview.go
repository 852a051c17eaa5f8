package engine

import (
	"fmt"
	"sync"
	"time"
)

// StackSource provides the full contents of a board cell
type StackSource interface {
	CellStack(row, col int) ([]Piece, error)
}

// PreviewFunc receives a delayed stack preview, pieces ordered top first
type PreviewFunc func(cell Cell, pieces []Piece)

// Previewer computes a delayed preview of one board cell's stack. Only the
// latest request is live: starting a preview for another cell cancels the
// pending one, and a cancelled preview is never delivered.
type Previewer struct {
	src     StackSource
	delay   time.Duration
	deliver PreviewFunc

	mu      sync.Mutex
	gen     uint64
	timer   *time.Timer
	pending *Cell
	closed  bool
}

// NewPreviewer creates a previewer reading from src. A non-positive delay
// selects DefaultPreviewDelay. deliver runs with the previewer locked and
// must not call back into it.
func NewPreviewer(src StackSource, delay time.Duration, deliver PreviewFunc) *Previewer {
	if delay <= 0 {
		delay = DefaultPreviewDelay
	}
	return &Previewer{src: src, delay: delay, deliver: deliver}
}

// Start schedules a preview of (row, col). A preview already pending for the
// same cell keeps its schedule; one pending for another cell is cancelled.
func (p *Previewer) Start(row, col int) error {
	return p.schedule(row, col, false)
}

// Restart cancels any pending preview and schedules (row, col) afresh
func (p *Previewer) Restart(row, col int) error {
	return p.schedule(row, col, true)
}

func (p *Previewer) schedule(row, col int, force bool) error {
	cell := Cell{Row: row, Col: col}
	if !cell.InBounds() {
		return fmt.Errorf("%w: cell (%d, %d)", ErrOutOfBounds, row, col)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	if !force && p.pending != nil && *p.pending == cell {
		return nil
	}

	p.cancelLocked()
	p.gen++
	gen := p.gen
	p.pending = &cell
	p.timer = time.AfterFunc(p.delay, func() { p.fire(gen, cell) })
	return nil
}

func (p *Previewer) fire(gen uint64, cell Cell) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || gen != p.gen {
		return
	}
	p.pending = nil
	p.timer = nil

	pieces, err := p.src.CellStack(cell.Row, cell.Col)
	if err != nil {
		return
	}
	p.deliver(cell, pieces)
}

// Cancel drops the pending preview. Once Cancel returns no earlier request
// is delivered.
func (p *Previewer) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelLocked()
}

func (p *Previewer) cancelLocked() {
	p.gen++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.pending = nil
}

// Pending returns the cell awaiting preview, if any
func (p *Previewer) Pending() (Cell, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return Cell{}, false
	}
	return *p.pending, true
}

// Close cancels the pending preview and rejects later requests
func (p *Previewer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelLocked()
	p.closed = true
}
