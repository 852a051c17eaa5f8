package engine

import "time"

// Player owns three reserve stacks and, in timed games, a countdown clock
type Player struct {
	id       PlayerID
	name     string
	reserves [ReserveStacks]*Stack
	timer    *Timer
}

// NewPlayer creates a player with full reserves. A zero timeLimit means the
// player has no clock.
func NewPlayer(id PlayerID, name string, timeLimit time.Duration) *Player {
	p := &Player{id: id, name: name}
	for i := range p.reserves {
		p.reserves[i] = newReserveStack(id)
	}
	if timeLimit > 0 {
		p.timer = NewTimer(timeLimit)
	}
	return p
}

// ID returns the player identifier
func (p *Player) ID() PlayerID { return p.id }

// Name returns the display name
func (p *Player) Name() string { return p.name }

// Owns reports whether piece belongs to this player
func (p *Player) Owns(piece Piece) bool {
	return piece.Owner == p.id
}

// Reserve returns reserve stack slot, or nil when slot is out of range
func (p *Player) Reserve(slot int) *Stack {
	if slot < 0 || slot >= ReserveStacks {
		return nil
	}
	return p.reserves[slot]
}

// ReserveEmpty reports whether reserve slot has no pieces left
func (p *Player) ReserveEmpty(slot int) bool {
	s := p.Reserve(slot)
	return s == nil || s.Empty()
}

// PeekReserve returns the top piece of reserve slot
func (p *Player) PeekReserve(slot int) (Piece, bool) {
	s := p.Reserve(slot)
	if s == nil {
		return Piece{}, false
	}
	return s.Peek()
}

// ReservePieces counts the pieces left across all reserves
func (p *Player) ReservePieces() int {
	n := 0
	for _, s := range p.reserves {
		n += s.Len()
	}
	return n
}

// Timer returns the player's clock, nil for untimed games
func (p *Player) Timer() *Timer { return p.timer }

// HasTimer reports whether the player plays on a clock
func (p *Player) HasTimer() bool { return p.timer != nil }

// Time returns the formatted remaining time, or "" without a clock
func (p *Player) Time() string {
	if p.timer == nil {
		return ""
	}
	return p.timer.String()
}

// OutOfTime reports whether the player's clock has expired
func (p *Player) OutOfTime() bool {
	return p.timer != nil && p.timer.Expired()
}
