package engine

import (
	"fmt"
	"time"
)

// CellView is the read-only view of one board cell
type CellView struct {
	Row    int    `json:"row"`
	Col    int    `json:"col"`
	Top    *Piece `json:"top,omitempty"`
	Height int    `json:"height"`
}

// ReserveView is the read-only view of one reserve slot
type ReserveView struct {
	Slot      int    `json:"slot"`
	Top       *Piece `json:"top,omitempty"`
	Remaining int    `json:"remaining"`
}

// PlayerView is the read-only view of a player
type PlayerView struct {
	ID              PlayerID                   `json:"id"`
	Name            string                     `json:"name"`
	Reserves        [ReserveStacks]ReserveView `json:"reserves"`
	Timed           bool                       `json:"timed"`
	Time            string                     `json:"time,omitempty"`
	Remaining       time.Duration              `json:"remaining_ns,omitempty"`
	OutOfTime       bool                       `json:"out_of_time"`
	PiecesOnBoard   int                        `json:"pieces_on_board"`
	PiecesInReserve int                        `json:"pieces_in_reserve"`
}

// Snapshot is an immutable copy of the engine state handed to observers
type Snapshot struct {
	Config       string                         `json:"config"`
	Board        [BoardSize][BoardSize]CellView `json:"board"`
	Players      [2]PlayerView                  `json:"players"`
	Active       PlayerID                       `json:"active"`
	Winner       PlayerID                       `json:"winner,omitempty"`
	WinReason    WinReason                      `json:"win_reason,omitempty"`
	Phase        Phase                          `json:"phase"`
	Selection    *Selection                     `json:"selection,omitempty"`
	Moves        int                            `json:"moves"`
	StackPreview bool                           `json:"stack_preview"`
	Status       string                         `json:"status"`
}

// Player returns the view of player id
func (s Snapshot) Player(id PlayerID) (PlayerView, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return PlayerView{}, false
}

// ActivePlayer returns the view of the active player
func (s Snapshot) ActivePlayer() PlayerView {
	p, _ := s.Player(s.Active)
	return p
}

// OtherPlayer returns the view of the waiting player
func (s Snapshot) OtherPlayer() PlayerView {
	for _, p := range s.Players {
		if p.ID != s.Active {
			return p
		}
	}
	return PlayerView{}
}

// GameOver reports whether a winner was decided
func (s Snapshot) GameOver() bool {
	return s.Winner != ""
}

// Clock renders both clocks as "active | other", or "" for untimed games
func (s Snapshot) Clock() string {
	active, other := s.ActivePlayer(), s.OtherPlayer()
	if !active.Timed {
		return ""
	}
	return fmt.Sprintf("%s | %s", active.Time, other.Time)
}

// WinnerText formats the end-of-game status line
func WinnerText(name string) string {
	return name + " has won the game"
}

func pieceRef(p Piece, ok bool) *Piece {
	if !ok {
		return nil
	}
	return &p
}

// snapshotLocked copies the current state. Callers hold e.mu.
func (e *GameEngine) snapshotLocked() Snapshot {
	s := Snapshot{
		Config:       e.config.Name,
		Active:       e.turnOrder[0],
		Winner:       e.winner,
		WinReason:    e.winReason,
		Phase:        e.phaseLocked(),
		Moves:        e.moves,
		StackPreview: e.config.StackPreview,
		Status:       e.status,
	}
	if e.selection != nil {
		sel := *e.selection
		s.Selection = &sel
	}

	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			stack := e.board[r][c]
			s.Board[r][c] = CellView{
				Row:    r,
				Col:    c,
				Top:    pieceRef(stack.Peek()),
				Height: stack.Len(),
			}
		}
	}

	for i, p := range e.players {
		view := PlayerView{
			ID:              p.id,
			Name:            p.name,
			Timed:           p.HasTimer(),
			Time:            p.Time(),
			OutOfTime:       p.OutOfTime(),
			PiecesOnBoard:   e.board.piecesOwned(p.id),
			PiecesInReserve: p.ReservePieces(),
		}
		if p.timer != nil {
			view.Remaining = p.timer.Remaining()
		}
		for slot, stack := range p.reserves {
			view.Reserves[slot] = ReserveView{
				Slot:      slot,
				Top:       pieceRef(stack.Peek()),
				Remaining: stack.Len(),
			}
		}
		s.Players[i] = view
	}

	return s
}
