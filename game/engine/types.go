package engine

import "errors"

// PlayerID identifies one of the two players of a game
type PlayerID string

// Location tags where a Stack lives
type Location string

const (
	LocationBoard   Location = "board"
	LocationReserve Location = "reserve"
)

// Phase is the logical state of the turn state machine
type Phase string

const (
	PhaseNoSelection     Phase = "no_selection"
	PhaseReserveSelected Phase = "reserve_selected"
	PhaseBoardSelected   Phase = "board_selected"
	PhaseGameOver        Phase = "game_over"
)

// WinReason records how the winner was decided
type WinReason string

const (
	WinByLine    WinReason = "line"
	WinByTimeout WinReason = "timeout"
)

const (
	// Board and piece constants
	BoardSize       = 4
	ReserveStacks   = 3
	PieceSizes      = 4
	MinPieceSize    = 1
	MaxPieceSize    = PieceSizes
	PiecesPerPlayer = ReserveStacks * PieceSizes

	// Identifiers used for the two seats
	FirstPlayerID  PlayerID = "player1"
	SecondPlayerID PlayerID = "player2"
)

// Status messages published through ClientUpdate
const (
	MsgSelectedBoardPiece   = "Selected board piece"
	MsgInvalidSelection     = "Invalid selection"
	MsgPlayedStackPiece     = "Played stack piece"
	MsgPlayedBoardPiece     = "Played board piece"
	MsgDeselectedBoardPiece = "Deselected board piece"
	MsgSelectedStackPiece   = "Selected stack piece"
	MsgStackEmpty           = "Stack is empty"
	MsgDeselectedStackPiece = "Deselected stack piece"
	MsgInvalidMove          = "Invalid move"
	MsgTimeout              = "Timeout"
)

var (
	ErrOutOfBounds   = errors.New("index out of bounds")
	ErrGameOver      = errors.New("game is over")
	ErrUnknownPlayer = errors.New("unknown player")
	ErrInvalidConfig = errors.New("invalid game configuration")
)

// Piece is an immutable game piece: an owner plus a size between 1 and 4
type Piece struct {
	Owner PlayerID `json:"owner"`
	Size  int      `json:"size"`
}

// NewPiece creates a piece. It panics on a size outside 1..4.
func NewPiece(owner PlayerID, size int) Piece {
	if size < MinPieceSize || size > MaxPieceSize {
		panic("engine: piece size out of range")
	}
	return Piece{Owner: owner, Size: size}
}

// Smaller reports whether p is smaller than other
func (p Piece) Smaller(other Piece) bool {
	return p.Size < other.Size
}

// ClientUpdate is published after every completed command.
// Rebuild asks observers to re-read the whole board and reserves;
// otherwise only the status message changed.
type ClientUpdate struct {
	Message string `json:"message"`
	Rebuild bool   `json:"rebuild"`
}

// Rejected reports whether the update describes a rule rejection
func (u ClientUpdate) Rejected() bool {
	switch u.Message {
	case MsgInvalidSelection, MsgInvalidMove, MsgStackEmpty:
		return true
	}
	return false
}

// Selection references the pending source of a move: a board cell or one of
// the active player's reserve slots.
type Selection struct {
	Location Location `json:"location"`
	Row      int      `json:"row"`
	Col      int      `json:"col"`
	Slot     int      `json:"slot"`
}

// Cell is a board coordinate
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// InBounds reports whether the cell lies on the board
func (c Cell) InBounds() bool {
	return c.Row >= 0 && c.Row < BoardSize && c.Col >= 0 && c.Col < BoardSize
}
