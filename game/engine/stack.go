package engine

// Stack is a LIFO pile of pieces. The last pushed piece is the top.
type Stack struct {
	location Location
	pieces   []Piece
}

// NewStack creates an empty stack tagged with the given location
func NewStack(location Location) *Stack {
	return &Stack{location: location}
}

// newReserveStack creates a full reserve stack for owner. Pieces are pushed
// largest first so the top of the stack is the size-1 piece.
func newReserveStack(owner PlayerID) *Stack {
	s := NewStack(LocationReserve)
	for size := MaxPieceSize; size >= MinPieceSize; size-- {
		s.Push(NewPiece(owner, size))
	}
	return s
}

// Location returns the stack's location tag
func (s *Stack) Location() Location {
	return s.location
}

// Push places a piece on top of the stack
func (s *Stack) Push(p Piece) {
	s.pieces = append(s.pieces, p)
}

// Pop removes and returns the top piece
func (s *Stack) Pop() (Piece, bool) {
	if len(s.pieces) == 0 {
		return Piece{}, false
	}
	top := s.pieces[len(s.pieces)-1]
	s.pieces = s.pieces[:len(s.pieces)-1]
	return top, true
}

// Peek returns the top piece without removing it
func (s *Stack) Peek() (Piece, bool) {
	if len(s.pieces) == 0 {
		return Piece{}, false
	}
	return s.pieces[len(s.pieces)-1], true
}

// Empty reports whether the stack holds no pieces
func (s *Stack) Empty() bool {
	return len(s.pieces) == 0
}

// Len returns the number of pieces in the stack
func (s *Stack) Len() int {
	return len(s.pieces)
}

// Pieces returns a copy of the stack contents ordered top to bottom
func (s *Stack) Pieces() []Piece {
	out := make([]Piece, len(s.pieces))
	for i := range s.pieces {
		out[i] = s.pieces[len(s.pieces)-1-i]
	}
	return out
}

// ownedBy reports whether the top piece belongs to id
func (s *Stack) ownedBy(id PlayerID) bool {
	top, ok := s.Peek()
	return ok && top.Owner == id
}
