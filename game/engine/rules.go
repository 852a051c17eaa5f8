package engine

// board is the 4x4 grid of board stacks
type board [BoardSize][BoardSize]*Stack

// winLines lists every row, column and both diagonals
var winLines = buildWinLines()

func buildWinLines() [][]Cell {
	lines := make([][]Cell, 0, 2*BoardSize+2)
	for i := 0; i < BoardSize; i++ {
		row := make([]Cell, BoardSize)
		col := make([]Cell, BoardSize)
		for j := 0; j < BoardSize; j++ {
			row[j] = Cell{Row: i, Col: j}
			col[j] = Cell{Row: j, Col: i}
		}
		lines = append(lines, row, col)
	}

	diag := make([]Cell, BoardSize)
	anti := make([]Cell, BoardSize)
	for i := 0; i < BoardSize; i++ {
		diag[i] = Cell{Row: i, Col: i}
		anti[i] = Cell{Row: i, Col: BoardSize - 1 - i}
	}
	return append(lines, diag, anti)
}

func newBoard() board {
	var b board
	for r := range b {
		for c := range b[r] {
			b[r][c] = NewStack(LocationBoard)
		}
	}
	return b
}

func (b *board) at(c Cell) *Stack {
	return b[c.Row][c.Col]
}

func (b *board) top(c Cell) (Piece, bool) {
	return b.at(c).Peek()
}

// countTops counts the cells of line whose top piece belongs to id
func (b *board) countTops(id PlayerID, line []Cell) int {
	n := 0
	for _, c := range line {
		if b.at(c).ownedBy(id) {
			n++
		}
	}
	return n
}

// hasLine reports whether id shows its pieces on top across a full row,
// column or diagonal. Empty cells never count.
func (b *board) hasLine(id PlayerID) bool {
	for _, line := range winLines {
		if b.countTops(id, line) == BoardSize {
			return true
		}
	}
	return false
}

// linesThrough returns the row, the column and any diagonal containing c
func linesThrough(c Cell) [][]Cell {
	var lines [][]Cell
	for _, line := range winLines {
		for _, lc := range line {
			if lc == c {
				lines = append(lines, line)
				break
			}
		}
	}
	return lines
}

// threeInLineThrough reports whether id has at least three tops on some
// line passing through c
func (b *board) threeInLineThrough(id PlayerID, c Cell) bool {
	for _, line := range linesThrough(c) {
		if b.countTops(id, line) >= BoardSize-1 {
			return true
		}
	}
	return false
}

// canPlaceFromReserve reports whether a reserve piece may land on target.
// Empty cells always accept. An occupied cell accepts only when its top is a
// smaller opponent piece lying on a line where the opponent already shows
// three pieces.
func (b *board) canPlaceFromReserve(piece Piece, opponent PlayerID, target Cell) bool {
	top, ok := b.top(target)
	if !ok {
		return true
	}
	if top.Owner != opponent || !top.Smaller(piece) {
		return false
	}
	return b.threeInLineThrough(opponent, target)
}

// canPlaceFromBoard reports whether a piece already on the board may move to
// target: the cell must be empty or topped by a smaller piece of either owner.
func (b *board) canPlaceFromBoard(piece Piece, target Cell) bool {
	top, ok := b.top(target)
	if !ok {
		return true
	}
	return top.Smaller(piece)
}

// piecesOwned counts every piece belonging to id, covered pieces included
func (b *board) piecesOwned(id PlayerID) int {
	n := 0
	for r := range b {
		for c := range b[r] {
			for _, p := range b[r][c].pieces {
				if p.Owner == id {
					n++
				}
			}
		}
	}
	return n
}
