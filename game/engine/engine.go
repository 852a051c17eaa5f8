package engine

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Commands
	SelectBoardCell(row, col int) (ClientUpdate, error)
	SelectReserveSlot(slot int) (ClientUpdate, error)
	OnTimeout(id PlayerID) (ClientUpdate, error)

	// Queries
	ActivePlayer() PlayerID
	OtherPlayer() PlayerID
	PlayerName(id PlayerID) (string, error)
	Winner() (PlayerID, bool)
	WinReason() WinReason
	TopPiece(row, col int) (Piece, bool, error)
	CellStack(row, col int) ([]Piece, error)
	ReserveTop(id PlayerID, slot int) (Piece, bool, error)
	ReserveEmpty(id PlayerID, slot int) (bool, error)
	RemainingTime(id PlayerID) (string, error)
	Phase() Phase
	Selection() *Selection
	Snapshot() Snapshot
	IsGameOver() bool
	Timed() bool
	MoveCount() int
	GetConfig() *GameConfig

	// Clock synchronization
	TickActive() (PlayerID, bool)
	TurnSwapInFlight() bool
	CommandInFlight() bool
	WaitTurnSwap(ctx context.Context) error
	WaitCommandIdle(ctx context.Context) error

	// Notifications
	Subscribe(observer Observer) func()
}

// GameEngine implements the Engine interface.
//
// Commands are serialized by cmdMu and run while the command signal is set.
// State is guarded by mu, which is released before observers are notified so
// observers may query the engine from Update.
type GameEngine struct {
	cmdMu sync.Mutex
	mu    sync.RWMutex

	config    *GameConfig
	board     board
	players   [2]*Player
	turnOrder [2]PlayerID
	selection *Selection
	winner    PlayerID
	winReason WinReason
	status    string
	moves     int

	turnSwap *signal
	command  *signal
	bus      *NotificationBus
}

// NewEngine creates a new game engine with the provided configuration
func NewEngine(config *GameConfig) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	cfg := *config
	cfg.Players = append([]string(nil), config.Players...)

	names := cfg.PlayerNames()
	limit := cfg.TimeLimitDuration()

	engine := &GameEngine{
		config: &cfg,
		board:  newBoard(),
		players: [2]*Player{
			NewPlayer(FirstPlayerID, names[0], limit),
			NewPlayer(SecondPlayerID, names[1], limit),
		},
		turnOrder: [2]PlayerID{FirstPlayerID, SecondPlayerID},
		turnSwap:  newSignal("turn swap"),
		command:   newSignal("command"),
		bus:       NewNotificationBus(),
	}
	engine.status = fmt.Sprintf("%s to move", names[0])

	return engine, nil
}

// NewEngineWithDefaults creates a new game engine with default configuration
func NewEngineWithDefaults() *GameEngine {
	engine, err := NewEngine(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return engine
}

// Subscribe registers an observer on the engine's notification bus
func (e *GameEngine) Subscribe(observer Observer) func() {
	return e.bus.Subscribe(observer)
}

// SelectBoardCell handles a click on board cell (row, col)
func (e *GameEngine) SelectBoardCell(row, col int) (ClientUpdate, error) {
	target := Cell{Row: row, Col: col}
	if !target.InBounds() {
		return ClientUpdate{}, fmt.Errorf("%w: cell (%d, %d)", ErrOutOfBounds, row, col)
	}
	return e.run(func() ClientUpdate {
		return e.selectBoardCellLocked(target)
	})
}

// SelectReserveSlot handles a click on one of the active player's reserves
func (e *GameEngine) SelectReserveSlot(slot int) (ClientUpdate, error) {
	if slot < 0 || slot >= ReserveStacks {
		return ClientUpdate{}, fmt.Errorf("%w: reserve slot %d", ErrOutOfBounds, slot)
	}
	return e.run(func() ClientUpdate {
		return e.selectReserveSlotLocked(slot)
	})
}

// OnTimeout ends the game in favour of the opponent of id. It returns
// ErrGameOver when a winner was already decided, so a line completed before
// the timeout is processed keeps precedence.
func (e *GameEngine) OnTimeout(id PlayerID) (ClientUpdate, error) {
	if _, err := e.player(id); err != nil {
		return ClientUpdate{}, err
	}
	return e.run(func() ClientUpdate {
		e.selection = nil
		e.declareWinner(e.opponentOf(id), WinByTimeout)
		return ClientUpdate{Message: MsgTimeout, Rebuild: false}
	})
}

// run executes one command: it holds the command signal until every
// observer has been notified.
func (e *GameEngine) run(apply func() ClientUpdate) (ClientUpdate, error) {
	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()

	e.command.enter()
	defer e.command.leave()

	e.mu.Lock()
	if e.winner != "" {
		e.mu.Unlock()
		return ClientUpdate{}, ErrGameOver
	}
	update := apply()
	if e.winner == "" {
		e.status = update.Message
	}
	e.assertInvariantsLocked()
	snapshot := e.snapshotLocked()
	e.mu.Unlock()

	e.bus.Publish(snapshot, update)
	return update, nil
}

func (e *GameEngine) selectBoardCellLocked(target Cell) ClientUpdate {
	active := e.activeLocked()

	if e.selection == nil {
		if !e.board.at(target).ownedBy(active.id) {
			return ClientUpdate{Message: MsgInvalidSelection}
		}
		e.selection = &Selection{Location: LocationBoard, Row: target.Row, Col: target.Col}
		return ClientUpdate{Message: MsgSelectedBoardPiece}
	}

	switch e.selection.Location {
	case LocationReserve:
		source := active.Reserve(e.selection.Slot)
		piece, ok := source.Peek()
		if !ok {
			panic("engine: selected reserve slot is empty")
		}
		if !e.board.canPlaceFromReserve(piece, e.opponentOf(active.id), target) {
			return ClientUpdate{Message: MsgInvalidMove}
		}
		source.Pop()
		e.board.at(target).Push(piece)
		e.completePlacement()
		return ClientUpdate{Message: MsgPlayedStackPiece, Rebuild: true}

	case LocationBoard:
		from := Cell{Row: e.selection.Row, Col: e.selection.Col}
		if from == target {
			e.selection = nil
			return ClientUpdate{Message: MsgDeselectedBoardPiece}
		}
		piece, ok := e.board.top(from)
		if !ok || piece.Owner != active.id {
			panic("engine: selected board cell no longer holds an active piece")
		}
		if !e.board.canPlaceFromBoard(piece, target) {
			return ClientUpdate{Message: MsgInvalidMove}
		}
		e.board.at(from).Pop()
		e.board.at(target).Push(piece)
		e.completePlacement()
		return ClientUpdate{Message: MsgPlayedBoardPiece, Rebuild: true}
	}

	panic("engine: unknown selection location " + string(e.selection.Location))
}

func (e *GameEngine) selectReserveSlotLocked(slot int) ClientUpdate {
	active := e.activeLocked()

	if e.selection == nil {
		if active.ReserveEmpty(slot) {
			return ClientUpdate{Message: MsgStackEmpty}
		}
		e.selection = &Selection{Location: LocationReserve, Slot: slot}
		return ClientUpdate{Message: MsgSelectedStackPiece}
	}

	if e.selection.Location == LocationReserve && e.selection.Slot == slot {
		e.selection = nil
		return ClientUpdate{Message: MsgDeselectedStackPiece}
	}
	return ClientUpdate{Message: MsgInvalidMove}
}

// completePlacement clears the selection, checks for a winner and hands the
// turn over. The placing player is checked before the opponent.
func (e *GameEngine) completePlacement() {
	e.selection = nil
	e.moves++

	mover := e.turnOrder[0]
	opponent := e.turnOrder[1]
	switch {
	case e.board.hasLine(mover):
		e.declareWinner(mover, WinByLine)
	case e.board.hasLine(opponent):
		e.declareWinner(opponent, WinByLine)
	default:
		e.rotateTurn()
	}
}

func (e *GameEngine) rotateTurn() {
	e.turnSwap.enter()
	e.turnOrder[0], e.turnOrder[1] = e.turnOrder[1], e.turnOrder[0]
	e.turnSwap.leave()
}

func (e *GameEngine) declareWinner(id PlayerID, reason WinReason) {
	if e.winner != "" {
		panic("engine: winner declared twice")
	}
	p, err := e.player(id)
	if err != nil {
		panic(err)
	}
	e.winner = id
	e.winReason = reason
	e.status = WinnerText(p.name)
}

// assertInvariantsLocked panics when the state is inconsistent
func (e *GameEngine) assertInvariantsLocked() {
	for r := range e.board {
		for c := range e.board[r] {
			if e.board[r][c] == nil || e.board[r][c].Location() != LocationBoard {
				panic(fmt.Sprintf("engine: board cell (%d, %d) is not a board stack", r, c))
			}
		}
	}

	for _, p := range e.players {
		if total := p.ReservePieces() + e.board.piecesOwned(p.id); total != PiecesPerPlayer {
			panic(fmt.Sprintf("engine: %s owns %d pieces, want %d", p.id, total, PiecesPerPlayer))
		}
	}

	if e.winner != "" && e.selection != nil {
		panic("engine: selection pending after game over")
	}
	if e.turnOrder[0] == e.turnOrder[1] {
		panic("engine: turn order lists the same player twice")
	}
}

func (e *GameEngine) player(id PlayerID) (*Player, error) {
	for _, p := range e.players {
		if p.id == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPlayer, id)
}

func (e *GameEngine) activeLocked() *Player {
	p, err := e.player(e.turnOrder[0])
	if err != nil {
		panic(err)
	}
	return p
}

func (e *GameEngine) opponentOf(id PlayerID) PlayerID {
	if id == e.players[0].id {
		return e.players[1].id
	}
	return e.players[0].id
}

func (e *GameEngine) phaseLocked() Phase {
	switch {
	case e.winner != "":
		return PhaseGameOver
	case e.selection == nil:
		return PhaseNoSelection
	case e.selection.Location == LocationReserve:
		return PhaseReserveSelected
	default:
		return PhaseBoardSelected
	}
}

// TickActive removes one second from the active player's clock and reports
// who was ticked and whether that clock is now expired. The active player is
// read under the state lock, so a tick never lands mid-rotation.
func (e *GameEngine) TickActive() (PlayerID, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.winner != "" {
		return "", false
	}
	active := e.activeLocked()
	if active.timer == nil {
		return active.id, false
	}
	return active.id, active.timer.Tick()
}

// TurnSwapInFlight reports whether the turn order is being rotated
func (e *GameEngine) TurnSwapInFlight() bool {
	return e.turnSwap.Active()
}

// CommandInFlight reports whether a command has not yet finished publishing
func (e *GameEngine) CommandInFlight() bool {
	return e.command.Active()
}

// WaitTurnSwap blocks until no turn rotation is in progress
func (e *GameEngine) WaitTurnSwap(ctx context.Context) error {
	return e.turnSwap.wait(ctx)
}

// WaitCommandIdle blocks until no command is in flight
func (e *GameEngine) WaitCommandIdle(ctx context.Context) error {
	return e.command.wait(ctx)
}

// ActivePlayer returns the player whose selections are currently legal
func (e *GameEngine) ActivePlayer() PlayerID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.turnOrder[0]
}

// OtherPlayer returns the waiting player
func (e *GameEngine) OtherPlayer() PlayerID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.turnOrder[1]
}

// PlayerName returns the display name of id
func (e *GameEngine) PlayerName(id PlayerID) (string, error) {
	p, err := e.player(id)
	if err != nil {
		return "", err
	}
	return p.name, nil
}

// Winner returns the winner, if any
func (e *GameEngine) Winner() (PlayerID, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.winner, e.winner != ""
}

// WinReason returns how the game was decided, "" while in progress
func (e *GameEngine) WinReason() WinReason {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.winReason
}

// IsGameOver returns whether the game is over
func (e *GameEngine) IsGameOver() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.winner != ""
}

// TopPiece returns the visible piece at (row, col)
func (e *GameEngine) TopPiece(row, col int) (Piece, bool, error) {
	c := Cell{Row: row, Col: col}
	if !c.InBounds() {
		return Piece{}, false, fmt.Errorf("%w: cell (%d, %d)", ErrOutOfBounds, row, col)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.board.top(c)
	return p, ok, nil
}

// CellStack returns every piece at (row, col), top first
func (e *GameEngine) CellStack(row, col int) ([]Piece, error) {
	c := Cell{Row: row, Col: col}
	if !c.InBounds() {
		return nil, fmt.Errorf("%w: cell (%d, %d)", ErrOutOfBounds, row, col)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.board.at(c).Pieces(), nil
}

// ReserveTop returns the top piece of a reserve slot of player id
func (e *GameEngine) ReserveTop(id PlayerID, slot int) (Piece, bool, error) {
	p, err := e.reserveOwner(id, slot)
	if err != nil {
		return Piece{}, false, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	piece, ok := p.PeekReserve(slot)
	return piece, ok, nil
}

// ReserveEmpty reports whether a reserve slot of player id is used up
func (e *GameEngine) ReserveEmpty(id PlayerID, slot int) (bool, error) {
	p, err := e.reserveOwner(id, slot)
	if err != nil {
		return false, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	return p.ReserveEmpty(slot), nil
}

func (e *GameEngine) reserveOwner(id PlayerID, slot int) (*Player, error) {
	p, err := e.player(id)
	if err != nil {
		return nil, err
	}
	if slot < 0 || slot >= ReserveStacks {
		return nil, fmt.Errorf("%w: reserve slot %d", ErrOutOfBounds, slot)
	}
	return p, nil
}

// RemainingTime returns the formatted clock of id, "" in untimed games
func (e *GameEngine) RemainingTime(id PlayerID) (string, error) {
	p, err := e.player(id)
	if err != nil {
		return "", err
	}
	return p.Time(), nil
}

// Remaining returns the raw remaining budget of id, zero in untimed games
func (e *GameEngine) Remaining(id PlayerID) (time.Duration, error) {
	p, err := e.player(id)
	if err != nil {
		return 0, err
	}
	if p.timer == nil {
		return 0, nil
	}
	return p.timer.Remaining(), nil
}

// Phase returns the current state of the turn state machine
func (e *GameEngine) Phase() Phase {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.phaseLocked()
}

// Selection returns a copy of the pending selection, nil when none
func (e *GameEngine) Selection() *Selection {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.selection == nil {
		return nil
	}
	sel := *e.selection
	return &sel
}

// Snapshot returns an immutable copy of the current state
func (e *GameEngine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshotLocked()
}

// Timed reports whether the game is played on a clock
func (e *GameEngine) Timed() bool {
	return e.players[0].HasTimer()
}

// MoveCount returns the number of completed placements
func (e *GameEngine) MoveCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.moves
}

// GetConfig returns a copy of the settings the engine was created with
func (e *GameEngine) GetConfig() *GameConfig {
	cfg := *e.config
	cfg.Players = append([]string(nil), e.config.Players...)
	return &cfg
}
