// Package engine provides the rules and turn state machine for Gobblets.
//
// The engine package implements the game mechanics including:
//   - Pieces, LIFO stacks and per-player reserves
//   - Selection, placement and gobble legality
//   - Win detection across rows, columns and diagonals
//   - Per-player countdown clocks and timeout resolution
//   - Change notification through a NotificationBus
//
// Core Types:
//
// The Engine interface defines the main contract for game operations,
// implemented by GameEngine. Snapshot is the immutable view handed to
// observers, while GameConfig holds the per-game settings loaded from JSON or
// YAML preset files.
//
// Usage:
//
//	gameEngine, err := engine.NewEngine(engine.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	unsubscribe := gameEngine.Subscribe(engine.ObserverFunc(func(s engine.Snapshot, u engine.ClientUpdate) {
//		fmt.Println(u.Message, s.Status)
//	}))
//	defer unsubscribe()
//
//	// Player 1 takes the top piece of reserve 0 and plays it on (0, 0)
//	gameEngine.SelectReserveSlot(0)
//	gameEngine.SelectBoardCell(0, 0)
//
// Game Rules:
//
// Each player starts with three reserves holding sizes 1 to 4, smallest on
// top. On their turn a player either plays a reserve piece or moves one of
// their visible board pieces. Empty cells accept any piece. A board piece may
// cover any smaller piece. A reserve piece may only cover a smaller opponent
// piece when the opponent already shows three pieces on a row, column or
// diagonal through that cell. The first player to show four of their own
// pieces along a row, column or diagonal wins; when a move completes lines
// for both players, the mover wins. In timed games a player whose clock runs
// out loses.
//
// Concurrency:
//
// Commands are serialized and each one publishes exactly one ClientUpdate
// once it completes. TurnSwapInFlight and CommandInFlight expose the two
// in-flight markers a clock driver must wait on before ticking or resolving
// a timeout.
package engine
