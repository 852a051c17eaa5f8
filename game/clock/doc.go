// Package clock drives the per-player countdown of a timed game.
//
// A Scheduler ticks the active player's clock once per interval. Before each
// tick it waits for any turn swap in progress, then asks the engine who is
// active, so a tick is always charged to the player who holds the turn. When
// a clock expires the scheduler waits until no command is in flight and then
// resolves the timeout on the engine. A line completed by that command wins
// over the timeout.
//
// Usage:
//
//	sched := clock.NewScheduler(gameEngine,
//		clock.WithLogger(logger),
//		clock.WithTickHook(func(s engine.Snapshot) { hub.BroadcastClock(id, s) }),
//	)
//	if err := sched.Start(ctx); err != nil {
//		return err
//	}
//	defer sched.Stop()
package clock
