// Package service provides the business logic layer for the Gobblets server.
//
// The service package implements:
//   - Multi-session game management
//   - Preset lookup when a session is created
//   - Selection commands routed to each session's engine
//   - Per-session event history
//   - Clock scheduling for timed games
//   - Archiving of finished matches
//
// Core Interfaces:
//
// GameService is the main service interface used by every transport.
// SessionManager stores live sessions. ConfigManager loads time-control
// presets. ResultStore archives finished matches. Notifier pushes engine
// updates and clock ticks to connected clients.
//
// Architecture:
//
// The service layer sits between the transports (REST, WebSocket, MCP) and
// the game engine. Each session owns one engine. On creation the service
// subscribes an event log, the notifier and the result recorder to the
// engine, and for timed presets attaches a clock.Scheduler. Closing the
// session stops the scheduler and detaches every observer.
//
// Usage:
//
//	sessions := session.NewManager()
//	configs, _ := config.NewManager("configs")
//	svc := service.NewGameService(sessions, configs,
//		service.WithNotifier(hub),
//		service.WithResultStore(results),
//	)
//
//	info, err := svc.CreateSession(ctx, "blitz")
//	if err != nil {
//		return err
//	}
//
//	svc.SelectReserve(ctx, info.ID, 0)
//	res, err := svc.SelectCell(ctx, info.ID, 1, 1)
//
// Rule violations are not errors. They come back as a CommandResult with
// Rejected set. Errors are reserved for unknown sessions, out-of-range
// coordinates and commands sent after the game ended.
package service
