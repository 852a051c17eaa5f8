// Package websocket provides the real-time transport for Gobblets sessions.
//
// A central Hub tracks the clients connected to each session. It implements
// service.Notifier, so every update the engine publishes and every clock
// tick is pushed to the clients of that session as it happens.
//
// Message Protocol:
//
// Clients connect with ?sessionId=<id> and receive the current state at once.
// They send JSON commands:
//
//	{"type": "select_cell", "row": 1, "col": 2}
//	{"type": "select_reserve", "slot": 0}
//	{"type": "hover", "row": 1, "col": 2}
//	{"type": "unhover"}
//
// and receive Message values whose event is one of state_update, clock,
// command_result, stack_preview, session_closed or error.
//
// Stack Preview:
//
// When the session's config enables stack_preview, a cell hovered for the
// preview delay is answered with a stack_preview message listing every piece
// on it, top first. Hovering another cell, unhovering or clicking cancels a
// pending preview.
//
// Usage:
//
//	hub := websocket.NewHub(websocket.WithLogger(logger))
//	svc := service.NewGameService(sessions, configs, service.WithNotifier(hub))
//	hub.SetService(svc)
//	go hub.Run(ctx)
//
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("sessionId"))
//	})
package websocket
