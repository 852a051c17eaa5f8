// Package mcp provides a Model Context Protocol server for the Gobblets server.
//
// The server does not hold game state itself. Every tool proxies to the
// REST API so agents, browsers and WebSocket clients all see the same
// sessions.
//
// MCP Tools:
//   - create_session: Create a session from a time-control preset
//   - list_sessions: List active sessions
//   - get_session: Get specific session details
//   - game_state: Board, reserves, clocks and whose turn it is
//   - select_reserve: Pick up the top piece of a reserve stack
//   - select_cell: Select a board piece or place the selected piece
//   - describe_cell: List every piece stacked on a cell
//   - event_history: Paginated event log
//   - list_configs: List presets
//   - game_instructions: Full rules
//
// Transport Modes:
//   - Stdio: Serve() for local MCP clients
//   - HTTP: GetMCPServer().HandleMessage from the /mcp endpoint
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := client.Serve(); err != nil {
//		log.Fatal(err)
//	}
package mcp
