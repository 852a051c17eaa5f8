// Package api provides HTTP REST API handlers for the Gobblets server.
//
// The api package implements:
//   - Session management endpoints
//   - Board and reserve selection commands
//   - Cell stack inspection and event history
//   - Time-control preset listing and creation
//   - The finished match archive
//   - WebSocket upgrade handling
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create new session ({"config_id": "blitz"})
//   - GET /api/sessions - List sessions (sort=created|accessed, order, limit)
//   - GET /api/sessions/{id} - Get specific session
//   - DELETE /api/sessions/{id} - Close a session and stop its clock
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Current snapshot
//   - POST /api/sessions/{id}/reserves/{slot}/select - Select a reserve stack (slot 0-2)
//   - POST /api/sessions/{id}/cells/{row}/{col}/select - Select or play onto a cell (0-3)
//   - GET /api/sessions/{id}/cells/{row}/{col}/stack - Every piece on a cell, top first
//   - GET /api/sessions/{id}/history - Event log with pagination
//
// Configuration:
//   - GET /api/configs - List presets
//   - GET /api/configs/{name} - Get one preset
//   - POST /api/configs - Save a preset
//
// Results:
//   - GET /api/results - Archived outcomes, newest first
//
// Other:
//   - GET /health
//   - GET /ws?session={id} - WebSocket stream for one session
//
// A rejected selection is not an HTTP error: the command returns 200 with
// "rejected": true and the rule message ("Invalid move", "Stack is empty"...).
//
// Error Handling:
//
// Errors are returned as JSON:
//
//	{"error": "session not found: ab12"}
//
// with 400 for malformed or out-of-bounds coordinates and invalid presets,
// 404 for unknown sessions or presets, 409 once the game is over and 500
// otherwise.
package api
