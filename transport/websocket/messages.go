package websocket

import (
	"github.com/wricardo/gobblets/game/engine"
	"github.com/wricardo/gobblets/game/service"
)

// Outbound events
const (
	EventStateUpdate   = "state_update"
	EventClock         = "clock"
	EventStackPreview  = "stack_preview"
	EventCommandResult = "command_result"
	EventSessionClosed = "session_closed"
	EventError         = "error"
)

// Inbound command types
const (
	CommandSelectCell    = "select_cell"
	CommandSelectReserve = "select_reserve"
	CommandHover         = "hover"
	CommandUnhover       = "unhover"
)

// Message represents a WebSocket message sent to clients
type Message struct {
	SessionID string                 `json:"session_id"`
	Event     string                 `json:"event"`
	GameState *engine.Snapshot       `json:"game_state,omitempty"`
	Update    *engine.ClientUpdate   `json:"update,omitempty"`
	Result    *service.CommandResult `json:"result,omitempty"`
	Preview   *StackPreview          `json:"preview,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// StackPreview lists the pieces of a hovered cell, top first
type StackPreview struct {
	Row    int            `json:"row"`
	Col    int            `json:"col"`
	Pieces []engine.Piece `json:"pieces"`
}

// Command is a request sent by a client
type Command struct {
	Type string `json:"type"`
	Row  int    `json:"row"`
	Col  int    `json:"col"`
	Slot int    `json:"slot"`
}
