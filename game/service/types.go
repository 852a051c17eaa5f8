package service

import (
	"time"

	"github.com/wricardo/gobblets/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	GameState      engine.Snapshot    `json:"game_state"`
	GameConfig     *engine.GameConfig `json:"game_config"`
}

// CommandResult contains the outcome of a selection command
type CommandResult struct {
	Message   string          `json:"message"`
	Rebuild   bool            `json:"rebuild"`
	Rejected  bool            `json:"rejected"`
	GameOver  bool            `json:"game_over"`
	GameState engine.Snapshot `json:"game_state"`
}

// CellStackInfo lists every piece on one board cell, top first
type CellStackInfo struct {
	Row    int            `json:"row"`
	Col    int            `json:"col"`
	Pieces []engine.Piece `json:"pieces"`
	Height int            `json:"height"`
}

// Event types recorded in a session's history
const (
	EventSelection   = "selection"
	EventDeselection = "deselection"
	EventPlacement   = "placement"
	EventRejected    = "rejected"
	EventTimeout     = "timeout"
	EventGameOver    = "game_over"
)

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Seq       int             `json:"seq"`
	Type      string          `json:"type"`
	Message   string          `json:"message"`
	Player    engine.PlayerID `json:"player,omitempty"`
	Moves     int             `json:"moves"`
	Timestamp time.Time       `json:"timestamp"`
}

// HistoryOptions configures event history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated event history
type HistoryResponse struct {
	Events      []GameEvent `json:"events"`
	TotalEvents int         `json:"total_events"`
	Page        int         `json:"page"`
	PageSize    int         `json:"page_size"`
	TotalPages  int         `json:"total_pages"`
	HasNext     bool        `json:"has_next"`
	HasPrevious bool        `json:"has_previous"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	Filename     string `json:"filename"`
	ConfigID     string `json:"config_id"` // The identifier to use for session creation
	Name         string `json:"name"`
	Description  string `json:"description"`
	TimeLimit    string `json:"time_limit"`
	Timed        bool   `json:"timed"`
	StackPreview bool   `json:"stack_preview"`
}

// MatchResult is the archived outcome of a finished match
type MatchResult struct {
	ID         string           `json:"id"`
	SessionID  string           `json:"session_id"`
	ConfigName string           `json:"config_name"`
	TimeLimit  string           `json:"time_limit"`
	Players    [2]string        `json:"players"`
	Winner     engine.PlayerID  `json:"winner"`
	WinnerName string           `json:"winner_name"`
	Reason     engine.WinReason `json:"reason"`
	Moves      int              `json:"moves"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

// Duration returns how long the match lasted
func (r *MatchResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
