package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/gobblets/game/engine"
	"github.com/wricardo/gobblets/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Gobblets",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Gobblets - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Line up four of your pieces in a row, column or diagonal on the 4x4 board.
Bigger pieces gobble (cover) smaller ones.

AVAILABLE TOOLS:
- create_session: Create new game session
- list_sessions: List all active sessions
- get_session: Get session details
- game_state: Get current board, reserves, clocks and status
- select_reserve: Click one of the active player's reserve stacks (slot 0-2)
- select_cell: Click a board cell (row/col 0-3)
- describe_cell: List every piece stacked on a cell, top first
- event_history: View past selections and placements
- list_configs: List available configurations
- game_instructions: Get the full rules

A move is two clicks: select a reserve slot or one of your board pieces,
then select the destination cell. Clicking the same source again deselects it.`),
	)

	// Register all tools
	c.registerTools()
}

func sessionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with optional config selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_name": map[string]interface{}{
					"type":        "string",
					"description": "Name of the config to use (optional), e.g. classic or blitz",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID to retrieve",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current game state",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "select_reserve",
		Description: "Select (or deselect) one of the active player's reserve stacks",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"slot": map[string]interface{}{
					"type":        "integer",
					"minimum":     0,
					"maximum":     engine.ReserveStacks - 1,
					"description": "Reserve slot",
				},
			},
			Required: []string{"session_id", "slot"},
		},
	}, c.handleSelectReserve)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "select_cell",
		Description: "Click a board cell: selects your piece there, or plays the selected piece onto it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"row": map[string]interface{}{
					"type":        "integer",
					"minimum":     0,
					"maximum":     engine.BoardSize - 1,
					"description": "Board row",
				},
				"col": map[string]interface{}{
					"type":        "integer",
					"minimum":     0,
					"maximum":     engine.BoardSize - 1,
					"description": "Board column",
				},
			},
			Required: []string{"session_id", "row", "col"},
		},
	}, c.handleSelectCell)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "List every piece stacked on a board cell, top first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"row": map[string]interface{}{
					"type":        "integer",
					"description": "Board row (0-3)",
				},
				"col": map[string]interface{}{
					"type":        "integer",
					"description": "Board column (0-3)",
				},
			},
			Required: []string{"session_id", "row", "col"},
		},
	}, c.handleDescribeCell)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "event_history",
		Description: "Get paginated event history for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number (default 1)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Events per page (default 20, max 100)",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Sort order (default desc)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleEventHistory)

	// Configuration
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available game configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the complete rules of Gobblets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Serve runs the MCP server over stdio until the input closes
func (c *Client) Serve() error {
	return server.ServeStdio(c.mcpServer)
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// arguments returns the tool arguments as a map
func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// intArg reads an integer argument; JSON numbers arrive as float64
func intArg(args map[string]interface{}, name string) (int, bool) {
	switch v := args[name].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	}
	return 0, false
}

func stringArg(args map[string]interface{}, name string) string {
	s, _ := args[name].(string)
	return s
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	configName := stringArg(arguments(request), "config_name")

	body := map[string]string{}
	if configName != "" {
		body["config_name"] = configName
	}

	var session service.SessionInfo
	err := c.apiCall(ctx, "POST", "/api/sessions", body, &session)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\n\n%s", session.ID, session.ConfigName, formatGameState(&session.GameState))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		fmt.Fprintf(&b, "- %s (Config: %s, Created: %s) %s\n",
			s.ID, s.ConfigName, s.CreatedAt.Format("15:04:05"), s.GameState.Status)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var session service.SessionInfo
	err := c.apiCall(ctx, "GET", "/api/sessions/"+url.PathEscape(sessionID), nil, &session)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var state engine.Snapshot
	err := c.apiCall(ctx, "GET", fmt.Sprintf("/api/sessions/%s/state", url.PathEscape(sessionID)), nil, &state)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleSelectReserve(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")
	slot, ok := intArg(args, "slot")
	if !ok {
		return mcp.NewToolResultError("slot is required"), nil
	}

	var result service.CommandResult
	path := fmt.Sprintf("/api/sessions/%s/reserves/%d/select", url.PathEscape(sessionID), slot)
	if err := c.apiCall(ctx, "POST", path, nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatCommandResult(&result)), nil
}

func (c *Client) handleSelectCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")
	row, okRow := intArg(args, "row")
	col, okCol := intArg(args, "col")
	if !okRow || !okCol {
		return mcp.NewToolResultError("row and col are required"), nil
	}

	var result service.CommandResult
	path := fmt.Sprintf("/api/sessions/%s/cells/%d/%d/select", url.PathEscape(sessionID), row, col)
	if err := c.apiCall(ctx, "POST", path, nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatCommandResult(&result)), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")
	row, okRow := intArg(args, "row")
	col, okCol := intArg(args, "col")
	if !okRow || !okCol {
		return mcp.NewToolResultError("row and col are required"), nil
	}

	var stack service.CellStackInfo
	path := fmt.Sprintf("/api/sessions/%s/cells/%d/%d/stack", url.PathEscape(sessionID), row, col)
	if err := c.apiCall(ctx, "GET", path, nil, &stack); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatCellStack(&stack)), nil
}

func (c *Client) handleEventHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")

	query := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		query.Set("page", fmt.Sprint(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		query.Set("limit", fmt.Sprint(limit))
	}
	if order := stringArg(args, "order"); order != "" {
		query.Set("order", order)
	}

	path := fmt.Sprintf("/api/sessions/%s/history", url.PathEscape(sessionID))
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, config := range configs {
		preview := "off"
		if config.StackPreview {
			preview = "on"
		}
		fmt.Fprintf(&b, "• %s (%s)\n  %s\n  Time limit: %s, Stack preview: %s\n\n",
			config.Name, config.ConfigID, config.Description, config.TimeLimit, preview)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `Gobblets - Complete Instructions

GAME OBJECTIVE:
Be the first to have four of your pieces visible in a row, a column or one of
the two main diagonals of the 4x4 board.

PIECES:
• Each player owns 12 pieces in four sizes (1 smallest, 4 largest)
• They start in three reserve stacks of 1-2-3-4, smallest on top
• Only the top piece of a reserve stack can be played

TAKING A TURN (two clicks):
1. Select a source: one of your reserve slots (select_reserve) or a board
   cell whose top piece is yours (select_cell)
2. Select the destination cell (select_cell)
Selecting the same source again cancels the selection.

PLACEMENT RULES:
• A piece may go onto an empty cell or cover any strictly smaller piece
• From the board, you may cover any smaller piece, yours or your opponent's
• From a reserve, you may only cover an opponent's piece when that
  opponent already has three pieces in a line through the target cell
• Moving a piece uncovers whatever was under it

WINNING:
• After each placement, the mover's lines are checked first, then the
  opponent's: uncovering an opponent's line hands them the win
• In timed games, running out of time loses immediately

MESSAGES:
• "Invalid selection" - the cell holds no piece of yours
• "Invalid move" - the destination is illegal for the selected piece
• "Stack is empty" - that reserve stack has no pieces left

TIPS:
• Use describe_cell to see what a big piece is hiding
• Use game_state after each move; it shows whose turn it is`

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\n\n%s",
		session.ID, session.ConfigName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatGameState(&session.GameState))
}

// pieceMark renders a piece as X (first player) or O (second player)
// followed by its size
func pieceMark(p *engine.Piece) string {
	if p == nil {
		return " . "
	}
	mark := "O"
	if p.Owner == engine.FirstPlayerID {
		mark = "X"
	}
	return fmt.Sprintf("%s%d ", mark, p.Size)
}

func formatGameState(state *engine.Snapshot) string {
	if state == nil {
		return "No game state available"
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Status: %s | Moves: %d | Phase: %s\n", state.Status, state.Moves, state.Phase)
	if clock := state.Clock(); clock != "" {
		fmt.Fprintf(&b, "Clock: %s\n", clock)
	}
	if state.Selection != nil {
		if state.Selection.Location == engine.LocationReserve {
			fmt.Fprintf(&b, "Selected: reserve slot %d\n", state.Selection.Slot)
		} else {
			fmt.Fprintf(&b, "Selected: cell (%d,%d)\n", state.Selection.Row, state.Selection.Col)
		}
	}

	b.WriteString("\n    0   1   2   3\n")
	for r := 0; r < engine.BoardSize; r++ {
		fmt.Fprintf(&b, "%d  ", r)
		for col := 0; col < engine.BoardSize; col++ {
			cell := state.Board[r][col]
			b.WriteString(pieceMark(cell.Top))
			if cell.Height > 1 {
				b.WriteString("+")
			} else {
				b.WriteString(" ")
			}
		}
		b.WriteString("\n")
	}
	b.WriteString("(X = first player, O = second player, + = pieces underneath)\n\n")

	for _, p := range state.Players {
		marker := " "
		if p.ID == state.Active && !state.GameOver() {
			marker = ">"
		}
		fmt.Fprintf(&b, "%s %s (%s) reserves:", marker, p.Name, p.ID)
		for _, r := range p.Reserves {
			fmt.Fprintf(&b, " [%d] %s", r.Slot, strings.TrimSpace(pieceMark(r.Top)))
		}
		fmt.Fprintf(&b, " | on board: %d", p.PiecesOnBoard)
		if p.Timed {
			fmt.Fprintf(&b, " | time: %s", p.Time)
		}
		b.WriteString("\n")
	}

	if state.GameOver() {
		fmt.Fprintf(&b, "\nGAME OVER - winner: %s (%s)\n", state.Winner, state.WinReason)
	}

	return b.String()
}

func formatCommandResult(result *service.CommandResult) string {
	status := "✓"
	if result.Rejected {
		status = "✗"
	}
	return fmt.Sprintf("%s %s\n\n%s", status, result.Message, formatGameState(&result.GameState))
}

func formatCellStack(stack *service.CellStackInfo) string {
	if stack.Height == 0 {
		return fmt.Sprintf("Cell (%d,%d) is empty", stack.Row, stack.Col)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Cell (%d,%d) holds %d piece(s), top first:\n", stack.Row, stack.Col, stack.Height)
	for i, p := range stack.Pieces {
		fmt.Fprintf(&b, "%d. %s size %d\n", i+1, p.Owner, p.Size)
	}
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Event History (Page %d/%d) - Total: %d\n\n",
		history.Page, history.TotalPages, history.TotalEvents)

	for _, event := range history.Events {
		player := string(event.Player)
		if player == "" {
			player = "-"
		}
		fmt.Fprintf(&b, "#%d [%s] %s: %s (moves: %d)\n",
			event.Seq, event.Type, player, event.Message, event.Moves)
	}

	return b.String()
}
