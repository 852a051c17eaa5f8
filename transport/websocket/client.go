package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wricardo/gobblets/game/engine"
	"github.com/wricardo/gobblets/game/service"
)

var errNoService = errors.New("commands are not available on this connection")

// Client represents a WebSocket client
type Client struct {
	id        string
	hub       *Hub
	conn      *websocket.Conn
	sessionID string
	preview   *engine.Previewer

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(h *Hub, conn *websocket.Conn, sessionID string) *Client {
	return &Client{
		id:        newClientID(),
		hub:       h,
		conn:      conn,
		sessionID: sessionID,
		send:      make(chan []byte, 256),
	}
}

// enablePreview turns on delayed stack previews for hovered cells
func (c *Client) enablePreview(delay time.Duration) {
	if c.hub.service == nil {
		return
	}
	src := &sessionStacks{svc: c.hub.service, sessionID: c.sessionID}
	c.preview = engine.NewPreviewer(src, delay, func(cell engine.Cell, pieces []engine.Piece) {
		c.trySend(&Message{
			SessionID: c.sessionID,
			Event:     EventStackPreview,
			Preview:   &StackPreview{Row: cell.Row, Col: cell.Col, Pieces: pieces},
		})
	})
}

// trySend queues message without blocking
func (c *Client) trySend(message *Message) bool {
	data, err := json.Marshal(message)
	if err != nil {
		c.hub.logger.Error("failed to marshal message", zap.Error(err))
		return false
	}
	return c.trySendRaw(data)
}

func (c *Client) trySendRaw(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// close stops previews and closes the send channel. It is idempotent.
func (c *Client) close() {
	if c.preview != nil {
		c.preview.Close()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump pumps commands from the WebSocket connection to the service
func (c *Client) readPump() {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read failed",
					zap.String("session", c.sessionID), zap.String("client", c.id), zap.Error(err))
			}
			break
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.sendError(fmt.Errorf("invalid command: %w", err))
			continue
		}
		c.handle(ctx, cmd)
	}
}

// handle runs one inbound command
func (c *Client) handle(ctx context.Context, cmd Command) {
	switch cmd.Type {
	case CommandHover:
		if c.preview == nil {
			return
		}
		if err := c.preview.Start(cmd.Row, cmd.Col); err != nil {
			c.sendError(err)
		}
		return

	case CommandUnhover:
		if c.preview != nil {
			c.preview.Cancel()
		}
		return
	}

	if c.hub.service == nil {
		c.sendError(errNoService)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	var result *service.CommandResult
	var err error
	switch cmd.Type {
	case CommandSelectCell:
		if c.preview != nil {
			c.preview.Cancel()
		}
		result, err = c.hub.service.SelectCell(ctx, c.sessionID, cmd.Row, cmd.Col)
	case CommandSelectReserve:
		result, err = c.hub.service.SelectReserve(ctx, c.sessionID, cmd.Slot)
	default:
		err = fmt.Errorf("unknown command type %q", cmd.Type)
	}

	if err != nil {
		c.sendError(err)
		return
	}
	c.trySend(&Message{SessionID: c.sessionID, Event: EventCommandResult, Result: result})
}

func (c *Client) sendError(err error) {
	c.trySend(&Message{SessionID: c.sessionID, Event: EventError, Error: err.Error()})
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sessionStacks reads cell stacks of one session through the service
type sessionStacks struct {
	svc       service.GameService
	sessionID string
}

func (s *sessionStacks) CellStack(row, col int) ([]engine.Piece, error) {
	info, err := s.svc.GetCellStack(context.Background(), s.sessionID, row, col)
	if err != nil {
		return nil, err
	}
	return info.Pieces, nil
}
