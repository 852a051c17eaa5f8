package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wricardo/gobblets/game/engine"
	"github.com/wricardo/gobblets/game/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Time allowed for one inbound command.
	commandTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		return true
	},
}

// Option configures a Hub
type Option func(*Hub)

// WithLogger sets the hub logger
func WithLogger(logger *zap.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithPreviewDelay sets how long a cell must stay hovered before its stack
// is previewed
func WithPreviewDelay(d time.Duration) Option {
	return func(h *Hub) { h.previewDelay = d }
}

// Hub maintains the set of active clients and broadcasts messages. It
// implements service.Notifier.
type Hub struct {
	service      service.GameService
	logger       *zap.Logger
	previewDelay time.Duration

	// Registered clients by session ID
	sessions map[string]map[*Client]bool
	mu       sync.RWMutex

	// Outbound messages for every client of a session
	broadcast chan *Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done     chan struct{}
	doneOnce sync.Once
}

// NewHub creates a new WebSocket hub
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		logger:       zap.NewNop(),
		previewDelay: engine.DefaultPreviewDelay,
		sessions:     make(map[string]map[*Client]bool),
		broadcast:    make(chan *Message, 256),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetService lets clients issue commands against svc. It must be called
// before the hub serves connections.
func (h *Hub) SetService(svc service.GameService) {
	h.service = svc
}

// Run starts the hub's event loop and blocks until ctx is done. Every
// client is disconnected on return.
func (h *Hub) Run(ctx context.Context) error {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

func (h *Hub) shutdown() {
	h.doneOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	defer h.mu.Unlock()
	for sessionID, clients := range h.sessions {
		for client := range clients {
			client.close()
		}
		delete(h.sessions, sessionID)
	}
}

// ServeWS handles WebSocket requests from clients. With a service attached
// the session must exist, and the client immediately receives its state.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	var info *service.SessionInfo
	if h.service != nil {
		var err error
		info, err = h.service.GetSession(r.Context(), sessionID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		// Use the canonical ID so broadcasts match
		sessionID = info.ID
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(h, conn, sessionID)
	if info != nil && info.GameConfig != nil && info.GameConfig.StackPreview {
		client.enablePreview(h.previewDelay)
	}

	if info != nil {
		state := info.GameState
		client.trySend(&Message{SessionID: sessionID, Event: EventStateUpdate, GameState: &state})
	}

	select {
	case h.register <- client:
	case <-h.done:
		client.close()
		conn.Close()
		return
	}

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

// NotifyUpdate broadcasts a published engine update to the session
func (h *Hub) NotifyUpdate(sessionID string, snapshot engine.Snapshot, update engine.ClientUpdate) {
	h.enqueue(&Message{
		SessionID: sessionID,
		Event:     EventStateUpdate,
		GameState: &snapshot,
		Update:    &update,
	})
}

// NotifyClock broadcasts the clocks after a tick
func (h *Hub) NotifyClock(sessionID string, snapshot engine.Snapshot) {
	h.enqueue(&Message{
		SessionID: sessionID,
		Event:     EventClock,
		GameState: &snapshot,
	})
}

// CloseSession tells every client of a session that it ended and drops them
func (h *Hub) CloseSession(sessionID string) {
	data, err := json.Marshal(&Message{SessionID: sessionID, Event: EventSessionClosed})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.sessions[sessionID] {
		client.trySendRaw(data)
		client.close()
	}
	delete(h.sessions, sessionID)
}

// ClientCount returns the number of clients connected to a session
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// enqueue hands message to the event loop. It is a no-op once Run returned.
func (h *Hub) enqueue(message *Message) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

// registerClient adds a client to a session
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sessions[client.sessionID] == nil {
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true

	h.logger.Debug("client registered",
		zap.String("session", client.sessionID),
		zap.String("client", client.id),
		zap.Int("clients", len(h.sessions[client.sessionID])),
	)
}

// unregisterClient removes a client from a session
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.sessions[client.sessionID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	client.close()

	// Clean up empty sessions
	if len(clients) == 0 {
		delete(h.sessions, client.sessionID)
	}

	h.logger.Debug("client unregistered",
		zap.String("session", client.sessionID),
		zap.String("client", client.id),
		zap.Int("remaining", len(clients)),
	)
}

// broadcastMessage sends a message to all clients in a session
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal broadcast message", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.sessions[message.SessionID] {
		if !client.trySendRaw(data) {
			// Client's send channel is full, drop it
			h.removeLocked(client)
		}
	}
}

// leave asks the event loop to unregister client
func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func newClientID() string {
	return uuid.NewString()
}
