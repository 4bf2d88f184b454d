package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"unidash/internal/analytics"
	"unidash/internal/config"
	"unidash/internal/dashboard"
	"unidash/internal/infrastructure"
	"unidash/internal/middleware"
)

// ErrHubStopped is returned when a client tries to join a stopped hub.
var ErrHubStopped = errors.New("websocket hub stopped")

// Renderer produces a dashboard for a selection.
type Renderer interface {
	Render(ctx context.Context, sel analytics.Selection) (*dashboard.Dashboard, error)
}

// SelectionParser validates raw selector values.
type SelectionParser interface {
	Parse(q middleware.SelectionQuery) (analytics.Selection, error)
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	renderer Renderer
	parser   SelectionParser
	cfg      config.WebSocketConfig
	metrics  *infrastructure.DashboardMetrics
	logger   *slog.Logger

	done     chan struct{}
	stopOnce sync.Once
}

// NewHub creates a hub. Run must be started before clients can join.
func NewHub(renderer Renderer, parser SelectionParser, cfg config.WebSocketConfig, metrics *infrastructure.DashboardMetrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = config.WebSocketPongWait
	}
	if cfg.PingPeriod <= 0 || cfg.PingPeriod >= cfg.PongWait {
		cfg.PingPeriod = (cfg.PongWait * 9) / 10
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 4096
	}

	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		renderer:   renderer,
		parser:     parser,
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger.With(slog.String("component", "websocket.hub")),
		done:       make(chan struct{}),
	}
}

// Run is the hub's main loop. It returns when ctx is done or Stop is
// called, closing every client.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Hub shutting down", slog.String("reason", ctx.Err().Error()))
			return

		case <-h.done:
			h.logger.Info("Hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()

			cctx := client.context()
			h.metrics.RecordWebSocketClient(cctx, 1)
			h.logger.InfoContext(cctx, "Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			client.enqueue(newMessage(TypeConnection, "", map[string]interface{}{
				"status":    "connected",
				"client_id": client.id,
			}))

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			if ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()

			if ok {
				cctx := client.context()
				h.metrics.RecordWebSocketClient(cctx, -1)
				h.logger.InfoContext(cctx, "Client unregistered",
					slog.Int("total_clients", count),
					slog.String("client_id", client.id))
			}

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for c := range h.clients {
				clients = append(clients, c)
			}
			h.mu.RUnlock()

			for _, c := range clients {
				c.enqueueRaw(message, TypeStatus)
			}
		}
	}
}

func (h *Hub) shutdown() {
	h.stopOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
		h.metrics.RecordWebSocketClient(context.Background(), -1)
	}
}

// Stop ends Run. It is safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends a status message to every client. It drops the message
// when the broadcast queue is full.
func (h *Hub) Broadcast(data interface{}) error {
	b, err := json.Marshal(newMessage(TypeStatus, "", data))
	if err != nil {
		return err
	}

	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}

	select {
	case h.broadcast <- b:
	default:
		h.logger.Warn("Broadcast queue full, dropping message")
	}
	return nil
}

func (h *Hub) join(c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// deliver queues b for c unless c has already left.
func (h *Hub) deliver(c *Client, b []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[c] {
		return false
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}
