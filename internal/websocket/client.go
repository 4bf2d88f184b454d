package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"unidash/internal/config"
	apierrors "unidash/internal/errors"
	"unidash/internal/infrastructure"
	"unidash/internal/middleware"
)

const sendBuffer = 32

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub  *Hub
	conn Connection

	// Buffered channel of outbound messages
	send chan []byte

	id          string
	traceID     string
	remoteAddr  string
	connectedAt time.Time
	logger      *slog.Logger
}

// NewClient creates a client for conn. traceID correlates its logs with the
// upgrade request.
func NewClient(hub *Hub, conn Connection, traceID string) *Client {
	id := uuid.New().String()
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		id:          id,
		traceID:     traceID,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		logger: hub.logger.With(
			slog.String("component", "websocket.client"),
			slog.String("client_id", id)),
	}
}

func (c *Client) context() context.Context {
	ctx := context.Background()
	if c.traceID != "" {
		ctx = infrastructure.WithTraceID(ctx, c.traceID)
	}
	return ctx
}

// ReadPump reads requests until the connection closes. Each select request
// is answered with a dashboard or error message on the same connection.
func (c *Client) ReadPump() {
	defer func() {
		c.logger.InfoContext(c.context(), "WebSocket client disconnected",
			slog.Duration("connection_duration", time.Since(c.connectedAt)))
		c.hub.leave(c)
		c.conn.Close()
	}()

	pongWait := c.hub.cfg.PongWait
	c.conn.SetReadLimit(c.hub.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.ErrorContext(c.context(), "Unexpected WebSocket close error",
					slog.String("error", err.Error()))
			}
			return
		}
		c.handle(message)
	}
}

func (c *Client) handle(raw []byte) {
	ctx := c.context()

	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		c.hub.metrics.RecordWebSocketMessage(ctx, "in", "invalid")
		c.enqueue(errorMessage("", apierrors.InvalidRequestWithError(err)))
		return
	}
	c.hub.metrics.RecordWebSocketMessage(ctx, "in", req.Type)

	switch req.Type {
	case TypeHeartbeat:
		// pong handler already extends the read deadline
		c.logger.DebugContext(ctx, "Heartbeat received")

	case TypeSelect:
		sel, err := c.hub.parser.Parse(middleware.SelectionQuery{Year: string(req.Year), Term: string(req.Term)})
		if err != nil {
			c.enqueue(errorMessage(req.ID, err))
			return
		}

		rctx, cancel := context.WithTimeout(ctx, config.WebSocketWriteWait)
		defer cancel()
		d, err := c.hub.renderer.Render(rctx, sel)
		if err != nil {
			c.logger.WarnContext(ctx, "Render failed",
				slog.String("selection", sel.String()),
				slog.String("error", err.Error()))
			c.enqueue(errorMessage(req.ID, err))
			return
		}
		c.enqueue(newMessage(TypeDashboard, req.ID, d))

	default:
		c.enqueue(errorMessage(req.ID,
			apierrors.ErrValidation("type", fmt.Sprintf("unsupported message type %q", req.Type))))
	}
}

func (c *Client) enqueue(msg Message) {
	b, err := json.Marshal(msg)
	if err != nil {
		c.logger.ErrorContext(c.context(), "Failed to encode message",
			slog.String("type", msg.Type),
			slog.String("error", err.Error()))
		return
	}
	c.enqueueRaw(b, msg.Type)
}

func (c *Client) enqueueRaw(b []byte, msgType string) {
	if !c.hub.deliver(c, b) {
		c.logger.WarnContext(c.context(), "Dropping message for client",
			slog.String("type", msgType))
		return
	}
	c.hub.metrics.RecordWebSocketMessage(c.context(), "out", msgType)
}

// WritePump writes queued messages and pings to the connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.hub.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(config.WebSocketWriteWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.ErrorContext(c.context(), "Error writing message to WebSocket",
					slog.String("error", err.Error()))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(config.WebSocketWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.DebugContext(c.context(), "Failed to send ping message",
					slog.String("error", err.Error()))
				return
			}
		}
	}
}
