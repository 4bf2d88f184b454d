package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unidash/internal/analytics"
	"unidash/internal/config"
	"unidash/internal/dashboard"
	"unidash/internal/dataset"
	apierrors "unidash/internal/errors"
	"unidash/internal/middleware"
)

type renderFunc func(ctx context.Context, sel analytics.Selection) (*dashboard.Dashboard, error)

func (f renderFunc) Render(ctx context.Context, sel analytics.Selection) (*dashboard.Dashboard, error) {
	return f(ctx, sel)
}

func testTable() *dataset.Table {
	return dataset.NewTable([]dataset.Record{
		{Year: 2020, Term: "Fall", Applications: 100, Admitted: 50, Enrolled: 40, EngineeringEnrolled: 40,
			RetentionRate: 0.8, StudentSatisfaction: 0.7},
		{Year: 2021, Term: "Spring", Applications: 120, Admitted: 60, Enrolled: 45, ArtsEnrolled: 45,
			RetentionRate: 0.9, StudentSatisfaction: 0.75},
	})
}

type testServer struct {
	hub    *Hub
	server *httptest.Server
	cancel context.CancelFunc
}

func newTestServer(t *testing.T, renderer Renderer, origins ...string) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eh := apierrors.NewErrorHandler(logger, false)

	cfg := config.WebSocketConfig{ReadBufferSize: 1024, WriteBufferSize: 1024, PongWait: 5 * time.Second, MaxMessageSize: 4096}
	hub := NewHub(renderer, middleware.NewSelectionValidator(logger, eh), cfg, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(NewHandler(hub, cfg, origins, logger, eh))
	ts := &testServer{hub: hub, server: srv, cancel: cancel}
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return ts
}

func (ts *testServer) dial(t *testing.T, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	msg := readMessage(t, conn)
	require.Equal(t, TypeConnection, msg.Type)
	return conn
}

type received struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
	Error     *ErrorInfo      `json:"error"`
}

func readMessage(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg received
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func buildRenderer() Renderer {
	table := testTable()
	return renderFunc(func(ctx context.Context, sel analytics.Selection) (*dashboard.Dashboard, error) {
		return dashboard.Build(table, sel), nil
	})
}

func TestSelectRequests(t *testing.T) {
	ts := newTestServer(t, buildRenderer())
	conn := ts.dial(t, nil)

	tests := []struct {
		name     string
		request  string
		wantType string
		wantCode string
		wantMode string
	}{
		{name: "all", request: `{"type":"select","id":"1"}`, wantType: TypeDashboard, wantMode: "all_years_all_terms"},
		{name: "string year", request: `{"type":"select","id":"2","year":"2021","term":"Spring"}`, wantType: TypeDashboard, wantMode: "up_to_year_single_term"},
		{name: "numeric year", request: `{"type":"select","id":"3","year":2020}`, wantType: TypeDashboard, wantMode: "up_to_year_all_terms"},
		{name: "punctuated term", request: `{"type":"select","id":"6","term":"Fall/Winter"}`, wantType: TypeDashboard, wantMode: "all_years_single_term"},
		{name: "invalid year", request: `{"type":"select","id":"4","year":"twenty"}`, wantType: TypeError, wantCode: "VALIDATION_FAILED"},
		{name: "unknown type", request: `{"type":"subscribe","id":"5"}`, wantType: TypeError, wantCode: "VALIDATION_FAILED"},
		{name: "malformed", request: `{"type":`, wantType: TypeError, wantCode: "INVALID_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(tt.request)))
			msg := readMessage(t, conn)

			assert.Equal(t, tt.wantType, msg.Type)
			if tt.wantCode != "" {
				require.NotNil(t, msg.Error)
				assert.Equal(t, tt.wantCode, msg.Error.Code)
				return
			}

			var d struct {
				Mode string `json:"mode"`
			}
			require.NoError(t, json.Unmarshal(msg.Data, &d))
			assert.Equal(t, tt.wantMode, d.Mode)
		})
	}
}

func TestHeartbeatIsIgnored(t *testing.T) {
	ts := newTestServer(t, buildRenderer())
	conn := ts.dial(t, nil)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"heartbeat"}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"select","id":"after"}`)))

	msg := readMessage(t, conn)
	assert.Equal(t, TypeDashboard, msg.Type)
	assert.Equal(t, "after", msg.RequestID)
}

func TestRenderFailure(t *testing.T) {
	ts := newTestServer(t, renderFunc(func(ctx context.Context, sel analytics.Selection) (*dashboard.Dashboard, error) {
		return nil, errors.New("boom")
	}))
	conn := ts.dial(t, nil)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"select","id":"x"}`)))
	msg := readMessage(t, conn)
	assert.Equal(t, TypeError, msg.Type)
	assert.Equal(t, "x", msg.RequestID)
	require.NotNil(t, msg.Error)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", msg.Error.Code)
	assert.NotContains(t, msg.Error.Message, "boom")
}

func TestClientCountAndBroadcast(t *testing.T) {
	ts := newTestServer(t, buildRenderer())
	first := ts.dial(t, nil)
	second := ts.dial(t, nil)

	assert.Equal(t, 2, ts.hub.ClientCount())

	require.NoError(t, ts.hub.Broadcast(map[string]string{"status": "reloaded"}))
	for _, conn := range []*websocket.Conn{first, second} {
		msg := readMessage(t, conn)
		assert.Equal(t, TypeStatus, msg.Type)
		assert.JSONEq(t, `{"status":"reloaded"}`, string(msg.Data))
	}

	first.Close()
	assert.Eventually(t, func() bool { return ts.hub.ClientCount() == 1 }, 3*time.Second, 10*time.Millisecond)
}

func TestStopClosesClients(t *testing.T) {
	ts := newTestServer(t, buildRenderer())
	conn := ts.dial(t, nil)

	ts.hub.Stop()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	assert.Eventually(t, func() bool { return ts.hub.ClientCount() == 0 }, 3*time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, ts.hub.Broadcast("late"), ErrHubStopped)
}

func TestOriginCheck(t *testing.T) {
	ts := newTestServer(t, buildRenderer(), "http://allowed.example")
	url := "ws" + strings.TrimPrefix(ts.server.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn := ts.dial(t, http.Header{"Origin": {"http://allowed.example"}})
	assert.NotNil(t, conn)
}

func TestSelectorValueUnmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"year":"All"}`, "All"},
		{`{"year":2022}`, "2022"},
		{`{"year":null}`, ""},
		{`{}`, ""},
	}
	for _, tt := range tests {
		var req Request
		require.NoError(t, json.Unmarshal([]byte(tt.in), &req))
		assert.Equal(t, tt.want, string(req.Year), tt.in)
	}

	var req Request
	assert.Error(t, json.Unmarshal([]byte(`{"year":true}`), &req))
}
