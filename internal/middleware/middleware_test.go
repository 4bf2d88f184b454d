package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unidash/internal/analytics"
	apierrors "unidash/internal/errors"
	"unidash/internal/infrastructure"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		assert.Equal(t, seen, infrastructure.GetTraceID(r.Context()))
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get("X-Request-ID"))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, "abc-123", seen)
}

func TestRateLimiter(t *testing.T) {
	eh := apierrors.NewErrorHandler(testLogger(), false)
	rl := NewRateLimiter(0.001, 1, testLogger(), eh)
	h := rl.Handler(okHandler)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestTimeout(t *testing.T) {
	h := Timeout(10 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok := r.Context().Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, time.Second)
		<-r.Context().Done()
		assert.ErrorIs(t, r.Context().Err(), context.DeadlineExceeded)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestCORS(t *testing.T) {
	h := CORS(CORSConfig{AllowedOrigins: []string{"http://localhost:8080"}})(okHandler)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Origin", "http://localhost:8080")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, "http://localhost:8080", w.Header().Get("Access-Control-Allow-Origin"))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSecurityHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	SecurityHeaders(okHandler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "img-src 'self'")
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestSelectionValidator(t *testing.T) {
	sv := NewSelectionValidator(testLogger(), apierrors.NewErrorHandler(testLogger(), false))

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantSel    analytics.Selection
		wantField  string
	}{
		{name: "no params", query: "", wantStatus: http.StatusOK, wantSel: analytics.Selection{}},
		{name: "explicit all", query: "?year=all&term=All", wantStatus: http.StatusOK, wantSel: analytics.Selection{}},
		{
			name:       "year and term",
			query:      "?year=2021&term=Fall",
			wantStatus: http.StatusOK,
			wantSel:    analytics.Selection{Year: analytics.Year(2021), Term: analytics.Term("Fall")},
		},
		{name: "bad year", query: "?year=last", wantStatus: http.StatusBadRequest, wantField: "year"},
		{
			name:       "term with underscore",
			query:      "?term=Summer_1",
			wantStatus: http.StatusOK,
			wantSel:    analytics.Selection{Term: analytics.Term("Summer_1")},
		},
		{
			name:       "term with slash",
			query:      "?term=Fall%2FWinter",
			wantStatus: http.StatusOK,
			wantSel:    analytics.Selection{Term: analytics.Term("Fall/Winter")},
		},
		{
			name:       "term with parentheses",
			query:      "?year=2022&term=Spring+%28Online%29",
			wantStatus: http.StatusOK,
			wantSel:    analytics.Selection{Year: analytics.Year(2022), Term: analytics.Term("Spring (Online)")},
		},
		{name: "control character in term", query: "?term=Fall%0A", wantStatus: http.StatusBadRequest, wantField: "term"},
		{name: "long term", query: "?term=" + strings.Repeat("A", 40), wantStatus: http.StatusBadRequest, wantField: "term"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got analytics.Selection
			var called bool
			h := sv.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				var ok bool
				got, ok = SelectionFromContext(r.Context())
				assert.True(t, ok)
			}))

			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dashboard"+tt.query, nil))
			assert.Equal(t, tt.wantStatus, w.Code)

			if tt.wantStatus == http.StatusOK {
				require.True(t, called)
				assert.Equal(t, tt.wantSel, got)
				return
			}
			assert.False(t, called)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Contains(t, w.Body.String(), `"field":"`+tt.wantField+`"`)
		})
	}
}

func TestOTelMiddlewareRecordsRoute(t *testing.T) {
	providers, err := infrastructure.InitializeOTel(&infrastructure.OTelConfig{
		ServiceName:    "unidash-test",
		EnableMetrics:  true,
		MetricExporter: "prometheus",
	}, testLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := infrastructure.CreateDashboardMetrics(providers.Meter)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(NewOTelMiddleware(providers, metrics).Handler)
	r.Get("/api/dashboard/charts/{chart}", okHandler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dashboard/charts/enrollment.svg", nil))
	require.Equal(t, http.StatusOK, w.Code)

	scrape := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, scrape.Body.String(), `route="/api/dashboard/charts/{chart}"`)
}
