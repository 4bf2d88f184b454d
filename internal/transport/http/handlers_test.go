package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"unidash/internal/analytics"
	"unidash/internal/charts"
	"unidash/internal/dashboard"
	"unidash/internal/dataset"
	apierrors "unidash/internal/errors"
	"unidash/internal/services"
	"unidash/internal/shared/testutil"
)

// mockDashboardProvider is a mock implementation of DashboardProvider
type mockDashboardProvider struct {
	mock.Mock
}

func (m *mockDashboardProvider) Options(ctx context.Context) dashboard.Options {
	return m.Called(ctx).Get(0).(dashboard.Options)
}

func (m *mockDashboardProvider) Summary(ctx context.Context) dashboard.Summary {
	return m.Called(ctx).Get(0).(dashboard.Summary)
}

func (m *mockDashboardProvider) Render(ctx context.Context, sel analytics.Selection) (*dashboard.Dashboard, error) {
	args := m.Called(ctx, sel)
	if d := args.Get(0); d != nil {
		return d.(*dashboard.Dashboard), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDashboardProvider) Chart(ctx context.Context, sel analytics.Selection, name string, format charts.Format) ([]byte, error) {
	args := m.Called(ctx, sel, name, format)
	if b := args.Get(0); b != nil {
		return b.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDashboardProvider) ExportCSV(ctx context.Context, sel analytics.Selection, view string, w io.Writer) error {
	args := m.Called(ctx, sel, view, w)
	if args.Error(0) == nil {
		io.WriteString(w, "Year,Enrolled\n2020,150\n")
	}
	return args.Error(0)
}

func (m *mockDashboardProvider) ExportWorkbook(ctx context.Context, sel analytics.Selection, w io.Writer) error {
	args := m.Called(ctx, sel, w)
	if args.Error(0) == nil {
		io.WriteString(w, "PK")
	}
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleTable() *dataset.Table {
	return dataset.NewTable([]dataset.Record{
		{Year: 2019, Term: "Spring", Applications: 100, Admitted: 50, Enrolled: 40,
			EngineeringEnrolled: 10, BusinessEnrolled: 10, ArtsEnrolled: 10, ScienceEnrolled: 10,
			RetentionRate: 0.8, StudentSatisfaction: 0.7},
		{Year: 2020, Term: "Fall", Applications: 120, Admitted: 60, Enrolled: 45,
			EngineeringEnrolled: 15, BusinessEnrolled: 10, ArtsEnrolled: 10, ScienceEnrolled: 10,
			RetentionRate: 0.9, StudentSatisfaction: 0.75},
	})
}

func newDashboardRouter(svc DashboardProvider) http.Handler {
	logger := testLogger()
	eh := apierrors.NewErrorHandler(logger, false)
	r := chi.NewRouter()
	r.Mount("/api/dashboard", NewDashboardHandler(svc, logger, eh).Routes())
	r.Handle("/", NewPageHandler(svc, logger, eh))
	return r
}

func decodeBody(t *testing.T, body *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body.Bytes(), &out))
	return out
}

func TestDashboardHandler_GetDashboard(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantSel analytics.Selection
	}{
		{name: "defaults to all", query: "", wantSel: analytics.Selection{}},
		{name: "explicit all", query: "?year=All&term=all", wantSel: analytics.Selection{}},
		{name: "year and term", query: "?year=2020&term=Fall",
			wantSel: analytics.Selection{Year: analytics.Year(2020), Term: analytics.Term("Fall")}},
		{name: "term with punctuation", query: "?term=Spring+%28Online%29",
			wantSel: analytics.Selection{Term: analytics.Term("Spring (Online)")}},
		{name: "term with underscore", query: "?year=2020&term=Summer_1",
			wantSel: analytics.Selection{Year: analytics.Year(2020), Term: analytics.Term("Summer_1")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockDashboardProvider)
			d := dashboard.Build(sampleTable(), tt.wantSel)
			svc.On("Render", mock.Anything, tt.wantSel).Return(d, nil)

			w := httptest.NewRecorder()
			newDashboardRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dashboard/"+tt.query, nil))

			require.Equal(t, http.StatusOK, w.Code)
			body := decodeBody(t, w.Body)
			assert.Equal(t, "success", body["status"])
			data := body["data"].(map[string]interface{})
			assert.Equal(t, dashboard.Title, data["title"])
			assert.Equal(t, d.Mode.String(), data["mode"])
			svc.AssertExpectations(t)
		})
	}
}

func TestDashboardHandler_InvalidSelection(t *testing.T) {
	svc := new(mockDashboardProvider)

	w := httptest.NewRecorder()
	newDashboardRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dashboard/?year=twenty", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_FAILED", decodeBody(t, w.Body)["error_code"])
	svc.AssertNotCalled(t, "Render", mock.Anything, mock.Anything)
}

func TestDashboardHandler_OptionsAndSummary(t *testing.T) {
	svc := new(mockDashboardProvider)
	svc.On("Options", mock.Anything).Return(dashboard.SelectorOptions(sampleTable()))
	svc.On("Summary", mock.Anything).Return(dashboard.Summarize(sampleTable()))
	router := newDashboardRouter(svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dashboard/options", nil))
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w.Body)["data"].(map[string]interface{})
	assert.Equal(t, []interface{}{"All", "2019", "2020"}, data["years"])
	assert.Equal(t, []interface{}{"All", "Fall", "Spring"}, data["terms"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dashboard/summary", nil))
	require.Equal(t, http.StatusOK, w.Code)
	data = decodeBody(t, w.Body)["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["rows"])
	assert.Equal(t, float64(85), data["total_enrolled"])
}

func TestDashboardHandler_GetChart(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		setup      func(*mockDashboardProvider)
		wantStatus int
		wantType   string
	}{
		{
			name: "svg chart",
			path: "/api/dashboard/charts/enrollment.svg?year=2020",
			setup: func(m *mockDashboardProvider) {
				m.On("Chart", mock.Anything, analytics.Selection{Year: analytics.Year(2020)}, "enrollment", charts.SVG).
					Return([]byte("<svg></svg>"), nil)
			},
			wantStatus: http.StatusOK,
			wantType:   "image/svg+xml",
		},
		{
			name: "png retention chart",
			path: "/api/dashboard/charts/retention-2.png",
			setup: func(m *mockDashboardProvider) {
				m.On("Chart", mock.Anything, analytics.Selection{}, "retention-2", charts.PNG).
					Return([]byte("\x89PNG"), nil)
			},
			wantStatus: http.StatusOK,
			wantType:   "image/png",
		},
		{
			name:       "unsupported format",
			path:       "/api/dashboard/charts/enrollment.gif",
			setup:      func(m *mockDashboardProvider) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "no data",
			path: "/api/dashboard/charts/departments.svg?year=1999",
			setup: func(m *mockDashboardProvider) {
				m.On("Chart", mock.Anything, analytics.Selection{Year: analytics.Year(1999)}, "departments", charts.SVG).
					Return(nil, apierrors.ErrNoChartData)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "unknown chart",
			path: "/api/dashboard/charts/radar.svg",
			setup: func(m *mockDashboardProvider) {
				m.On("Chart", mock.Anything, analytics.Selection{}, "radar", charts.SVG).
					Return(nil, apierrors.NotFoundError("chart radar"))
			},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockDashboardProvider)
			tt.setup(svc)

			w := httptest.NewRecorder()
			newDashboardRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantType != "" {
				assert.Equal(t, tt.wantType, w.Header().Get("Content-Type"))
				assert.NotEmpty(t, w.Body.Bytes())
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestDashboardHandler_Exports(t *testing.T) {
	sel := analytics.Selection{Year: analytics.Year(2020), Term: analytics.Term("Fall")}

	t.Run("csv", func(t *testing.T) {
		svc := new(mockDashboardProvider)
		svc.On("ExportCSV", mock.Anything, sel, "enrollment", mock.Anything).Return(nil)

		w := httptest.NewRecorder()
		newDashboardRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dashboard/export/enrollment.csv?year=2020&term=Fall", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="enrollment_2020_Fall.csv"`, w.Header().Get("Content-Disposition"))
		assert.True(t, strings.HasPrefix(w.Body.String(), "Year,Enrolled"))
	})

	t.Run("unknown view", func(t *testing.T) {
		svc := new(mockDashboardProvider)
		svc.On("ExportCSV", mock.Anything, analytics.Selection{}, "bogus", mock.Anything).
			Return(apierrors.NotFoundError("view bogus"))

		w := httptest.NewRecorder()
		newDashboardRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dashboard/export/bogus.csv", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Empty(t, w.Header().Get("Content-Disposition"))
	})

	t.Run("workbook", func(t *testing.T) {
		svc := new(mockDashboardProvider)
		svc.On("ExportWorkbook", mock.Anything, analytics.Selection{}, mock.Anything).Return(nil)

		w := httptest.NewRecorder()
		newDashboardRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dashboard/export.xlsx", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "dashboard_All_All.xlsx")
	})
}

func TestPageHandler(t *testing.T) {
	t.Run("renders sections", func(t *testing.T) {
		svc := new(mockDashboardProvider)
		svc.On("Render", mock.Anything, analytics.Selection{}).Return(dashboard.Build(sampleTable(), analytics.Selection{}), nil)
		svc.On("Options", mock.Anything).Return(dashboard.SelectorOptions(sampleTable()))

		w := httptest.NewRecorder()
		newDashboardRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
		body := w.Body.String()
		assert.Contains(t, body, dashboard.Title)
		assert.Contains(t, body, "Fall All Years")
		assert.Contains(t, body, "/api/dashboard/charts/enrollment.svg?term=All&amp;year=All")
		assert.Contains(t, body, "/api/dashboard/charts/retention-1.svg")
		assert.Contains(t, body, "All Years, All Terms")
	})

	t.Run("empty year shows placeholders", func(t *testing.T) {
		sel := analytics.Selection{Year: analytics.Year(1990)}
		svc := new(mockDashboardProvider)
		svc.On("Render", mock.Anything, sel).Return(dashboard.Build(sampleTable(), sel), nil)
		svc.On("Options", mock.Anything).Return(dashboard.SelectorOptions(sampleTable()))

		w := httptest.NewRecorder()
		newDashboardRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/?year=1990", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "No data for the selected year.")
		assert.Contains(t, w.Body.String(), "No department data.")
	})
}

func TestHealthHandler(t *testing.T) {
	health := services.NewHealthService("1.0.0", "now", nil, nil, testLogger())
	h := NewHealthHandler(health, testLogger())

	w := httptest.NewRecorder()
	h.LivenessCheck(w, httptest.NewRequest(http.MethodGet, "/api/health/live", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ReadinessCheck(w, httptest.NewRequest(http.MethodGet, "/api/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	h.Version(w, httptest.NewRequest(http.MethodGet, "/api/version", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1.0.0", decodeBody(t, w.Body)["version"])
}

func TestClientLogHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantLevel  slog.Level
	}{
		{name: "valid entry", body: `{"level":"warn","message":"chart failed","source":"dashboard.html"}`, wantStatus: http.StatusOK, wantLevel: slog.LevelWarn},
		{name: "unknown level", body: `{"level":"trace","message":"hello"}`, wantStatus: http.StatusOK, wantLevel: slog.LevelInfo},
		{name: "missing message", body: `{"level":"info"}`, wantStatus: http.StatusBadRequest},
		{name: "malformed json", body: `{"level":`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			h := NewClientLogHandler(logger, apierrors.NewErrorHandler(testLogger(), false))

			w := httptest.NewRecorder()
			h.Handle(w, httptest.NewRequest(http.MethodPost, "/api/logs", strings.NewReader(tt.body)))
			assert.Equal(t, tt.wantStatus, w.Code)

			if tt.wantStatus != http.StatusOK {
				assert.Zero(t, logs.Count())
				return
			}
			require.Equal(t, 1, logs.Count())
			rec := logs.Records()[0]
			assert.Equal(t, tt.wantLevel, rec.Level)
			assert.Equal(t, "client_log", rec.Attrs["handler"])
		})
	}
}
