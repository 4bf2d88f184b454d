package http

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"unidash/internal/analytics"
	"unidash/internal/charts"
	apierrors "unidash/internal/errors"
	"unidash/internal/middleware"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DashboardHandler serves the dashboard JSON API, chart images and exports.
type DashboardHandler struct {
	service      DashboardProvider
	selection    *middleware.SelectionValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service DashboardProvider, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		selection:    middleware.NewSelectionValidator(logger, errorHandler),
		logger:       logger.With(slog.String("component", "dashboard_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the dashboard routes, mounted under /api/dashboard.
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/options", h.GetOptions)
	r.Get("/summary", h.GetSummary)

	r.Group(func(r chi.Router) {
		r.Use(h.selection.Handler)

		r.Get("/", h.GetDashboard)
		r.Get("/charts/{chart}.{format}", h.GetChart)
		r.Get("/export/{view}.csv", h.ExportCSV)
		r.Get("/export.xlsx", h.ExportWorkbook)
	})

	return r
}

// GetDashboard handles GET /api/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	sel, _ := middleware.SelectionFromContext(r.Context())

	d, err := h.service.Render(r.Context(), sel)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   d,
	})
}

// GetOptions handles GET /api/dashboard/options
func (h *DashboardHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   h.service.Options(r.Context()),
	})
}

// GetSummary handles GET /api/dashboard/summary
func (h *DashboardHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   h.service.Summary(r.Context()),
	})
}

// GetChart handles GET /api/dashboard/charts/{chart}.{format}
func (h *DashboardHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "chart")
	format, err := charts.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format", err.Error()))
		return
	}

	sel, _ := middleware.SelectionFromContext(r.Context())
	img, err := h.service.Chart(r.Context(), sel, name, format)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.Write(img)
}

// ExportCSV handles GET /api/dashboard/export/{view}.csv
func (h *DashboardHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	view := chi.URLParam(r, "view")
	sel, _ := middleware.SelectionFromContext(r.Context())

	var buf bytes.Buffer
	if err := h.service.ExportCSV(r.Context(), sel, view, &buf); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.writeAttachment(w, "text/csv; charset=utf-8", exportFilename(view, sel, "csv"), buf.Bytes())
}

// ExportWorkbook handles GET /api/dashboard/export.xlsx
func (h *DashboardHandler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	sel, _ := middleware.SelectionFromContext(r.Context())

	var buf bytes.Buffer
	if err := h.service.ExportWorkbook(r.Context(), sel, &buf); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.writeAttachment(w, xlsxContentType, exportFilename("dashboard", sel, "xlsx"), buf.Bytes())
}

func (h *DashboardHandler) writeAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Write(body)
}

// exportFilename builds e.g. "enrollment_2021_Fall.csv" or "kpis_All_All.csv".
func exportFilename(name string, sel analytics.Selection, ext string) string {
	return fmt.Sprintf("%s_%s_%s.%s", name, sel.Year, sel.Term, ext)
}
