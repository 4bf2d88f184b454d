package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"unidash/internal/analytics"
	"unidash/internal/dashboard"
	apierrors "unidash/internal/errors"
	"unidash/internal/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("dashboard.html").Funcs(template.FuncMap{
	"percent": func(f float64) string { return fmt.Sprintf("%.2f%%", f*100) },
}).ParseFS(templateFS, "templates/dashboard.html"))

// PageHandler renders the dashboard as a server-side HTML page.
type PageHandler struct {
	service      DashboardProvider
	selection    *middleware.SelectionValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewPageHandler creates a new page handler
func NewPageHandler(service DashboardProvider, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *PageHandler {
	return &PageHandler{
		service:      service,
		selection:    middleware.NewSelectionValidator(logger, errorHandler),
		logger:       logger.With(slog.String("component", "page_handler")),
		errorHandler: errorHandler,
	}
}

type pageData struct {
	*dashboard.Dashboard
	Options     dashboard.Options
	Year        string
	Term        string
	Query       template.URL
	RetentionID []string
}

// ServeHTTP handles GET / with the same year and term query parameters as
// the JSON API.
func (h *PageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.selection.Handler(http.HandlerFunc(h.serve)).ServeHTTP(w, r)
}

func (h *PageHandler) serve(w http.ResponseWriter, r *http.Request) {
	sel, _ := middleware.SelectionFromContext(r.Context())

	d, err := h.service.Render(r.Context(), sel)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	data := pageData{
		Dashboard: d,
		Options:   h.service.Options(r.Context()),
		Year:      sel.Year.String(),
		Term:      sel.Term.String(),
		Query:     selectionQuery(sel),
	}
	for i := range d.Retention.Charts {
		data.RetentionID = append(data.RetentionID, fmt.Sprintf("retention-%d", i+1))
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to render dashboard page", slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, apierrors.NewInternalError("failed to render page"))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(buf.Bytes())
}

// selectionQuery is trusted: it is built from a parsed selection.
func selectionQuery(sel analytics.Selection) template.URL {
	q := url.Values{}
	q.Set("year", sel.Year.String())
	q.Set("term", sel.Term.String())
	return template.URL(q.Encode())
}
