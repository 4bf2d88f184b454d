package http

import (
	"context"
	"io"

	"unidash/internal/analytics"
	"unidash/internal/charts"
	"unidash/internal/dashboard"
)

// DashboardProvider defines the dashboard operations the handlers need
type DashboardProvider interface {
	Options(ctx context.Context) dashboard.Options
	Summary(ctx context.Context) dashboard.Summary
	Render(ctx context.Context, sel analytics.Selection) (*dashboard.Dashboard, error)
	Chart(ctx context.Context, sel analytics.Selection, name string, format charts.Format) ([]byte, error)
	ExportCSV(ctx context.Context, sel analytics.Selection, view string, w io.Writer) error
	ExportWorkbook(ctx context.Context, sel analytics.Selection, w io.Writer) error
}
