package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"unidash/internal/analytics"
	"unidash/internal/charts"
	"unidash/internal/dashboard"
	"unidash/internal/dataset"
	apperrors "unidash/internal/errors"
	"unidash/internal/exporter"
	"unidash/internal/infrastructure"
)

// Chart names accepted by DashboardService.Chart. Retention charts are
// addressed as "retention-N", N counting from 1.
const (
	ChartEnrollment      = "enrollment"
	ChartDepartments     = "departments"
	chartRetentionPrefix = "retention-"
)

// DashboardService renders dashboards from the dataset loaded at startup.
// The table is never mutated, so a single service is shared by every
// request.
type DashboardService struct {
	table   *dataset.Table
	source  string
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *infrastructure.DashboardMetrics
}

// NewDashboardService creates a dashboard service over table. Nil tracer and
// metrics fall back to no-op implementations.
func NewDashboardService(table *dataset.Table, source string, logger *slog.Logger, tracer trace.Tracer, metrics *infrastructure.DashboardMetrics) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("dashboard")
	}
	if metrics == nil {
		metrics = infrastructure.NoopDashboardMetrics()
	}

	logger.Info("DashboardService initialized",
		slog.String("source", source),
		slog.Int("rows", table.Len()))

	return &DashboardService{
		table:   table,
		source:  source,
		logger:  infrastructure.WithComponent(logger, "dashboard_service"),
		tracer:  tracer,
		metrics: metrics,
	}
}

// Rows returns the number of loaded rows.
func (s *DashboardService) Rows() int { return s.table.Len() }

// Source returns the path the dataset was loaded from.
func (s *DashboardService) Source() string { return s.source }

// Options returns the selector values.
func (s *DashboardService) Options(ctx context.Context) dashboard.Options {
	return dashboard.SelectorOptions(s.table)
}

// Summary describes the loaded dataset.
func (s *DashboardService) Summary(ctx context.Context) dashboard.Summary {
	return dashboard.Summarize(s.table)
}

// Render builds the dashboard for sel.
func (s *DashboardService) Render(ctx context.Context, sel analytics.Selection) (*dashboard.Dashboard, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.render", trace.WithAttributes(
		attribute.String("selection.year", sel.Year.String()),
		attribute.String("selection.term", sel.Term.String()),
	))
	defer span.End()

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	start := time.Now()
	d := dashboard.Build(s.table, sel)
	elapsed := time.Since(start)

	span.SetAttributes(
		attribute.String("dashboard.mode", d.Mode.String()),
		attribute.Int("dashboard.retention_charts", len(d.Retention.Charts)),
	)
	s.metrics.RecordRender(ctx, d.Mode.String(), elapsed)

	infrastructure.LoggerFromContext(ctx).DebugContext(ctx, "Dashboard rendered",
		slog.String("selection", sel.String()),
		slog.String("mode", d.Mode.String()),
		slog.Duration("duration", elapsed))

	return d, nil
}

// Chart renders one chart of the dashboard for sel. The image is fully
// rendered before it is returned, so a failure never yields partial output.
func (s *DashboardService) Chart(ctx context.Context, sel analytics.Selection, name string, format charts.Format) ([]byte, error) {
	d, err := s.Render(ctx, sel)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "dashboard.chart", trace.WithAttributes(
		attribute.String("chart.name", name),
		attribute.String("chart.format", string(format)),
	))
	defer span.End()

	var buf bytes.Buffer
	switch {
	case name == ChartEnrollment:
		err = charts.Enrollment(&buf, d.Enrollment, format)
	case name == ChartDepartments:
		err = charts.Departments(&buf, d.Departments, format)
	case strings.HasPrefix(name, chartRetentionPrefix):
		var c dashboard.TrendChart
		c, err = retentionChart(d, strings.TrimPrefix(name, chartRetentionPrefix))
		if err == nil {
			err = charts.Trend(&buf, c, format)
		}
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownChart, name)
	}

	s.metrics.RecordChart(ctx, chartMetricName(name), string(format), err)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, s.chartError(name, err)
	}
	return buf.Bytes(), nil
}

func retentionChart(d *dashboard.Dashboard, index string) (dashboard.TrendChart, error) {
	n, err := strconv.Atoi(index)
	if err != nil || n < 1 || n > len(d.Retention.Charts) {
		return dashboard.TrendChart{}, fmt.Errorf("%w: retention-%s", ErrUnknownChart, index)
	}
	return d.Retention.Charts[n-1], nil
}

// chartMetricName keeps metric cardinality bounded for arbitrary names.
func chartMetricName(name string) string {
	switch {
	case name == ChartEnrollment, name == ChartDepartments:
		return name
	case strings.HasPrefix(name, chartRetentionPrefix):
		return "retention"
	}
	return "unknown"
}

func (s *DashboardService) chartError(name string, err error) error {
	switch {
	case errors.Is(err, charts.ErrNoData):
		return apperrors.ErrNoChartData
	case errors.Is(err, ErrUnknownChart):
		return apperrors.NotFoundError("chart " + name)
	}
	s.logger.Error("Chart rendering failed",
		slog.String("chart", name),
		slog.String("error", err.Error()))
	return apperrors.NewInternalError(fmt.Sprintf("failed to render chart %s: %v", name, err))
}

// ExportCSV writes one view of the dashboard for sel as CSV with a UTF-8 BOM.
func (s *DashboardService) ExportCSV(ctx context.Context, sel analytics.Selection, view string, w io.Writer) error {
	v, err := exporter.ParseView(view)
	if err != nil {
		return apperrors.NotFoundError("export view " + view)
	}
	d, err := s.Render(ctx, sel)
	if err != nil {
		return err
	}
	if err := exporter.WriteView(w, d, v, true); err != nil {
		return fmt.Errorf("export %s: %w", v, err)
	}
	s.metrics.RecordExport(ctx, string(v), "csv")
	return nil
}

// ExportWorkbook writes every view of the dashboard for sel as an Excel
// workbook.
func (s *DashboardService) ExportWorkbook(ctx context.Context, sel analytics.Selection, w io.Writer) error {
	d, err := s.Render(ctx, sel)
	if err != nil {
		return err
	}
	if err := exporter.WriteWorkbook(w, d); err != nil {
		return fmt.Errorf("export workbook: %w", err)
	}
	s.metrics.RecordExport(ctx, "all", "xlsx")
	return nil
}
