// Package services implements the business logic layer between the HTTP and
// WebSocket transports and the dashboard computation.
//
// DashboardService owns the immutable dataset table loaded at startup and
// turns a user selection into a dashboard, chart image or export. Every call
// is traced and recorded in the dashboard metrics. HealthService reports
// liveness, readiness and version information.
//
// # Error Handling
//
// Services return errors from internal/errors so handlers can map them to
// problem responses:
//
//	- ErrNoChartData when a chart has nothing to draw
//	- NotFoundError for unknown charts or export views
//	- context errors when the request was cancelled
//
// # Testing
//
// Services are tested against small in-memory tables. Transports depend on
// the DashboardProvider interface and are tested with testify mocks.
package services
