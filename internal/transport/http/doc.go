// Package http implements the HTTP handlers of the dashboard web service.
// Handlers stay thin: they parse the request, delegate to the dashboard
// service and format the response.
//
// # Routes
//
//	GET /                                    dashboard page
//	GET /api/dashboard?year=&term=           full dashboard JSON
//	GET /api/dashboard/options               selector values
//	GET /api/dashboard/summary               dataset summary
//	GET /api/dashboard/charts/{chart}.{fmt}  chart image (svg or png)
//	GET /api/dashboard/export/{view}.csv     one section as CSV
//	GET /api/dashboard/export.xlsx           every section as a workbook
//	GET /api/health, /api/health/live, /api/health/ready, /api/version
//	POST /api/logs                           client-side log entries
//
// # Error Handling
//
// All errors are written as RFC 7807 problem details by the shared
// errors.ErrorHandler:
//
//	{
//	    "type": "/errors/no-chart-data",
//	    "title": "Not Found",
//	    "status": 404,
//	    "detail": "No data available for the requested chart",
//	    "instance": "/api/dashboard/charts/enrollment.svg"
//	}
//
// # Testing
//
// Handlers are tested with httptest against a testify mock of
// DashboardProvider.
package http
