// Package charts renders dashboard sections as SVG or PNG images using
// go-chart. Enrollment is a bar chart, the department split is a pie, and
// retention trends are lines or paired bars depending on the view mode.
package charts
