package exporter

import (
	"fmt"
	"strconv"
)

// formatFloat formats with exactly 2 decimal places so 13.4 appears as 13.40.
func formatFloat(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}

// formatPercent renders a [0,1] fraction as a percentage with 2 decimals.
func formatPercent(f float64) string {
	return formatFloat(f * 100)
}
