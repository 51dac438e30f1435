package exporter

import (
	"strconv"
)

// formatFloat formats a float64 with the shortest representation that
// round-trips, so exported QoL values keep full precision.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// formatInt formats an int value for CSV output
func formatInt(i int) string {
	return strconv.Itoa(i)
}

// formatBool formats a boolean value for CSV output
func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// cellValue converts a string cell into a number when it parses as one so
// Excel stores it as numeric.
func cellValue(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
