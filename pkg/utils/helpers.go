package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FormatPercentage formats a float as percentage
func FormatPercentage(value float64) string {
	return fmt.Sprintf("%.1f%%", value)
}

// ParseFloat parses a string to float64, tolerating surrounding spaces
// and a trailing percent sign.
func ParseFloat(s string) (float64, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	return strconv.ParseFloat(s, 64)
}

// Round rounds a float64 to specified decimal places
func Round(value float64, decimals int) float64 {
	shift := math.Pow(10, float64(decimals))
	return math.Round(value*shift) / shift
}

// Percent returns part/whole*100, or 0 when whole is not positive.
func Percent(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole * 100
}

// FormatGB formats a size already expressed in gigabytes.
func FormatGB(gb float64) string {
	return fmt.Sprintf("%.2f GB", gb)
}

// FormatAge renders a staleness duration, "never" for negative values.
func FormatAge(d time.Duration) string {
	if d < 0 {
		return "never"
	}
	return d.Truncate(100 * time.Millisecond).String()
}

// FormatUptime converts seconds into a coarse human readable duration.
func FormatUptime(seconds uint64) string {
	days := seconds / (24 * 3600)
	hours := (seconds % (24 * 3600)) / 3600
	minutes := (seconds % 3600) / 60

	if days > 0 {
		return fmt.Sprintf("%d days", days)
	} else if hours > 0 {
		return fmt.Sprintf("%d hours", hours)
	}
	return fmt.Sprintf("%d minutes", minutes)
}
