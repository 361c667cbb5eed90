package cache

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TTL configuration constants and defaults.
const (
	// DefaultTTLHours is the default cache TTL (24 hours).
	DefaultTTLHours = 24

	// DefaultTTL is DefaultTTLHours as a duration.
	DefaultTTL = DefaultTTLHours * time.Hour

	// MinTTL is the minimum allowed TTL (1 minute).
	MinTTL = time.Minute

	// MaxTTL is the maximum allowed TTL (90 days).
	MaxTTL = 90 * 24 * time.Hour

	// minutesPerHour is used for duration formatting calculations.
	minutesPerHour = 60

	// hoursPerDay is used for duration formatting calculations.
	hoursPerDay = 24
)

// ErrInvalidTTL is returned for TTLs outside [MinTTL, MaxTTL].
var ErrInvalidTTL = fmt.Errorf("TTL must be between %s and %s", FormatDuration(MinTTL), FormatDuration(MaxTTL))

// ValidateTTL returns ErrInvalidTTL when ttl is out of range.
func ValidateTTL(ttl time.Duration) error {
	if ttl < MinTTL || ttl > MaxTTL {
		return fmt.Errorf("%w: got %s", ErrInvalidTTL, ttl)
	}
	return nil
}

// ParseTTL parses a TTL string in various formats:
// - Integer hours: "24".
// - Duration string: "36h", "90m", "1h30m".
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	// Try parsing as integer hours first
	if hours, err := strconv.Atoi(s); err == nil {
		ttl := time.Duration(hours) * time.Hour
		if validateErr := ValidateTTL(ttl); validateErr != nil {
			return 0, validateErr
		}
		return ttl, nil
	}

	ttl, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid TTL format: %w", err)
	}
	if validateErr := ValidateTTL(ttl); validateErr != nil {
		return 0, validateErr
	}
	return ttl, nil
}

// FormatDuration formats a duration in a human-readable way.
// Examples: "45s", "30m", "5h30m", "2d3h".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < hoursPerDay*time.Hour {
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % minutesPerHour
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, minutes)
	}
	days := int(d.Hours()) / hoursPerDay
	hours := int(d.Hours()) % hoursPerDay
	if hours == 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dd%dh", days, hours)
}
