package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Key segment layout: NE=<station>|<endpoint>|<period>.
const (
	keyStationPrefix = "NE="
	keySeparator     = "|"
)

// Period digit lengths accepted by NormalizePeriod.
const (
	yearDigits      = 4
	monthDigits     = 6 // YYYYMM
	dayDigits       = 8 // YYYYMMDD
	maxBareMonthLen = 2
	minYear         = 1970
	maxYear         = 9999
	monthsPerYear   = 12
)

// ErrInvalidKey is returned when the request parameters cannot form a cache key.
var ErrInvalidKey = errors.New("invalid cache key parameters")

// KeyParams holds the logical request parameters a cache key is derived from.
type KeyParams struct {
	// Endpoint is the logical endpoint name (e.g. "month", "day", "stations").
	Endpoint string

	// Station is the plant (station) code. Use "all" for account-wide endpoints.
	Station string

	// Period identifies the requested time window. May be empty for endpoints
	// that take no period.
	Period string

	// ReferenceYear resolves a bare month number such as "11". Zero means no
	// reference year is available and a bare month is rejected.
	ReferenceYear int
}

// GenerateKey derives the cache signature for the given request parameters.
// The result is independent of case and surrounding whitespace in the endpoint,
// surrounding whitespace in the station, and the formatting of the period.
// A station already written as "NE=<code>" yields the same key as "<code>".
func GenerateKey(p KeyParams) (string, error) {
	endpoint := strings.ToLower(strings.TrimSpace(p.Endpoint))
	station := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(p.Station), keyStationPrefix))

	if endpoint == "" {
		return "", fmt.Errorf("%w: endpoint is empty", ErrInvalidKey)
	}
	if station == "" {
		return "", fmt.Errorf("%w: station is empty", ErrInvalidKey)
	}
	if strings.Contains(endpoint, keySeparator) || strings.Contains(station, keySeparator) {
		return "", fmt.Errorf("%w: %q is reserved", ErrInvalidKey, keySeparator)
	}

	var sb strings.Builder
	sb.WriteString(keyStationPrefix)
	sb.WriteString(station)
	sb.WriteString(keySeparator)
	sb.WriteString(endpoint)

	if strings.TrimSpace(p.Period) != "" {
		period, err := NormalizePeriod(p.Period, p.ReferenceYear)
		if err != nil {
			return "", err
		}
		sb.WriteString(keySeparator)
		sb.WriteString(period)
	}

	return sb.String(), nil
}

// NewKey is shorthand for GenerateKey without a reference year.
func NewKey(endpoint, station, period string) (string, error) {
	return GenerateKey(KeyParams{Endpoint: endpoint, Station: station, Period: period})
}

// MonthPeriod returns the canonical period for a calendar month ("2025-11").
func MonthPeriod(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

// DayPeriod returns the canonical period for a calendar day ("2025-11-05").
func DayPeriod(t time.Time) string {
	return t.Format(time.DateOnly)
}

// NormalizePeriod converts a period identifier into its canonical ISO form:
// "YYYY" for years, "YYYY-MM" for months and "YYYY-MM-DD" for days.
//
// Accepted inputs include "2023-11", "2023-1", "2023/11", "202311", "20231105",
// "2023-11-05" and a bare month ("11", "1") when referenceYear is non-zero.
func NormalizePeriod(period string, referenceYear int) (string, error) {
	raw := strings.TrimSpace(period)
	if raw == "" {
		return "", fmt.Errorf("%w: period is empty", ErrInvalidKey)
	}

	replacer := strings.NewReplacer("/", "-", ".", "-", "_", "-")
	cleaned := replacer.Replace(raw)

	if strings.Contains(cleaned, "-") {
		return normalizeSeparated(raw, strings.Split(cleaned, "-"))
	}

	if !isDigits(cleaned) {
		return "", fmt.Errorf("%w: unrecognized period %q", ErrInvalidKey, raw)
	}

	switch len(cleaned) {
	case yearDigits:
		year, _ := strconv.Atoi(cleaned)
		return formatPeriod(raw, precisionYear, year, 0, 0)
	case monthDigits:
		year, _ := strconv.Atoi(cleaned[:4])
		month, _ := strconv.Atoi(cleaned[4:])
		return formatPeriod(raw, precisionMonth, year, month, 0)
	case dayDigits:
		year, _ := strconv.Atoi(cleaned[:4])
		month, _ := strconv.Atoi(cleaned[4:6])
		day, _ := strconv.Atoi(cleaned[6:])
		return formatPeriod(raw, precisionDay, year, month, day)
	}

	if len(cleaned) <= maxBareMonthLen {
		if referenceYear == 0 {
			return "", fmt.Errorf("%w: bare month %q needs a reference year", ErrInvalidKey, raw)
		}
		month, _ := strconv.Atoi(cleaned)
		return formatPeriod(raw, precisionMonth, referenceYear, month, 0)
	}

	return "", fmt.Errorf("%w: unrecognized period %q", ErrInvalidKey, raw)
}

func normalizeSeparated(raw string, parts []string) (string, error) {
	nums := make([]int, 0, len(parts))
	for _, part := range parts {
		if part == "" || !isDigits(part) {
			return "", fmt.Errorf("%w: unrecognized period %q", ErrInvalidKey, raw)
		}
		n, _ := strconv.Atoi(part)
		nums = append(nums, n)
	}

	switch len(nums) {
	case precisionMonth:
		return formatPeriod(raw, precisionMonth, nums[0], nums[1], 0)
	case precisionDay:
		return formatPeriod(raw, precisionDay, nums[0], nums[1], nums[2])
	default:
		return "", fmt.Errorf("%w: unrecognized period %q", ErrInvalidKey, raw)
	}
}

// Period precision, equal to the number of components in the canonical form.
const (
	precisionYear  = 1
	precisionMonth = 2
	precisionDay   = 3
)

// formatPeriod validates the components and renders them canonically.
func formatPeriod(raw string, precision, year, month, day int) (string, error) {
	if year < minYear || year > maxYear {
		return "", fmt.Errorf("%w: year out of range in %q", ErrInvalidKey, raw)
	}
	if precision == precisionYear {
		return fmt.Sprintf("%04d", year), nil
	}
	if month < 1 || month > monthsPerYear {
		return "", fmt.Errorf("%w: month out of range in %q", ErrInvalidKey, raw)
	}
	if precision == precisionMonth {
		return MonthPeriod(year, time.Month(month)), nil
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return "", fmt.Errorf("%w: day out of range in %q", ErrInvalidKey, raw)
	}
	return DayPeriod(t), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// HashKey returns the SHA-256 hex digest of a key. Stores use it to derive
// filesystem-safe names.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
