package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rshade/solarfocus/internal/metrics"
)

// Report list limits.
const (
	maxInverters = 5
	maxAlarms    = 10
)

// criticalAlarmLevel is the lowest alarm level reported as critical.
const criticalAlarmLevel = 3

// Period errors.
var (
	ErrInvalidMonth = errors.New("month must be between 1 and 12")
	ErrFuturePeriod = errors.New("period is in the future")
)

// Severity classifies an alarm.
//
//nolint:recvcheck // UnmarshalJSON requires pointer receiver; String/MarshalJSON use value receivers.
type Severity int

const (
	// SeverityWarning is an alarm below the critical level.
	SeverityWarning Severity = iota
	// SeverityCritical is an alarm at or above the critical level.
	SeverityCritical
)

// SeverityForLevel maps an API alarm level to a Severity.
func SeverityForLevel(level int) Severity {
	if level >= criticalAlarmLevel {
		return SeverityCritical
	}
	return SeverityWarning
}

// String returns the label for a Severity.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// MarshalJSON implements json.Marshaler to output Severity as string.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements json.Unmarshaler to parse Severity from string.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("parsing severity: %w", err)
	}
	switch str {
	case "warning":
		*s = SeverityWarning
	case "critical":
		*s = SeverityCritical
	default:
		return fmt.Errorf("unknown severity %q", str)
	}
	return nil
}

// MonthlyReport is everything known about one station for one month.
type MonthlyReport struct {
	Station     StationInfo         `json:"station"`
	Period      Period              `json:"period"`
	Generation  Generation          `json:"generation"`
	Performance Performance         `json:"performance"`
	Savings     metrics.Savings     `json:"savings"`
	Currency    string              `json:"currency"`
	Environment Environment         `json:"environment"`
	System      SystemInfo          `json:"system"`
	Comparison  *metrics.Comparison `json:"comparison,omitempty"`
	Client      *ClientInfo         `json:"client,omitempty"`
	GeneratedAt time.Time           `json:"generated_at"`
}

// StationInfo describes the plant.
type StationInfo struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	CapacityKWp float64 `json:"capacity_kwp"`
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`
}

// Period is the reported month.
type Period struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Label string `json:"label"`
	// Days counts the days with KPI data.
	Days int `json:"days"`
}

// NewPeriod returns the Period for month of year.
func NewPeriod(year int, month time.Month) Period {
	return Period{Year: year, Month: int(month), Label: fmt.Sprintf("%s %d", month, year)}
}

// Previous returns the month before p.
func (p Period) Previous() Period {
	if p.Month == 1 {
		return NewPeriod(p.Year-1, time.December)
	}
	return NewPeriod(p.Year, time.Month(p.Month-1))
}

// Bounds returns the first and last instant of the month in loc.
func (p Period) Bounds(loc *time.Location) (time.Time, time.Time) {
	begin := time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, loc)
	end := begin.AddDate(0, 1, 0).Add(-time.Second)
	return begin, end
}

// DaysInMonth returns the calendar length of the month.
func (p Period) DaysInMonth() int {
	return time.Date(p.Year, time.Month(p.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Generation summarizes produced energy.
type Generation struct {
	TotalKWh           float64           `json:"total_kwh"`
	DailyAverageKWh    float64           `json:"daily_average_kwh"`
	DailyMaxKWh        float64           `json:"daily_max_kwh"`
	DailyMinKWh        float64           `json:"daily_min_kwh"`
	DaysWithGeneration int               `json:"days_with_generation"`
	DaysWithout        int               `json:"days_without_generation"`
	Daily              []DailyGeneration `json:"daily"`
}

// DailyGeneration is one day of the series.
type DailyGeneration struct {
	Day  int       `json:"day"`
	Date time.Time `json:"date"`
	KWh  float64   `json:"kwh"`
}

// Performance holds the plant performance indicators.
type Performance struct {
	PerformanceRatio float64 `json:"performance_ratio"`
	TheoreticalKWh   float64 `json:"theoretical_kwh"`
	PeakSunHours     float64 `json:"peak_sun_hours"`
	Availability     float64 `json:"availability"`
}

// Environment holds the environmental impact.
type Environment struct {
	CO2AvoidedKg     float64 `json:"co2_avoided_kg"`
	CO2AvoidedTonnes float64 `json:"co2_avoided_tonnes"`
	TreesEquivalent  float64 `json:"trees_equivalent"`
}

// SystemInfo describes installed equipment and its alarms.
type SystemInfo struct {
	InverterCount int          `json:"inverter_count"`
	Inverters     []Inverter   `json:"inverters"`
	Alarms        AlarmSummary `json:"alarms"`
}

// Inverter is one listed inverter.
type Inverter struct {
	Name   string `json:"name"`
	Model  string `json:"model,omitempty"`
	Serial string `json:"serial"`
}

// AlarmSummary counts alarms by severity and lists the first few,
// critical alarms first.
type AlarmSummary struct {
	Total    int         `json:"total"`
	Critical int         `json:"critical"`
	Warnings int         `json:"warnings"`
	List     []AlarmItem `json:"list"`
}

// AlarmItem is one listed alarm.
type AlarmItem struct {
	Name     string    `json:"name"`
	Cause    string    `json:"cause"`
	RaisedAt time.Time `json:"raised_at,omitzero"`
	Severity Severity  `json:"severity"`
}

// ClientInfo identifies the client a report is addressed to.
type ClientInfo struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// ClientResult is the outcome of one client in a multi-client run.
type ClientResult struct {
	StationCode string
	Name        string
	Report      *MonthlyReport
	Err         error
}

// ValidatePeriod rejects months outside 1..12 and months that have not
// started yet at now.
func ValidatePeriod(year int, month time.Month, now time.Time) error {
	if month < time.January || month > time.December {
		return fmt.Errorf("%w: got %d", ErrInvalidMonth, int(month))
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
	if start.After(now) {
		return fmt.Errorf("%w: %04d-%02d", ErrFuturePeriod, year, int(month))
	}
	return nil
}

// PreviousMonth returns the month before the one containing now.
func PreviousMonth(now time.Time) (int, time.Month) {
	prev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -1, 0)
	return prev.Year(), prev.Month()
}
