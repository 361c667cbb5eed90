package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/rshade/solarfocus/internal/engine/batch"
	"github.com/rshade/solarfocus/internal/fusionsolar"
	"github.com/rshade/solarfocus/internal/logging"
	"github.com/rshade/solarfocus/internal/metrics"
)

// StationSource is the subset of fusionsolar.API the extractor reads.
type StationSource interface {
	FindStation(ctx context.Context, code string) (fusionsolar.Station, bool, error)
	StationMonthKPI(ctx context.Context, code string, year int, month time.Month) (fusionsolar.KPI, bool, error)
	StationDayKPI(ctx context.Context, code string, day time.Time) (fusionsolar.KPI, bool, error)
	DeviceList(ctx context.Context, code string) ([]fusionsolar.Device, error)
	AlarmList(ctx context.Context, code string, begin, end time.Time) ([]fusionsolar.Alarm, error)
}

// Client is one station included in a multi-client run.
type Client struct {
	StationCode string
	Name        string
	CapacityKWp float64
	Email       string
	Phone       string
}

// Extractor builds monthly reports. Calls are made one after another.
type Extractor struct {
	source   StationSource
	factors  metrics.Factors
	location *time.Location
	now      func() time.Time
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithLocation sets the time zone used for day and month boundaries.
func WithLocation(loc *time.Location) ExtractorOption {
	return func(e *Extractor) {
		if loc != nil {
			e.location = loc
		}
	}
}

// WithClock overrides the time source used for GeneratedAt.
func WithClock(now func() time.Time) ExtractorOption {
	return func(e *Extractor) {
		if now != nil {
			e.now = now
		}
	}
}

// NewExtractor creates an Extractor reading from source.
func NewExtractor(source StationSource, factors metrics.Factors, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		source:   source,
		factors:  factors,
		location: time.Local,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Monthly extracts the report of station for month of year. A capacityKWp
// of zero uses the capacity registered for the station. Missing days and a
// failing alarm query are logged and skipped; station, month KPI and device
// failures abort the report.
func (e *Extractor) Monthly(
	ctx context.Context,
	station string,
	year int,
	month time.Month,
	capacityKWp float64,
) (*MonthlyReport, error) {
	log := logging.FromContext(ctx).With().
		Str("component", "engine").
		Str("operation", "monthly_report").
		Str("station", station).
		Logger()

	if month < time.January || month > time.December {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMonth, int(month))
	}
	period := NewPeriod(year, month)
	log.Info().Ctx(ctx).Str("period", period.Label).Msg("extracting monthly data")

	info, found, err := e.source.FindStation(ctx, station)
	if err != nil {
		return nil, fmt.Errorf("station %s: %w", station, err)
	}
	if !found {
		log.Warn().Ctx(ctx).Msg("station not in station list")
	}

	monthKPI, _, err := e.source.StationMonthKPI(ctx, station, year, month)
	if err != nil {
		return nil, fmt.Errorf("month KPI for %s %s: %w", station, period.Label, err)
	}

	daily := e.dailySeries(ctx, log, station, period)
	alarms := e.monthAlarms(ctx, log, station, period)

	devices, err := e.source.DeviceList(ctx, station)
	if err != nil {
		return nil, fmt.Errorf("devices of %s: %w", station, err)
	}

	if capacityKWp <= 0 {
		capacityKWp = float64(info.Capacity)
	}

	report, err := e.build(info, station, period, monthKPI, daily, alarms, devices, capacityKWp)
	if err != nil {
		return nil, err
	}

	log.Info().Ctx(ctx).
		Float64("total_kwh", report.Generation.TotalKWh).
		Int("days", report.Period.Days).
		Msg("monthly data extracted")
	return report, nil
}

func (e *Extractor) dailySeries(
	ctx context.Context,
	log zerolog.Logger,
	station string,
	period Period,
) []DailyGeneration {
	days := period.DaysInMonth()
	series := make([]DailyGeneration, 0, days)

	for day := 1; day <= days; day++ {
		date := time.Date(period.Year, time.Month(period.Month), day, 0, 0, 0, 0, e.location)
		kpi, ok, err := e.source.StationDayKPI(ctx, station, date)
		if err != nil {
			log.Warn().Ctx(ctx).Err(err).Int("day", day).Msg("day KPI unavailable")
			continue
		}
		if !ok {
			continue
		}
		series = append(series, DailyGeneration{Day: day, Date: date, KWh: kpi.Production()})
	}
	return series
}

func (e *Extractor) monthAlarms(
	ctx context.Context,
	log zerolog.Logger,
	station string,
	period Period,
) []fusionsolar.Alarm {
	begin, end := period.Bounds(e.location)
	alarms, err := e.source.AlarmList(ctx, station, begin, end)
	if err != nil {
		log.Warn().Ctx(ctx).Err(err).Msg("alarms unavailable")
		return nil
	}
	return alarms
}

func (e *Extractor) build(
	info fusionsolar.Station,
	station string,
	period Period,
	monthKPI fusionsolar.KPI,
	daily []DailyGeneration,
	alarms []fusionsolar.Alarm,
	devices []fusionsolar.Device,
	capacityKWp float64,
) (*MonthlyReport, error) {
	total := monthKPI.Production()
	period.Days = len(daily)

	gen := summarizeGeneration(total, daily)

	theoretical := metrics.TheoreticalEnergy(capacityKWp, e.factors.PeakSunHours, period.Days)
	perf := Performance{
		PerformanceRatio: metrics.PerformanceRatio(total, theoretical),
		TheoreticalKWh:   metrics.Round(theoretical, 2),
		PeakSunHours:     metrics.PeakSunHours(total, capacityKWp),
		Availability:     metrics.Availability(float64(gen.DaysWithGeneration), float64(period.Days)),
	}

	savings, err := metrics.CalculateSavings(total, e.factors.TariffKWh)
	if err != nil {
		return nil, fmt.Errorf("savings for %s: %w", station, err)
	}
	co2, err := metrics.CalculateCO2Avoided(total, e.factors.EmissionFactorTPerMWh)
	if err != nil {
		return nil, fmt.Errorf("CO2 for %s: %w", station, err)
	}
	trees, err := metrics.TreesEquivalent(co2.Kg, e.factors.TreeAbsorptionKgYear)
	if err != nil {
		return nil, fmt.Errorf("tree equivalence for %s: %w", station, err)
	}

	name := info.Name
	if name == "" {
		name = station
	}

	return &MonthlyReport{
		Station: StationInfo{
			Code:        station,
			Name:        name,
			Address:     info.Address,
			CapacityKWp: capacityKWp,
			Latitude:    float64(info.Latitude),
			Longitude:   float64(info.Longitude),
		},
		Period:      period,
		Generation:  gen,
		Performance: perf,
		Savings:     savings,
		Currency:    e.factors.Currency,
		Environment: Environment{
			CO2AvoidedKg:     co2.Kg,
			CO2AvoidedTonnes: co2.Tonnes,
			TreesEquivalent:  trees,
		},
		System:      summarizeSystem(devices, alarms),
		GeneratedAt: e.now(),
	}, nil
}

// summarizeGeneration derives the daily statistics. Days without
// generation are excluded from average, max and min.
func summarizeGeneration(total float64, daily []DailyGeneration) Generation {
	gen := Generation{TotalKWh: metrics.Round(total, 2), Daily: daily}
	if gen.Daily == nil {
		gen.Daily = []DailyGeneration{}
	}

	var sum float64
	for _, d := range daily {
		if d.KWh <= 0 {
			continue
		}
		if gen.DaysWithGeneration == 0 || d.KWh > gen.DailyMaxKWh {
			gen.DailyMaxKWh = d.KWh
		}
		if gen.DaysWithGeneration == 0 || d.KWh < gen.DailyMinKWh {
			gen.DailyMinKWh = d.KWh
		}
		sum += d.KWh
		gen.DaysWithGeneration++
	}
	gen.DaysWithout = len(daily) - gen.DaysWithGeneration

	if gen.DaysWithGeneration > 0 {
		gen.DailyAverageKWh = metrics.Round(sum/float64(gen.DaysWithGeneration), 2)
	}
	gen.DailyMaxKWh = metrics.Round(gen.DailyMaxKWh, 2)
	gen.DailyMinKWh = metrics.Round(gen.DailyMinKWh, 2)
	return gen
}

func summarizeSystem(devices []fusionsolar.Device, alarms []fusionsolar.Alarm) SystemInfo {
	sys := SystemInfo{Inverters: []Inverter{}}
	for _, d := range devices {
		if !d.IsInverter() {
			continue
		}
		sys.InverterCount++
		if len(sys.Inverters) < maxInverters {
			sys.Inverters = append(sys.Inverters, Inverter{Name: d.Name, Model: d.Model, Serial: d.ESN})
		}
	}
	sys.Alarms = summarizeAlarms(alarms)
	return sys
}

// summarizeAlarms counts alarms by severity and keeps the first maxAlarms,
// critical ones first, each group in API order.
func summarizeAlarms(alarms []fusionsolar.Alarm) AlarmSummary {
	summary := AlarmSummary{Total: len(alarms), List: []AlarmItem{}}

	items := make([]AlarmItem, 0, len(alarms))
	for _, a := range alarms {
		sev := SeverityForLevel(a.Level)
		if sev == SeverityCritical {
			summary.Critical++
		} else {
			summary.Warnings++
		}
		items = append(items, AlarmItem{
			Name:     orNA(a.Name),
			Cause:    orNA(a.Cause),
			RaisedAt: a.RaisedAt(),
			Severity: sev,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Severity > items[j].Severity
	})
	if len(items) > maxAlarms {
		items = items[:maxAlarms]
	}
	summary.List = append(summary.List, items...)
	return summary
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// CompareWithPrevious extracts the report for month of year and attaches a
// comparison with the month before. When the previous month cannot be
// extracted the report is returned without a comparison.
func (e *Extractor) CompareWithPrevious(
	ctx context.Context,
	station string,
	year int,
	month time.Month,
	capacityKWp float64,
) (*MonthlyReport, error) {
	current, err := e.Monthly(ctx, station, year, month, capacityKWp)
	if err != nil {
		return nil, err
	}

	prev := current.Period.Previous()
	previous, err := e.Monthly(ctx, station, prev.Year, time.Month(prev.Month), capacityKWp)
	if err != nil {
		logging.FromContext(ctx).Warn().Ctx(ctx).
			Str("component", "engine").
			Err(err).
			Str("station", station).
			Msg("previous month unavailable, skipping comparison")
		return current, nil
	}

	cmp := metrics.CompareMonths(current.Generation.TotalKWh, previous.Generation.TotalKWh)
	cmp.PreviousLabel = prev.Label
	current.Comparison = &cmp
	return current, nil
}

// Clients extracts reports for every client. A failing client is recorded
// in its ClientResult and does not stop the run. onProgress may be nil.
func (e *Extractor) Clients(
	ctx context.Context,
	clients []Client,
	year int,
	month time.Month,
	compare bool,
	onProgress batch.ProgressCallback,
) ([]ClientResult, error) {
	if len(clients) == 0 {
		return nil, nil
	}

	results := make([]ClientResult, len(clients))
	proc := batch.NewProcessor(func(c Client) string { return clientName(c) }).
		WithProgressCallback(onProgress)

	res, err := proc.Process(ctx, clients, func(ctx context.Context, c Client, i int) error {
		extract := e.Monthly
		if compare {
			extract = e.CompareWithPrevious
		}

		report, extractErr := extract(ctx, c.StationCode, year, month, c.CapacityKWp)
		results[i] = ClientResult{StationCode: c.StationCode, Name: clientName(c), Err: extractErr}
		if extractErr != nil {
			return extractErr
		}
		report.Client = &ClientInfo{Name: clientName(c), Email: c.Email, Phone: c.Phone}
		results[i].Report = report
		return nil
	})

	log := logging.FromContext(ctx)
	for _, f := range res.Failed {
		log.Error().Ctx(ctx).
			Str("component", "engine").
			Str("client", f.Label).
			Err(f.Err).
			Msg("client report failed")
	}
	log.Info().Ctx(ctx).
		Str("component", "engine").
		Int("clients", res.Processed).
		Int("failed", len(res.Failed)).
		Dur("elapsed", res.Elapsed).
		Msg("client extraction finished")

	return results[:res.Processed], err
}

func clientName(c Client) string {
	if c.Name != "" {
		return c.Name
	}
	return c.StationCode
}
