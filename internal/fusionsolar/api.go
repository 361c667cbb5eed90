package fusionsolar

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rshade/solarfocus/internal/engine/cache"
)

// Request and cache constants.
const (
	stationListPageSize = 100
	allStations         = "all"
	alarmLanguage       = "pt_BR"
	collectMonthLayout  = "200601"
	collectDayLayout    = "20060102"
)

// API exposes the typed northbound endpoints over a Fetcher.
type API struct {
	fetcher Fetcher
}

// NewAPI creates an API reading through f.
func NewAPI(f Fetcher) *API {
	return &API{fetcher: f}
}

func (a *API) fetch(ctx context.Context, req Request, out any) error {
	data, err := a.fetcher.Fetch(ctx, req)
	if err != nil {
		return err
	}
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err = json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", req.Endpoint(), err)
	}
	return nil
}

// StationList returns the plants visible to the account.
func (a *API) StationList(ctx context.Context) ([]Station, error) {
	var page stationPage
	err := a.fetch(ctx, Request{
		Path:    PathStationList,
		Station: allStations,
		Body:    map[string]int{"pageNo": 1, "pageSize": stationListPageSize},
	}, &page)
	if err != nil {
		return nil, err
	}
	return page.List, nil
}

// FindStation returns the station with the given code from the station list.
func (a *API) FindStation(ctx context.Context, code string) (Station, bool, error) {
	stations, err := a.StationList(ctx)
	if err != nil {
		return Station{}, false, err
	}
	for _, s := range stations {
		if s.Code == code {
			return s, true, nil
		}
	}
	return Station{Code: code}, false, nil
}

// StationRealKPI returns the real-time indicators of a station. It is never
// cached.
func (a *API) StationRealKPI(ctx context.Context, code string) (KPI, error) {
	var kpis []KPI
	err := a.fetch(ctx, Request{
		Path:    PathStationReal,
		Station: code,
		Body:    map[string]string{"stationCodes": code},
		Live:    true,
	}, &kpis)
	return first(kpis), err
}

// StationMonthKPI returns the indicators of one month. The bool is false
// when the API has no data for it.
func (a *API) StationMonthKPI(ctx context.Context, code string, year int, month time.Month) (KPI, bool, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	return a.periodKPI(ctx, PathStationMonth, code, cache.MonthPeriod(year, month), start.Format(collectMonthLayout))
}

// StationDayKPI returns the indicators of one day. The bool is false when
// the API has no data for it.
func (a *API) StationDayKPI(ctx context.Context, code string, day time.Time) (KPI, bool, error) {
	return a.periodKPI(ctx, PathStationDay, code, cache.DayPeriod(day), day.Format(collectDayLayout))
}

func (a *API) periodKPI(ctx context.Context, path, code, period, collect string) (KPI, bool, error) {
	collectTime, err := strconv.ParseInt(collect, 10, 64)
	if err != nil {
		return KPI{}, false, fmt.Errorf("collect time %q: %w", collect, err)
	}

	var kpis []KPI
	err = a.fetch(ctx, Request{
		Path:    path,
		Station: code,
		Period:  period,
		Body:    map[string]any{"stationCodes": code, "collectTime": collectTime},
	}, &kpis)
	if err != nil {
		return KPI{}, false, err
	}
	return first(kpis), len(kpis) > 0, nil
}

// StationHourKPI returns the hourly indicators of one day.
func (a *API) StationHourKPI(ctx context.Context, code string, day time.Time) ([]KPI, error) {
	collectTime, err := strconv.ParseInt(day.Format(collectDayLayout), 10, 64)
	if err != nil {
		return nil, err
	}

	var kpis []KPI
	err = a.fetch(ctx, Request{
		Path:    PathStationHour,
		Station: code,
		Period:  cache.DayPeriod(day),
		Body:    map[string]any{"stationCodes": code, "collectTime": collectTime},
	}, &kpis)
	return kpis, err
}

// DeviceList returns the devices installed at a station.
func (a *API) DeviceList(ctx context.Context, code string) ([]Device, error) {
	var devices []Device
	err := a.fetch(ctx, Request{
		Path:    PathDeviceList,
		Station: code,
		Body:    map[string]string{"stationCodes": code},
	}, &devices)
	return devices, err
}

// AlarmList returns the alarms raised between begin and end. A range that
// covers exactly one calendar month is cached under that month; any other
// range is fetched live.
func (a *API) AlarmList(ctx context.Context, code string, begin, end time.Time) ([]Alarm, error) {
	req := Request{
		Path:    PathAlarmList,
		Station: code,
		Body: map[string]any{
			"stationCodes": code,
			"beginTime":    begin.UnixMilli(),
			"endTime":      end.UnixMilli(),
			"language":     alarmLanguage,
		},
	}
	if isWholeMonth(begin, end) {
		req.Period = cache.MonthPeriod(begin.Year(), begin.Month())
	} else {
		req.Live = true
	}

	var alarms []Alarm
	err := a.fetch(ctx, req, &alarms)
	return alarms, err
}

// isWholeMonth reports whether begin is the first instant of a month and end
// falls within the last second of that same month.
func isWholeMonth(begin, end time.Time) bool {
	start := time.Date(begin.Year(), begin.Month(), 1, 0, 0, 0, 0, begin.Location())
	if !begin.Equal(start) {
		return false
	}
	next := start.AddDate(0, 1, 0)
	return !end.Before(next.Add(-time.Second)) && end.Before(next)
}

func first(kpis []KPI) KPI {
	if len(kpis) == 0 {
		return KPI{}
	}
	return kpis[0]
}
