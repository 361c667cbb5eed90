package engine_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/solarfocus/internal/engine"
	"github.com/rshade/solarfocus/internal/engine/cache"
	"github.com/rshade/solarfocus/internal/fusionsolar"
	"github.com/rshade/solarfocus/internal/metrics"
)

// newNorthbound serves a minimal northbound API for one station and counts
// data requests.
func newNorthbound(t *testing.T, dataCalls *atomic.Int32) *httptest.Server {
	t.Helper()

	reply := func(w http.ResponseWriter, data any) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "failCode": 0, "data": data})
	}
	kpi := func(kwh string) []map[string]any {
		return []map[string]any{{"stationCode": "123", "dataItemMap": map[string]any{"production_power": kwh}}}
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == fusionsolar.PathLogin {
			w.Header().Set("XSRF-TOKEN", "tok")
			reply(w, nil)
			return
		}
		dataCalls.Add(1)
		switch r.URL.Path {
		case fusionsolar.PathStationList:
			reply(w, map[string]any{"total": 1, "list": []map[string]any{
				{"stationCode": "123", "stationName": "Padaria", "capacity": 10},
			}})
		case fusionsolar.PathStationMonth:
			reply(w, kpi("1080"))
		case fusionsolar.PathStationDay:
			reply(w, kpi("36"))
		case fusionsolar.PathDeviceList:
			reply(w, []map[string]any{{"devName": "INV-1", "devTypeId": 1, "esnCode": "ES1"}})
		case fusionsolar.PathAlarmList:
			reply(w, []map[string]any{{"alarmName": "Grid loss", "alarmLevel": 3}})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newExtractor(t *testing.T, srv *httptest.Server, c *cache.Cache) *engine.Extractor {
	t.Helper()
	client, err := fusionsolar.NewClient(fusionsolar.Options{
		BaseURL:        srv.URL,
		Username:       "integrador",
		Password:       "s3cret",
		InitialBackoff: time.Millisecond,
	})
	require.NoError(t, err)

	api := fusionsolar.NewAPI(fusionsolar.NewCachedFetcher(client, c, nil))
	return engine.NewExtractor(api, metrics.DefaultFactors(), engine.WithLocation(time.UTC))
}

func TestMonthlyReport_SecondRunServedFromCache(t *testing.T) {
	var calls atomic.Int32
	srv := newNorthbound(t, &calls)

	c, err := cache.Open(cache.Settings{
		Enabled:   true,
		Backend:   cache.BackendFile,
		Directory: t.TempDir(),
		TTL:       cache.DefaultTTL,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	first, err := newExtractor(t, srv, c).Monthly(context.Background(), "123", 2025, time.November, 0)
	require.NoError(t, err)
	// station list + month + 30 days + alarms + devices
	assert.Equal(t, int32(34), calls.Load())

	second, err := newExtractor(t, srv, c).Monthly(context.Background(), "123", 2025, time.November, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(34), calls.Load(), "second run makes no upstream calls")

	assert.Equal(t, first.Generation, second.Generation)
	assert.Equal(t, 1, second.System.Alarms.Critical)

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 34, stats.Entries)
}

func TestMonthlyReport_DisabledCacheAlwaysCallsUpstream(t *testing.T) {
	var calls atomic.Int32
	srv := newNorthbound(t, &calls)

	for range 2 {
		_, err := newExtractor(t, srv, cache.Disabled()).Monthly(context.Background(), "123", 2025, time.November, 0)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(68), calls.Load())
}
