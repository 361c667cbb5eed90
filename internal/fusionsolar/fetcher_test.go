package fusionsolar

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/solarfocus/internal/engine/cache"
)

// stubFetcher returns canned data per endpoint and counts calls.
type stubFetcher struct {
	data  map[string]string
	err   error
	calls []Request
}

func (s *stubFetcher) Fetch(_ context.Context, req Request) (json.RawMessage, error) {
	s.calls = append(s.calls, req)
	if s.err != nil {
		return nil, s.err
	}
	if d, ok := s.data[req.Path]; ok {
		return json.RawMessage(d), nil
	}
	return json.RawMessage("[]"), nil
}

func newMemoryCache(now *time.Time) *cache.Cache {
	return cache.New(cache.NewMemoryStore(), cache.Options{
		Enabled: true,
		Clock:   func() time.Time { return *now },
	})
}

func TestCachedFetcher_MissThenHit(t *testing.T) {
	now := time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)
	stub := &stubFetcher{data: map[string]string{PathStationMonth: `[{"stationCode":"123"}]`}}
	f := NewCachedFetcher(stub, newMemoryCache(&now), nil)
	req := Request{Path: PathStationMonth, Station: "123", Period: "2025-11"}

	first, err := f.Fetch(context.Background(), req)
	require.NoError(t, err)
	second, err := f.Fetch(context.Background(), req)
	require.NoError(t, err)

	assert.JSONEq(t, string(first), string(second))
	assert.Len(t, stub.calls, 1)
}

func TestCachedFetcher_ExpiredEntryRefetches(t *testing.T) {
	now := time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)
	stub := &stubFetcher{}
	f := NewCachedFetcher(stub, newMemoryCache(&now), nil)
	req := Request{Path: PathDeviceList, Station: "123"}

	_, err := f.Fetch(context.Background(), req)
	require.NoError(t, err)

	now = now.Add(25 * time.Hour)
	_, err = f.Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, stub.calls, 2)
}

func TestCachedFetcher_DistinctKeys(t *testing.T) {
	now := time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)
	stub := &stubFetcher{}
	f := NewCachedFetcher(stub, newMemoryCache(&now), nil)

	reqs := []Request{
		{Path: PathStationMonth, Station: "123", Period: "2025-11"},
		{Path: PathStationMonth, Station: "123", Period: "2025-10"},
		{Path: PathStationMonth, Station: "456", Period: "2025-11"},
		{Path: PathStationDay, Station: "123", Period: "2025-11-01"},
		// Compact notation for 2023-11, a different month.
		{Path: PathStationMonth, Station: "123", Period: "202311"},
	}
	for _, r := range reqs {
		_, err := f.Fetch(context.Background(), r)
		require.NoError(t, err)
	}
	_, err := f.Fetch(context.Background(), Request{Path: PathStationMonth, Station: "123", Period: "2025/11"})
	require.NoError(t, err)

	assert.Len(t, stub.calls, len(reqs))
}

func TestCachedFetcher_LiveAndDisabledBypass(t *testing.T) {
	now := time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)
	stub := &stubFetcher{}
	f := NewCachedFetcher(stub, newMemoryCache(&now), nil)
	live := Request{Path: PathStationReal, Station: "123", Live: true}

	for range 2 {
		_, err := f.Fetch(context.Background(), live)
		require.NoError(t, err)
	}
	assert.Len(t, stub.calls, 2)

	disabled := NewCachedFetcher(stub, nil, nil)
	for range 2 {
		_, err := disabled.Fetch(context.Background(), Request{Path: PathDeviceList, Station: "123"})
		require.NoError(t, err)
	}
	assert.Len(t, stub.calls, 4)
}

func TestCachedFetcher_ErrorsAreNotCached(t *testing.T) {
	now := time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)
	boom := errors.New("upstream down")
	stub := &stubFetcher{err: boom}
	f := NewCachedFetcher(stub, newMemoryCache(&now), nil)
	req := Request{Path: PathDeviceList, Station: "123"}

	_, err := f.Fetch(context.Background(), req)
	require.ErrorIs(t, err, boom)

	stub.err = nil
	_, err = f.Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, stub.calls, 2)
}

func TestCachedFetcher_InvalidKey(t *testing.T) {
	now := time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)
	stub := &stubFetcher{}
	f := NewCachedFetcher(stub, newMemoryCache(&now), nil)

	_, err := f.Fetch(context.Background(), Request{Path: PathDeviceList, Station: " "})
	require.ErrorIs(t, err, cache.ErrInvalidKey)

	_, err = f.Fetch(context.Background(), Request{Path: PathStationMonth, Station: "123", Period: "11"})
	require.ErrorIs(t, err, cache.ErrInvalidKey)
	assert.Empty(t, stub.calls)
}

func TestRequest_Endpoint(t *testing.T) {
	assert.Equal(t, "getKpiStationMonth", Request{Path: PathStationMonth}.Endpoint())
}
