package fusionsolar

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/rs/zerolog"

	"github.com/rshade/solarfocus/internal/engine/cache"
)

// Request describes one data call.
type Request struct {
	// Path is the endpoint path, e.g. PathStationMonth.
	Path string

	// Station and Period identify the response for caching. Period may be
	// empty for calls that are not tied to a date.
	Station string
	Period  string

	// Body is encoded as the JSON request body.
	Body any

	// Live bypasses the cache in both directions.
	Live bool
}

// Endpoint returns the cache endpoint name: the last path segment.
func (r Request) Endpoint() string {
	return path.Base(r.Path)
}

// Fetcher returns the data section of an API response.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (json.RawMessage, error)
}

// CachedFetcher serves requests from a response cache and falls through to
// the next Fetcher on a miss. Only successful responses are stored.
type CachedFetcher struct {
	next   Fetcher
	cache  *cache.Cache
	logger zerolog.Logger
}

// NewCachedFetcher wraps next with c. A nil or disabled cache passes every
// request through.
func NewCachedFetcher(next Fetcher, c *cache.Cache, logger *zerolog.Logger) *CachedFetcher {
	if c == nil {
		c = cache.Disabled()
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "fetcher").Logger()
	}
	return &CachedFetcher{next: next, cache: c, logger: l}
}

// Fetch implements Fetcher. An invalid cache key is a caller error and is
// returned without contacting the API.
func (f *CachedFetcher) Fetch(ctx context.Context, req Request) (json.RawMessage, error) {
	if req.Live || !f.cache.Enabled() {
		return f.next.Fetch(ctx, req)
	}

	key, err := cache.NewKey(req.Endpoint(), req.Station, req.Period)
	if err != nil {
		return nil, fmt.Errorf("building cache key for %s: %w", req.Path, err)
	}

	if data, ok := f.cache.Get(key); ok {
		f.logger.Debug().Ctx(ctx).Str("key", key).Msg("served from cache")
		return data, nil
	}

	data, err := f.next.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	f.cache.Set(key, data)
	return data, nil
}
