package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/solarfocus/internal/engine"
	"github.com/rshade/solarfocus/internal/engine/cache"
	"github.com/rshade/solarfocus/internal/fusionsolar"
	"github.com/rshade/solarfocus/internal/logging"
)

// session is the API stack of one invocation: client, cache and the
// cached API on top of them.
type session struct {
	client *fusionsolar.Client
	cache  *cache.Cache
	api    *fusionsolar.API
}

func (a *app) openSession(cmd *cobra.Command) (*session, error) {
	log := logging.FromContext(cmd.Context())

	client, err := fusionsolar.NewClient(fusionsolar.Options{
		BaseURL:  a.cfg.API.BaseURL,
		Username: a.cfg.API.Username,
		Password: a.cfg.API.Password,
		Timeout:  a.cfg.APITimeout(),
		Retries:  a.cfg.API.Retries,
		Logger:   log,
	})
	if err != nil {
		return nil, fmt.Errorf("creating FusionSolar client: %w", err)
	}

	// A data run never fails because of the cache: an unusable store means
	// running uncached.
	c, err := a.openCache(cmd)
	if err != nil {
		log.Warn().Ctx(cmd.Context()).Err(err).Msg("cache unavailable, continuing without it")
		cmd.PrintErrf("Warning: %v; continuing without cache\n", err)
		c = cache.Disabled()
	}

	return &session{
		client: client,
		cache:  c,
		api:    fusionsolar.NewAPI(fusionsolar.NewCachedFetcher(client, c, log)),
	}, nil
}

func (a *app) newExtractor(s *session) *engine.Extractor {
	return engine.NewExtractor(s.api, a.cfg.MetricsFactors(), engine.WithClock(a.now))
}

// close logs out, if a login happened, and releases the cache.
func (s *session) close(ctx context.Context) {
	s.client.Logout(ctx)
	if err := s.cache.Close(); err != nil {
		logging.FromContext(ctx).Warn().Ctx(ctx).Err(err).Msg("closing cache")
	}
}
