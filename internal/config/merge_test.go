package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/solarfocus/internal/config"
)

// writeOverlay writes YAML content to a temp file and returns its path.
func writeOverlay(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "overlay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestShallowMergeYAML_SingleKeyOverride(t *testing.T) {
	t.Setenv(config.EnvHome, t.TempDir())
	target := config.New()
	overlay := writeOverlay(t, `
cache:
  enabled: false
  directory: /tmp/solar-cache
  ttl_hours: 6
  backend: sqlite
`)

	require.NoError(t, config.ShallowMergeYAML(target, overlay))

	assert.False(t, target.Cache.Enabled)
	assert.Equal(t, "/tmp/solar-cache", target.Cache.Directory)
	assert.Equal(t, 6, target.Cache.TTLHours)
	assert.Equal(t, "sqlite", target.Cache.Backend)

	// Absent sections keep their values.
	assert.Equal(t, config.DefaultBaseURL, target.API.BaseURL)
	assert.InDelta(t, config.DefaultTariffKWh, target.Metrics.TariffKWh, 1e-9)
}

func TestShallowMergeYAML_SectionIsReplacedNotMerged(t *testing.T) {
	t.Setenv(config.EnvHome, t.TempDir())
	target := config.New()
	overlay := writeOverlay(t, `
logging:
  level: debug
`)

	require.NoError(t, config.ShallowMergeYAML(target, overlay))

	assert.Equal(t, "debug", target.Logging.Level)
	assert.Empty(t, target.Logging.Format, "section replacement drops unspecified fields")
}

func TestShallowMergeYAML_Clients(t *testing.T) {
	t.Setenv(config.EnvHome, t.TempDir())
	target := config.New()
	target.Clients = []config.ClientConfig{{StationCode: "OLD", Name: "Old"}}
	overlay := writeOverlay(t, `
clients:
  - station_code: NE=1001
    name: Padaria Central
    capacity_kwp: 12.5
  - station_code: NE=1002
    name: Oficina
`)

	require.NoError(t, config.ShallowMergeYAML(target, overlay))

	require.Len(t, target.Clients, 2)
	assert.Equal(t, "NE=1001", target.Clients[0].StationCode)
	assert.InDelta(t, 12.5, target.Clients[0].CapacityKWp, 1e-9)
	assert.Equal(t, "Oficina", target.Clients[1].Name)
}

func TestShallowMergeYAML_UnknownKeysIgnored(t *testing.T) {
	t.Setenv(config.EnvHome, t.TempDir())
	target := config.New()
	overlay := writeOverlay(t, `
plugins:
  foo: bar
`)

	require.NoError(t, config.ShallowMergeYAML(target, overlay))
	assert.Equal(t, config.New().Cache, target.Cache)
}

func TestShallowMergeYAML_Errors(t *testing.T) {
	t.Parallel()

	t.Run("nil target", func(t *testing.T) {
		t.Parallel()
		require.Error(t, config.ShallowMergeYAML(nil, "whatever.yaml"))
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		err := config.ShallowMergeYAML(&config.Config{}, filepath.Join(t.TempDir(), "none.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading overlay file")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		t.Parallel()
		path := writeOverlay(t, "cache: [unterminated\n")
		err := config.ShallowMergeYAML(&config.Config{}, path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing overlay YAML")
	})

	t.Run("wrong section shape", func(t *testing.T) {
		t.Parallel()
		path := writeOverlay(t, "cache:\n  ttl_hours: many\n")
		err := config.ShallowMergeYAML(&config.Config{}, path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `applying overlay section "cache"`)
	})
}
