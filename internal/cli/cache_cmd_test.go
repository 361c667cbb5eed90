package cli_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/solarfocus/internal/config"
	"github.com/rshade/solarfocus/internal/engine/cache"
)

// seedCache writes one entry per age into the default cache directory under
// home and returns that directory.
func seedCache(t *testing.T, home string, ages ...time.Duration) string {
	t.Helper()

	dir := filepath.Join(home, filepath.FromSlash(config.DefaultCacheSubdir))
	store, err := cache.NewFileStore(dir)
	require.NoError(t, err)

	for i, age := range ages {
		storedAt := time.Now().Add(-age)
		c := cache.New(store, cache.Options{
			Enabled: true,
			TTL:     cache.DefaultTTL,
			Clock:   func() time.Time { return storedAt },
		})
		key, keyErr := cache.NewKey("getKpiStationDay", "123", cache.DayPeriod(time.Date(2025, 11, i+1, 0, 0, 0, 0, time.UTC)))
		require.NoError(t, keyErr)
		c.Set(key, json.RawMessage(`[{"stationCode":"123"}]`))
	}
	return dir
}

func countEntries(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	n := 0
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".json" {
			n++
		}
	}
	return n
}

func TestCacheStats(t *testing.T) {
	t.Run("enabled", func(t *testing.T) {
		home := isolateHome(t)
		seedCache(t, home, 2*time.Hour, 30*time.Hour)

		output, err := runCLI(t, nil, "cache", "stats")
		require.NoError(t, err)
		assert.Contains(t, output, "enabled")
		assert.Contains(t, output, "Entries")
		assert.Contains(t, output, "Expired")
	})

	t.Run("disabled", func(t *testing.T) {
		home := isolateHome(t)

		output, err := runCLI(t, map[string]string{config.EnvCacheEnabled: "false"}, "cache", "stats")
		require.NoError(t, err)
		assert.Contains(t, output, "disabled")

		_, statErr := os.Stat(filepath.Join(home, "cache"))
		assert.True(t, os.IsNotExist(statErr), "a disabled cache creates no directory")
	})
}

func TestCacheClear(t *testing.T) {
	home := isolateHome(t)
	dir := seedCache(t, home, time.Hour, 2*time.Hour, 3*time.Hour)
	require.Equal(t, 3, countEntries(t, dir))

	output, err := runCLI(t, nil, "cache", "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, output, "Removed 3 cache entries")
	assert.Equal(t, 0, countEntries(t, dir))

	output, err = runCLI(t, nil, "cache", "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, output, "Removed 0 cache entries")
}

func TestCacheClearOld(t *testing.T) {
	home := isolateHome(t)
	dir := seedCache(t, home, 10*time.Hour, 30*time.Hour, 50*time.Hour)

	output, err := runCLI(t, nil, "cache", "clear-old", "--hours", "48")
	require.NoError(t, err)
	assert.Contains(t, output, "Removed 1 cache entries older than 48h")
	assert.Equal(t, 2, countEntries(t, dir))

	output, err = runCLI(t, nil, "cache", "clear-old")
	require.NoError(t, err)
	assert.Contains(t, output, "Removed 1 cache entries older than 24h")
	assert.Equal(t, 1, countEntries(t, dir))
}

func TestCacheClearOld_NegativeHours(t *testing.T) {
	isolateHome(t)
	_, err := runCLI(t, nil, "cache", "clear-old", "--hours", "-1")
	require.Error(t, err)
}

func TestCacheMaintenance_DisabledCacheFails(t *testing.T) {
	disabled := map[string]string{config.EnvCacheEnabled: "false"}

	for _, args := range [][]string{
		{"cache", "clear", "--yes"},
		{"cache", "clear-old", "--hours", "1"},
	} {
		t.Run(args[1], func(t *testing.T) {
			isolateHome(t)
			_, err := runCLI(t, disabled, args...)
			require.ErrorIs(t, err, cache.ErrCacheDisabled)
			assert.Contains(t, err.Error(), "SOLARFOCUS_CACHE_ENABLED")
		})
	}
}

func TestCacheClear_LegacyEnvDisables(t *testing.T) {
	isolateHome(t)
	_, err := runCLI(t, map[string]string{config.EnvLegacyCacheEnabled: "false"}, "cache", "clear", "--yes")
	require.ErrorIs(t, err, cache.ErrCacheDisabled)
}

func TestCacheClear_SQLiteBackend(t *testing.T) {
	isolateHome(t)
	env := map[string]string{config.EnvCacheBackend: "sqlite"}

	output, err := runCLI(t, env, "cache", "stats")
	require.NoError(t, err)
	assert.Contains(t, output, "enabled")

	output, err = runCLI(t, env, "cache", "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, output, "Removed 0 cache entries")
}
