package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rshade/solarfocus/internal/engine/cache"
)

// Environment variables read once at startup.
const (
	EnvHome          = "SOLARFOCUS_HOME"
	EnvProjectDir    = "SOLARFOCUS_PROJECT_DIR"
	EnvCacheEnabled  = "SOLARFOCUS_CACHE_ENABLED"
	EnvCacheDir      = "SOLARFOCUS_CACHE_DIR"
	EnvCacheTTLHours = "SOLARFOCUS_CACHE_TTL_HOURS"
	EnvCacheBackend  = "SOLARFOCUS_CACHE_BACKEND"
	EnvLogLevel      = "SOLARFOCUS_LOG_LEVEL"
	EnvLogFormat     = "SOLARFOCUS_LOG_FORMAT"
	EnvBaseURL       = "FUSIONSOLAR_BASE_URL"
	EnvUsername      = "FUSIONSOLAR_USERNAME"
	EnvPassword      = "FUSIONSOLAR_PASSWORD"

	// EnvSkipMigrationCheck disables the legacy cache prompt.
	EnvSkipMigrationCheck = "SOLARFOCUS_SKIP_MIGRATION_CHECK"

	// EnvLegacyCacheEnabled is honored when EnvCacheEnabled is unset.
	EnvLegacyCacheEnabled = "CACHE_ENABLED"
)

// ApplyEnv overrides settings from environment variables. Values that fail
// to parse are ignored and the file or default value is kept.
func (c *Config) ApplyEnv(lookupEnv func(string) (string, bool)) {
	if lookupEnv == nil {
		return
	}

	if enabled, ok := lookupBool(lookupEnv, EnvCacheEnabled); ok {
		c.Cache.Enabled = enabled
	} else if legacy, legacyOK := lookupBool(lookupEnv, EnvLegacyCacheEnabled); legacyOK {
		c.Cache.Enabled = legacy
	}

	if dir, ok := lookupString(lookupEnv, EnvCacheDir); ok {
		c.Cache.Directory = dir
	}

	if raw, ok := lookupString(lookupEnv, EnvCacheTTLHours); ok {
		if ttl, err := cache.ParseTTL(raw); err == nil && ttl%time.Hour == 0 {
			c.Cache.TTLHours = int(ttl / time.Hour)
		}
	}

	if backend, ok := lookupString(lookupEnv, EnvCacheBackend); ok {
		c.Cache.Backend = strings.ToLower(backend)
	}

	if level, ok := lookupString(lookupEnv, EnvLogLevel); ok {
		c.Logging.Level = level
	}
	if format, ok := lookupString(lookupEnv, EnvLogFormat); ok {
		c.Logging.Format = format
	}

	if baseURL, ok := lookupString(lookupEnv, EnvBaseURL); ok {
		c.API.BaseURL = baseURL
	}
	if username, ok := lookupString(lookupEnv, EnvUsername); ok {
		c.API.Username = username
	}
	if password, ok := lookupEnv(EnvPassword); ok && password != "" {
		c.API.Password = password
	}
}

func lookupString(lookupEnv func(string) (string, bool), name string) (string, bool) {
	val, ok := lookupEnv(name)
	val = strings.TrimSpace(val)
	if !ok || val == "" {
		return "", false
	}
	return val, true
}

func lookupBool(lookupEnv func(string) (string, bool), name string) (bool, bool) {
	val, ok := lookupString(lookupEnv, name)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, false
	}
	return b, true
}

// projectOverlayPath returns the project-local config file named by
// SOLARFOCUS_PROJECT_DIR, or "" when unset or absent.
func projectOverlayPath(lookupEnv func(string) (string, bool)) string {
	if lookupEnv == nil {
		return ""
	}
	dir, ok := lookupString(lookupEnv, EnvProjectDir)
	if !ok {
		return ""
	}
	if filepath.Base(dir) != configDirName {
		dir = filepath.Join(dir, configDirName)
	}
	path := filepath.Join(dir, configFileName)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
