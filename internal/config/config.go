// Package config loads solarfocus settings from YAML and the environment.
//
// Settings are resolved once at startup in this order: built-in defaults,
// the global config file (~/.solarfocus/config.yaml), an optional project
// overlay, then environment variables. The resulting *Config is passed
// explicitly to the components that need it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/currency"
	"gopkg.in/yaml.v3"

	"github.com/rshade/solarfocus/internal/engine/cache"
	"github.com/rshade/solarfocus/internal/metrics"
)

// Defaults.
const (
	DefaultBaseURL        = "https://intl.fusionsolar.huawei.com"
	DefaultTimeoutSeconds = 30
	DefaultRetries        = 3
	DefaultCacheSubdir    = "cache/fusionsolar"
	DefaultTariffKWh      = metrics.DefaultTariffKWh
	DefaultEmissionFactor = metrics.DefaultEmissionFactor
	DefaultTreeAbsorption = metrics.DefaultTreeAbsorptionKg
	DefaultPeakSunHours   = metrics.DefaultPeakSunHours
	DefaultCurrency       = metrics.DefaultCurrency
	configFileName        = "config.yaml"
	configDirName         = ".solarfocus"
	maxRetries            = 10
	maxTimeoutSeconds     = 600
	defaultLogLevel       = "info"
	defaultLogFormat      = "console"
	outputTypeFile        = "file"
	outputTypeStderr      = "stderr"
	configFilePermissions = 0o600
	configDirPermissions  = 0o700
	yamlIndent            = 2
)

// Config is the root configuration document.
type Config struct {
	API     APIConfig      `yaml:"api"`
	Cache   CacheConfig    `yaml:"cache"`
	Logging LoggingConfig  `yaml:"logging"`
	Metrics MetricsConfig  `yaml:"metrics"`
	Clients []ClientConfig `yaml:"clients,omitempty"`

	configPath string
}

// APIConfig holds FusionSolar northbound API settings.
type APIConfig struct {
	BaseURL        string `yaml:"base_url"`
	Username       string `yaml:"username,omitempty"`
	Password       string `yaml:"password,omitempty"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Retries        int    `yaml:"retries"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Directory string `yaml:"directory"`
	TTLHours  int    `yaml:"ttl_hours"`
	Backend   string `yaml:"backend"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

// MetricsConfig holds the factors used by derived metrics.
type MetricsConfig struct {
	TariffKWh             float64 `yaml:"tariff_kwh"`
	Currency              string  `yaml:"currency"`
	EmissionFactorTPerMWh float64 `yaml:"emission_factor_t_per_mwh"`
	TreeAbsorptionKgYear  float64 `yaml:"tree_absorption_kg_year"`
	PeakSunHours          float64 `yaml:"peak_sun_hours"`
}

// ClientConfig describes one client plant included in report runs.
type ClientConfig struct {
	StationCode string  `yaml:"station_code"`
	Name        string  `yaml:"name"`
	CapacityKWp float64 `yaml:"capacity_kwp,omitempty"`
	Email       string  `yaml:"email,omitempty"`
	Phone       string  `yaml:"phone,omitempty"`
}

// Configuration validation errors.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

// New returns a Config populated with defaults. Its path points at the
// global config file, resolved from the process environment.
func New() *Config {
	return NewWithEnv(os.LookupEnv)
}

// NewWithEnv is New with the config directory resolved through lookupEnv.
func NewWithEnv(lookupEnv func(string) (string, bool)) *Config {
	dir, err := GetConfigDir(lookupEnv)
	if err != nil {
		dir = configDirName
	}

	return &Config{
		API: APIConfig{
			BaseURL:        DefaultBaseURL,
			TimeoutSeconds: DefaultTimeoutSeconds,
			Retries:        DefaultRetries,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Directory: filepath.Join(dir, filepath.FromSlash(DefaultCacheSubdir)),
			TTLHours:  cache.DefaultTTLHours,
			Backend:   cache.BackendFile,
		},
		Logging: LoggingConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Metrics: MetricsConfig{
			TariffKWh:             DefaultTariffKWh,
			Currency:              DefaultCurrency,
			EmissionFactorTPerMWh: DefaultEmissionFactor,
			TreeAbsorptionKgYear:  DefaultTreeAbsorption,
			PeakSunHours:          DefaultPeakSunHours,
		},
		configPath: filepath.Join(dir, configFileName),
	}
}

// Load resolves the configuration. path selects the config file; empty means
// the global default, which may be absent. An explicitly named file must exist.
// lookupEnv is normally os.LookupEnv.
func Load(path string, lookupEnv func(string) (string, bool)) (*Config, error) {
	cfg := NewWithEnv(lookupEnv)
	explicit := path != ""
	if explicit {
		cfg.configPath = path
	}

	data, err := os.ReadFile(cfg.configPath)
	switch {
	case err == nil:
		if unmarshalErr := yaml.Unmarshal(data, cfg); unmarshalErr != nil {
			return nil, fmt.Errorf("parsing config %s: %w", cfg.configPath, unmarshalErr)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// No global config yet: defaults apply.
	default:
		return nil, fmt.Errorf("reading config %s: %w", cfg.configPath, err)
	}

	if overlay := projectOverlayPath(lookupEnv); overlay != "" {
		if mergeErr := ShallowMergeYAML(cfg, overlay); mergeErr != nil {
			return nil, mergeErr
		}
	}

	cfg.ApplyEnv(lookupEnv)

	if validateErr := cfg.Validate(); validateErr != nil {
		return nil, validateErr
	}
	return cfg, nil
}

// ConfigPath returns the file this configuration is loaded from and saved to.
func (c *Config) ConfigPath() string {
	return c.configPath
}

// SetConfigPath changes the file used by Save.
func (c *Config) SetConfigPath(path string) {
	c.configPath = path
}

// Save writes the configuration as YAML, creating the parent directory.
func (c *Config) Save() error {
	if err := os.MkdirAll(filepath.Dir(c.configPath), configDirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	var sb strings.Builder
	enc := yaml.NewEncoder(&sb)
	enc.SetIndent(yamlIndent)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.configPath, []byte(sb.String()), configFilePermissions); err != nil {
		return fmt.Errorf("writing config %s: %w", c.configPath, err)
	}
	return nil
}

// Validate checks ranges and required values.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.API.BaseURL) == "" {
		problems = append(problems, "api.base_url must not be empty")
	}
	if c.API.TimeoutSeconds <= 0 || c.API.TimeoutSeconds > maxTimeoutSeconds {
		problems = append(problems, fmt.Sprintf("api.timeout_seconds must be between 1 and %d", maxTimeoutSeconds))
	}
	if c.API.Retries < 1 || c.API.Retries > maxRetries {
		problems = append(problems, fmt.Sprintf("api.retries must be between 1 and %d", maxRetries))
	}

	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Directory) == "" {
		problems = append(problems, "cache.directory must not be empty when the cache is enabled")
	}
	if cache.ValidateTTL(c.CacheTTL()) != nil {
		problems = append(problems,
			fmt.Sprintf("cache.ttl_hours must be between 1 and %d", int(cache.MaxTTL/time.Hour)))
	}
	switch c.Cache.Backend {
	case cache.BackendFile, cache.BackendSQLite, cache.BackendMemory:
	default:
		problems = append(problems, fmt.Sprintf("cache.backend %q is not one of file, sqlite, memory", c.Cache.Backend))
	}

	if c.Metrics.TariffKWh < 0 {
		problems = append(problems, "metrics.tariff_kwh must not be negative")
	}
	if c.Metrics.EmissionFactorTPerMWh < 0 {
		problems = append(problems, "metrics.emission_factor_t_per_mwh must not be negative")
	}
	if _, err := currency.ParseISO(c.Metrics.Currency); err != nil {
		problems = append(problems, fmt.Sprintf("metrics.currency %q is not an ISO 4217 code", c.Metrics.Currency))
	}
	if c.Metrics.TreeAbsorptionKgYear <= 0 {
		problems = append(problems, "metrics.tree_absorption_kg_year must be positive")
	}
	if c.Metrics.PeakSunHours <= 0 {
		problems = append(problems, "metrics.peak_sun_hours must be positive")
	}

	seen := make(map[string]bool, len(c.Clients))
	for i, client := range c.Clients {
		code := strings.TrimSpace(client.StationCode)
		if code == "" {
			problems = append(problems, fmt.Sprintf("clients[%d].station_code must not be empty", i))
			continue
		}
		if seen[code] {
			problems = append(problems, fmt.Sprintf("clients[%d].station_code %q is duplicated", i, code))
		}
		seen[code] = true
		if client.CapacityKWp < 0 {
			problems = append(problems, fmt.Sprintf("clients[%d].capacity_kwp must not be negative", i))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// CacheTTL returns the configured TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// CacheSettings converts the cache section for cache.Open.
func (c *Config) CacheSettings() cache.Settings {
	return cache.Settings{
		Enabled:   c.Cache.Enabled,
		Backend:   c.Cache.Backend,
		Directory: c.Cache.Directory,
		TTL:       c.CacheTTL(),
	}
}

// MetricsFactors converts the metrics section for the calculators.
func (c *Config) MetricsFactors() metrics.Factors {
	return metrics.Factors{
		TariffKWh:             c.Metrics.TariffKWh,
		Currency:              c.Metrics.Currency,
		EmissionFactorTPerMWh: c.Metrics.EmissionFactorTPerMWh,
		TreeAbsorptionKgYear:  c.Metrics.TreeAbsorptionKgYear,
		PeakSunHours:          c.Metrics.PeakSunHours,
	}
}

// APITimeout returns the per-request timeout.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// FindClient returns the configured client with the given station code.
func (c *Config) FindClient(stationCode string) (ClientConfig, bool) {
	for _, client := range c.Clients {
		if client.StationCode == stationCode {
			return client, true
		}
	}
	return ClientConfig{}, false
}

// GetConfigDir returns the path to the solarfocus configuration directory:
// SOLARFOCUS_HOME when lookupEnv has it, otherwise ~/.solarfocus.
func GetConfigDir(lookupEnv func(string) (string, bool)) (string, error) {
	if lookupEnv != nil {
		if home, ok := lookupString(lookupEnv, EnvHome); ok {
			return home, nil
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, configDirName), nil
}
