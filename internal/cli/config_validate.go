package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/solarfocus/internal/engine/cache"
)

// newConfigValidateCmd creates the config validate command. Loading already
// validates, so reaching RunE means the configuration is valid.
func newConfigValidateCmd(a *app) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		Long: `Validates the configuration file at ~/.solarfocus/config.yaml after
environment overrides are applied: API timeout and retries, cache TTL and
backend, metric factors and currency, and client station codes.`,
		Example: `  # Validate current configuration
  solarfocus config validate

  # Validate and show detailed information
  solarfocus config validate --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.Printf("✅ Configuration is valid\n")
			if verbose {
				a.printVerboseDetails(cmd)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show detailed validation information")

	return cmd
}

// printVerboseDetails prints detailed configuration information. The
// password is never printed.
func (a *app) printVerboseDetails(cmd *cobra.Command) {
	cfg := a.cfg
	cmd.Println()
	cmd.Println("Configuration details:")
	cmd.Printf("  Config file: %s\n", cfg.ConfigPath())
	cmd.Printf("  API base URL: %s\n", cfg.API.BaseURL)
	cmd.Printf("  API user: %s\n", orUnset(cfg.API.Username))
	cmd.Printf("  API password: %s\n", maskedSecret(cfg.API.Password))

	if cfg.Cache.Enabled {
		cmd.Printf("  Cache: %s (%s, TTL %s)\n",
			cfg.Cache.Directory, cfg.Cache.Backend, cache.FormatDuration(cfg.CacheTTL()))
	} else {
		cmd.Println("  Cache: disabled")
	}
	cmd.Printf("  Logging level: %s\n", cfg.Logging.Level)
	cmd.Printf("  Tariff: %.3f %s/kWh\n", cfg.Metrics.TariffKWh, cfg.Metrics.Currency)

	if len(cfg.Clients) == 0 {
		cmd.Println("  No clients configured")
		return
	}
	cmd.Printf("  Configured clients: %d\n", len(cfg.Clients))
	for _, c := range cfg.Clients {
		cmd.Printf("    - %s (%s)\n", c.Name, c.StationCode)
	}
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func maskedSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	return fmt.Sprintf("(set, %d characters)", len(s))
}
