package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rshade/solarfocus/internal/config"
)

// newConfigInitCmd creates the config init command for initializing configuration.
// It writes the default configuration and a .gitignore next to it so cached
// responses and exported reports are not committed by accident.
func newConfigInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file with default values",
		Long: `Creates a new configuration file with default values at
~/.solarfocus/config.yaml (or the file named by --config), plus a .gitignore
in the same directory.`,
		Example: `  # Create the default configuration
  solarfocus config init

  # Create configuration, overwriting existing
  solarfocus config init --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(cmd, config.NewWithEnv(a.lookupEnv), a.cfg.ConfigPath(), force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing configuration file")

	return cmd
}

func initConfig(cmd *cobra.Command, defaults *config.Config, configPath string, force bool) error {
	if !force {
		_, err := os.Stat(configPath)
		if err == nil {
			return errors.New("configuration file already exists, use --force to overwrite")
		}
		if !os.IsNotExist(err) {
			return fmt.Errorf("cannot access config path %s: %w", configPath, err)
		}
	}

	// Always start from defaults, not from what the environment overrode.
	defaults.SetConfigPath(configPath)
	if err := defaults.Save(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	// Create .gitignore (never overwrites existing)
	created, err := config.EnsureGitignore(filepath.Dir(configPath))
	if err != nil {
		return fmt.Errorf("failed to create .gitignore: %w", err)
	}

	cmd.Printf("Configuration initialized at %s\n", configPath)
	if created {
		cmd.Printf("Created .gitignore to keep cache and reports out of version control\n")
	}

	return nil
}
