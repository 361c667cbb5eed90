// Package cli implements the solarfocus command tree.
package cli

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rshade/solarfocus/internal/config"
	"github.com/rshade/solarfocus/internal/logging"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // File descriptors fit in int.
}

// app is the state shared by the commands of one invocation.
type app struct {
	lookupEnv  func(string) (string, bool)
	now        func() time.Time
	stdinIsTTY func() bool
	workDir    func() (string, error)

	configPath string
	debug      bool

	cfg       *config.Config
	logger    zerolog.Logger
	logResult *logging.Result
}

func newApp(lookupEnv func(string) (string, bool)) *app {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	return &app{
		lookupEnv:  lookupEnv,
		now:        time.Now,
		stdinIsTTY: func() bool { return isTerminal(os.Stdin) },
		workDir:    os.Getwd,
		logger:     zerolog.Nop(),
	}
}

// NewRootCmd creates the root Cobra command for the solarfocus CLI.
func NewRootCmd(ver string) *cobra.Command {
	return NewRootCmdWithEnv(ver, os.LookupEnv)
}

// NewRootCmdWithEnv creates the root command with an explicit environment
// lookup for testability.
func NewRootCmdWithEnv(ver string, lookupEnv func(string) (string, bool)) *cobra.Command {
	return newRootCmd(ver, newApp(lookupEnv))
}

func newRootCmd(ver string, a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "solarfocus",
		Short:         "FusionSolar monthly reports with a local response cache",
		Long:          "solarfocus: Fetch monthly solar plant data from FusionSolar and report generation, savings and CO2 avoided",
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return a.cleanup()
		},
	}

	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.solarfocus/config.yaml)")
	cmd.AddCommand(
		newReportCmd(a),
		newStationsCmd(a),
		newCacheCmd(a),
		newConfigCmd(a),
	)

	return cmd
}

const rootCmdExample = `  # Report the previous month for a station
  solarfocus report --station NE=33554432

  # Report November 2025 and export the data as JSON
  solarfocus report --station NE=33554432 --month 11 --year 2025 --json report.json

  # Report every client listed in the config file
  solarfocus report --clients

  # List the stations visible to the account
  solarfocus stations

  # Inspect and maintain the response cache
  solarfocus cache stats
  solarfocus cache clear-old --hours 48

  # Initialize configuration
  solarfocus config init`

// newConfigCmd creates the config command group.
func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration management commands"}
	cmd.AddCommand(newConfigInitCmd(a), newConfigValidateCmd(a))
	return cmd
}
