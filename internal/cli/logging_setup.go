package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/solarfocus/internal/config"
	"github.com/rshade/solarfocus/internal/logging"
	"github.com/rshade/solarfocus/internal/migration"
)

// setup loads configuration and installs the logger and trace id on the
// command context. `config init` must work without a readable config file,
// so a load failure there falls back to defaults.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath, a.lookupEnv)
	if err != nil {
		if !skipsConfigLoad(cmd) {
			return err
		}
		cfg = config.NewWithEnv(a.lookupEnv)
		if a.configPath != "" {
			cfg.SetConfigPath(a.configPath)
		}
	}
	a.cfg = cfg

	a.setupLogging(cmd)

	if _, skip := a.lookupEnv(config.EnvSkipMigrationCheck); !skip && a.stdinIsTTY() {
		if wd, wdErr := a.workDir(); wdErr == nil {
			if migErr := migration.RunCleanup(cmd.ErrOrStderr(), cmd.InOrStdin(), wd); migErr != nil {
				// Best effort: a failed cleanup must not block the command.
				cmd.PrintErrf("Warning: legacy cache cleanup failed: %v\n", migErr)
			}
		}
	}
	return nil
}

func skipsConfigLoad(cmd *cobra.Command) bool {
	return cmd.Name() == "init" && cmd.Parent() != nil && cmd.Parent().Name() == "config"
}

// setupLogging configures logging from config, environment and the --debug flag.
func (a *app) setupLogging(cmd *cobra.Command) {
	loggingCfg := a.cfg.Logging.ToLoggingConfig()
	if a.debug {
		loggingCfg.Level = "debug"
		loggingCfg.Format = logging.FormatConsole
		loggingCfg.Output = logging.OutputStderr
		loggingCfg.File = ""
	}

	result := logging.NewLoggerWithPath(loggingCfg)
	a.logResult = &result
	a.logger = logging.ComponentLogger(result.Logger, "cli")

	if result.UsingFile {
		logging.PrintLogPathMessage(cmd.ErrOrStderr(), result.FilePath)
	} else if result.FallbackUsed {
		logging.PrintFallbackWarning(cmd.ErrOrStderr(), result.FallbackReason)
	}

	ctx := cmd.Context()
	traceID := logging.GetOrGenerateTraceID(ctx)
	ctx = logging.ContextWithTraceID(ctx, traceID)
	ctx = a.logger.With().Str("trace_id", traceID).Logger().WithContext(ctx)
	cmd.SetContext(ctx)

	a.logger.Debug().Ctx(ctx).
		Str("command", cmd.CommandPath()).
		Str("config", a.cfg.ConfigPath()).
		Msg("command started")
}

// cleanup closes the log file, if one was opened.
func (a *app) cleanup() error {
	if a.logResult == nil {
		return nil
	}
	if err := a.logResult.Close(); err != nil {
		return fmt.Errorf("closing log file: %w", err)
	}
	return nil
}
