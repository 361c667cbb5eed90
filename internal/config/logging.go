package config

import (
	"github.com/rshade/solarfocus/internal/logging"
)

// ToLoggingConfig converts the logging section to logging.Config.
//
// If File is set, Output becomes "file" and File is passed through;
// otherwise output goes to stderr.
func (lc LoggingConfig) ToLoggingConfig() logging.Config {
	output := outputTypeStderr
	if lc.File != "" {
		output = outputTypeFile
	}

	return logging.Config{
		Level:  lc.Level,
		Format: lc.Format,
		Output: output,
		File:   lc.File,
	}
}
