package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/solarfocus/internal/logging"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Level: "warn", Format: logging.FormatJSON}, &buf)

	logger.Info().Msg("hidden")
	logger.Warn().Str("key", "v").Msg("shown")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var event map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &event))
	assert.Equal(t, "shown", event["message"])
	assert.Equal(t, "v", event["key"])
	assert.Equal(t, "warn", event["level"])
}

func TestNewInvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Level: "chatty", Format: logging.FormatJSON}, &buf)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.ComponentLogger(logging.New(logging.Config{Format: logging.FormatJSON}, &buf), "cache")
	logger.Info().Msg("hello")
	assert.Contains(t, buf.String(), `"component":"cache"`)
}

func TestNewLoggerWithPath(t *testing.T) {
	t.Run("stderr", func(t *testing.T) {
		result := logging.NewLoggerWithPath(logging.Config{Level: "info"})
		assert.False(t, result.UsingFile)
		assert.NoError(t, result.Close())
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "solarfocus.log")
		result := logging.NewLoggerWithPath(logging.Config{Level: "info", Output: logging.OutputFile, File: path})
		require.True(t, result.UsingFile)
		result.Logger.Info().Msg("to file")
		require.NoError(t, result.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"message":"to file"`)
	})

	t.Run("fallback", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(blocker, nil, 0o600))

		result := logging.NewLoggerWithPath(logging.Config{
			Output: logging.OutputFile,
			File:   filepath.Join(blocker, "nested", "x.log"),
		})
		assert.False(t, result.UsingFile)
		assert.True(t, result.FallbackUsed)
		assert.NotEmpty(t, result.FallbackReason)

		var buf bytes.Buffer
		logging.PrintFallbackWarning(&buf, result.FallbackReason)
		assert.Contains(t, buf.String(), "logging to stderr")
	})
}

func TestTraceID(t *testing.T) {
	id := logging.NewTraceID()
	_, err := ulid.Parse(id)
	require.NoError(t, err)

	ctx := context.Background()
	assert.Empty(t, logging.TraceIDFromContext(ctx))
	assert.NotEmpty(t, logging.GetOrGenerateTraceID(ctx))

	ctx = logging.ContextWithTraceID(ctx, id)
	assert.Equal(t, id, logging.TraceIDFromContext(ctx))
	assert.Equal(t, id, logging.GetOrGenerateTraceID(ctx))
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Format: logging.FormatJSON}, &buf)
	ctx := logger.WithContext(context.Background())

	logging.FromContext(ctx).Info().Msg("from ctx")
	assert.Contains(t, buf.String(), "from ctx")
}
