package logger

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	// Not parallel: Setup mutates the process default logger.

	for _, level := range []string{"debug", "info", "warn", "error"} {
		l, err := Setup(LoggerConfig{Level: level})
		require.NoError(t, err, "level %s", level)
		require.NotNil(t, l)
	}

	// Invalid level falls back to info instead of failing.
	l, err := Setup(LoggerConfig{Level: "verbose"})
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.True(t, l.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, l.Enabled(context.Background(), slog.LevelDebug))
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("returns stored logger", func(t *testing.T) {
		t.Parallel()

		ctx := WithLogger(context.Background(), custom)
		assert.Same(t, custom, FromContext(ctx))
	})

	t.Run("falls back to default", func(t *testing.T) {
		t.Parallel()

		assert.Same(t, slog.Default(), FromContext(context.Background()))
	})

	t.Run("falls back to provided logger", func(t *testing.T) {
		t.Parallel()

		fallback := slog.New(slog.NewTextHandler(io.Discard, nil))
		assert.Same(t, fallback, FromContextOrDefault(context.Background(), fallback))

		ctx := WithLogger(context.Background(), custom)
		assert.Same(t, custom, FromContextOrDefault(ctx, fallback))
	})
}
