package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_JSONInProduction(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Environment: "production", Level: slog.LevelInfo})

	log.Info("board created", "board_id", "board-1")

	out := buf.String()
	assert.Contains(t, out, `"msg":"board created"`)
	assert.Contains(t, out, `"board_id":"board-1"`)
	assert.Contains(t, out, `"level":"INFO"`)
}

func TestNew_PrettyOutsideProduction(t *testing.T) {
	for _, env := range []string{"development", "staging"} {
		t.Run(env, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(Config{Writer: &buf, Environment: env, Level: slog.LevelInfo})

			log.Info("page saved", "page_id", "page-1")

			out := buf.String()
			assert.Contains(t, out, "INF")
			assert.Contains(t, out, "page saved")
			assert.Contains(t, out, "page_id=page-1")
			assert.NotContains(t, out, `"msg"`)
		})
	}
}

func TestPrettyHandler_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "pretty", Level: slog.LevelWarn})

	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "WRN")
	assert.Contains(t, buf.String(), "shown")
}

func TestPrettyHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "pretty", Level: slog.LevelDebug})

	log.Component("ordering").WithGroup("reorder").Debug("done", "writes", 3)

	out := buf.String()
	assert.Contains(t, out, "component=ordering")
	assert.Contains(t, out, "reorder.writes=3")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}
