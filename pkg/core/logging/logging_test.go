package logging

import (
	"bytes"
	"context"
	"log/slog"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		flag string
		want slog.Level
	}{
		{flag: "debug", want: slog.LevelDebug},
		{flag: " DEBUG ", want: slog.LevelDebug},
		{flag: "Info", want: slog.LevelInfo},
		{flag: "warn", want: slog.LevelWarn},
		{flag: "WARNING", want: slog.LevelWarn},
		{flag: "error", want: slog.LevelError},
		{flag: "", want: slog.LevelInfo},
		{flag: "verbose", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.flag))
		})
	}
}

// Each --log-level value decides which workbench messages reach stderr.
func TestNewLoggerTo_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{level: "debug", want: []string{"pass failed", "template analyzed", "template invalid", "analysis failed"}},
		{level: "info", want: []string{"template analyzed", "template invalid", "analysis failed"}},
		{level: "warn", want: []string{"template invalid", "analysis failed"}},
		{level: "error", want: []string{"analysis failed"}},
	}

	messages := []struct {
		level slog.Level
		msg   string
	}{
		{slog.LevelDebug, "pass failed"},
		{slog.LevelInfo, "template analyzed"},
		{slog.LevelWarn, "template invalid"},
		{slog.LevelError, "analysis failed"},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerTo(&buf, tt.level)
			for _, m := range messages {
				logger.Log(context.Background(), m.level, m.msg)
			}

			for _, m := range messages {
				if slices.Contains(tt.want, m.msg) {
					assert.Contains(t, buf.String(), m.msg)
				} else {
					assert.NotContains(t, buf.String(), m.msg)
				}
			}
		})
	}
}

func TestNewLoggerTo_Logfmt(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "info").With("run_id", "r1")

	logger.Info("template analyzed", "template", "invoice.ftl", "paths", 12, "valid", true)

	out := buf.String()
	assert.Contains(t, out, `level=INFO msg="template analyzed" run_id=r1 template=invoice.ftl paths=12 valid=true`)
	assert.NotContains(t, out, `"template":`)
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	assert.False(t, logger.Enabled(context.Background(), slog.LevelError))
}
