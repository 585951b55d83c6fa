package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"console", func(c *Config) { c.Format = "console" }, ""},
		{"debug", func(c *Config) { c.Level = "debug" }, ""},
		{"bad level", func(c *Config) { c.Level = "loud" }, "log level"},
		{"bad format", func(c *Config) { c.Format = "xml" }, "log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mathguide.log")
	cfg := DefaultConfig()
	cfg.Output = path

	logger, closeFn, err := New(cfg)
	require.NoError(t, err)
	logger.Debug("dropped below level")
	logger.Info("turn handled", zap.String("session_id", "s1"))
	require.NoError(t, logger.Sync())
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "turn handled", entry["msg"])
	assert.Equal(t, "s1", entry["session_id"])
	assert.Equal(t, "mathguide", entry["service"])
	assert.Contains(t, entry, "ts")
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "chatty"
	_, _, err := New(cfg)
	assert.Error(t, err)
}

func TestBuild_SamplingKeepsErrors(t *testing.T) {
	var sb strings.Builder
	cfg := DefaultConfig()
	cfg.Sampling = true
	cfg.Fields = nil
	logger := build(cfg, zapcore.InfoLevel, zapcore.AddSync(&sb))

	for i := 0; i < 150; i++ {
		logger.Info("same message")
	}
	logger.Error("boom")
	require.NoError(t, logger.Sync())

	out := sb.String()
	assert.Less(t, strings.Count(out, "same message"), 150)
	assert.Contains(t, out, "boom")
}
