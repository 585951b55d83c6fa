package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Index.Backend)
	assert.Equal(t, "hash", cfg.Embed.Provider)
	assert.False(t, cfg.LLM.Enabled())
	assert.True(t, cfg.Store.Journal)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
guidance:
  embed_timeout: 500ms
  top_k: 4
index:
  backend: qdrant
  qdrant:
    host: vectors.internal
    port: 6334
logging:
  level: debug
  format: console
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host, "unset fields keep defaults")
	assert.Equal(t, 500*time.Millisecond, cfg.Guidance.EmbedTimeout)
	assert.Equal(t, 2*time.Second, cfg.Guidance.IndexTimeout)
	assert.Equal(t, 4, cfg.Guidance.TopK)
	assert.Equal(t, "qdrant", cfg.Index.Backend)
	assert.Equal(t, "vectors.internal", cfg.Index.Qdrant.Host)
	assert.Equal(t, 6334, cfg.Index.Qdrant.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	t.Setenv("MATHGUIDE_SERVER_PORT", "7070")
	t.Setenv("MATHGUIDE_GUIDANCE_INDEX_TIMEOUT", "3s")
	t.Setenv("MATHGUIDE_STORE_JOURNAL", "false")
	t.Setenv("MATHGUIDE_INDEX_PINECONE_INDEX_NAME", "problems")
	t.Setenv("MATHGUIDE_LLM_RETRY_MAX_ATTEMPTS", "5")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Guidance.IndexTimeout)
	assert.False(t, cfg.Store.Journal)
	assert.Equal(t, "problems", cfg.Index.Pinecone.IndexName)
	assert.Equal(t, 5, cfg.LLM.Retry.MaxAttempts)
}

func TestLoad_ProviderKeysFromEnv(t *testing.T) {
	t.Setenv("MATHGUIDE_LLM_PROVIDER", "openai")
	t.Setenv("MATHGUIDE_OPENAI_API_KEY", "sk-test")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.OpenAI.APIKey)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		path    func(t *testing.T) string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing file",
			path:    func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent.yaml") },
			wantErr: "failed to open config file",
		},
		{
			name:    "directory",
			path:    func(t *testing.T) string { return t.TempDir() },
			wantErr: "is a directory",
		},
		{
			name:    "malformed yaml",
			path:    func(t *testing.T) string { return writeConfig(t, "server: [unclosed") },
			wantErr: "failed to parse config file",
		},
		{
			name:    "oversized file",
			path:    func(t *testing.T) string { return writeConfig(t, "# "+strings.Repeat("x", maxConfigFileSize)) },
			wantErr: "config file too large",
		},
		{
			name:    "bad duration",
			path:    func(t *testing.T) string { return writeConfig(t, "guidance:\n  embed_timeout: soon\n") },
			wantErr: "failed to unmarshal config",
		},
		{
			name:    "port out of range",
			path:    func(t *testing.T) string { return "" },
			env:     map[string]string{"MATHGUIDE_SERVER_PORT": "70000"},
			wantErr: "config validation failed",
		},
		{
			name:    "provider without key",
			path:    func(t *testing.T) string { return "" },
			env:     map[string]string{"MATHGUIDE_LLM_PROVIDER": "anthropic"},
			wantErr: "MATHGUIDE_ANTHROPIC_API_KEY is required",
		},
		{
			name:    "unknown index backend",
			path:    func(t *testing.T) string { return writeConfig(t, "index:\n  backend: redis\n") },
			wantErr: "unknown index backend",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(tt.path(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"MATHGUIDE_SERVER_PORT", "server.port"},
		{"MATHGUIDE_SERVER_SHUTDOWN_TIMEOUT", "server.shutdown_timeout"},
		{"MATHGUIDE_INDEX_QDRANT_API_KEY", "index.qdrant.api_key"},
		{"MATHGUIDE_INDEX_COLLECTION", "index.collection"},
		{"MATHGUIDE_LLM_ANTHROPIC_MODEL", "llm.anthropic.model"},
		{"MATHGUIDE_LLM_TIMEOUT", "llm.timeout"},
		{"MATHGUIDE_LOGGING_FIELDS", ""},
		{"MATHGUIDE_DB", ""},
		{"MATHGUIDE_OPENAI_API_KEY", ""},
		{"MATHGUIDE_SERVER", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, envKey(tt.in))
		})
	}
}
