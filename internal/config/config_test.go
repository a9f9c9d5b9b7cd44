package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raikerian/go-voicelive/internal/config"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err, "A missing config file should fall back to defaults")

	assert.Equal(t, "ws://localhost:8000/ws", cfg.Client.ServerURL)
	assert.Equal(t, 24_000, cfg.Client.SampleRate)
	assert.Equal(t, 200, cfg.Client.ChunkMillis)
	assert.Equal(t, 200*time.Millisecond, cfg.Client.ChunkDuration())
	assert.Equal(t, ":8000", cfg.Bridge.ListenAddr)
	assert.Equal(t, config.ProviderMock, cfg.Bridge.Provider)
	assert.True(t, cfg.Bridge.TranscriptionsEnabled(), "Transcriptions default to enabled")
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := writeConfig(t, `
client:
  server_url: ws://bridge.internal:9000/ws
  chunk_ms: 100
bridge:
  provider: mock
  voice: echo
  show_transcriptions: false
log_level: debug
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "ws://bridge.internal:9000/ws", cfg.Client.ServerURL)
	assert.Equal(t, 100, cfg.Client.ChunkMillis)
	assert.Equal(t, 24_000, cfg.Client.SampleRate, "Unset fields keep their defaults")
	assert.Equal(t, "echo", cfg.Bridge.Voice)
	assert.False(t, cfg.Bridge.TranscriptionsEnabled())
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	path := writeConfig(t, "client: [not, a, mapping")
	_, err := config.LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
client:
  server_url: ws://from-file:8000/ws
bridge:
  model: gpt-4o-realtime-preview
`)

	t.Setenv("VOICELIVE_SERVER_URL", "ws://from-env:8000/ws")
	t.Setenv("VOICELIVE_MODEL", "gpt-4o-realtime-preview-2024-12-17")
	t.Setenv("VOICELIVE_SHOW_TRANSCRIPTIONS", "false")

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "ws://from-env:8000/ws", cfg.Client.ServerURL, "Environment wins over the file")
	assert.Equal(t, "gpt-4o-realtime-preview-2024-12-17", cfg.Bridge.Model)
	assert.False(t, cfg.Bridge.TranscriptionsEnabled())
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := map[string]struct {
		yaml        string
		env         map[string]string
		description string
	}{
		"negative_sample_rate": {
			yaml:        "client:\n  sample_rate: -1\n",
			description: "Negative capture rates are rejected",
		},
		"unknown_provider": {
			yaml:        "bridge:\n  provider: psychic\n",
			description: "Unrecognized providers are rejected",
		},
		"openai_without_key": {
			yaml:        "bridge:\n  provider: openai\n",
			env:         map[string]string{"VOICELIVE_API_KEY": "", "OPENAI_API_KEY": ""},
			description: "The openai provider needs an API key",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := config.LoadConfig(writeConfig(t, tt.yaml))
			assert.Error(t, err, tt.description)
		})
	}
}

func TestLoadConfig_OpenAIProviderWithKey(t *testing.T) {
	t.Setenv("VOICELIVE_API_KEY", "sk-test")

	cfg, err := config.LoadConfig(writeConfig(t, "bridge:\n  provider: openai\n"))
	require.NoError(t, err)
	assert.Equal(t, config.ProviderOpenAI, cfg.Bridge.Provider)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
}

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}
