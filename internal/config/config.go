package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider names accepted by BridgeConfig.Provider.
const (
	ProviderMock   = "mock"
	ProviderOpenAI = "openai"
)

const defaultInstructions = "You are a helpful AI assistant. Respond naturally and conversationally. " +
	"Keep your responses concise but engaging."

// ClientConfig stores the voice client configuration.
type ClientConfig struct {
	ServerURL        string        `yaml:"server_url"`
	SampleRate       int           `yaml:"sample_rate"`
	ChunkMillis      int           `yaml:"chunk_ms"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
}

// ChunkDuration returns the configured chunk length as a duration.
func (c *ClientConfig) ChunkDuration() time.Duration {
	return time.Duration(c.ChunkMillis) * time.Millisecond
}

// BridgeConfig stores the bridge server configuration.
type BridgeConfig struct {
	ListenAddr          string `yaml:"listen_addr"`
	Provider            string `yaml:"provider"`
	Model               string `yaml:"model"`
	Voice               string `yaml:"voice"`
	Instructions        string `yaml:"instructions"`
	ShowTranscriptions  *bool  `yaml:"show_transcriptions"`
	TranscriptCacheSize int    `yaml:"transcript_cache_size"`
}

// TranscriptionsEnabled reports whether user transcripts are relayed to the
// client. Unset means enabled.
func (c *BridgeConfig) TranscriptionsEnabled() bool {
	return c.ShowTranscriptions == nil || *c.ShowTranscriptions
}

// OpenAIConfig stores OpenAI specific configurations.
type OpenAIConfig struct {
	APIKey string `yaml:"api_key"`
}

// Config stores the application configuration.
type Config struct {
	Client   ClientConfig `yaml:"client"`
	Bridge   BridgeConfig `yaml:"bridge"`
	OpenAI   OpenAIConfig `yaml:"openai"`
	LogLevel string       `yaml:"log_level"`
}

// LoadConfig loads the configuration from the given file path, fills in
// defaults and applies VOICELIVE_* environment overrides. A missing file is
// not an error; defaults plus environment are enough to run locally.
func LoadConfig(filePath string) (*Config, error) {
	// Optional .env file for local development.
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(filePath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filePath, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Client.ServerURL == "" {
		c.Client.ServerURL = "ws://localhost:8000/ws"
	}
	if c.Client.SampleRate == 0 {
		c.Client.SampleRate = 24_000
	}
	if c.Client.ChunkMillis == 0 {
		c.Client.ChunkMillis = 200
	}
	if c.Client.HandshakeTimeout == 0 {
		c.Client.HandshakeTimeout = 10 * time.Second
	}
	if c.Bridge.ListenAddr == "" {
		c.Bridge.ListenAddr = ":8000"
	}
	if c.Bridge.Provider == "" {
		c.Bridge.Provider = ProviderMock
	}
	if c.Bridge.Model == "" {
		c.Bridge.Model = "gpt-4o-realtime-preview"
	}
	if c.Bridge.Voice == "" {
		c.Bridge.Voice = "shimmer"
	}
	if c.Bridge.Instructions == "" {
		c.Bridge.Instructions = defaultInstructions
	}
	if c.Bridge.TranscriptCacheSize == 0 {
		c.Bridge.TranscriptCacheSize = 128
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("VOICELIVE_SERVER_URL"); v != "" {
		c.Client.ServerURL = v
	}
	if v := os.Getenv("VOICELIVE_LISTEN_ADDR"); v != "" {
		c.Bridge.ListenAddr = v
	}
	if v := os.Getenv("VOICELIVE_PROVIDER"); v != "" {
		c.Bridge.Provider = v
	}
	if v := os.Getenv("VOICELIVE_MODEL"); v != "" {
		c.Bridge.Model = v
	}
	if v := os.Getenv("VOICELIVE_VOICE"); v != "" {
		c.Bridge.Voice = v
	}
	if v := os.Getenv("VOICELIVE_INSTRUCTIONS"); v != "" {
		c.Bridge.Instructions = v
	}
	if v := os.Getenv("VOICELIVE_SHOW_TRANSCRIPTIONS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Bridge.ShowTranscriptions = &b
		}
	}
	if v := os.Getenv("VOICELIVE_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if v := os.Getenv("VOICELIVE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if c.Client.SampleRate <= 0 {
		return fmt.Errorf("client sample_rate must be positive, got %d", c.Client.SampleRate)
	}
	if c.Client.ChunkMillis <= 0 {
		return fmt.Errorf("client chunk_ms must be positive, got %d", c.Client.ChunkMillis)
	}
	if c.Bridge.TranscriptCacheSize <= 0 {
		return fmt.Errorf("bridge transcript_cache_size must be positive, got %d", c.Bridge.TranscriptCacheSize)
	}

	switch c.Bridge.Provider {
	case ProviderMock:
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return errors.New("openai provider requires an api key")
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Bridge.Provider)
	}
	return nil
}
