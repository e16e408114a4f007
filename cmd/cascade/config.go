package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/samcharles93/cascade/internal/backend"
	"github.com/samcharles93/cascade/internal/inference"
	"github.com/samcharles93/cascade/internal/prompt"
)

// Config represents the cascade configuration file (~/.config/cascade/config.yaml).
// All fields are pointers or strings so we can distinguish "not set" from zero values.
type Config struct {
	// Backend
	Backend           string         `yaml:"backend"`
	ServerURL         string         `yaml:"server_url"`
	APIKey            string         `yaml:"api_key"`
	Model             string         `yaml:"model"`
	ChatFormat        string         `yaml:"chat_format"`
	OmitBOS           *bool          `yaml:"omit_bos"`
	RequestTimeout    *time.Duration `yaml:"request_timeout"`
	RequestsPerSecond *float64       `yaml:"requests_per_second"`
	Burst             *int64         `yaml:"burst"`

	// Sampling defaults
	Temperature   *float64 `yaml:"temperature"`
	TopK          *int64   `yaml:"top_k"`
	TopP          *float64 `yaml:"top_p"`
	MinP          *float64 `yaml:"min_p"`
	RepeatPenalty *float64 `yaml:"repeat_penalty"`
	Seed          *int64   `yaml:"seed"`
	MaxAttempts   *int64   `yaml:"max_attempts"`

	// Cascades
	MaxFailures *int64 `yaml:"max_failures"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`
}

// fileConfig is loaded once by the root command's Before hook.
var fileConfig Config

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "cascade", "config.yaml")
}

// LoadConfig reads the config file. A missing file yields a zero Config;
// a malformed one is an error.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// applyLoggingConfig applies config file defaults to the global logging flags
// when they were not explicitly set.
func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyBackendConfig applies config file defaults to backend and sampling
// flags when the corresponding CLI flag was not explicitly set.
func applyBackendConfig(c *cli.Command, cfg Config) {
	if cfg.Backend != "" && !c.IsSet("backend") {
		backendName = cfg.Backend
	}
	if cfg.ServerURL != "" && !c.IsSet("server-url") {
		serverURL = cfg.ServerURL
	}
	if cfg.APIKey != "" && !c.IsSet("api-key") {
		apiKey = cfg.APIKey
	}
	if cfg.Model != "" && !c.IsSet("model") {
		modelName = cfg.Model
	}
	if cfg.ChatFormat != "" && !c.IsSet("chat-format") {
		chatFormat = cfg.ChatFormat
	}
	if cfg.OmitBOS != nil && !c.IsSet("omit-bos") {
		omitBOS = *cfg.OmitBOS
	}
	if cfg.RequestTimeout != nil && !c.IsSet("request-timeout") {
		requestTimeout = *cfg.RequestTimeout
	}
	if cfg.RequestsPerSecond != nil && !c.IsSet("requests-per-second") {
		requestsPerSec = *cfg.RequestsPerSecond
	}
	if cfg.Burst != nil && !c.IsSet("burst") {
		requestBurst = *cfg.Burst
	}
	if cfg.Temperature != nil && !c.IsSet("temperature") {
		temperature = *cfg.Temperature
	}
	if cfg.TopK != nil && !c.IsSet("top-k") {
		topK = *cfg.TopK
	}
	if cfg.TopP != nil && !c.IsSet("top-p") {
		topP = *cfg.TopP
	}
	if cfg.MinP != nil && !c.IsSet("min-p") {
		minP = *cfg.MinP
	}
	if cfg.RepeatPenalty != nil && !c.IsSet("repeat-penalty") {
		repeatPenalty = *cfg.RepeatPenalty
	}
	if cfg.Seed != nil && !c.IsSet("seed") {
		seed = *cfg.Seed
	}
	if cfg.MaxAttempts != nil && !c.IsSet("max-attempts") {
		maxAttempts = *cfg.MaxAttempts
	}
}

func backendConfig() backend.Config {
	return backend.Config{
		Name:      backendName,
		BaseURL:   serverURL,
		APIKey:    apiKey,
		Model:     modelName,
		Format:    prompt.Format(chatFormat),
		OmitBOS:   omitBOS,
		Timeout:   requestTimeout,
		RateLimit: requestsPerSec,
		Burst:     int(requestBurst),
	}
}

func samplingOptions() inference.ConfigOptions {
	k := int(topK)
	attempts := int(maxAttempts)
	return inference.ConfigOptions{
		Temperature:   &temperature,
		TopK:          &k,
		TopP:          &topP,
		MinP:          &minP,
		RepeatPenalty: &repeatPenalty,
		Seed:          &seed,
		MaxAttempts:   &attempts,
	}
}
