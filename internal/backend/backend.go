// Package backend selects and constructs the completion backend a cascade
// runs against.
package backend

import (
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/samcharles93/cascade/internal/backend/langchain"
	"github.com/samcharles93/cascade/internal/backend/llamacpp"
	"github.com/samcharles93/cascade/internal/inference"
	"github.com/samcharles93/cascade/internal/prompt"
)

const (
	LlamaCpp = "llamacpp"
	OpenAI   = "openai"
	Ollama   = "ollama"
)

// Config describes how to reach a backend. Fields that do not apply to the
// selected backend are ignored.
type Config struct {
	Name    string        `yaml:"name"`
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Format  prompt.Format `yaml:"format"`
	OmitBOS bool          `yaml:"omit_bos"`
	Timeout time.Duration `yaml:"timeout"`
	// RateLimit caps requests per second; zero disables pacing.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

func Normalize(name string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(name))
	switch backend {
	case "", "llama.cpp", "llama-cpp", LlamaCpp:
		return LlamaCpp, nil
	case OpenAI, Ollama:
		return backend, nil
	default:
		return "", fmt.Errorf("unknown backend %q (expected %s)", name, Available())
	}
}

// Available returns a comma-separated list of supported backends.
func Available() string {
	return strings.Join([]string{LlamaCpp, OpenAI, Ollama}, ", ")
}

// Open builds the backend named by cfg.Name.
func Open(cfg Config) (inference.Backend, error) {
	name, err := Normalize(cfg.Name)
	if err != nil {
		return nil, err
	}
	switch name {
	case OpenAI:
		opts := []openai.Option{openai.WithModel(cfg.Model)}
		if cfg.APIKey != "" {
			opts = append(opts, openai.WithToken(cfg.APIKey))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("openai backend: %w", err)
		}
		return langchain.New(llm), nil
	case Ollama:
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("ollama backend: %w", err)
		}
		return langchain.New(llm), nil
	default:
		format, err := prompt.ParseFormat(string(cfg.Format))
		if err != nil {
			return nil, err
		}
		opts := []llamacpp.Option{
			llamacpp.WithFormat(format),
			llamacpp.WithOmitBOS(cfg.OmitBOS),
			llamacpp.WithAPIKey(cfg.APIKey),
			llamacpp.WithRateLimit(cfg.RateLimit, cfg.Burst),
		}
		if cfg.Timeout > 0 {
			opts = append(opts, llamacpp.WithTimeout(cfg.Timeout))
		}
		return llamacpp.New(cfg.BaseURL, opts...), nil
	}
}
