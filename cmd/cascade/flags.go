package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

var (
	configFile string
	logLevel   string
	logFormat  string
	debug      bool

	backendName    string
	serverURL      string
	apiKey         string
	modelName      string
	chatFormat     string
	omitBOS        bool
	requestTimeout time.Duration
	requestsPerSec float64
	requestBurst   int64

	temperature   float64
	topK          int64
	topP          float64
	minP          float64
	repeatPenalty float64
	seed          int64
	maxAttempts   int64
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml",
			Value:       configPath(),
			Sources:     cli.EnvVars("CASCADE_CONFIG"),
			Destination: &configFile,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (auto, pretty, json, text)",
			Value:       "auto",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func backendFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "backend",
			Usage:       "completion backend (llamacpp, openai, ollama)",
			Value:       "llamacpp",
			Destination: &backendName,
		},
		&cli.StringFlag{
			Name:        "server-url",
			Aliases:     []string{"url"},
			Usage:       "backend base URL",
			Sources:     cli.EnvVars("CASCADE_SERVER_URL"),
			Destination: &serverURL,
		},
		&cli.StringFlag{
			Name:        "api-key",
			Usage:       "backend API key",
			Sources:     cli.EnvVars("CASCADE_API_KEY"),
			Destination: &apiKey,
		},
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "model name for chat backends",
			Destination: &modelName,
		},
		&cli.StringFlag{
			Name:        "chat-format",
			Usage:       "prompt template for llama.cpp (chatml, llama3, mistral, gemma, raw)",
			Value:       "chatml",
			Destination: &chatFormat,
		},
		&cli.BoolFlag{
			Name:        "omit-bos",
			Usage:       "leave the begin-of-sequence token to the server",
			Destination: &omitBOS,
		},
		&cli.DurationFlag{
			Name:        "request-timeout",
			Usage:       "per-request timeout",
			Value:       10 * time.Minute,
			Destination: &requestTimeout,
		},
		&cli.Float64Flag{
			Name:        "requests-per-second",
			Usage:       "pace backend requests (0 disables pacing)",
			Destination: &requestsPerSec,
		},
		&cli.Int64Flag{
			Name:        "burst",
			Usage:       "request burst allowed by --requests-per-second",
			Value:       1,
			Destination: &requestBurst,
		},
	}
}

func samplingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{
			Name:        "temperature",
			Aliases:     []string{"temp", "t"},
			Usage:       "sampling temperature",
			Value:       0.8,
			Destination: &temperature,
		},
		&cli.Int64Flag{
			Name:        "top-k",
			Usage:       "top-k sampling (0 = disabled)",
			Value:       40,
			Destination: &topK,
		},
		&cli.Float64Flag{
			Name:        "top-p",
			Usage:       "top-p sampling",
			Value:       0.95,
			Destination: &topP,
		},
		&cli.Float64Flag{
			Name:        "min-p",
			Usage:       "min-p sampling",
			Destination: &minP,
		},
		&cli.Float64Flag{
			Name:        "repeat-penalty",
			Usage:       "repeat penalty",
			Value:       1.1,
			Destination: &repeatPenalty,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "RNG seed (-1 = random)",
			Value:       -1,
			Destination: &seed,
		},
		&cli.Int64Flag{
			Name:        "max-attempts",
			Usage:       "attempts per completion before a step fails",
			Value:       3,
			Destination: &maxAttempts,
		},
	}
}
