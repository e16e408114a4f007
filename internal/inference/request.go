package inference

// Config holds sampling and retry settings applied to every backend call.
type Config struct {
	Temperature   float64
	TopK          int
	TopP          float64
	MinP          float64
	RepeatPenalty float64
	RepeatLastN   int
	Seed          int64

	// MaxAttempts bounds how often a backend retries a single completion
	// that failed with a retryable error.
	MaxAttempts int
}

// ConfigOptions carries optional overrides; nil fields keep the defaults.
type ConfigOptions struct {
	Temperature   *float64
	TopK          *int
	TopP          *float64
	MinP          *float64
	RepeatPenalty *float64
	RepeatLastN   *int
	Seed          *int64
	MaxAttempts   *int
}

func DefaultConfig() Config {
	return Config{
		Temperature:   0.8,
		TopK:          40,
		TopP:          0.95,
		MinP:          0.0,
		RepeatPenalty: 1.1,
		RepeatLastN:   64,
		Seed:          -1,
		MaxAttempts:   3,
	}
}

func ResolveConfig(opts ConfigOptions) Config {
	cfg := DefaultConfig()

	if opts.Temperature != nil && *opts.Temperature >= 0 {
		cfg.Temperature = *opts.Temperature
	}
	if opts.TopK != nil && *opts.TopK > 0 {
		cfg.TopK = *opts.TopK
	}
	if opts.TopP != nil && *opts.TopP > 0 && *opts.TopP <= 1 {
		cfg.TopP = *opts.TopP
	}
	if opts.MinP != nil {
		cfg.MinP = *opts.MinP
	}
	if opts.RepeatPenalty != nil && *opts.RepeatPenalty > 0 {
		cfg.RepeatPenalty = *opts.RepeatPenalty
	}
	if opts.RepeatLastN != nil {
		cfg.RepeatLastN = *opts.RepeatLastN
	}
	if opts.Seed != nil {
		cfg.Seed = *opts.Seed
	}
	if opts.MaxAttempts != nil && *opts.MaxAttempts > 0 {
		cfg.MaxAttempts = *opts.MaxAttempts
	}

	return cfg
}
