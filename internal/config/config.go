package config

import (
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"

	"chat-similarity/internal/calibration"
)

const (
	StrategyFixed      = "fixed"
	StrategyConverging = "converging"
)

// Config holds runtime configuration. Extend as needed.
type Config struct {
	// Server
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Corpus
	CorpusPath string `env:"CORPUS_PATH" envDefault:"data/file.json"`

	// Store
	DBURL string `env:"DB_URL"`

	// Queue
	QueueURL string `env:"QUEUE_URL"`

	// Cache; caching is disabled when RedisAddr is empty
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	CacheTTL      int    `env:"CACHE_TTL" envDefault:"86400"` // seconds

	// Embeddings
	OpenAIKey        string `env:"OPENAI_API_KEY"`
	EmbeddingModel   string `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	EmbedMaxAttempts int    `env:"EMBED_MAX_ATTEMPTS" envDefault:"3"`
	EmbedConcurrency int    `env:"EMBED_CONCURRENCY" envDefault:"4"`

	// Calibration
	PowerIterations    int     `env:"POWER_ITERATIONS" envDefault:"15"`
	BaselineFallback   float64 `env:"BASELINE_FALLBACK" envDefault:"0.20"`
	PercentLo          float64 `env:"PERCENT_LO" envDefault:"10"`
	PercentHi          float64 `env:"PERCENT_HI" envDefault:"100"`
	CalibrationEpsilon float64 `env:"CALIBRATION_EPSILON" envDefault:"0.000001"`
	ScoreWorkers       int     `env:"SCORE_WORKERS" envDefault:"4"`
	// DirectionStrategy is "fixed" (PowerIterations rounds) or "converging"
	// (stop early once estimates move less than DirectionTolerance).
	DirectionStrategy  string  `env:"DIRECTION_STRATEGY" envDefault:"fixed"`
	DirectionTolerance float64 `env:"DIRECTION_TOLERANCE" envDefault:"0.000001"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	if cfg.DirectionStrategy != StrategyFixed && cfg.DirectionStrategy != StrategyConverging {
		slog.Warn("unknown DIRECTION_STRATEGY; using fixed", "value", cfg.DirectionStrategy)
		cfg.DirectionStrategy = StrategyFixed
	}
	return cfg
}

// CacheDuration is CacheTTL as a time.Duration.
func (c Config) CacheDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// PipelineOptions maps the calibration settings onto calibration.Options.
func (c Config) PipelineOptions() calibration.Options {
	opts := calibration.DefaultOptions()
	opts.Iterations = c.PowerIterations
	opts.FallbackBaseline = c.BaselineFallback
	opts.Bounds = calibration.Bounds{Lo: c.PercentLo, Hi: c.PercentHi}
	opts.Epsilon = c.CalibrationEpsilon
	opts.Workers = c.ScoreWorkers
	if c.DirectionStrategy == StrategyConverging {
		iters := c.PowerIterations
		if iters <= 0 {
			iters = calibration.DefaultIterations
		}
		opts.Strategy = calibration.ConvergingDirection{
			MaxIterations: iters,
			Tolerance:     c.DirectionTolerance,
		}
	}
	return opts
}
