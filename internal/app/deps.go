package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/openai/openai-go/v3"

	"chat-similarity/internal/cache"
	"chat-similarity/internal/calibration"
	"chat-similarity/internal/compare"
	"chat-similarity/internal/config"
	"chat-similarity/internal/corpus"
	"chat-similarity/internal/embeddings"
	"chat-similarity/internal/logger"
	"chat-similarity/internal/queue"
)

// Deps bundles common runtime dependencies for the binaries.
type Deps struct {
	Config   config.Config
	Log      *slog.Logger
	Store    corpus.Store
	Queue    queue.Queue
	Cache    cache.Cache
	Embedder embeddings.Embedder
	Compare  *compare.Service
}

// Build loads env, config, and every shared component. Store and queue are
// required.
func Build() (Deps, error) {
	deps, err := BuildLocal()
	if err != nil {
		return Deps{}, err
	}
	if deps.Store == nil {
		return Deps{}, fmt.Errorf("failed to initialize store: DB_URL is required")
	}
	q, err := buildQueue(deps.Config, deps.Log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	deps.Queue = q
	return deps, nil
}

// BuildLocal builds what the CLI needs: embedder, cache and scoring. The
// store is connected only when DB_URL is set.
func BuildLocal() (Deps, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Deps{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	c, err := buildCache(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize cache: %w", err)
	}
	embedder, err := buildEmbedder(cfg, log, c)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	pipeline, err := calibration.New(cfg.PipelineOptions())
	if err != nil {
		return Deps{}, fmt.Errorf("invalid calibration settings: %w", err)
	}

	deps := Deps{
		Config:   cfg,
		Log:      log,
		Cache:    c,
		Embedder: embedder,
		Compare:  compare.New(embedder, pipeline, cfg.EmbedConcurrency, log),
	}
	if cfg.DBURL != "" {
		st, err := corpus.NewPostgres(cfg.DBURL)
		if err != nil {
			return Deps{}, fmt.Errorf("failed to initialize Postgres: %w", err)
		}
		log.Info("using Postgres store")
		deps.Store = st
	}
	return deps, nil
}

func buildQueue(cfg config.Config, log *slog.Logger) (queue.Queue, error) {
	if cfg.QueueURL == "" {
		return nil, fmt.Errorf("QUEUE_URL is required")
	}
	nc, err := nats.Connect(cfg.QueueURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Info("using NATS queue")
	return queue.NewNATS(log, nc), nil
}

func buildCache(cfg config.Config, log *slog.Logger) (cache.Cache, error) {
	if cfg.RedisAddr == "" {
		log.Info("embedding cache disabled")
		return cache.NewNoOpCache(), nil
	}
	rc, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		// Scoring works without a cache, just slower.
		log.Warn("redis unavailable, embedding cache disabled", "err", err)
		return cache.NewNoOpCache(), nil
	}
	log.Info("using Redis embedding cache", "addr", cfg.RedisAddr)
	return rc, nil
}

func buildEmbedder(cfg config.Config, log *slog.Logger, c cache.Cache) (embeddings.Embedder, error) {
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	base, err := embeddings.NewOpenAIEmbedder(cfg.OpenAIKey, openai.EmbeddingModel(cfg.EmbeddingModel), cfg.EmbedMaxAttempts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenAI embedder: %w", err)
	}
	log.Info("using OpenAI embedder", "model", base.Model())
	return embeddings.NewCachedEmbedder(base, c, base.Model(), cfg.CacheDuration(), log), nil
}
