package embeddings

import (
	"context"
	"log/slog"
	"time"

	"chat-similarity/internal/cache"
)

// CachedEmbedder serves embeddings from a cache before falling back to the
// wrapped Embedder. Cache failures are logged and never fail an embed.
type CachedEmbedder struct {
	next  Embedder
	cache cache.Cache
	model string
	ttl   time.Duration
	log   *slog.Logger
}

// NewCachedEmbedder wraps next. model is part of the cache key so vectors
// from different models never mix.
func NewCachedEmbedder(next Embedder, c cache.Cache, model string, ttl time.Duration, log *slog.Logger) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: c, model: model, ttl: ttl, log: log}
}

func (e *CachedEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	key := cache.GenerateCacheKey(e.model, text)
	cached, err := e.cache.GetEmbedding(ctx, key)
	if err != nil {
		e.log.Warn("embedding cache read failed", "err", err)
	} else if len(cached) > 0 {
		e.log.Debug("embedding cache hit", "key", key)
		return Vector(cached), nil
	}

	vec, err := e.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := e.cache.SetEmbedding(ctx, key, vec, e.ttl); err != nil {
		e.log.Warn("embedding cache write failed", "err", err)
	}
	return vec, nil
}
