package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores embedding vectors keyed by model and text.
type Cache interface {
	// GetEmbedding retrieves a cached vector by key.
	// Returns nil if not found
	GetEmbedding(ctx context.Context, key string) ([]float32, error)

	// SetEmbedding stores a vector with TTL
	SetEmbedding(ctx context.Context, key string, vec []float32, ttl time.Duration) error

	// Purge removes every cached embedding
	Purge(ctx context.Context) error

	// Close closes the cache connection
	Close() error
}

// GenerateCacheKey derives a stable key from the embedding model and text.
func GenerateCacheKey(model, text string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
