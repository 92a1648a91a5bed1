package app

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-similarity/internal/cache"
	"chat-similarity/internal/config"
	"chat-similarity/internal/embeddings"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestBuildCacheWithoutRedis(t *testing.T) {
	c, err := buildCache(config.Config{}, discard)
	require.NoError(t, err)
	assert.IsType(t, &cache.NoOpCache{}, c)
}

func TestBuildEmbedder(t *testing.T) {
	_, err := buildEmbedder(config.Config{}, discard, cache.NewNoOpCache())
	assert.ErrorContains(t, err, "OPENAI_API_KEY")

	e, err := buildEmbedder(config.Config{OpenAIKey: "k", EmbeddingModel: "text-embedding-3-large", EmbedMaxAttempts: 2}, discard, cache.NewNoOpCache())
	require.NoError(t, err)
	assert.IsType(t, &embeddings.CachedEmbedder{}, e)
}

func TestBuildQueueRequiresURL(t *testing.T) {
	_, err := buildQueue(config.Config{}, discard)
	assert.ErrorContains(t, err, "QUEUE_URL")
}
