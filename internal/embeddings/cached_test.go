package embeddings

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-similarity/internal/cache"
)

func TestCachedEmbedder(t *testing.T) {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	key := cache.GenerateCacheKey("m", "hello")

	tests := []struct {
		name    string
		setup   func(*cache.MockCache, *MockEmbedder)
		want    Vector
		wantErr bool
	}{
		{
			name: "cache hit skips embedder",
			setup: func(c *cache.MockCache, e *MockEmbedder) {
				c.On("GetEmbedding", mock.Anything, key).Return([]float32{1, 2}, nil).Once()
			},
			want: Vector{1, 2},
		},
		{
			name: "cache miss embeds and stores",
			setup: func(c *cache.MockCache, e *MockEmbedder) {
				c.On("GetEmbedding", mock.Anything, key).Return(nil, nil).Once()
				e.On("Embed", mock.Anything, "hello").Return(Vector{3, 4}, nil).Once()
				c.On("SetEmbedding", mock.Anything, key, []float32{3, 4}, time.Minute).Return(nil).Once()
			},
			want: Vector{3, 4},
		},
		{
			name: "cache errors do not fail the embed",
			setup: func(c *cache.MockCache, e *MockEmbedder) {
				c.On("GetEmbedding", mock.Anything, key).Return(nil, errors.New("redis down")).Once()
				e.On("Embed", mock.Anything, "hello").Return(Vector{5}, nil).Once()
				c.On("SetEmbedding", mock.Anything, key, mock.Anything, time.Minute).Return(errors.New("redis down")).Once()
			},
			want: Vector{5},
		},
		{
			name: "embedder error propagates and nothing is stored",
			setup: func(c *cache.MockCache, e *MockEmbedder) {
				c.On("GetEmbedding", mock.Anything, key).Return(nil, nil).Once()
				e.On("Embed", mock.Anything, "hello").Return(nil, ErrEmptyResponse).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := new(cache.MockCache)
			e := new(MockEmbedder)
			tt.setup(c, e)

			got, err := NewCachedEmbedder(e, c, "m", time.Minute, log).Embed(ctx, "hello")
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}

			c.AssertExpectations(t)
			e.AssertExpectations(t)
		})
	}
}
