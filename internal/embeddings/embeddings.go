package embeddings

import (
	"context"
	"errors"
)

// Vector is a simple float32 slice wrapper.
type Vector []float32

// ErrEmptyResponse is returned when the embedding service answers without data.
var ErrEmptyResponse = errors.New("embedding response empty")

// Embedder turns text into a Vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (Vector, error)
}

// Clone returns a copy of v that can be mutated freely.
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}
