package calibration

import (
	"errors"
	"fmt"

	"chat-similarity/internal/embeddings"
)

var (
	// ErrEmptyBatch is returned when there is nothing to preprocess.
	ErrEmptyBatch = errors.New("empty embedding batch")
	// ErrDimensionMismatch is returned when batch members differ in length.
	ErrDimensionMismatch = errors.New("embedding dimensions differ")
)

// Preprocess decorrelates a batch: it subtracts the batch mean from every
// member, removes each member's projection onto the dominant direction of the
// centered batch, and L2-normalizes the result. Order and length are kept and
// the input vectors are not modified.
func Preprocess(batch []embeddings.Vector, strategy DirectionStrategy) ([]embeddings.Vector, error) {
	if err := validateBatch(batch); err != nil {
		return nil, err
	}
	if strategy == nil {
		strategy = FixedIterations{Iterations: DefaultIterations}
	}

	mean := embeddings.Mean(batch)
	centered := make([]embeddings.Vector, len(batch))
	for i, v := range batch {
		c := make(embeddings.Vector, len(v))
		for j := range v {
			c[j] = v[j] - mean[j]
		}
		centered[i] = c
	}

	dir := strategy.Direction(centered)

	out := make([]embeddings.Vector, len(centered))
	for i, v := range centered {
		proj := embeddings.DotProduct(v, dir)
		w := make(embeddings.Vector, len(v))
		for j := range v {
			w[j] = float32(float64(v[j]) - proj*float64(dir[j]))
		}
		out[i] = embeddings.Normalize(w)
	}
	return out, nil
}

func validateBatch(batch []embeddings.Vector) error {
	if len(batch) == 0 {
		return ErrEmptyBatch
	}
	d := len(batch[0])
	if d == 0 {
		return fmt.Errorf("batch member 0: %w", embeddings.ErrEmptyVector)
	}
	for i, v := range batch {
		if len(v) != d {
			return fmt.Errorf("%w: member %d has %d components, want %d", ErrDimensionMismatch, i, len(v), d)
		}
	}
	return nil
}
