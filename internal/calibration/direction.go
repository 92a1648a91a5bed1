package calibration

import (
	"math"

	"chat-similarity/internal/embeddings"
)

// DefaultIterations is the power iteration count used when none is configured.
const DefaultIterations = 15

// DirectionStrategy estimates the dominant direction of a mean-centered batch.
type DirectionStrategy interface {
	Direction(batch []embeddings.Vector) embeddings.Vector
}

// FixedIterations runs exactly Iterations rounds of power iteration and
// returns whatever vector it has reached. There is no convergence check, so
// the output for a given input and count is fully determined.
type FixedIterations struct {
	Iterations int
}

func (f FixedIterations) Direction(batch []embeddings.Vector) embeddings.Vector {
	v := startVector(batch)
	for i := 0; i < f.Iterations && v != nil; i++ {
		v = powerStep(batch, v)
	}
	return v
}

// ConvergingDirection stops as soon as successive estimates differ by less
// than Tolerance (L2 distance), or after MaxIterations rounds.
// It is an alternative to FixedIterations and is only used when selected
// explicitly.
type ConvergingDirection struct {
	MaxIterations int
	Tolerance     float64
}

func (c ConvergingDirection) Direction(batch []embeddings.Vector) embeddings.Vector {
	v := startVector(batch)
	for i := 0; i < c.MaxIterations && v != nil; i++ {
		next := powerStep(batch, v)
		done := distance(next, v) < c.Tolerance
		v = next
		if done {
			break
		}
	}
	return v
}

// DominantDirection estimates the top eigenvector of the second-moment
// operator of batch using the default fixed-iteration strategy.
func DominantDirection(batch []embeddings.Vector, iterations int) embeddings.Vector {
	return FixedIterations{Iterations: iterations}.Direction(batch)
}

// startVector is the normalized all-ones vector of the batch dimension.
func startVector(batch []embeddings.Vector) embeddings.Vector {
	if len(batch) == 0 {
		return nil
	}
	v := make(embeddings.Vector, len(batch[0]))
	for i := range v {
		v[i] = 1
	}
	return embeddings.Normalize(v)
}

// powerStep applies C·v with C = Σ xᵢxᵢᵀ without materializing C, then
// normalizes. The 1/n factor is dropped since normalization cancels it.
func powerStep(batch []embeddings.Vector, v embeddings.Vector) embeddings.Vector {
	acc := make([]float64, len(v))
	for _, x := range batch {
		dot := embeddings.DotProduct(x, v)
		for i := 0; i < len(acc) && i < len(x); i++ {
			acc[i] += dot * float64(x[i])
		}
	}
	cv := make(embeddings.Vector, len(acc))
	for i, a := range acc {
		cv[i] = float32(a)
	}
	return embeddings.Normalize(cv)
}

func distance(a, b embeddings.Vector) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
