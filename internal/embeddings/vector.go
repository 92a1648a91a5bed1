package embeddings

import (
	"errors"
	"math"
)

// ErrEmptyVector is returned by Cosine when an input has no components.
var ErrEmptyVector = errors.New("empty vector")

// DotProduct sums elementwise products over the shorter of the two lengths.
func DotProduct(a, b Vector) float64 {
	n := min(len(a), len(b))
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Norm returns the Euclidean length of v.
func Norm(v Vector) float64 {
	return math.Sqrt(DotProduct(v, v))
}

// Normalize returns v scaled to unit length. A zero vector comes back
// unchanged. The input is never modified.
func Normalize(v Vector) Vector {
	out := v.Clone()
	n := Norm(v)
	if n == 0 {
		return out
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / n)
	}
	return out
}

// Mean returns the componentwise average of vs. All members are expected to
// share the dimension of vs[0]; nil is returned for an empty set.
func Mean(vs []Vector) Vector {
	if len(vs) == 0 {
		return nil
	}
	d := len(vs[0])
	sums := make([]float64, d)
	for _, v := range vs {
		for i := 0; i < d && i < len(v); i++ {
			sums[i] += float64(v[i])
		}
	}
	n := float64(len(vs))
	out := make(Vector, d)
	for i, s := range sums {
		out[i] = float32(s / n)
	}
	return out
}

// Cosine computes dot(a,b) / (|a|·|b|).
// It fails with ErrEmptyVector when either input is empty and returns exactly
// 0 when either norm is zero.
func Cosine(a, b Vector) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, ErrEmptyVector
	}
	na, nb := Norm(a), Norm(b)
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return DotProduct(a, b) / (na * nb), nil
}
