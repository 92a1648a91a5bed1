package calibration

import (
	"sort"

	"golang.org/x/sync/errgroup"

	"chat-similarity/internal/embeddings"
)

const (
	// DefaultFallbackBaseline stands in when the corpus is too small to
	// estimate a baseline.
	DefaultFallbackBaseline = 0.20

	minBaselineVectors = 3
)

// EstimateBaseline returns the median cosine similarity over every unordered
// pair of vectors. It reports false when fewer than three vectors are given
// or no pair produced a similarity.
func EstimateBaseline(vecs []embeddings.Vector) (float64, bool) {
	return estimateBaseline(vecs, 1)
}

func estimateBaseline(vecs []embeddings.Vector, workers int) (float64, bool) {
	if len(vecs) < minBaselineVectors {
		return 0, false
	}
	sims := pairwiseCosines(vecs, workers)
	if len(sims) == 0 {
		return 0, false
	}
	sort.Float64s(sims)
	return median(sims), true
}

// pairwiseCosines computes one row of pairs per task. Pairs whose cosine is
// undefined (empty vectors) are dropped.
func pairwiseCosines(vecs []embeddings.Vector, workers int) []float64 {
	rows := make([][]float64, len(vecs))
	var g errgroup.Group
	g.SetLimit(max(workers, 1))
	for i := range vecs {
		g.Go(func() error {
			row := make([]float64, 0, len(vecs)-i-1)
			for j := i + 1; j < len(vecs); j++ {
				if c, err := embeddings.Cosine(vecs[i], vecs[j]); err == nil {
					row = append(row, c)
				}
			}
			rows[i] = row
			return nil
		})
	}
	_ = g.Wait()

	var sims []float64
	for _, row := range rows {
		sims = append(sims, row...)
	}
	return sims
}

// median expects xs sorted ascending and non-empty.
func median(xs []float64) float64 {
	n := len(xs)
	if n%2 == 1 {
		return xs[n/2]
	}
	return 0.5 * (xs[n/2-1] + xs[n/2])
}
