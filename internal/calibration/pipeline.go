package calibration

import (
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"chat-similarity/internal/embeddings"
)

var (
	// ErrEmptyCorpus is returned when Run is given no corpus vectors.
	ErrEmptyCorpus = errors.New("empty corpus")
	// ErrCosine marks a per-item similarity that could not be computed.
	ErrCosine = errors.New("cosine failed")
)

// Options configures a Pipeline. Start from DefaultOptions and override.
type Options struct {
	// Iterations of power iteration for the default direction strategy.
	// Values below 1 select DefaultIterations.
	Iterations int
	// Strategy overrides the direction estimator; nil means FixedIterations.
	Strategy DirectionStrategy
	// FallbackBaseline is used when the corpus is too small for an estimate.
	FallbackBaseline float64
	Bounds           Bounds
	// Epsilon guards the rescaling; values <= 0 select DefaultEpsilon.
	Epsilon float64
	// Workers bounds parallelism of the pairwise baseline and per-item
	// scoring. Values below 1 mean sequential.
	Workers int
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		Iterations:       DefaultIterations,
		FallbackBaseline: DefaultFallbackBaseline,
		Bounds:           DefaultBounds,
		Epsilon:          DefaultEpsilon,
		Workers:          1,
	}
}

// Result is the calibrated score of one corpus item.
type Result struct {
	Index   int
	Cosine  float64
	Percent float64
}

// Report is the outcome of a Run. BaselineEstimated is false when the
// fallback baseline was substituted.
type Report struct {
	Results           []Result
	Baseline          float64
	BaselineEstimated bool
}

// Pipeline sequences preprocessing, baseline estimation and calibration.
type Pipeline struct {
	strategy   DirectionStrategy
	fallback   float64
	calibrator Calibrator
	workers    int
}

// New builds a Pipeline from opts.
func New(opts Options) (*Pipeline, error) {
	cal, err := NewCalibrator(opts.Bounds, opts.Epsilon)
	if err != nil {
		return nil, err
	}
	strategy := opts.Strategy
	if strategy == nil {
		iters := opts.Iterations
		if iters <= 0 {
			iters = DefaultIterations
		}
		strategy = FixedIterations{Iterations: iters}
	}
	return &Pipeline{
		strategy:   strategy,
		fallback:   opts.FallbackBaseline,
		calibrator: cal,
		workers:    max(opts.Workers, 1),
	}, nil
}

// Run scores every corpus vector against query and returns results in corpus
// order. The query and corpus are preprocessed as one batch, so the score of
// an item depends on the whole corpus, not only on the item itself.
// Any failure aborts the run and no results are returned.
func (p *Pipeline) Run(query embeddings.Vector, corpus []embeddings.Vector) (Report, error) {
	if len(corpus) == 0 {
		return Report{}, ErrEmptyCorpus
	}

	batch := make([]embeddings.Vector, 0, len(corpus)+1)
	batch = append(batch, query)
	batch = append(batch, corpus...)
	processed, err := Preprocess(batch, p.strategy)
	if err != nil {
		return Report{}, err
	}
	pq, pc := processed[0], processed[1:]

	baseline, ok := estimateBaseline(pc, p.workers)
	if !ok {
		baseline = p.fallback
	}

	results := make([]Result, len(pc))
	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, v := range pc {
		g.Go(func() error {
			cos, err := embeddings.Cosine(pq, v)
			if err != nil {
				return fmt.Errorf("%w: item %d: %w", ErrCosine, i, err)
			}
			results[i] = Result{
				Index:   i,
				Cosine:  cos,
				Percent: p.calibrator.ToPercent(cos, baseline),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	return Report{
		Results:           results,
		Baseline:          baseline,
		BaselineEstimated: ok,
	}, nil
}
