// Package compare embeds a query and a corpus and scores them with the
// calibration pipeline.
package compare

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"chat-similarity/internal/calibration"
	"chat-similarity/internal/corpus"
	"chat-similarity/internal/embeddings"
)

// ErrEmptyQuery is returned for blank query text.
var ErrEmptyQuery = errors.New("query text is empty")

// Outcome carries per-entry scores plus the baseline they were calibrated
// against. QueryEmbedding is the raw, unprocessed query vector.
type Outcome struct {
	Baseline          float64
	BaselineEstimated bool
	Scores            []corpus.Score
	QueryEmbedding    embeddings.Vector
}

// Service embeds texts and scores them against a corpus.
type Service struct {
	embedder    embeddings.Embedder
	pipeline    *calibration.Pipeline
	concurrency int
	log         *slog.Logger
}

// New creates a Service. concurrency bounds simultaneous embed calls.
func New(embedder embeddings.Embedder, pipeline *calibration.Pipeline, concurrency int, log *slog.Logger) *Service {
	return &Service{
		embedder:    embedder,
		pipeline:    pipeline,
		concurrency: max(concurrency, 1),
		log:         log,
	}
}

// Compare scores query against every entry of c, in entry order.
func (s *Service) Compare(ctx context.Context, query string, c corpus.Corpus) (Outcome, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Outcome{}, ErrEmptyQuery
	}
	if len(c.Entries) == 0 {
		return Outcome{}, corpus.ErrEmptyCorpus
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return Outcome{}, fmt.Errorf("embed query: %w", err)
	}
	corpusVecs, err := s.embedEntries(ctx, c.Entries)
	if err != nil {
		return Outcome{}, err
	}

	report, err := s.pipeline.Run(queryVec, corpusVecs)
	if err != nil {
		return Outcome{}, fmt.Errorf("score corpus: %w", err)
	}
	if !report.BaselineEstimated {
		s.log.Info("baseline not estimable, using fallback", "entries", len(c.Entries), "baseline", report.Baseline)
	}

	scores := make([]corpus.Score, len(report.Results))
	for i, r := range report.Results {
		scores[i] = corpus.Score{
			Index:   r.Index,
			Role:    c.Entries[r.Index].Role,
			Percent: r.Percent,
			Cosine:  r.Cosine,
		}
	}
	s.log.Debug("corpus scored", "entries", len(scores), "baseline", report.Baseline, "estimated", report.BaselineEstimated)
	return Outcome{
		Baseline:          report.Baseline,
		BaselineEstimated: report.BaselineEstimated,
		Scores:            scores,
		QueryEmbedding:    queryVec,
	}, nil
}

// embedEntries fetches all entry embeddings concurrently; the first failure
// cancels the rest.
func (s *Service) embedEntries(ctx context.Context, entries []corpus.Entry) ([]embeddings.Vector, error) {
	vecs := make([]embeddings.Vector, len(entries))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, e := range entries {
		g.Go(func() error {
			v, err := s.embedder.Embed(ctx, e.Content)
			if err != nil {
				return fmt.Errorf("embed entry %d (%s): %w", i, e.Role, err)
			}
			vecs[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vecs, nil
}
