package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"chat-similarity/internal/app"
	"chat-similarity/internal/corpus"
	"chat-similarity/internal/httputil"
	"chat-similarity/internal/queue"
)

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	deps.Log.Info("scorer worker starting")

	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		return deps.Queue.Worker(ctx, queue.TaskTypeScore, scoreTask(deps))
	})

	g.Go(func() error {
		return httputil.ServeHealth(deps.Log, deps.Config.Port, "scorer")
	})

	if err := g.Wait(); err != nil {
		deps.Log.Error("scorer service stopped", "err", err)
	}
}

// scoreTask decodes score payloads. A payload that does not decode will never
// decode, so it is logged and acked instead of being redelivered.
func scoreTask(deps app.Deps) queue.Handler {
	return func(ctx context.Context, task queue.Task) error {
		var payload queue.ScorePayload
		if err := json.Unmarshal(task.Payload, &payload); err != nil {
			deps.Log.Error("dropping malformed score task", "task_id", task.ID, "err", err)
			return nil
		}
		return handleScore(ctx, deps, payload)
	}
}

// handleScore compares the payload query against its stored corpus and
// records the result on the run. Scoring failures are recorded on the run
// and not returned, so the queue does not redeliver a deterministic failure.
func handleScore(ctx context.Context, deps app.Deps, payload queue.ScorePayload) error {
	log := deps.Log.With("run_id", payload.RunID, "corpus_id", payload.CorpusID)

	c, err := deps.Store.GetCorpus(ctx, payload.CorpusID)
	if err != nil {
		return markFailed(ctx, deps, log, payload, fmt.Errorf("load corpus: %w", err))
	}

	outcome, err := deps.Compare.Compare(ctx, payload.Query, c)
	if err != nil {
		if ctx.Err() != nil {
			// Shutting down; leave the run pending for redelivery.
			return err
		}
		return markFailed(ctx, deps, log, payload, err)
	}

	run := corpus.Run{
		ID:                payload.RunID,
		CorpusID:          payload.CorpusID,
		Query:             payload.Query,
		Status:            corpus.RunReady,
		Baseline:          outcome.Baseline,
		BaselineEstimated: outcome.BaselineEstimated,
		Scores:            outcome.Scores,
	}
	if err := deps.Store.CompleteRun(ctx, run); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	log.Info("run scored", "entries", len(outcome.Scores), "baseline", outcome.Baseline, "estimated", outcome.BaselineEstimated)
	return nil
}

func markFailed(ctx context.Context, deps app.Deps, log *slog.Logger, payload queue.ScorePayload, cause error) error {
	log.Warn("run failed", "err", cause)
	if err := deps.Store.FailRun(ctx, payload.RunID, cause.Error()); err != nil {
		return fmt.Errorf("mark run failed: %w", err)
	}
	return nil
}
