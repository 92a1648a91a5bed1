package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"chat-similarity/internal/app"
	"chat-similarity/internal/compare"
	"chat-similarity/internal/corpus"
	"chat-similarity/internal/httputil"
	"chat-similarity/internal/queue"
)

const maxBodyBytes = 4 << 20

type chatRequest struct {
	Role    string `json:"role" validate:"required"`
	Content string `json:"content" validate:"required"`
}

type compareRequest struct {
	Query    string        `json:"query" validate:"required"`
	Chats    []chatRequest `json:"chats" validate:"omitempty,dive"`
	CorpusID *uuid.UUID    `json:"corpus_id"`
}

type createCorpusRequest struct {
	Name  string        `json:"name" validate:"required,max=200"`
	Chats []chatRequest `json:"chats" validate:"required,min=1,dive"`
}

type createRunRequest struct {
	Query    string    `json:"query" validate:"required"`
	CorpusID uuid.UUID `json:"corpus_id" validate:"required"`
}

type runResponse struct {
	ID                uuid.UUID      `json:"id"`
	CorpusID          uuid.UUID      `json:"corpus_id"`
	Query             string         `json:"query"`
	Status            string         `json:"status"`
	Baseline          float64        `json:"baseline"`
	BaselineEstimated bool           `json:"baseline_estimated"`
	Scores            []corpus.Score `json:"scores"`
	Error             string         `json:"error,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	r := httputil.NewRouter(deps.Log)

	r.Post("/api/compare", compareHandler(deps))
	r.Post("/api/corpora", createCorpusHandler(deps))
	r.Get("/api/corpora/{id}", getCorpusHandler(deps))
	r.Post("/api/runs", createRunHandler(deps))
	r.Get("/api/runs/{id}", getRunHandler(deps))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))

	addr := fmt.Sprintf(":%d", deps.Config.Port)
	deps.Log.Info("gateway listening", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		deps.Log.Error("server failed", "err", err)
	}
}

// decode reads and validates a JSON body. It writes the error response
// itself and reports whether the handler should continue.
func decode(log *slog.Logger, w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httputil.Fail(log, w, "invalid JSON body", err, http.StatusBadRequest)
		return false
	}
	if err := httputil.Validator.Struct(dst); err != nil {
		httputil.ValidationError(log, w, err)
		return false
	}
	return true
}

func toEntries(chats []chatRequest) []corpus.Entry {
	entries := make([]corpus.Entry, len(chats))
	for i, c := range chats {
		entries[i] = corpus.Entry{Role: c.Role, Content: c.Content}
	}
	return entries
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, compare.ErrEmptyQuery), errors.Is(err, corpus.ErrEmptyCorpus):
		return http.StatusBadRequest
	case errors.Is(err, corpus.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func compareHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req compareRequest
		if !decode(deps.Log, w, r, &req) {
			return
		}
		ctx := r.Context()

		c := corpus.Corpus{Entries: toEntries(req.Chats)}
		if req.CorpusID != nil {
			stored, err := deps.Store.GetCorpus(ctx, *req.CorpusID)
			if err != nil {
				httputil.Fail(deps.Log, w, "failed to load corpus", err, statusFor(err))
				return
			}
			c = stored
		}

		outcome, err := deps.Compare.Compare(ctx, req.Query, c)
		if err != nil {
			httputil.Fail(deps.Log, w, "comparison failed", err, statusFor(err))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"baseline":           outcome.Baseline,
			"baseline_estimated": outcome.BaselineEstimated,
			"scores":             outcome.Scores,
		})
	}
}

func createCorpusHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createCorpusRequest
		if !decode(deps.Log, w, r, &req) {
			return
		}
		c, err := deps.Store.CreateCorpus(r.Context(), req.Name, toEntries(req.Chats))
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to persist corpus", err, statusFor(err))
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, map[string]any{
			"corpus_id": c.ID.String(),
			"entries":   len(c.Entries),
		})
	}
}

func getCorpusHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httputil.Fail(deps.Log, w, "invalid corpus id", err, http.StatusBadRequest)
			return
		}
		c, err := deps.Store.GetCorpus(r.Context(), id)
		if err != nil {
			httputil.Fail(deps.Log, w, "corpus not found", err, statusFor(err))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"id":    c.ID,
			"name":  c.Name,
			"chats": c.Entries,
		})
	}
}

func createRunHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRunRequest
		if !decode(deps.Log, w, r, &req) {
			return
		}
		ctx := r.Context()

		run, err := deps.Store.CreateRun(ctx, req.CorpusID, req.Query)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to create run", err, statusFor(err))
			return
		}
		log := deps.Log.With("run_id", run.ID)

		body, err := json.Marshal(queue.ScorePayload{RunID: run.ID, CorpusID: run.CorpusID, Query: run.Query})
		if err != nil {
			failRun(ctx, deps, log, w, run.ID, "marshal payload failed", err)
			return
		}
		task := queue.Task{Type: queue.TaskTypeScore, Payload: body}
		if err := queue.EnqueueWithRetry(ctx, deps.Queue, task, 3, 200*time.Millisecond); err != nil {
			failRun(ctx, deps, log, w, run.ID, "failed to enqueue run; please retry", err)
			return
		}

		httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
			"run_id": run.ID.String(),
			"status": run.Status,
		})
	}
}

// failRun marks the run failed before reporting a 500.
func failRun(ctx context.Context, deps app.Deps, log *slog.Logger, w http.ResponseWriter, id uuid.UUID, message string, err error) {
	if upErr := deps.Store.FailRun(ctx, id, message); upErr != nil {
		log.Error("failed to mark run failed", "err", upErr)
	}
	httputil.Fail(log, w, message, err, http.StatusInternalServerError)
}

func getRunHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httputil.Fail(deps.Log, w, "invalid run id", err, http.StatusBadRequest)
			return
		}
		run, err := deps.Store.GetRun(r.Context(), id)
		if err != nil {
			httputil.Fail(deps.Log, w, "run not found", err, statusFor(err))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, runResponse{
			ID:                run.ID,
			CorpusID:          run.CorpusID,
			Query:             run.Query,
			Status:            string(run.Status),
			Baseline:          run.Baseline,
			BaselineEstimated: run.BaselineEstimated,
			Scores:            run.Scores,
			Error:             run.Error,
			CreatedAt:         run.CreatedAt,
		})
	}
}
