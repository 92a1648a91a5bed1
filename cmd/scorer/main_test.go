package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-similarity/internal/app"
	"chat-similarity/internal/calibration"
	"chat-similarity/internal/compare"
	"chat-similarity/internal/corpus"
	"chat-similarity/internal/embeddings"
	"chat-similarity/internal/queue"
)

func newTestDeps(t *testing.T, st corpus.Store, e embeddings.Embedder) app.Deps {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	p, err := calibration.New(calibration.DefaultOptions())
	require.NoError(t, err)
	return app.Deps{Store: st, Embedder: e, Compare: compare.New(e, p, 2, log), Log: log}
}

func TestHandleScore(t *testing.T) {
	runID := uuid.New()
	corpusID := uuid.New()
	payload := queue.ScorePayload{RunID: runID, CorpusID: corpusID, Query: "hello"}
	stored := corpus.Corpus{ID: corpusID, Entries: []corpus.Entry{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "other"},
		{Role: "user", Content: "mirror"},
	}}

	tests := []struct {
		name    string
		setup   func(*corpus.MockStore, *embeddings.MockEmbedder)
		wantErr bool
	}{
		{
			name: "completes run with scores",
			setup: func(s *corpus.MockStore, e *embeddings.MockEmbedder) {
				s.On("GetCorpus", mock.Anything, corpusID).Return(stored, nil).Once()
				e.On("Embed", mock.Anything, "hello").Return(embeddings.Vector{1, 0}, nil).Twice()
				e.On("Embed", mock.Anything, "other").Return(embeddings.Vector{0, 1}, nil).Once()
				e.On("Embed", mock.Anything, "mirror").Return(embeddings.Vector{-1, 0}, nil).Once()
				s.On("CompleteRun", mock.Anything, mock.MatchedBy(func(r corpus.Run) bool {
					return r.ID == runID &&
						r.Status == corpus.RunReady &&
						r.BaselineEstimated &&
						len(r.Scores) == 3 &&
						r.Scores[1].Role == "assistant" &&
						r.Scores[1].Percent == 10
				})).Return(nil).Once()
			},
		},
		{
			name: "missing corpus fails the run",
			setup: func(s *corpus.MockStore, e *embeddings.MockEmbedder) {
				s.On("GetCorpus", mock.Anything, corpusID).Return(corpus.Corpus{}, corpus.ErrNotFound).Once()
				s.On("FailRun", mock.Anything, runID, mock.MatchedBy(func(reason string) bool {
					return strings.Contains(reason, "not found")
				})).Return(nil).Once()
			},
		},
		{
			name: "embed failure fails the run",
			setup: func(s *corpus.MockStore, e *embeddings.MockEmbedder) {
				s.On("GetCorpus", mock.Anything, corpusID).Return(stored, nil).Once()
				e.On("Embed", mock.Anything, "hello").Return(nil, errors.New("rate limited")).Once()
				s.On("FailRun", mock.Anything, runID, mock.MatchedBy(func(reason string) bool {
					return strings.Contains(reason, "rate limited")
				})).Return(nil).Once()
			},
		},
		{
			name: "empty stored corpus fails the run",
			setup: func(s *corpus.MockStore, e *embeddings.MockEmbedder) {
				s.On("GetCorpus", mock.Anything, corpusID).Return(corpus.Corpus{ID: corpusID}, nil).Once()
				s.On("FailRun", mock.Anything, runID, corpus.ErrEmptyCorpus.Error()).Return(nil).Once()
			},
		},
		{
			name: "save failure is returned for redelivery",
			setup: func(s *corpus.MockStore, e *embeddings.MockEmbedder) {
				s.On("GetCorpus", mock.Anything, corpusID).Return(stored, nil).Once()
				e.On("Embed", mock.Anything, mock.Anything).Return(embeddings.Vector{1, 1}, nil)
				s.On("CompleteRun", mock.Anything, mock.Anything).Return(errors.New("db error")).Once()
			},
			wantErr: true,
		},
		{
			name: "fail run error is returned",
			setup: func(s *corpus.MockStore, e *embeddings.MockEmbedder) {
				s.On("GetCorpus", mock.Anything, corpusID).Return(corpus.Corpus{}, errors.New("db down")).Once()
				s.On("FailRun", mock.Anything, runID, mock.Anything).Return(errors.New("db down")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockStore := new(corpus.MockStore)
			mockEmbedder := new(embeddings.MockEmbedder)
			tt.setup(mockStore, mockEmbedder)

			err := handleScore(context.Background(), newTestDeps(t, mockStore, mockEmbedder), payload)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			mockStore.AssertExpectations(t)
			mockEmbedder.AssertExpectations(t)
		})
	}
}

func TestHandleScoreCancelledLeavesRunPending(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	corpusID := uuid.New()
	mockStore := new(corpus.MockStore)
	mockStore.On("GetCorpus", mock.Anything, corpusID).
		Return(corpus.Corpus{ID: corpusID, Entries: []corpus.Entry{{Role: "user", Content: "x"}}}, nil).Once()
	mockEmbedder := new(embeddings.MockEmbedder)
	mockEmbedder.On("Embed", mock.Anything, "hello").Return(nil, context.Canceled).Once()

	err := handleScore(ctx, newTestDeps(t, mockStore, mockEmbedder), queue.ScorePayload{RunID: uuid.New(), CorpusID: corpusID, Query: "hello"})
	assert.ErrorIs(t, err, context.Canceled)
	mockStore.AssertNotCalled(t, "FailRun", mock.Anything, mock.Anything, mock.Anything)
}

func TestScoreTask(t *testing.T) {
	t.Run("malformed payload is acked", func(t *testing.T) {
		mockStore := new(corpus.MockStore)
		deps := newTestDeps(t, mockStore, new(embeddings.MockEmbedder))

		err := scoreTask(deps)(context.Background(), queue.Task{ID: uuid.New(), Type: queue.TaskTypeScore, Payload: []byte("{not json")})
		assert.NoError(t, err)
		mockStore.AssertNotCalled(t, "GetCorpus", mock.Anything, mock.Anything)
	})

	t.Run("decoded payload is scored", func(t *testing.T) {
		runID, corpusID := uuid.New(), uuid.New()
		mockStore := new(corpus.MockStore)
		mockStore.On("GetCorpus", mock.Anything, corpusID).Return(corpus.Corpus{}, corpus.ErrNotFound).Once()
		mockStore.On("FailRun", mock.Anything, runID, mock.Anything).Return(nil).Once()
		deps := newTestDeps(t, mockStore, new(embeddings.MockEmbedder))

		body, err := json.Marshal(queue.ScorePayload{RunID: runID, CorpusID: corpusID, Query: "hello"})
		require.NoError(t, err)
		err = scoreTask(deps)(context.Background(), queue.Task{Type: queue.TaskTypeScore, Payload: body})
		assert.NoError(t, err)
		mockStore.AssertExpectations(t)
	})
}
