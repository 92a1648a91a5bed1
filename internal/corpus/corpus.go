package corpus

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrEmptyCorpus is returned when a corpus has no entries.
	ErrEmptyCorpus = errors.New("corpus has no entries")
	ErrNotFound    = errors.New("not found")
)

// Entry is one stored text with the role that produced it.
type Entry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Corpus is an ordered set of entries. Order is significant: scores are
// reported against entry positions.
type Corpus struct {
	ID      uuid.UUID
	Name    string
	Entries []Entry
}

type RunStatus string

const (
	RunPending RunStatus = "pending"
	RunReady   RunStatus = "ready"
	RunFailed  RunStatus = "failed"
)

// Score is the calibrated result for one corpus entry.
type Score struct {
	Index   int     `json:"index"`
	Role    string  `json:"role"`
	Percent float64 `json:"percent"`
	Cosine  float64 `json:"cosine"`
}

// Run records one query scored against a stored corpus.
type Run struct {
	ID                uuid.UUID
	CorpusID          uuid.UUID
	Query             string
	Status            RunStatus
	Baseline          float64
	BaselineEstimated bool
	Scores            []Score
	Error             string
	CreatedAt         time.Time
}

// Store defines persistence for corpora and scoring runs.
type Store interface {
	CreateCorpus(ctx context.Context, name string, entries []Entry) (Corpus, error)
	GetCorpus(ctx context.Context, id uuid.UUID) (Corpus, error)
	CreateRun(ctx context.Context, corpusID uuid.UUID, query string) (Run, error)
	CompleteRun(ctx context.Context, run Run) error
	FailRun(ctx context.Context, id uuid.UUID, reason string) error
	GetRun(ctx context.Context, id uuid.UUID) (Run, error)
}
