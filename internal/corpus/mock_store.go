package corpus

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of Store using testify/mock.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateCorpus(ctx context.Context, name string, entries []Entry) (Corpus, error) {
	args := m.Called(ctx, name, entries)
	return args.Get(0).(Corpus), args.Error(1)
}

func (m *MockStore) GetCorpus(ctx context.Context, id uuid.UUID) (Corpus, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Corpus), args.Error(1)
}

func (m *MockStore) CreateRun(ctx context.Context, corpusID uuid.UUID, query string) (Run, error) {
	args := m.Called(ctx, corpusID, query)
	return args.Get(0).(Run), args.Error(1)
}

func (m *MockStore) CompleteRun(ctx context.Context, run Run) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockStore) FailRun(ctx context.Context, id uuid.UUID, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *MockStore) GetRun(ctx context.Context, id uuid.UUID) (Run, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Run), args.Error(1)
}
