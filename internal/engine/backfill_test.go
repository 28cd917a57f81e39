package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrikoro/tally/internal/model"
)

// backfillStore is an in-memory HistoryBackfillStore.
type backfillStore struct {
	missing    []model.HistoricalItem
	embeddings map[int64][]float32
	listErr    error
	setErr     map[int64]error
}

func (s *backfillStore) HistoryMissingEmbeddings(_ context.Context) ([]model.HistoricalItem, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.missing, nil
}

func (s *backfillStore) SetHistoryEmbedding(_ context.Context, id int64, embedding []float32) error {
	if err := s.setErr[id]; err != nil {
		return err
	}
	if s.embeddings == nil {
		s.embeddings = make(map[int64][]float32)
	}
	s.embeddings[id] = embedding
	return nil
}

func TestBackfillHistoryEmbeddings(t *testing.T) {
	store := &backfillStore{
		missing: []model.HistoricalItem{
			{ID: 1, ItemText: "oat milk"},
			{ID: 2, ItemText: "rye bread"},
		},
	}
	embedder := &stubEmbedder{}

	updated, err := BackfillHistoryEmbeddings(context.Background(), store, embedder)
	require.NoError(t, err)
	assert.Equal(t, 2, updated)
	assert.Len(t, store.embeddings, 2)
	assert.NotEmpty(t, store.embeddings[1])
}

func TestBackfillHistoryEmbeddingsNothingMissing(t *testing.T) {
	embedder := &stubEmbedder{}
	updated, err := BackfillHistoryEmbeddings(context.Background(), &backfillStore{}, embedder)
	require.NoError(t, err)
	assert.Zero(t, updated)
	assert.Zero(t, embedder.batchCalls)
}

func TestBackfillHistoryEmbeddingsSkipsFailedRows(t *testing.T) {
	store := &backfillStore{
		missing: []model.HistoricalItem{
			{ID: 1, ItemText: "oat milk"},
			{ID: 2, ItemText: "rye bread"},
		},
		setErr: map[int64]error{1: errors.New("row gone")},
	}

	updated, err := BackfillHistoryEmbeddings(context.Background(), store, &stubEmbedder{})
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	assert.NotContains(t, store.embeddings, int64(1))
}

func TestBackfillHistoryEmbeddingsEmbedFailure(t *testing.T) {
	store := &backfillStore{
		missing: []model.HistoricalItem{{ID: 1, ItemText: "oat milk"}},
	}
	embedder := &stubEmbedder{err: errors.New("model missing")}

	_, err := BackfillHistoryEmbeddings(context.Background(), store, embedder)
	require.Error(t, err)
}
