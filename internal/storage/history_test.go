package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrikoro/tally/internal/common"
	"github.com/petrikoro/tally/internal/model"
)

func TestAppendHistoryAndExactMatch(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.AppendHistory(ctx, []model.HistoricalItem{
		{ShopName: "K-Market", ItemText: "Oatly Oat Milk", ItemType: "dairy", TaxonomyID: "TAX-001"},
	}))

	id, err := s.GetExactMatch(ctx, "k-market", "OATLY oat milk")
	require.NoError(t, err)
	assert.Equal(t, "TAX-001", id)

	count, err := s.GetHistoryCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGetExactMatchRecency(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	older := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 3, 5, 9, 30, 0, 0, time.UTC)

	require.NoError(t, s.AppendHistory(ctx, []model.HistoricalItem{
		{ShopName: "K-Market", ItemText: "kombucha", TaxonomyID: "TAX-OLD", CreatedAt: older},
		{ShopName: "K-Market", ItemText: "kombucha", TaxonomyID: "TAX-NEW", CreatedAt: newer},
	}))

	id, err := s.GetExactMatch(ctx, "K-Market", "kombucha")
	require.NoError(t, err)
	assert.Equal(t, "TAX-NEW", id, "newest row wins")
}

func TestGetExactMatchSameInstantTieBreak(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	at := time.Date(2026, 3, 5, 9, 30, 0, 0, time.UTC)
	require.NoError(t, s.AppendHistory(ctx, []model.HistoricalItem{
		{ShopName: "K-Market", ItemText: "kombucha", TaxonomyID: "TAX-FIRST", CreatedAt: at},
		{ShopName: "K-Market", ItemText: "kombucha", TaxonomyID: "TAX-SECOND", CreatedAt: at},
	}))

	id, err := s.GetExactMatch(ctx, "K-Market", "kombucha")
	require.NoError(t, err)
	assert.Equal(t, "TAX-SECOND", id, "higher row id wins at equal timestamps")
}

func TestGetExactMatchScopedToShop(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.AppendHistory(ctx, []model.HistoricalItem{
		{ShopName: "K-Market", ItemText: "kombucha", TaxonomyID: "TAX-001"},
	}))

	_, err := s.GetExactMatch(ctx, "S-Market", "kombucha")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetExactMatchNotFound(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	_, err := s.GetExactMatch(ctx, "K-Market", "never bought")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = s.GetExactMatch(ctx, "K-Market", "  ")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetExactMatchByType(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.AppendHistory(ctx, []model.HistoricalItem{
		{ShopName: "K-Market", ItemText: "Oatly Oat Milk", ItemType: "dairy", TaxonomyID: "TAX-001"},
	}))

	id, err := s.GetExactMatchByType(ctx, "K-Market", "Dairy")
	require.NoError(t, err)
	assert.Equal(t, "TAX-001", id)

	_, err = s.GetExactMatchByType(ctx, "K-Market", "frozen")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestAppendHistoryValidation(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	require.Error(t, s.AppendHistory(ctx, nil))
	require.Error(t, s.AppendHistory(ctx, []model.HistoricalItem{}))
	require.Error(t, s.AppendHistory(ctx, []model.HistoricalItem{
		{ShopName: "K-Market", ItemText: " ", TaxonomyID: "TAX-001"},
	}))
	require.Error(t, s.AppendHistory(ctx, []model.HistoricalItem{
		{ShopName: "K-Market", ItemText: "kombucha"},
	}))
}

func TestSearchSimilarHistory(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.AppendHistory(ctx, []model.HistoricalItem{
		{ShopName: "K-Market", ItemText: "oat milk", TaxonomyID: "TAX-001", Embedding: []float32{1, 0}},
		{ShopName: "K-Market", ItemText: "dish soap", TaxonomyID: "TAX-002", Embedding: []float32{0, 1}},
	}))

	id, err := s.SearchSimilarHistory(ctx, []float32{0.9, 0.1}, 0.1)
	require.NoError(t, err)
	assert.Equal(t, "TAX-001", id)
}

func TestSearchSimilarHistoryThresholdInclusive(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.AppendHistory(ctx, []model.HistoricalItem{
		{ShopName: "K-Market", ItemText: "oat milk", TaxonomyID: "TAX-001", Embedding: []float32{1, 0}},
	}))

	// Identical vector: distance 0, threshold 0 still matches.
	id, err := s.SearchSimilarHistory(ctx, []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Equal(t, "TAX-001", id)

	// Orthogonal vector: distance 1 is beyond a 0.1 threshold.
	_, err = s.SearchSimilarHistory(ctx, []float32{0, 1}, 0.1)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSearchSimilarHistoryIgnoresRowsWithoutEmbeddings(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.AppendHistory(ctx, []model.HistoricalItem{
		{ShopName: "K-Market", ItemText: "no vector", TaxonomyID: "TAX-009"},
	}))

	_, err := s.SearchSimilarHistory(ctx, []float32{1, 0}, 1.0)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSearchSimilarHistoryEmptyQuery(t *testing.T) {
	s := setupTestStorage(t)
	_, err := s.SearchSimilarHistory(context.Background(), nil, 0.5)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestHistoryEmbeddingBackfillRoundtrip(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.AppendHistory(ctx, []model.HistoricalItem{
		{ShopName: "K-Market", ItemText: "oat milk", TaxonomyID: "TAX-001"},
		{ShopName: "K-Market", ItemText: "dish soap", TaxonomyID: "TAX-002", Embedding: []float32{0, 1}},
	}))

	missing, err := s.HistoryMissingEmbeddings(ctx)
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "oat milk", missing[0].ItemText)

	require.NoError(t, s.SetHistoryEmbedding(ctx, missing[0].ID, []float32{1, 0}))

	missing, err = s.HistoryMissingEmbeddings(ctx)
	require.NoError(t, err)
	assert.Empty(t, missing)

	// The backfilled row is now searchable.
	id, err := s.SearchSimilarHistory(ctx, []float32{1, 0}, 0.01)
	require.NoError(t, err)
	assert.Equal(t, "TAX-001", id)
}

func TestSetHistoryEmbeddingMissingRow(t *testing.T) {
	s := setupTestStorage(t)
	err := s.SetHistoryEmbedding(context.Background(), 12345, []float32{1, 0})
	assert.ErrorIs(t, err, common.ErrNotFound)
}
