package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/petrikoro/tally/internal/model"
)

// backfillBatchSize bounds how many history rows are embedded per inference
// pass.
const backfillBatchSize = 64

// HistoryBackfillStore is the slice of storage the backfill needs.
type HistoryBackfillStore interface {
	HistoryMissingEmbeddings(ctx context.Context) ([]model.HistoricalItem, error)
	SetHistoryEmbedding(ctx context.Context, id int64, embedding []float32) error
}

// BackfillHistoryEmbeddings embeds every history row that was stored
// without a vector. Returns the number of rows updated. Rows that fail to
// update are skipped so one bad row cannot stall the rest.
func BackfillHistoryEmbeddings(ctx context.Context, store HistoryBackfillStore, embedder Embedder) (int, error) {
	missing, err := store.HistoryMissingEmbeddings(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing history without embeddings: %w", err)
	}
	if len(missing) == 0 {
		return 0, nil
	}

	updated := 0
	for start := 0; start < len(missing); start += backfillBatchSize {
		end := start + backfillBatchSize
		if end > len(missing) {
			end = len(missing)
		}
		batch := missing[start:end]

		texts := make([]string, len(batch))
		for i, item := range batch {
			texts[i] = item.ItemText
		}

		vecs, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return updated, fmt.Errorf("embedding history batch: %w", err)
		}

		for i, item := range batch {
			if err := store.SetHistoryEmbedding(ctx, item.ID, vecs[i]); err != nil {
				slog.Warn("failed to store history embedding",
					"history_id", item.ID,
					"error", err)
				continue
			}
			updated++
		}
	}

	slog.Info("history embedding backfill complete",
		"missing", len(missing),
		"updated", updated)
	return updated, nil
}
