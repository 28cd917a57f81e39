package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/petrikoro/tally/internal/common"
	"github.com/petrikoro/tally/internal/model"
)

// AppendHistory adds finalized purchase lines to the history log. The log
// is append-only and deliberately not deduplicated: rows mirror actual
// purchases, and exact-match lookups resolve duplicates by recency.
func (s *SQLiteStorage) AppendHistory(ctx context.Context, items []model.HistoricalItem) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateHistoricalItems(items); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, item := range items {
		createdAt := item.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		embedding, encErr := encodeVector(item.Embedding)
		if encErr != nil {
			return encErr
		}

		if _, execErr := tx.ExecContext(ctx, `
			INSERT INTO history (shop_name, item_text, item_type, taxonomy_id, embedding, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			common.Normalize(item.ShopName),
			common.Normalize(item.ItemText),
			common.Normalize(item.ItemType),
			item.TaxonomyID,
			embedding,
			createdAt,
		); execErr != nil {
			return fmt.Errorf("failed to append history row: %w", execErr)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history append: %w", err)
	}

	slog.Info("Appended history", "count", len(items))
	return nil
}

// GetExactMatch finds the taxonomy id of the most recent historical row
// whose normalized (shop, item) key equals the given pair. Returns
// common.ErrNotFound on a miss; an empty normalized item text resolves to
// not-found without touching storage.
func (s *SQLiteStorage) GetExactMatch(ctx context.Context, shopName, itemText string) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}

	normShop := common.Normalize(shopName)
	normItem := common.Normalize(itemText)
	if normItem == "" {
		return "", common.ErrNotFound
	}

	return s.exactMatch(ctx, "item_text", normShop, normItem)
}

// GetExactMatchByType is the same lookup keyed on item_type instead of
// item_text - a secondary, looser exact-match signal.
func (s *SQLiteStorage) GetExactMatchByType(ctx context.Context, shopName, itemType string) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}

	normShop := common.Normalize(shopName)
	normType := common.Normalize(itemType)
	if normType == "" {
		return "", common.ErrNotFound
	}

	return s.exactMatch(ctx, "item_type", normShop, normType)
}

func (s *SQLiteStorage) exactMatch(ctx context.Context, keyColumn, normShop, normKey string) (string, error) {
	// Recency tie-break: newest created_at wins, id as a stable fallback
	// for rows inserted in the same instant.
	query := fmt.Sprintf(`
		SELECT taxonomy_id
		FROM history
		WHERE shop_name = ? AND %s = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, keyColumn)

	var taxonomyID string
	err := s.db.QueryRowContext(ctx, query, normShop, normKey).Scan(&taxonomyID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", common.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query history exact match: %w", err)
	}

	return taxonomyID, nil
}

// SearchSimilarHistory finds the historical row whose embedding is nearest
// to the query vector and returns its taxonomy id if the cosine distance is
// within the threshold (boundary inclusive). Beyond the threshold the match
// is considered coincidental and common.ErrNotFound is returned.
func (s *SQLiteStorage) SearchSimilarHistory(ctx context.Context, embedding []float32, threshold float64) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if len(embedding) == 0 {
		return "", common.ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT taxonomy_id, item_text, embedding
		FROM history
		WHERE embedding IS NOT NULL
	`)
	if err != nil {
		return "", fmt.Errorf("failed to query history embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	bestDistance := -1.0
	bestID := ""
	bestItem := ""

	for rows.Next() {
		var taxonomyID, itemText string
		var raw sql.NullString
		if scanErr := rows.Scan(&taxonomyID, &itemText, &raw); scanErr != nil {
			return "", fmt.Errorf("failed to scan history embedding: %w", scanErr)
		}

		vec, decErr := decodeVector(raw)
		if decErr != nil {
			slog.Warn("Skipping undecodable history embedding", "item", itemText, "error", decErr)
			continue
		}

		distance := cosineDistance(embedding, vec)
		if bestDistance < 0 || distance < bestDistance {
			bestDistance = distance
			bestID = taxonomyID
			bestItem = itemText
		}
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("failed to iterate history embeddings: %w", err)
	}

	if bestDistance < 0 || bestDistance > threshold {
		return "", common.ErrNotFound
	}

	slog.Debug("History similarity hit",
		"item", bestItem,
		"taxonomy_id", bestID,
		"distance", bestDistance)

	return bestID, nil
}

// HistoryMissingEmbeddings returns history rows whose embedding column is
// NULL, for backfill.
func (s *SQLiteStorage) HistoryMissingEmbeddings(ctx context.Context) ([]model.HistoricalItem, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, shop_name, item_text, item_type, taxonomy_id, created_at
		FROM history
		WHERE embedding IS NULL
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []model.HistoricalItem
	for rows.Next() {
		var item model.HistoricalItem
		var itemType sql.NullString
		if err := rows.Scan(&item.ID, &item.ShopName, &item.ItemText, &itemType, &item.TaxonomyID, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		item.ItemType = itemType.String
		items = append(items, item)
	}

	return items, rows.Err()
}

// SetHistoryEmbedding stores a backfilled embedding for one history row.
func (s *SQLiteStorage) SetHistoryEmbedding(ctx context.Context, id int64, embedding []float32) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	encoded, err := encodeVector(embedding)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `UPDATE history SET embedding = ? WHERE id = ?`, encoded, id)
	if err != nil {
		return fmt.Errorf("failed to update history embedding: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}

	return nil
}

// GetHistoryCount returns the number of history rows.
func (s *SQLiteStorage) GetHistoryCount(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM history`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return count, nil
}
