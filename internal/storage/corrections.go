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

// SaveCorrection upserts a correction for a (shop, item) key. Keys are
// normalized before storage; an empty normalized item text makes the call a
// silent no-op, not an error. The most recent write wins.
func (s *SQLiteStorage) SaveCorrection(ctx context.Context, correction *model.CorrectionRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCorrection(correction); err != nil {
		return err
	}

	normShop := common.Normalize(correction.ShopName)
	normItem := common.Normalize(correction.ItemText)
	if normItem == "" {
		slog.Debug("skipping correction with empty item text", "shop", correction.ShopName)
		return nil
	}

	userID := correction.UserID
	if userID == "" {
		userID = "system"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO corrections (shop_name, item_text, taxonomy_id, corrected_item_type, user_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(shop_name, item_text) DO UPDATE SET
			taxonomy_id = excluded.taxonomy_id,
			corrected_item_type = excluded.corrected_item_type,
			user_id = excluded.user_id,
			updated_at = excluded.updated_at
	`, normShop, normItem, correction.TaxonomyID, nullIfEmpty(correction.CorrectedItemType), userID, time.Now().UTC())

	if err != nil {
		return fmt.Errorf("failed to save correction: %w", err)
	}

	slog.Info("Correction saved",
		"shop", normShop,
		"item", normItem,
		"taxonomy_id", correction.TaxonomyID)

	return nil
}

// GetCorrection retrieves the correction for a (shop, item) key. Returns
// common.ErrNotFound when no correction exists. An empty normalized item
// text resolves to not-found without touching storage.
func (s *SQLiteStorage) GetCorrection(ctx context.Context, shopName, itemText string) (*model.CorrectionRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	normShop := common.Normalize(shopName)
	normItem := common.Normalize(itemText)
	if normItem == "" {
		return nil, common.ErrNotFound
	}

	var correction model.CorrectionRecord
	var itemType sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT shop_name, item_text, taxonomy_id, corrected_item_type, user_id, updated_at
		FROM corrections
		WHERE shop_name = ? AND item_text = ?
	`, normShop, normItem).Scan(
		&correction.ShopName,
		&correction.ItemText,
		&correction.TaxonomyID,
		&itemType,
		&correction.UserID,
		&correction.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get correction: %w", err)
	}

	correction.CorrectedItemType = itemType.String
	return &correction, nil
}

// GetAllCorrections retrieves every correction, ordered by key.
func (s *SQLiteStorage) GetAllCorrections(ctx context.Context) ([]model.CorrectionRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT shop_name, item_text, taxonomy_id, corrected_item_type, user_id, updated_at
		FROM corrections
		ORDER BY shop_name, item_text
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query corrections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var corrections []model.CorrectionRecord
	for rows.Next() {
		var correction model.CorrectionRecord
		var itemType sql.NullString
		if err := rows.Scan(
			&correction.ShopName,
			&correction.ItemText,
			&correction.TaxonomyID,
			&itemType,
			&correction.UserID,
			&correction.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan correction: %w", err)
		}
		correction.CorrectedItemType = itemType.String
		corrections = append(corrections, correction)
	}

	return corrections, rows.Err()
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
