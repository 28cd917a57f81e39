package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/petrikoro/tally/internal/common"
	"github.com/petrikoro/tally/internal/model"
)

// ReplaceTaxonomy rewrites the taxonomy table wholesale. The taxonomy is a
// small, infrequently changed reference set, so a full replace inside one
// transaction keeps it consistent without incremental-update machinery.
func (s *SQLiteStorage) ReplaceTaxonomy(ctx context.Context, entries []model.TaxonomyEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTaxonomyEntries(entries); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM taxonomy`); err != nil {
		return fmt.Errorf("failed to clear taxonomy: %w", err)
	}

	for _, entry := range entries {
		embedding, encErr := encodeVector(entry.Embedding)
		if encErr != nil {
			return encErr
		}

		if _, execErr := tx.ExecContext(ctx, `
			INSERT INTO taxonomy (id, category, sub_category_i, sub_category_ii, full_path, description, embedding)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			entry.ID,
			entry.Category,
			entry.SubCategoryI,
			entry.SubCategoryII,
			entry.FullPath,
			entry.Description,
			embedding,
		); execErr != nil {
			return fmt.Errorf("failed to insert taxonomy entry %q: %w", entry.ID, execErr)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO taxonomy_syncs (entry_count, source) VALUES (?, 'replace')
	`, len(entries)); err != nil {
		return fmt.Errorf("failed to record taxonomy sync: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit taxonomy replace: %w", err)
	}

	slog.Info("Replaced taxonomy", "entries", len(entries))
	return nil
}

// GetTaxonomyEntries returns all taxonomy entries ordered by id.
func (s *SQLiteStorage) GetTaxonomyEntries(ctx context.Context) ([]model.TaxonomyEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category, sub_category_i, sub_category_ii, full_path, description, embedding
		FROM taxonomy
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query taxonomy: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.TaxonomyEntry
	for rows.Next() {
		entry, scanErr := scanTaxonomyEntry(rows.Scan)
		if scanErr != nil {
			return nil, scanErr
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// GetTaxonomyEntry returns a single entry by id, or common.ErrNotFound.
func (s *SQLiteStorage) GetTaxonomyEntry(ctx context.Context, id string) (*model.TaxonomyEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, category, sub_category_i, sub_category_ii, full_path, description, embedding
		FROM taxonomy
		WHERE id = ?
	`, id)

	entry, err := scanTaxonomyEntry(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &entry, nil
}

// TaxonomyIDExists reports whether an entry with the given id exists.
func (s *SQLiteStorage) TaxonomyIDExists(ctx context.Context, id string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(id, "id"); err != nil {
		return false, err
	}

	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM taxonomy WHERE id = ?)
	`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check taxonomy id: %w", err)
	}

	return exists, nil
}

func scanTaxonomyEntry(scan func(...any) error) (model.TaxonomyEntry, error) {
	var entry model.TaxonomyEntry
	var embedding sql.NullString

	if err := scan(
		&entry.ID,
		&entry.Category,
		&entry.SubCategoryI,
		&entry.SubCategoryII,
		&entry.FullPath,
		&entry.Description,
		&embedding,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entry, err
		}
		return entry, fmt.Errorf("failed to scan taxonomy entry: %w", err)
	}

	vec, err := decodeVector(embedding)
	if err != nil {
		return entry, err
	}
	entry.Embedding = vec

	return entry, nil
}
