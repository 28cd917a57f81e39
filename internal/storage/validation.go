// Package storage provides the data persistence layer for the tally application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/petrikoro/tally/internal/model"
)

// Validation errors.
var (
	ErrNilContext        = errors.New("context cannot be nil")
	ErrEmptyString       = errors.New("string parameter cannot be empty")
	ErrNilParameter      = errors.New("parameter cannot be nil")
	ErrEmptySlice        = errors.New("slice cannot be empty")
	ErrInvalidCorrection = errors.New("invalid correction")
	ErrInvalidHistory    = errors.New("invalid historical item")
	ErrInvalidTaxonomy   = errors.New("invalid taxonomy entry")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateCorrection validates a correction record before persisting.
func validateCorrection(correction *model.CorrectionRecord) error {
	if correction == nil {
		return fmt.Errorf("%w: correction", ErrNilParameter)
	}
	if strings.TrimSpace(correction.TaxonomyID) == "" {
		return fmt.Errorf("%w: missing taxonomy id", ErrInvalidCorrection)
	}
	return nil
}

// validateHistoricalItems validates a slice of history rows.
func validateHistoricalItems(items []model.HistoricalItem) error {
	if items == nil {
		return fmt.Errorf("%w: items", ErrNilParameter)
	}
	if len(items) == 0 {
		return fmt.Errorf("%w: items", ErrEmptySlice)
	}
	for i, item := range items {
		if strings.TrimSpace(item.ItemText) == "" {
			return fmt.Errorf("historical item at index %d: %w: missing item text", i, ErrInvalidHistory)
		}
		if strings.TrimSpace(item.TaxonomyID) == "" {
			return fmt.Errorf("historical item at index %d: %w: missing taxonomy id", i, ErrInvalidHistory)
		}
	}
	return nil
}

// validateTaxonomyEntries validates a full taxonomy replacement set.
func validateTaxonomyEntries(entries []model.TaxonomyEntry) error {
	if entries == nil {
		return fmt.Errorf("%w: entries", ErrNilParameter)
	}
	seen := make(map[string]struct{}, len(entries))
	for i, entry := range entries {
		if strings.TrimSpace(entry.ID) == "" {
			return fmt.Errorf("taxonomy entry at index %d: %w: missing id", i, ErrInvalidTaxonomy)
		}
		if strings.TrimSpace(entry.FullPath) == "" {
			return fmt.Errorf("taxonomy entry %q: %w: missing full path", entry.ID, ErrInvalidTaxonomy)
		}
		if _, dup := seen[entry.ID]; dup {
			return fmt.Errorf("taxonomy entry %q: %w: duplicate id", entry.ID, ErrInvalidTaxonomy)
		}
		seen[entry.ID] = struct{}{}
	}
	return nil
}
