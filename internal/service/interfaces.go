// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/petrikoro/tally/internal/model"
)

// Storage defines the contract for our persistence layer.
//
// Lookup operations return common.ErrNotFound (wrapped) when no row matches;
// infrastructure faults surface as other errors so callers can tell "no
// match" apart from "store down".
type Storage interface {
	// Correction operations
	SaveCorrection(ctx context.Context, correction *model.CorrectionRecord) error
	GetCorrection(ctx context.Context, shopName, itemText string) (*model.CorrectionRecord, error)
	GetAllCorrections(ctx context.Context) ([]model.CorrectionRecord, error)

	// History operations
	AppendHistory(ctx context.Context, items []model.HistoricalItem) error
	GetExactMatch(ctx context.Context, shopName, itemText string) (string, error)
	GetExactMatchByType(ctx context.Context, shopName, itemType string) (string, error)
	SearchSimilarHistory(ctx context.Context, embedding []float32, threshold float64) (string, error)
	HistoryMissingEmbeddings(ctx context.Context) ([]model.HistoricalItem, error)
	SetHistoryEmbedding(ctx context.Context, id int64, embedding []float32) error
	GetHistoryCount(ctx context.Context) (int, error)

	// Taxonomy operations
	ReplaceTaxonomy(ctx context.Context, entries []model.TaxonomyEntry) error
	GetTaxonomyEntries(ctx context.Context) ([]model.TaxonomyEntry, error)
	GetTaxonomyEntry(ctx context.Context, id string) (*model.TaxonomyEntry, error)
	TaxonomyIDExists(ctx context.Context, id string) (bool, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
