// Package taxsync implements the taxonomy sync pipeline: fetch rows from
// the source of truth, embed every entry, replace the stored taxonomy, and
// rebuild the vector index. Always a full refresh, never incremental.
package taxsync

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"

	"github.com/petrikoro/tally/internal/model"
)

// embedBatchSize bounds how many taxonomy entries are embedded per
// inference pass.
const embedBatchSize = 32

// Source provides taxonomy entries to sync from.
type Source interface {
	FetchTaxonomy(ctx context.Context) ([]model.TaxonomyEntry, error)
}

// Store persists the synced taxonomy.
type Store interface {
	ReplaceTaxonomy(ctx context.Context, entries []model.TaxonomyEntry) error
	GetTaxonomyEntries(ctx context.Context) ([]model.TaxonomyEntry, error)
}

// Indexer rebuilds the in-memory vector index.
type Indexer interface {
	Rebuild(entries []model.TaxonomyEntry) error
	Len() int
}

// Embedder produces vectors for taxonomy entries.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Syncer runs the full taxonomy refresh.
type Syncer struct {
	source   Source
	store    Store
	index    Indexer
	embedder Embedder

	// ProgressWriter, when set, gets a progress bar during embedding.
	// Typically os.Stderr for interactive runs, nil otherwise.
	ProgressWriter io.Writer
}

// NewSyncer creates a taxonomy syncer.
func NewSyncer(source Source, store Store, index Indexer, embedder Embedder) *Syncer {
	return &Syncer{
		source:   source,
		store:    store,
		index:    index,
		embedder: embedder,
	}
}

// Sync fetches, embeds, stores, and indexes the taxonomy. Returns the
// number of entries synced. The store is only touched after every entry has
// been embedded, so a failed sync leaves the previous taxonomy intact.
func (s *Syncer) Sync(ctx context.Context) (int, error) {
	entries, err := s.source.FetchTaxonomy(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetching taxonomy: %w", err)
	}
	if len(entries) == 0 {
		return 0, fmt.Errorf("taxonomy source returned no entries")
	}

	if err := s.embedEntries(ctx, entries); err != nil {
		return 0, err
	}

	if err := s.store.ReplaceTaxonomy(ctx, entries); err != nil {
		return 0, fmt.Errorf("replacing stored taxonomy: %w", err)
	}

	if err := s.index.Rebuild(entries); err != nil {
		return 0, fmt.Errorf("rebuilding taxonomy index: %w", err)
	}

	slog.Info("taxonomy sync complete",
		"entries", len(entries),
		"indexed", s.index.Len())
	return len(entries), nil
}

// embedEntries fills in the Embedding field of every entry, batched.
func (s *Syncer) embedEntries(ctx context.Context, entries []model.TaxonomyEntry) error {
	var bar *progressbar.ProgressBar
	if s.ProgressWriter != nil {
		bar = progressbar.NewOptions(len(entries),
			progressbar.OptionSetWriter(s.ProgressWriter),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("Embedding taxonomy..."),
		)
	}

	for start := 0; start < len(entries); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(entries) {
			end = len(entries)
		}
		batch := entries[start:end]

		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = batch[i].EmbeddingText()
		}

		vecs, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding taxonomy entries %d-%d: %w", start, end-1, err)
		}
		for i := range batch {
			entries[start+i].Embedding = vecs[i]
		}

		if bar != nil {
			_ = bar.Add(len(batch))
		}
	}

	if bar != nil {
		_ = bar.Finish()
	}
	return nil
}

// LoadIndex populates the vector index from the stored taxonomy. Called at
// startup so searches work without a fresh sync. Returns the number of
// indexed entries.
func LoadIndex(ctx context.Context, store Store, index Indexer) (int, error) {
	entries, err := store.GetTaxonomyEntries(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading stored taxonomy: %w", err)
	}
	if err := index.Rebuild(entries); err != nil {
		return 0, fmt.Errorf("rebuilding taxonomy index: %w", err)
	}
	return index.Len(), nil
}
