// Package engine implements the classification waterfall for receipt line
// items: corrections first, then exact history, then vector candidates with
// optional LLM arbitration, and finally the uncategorized fallback.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/petrikoro/tally/internal/common"
	"github.com/petrikoro/tally/internal/llm"
	"github.com/petrikoro/tally/internal/model"
)

// Config holds the tunable knobs of the waterfall.
type Config struct {
	// NameSearchK is how many candidates the item-name vector search returns.
	NameSearchK int

	// TypeSearchK is how many candidates the item-type vector search returns.
	TypeSearchK int

	// MaxDistance is the cutoff for accepting the top vector candidate when
	// no LLM is configured. Candidates at or beyond this distance are
	// rejected.
	MaxDistance float64
}

// DefaultConfig returns the default waterfall configuration.
func DefaultConfig() Config {
	return Config{
		NameSearchK: 3,
		TypeSearchK: 2,
		MaxDistance: 1.0,
	}
}

// Engine orchestrates the classification of receipt items.
type Engine struct {
	storage    Storage
	index      Index
	embedder   Embedder
	arbitrator Arbitrator
	config     Config
}

// New creates an engine with the default configuration.
func New(storage Storage, index Index, embedder Embedder, arbitrator Arbitrator) *Engine {
	return NewWithConfig(storage, index, embedder, arbitrator, DefaultConfig())
}

// NewWithConfig creates an engine with a custom configuration. Zero-valued
// knobs fall back to their defaults.
func NewWithConfig(storage Storage, index Index, embedder Embedder, arbitrator Arbitrator, config Config) *Engine {
	def := DefaultConfig()
	if config.NameSearchK <= 0 {
		config.NameSearchK = def.NameSearchK
	}
	if config.TypeSearchK <= 0 {
		config.TypeSearchK = def.TypeSearchK
	}
	if config.MaxDistance <= 0 {
		config.MaxDistance = def.MaxDistance
	}
	return &Engine{
		storage:    storage,
		index:      index,
		embedder:   embedder,
		arbitrator: arbitrator,
		config:     config,
	}
}

// ClassifyItem runs the full waterfall for a single receipt line. It never
// returns an error: any failure along the way degrades to the uncategorized
// result so one bad line cannot sink a whole receipt.
func (e *Engine) ClassifyItem(ctx context.Context, shopName string, line model.ReceiptLine) model.ClassificationResult {
	return e.classify(ctx, shopName, line, nil)
}

// ClassifyItems classifies every line of a receipt. Item names are embedded
// in a single batched inference pass up front, so large receipts cost one
// model invocation instead of one per line.
func (e *Engine) ClassifyItems(ctx context.Context, shopName string, lines []model.ReceiptLine) []model.ClassificationResult {
	results := make([]model.ClassificationResult, len(lines))
	if len(lines) == 0 {
		return results
	}

	vectors := e.prefetchVectors(ctx, lines)

	for i, line := range lines {
		results[i] = e.classify(ctx, shopName, line, vectors[i])
	}
	return results
}

// prefetchVectors batch-embeds all non-empty item names. On failure it
// returns nil vectors; classification falls back to per-item embedding,
// which will surface the same error per line.
func (e *Engine) prefetchVectors(ctx context.Context, lines []model.ReceiptLine) [][]float32 {
	vectors := make([][]float32, len(lines))

	var texts []string
	var positions []int
	for i, line := range lines {
		if common.Normalize(line.ItemText) == "" {
			continue
		}
		texts = append(texts, line.ItemText)
		positions = append(positions, i)
	}
	if len(texts) == 0 {
		return vectors
	}

	vecs, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		slog.Warn("batch embedding failed, falling back to per-item embedding",
			"items", len(texts),
			"error", err)
		return vectors
	}
	for i, pos := range positions {
		vectors[pos] = vecs[i]
	}
	return vectors
}

// classify runs the waterfall with an optional precomputed name vector.
func (e *Engine) classify(ctx context.Context, shopName string, line model.ReceiptLine, nameVec []float32) (result model.ClassificationResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("classification panicked",
				"shop", shopName,
				"item", line.ItemText,
				"panic", r)
			result = model.Uncategorized()
		}
	}()

	// Step 0: blank item names are unclassifiable.
	if common.Normalize(line.ItemText) == "" {
		return model.Uncategorized()
	}

	// Step 1: exact correction match.
	correction, err := e.storage.GetCorrection(ctx, shopName, line.ItemText)
	switch {
	case err == nil:
		slog.Info("correction hit",
			"shop", shopName,
			"item", line.ItemText,
			"taxonomy_id", correction.TaxonomyID)
		return e.buildResult(ctx, correction.TaxonomyID, 1.0, model.SourceCorrection)
	case !errors.Is(err, common.ErrNotFound):
		slog.Error("correction lookup failed",
			"shop", shopName,
			"item", line.ItemText,
			"error", err)
		return model.Uncategorized()
	}

	// Step 2: exact historical match.
	historyID, err := e.storage.GetExactMatch(ctx, shopName, line.ItemText)
	switch {
	case err == nil:
		slog.Info("history hit",
			"shop", shopName,
			"item", line.ItemText,
			"taxonomy_id", historyID)
		return e.buildResult(ctx, historyID, 1.0, model.SourceHistory)
	case !errors.Is(err, common.ErrNotFound):
		slog.Error("history lookup failed",
			"shop", shopName,
			"item", line.ItemText,
			"error", err)
		return model.Uncategorized()
	}

	// Step 3: vector search on the item name.
	if nameVec == nil {
		nameVec, err = e.embedder.Embed(ctx, line.ItemText)
		if err != nil {
			slog.Error("item name embedding failed",
				"item", line.ItemText,
				"error", err)
			return model.Uncategorized()
		}
	}
	candidates := e.index.Search(nameVec, e.config.NameSearchK)

	// Step 4: vector search on the item type, when it carries signal.
	if !common.IsUnknown(line.ItemType) {
		typeVec, embedErr := e.embedder.Embed(ctx, line.ItemType)
		if embedErr != nil {
			slog.Error("item type embedding failed",
				"item_type", line.ItemType,
				"error", embedErr)
			return model.Uncategorized()
		}
		candidates = append(candidates, e.index.Search(typeVec, e.config.TypeSearchK)...)
	}

	candidates = dedupeCandidates(candidates)
	if len(candidates) == 0 {
		slog.Warn("no taxonomy candidates found",
			"shop", shopName,
			"item", line.ItemText)
		return model.Uncategorized()
	}

	// Step 5: LLM arbitration when configured, otherwise the top vector
	// match within the distance cutoff.
	if e.arbitrator != nil && e.arbitrator.Enabled() {
		chosenID, arbErr := e.arbitrator.Arbitrate(ctx, line.ItemText, line.ItemType, e.promptCandidates(ctx, candidates))
		if arbErr != nil {
			slog.Error("arbitration failed",
				"item", line.ItemText,
				"error", arbErr)
			return model.Uncategorized()
		}
		if chosenID != "" {
			slog.Info("arbitration hit",
				"item", line.ItemText,
				"taxonomy_id", chosenID)
			return e.buildResult(ctx, chosenID, 0.9, model.SourceLLM)
		}
		// The model declined every candidate. The vector matches were
		// already on the table and rejected, so do not fall back to them.
		return model.Uncategorized()
	}

	if top := candidates[0]; top.Distance < e.config.MaxDistance {
		slog.Info("vector hit",
			"item", line.ItemText,
			"taxonomy_id", top.TaxonomyID,
			"distance", top.Distance)
		return e.buildResult(ctx, top.TaxonomyID, top.Distance, model.SourceVector)
	}

	// Step 6: nothing fit.
	slog.Warn("all classification steps failed",
		"shop", shopName,
		"item", line.ItemText)
	return model.Uncategorized()
}

// promptCandidates resolves candidate IDs to their full taxonomy paths for
// the arbitration prompt. Unresolvable paths degrade to "Unknown" rather
// than dropping the candidate.
func (e *Engine) promptCandidates(ctx context.Context, candidates []model.Candidate) []llm.PromptCandidate {
	out := make([]llm.PromptCandidate, len(candidates))
	for i, c := range candidates {
		path := "Unknown"
		if entry, err := e.storage.GetTaxonomyEntry(ctx, c.TaxonomyID); err == nil {
			path = entry.FullPath
		} else {
			slog.Warn("candidate path lookup failed",
				"taxonomy_id", c.TaxonomyID,
				"error", err)
		}
		out[i] = llm.PromptCandidate{ID: c.TaxonomyID, Path: path}
	}
	return out
}

// dedupeCandidates removes duplicate taxonomy IDs, keeping first-seen order
// so name-search candidates stay ahead of type-search ones.
func dedupeCandidates(candidates []model.Candidate) []model.Candidate {
	seen := make(map[string]struct{}, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		if _, ok := seen[c.TaxonomyID]; ok {
			continue
		}
		seen[c.TaxonomyID] = struct{}{}
		out = append(out, c)
	}
	return out
}

// buildResult resolves a taxonomy ID into a full classification result. An
// ID that no longer resolves degrades to uncategorized.
func (e *Engine) buildResult(ctx context.Context, taxonomyID string, confidence float64, source model.CandidateSource) model.ClassificationResult {
	entry, err := e.storage.GetTaxonomyEntry(ctx, taxonomyID)
	if err != nil {
		slog.Error("taxonomy entry lookup failed",
			"taxonomy_id", taxonomyID,
			"error", err)
		return model.Uncategorized()
	}
	return model.ClassificationResult{
		TaxonomyID:    entry.ID,
		Category:      entry.Category,
		SubCategoryI:  entry.SubCategoryI,
		SubCategoryII: entry.SubCategoryII,
		Confidence:    confidence,
		Source:        source,
	}
}

// RecordCorrection stores a user correction after validating the target
// taxonomy ID exists.
func (e *Engine) RecordCorrection(ctx context.Context, correction *model.CorrectionRecord) error {
	if correction == nil {
		return fmt.Errorf("correction cannot be nil")
	}
	exists, err := e.storage.TaxonomyIDExists(ctx, correction.TaxonomyID)
	if err != nil {
		return fmt.Errorf("validating taxonomy ID: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", common.ErrUnknownTaxonomyID, correction.TaxonomyID)
	}
	if err := e.storage.SaveCorrection(ctx, correction); err != nil {
		return fmt.Errorf("saving correction: %w", err)
	}
	slog.Info("correction recorded",
		"shop", correction.ShopName,
		"item", correction.ItemText,
		"taxonomy_id", correction.TaxonomyID)
	return nil
}

// FinalizeItems appends confirmed classifications to the history log,
// embedding any items that arrive without a vector so future receipts can
// match them by similarity as well as exactly.
func (e *Engine) FinalizeItems(ctx context.Context, items []model.HistoricalItem) error {
	if len(items) == 0 {
		return nil
	}

	var texts []string
	var positions []int
	for i, item := range items {
		if len(item.Embedding) == 0 && common.Normalize(item.ItemText) != "" {
			texts = append(texts, item.ItemText)
			positions = append(positions, i)
		}
	}
	if len(texts) > 0 {
		vecs, err := e.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			// History rows are still useful for exact matching without a
			// vector; a backfill can fill them in later.
			slog.Warn("embedding finalized items failed, storing without vectors",
				"items", len(texts),
				"error", err)
		} else {
			for i, pos := range positions {
				items[pos].Embedding = vecs[i]
			}
		}
	}

	if err := e.storage.AppendHistory(ctx, items); err != nil {
		return fmt.Errorf("appending history: %w", err)
	}
	slog.Info("finalized items", "count", len(items))
	return nil
}
