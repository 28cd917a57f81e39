package engine

import (
	"context"

	"github.com/petrikoro/tally/internal/llm"
	"github.com/petrikoro/tally/internal/model"
)

// Storage is the slice of the persistence layer the engine needs.
type Storage interface {
	SaveCorrection(ctx context.Context, correction *model.CorrectionRecord) error
	GetCorrection(ctx context.Context, shopName, itemText string) (*model.CorrectionRecord, error)
	AppendHistory(ctx context.Context, items []model.HistoricalItem) error
	GetExactMatch(ctx context.Context, shopName, itemText string) (string, error)
	GetTaxonomyEntry(ctx context.Context, id string) (*model.TaxonomyEntry, error)
	TaxonomyIDExists(ctx context.Context, id string) (bool, error)
}

// Index provides nearest-neighbor lookup over taxonomy embeddings.
type Index interface {
	Search(embedding []float32, k int) []model.Candidate
	Len() int
}

// Embedder converts text into vectors comparable against the index.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Arbitrator picks one taxonomy candidate via an LLM. An empty chosen ID
// means the model declined or arbitration is disabled.
type Arbitrator interface {
	Enabled() bool
	Arbitrate(ctx context.Context, itemName, itemType string, candidates []llm.PromptCandidate) (string, error)
}
