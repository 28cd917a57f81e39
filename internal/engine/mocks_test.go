package engine

import (
	"context"
	"fmt"

	"github.com/petrikoro/tally/internal/common"
	"github.com/petrikoro/tally/internal/llm"
	"github.com/petrikoro/tally/internal/model"
)

func key(shopName, itemText string) string {
	return common.Normalize(shopName) + "|" + common.Normalize(itemText)
}

// mockStorage is an in-memory engine.Storage with injectable failures.
type mockStorage struct {
	corrections map[string]*model.CorrectionRecord
	history     map[string]string
	taxonomy    map[string]*model.TaxonomyEntry
	appended    []model.HistoricalItem

	correctionErr error
	historyErr    error
	taxonomyErr   error
	saveErr       error
	appendErr     error

	correctionCalls int
	historyCalls    int
}

func newMockStorage() *mockStorage {
	return &mockStorage{
		corrections: make(map[string]*model.CorrectionRecord),
		history:     make(map[string]string),
		taxonomy:    make(map[string]*model.TaxonomyEntry),
	}
}

func (m *mockStorage) addTaxonomy(id, category, subI, subII string) {
	entry := &model.TaxonomyEntry{
		ID:            id,
		Category:      category,
		SubCategoryI:  subI,
		SubCategoryII: subII,
	}
	entry.FullPath = entry.BuildFullPath()
	m.taxonomy[id] = entry
}

func (m *mockStorage) SaveCorrection(_ context.Context, correction *model.CorrectionRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.corrections[key(correction.ShopName, correction.ItemText)] = correction
	return nil
}

func (m *mockStorage) GetCorrection(_ context.Context, shopName, itemText string) (*model.CorrectionRecord, error) {
	m.correctionCalls++
	if m.correctionErr != nil {
		return nil, m.correctionErr
	}
	if rec, ok := m.corrections[key(shopName, itemText)]; ok {
		return rec, nil
	}
	return nil, common.ErrNotFound
}

func (m *mockStorage) AppendHistory(_ context.Context, items []model.HistoricalItem) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.appended = append(m.appended, items...)
	return nil
}

func (m *mockStorage) GetExactMatch(_ context.Context, shopName, itemText string) (string, error) {
	m.historyCalls++
	if m.historyErr != nil {
		return "", m.historyErr
	}
	if id, ok := m.history[key(shopName, itemText)]; ok {
		return id, nil
	}
	return "", common.ErrNotFound
}

func (m *mockStorage) GetTaxonomyEntry(_ context.Context, id string) (*model.TaxonomyEntry, error) {
	if m.taxonomyErr != nil {
		return nil, m.taxonomyErr
	}
	if entry, ok := m.taxonomy[id]; ok {
		return entry, nil
	}
	return nil, fmt.Errorf("%w: taxonomy %s", common.ErrNotFound, id)
}

func (m *mockStorage) TaxonomyIDExists(_ context.Context, id string) (bool, error) {
	if m.taxonomyErr != nil {
		return false, m.taxonomyErr
	}
	_, ok := m.taxonomy[id]
	return ok, nil
}

// stubIndex returns scripted candidate lists in call order.
type stubIndex struct {
	queue [][]model.Candidate
	calls int
}

func (s *stubIndex) Search(_ []float32, _ int) []model.Candidate {
	if s.calls >= len(s.queue) {
		s.calls++
		return nil
	}
	out := s.queue[s.calls]
	s.calls++
	return out
}

func (s *stubIndex) Len() int { return len(s.queue) }

// stubEmbedder returns fixed small vectors and counts calls.
type stubEmbedder struct {
	err        error
	embedCalls int
	batchCalls int
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	s.embedCalls++
	if s.err != nil {
		return nil, s.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	s.batchCalls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1}
	}
	return out, nil
}

// mockArbitrator is a scriptable Arbitrator that records its inputs.
type mockArbitrator struct {
	enabled    bool
	chosenID   string
	err        error
	calls      int
	candidates []llm.PromptCandidate
}

func (m *mockArbitrator) Enabled() bool { return m.enabled }

func (m *mockArbitrator) Arbitrate(_ context.Context, _, _ string, candidates []llm.PromptCandidate) (string, error) {
	m.calls++
	m.candidates = candidates
	return m.chosenID, m.err
}
