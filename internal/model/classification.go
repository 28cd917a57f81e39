package model

// UncategorizedID is the sentinel taxonomy id returned when no waterfall
// step produces a confident match.
const UncategorizedID = "UNCATEGORIZED"

// CandidateSource indicates which waterfall stage produced a result or
// candidate.
type CandidateSource string

// Candidate source constants.
const (
	SourceCorrection CandidateSource = "CORRECTION"
	SourceHistory    CandidateSource = "HISTORY"
	SourceVector     CandidateSource = "VECTOR"
	SourceLLM        CandidateSource = "LLM"
	SourceNone       CandidateSource = "NONE"
)

// Candidate is an ephemeral taxonomy candidate produced by vector search
// during a single classification call. Distance is cosine distance: lower
// means more similar.
type Candidate struct {
	TaxonomyID string
	Distance   float64
	Source     CandidateSource
}

// ClassificationResult is the output contract of the waterfall.
//
// Confidence is heterogeneous by design: 1.0 for correction/history exact
// matches, a flat 0.9 for LLM-arbitrated picks, and the raw cosine distance
// for the no-LLM vector fallback. Callers must read Source alongside
// Confidence; the values are not comparable across sources.
type ClassificationResult struct {
	TaxonomyID    string
	Category      string
	SubCategoryI  string
	SubCategoryII string
	Confidence    float64
	Source        CandidateSource
}

// Uncategorized returns the sentinel result used whenever classification
// cannot produce a match.
func Uncategorized() ClassificationResult {
	return ClassificationResult{
		TaxonomyID: UncategorizedID,
		Category:   "Uncategorized",
		Confidence: 0.0,
		Source:     SourceNone,
	}
}

// IsUncategorized reports whether the result is the sentinel.
func (r ClassificationResult) IsUncategorized() bool {
	return r.TaxonomyID == UncategorizedID
}
