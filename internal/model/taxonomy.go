// Package model defines the core domain models used throughout the application.
package model

import "strings"

// PathSeparator joins hierarchy levels into a full taxonomy path.
const PathSeparator = " > "

// TaxonomyEntry is one row of the spending-category taxonomy. Entries are
// reference data: they are replaced wholesale during a taxonomy sync and are
// read-only everywhere else.
type TaxonomyEntry struct {
	ID            string
	Category      string
	SubCategoryI  string
	SubCategoryII string
	FullPath      string
	Description   string
	Embedding     []float32
}

// BuildFullPath concatenates the non-empty hierarchy levels with the
// standard separator. Used when the source data does not carry a
// precomputed path.
func BuildFullPath(category, subI, subII string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{category, subI, subII} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, PathSeparator)
}

// BuildFullPath derives the entry's path from its own hierarchy levels.
func (e *TaxonomyEntry) BuildFullPath() string {
	return BuildFullPath(e.Category, e.SubCategoryI, e.SubCategoryII)
}

// EmbeddingText returns the text that represents this entry in vector space.
// The description, when present, enriches the path.
func (e *TaxonomyEntry) EmbeddingText() string {
	if strings.TrimSpace(e.Description) == "" {
		return e.FullPath
	}
	return e.FullPath + ": " + e.Description
}
