package model

import "time"

// HistoricalItem is one finalized, previously classified purchase line.
// The history table is a pure append log: rows are never mutated and
// duplicates of the same (shop, item) key are expected. Exact-match lookups
// resolve duplicates by created_at descending.
type HistoricalItem struct {
	CreatedAt  time.Time
	ShopName   string
	ItemText   string
	ItemType   string
	TaxonomyID string
	Embedding  []float32
	ID         int64
}

// ReceiptLine is one parsed line item handed to the classifier. The shop is
// carried separately because all lines of a receipt share it.
type ReceiptLine struct {
	ItemText string
	ItemType string
}
