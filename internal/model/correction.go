package model

import "time"

// CorrectionRecord is a human-confirmed category override for one
// (shop, item) pair. Keys are stored normalized; the most recent write wins.
type CorrectionRecord struct {
	UpdatedAt         time.Time
	ShopName          string
	ItemText          string
	TaxonomyID        string
	CorrectedItemType string
	UserID            string
}
