package testutil

import "github.com/petrikoro/tally/internal/model"

// GroceryTaxonomy returns a small taxonomy covering the usual test shapes:
// three-level, two-level, and single-level paths, with and without
// descriptions.
func GroceryTaxonomy() []model.TaxonomyEntry {
	return []model.TaxonomyEntry{
		{
			ID:            "TAX-001",
			Category:      "Groceries",
			SubCategoryI:  "Dairy",
			SubCategoryII: "Milk",
			FullPath:      "Groceries > Dairy > Milk",
			Description:   "Milk and milk drinks",
		},
		{
			ID:           "TAX-002",
			Category:     "Groceries",
			SubCategoryI: "Produce",
			FullPath:     "Groceries > Produce",
			Description:  "Fruit and vegetables",
		},
		{
			ID:           "TAX-003",
			Category:     "Household",
			SubCategoryI: "Cleaning",
			FullPath:     "Household > Cleaning",
		},
		{
			ID:       "TAX-004",
			Category: "Transport",
			FullPath: "Transport",
		},
	}
}
