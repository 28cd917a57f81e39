package sheets

import (
	"encoding/csv"
	"fmt"
	"os"
)

// ReadTaxonomyCSV loads taxonomy entries from a local CSV file with the
// same column layout as the worksheet: id, category, sub_category_i,
// sub_category_ii, description. Useful for offline syncs and tests.
func ReadTaxonomyCSV(path string) ([][]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open taxonomy CSV: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("unable to parse taxonomy CSV: %w", err)
	}

	rows := make([][]any, len(records))
	for i, record := range records {
		row := make([]any, len(record))
		for j, field := range record {
			row[j] = field
		}
		rows[i] = row
	}
	return rows, nil
}
