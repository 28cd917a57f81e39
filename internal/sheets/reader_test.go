package sheets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid oauth",
			mutate: func(_ *Config) {},
		},
		{
			name: "valid service account",
			mutate: func(c *Config) {
				c.ClientID = ""
				c.ClientSecret = ""
				c.RefreshToken = ""
				c.ServiceAccountPath = "/tmp/sa.json"
			},
		},
		{
			name: "no auth",
			mutate: func(c *Config) {
				c.ClientID = ""
				c.ClientSecret = ""
				c.RefreshToken = ""
			},
			wantErr: "no authentication",
		},
		{
			name: "both auth methods",
			mutate: func(c *Config) {
				c.ServiceAccountPath = "/tmp/sa.json"
			},
			wantErr: "multiple authentication",
		},
		{
			name: "missing spreadsheet ID",
			mutate: func(c *Config) {
				c.SpreadsheetID = ""
			},
			wantErr: "spreadsheet ID",
		},
		{
			name: "missing worksheet",
			mutate: func(c *Config) {
				c.WorksheetName = ""
			},
			wantErr: "worksheet",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.ClientID = "id"
			cfg.ClientSecret = "secret"
			cfg.RefreshToken = "token"
			cfg.SpreadsheetID = "sheet-id"
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestConfigLoadFromEnv(t *testing.T) {
	t.Setenv("GOOGLE_SHEETS_CLIENT_ID", "env-id")
	t.Setenv("GOOGLE_SHEETS_CLIENT_SECRET", "env-secret")
	t.Setenv("GOOGLE_SHEETS_REFRESH_TOKEN", "env-token")
	t.Setenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH", "")
	t.Setenv("GOOGLE_SHEETS_SPREADSHEET_ID", "env-sheet")
	t.Setenv("GOOGLE_SHEETS_TAXONOMY_WORKSHEET", "EnvWorksheet")

	cfg := DefaultConfig()
	cfg.LoadFromEnv()

	assert.Equal(t, "env-id", cfg.ClientID)
	assert.Equal(t, "env-secret", cfg.ClientSecret)
	assert.Equal(t, "env-token", cfg.RefreshToken)
	assert.Equal(t, "env-sheet", cfg.SpreadsheetID)
	assert.Equal(t, "EnvWorksheet", cfg.WorksheetName)
}

func TestConfigLoadFromEnvKeepsExistingValues(t *testing.T) {
	t.Setenv("GOOGLE_SHEETS_CLIENT_ID", "env-id")
	t.Setenv("GOOGLE_SHEETS_SPREADSHEET_ID", "env-sheet")
	t.Setenv("GOOGLE_SHEETS_TAXONOMY_WORKSHEET", "EnvWorksheet")

	cfg := DefaultConfig()
	cfg.ClientID = "file-id"
	cfg.WorksheetName = "FileWorksheet"
	cfg.LoadFromEnv()

	assert.Equal(t, "file-id", cfg.ClientID, "configured values win over env")
	assert.Equal(t, "env-sheet", cfg.SpreadsheetID)
	assert.Equal(t, "FileWorksheet", cfg.WorksheetName, "explicit worksheet is kept")
}

func TestParseTaxonomyRows(t *testing.T) {
	rows := [][]any{
		{"id", "category", "sub_category_i", "sub_category_ii", "description"},
		{"TAX-001", "Groceries", "Dairy", "Milk", "Milk and milk drinks"},
		{"TAX-002", "Groceries", "Beverages", "", ""},
		{"", "ignored", "", "", ""},
		{"TAX-003", "Household "},
	}

	entries, err := ParseTaxonomyRows(rows)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "TAX-001", entries[0].ID)
	assert.Equal(t, "Groceries > Dairy > Milk", entries[0].FullPath)
	assert.Equal(t, "Milk and milk drinks", entries[0].Description)

	assert.Equal(t, "Groceries > Beverages", entries[1].FullPath)

	// Short rows are padded with empty cells; cell values are trimmed.
	assert.Equal(t, "Household", entries[2].Category)
	assert.Equal(t, "Household", entries[2].FullPath)
}

func TestParseTaxonomyRowsErrors(t *testing.T) {
	_, err := ParseTaxonomyRows(nil)
	require.Error(t, err)

	_, err = ParseTaxonomyRows([][]any{{"id", "category"}})
	require.Error(t, err)

	// Only blank IDs after the header.
	_, err = ParseTaxonomyRows([][]any{
		{"id", "category"},
		{"", "Groceries"},
	})
	require.Error(t, err)

	// An ID without a category is a data error, not a skip.
	_, err = ParseTaxonomyRows([][]any{
		{"id", "category"},
		{"TAX-001", ""},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TAX-001")
}

func TestReadTaxonomyCSV(t *testing.T) {
	content := "id,category,sub_category_i,sub_category_ii,description\n" +
		"TAX-001,Groceries,Dairy,Milk,Milk products\n" +
		"TAX-002,Groceries,Beverages,,\n"
	path := filepath.Join(t.TempDir(), "taxonomy.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rows, err := ReadTaxonomyCSV(path)
	require.NoError(t, err)

	entries, err := ParseTaxonomyRows(rows)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Groceries > Dairy > Milk", entries[0].FullPath)
}

func TestReadTaxonomyCSVMissingFile(t *testing.T) {
	_, err := ReadTaxonomyCSV("/nonexistent/taxonomy.csv")
	require.Error(t, err)
}

func TestNewReaderInvalidConfig(t *testing.T) {
	_, err := NewReader(context.Background(), Config{}, nil)
	require.Error(t, err)
}
