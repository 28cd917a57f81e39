// Package testutil provides shared test fixtures for tally packages.
package testutil

import (
	"context"
	"testing"

	"github.com/petrikoro/tally/internal/model"
	"github.com/petrikoro/tally/internal/storage"
)

// TestDB wraps an in-memory test database with its seeded taxonomy.
type TestDB struct {
	Storage  *storage.SQLiteStorage
	Taxonomy []model.TaxonomyEntry
	t        *testing.T
}

// SetupTestDB creates a migrated in-memory database and seeds the given
// taxonomy entries, registering cleanup on the test. With no entries the
// taxonomy table is left empty.
func SetupTestDB(t *testing.T, entries ...model.TaxonomyEntry) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	if len(entries) > 0 {
		if err := store.ReplaceTaxonomy(ctx, entries); err != nil {
			t.Fatalf("failed to seed taxonomy: %v", err)
		}
	}

	return &TestDB{Storage: store, Taxonomy: entries, t: t}
}

// MustGetEntry returns the seeded entry with the given id or fails the test.
func (db *TestDB) MustGetEntry(id string) model.TaxonomyEntry {
	db.t.Helper()
	for _, entry := range db.Taxonomy {
		if entry.ID == id {
			return entry
		}
	}
	db.t.Fatalf("taxonomy entry %q not seeded", id)
	return model.TaxonomyEntry{}
}
