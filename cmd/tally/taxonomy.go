package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/petrikoro/tally/internal/cli"
	"github.com/petrikoro/tally/internal/config"
	"github.com/petrikoro/tally/internal/index"
	"github.com/petrikoro/tally/internal/model"
	"github.com/petrikoro/tally/internal/sheets"
	"github.com/petrikoro/tally/internal/taxsync"
)

func taxonomyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taxonomy",
		Short: "Manage the category taxonomy",
	}

	cmd.AddCommand(taxonomySyncCmd())
	cmd.AddCommand(taxonomyListCmd())

	return cmd
}

func taxonomySyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Import the taxonomy and rebuild its vector index",
		Long: `Replace the local taxonomy with the configured Google Sheet, or a
CSV file when --csv is given. Every entry is embedded and the vector
index rebuilt, so a sync can take a while on large taxonomies.

The previous taxonomy stays in place if the import fails partway.`,
		RunE: runTaxonomySync,
	}

	cmd.Flags().String("csv", "", "import from a CSV file instead of Google Sheets")

	return cmd
}

// csvSource adapts a CSV file to the sync source interface.
type csvSource struct {
	path string
}

func (s csvSource) FetchTaxonomy(_ context.Context) ([]model.TaxonomyEntry, error) {
	rows, err := sheets.ReadTaxonomyCSV(s.path)
	if err != nil {
		return nil, err
	}
	return sheets.ParseTaxonomyRows(rows)
}

func runTaxonomySync(cmd *cobra.Command, _ []string) error {
	csvPath, _ := cmd.Flags().GetString("csv")

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var source taxsync.Source
	if csvPath != "" {
		source = csvSource{path: config.ExpandPath(csvPath)}
	} else {
		sheetsCfg, cfgErr := config.LoadSheetsConfig()
		if cfgErr != nil {
			return fmt.Errorf("sheets configuration: %w", cfgErr)
		}
		reader, readerErr := sheets.NewReader(ctx, *sheetsCfg, slog.Default())
		if readerErr != nil {
			return fmt.Errorf("failed to create sheets reader: %w", readerErr)
		}
		source = reader
	}

	embedder := initEmbedder()
	defer func() { _ = embedder.Close() }()

	syncer := taxsync.NewSyncer(source, store, index.New(), embedder)
	syncer.ProgressWriter = os.Stderr

	count, err := syncer.Sync(ctx)
	if err != nil {
		return fmt.Errorf("taxonomy sync failed: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Synced %d taxonomy entries", count)))
	return nil
}

func taxonomyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the current taxonomy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			entries, err := store.GetTaxonomyEntries(ctx)
			if err != nil {
				return fmt.Errorf("failed to load taxonomy: %w", err)
			}
			if len(entries) == 0 {
				fmt.Println(cli.FormatWarning("Taxonomy is empty; run 'tally taxonomy sync' first"))
				return nil
			}

			fmt.Println(cli.FormatTitle("Taxonomy"))
			for _, entry := range entries {
				line := fmt.Sprintf("%-14s %s", entry.ID, entry.FullPath)
				if entry.Description != "" {
					line += " " + cli.SubtleStyle.Render("("+entry.Description+")")
				}
				fmt.Println(line)
			}
			fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("%d entries", len(entries))))
			return nil
		},
	}
}
