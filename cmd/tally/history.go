package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petrikoro/tally/internal/cli"
	"github.com/petrikoro/tally/internal/common"
	"github.com/petrikoro/tally/internal/engine"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and maintain the purchase history",
	}

	cmd.AddCommand(historyBackfillCmd())
	cmd.AddCommand(historySimilarCmd())
	cmd.AddCommand(historyStatsCmd())

	return cmd
}

func historyBackfillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Embed history rows stored without a vector",
		Long: `Compute embeddings for history rows whose embedding column is empty.

Rows end up without a vector when finalization ran while the embedding
model was unavailable. Backfilled rows become reachable by similarity
search in addition to exact matching.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			embedder := initEmbedder()
			defer func() { _ = embedder.Close() }()

			updated, err := engine.BackfillHistoryEmbeddings(ctx, store, embedder)
			if err != nil {
				return fmt.Errorf("backfill failed: %w", err)
			}

			if updated == 0 {
				fmt.Println(cli.FormatInfo("All history rows already have embeddings"))
				return nil
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Backfilled %d history embeddings", updated)))
			return nil
		},
	}
}

func historySimilarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "similar <item>",
		Short: "Find the most similar previously purchased item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			threshold, _ := cmd.Flags().GetFloat64("threshold")

			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			embedder := initEmbedder()
			defer func() { _ = embedder.Close() }()

			vec, err := embedder.Embed(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to embed query: %w", err)
			}

			taxonomyID, err := store.SearchSimilarHistory(ctx, vec, threshold)
			if errors.Is(err, common.ErrNotFound) {
				fmt.Println(cli.FormatWarning(fmt.Sprintf("No history within distance %.2f of %q", threshold, args[0])))
				return nil
			}
			if err != nil {
				return fmt.Errorf("similarity search failed: %w", err)
			}

			entry, err := store.GetTaxonomyEntry(ctx, taxonomyID)
			if err != nil {
				fmt.Println(cli.FormatSuccess(fmt.Sprintf("Nearest history maps to %s", taxonomyID)))
				return nil
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Nearest history maps to %s (%s)", entry.FullPath, taxonomyID)))
			return nil
		},
	}

	cmd.Flags().Float64("threshold", 0.3, "maximum cosine distance to accept")

	return cmd
}

func historyStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show history row counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			total, err := store.GetHistoryCount(ctx)
			if err != nil {
				return fmt.Errorf("failed to count history: %w", err)
			}
			missing, err := store.HistoryMissingEmbeddings(ctx)
			if err != nil {
				return fmt.Errorf("failed to list rows without embeddings: %w", err)
			}

			fmt.Println(cli.FormatTitle("History"))
			fmt.Printf("rows: %d\n", total)
			fmt.Printf("without embeddings: %d\n", len(missing))
			return nil
		},
	}
}
