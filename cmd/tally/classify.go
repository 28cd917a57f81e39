package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/petrikoro/tally/internal/cli"
	"github.com/petrikoro/tally/internal/model"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [items...]",
		Short: "Classify receipt line items into the taxonomy",
		Long: `Classify one or more receipt line items.

Each item is resolved through the classification waterfall: stored
corrections first, then purchase history, then vector similarity against
the taxonomy with optional LLM arbitration. Items nothing matches come
back as UNCATEGORIZED.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runClassify,
	}

	cmd.Flags().StringP("shop", "s", "", "shop the receipt is from (required)")
	cmd.Flags().StringP("type", "t", "", "item type hint (single item only)")
	cmd.Flags().Bool("json", false, "output results as JSON")
	cmd.Flags().Bool("finalize", false, "append results to purchase history")
	_ = cmd.MarkFlagRequired("shop")

	return cmd
}

// classifiedItem pairs an input line with its result for JSON output.
type classifiedItem struct {
	Item       string  `json:"item"`
	TaxonomyID string  `json:"taxonomy_id"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

func runClassify(cmd *cobra.Command, args []string) error {
	shop, _ := cmd.Flags().GetString("shop")
	itemType, _ := cmd.Flags().GetString("type")
	asJSON, _ := cmd.Flags().GetBool("json")
	finalize, _ := cmd.Flags().GetBool("finalize")

	if itemType != "" && len(args) > 1 {
		return fmt.Errorf("--type applies to a single item, got %d", len(args))
	}

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	eng, err := buildEngine(ctx, store)
	if err != nil {
		return err
	}

	lines := make([]model.ReceiptLine, len(args))
	for i, item := range args {
		lines[i] = model.ReceiptLine{ItemText: item, ItemType: itemType}
	}

	results := eng.ClassifyItems(ctx, shop, lines)

	if finalize {
		items := make([]model.HistoricalItem, 0, len(results))
		for i, result := range results {
			if result.IsUncategorized() {
				continue
			}
			items = append(items, model.HistoricalItem{
				ShopName:   shop,
				ItemText:   lines[i].ItemText,
				ItemType:   lines[i].ItemType,
				TaxonomyID: result.TaxonomyID,
			})
		}
		if err := eng.FinalizeItems(ctx, items); err != nil {
			return fmt.Errorf("failed to finalize items: %w", err)
		}
	}

	if asJSON {
		out := make([]classifiedItem, len(results))
		for i, result := range results {
			out[i] = classifiedItem{
				Item:       args[i],
				TaxonomyID: result.TaxonomyID,
				Category:   result.Category,
				Confidence: result.Confidence,
				Source:     string(result.Source),
			}
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)
	}

	if len(results) == 1 {
		fmt.Println(cli.RenderResult(args[0], results[0]))
		return nil
	}

	fmt.Print(cli.RenderResultTable(args, results))
	fmt.Println(cli.RenderSummary(results))
	return nil
}
