package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petrikoro/tally/internal/cli"
	"github.com/petrikoro/tally/internal/model"
)

func correctCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "correct <item> <taxonomy-id>",
		Short: "Record a category correction for an item",
		Long: `Record a human-confirmed category for a (shop, item) pair.

Corrections are the strongest classification signal: the next time the
same item appears on a receipt from the same shop, the corrected category
is used with full confidence. Recording a correction for an existing pair
overwrites the previous one.`,
		Args: cobra.ExactArgs(2),
		RunE: runCorrect,
	}

	cmd.Flags().StringP("shop", "s", "", "shop the item was bought from (required)")
	cmd.Flags().StringP("type", "t", "", "corrected item type")
	cmd.Flags().StringP("user", "u", "", "who made the correction")
	_ = cmd.MarkFlagRequired("shop")

	return cmd
}

func runCorrect(cmd *cobra.Command, args []string) error {
	shop, _ := cmd.Flags().GetString("shop")
	itemType, _ := cmd.Flags().GetString("type")
	user, _ := cmd.Flags().GetString("user")

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

	correction := &model.CorrectionRecord{
		ShopName:          shop,
		ItemText:          args[0],
		TaxonomyID:        args[1],
		CorrectedItemType: itemType,
		UserID:            user,
	}

	if err := eng.RecordCorrection(ctx, correction); err != nil {
		return fmt.Errorf("failed to record correction: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Correction saved: %q at %s → %s", args[0], shop, args[1])))
	return nil
}
