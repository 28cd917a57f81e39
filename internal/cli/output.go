package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/petrikoro/tally/internal/model"
)

// sourceStyle picks a style for a classification source so the origin of
// each result is visible at a glance.
func sourceStyle(source model.CandidateSource) lipgloss.Style {
	switch source {
	case model.SourceCorrection, model.SourceHistory:
		return SuccessStyle
	case model.SourceLLM:
		return InfoStyle
	case model.SourceVector:
		return WarningStyle
	default:
		return SubtleStyle
	}
}

// categoryPath joins the result's hierarchy levels for display.
func categoryPath(result model.ClassificationResult) string {
	return model.BuildFullPath(result.Category, result.SubCategoryI, result.SubCategoryII)
}

// RenderResult formats a single classification result as one line.
func RenderResult(itemName string, result model.ClassificationResult) string {
	path := categoryPath(result)
	if result.IsUncategorized() {
		return fmt.Sprintf("%s %s",
			BoldStyle.Render(itemName),
			WarningStyle.Render("→ Uncategorized"))
	}

	return fmt.Sprintf("%s → %s %s %s",
		BoldStyle.Render(itemName),
		path,
		SubtleStyle.Render(fmt.Sprintf("(%s)", result.TaxonomyID)),
		sourceStyle(result.Source).Render(fmt.Sprintf("[%s %.2f]", result.Source, result.Confidence)))
}

// RenderResultTable formats a batch of classification results as an aligned
// table. Items and results must have equal length.
func RenderResultTable(items []string, results []model.ClassificationResult) string {
	header := TableHeaderStyle.Render(
		fmt.Sprintf("%-30s %-40s %-14s %-10s %s", "ITEM", "CATEGORY", "ID", "SOURCE", "CONF"))

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")

	for i, result := range results {
		name := ""
		if i < len(items) {
			name = items[i]
		}

		path := categoryPath(result)
		row := fmt.Sprintf("%-30s %-40s %-14s %-10s %.2f",
			truncate(name, 30),
			truncate(path, 40),
			result.TaxonomyID,
			result.Source,
			result.Confidence)

		if result.IsUncategorized() {
			row = WarningStyle.Render(row)
		}
		b.WriteString(row)
		b.WriteString("\n")
	}

	return b.String()
}

// RenderSummary formats the categorized/uncategorized tally after a batch.
func RenderSummary(results []model.ClassificationResult) string {
	total := len(results)
	uncategorized := 0
	for _, r := range results {
		if r.IsUncategorized() {
			uncategorized++
		}
	}

	summary := fmt.Sprintf("%d classified, %d uncategorized", total-uncategorized, uncategorized)
	if uncategorized > 0 {
		return FormatWarning(summary)
	}
	return FormatSuccess(summary)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
