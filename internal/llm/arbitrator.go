package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/petrikoro/tally/internal/common"
	"github.com/petrikoro/tally/internal/service"
)

// NoneID is the sentinel the model returns when no candidate fits.
const NoneID = "NONE"

// PromptCandidate is one taxonomy option presented to the model.
type PromptCandidate struct {
	ID   string
	Path string
}

// IDValidator checks whether a taxonomy ID exists. The model occasionally
// invents IDs; picks that fail validation are discarded.
type IDValidator interface {
	TaxonomyIDExists(ctx context.Context, id string) (bool, error)
}

// Arbitrator asks an LLM to pick the best taxonomy candidate for a receipt
// item. A nil client means arbitration is disabled and every call reports
// no pick.
type Arbitrator struct {
	client      Client
	validator   IDValidator
	logger      *slog.Logger
	rateLimiter *rateLimiter
	retryOpts   service.RetryOptions
}

// NewArbitrator creates an arbitrator around the given client. The client
// may be nil to disable LLM arbitration.
func NewArbitrator(client Client, validator IDValidator, cfg Config, logger *slog.Logger) *Arbitrator {
	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	a := &Arbitrator{
		client:    client,
		validator: validator,
		logger:    logger,
		retryOpts: retryOpts,
	}
	if client != nil {
		a.rateLimiter = newRateLimiter(cfg.RateLimit)
	}
	return a
}

// Enabled reports whether an LLM client is configured.
func (a *Arbitrator) Enabled() bool {
	return a != nil && a.client != nil
}

// Arbitrate presents the candidates to the model and returns the chosen
// taxonomy ID. It returns "" when the model answers NONE, picks an ID that
// does not exist, or arbitration is disabled.
func (a *Arbitrator) Arbitrate(ctx context.Context, itemName, itemType string, candidates []PromptCandidate) (string, error) {
	if !a.Enabled() {
		return "", nil
	}
	if len(candidates) == 0 {
		return "", nil
	}

	if err := a.rateLimiter.wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit error: %w", err)
	}

	prompt := buildChoicePrompt(itemName, itemType, candidates)

	var choice ChoiceResponse
	err := common.WithRetry(ctx, func() error {
		resp, err := a.client.Choose(ctx, prompt)
		if err != nil {
			a.logger.Warn("arbitration attempt failed",
				"error", err,
				"item", itemName)
			return &common.RetryableError{Err: err, Retryable: true}
		}
		choice = resp
		return nil
	}, a.retryOpts)
	if err != nil {
		return "", fmt.Errorf("arbitration failed: %w", err)
	}

	chosenID := strings.TrimSpace(choice.ChosenID)
	a.logger.Debug("arbitration choice",
		"item", itemName,
		"chosen_id", chosenID,
		"reasoning", choice.Reasoning)

	if chosenID == NoneID {
		return "", nil
	}

	exists, err := a.validator.TaxonomyIDExists(ctx, chosenID)
	if err != nil {
		return "", fmt.Errorf("validating chosen taxonomy ID: %w", err)
	}
	if !exists {
		a.logger.Warn("model returned invalid taxonomy ID",
			"item", itemName,
			"chosen_id", chosenID)
		return "", nil
	}

	return chosenID, nil
}

// buildChoicePrompt formats the candidate-selection prompt.
func buildChoicePrompt(itemName, itemType string, candidates []PromptCandidate) string {
	var b strings.Builder
	b.WriteString("You are an expert at classifying receipt items into a specific taxonomy.\n")
	b.WriteString("Given an item name, its generic type, and a list of potential categories from our taxonomy, select the most appropriate category ID.\n\n")
	fmt.Fprintf(&b, "Item: %q\n", itemName)
	fmt.Fprintf(&b, "Type: %q\n\n", itemType)
	b.WriteString("Candidates:\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "- ID: %s | Path: %s\n", c.ID, c.Path)
	}
	b.WriteString("\nInstructions:\n")
	b.WriteString("1. Select the ID of the category that best fits the item.\n")
	b.WriteString("2. If none of the categories are a good fit, return \"NONE\".\n")
	b.WriteString("3. Return a JSON object with \"chosen_id\" and a brief \"reasoning\".\n")
	return b.String()
}
