package llm

import (
	"context"
	"strings"
	"time"
)

// Client defines the interface for LLM providers.
type Client interface {
	// Choose asks the model to pick one candidate taxonomy ID for the
	// prompt, or "NONE" when nothing fits.
	Choose(ctx context.Context, prompt string) (ChoiceResponse, error)
}

// ChoiceResponse is the model's structured answer to a candidate prompt.
type ChoiceResponse struct {
	// ChosenID is a taxonomy ID from the candidate list, or "NONE".
	ChosenID string `json:"chosen_id"`

	// Reasoning is a brief explanation of the pick. Logged, never stored.
	Reasoning string `json:"reasoning"`
}

// Config holds configuration for LLM clients.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	MaxRetries  int
	RetryDelay  time.Duration
	RateLimit   int
	Temperature float64
	MaxTokens   int
}

// cleanMarkdownWrapper strips a surrounding markdown code fence, which some
// models add despite instructions not to.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}
