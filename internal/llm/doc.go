// Package llm provides language model clients used to arbitrate between
// taxonomy candidates. It supports OpenAI and Anthropic providers with retry
// logic and rate limiting.
package llm
