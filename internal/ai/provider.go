package ai

import "context"

// Provider sends a prompt to an LLM and returns the raw text response.
// Implementations are expected to return JSON text when asked to; any
// malformed response is the caller's problem to detect and downgrade.
type Provider interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}
