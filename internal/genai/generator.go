// Package genai provides the Generator capability: turning structured
// prompts into structured text through a generative-text backend.
// Two interchangeable backends exist, the direct Anthropic API and an
// AWS Bedrock variant, selected by configuration at startup.
package genai

import "context"

// GenerateRequest is one structured prompt for the backend.
type GenerateRequest struct {
	// System is the system prompt.
	System string
	// User is the user prompt.
	User string
	// MaxTokens caps the generation length.
	MaxTokens int
	// Temperature is the sampling temperature.
	Temperature float64
}

// Generator turns a structured prompt into text. Implementations wrap
// network I/O, are stateless between calls, and are the unit of
// retry: a Generate error classifies via the fault package.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}
