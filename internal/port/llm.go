package port

import "context"

// LLM represents the external text-generation backend.
type LLM interface {
	// Generate produces an answer for the prompt. The caller owns the
	// deadline via ctx; the backend's own timeouts are not relied on.
	Generate(ctx context.Context, prompt string) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
