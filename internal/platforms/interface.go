package platforms

import "context"

// Platform executes a prompt against one LLM chat platform and returns the
// raw response text.
type Platform interface {
	// GetName returns the platform identifier stored on test records.
	GetName() string
	// IsEnabled reports whether the platform has credentials configured.
	IsEnabled() bool
	// Complete executes the prompt and returns the response text.
	Complete(ctx context.Context, prompt string) (string, error)
}
