// Package aiclient abstracts the generative-AI backends used for match
// adjudication. The matcher only needs a single-turn completion; everything
// provider-specific stays behind the Backend interface.
package aiclient

import "context"

// Backend performs a single-turn completion against one AI provider.
type Backend interface {
	// Name identifies the backend in logs and error messages.
	Name() string
	// Complete sends a system prompt plus one user message and returns the
	// text of the response.
	Complete(ctx context.Context, system, prompt string) (string, error)
}
