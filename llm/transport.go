// Package llm holds the model-calling transport used by the analysis invoker.
package llm

import (
	"context"
	"errors"

	"github.com/google/generative-ai-go/genai"
)

var (
	ErrEmptyResponse = errors.New("model returned empty content")
	ErrBlocked       = errors.New("model blocked the prompt")
	ErrTruncated     = errors.New("model reply was cut off")
)

// Request is one structured-generation call
type Request struct {
	// Capability is used for logging and metrics only.
	Capability string
	Prompt     string
	// Schema is the response shape the model is asked to produce.
	Schema *genai.Schema
}

// Transport sends a rendered prompt to a language model and returns the raw
// reply text. Implementations must not retry.
type Transport interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// TransportFunc adapts a function to the Transport interface
type TransportFunc func(ctx context.Context, req Request) (string, error)

// Generate calls f(ctx, req)
func (f TransportFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
