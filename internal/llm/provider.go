// Package llm defines the text-generation provider contract and its
// Gemini implementation.
package llm

import (
	"context"
	"errors"
)

var (
	// ErrProvider wraps every failed provider call.
	ErrProvider = errors.New("provider call failed")
	// ErrEmptyResponse is returned when the provider answered with no text.
	ErrEmptyResponse = errors.New("provider returned no text")
)

// Provider generates text from a system instruction and a user prompt.
type Provider interface {
	Generate(ctx context.Context, systemInstruction, userPrompt string) (string, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, systemInstruction, userPrompt string) (string, error)

// Generate calls f.
func (f ProviderFunc) Generate(ctx context.Context, systemInstruction, userPrompt string) (string, error) {
	return f(ctx, systemInstruction, userPrompt)
}
