// Package llm defines the interface for generating a conversational reply.
package llm

import "context"

// FallbackReply is substituted when the model returns no usable text.
const FallbackReply = "Sorry, I couldn't generate a response."

// Reply is the result of one generation call. Text is never empty:
// when the model produced nothing, Text is FallbackReply and Fallback is true.
type Reply struct {
	Text     string
	Fallback bool
}

// Fallback is the substituted reply.
var Fallback = Reply{Text: FallbackReply, Fallback: true}

// Generator produces a short reply to the user's words.
type Generator interface {
	// Name returns the backend identifier (e.g., "gemini").
	Name() string

	// Generate answers userText in the register described by systemStyle.
	// An empty systemStyle selects the backend's configured default.
	Generate(ctx context.Context, userText, systemStyle string) (Reply, error)
}
