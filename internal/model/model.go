// Package model defines the narrow contract the chatbot has with a hosted
// language model and its concrete adapters (Gemini, Groq).
//
// A call has exactly three outcomes: text, a safety block, or an error.
// Everything past that contract (failure classification, rewriting,
// logging) belongs to the caller.
package model

import "context"

// Message is one turn of conversation history. Role is "user" or "model".
type Message struct {
	Role    string
	Content string
}

// Reply is a successful transport-level result. Exactly one of Text and
// BlockReason is expected to be set; an empty Text with no BlockReason
// means the provider returned an unusable payload.
type Reply struct {
	Text        string
	BlockReason string
}

// Provider generates a model reply for the given history. The last message
// is the current user input. Errors are transport or API level failures;
// safety blocks and empty payloads are reported through Reply.
type Provider interface {
	Generate(ctx context.Context, history []Message) (Reply, error)
}
