package provider

import "context"

// Role values understood by every backend.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of the prompt sent to a provider.
type Message struct {
	Role    string
	Content string
}

// Request selects a provider/model and carries the prompt.
type Request struct {
	Provider    string
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature *float32
}

// Stream yields completion fragments in delivery order. Next returns false once the stream is
// exhausted; Err distinguishes a clean finish from an upstream failure.
type Stream interface {
	Next() bool
	Content() string
	Err() error
	Close() error
}

// CompletionProvider produces completions from an LLM backend.
type CompletionProvider interface {
	Stream(ctx context.Context, req Request) (Stream, error)
	Complete(ctx context.Context, req Request) (string, error)
}
