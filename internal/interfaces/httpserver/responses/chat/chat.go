package chatresponses

import (
	"jan-server/services/chat-api/internal/domain/provider"
	conversationresponses "jan-server/services/chat-api/internal/interfaces/httpserver/responses/conversation"
)

// Stream event types written on the chat SSE stream.
const (
	EventDelta = "delta"
	EventDone  = "done"
	EventError = "error"

	// DoneSentinel terminates every chat stream.
	DoneSentinel = "[DONE]"
)

// StreamEvent is one `data:` payload of the chat stream.
type StreamEvent struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	// HTML is the sanitized rendering of all content streamed so far, present on delta events.
	HTML    string                                 `json:"html,omitempty"`
	Message *conversationresponses.MessageResponse `json:"message,omitempty"`
	// UserMessage is the stored user turn, present on done events of persisted turns.
	UserMessage *conversationresponses.MessageResponse `json:"user_message,omitempty"`
	Error       *StreamError                           `json:"error,omitempty"`
}

type StreamError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type TitleResponse struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Title          string `json:"title"`
	Version        int64  `json:"version"`
}

type ProviderListResponse struct {
	Object          string             `json:"object"`
	DefaultProvider string             `json:"default_provider"`
	DefaultModel    string             `json:"default_model"`
	Data            []ProviderResponse `json:"data"`
}

type ProviderResponse struct {
	Key        string           `json:"key"`
	Name       string           `json:"name"`
	Configured bool             `json:"configured"`
	Models     []provider.Model `json:"models"`
}
