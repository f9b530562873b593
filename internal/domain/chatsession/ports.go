package chatsession

import (
	"context"

	"jan-server/services/chat-api/internal/domain/conversation"
	"jan-server/services/chat-api/internal/domain/identity"
)

// TurnRequest is one chat turn sent to the backend. Messages ends with the new user message.
type TurnRequest struct {
	ConversationID string
	Provider       string
	Model          string
	Messages       []conversation.Message
	UserMessageID  string
}

// TurnStream delivers one assistant response. After Next returns false, Err reports an
// upstream failure or Message returns the stored assistant message.
type TurnStream interface {
	Next() bool
	Content() string
	Err() error
	Message() *conversation.Message
	Close() error
}

// Creator creates conversations. The conversation list controller implements it so new
// conversations show up in the list immediately.
type Creator interface {
	Create(ctx context.Context, userID identity.UserID, provider, model, placeholderTitle string) (string, error)
}

// Backend is the server side of a session.
type Backend interface {
	LoadConversation(ctx context.Context, userID identity.UserID, id string) (*conversation.Conversation, error)
	StreamTurn(ctx context.Context, userID identity.UserID, req TurnRequest) (TurnStream, error)
	SynthesizeTitle(ctx context.Context, userID identity.UserID, conversationID string, messages []conversation.Message) (conversation.TitleUpdate, error)
	// StoreTitle persists a title computed on the client unless the conversation already has one.
	StoreTitle(ctx context.Context, userID identity.UserID, conversationID, title string) (conversation.TitleUpdate, error)
}

// Hooks observe the controller. They run while the controller lock is held and must not call
// back into the controller.
type Hooks struct {
	OnState    func(State)
	OnFragment func(conversationID, fragment string)
}
