// Package localbackend connects the session and list controllers directly to the domain
// services, without HTTP in between. The terminal client uses it in --local mode.
package localbackend

import (
	"context"

	"jan-server/services/chat-api/internal/domain/chat"
	"jan-server/services/chat-api/internal/domain/chatsession"
	"jan-server/services/chat-api/internal/domain/conversation"
	"jan-server/services/chat-api/internal/domain/identity"
	"jan-server/services/chat-api/internal/domain/title"
)

// Backend implements chatsession.Backend and conversationlist.Backend.
type Backend struct {
	conversations *conversation.ConversationService
	chat          *chat.Service
	titles        *title.Service
}

func New(conversations *conversation.ConversationService, chatService *chat.Service, titles *title.Service) *Backend {
	return &Backend{conversations: conversations, chat: chatService, titles: titles}
}

func (b *Backend) LoadConversation(ctx context.Context, userID identity.UserID, id string) (*conversation.Conversation, error) {
	return b.conversations.GetConversation(ctx, userID, id)
}

func (b *Backend) StreamTurn(ctx context.Context, userID identity.UserID, req chatsession.TurnRequest) (chatsession.TurnStream, error) {
	turn, err := b.chat.StartTurn(ctx, userID, chat.TurnInput{
		ConversationID: req.ConversationID,
		Provider:       req.Provider,
		Model:          req.Model,
		Messages:       req.Messages,
		UserMessageID:  req.UserMessageID,
	})
	if err != nil {
		return nil, err
	}
	return turn, nil
}

func (b *Backend) SynthesizeTitle(ctx context.Context, userID identity.UserID, conversationID string, messages []conversation.Message) (conversation.TitleUpdate, error) {
	return b.titles.Generate(ctx, userID, conversationID, messages)
}

func (b *Backend) StoreTitle(ctx context.Context, userID identity.UserID, conversationID, title string) (conversation.TitleUpdate, error) {
	return b.titles.Store(ctx, userID, conversationID, title)
}

func (b *Backend) ListConversations(ctx context.Context, userID identity.UserID) ([]*conversation.Conversation, error) {
	return b.conversations.ListConversations(ctx, userID)
}

func (b *Backend) CreateConversation(ctx context.Context, userID identity.UserID, title, provider, model string) (*conversation.Conversation, error) {
	return b.conversations.CreateConversation(ctx, userID, title, provider, model)
}

func (b *Backend) RenameConversation(ctx context.Context, userID identity.UserID, id, title string) (*conversation.Conversation, error) {
	return b.conversations.RenameConversation(ctx, userID, id, title)
}

func (b *Backend) DeleteConversation(ctx context.Context, userID identity.UserID, id string) error {
	return b.conversations.DeleteConversation(ctx, userID, id)
}
