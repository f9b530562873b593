package conversationresponses

import (
	"time"

	"jan-server/services/chat-api/internal/domain/conversation"
	"jan-server/services/chat-api/internal/utils/functional"
	"jan-server/services/chat-api/internal/utils/markup"
)

type MessageResponse struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
	// ContentHTML is Content reduced to the safe markup subset, ready to render.
	ContentHTML string `json:"content_html"`
	Provider    string `json:"provider,omitempty"`
	Model       string `json:"model,omitempty"`
	Sequence    int    `json:"sequence"`
	CreatedAt   int64  `json:"created_at"`
}

type ConversationResponse struct {
	ID             string            `json:"id"`
	Object         string            `json:"object"`
	Title          string            `json:"title"`
	Provider       string            `json:"provider"`
	Model          string            `json:"model"`
	TitleLocked    bool              `json:"title_locked"`
	TitleFinalized bool              `json:"title_finalized"`
	Version        int64             `json:"version"`
	MessageCount   int               `json:"message_count"`
	Messages       []MessageResponse `json:"messages,omitempty"`
	CreatedAt      int64             `json:"created_at"`
	UpdatedAt      int64             `json:"updated_at"`
}

type ConversationListResponse struct {
	Object string                 `json:"object"`
	Data   []ConversationResponse `json:"data"`
	Total  int                    `json:"total"`
}

type DeletedConversationResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

func NewMessageResponse(msg conversation.Message) MessageResponse {
	return MessageResponse{
		ID:          msg.ID,
		Role:        string(msg.Role),
		Content:     msg.Content,
		ContentHTML: markup.Sanitize(msg.Content),
		Provider:    msg.Provider,
		Model:       msg.Model,
		Sequence:    msg.Sequence,
		CreatedAt:   unix(msg.CreatedAt),
	}
}

func NewConversationResponse(conv *conversation.Conversation) *ConversationResponse {
	return &ConversationResponse{
		ID:             conv.ID,
		Object:         "conversation",
		Title:          conv.Title,
		Provider:       conv.Provider,
		Model:          conv.Model,
		TitleLocked:    conv.TitleLocked,
		TitleFinalized: conv.TitleFinalized,
		Version:        conv.Version,
		MessageCount:   conv.MessageCount,
		Messages:       functional.Map(conv.Messages, NewMessageResponse),
		CreatedAt:      unix(conv.CreatedAt),
		UpdatedAt:      unix(conv.UpdatedAt),
	}
}

func NewConversationListResponse(convs []*conversation.Conversation) *ConversationListResponse {
	data := make([]ConversationResponse, 0, len(convs))
	for _, conv := range convs {
		data = append(data, *NewConversationResponse(conv))
	}
	return &ConversationListResponse{Object: "list", Data: data, Total: len(data)}
}

func NewDeletedConversationResponse(id string) *DeletedConversationResponse {
	return &DeletedConversationResponse{ID: id, Object: "conversation.deleted", Deleted: true}
}

// ToConversation maps a response back into the domain model for API clients.
func (r *ConversationResponse) ToConversation() *conversation.Conversation {
	return &conversation.Conversation{
		ID:             r.ID,
		Title:          r.Title,
		Provider:       r.Provider,
		Model:          r.Model,
		TitleLocked:    r.TitleLocked,
		TitleFinalized: r.TitleFinalized,
		Version:        r.Version,
		MessageCount:   r.MessageCount,
		Messages:       functional.Map(r.Messages, func(m MessageResponse) conversation.Message { return m.ToMessage() }),
		CreatedAt:      time.Unix(r.CreatedAt, 0).UTC(),
		UpdatedAt:      time.Unix(r.UpdatedAt, 0).UTC(),
	}
}

func (r MessageResponse) ToMessage() conversation.Message {
	return conversation.Message{
		ID:        r.ID,
		Role:      conversation.Role(r.Role),
		Content:   r.Content,
		Provider:  r.Provider,
		Model:     r.Model,
		Sequence:  r.Sequence,
		CreatedAt: time.Unix(r.CreatedAt, 0).UTC(),
	}
}

func unix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
