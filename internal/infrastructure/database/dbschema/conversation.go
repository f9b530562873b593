package dbschema

import (
	"time"

	"gorm.io/datatypes"

	"jan-server/services/chat-api/internal/domain/conversation"
	"jan-server/services/chat-api/internal/domain/identity"
)

// MetadataTitleSource records which writer set the stored title.
const MetadataTitleSource = "title_source"

// Conversation represents the database schema for conversations
type Conversation struct {
	ID             string            `gorm:"type:varchar(50);primaryKey"`
	UserID         string            `gorm:"type:varchar(255);index:idx_conversations_user_updated_at;not null"`
	Title          string            `gorm:"type:varchar(256);not null"`
	Provider       string            `gorm:"type:varchar(50);not null"`
	Model          string            `gorm:"type:varchar(100);not null"`
	TitleLocked    bool              `gorm:"not null;default:false"`
	TitleFinalized bool              `gorm:"not null;default:false"`
	Version        int64             `gorm:"not null;default:0"`
	MessageCount   int               `gorm:"not null;default:0"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt      time.Time         `gorm:"not null"`
	UpdatedAt      time.Time         `gorm:"index:idx_conversations_user_updated_at;not null"`
}

// Message represents one stored chat message. Message ids are unique per conversation.
type Message struct {
	ConversationID string    `gorm:"type:varchar(50);primaryKey;uniqueIndex:uq_messages_conversation_sequence;not null"`
	ID             string    `gorm:"type:varchar(50);primaryKey"`
	Role           string    `gorm:"type:varchar(20);not null"`
	Content        string    `gorm:"type:text;not null"`
	Provider       string    `gorm:"type:varchar(50)"`
	Model          string    `gorm:"type:varchar(100)"`
	Sequence       int       `gorm:"uniqueIndex:uq_messages_conversation_sequence;not null"`
	CreatedAt      time.Time `gorm:"not null"`
}

func NewSchemaConversation(c *conversation.Conversation) *Conversation {
	return &Conversation{
		ID:             c.ID,
		UserID:         string(c.UserID),
		Title:          c.Title,
		Provider:       c.Provider,
		Model:          c.Model,
		TitleLocked:    c.TitleLocked,
		TitleFinalized: c.TitleFinalized,
		Version:        c.Version,
		MessageCount:   c.MessageCount,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

// EtoD converts the row to the domain type without messages.
func (c *Conversation) EtoD() *conversation.Conversation {
	return &conversation.Conversation{
		ID:             c.ID,
		UserID:         identity.UserID(c.UserID),
		Title:          c.Title,
		Provider:       c.Provider,
		Model:          c.Model,
		TitleLocked:    c.TitleLocked,
		TitleFinalized: c.TitleFinalized,
		Version:        c.Version,
		MessageCount:   c.MessageCount,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

// TitleSource returns the recorded title writer, empty for the creation placeholder.
func (c *Conversation) TitleSource() conversation.TitleSource {
	if c.Metadata == nil {
		return ""
	}
	source, _ := c.Metadata[MetadataTitleSource].(string)
	return conversation.TitleSource(source)
}

func NewSchemaMessage(conversationID string, m *conversation.Message) *Message {
	return &Message{
		ID:             m.ID,
		ConversationID: conversationID,
		Role:           string(m.Role),
		Content:        m.Content,
		Provider:       m.Provider,
		Model:          m.Model,
		Sequence:       m.Sequence,
		CreatedAt:      m.CreatedAt,
	}
}

func (m *Message) EtoD() conversation.Message {
	return conversation.Message{
		ID:        m.ID,
		Role:      conversation.Role(m.Role),
		Content:   m.Content,
		Provider:  m.Provider,
		Model:     m.Model,
		Sequence:  m.Sequence,
		CreatedAt: m.CreatedAt,
	}
}
