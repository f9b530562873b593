package conversation

import (
	"context"
	"time"

	"jan-server/services/chat-api/internal/domain/identity"
)

// DefaultTitle labels a conversation before anything better is known.
const DefaultTitle = "New Chat"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message is one immutable turn. Provider and Model attribute assistant output to the backend
// that produced it.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Provider  string    `json:"provider,omitempty"`
	Model     string    `json:"model,omitempty"`
	Sequence  int       `json:"sequence"`
	CreatedAt time.Time `json:"created_at"`
}

type Conversation struct {
	ID       string          `json:"id"`
	UserID   identity.UserID `json:"-"`
	Title    string          `json:"title"`
	Provider string          `json:"provider"`
	Model    string          `json:"model"`

	// TitleLocked is set once the owner renames the conversation by hand.
	TitleLocked bool `json:"title_locked"`
	// TitleFinalized is set once a synthesized title has been stored.
	TitleFinalized bool `json:"title_finalized"`
	// Version increases on every title change.
	Version int64 `json:"version"`

	MessageCount int       `json:"message_count"`
	Messages     []Message `json:"messages,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TitleUpdate is what list views need to reconcile a title.
type TitleUpdate struct {
	ConversationID string `json:"conversation_id"`
	Title          string `json:"title"`
	Version        int64  `json:"version"`
}

// CurrentTitle returns the title update describing the stored state.
func (c *Conversation) CurrentTitle() TitleUpdate {
	return TitleUpdate{ConversationID: c.ID, Title: c.Title, Version: c.Version}
}

// AcceptsSynthesizedTitle reports whether a generated title may still replace the current one.
func (c *Conversation) AcceptsSynthesizedTitle() bool {
	return !c.TitleLocked && !c.TitleFinalized
}

type TitleSource string

const (
	TitleSourceUser        TitleSource = "user"
	TitleSourceSynthesized TitleSource = "synthesized"
)

// TitleChange asks the store to replace a title. User changes always apply and lock the title.
// Synthesized changes apply only while AcceptsSynthesizedTitle holds.
type TitleChange struct {
	Title  string
	Source TitleSource
}

// Store persists conversations. Every call is scoped to owner; a conversation that belongs to
// somebody else is reported as not found.
type Store interface {
	Create(ctx context.Context, conv *Conversation) error
	// Get returns the conversation with its messages in sequence order.
	Get(ctx context.Context, owner identity.UserID, id string) (*Conversation, error)
	// List returns the owner's conversations without messages, most recently updated first.
	List(ctx context.Context, owner identity.UserID) ([]*Conversation, error)
	// AppendMessage is idempotent on msg.ID. It reports false when the id was already stored.
	AppendMessage(ctx context.Context, owner identity.UserID, id string, msg *Message) (bool, error)
	// UpdateTitle returns the stored conversation and whether the change was applied.
	UpdateTitle(ctx context.Context, owner identity.UserID, id string, change TitleChange) (*Conversation, bool, error)
	UpdateModel(ctx context.Context, owner identity.UserID, id string, provider string, model string) error
	Delete(ctx context.Context, owner identity.UserID, id string) error
}

// ModelCatalog validates provider/model selections.
type ModelCatalog interface {
	Validate(ctx context.Context, provider, model string) error
}
