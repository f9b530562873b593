package conversationlist

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"jan-server/services/chat-api/internal/domain/conversation"
	"jan-server/services/chat-api/internal/domain/identity"
	"jan-server/services/chat-api/internal/utils/functional"
	"jan-server/services/chat-api/internal/utils/platformerrors"
)

const updateBuffer = 16

// Backend is the conversation API the list is kept in sync with.
type Backend interface {
	ListConversations(ctx context.Context, userID identity.UserID) ([]*conversation.Conversation, error)
	CreateConversation(ctx context.Context, userID identity.UserID, title, provider, model string) (*conversation.Conversation, error)
	RenameConversation(ctx context.Context, userID identity.UserID, id, title string) (*conversation.Conversation, error)
	DeleteConversation(ctx context.Context, userID identity.UserID, id string) error
}

// Entry is the list projection of a conversation. TitleGenerating is display state only.
type Entry struct {
	ID              string
	Title           string
	Provider        string
	Model           string
	Version         int64
	TitleLocked     bool
	TitleGenerating bool
	UpdatedAt       time.Time
}

func entryFrom(conv *conversation.Conversation) Entry {
	return Entry{
		ID:          conv.ID,
		Title:       conv.Title,
		Provider:    conv.Provider,
		Model:       conv.Model,
		Version:     conv.Version,
		TitleLocked: conv.TitleLocked,
		UpdatedAt:   conv.UpdatedAt,
	}
}

// Controller keeps the signed-in user's conversations, most recent first.
type Controller struct {
	backend  Backend
	updates  chan conversation.TitleUpdate
	onChange func([]Entry)
	log      zerolog.Logger

	mu      sync.Mutex
	entries []Entry
	active  string
}

// NewController returns an empty list. onChange, when set, receives a snapshot after every change.
func NewController(backend Backend, onChange func([]Entry), log zerolog.Logger) *Controller {
	return &Controller{
		backend:  backend,
		updates:  make(chan conversation.TitleUpdate, updateBuffer),
		onChange: onChange,
		log:      log.With().Str("component", "conversation-list").Logger(),
	}
}

// List replaces the local view with the user's stored conversations.
func (c *Controller) List(ctx context.Context, userID identity.UserID) ([]Entry, error) {
	convs, err := c.backend.ListConversations(ctx, userID)
	if err != nil {
		return nil, err
	}
	fresh := functional.Map(convs, entryFrom)

	c.mu.Lock()
	for i := range fresh {
		if old, ok := c.findLocked(fresh[i].ID); ok {
			fresh[i].TitleGenerating = c.entries[old].TitleGenerating
		}
	}
	c.entries = fresh
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snapshot)
	return snapshot, nil
}

// Create stores a new conversation, puts it at the head of the list and marks it active.
func (c *Controller) Create(ctx context.Context, userID identity.UserID, provider, model, placeholderTitle string) (string, error) {
	conv, err := c.backend.CreateConversation(ctx, userID, placeholderTitle, provider, model)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	if idx, ok := c.findLocked(conv.ID); ok {
		c.entries = append(c.entries[:idx], c.entries[idx+1:]...)
	}
	c.entries = append([]Entry{entryFrom(conv)}, c.entries...)
	c.active = conv.ID
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snapshot)
	return conv.ID, nil
}

// Delete removes the conversation durably and locally. It reports whether it was the active one,
// in which case the caller resets its session.
func (c *Controller) Delete(ctx context.Context, userID identity.UserID, id string) (bool, error) {
	// A conversation already gone from the store is only dropped locally.
	if err := c.backend.DeleteConversation(ctx, userID, id); err != nil && !platformerrors.IsNotFoundError(err) {
		return false, err
	}

	c.mu.Lock()
	c.entries = functional.Filter(c.entries, func(e Entry) bool { return e.ID != id })
	wasActive := c.active == id
	if wasActive {
		c.active = ""
	}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snapshot)
	return wasActive, nil
}

// Rename stores a user chosen title. The stored title is locked against synthesis.
func (c *Controller) Rename(ctx context.Context, userID identity.UserID, id, title string) error {
	conv, err := c.backend.RenameConversation(ctx, userID, id, title)
	if err != nil {
		return err
	}
	c.mu.Lock()
	if idx, ok := c.findLocked(id); ok && conv.Version >= c.entries[idx].Version {
		c.entries[idx].Title = conv.Title
		c.entries[idx].Version = conv.Version
		c.entries[idx].TitleLocked = true
		c.entries[idx].TitleGenerating = false
	}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snapshot)
	return nil
}

// ApplyTitleUpdate reconciles a title. Updates older than the entry's version are ignored, so a
// late update never regresses a newer title. It reports whether the entry changed.
func (c *Controller) ApplyTitleUpdate(update conversation.TitleUpdate) bool {
	c.mu.Lock()
	idx, ok := c.findLocked(update.ConversationID)
	if !ok || update.Version < c.entries[idx].Version {
		c.mu.Unlock()
		return false
	}
	entry := &c.entries[idx]
	changed := entry.Title != update.Title
	entry.Version = update.Version
	if changed {
		entry.Title = update.Title
		entry.TitleGenerating = true
	}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	if changed {
		c.notify(snapshot)
	}
	return changed
}

// TitleRendered clears the generating flag once the new title has been displayed.
func (c *Controller) TitleRendered(id string) {
	c.mu.Lock()
	idx, ok := c.findLocked(id)
	if !ok || !c.entries[idx].TitleGenerating {
		c.mu.Unlock()
		return
	}
	c.entries[idx].TitleGenerating = false
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snapshot)
}

// Updates is the channel session controllers publish title updates on.
func (c *Controller) Updates() chan<- conversation.TitleUpdate {
	return c.updates
}

// Run applies published title updates until ctx is done.
func (c *Controller) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case update := <-c.updates:
			if c.ApplyTitleUpdate(update) {
				c.log.Debug().Str("conversation_id", update.ConversationID).Int64("version", update.Version).Msg("title updated")
			}
		}
	}
}

func (c *Controller) SetActive(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = id
}

func (c *Controller) Active() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Entries returns a snapshot of the list.
func (c *Controller) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Entry returns the entry for id.
func (c *Controller) Entry(id string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx, ok := c.findLocked(id)
	if !ok {
		return Entry{}, false
	}
	return c.entries[idx], true
}

func (c *Controller) findLocked(id string) (int, bool) {
	for i := range c.entries {
		if c.entries[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

func (c *Controller) snapshotLocked() []Entry {
	return append([]Entry(nil), c.entries...)
}

func (c *Controller) notify(snapshot []Entry) {
	if c.onChange != nil {
		c.onChange(snapshot)
	}
}
