package chatsession

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"jan-server/services/chat-api/internal/domain/conversation"
	"jan-server/services/chat-api/internal/domain/identity"
	"jan-server/services/chat-api/internal/domain/title"
	"jan-server/services/chat-api/internal/utils/idgen"
	"jan-server/services/chat-api/internal/utils/platformerrors"
	"jan-server/services/chat-api/internal/utils/stringutils"
)

var (
	// ErrBusy rejects input while a conversation is being created or loaded, or a response is streaming.
	ErrBusy = errors.New("a turn is already in progress")
	// ErrSuperseded is returned by a call whose result was discarded because the session
	// switched conversations while it ran.
	ErrSuperseded = errors.New("session moved to another conversation")
)

const (
	placeholderTitleLength = 50
	defaultTitleTimeout    = 10 * time.Second
)

type Config struct {
	Provider     string
	Model        string
	TitleTimeout time.Duration
}

// Controller owns one active conversation view. Every asynchronous result carries the generation
// it was started under and is dropped once the generation has moved on.
type Controller struct {
	creator Creator
	backend Backend
	updates chan<- conversation.TitleUpdate
	hooks   Hooks
	config  Config
	log     zerolog.Logger

	mu             sync.Mutex
	state          State
	generation     uint64
	cancel         context.CancelFunc
	conversationID string
	provider       string
	model          string
	messages       []conversation.Message
	pending        strings.Builder
	truncated      string
	draft          string
	draftMessageID string
	titleFinalized bool
	titleVersion   int64

	titles sync.WaitGroup
}

// NewController returns a controller in the Empty state. Title updates are published on updates.
func NewController(creator Creator, backend Backend, updates chan<- conversation.TitleUpdate, config Config, hooks Hooks, log zerolog.Logger) *Controller {
	if config.TitleTimeout <= 0 {
		config.TitleTimeout = defaultTitleTimeout
	}
	return &Controller{
		creator:  creator,
		backend:  backend,
		updates:  updates,
		hooks:    hooks,
		config:   config,
		log:      log.With().Str("component", "chat-session").Logger(),
		provider: config.Provider,
		model:    config.Model,
	}
}

// Submit sends text as the next user turn and blocks until the response has finished streaming.
// On failure the text stays available through Draft for a retry.
func (c *Controller) Submit(ctx context.Context, userID identity.UserID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return platformerrors.NewError(ctx, platformerrors.LayerClient, platformerrors.ErrorTypeValidation, "message cannot be empty", nil, "c047f4e4-881f-4784-9d5d-a25465f07576")
	}
	if err := identity.Require(ctx, userID); err != nil {
		return err
	}

	c.mu.Lock()
	if c.state.Busy() {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.draft != text {
		c.draftMessageID = ""
	}
	c.draft = text
	gen := c.generation

	if c.state == StateEmpty {
		providerKey, model := c.provider, c.model
		c.setState(StateCreating)
		c.mu.Unlock()

		id, err := c.creator.Create(ctx, userID, providerKey, model, stringutils.PreviewText(text, placeholderTitleLength))

		c.mu.Lock()
		if gen != c.generation {
			c.mu.Unlock()
			return ErrSuperseded
		}
		if err != nil {
			c.setState(StateEmpty)
			c.mu.Unlock()
			return err
		}
		c.conversationID = id
		c.messages = nil
		c.titleFinalized = false
		c.titleVersion = 0
	}

	if c.draftMessageID == "" {
		msgID, err := idgen.NewMessageID()
		if err != nil {
			c.setState(StateIdle)
			c.mu.Unlock()
			return platformerrors.NewError(ctx, platformerrors.LayerClient, platformerrors.ErrorTypeInternal, "failed to generate message ID", err, "dffd4de8-d9b2-4ab1-aaf8-8b8501b47a71")
		}
		c.draftMessageID = msgID
	}
	// A failed attempt may already have stored this message; it is then part of the history.
	if n := len(c.messages); n == 0 || c.messages[n-1].ID != c.draftMessageID {
		c.messages = append(c.messages, conversation.Message{ID: c.draftMessageID, Role: conversation.RoleUser, Content: text, CreatedAt: time.Now().UTC()})
	}
	userMsg := c.messages[len(c.messages)-1]
	history := append([]conversation.Message(nil), c.messages...)
	c.pending.Reset()
	c.truncated = ""

	streamCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	req := TurnRequest{
		ConversationID: c.conversationID,
		Provider:       c.provider,
		Model:          c.model,
		Messages:       history,
		UserMessageID:  userMsg.ID,
	}
	c.setState(StateStreaming)
	c.mu.Unlock()
	defer cancel()

	stream, err := c.backend.StreamTurn(streamCtx, userID, req)
	if err != nil {
		return c.failTurn(ctx, userID, gen, err)
	}
	defer stream.Close()

	for stream.Next() {
		fragment := stream.Content()
		c.mu.Lock()
		if gen != c.generation {
			c.mu.Unlock()
			return ErrSuperseded
		}
		c.pending.WriteString(fragment)
		if c.hooks.OnFragment != nil {
			c.hooks.OnFragment(req.ConversationID, fragment)
		}
		c.mu.Unlock()
	}
	if err := stream.Err(); err != nil {
		return c.failTurn(ctx, userID, gen, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return ErrSuperseded
	}

	assistant := stream.Message()
	if assistant == nil {
		assistant = &conversation.Message{
			Role:     conversation.RoleAssistant,
			Content:  c.pending.String(),
			Provider: req.Provider,
			Model:    req.Model,
		}
	}
	c.messages = append(c.messages, *assistant)
	c.pending.Reset()
	c.draft = ""
	c.draftMessageID = ""
	c.cancel = nil
	c.setState(StateIdle)

	if !c.titleFinalized {
		c.titleFinalized = true
		c.startTitleSynthesis(ctx, userID, req.ConversationID, append([]conversation.Message(nil), c.messages...))
	}
	return nil
}

// failTurn keeps the draft and the partial response visible, reconciles the messages with the
// store and returns to a ready state.
func (c *Controller) failTurn(ctx context.Context, userID identity.UserID, gen uint64, err error) error {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return ErrSuperseded
	}
	c.truncated = c.pending.String()
	c.pending.Reset()
	c.cancel = nil
	conversationID := c.conversationID
	c.mu.Unlock()

	// The user message may have been stored before the response failed.
	conv, loadErr := c.backend.LoadConversation(ctx, userID, conversationID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return ErrSuperseded
	}
	if loadErr == nil {
		c.messages = append([]conversation.Message(nil), conv.Messages...)
	} else {
		c.log.Debug().Err(loadErr).Str("conversation_id", conversationID).Msg("could not reload conversation after failed turn")
		if n := len(c.messages); n > 0 && c.messages[n-1].ID == c.draftMessageID {
			c.messages = c.messages[:n-1]
		}
	}
	c.setState(StateIdle)
	return err
}

func (c *Controller) startTitleSynthesis(ctx context.Context, userID identity.UserID, conversationID string, messages []conversation.Message) {
	knownVersion := c.titleVersion
	c.titles.Add(1)
	go func() {
		defer c.titles.Done()

		titleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.TitleTimeout)
		defer cancel()

		update, err := c.backend.SynthesizeTitle(titleCtx, userID, conversationID, messages)
		if err != nil {
			c.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("title synthesis failed, using fallback")
			fallback := title.Fallback(messages)
			update, err = c.backend.StoreTitle(titleCtx, userID, conversationID, fallback)
			if err != nil {
				c.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("fallback title not stored")
				update = conversation.TitleUpdate{Title: fallback, Version: knownVersion}
			}
		}
		update.ConversationID = conversationID

		c.mu.Lock()
		if c.conversationID == conversationID && update.Version > c.titleVersion {
			c.titleVersion = update.Version
		}
		c.mu.Unlock()

		if c.updates == nil {
			return
		}
		select {
		case c.updates <- update:
		case <-titleCtx.Done():
			c.log.Warn().Str("conversation_id", conversationID).Msg("title update dropped, no listener")
		}
	}()
}

// Switch abandons any in-flight turn and loads conversation id.
func (c *Controller) Switch(ctx context.Context, userID identity.UserID, id string) error {
	c.mu.Lock()
	gen := c.abandonLocked()
	c.setState(StateLoading)
	c.mu.Unlock()

	conv, err := c.backend.LoadConversation(ctx, userID, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return ErrSuperseded
	}
	if err != nil {
		c.clearLocked()
		return err
	}
	c.conversationID = conv.ID
	c.provider = conv.Provider
	c.model = conv.Model
	c.messages = append([]conversation.Message(nil), conv.Messages...)
	c.titleFinalized = len(conv.Messages) >= 1 || !conv.AcceptsSynthesizedTitle()
	c.titleVersion = conv.Version
	c.setState(StateIdle)
	return nil
}

// Reset abandons any in-flight turn and returns to Empty.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abandonLocked()
	c.clearLocked()
}

// OnConversationDeleted resets the session when id is the active conversation. It reports
// whether a reset happened.
func (c *Controller) OnConversationDeleted(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id == "" || id != c.conversationID {
		return false
	}
	c.abandonLocked()
	c.clearLocked()
	return true
}

// SetModel selects the provider/model used for the next turn.
func (c *Controller) SetModel(providerKey, model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.provider = providerKey
	c.model = model
}

// Wait blocks until every title synthesis started by the controller has published its result.
func (c *Controller) Wait() {
	c.titles.Wait()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) ConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conversationID
}

// Messages returns a copy of the confirmed messages of the active conversation.
func (c *Controller) Messages() []conversation.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]conversation.Message(nil), c.messages...)
}

// Pending returns the assistant text streamed so far for the in-flight turn.
func (c *Controller) Pending() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending.String()
}

// Truncated returns the partial response of the last failed turn.
func (c *Controller) Truncated() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.truncated
}

// Draft returns input that has not been confirmed as sent.
func (c *Controller) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

func (c *Controller) TitleFinalized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.titleFinalized
}

func (c *Controller) Model() (string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.provider, c.model
}

func (c *Controller) abandonLocked() uint64 {
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.pending.Reset()
	return c.generation
}

func (c *Controller) clearLocked() {
	c.conversationID = ""
	c.messages = nil
	c.truncated = ""
	c.draft = ""
	c.draftMessageID = ""
	c.titleFinalized = false
	c.titleVersion = 0
	c.provider = c.config.Provider
	c.model = c.config.Model
	c.setState(StateEmpty)
}

func (c *Controller) setState(s State) {
	if c.state == s {
		return
	}
	c.state = s
	if c.hooks.OnState != nil {
		c.hooks.OnState(s)
	}
}
