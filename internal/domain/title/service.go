package title

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"jan-server/services/chat-api/internal/domain/conversation"
	"jan-server/services/chat-api/internal/domain/identity"
	"jan-server/services/chat-api/internal/infrastructure/metrics"
	"jan-server/services/chat-api/internal/infrastructure/observability"
	"jan-server/services/chat-api/internal/utils/platformerrors"
)

// ErrLockHeld is returned by a Locker when another worker owns the key.
var ErrLockHeld = errors.New("lock held by another worker")

// Locker serializes title generation per conversation across server instances.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// Conversations is the part of the conversation service titles need.
type Conversations interface {
	GetConversation(ctx context.Context, userID identity.UserID, id string) (*conversation.Conversation, error)
	ApplySynthesizedTitle(ctx context.Context, userID identity.UserID, id, title string) (*conversation.Conversation, bool, error)
}

type Service struct {
	synthesizer   *Synthesizer
	conversations Conversations
	locker        Locker
	timeout       time.Duration
	log           zerolog.Logger
}

func NewService(synthesizer *Synthesizer, conversations Conversations, locker Locker, timeout time.Duration, log zerolog.Logger) *Service {
	return &Service{
		synthesizer:   synthesizer,
		conversations: conversations,
		locker:        locker,
		timeout:       timeout,
		log:           log.With().Str("component", "title-service").Logger(),
	}
}

// Generate synthesizes a title from messages. With a conversation id the result is stored unless
// the conversation already has a locked or finalized title, in which case the stored title is
// returned without calling the model. Without an id the title is only computed.
func (s *Service) Generate(ctx context.Context, userID identity.UserID, conversationID string, messages []conversation.Message) (conversation.TitleUpdate, error) {
	ctx, span := observability.StartSpan(ctx, "title.generate")
	defer span.End()
	observability.AddSpanAttributes(ctx, attribute.String("conversation.id", conversationID))

	if err := identity.Require(ctx, userID); err != nil {
		return conversation.TitleUpdate{}, err
	}

	if conversationID == "" {
		if len(messages) == 0 {
			return conversation.TitleUpdate{}, errNoMessages(ctx)
		}
		return conversation.TitleUpdate{Title: s.synthesize(ctx, messages)}, nil
	}

	conv, err := s.conversations.GetConversation(ctx, userID, conversationID)
	if err != nil {
		return conversation.TitleUpdate{}, err
	}
	if !conv.AcceptsSynthesizedTitle() {
		metrics.RecordTitleGeneration("skipped")
		return conv.CurrentTitle(), nil
	}
	if len(messages) == 0 {
		messages = conv.Messages
	}
	if len(messages) == 0 {
		return conversation.TitleUpdate{}, errNoMessages(ctx)
	}

	release, err := s.locker.Acquire(ctx, "title:"+conversationID, s.timeout+5*time.Second)
	switch {
	case errors.Is(err, ErrLockHeld):
		metrics.RecordTitleGeneration("skipped")
		return conv.CurrentTitle(), nil
	case err != nil:
		// The conditional store update still keeps a single synthesized title.
		s.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("title lock unavailable")
		release = func() {}
	}
	defer release()

	// Another worker may have finished between the read above and the lock.
	conv, err = s.conversations.GetConversation(ctx, userID, conversationID)
	if err != nil {
		return conversation.TitleUpdate{}, err
	}
	if !conv.AcceptsSynthesizedTitle() {
		metrics.RecordTitleGeneration("skipped")
		return conv.CurrentTitle(), nil
	}

	generated := s.synthesize(ctx, messages)
	stored, applied, err := s.conversations.ApplySynthesizedTitle(ctx, userID, conversationID, generated)
	if err != nil {
		metrics.RecordTitleGeneration("unsaved")
		s.log.Warn().Err(err).Str("conversation_id", conversationID).Msg("failed to store title")
		return conversation.TitleUpdate{ConversationID: conversationID, Title: generated, Version: conv.Version}, nil
	}
	if applied {
		metrics.RecordTitleGeneration("applied")
	} else {
		metrics.RecordTitleGeneration("skipped")
	}

	s.log.Debug().
		Str("conversation_id", conversationID).
		Bool("applied", applied).
		Int64("version", stored.Version).
		Msg("title generated")
	return stored.CurrentTitle(), nil
}

// Store persists a title computed by the caller, such as a client side fallback. It follows the
// synthesized title rules: a locked or finalized title is kept and returned instead.
func (s *Service) Store(ctx context.Context, userID identity.UserID, conversationID, text string) (conversation.TitleUpdate, error) {
	if err := identity.Require(ctx, userID); err != nil {
		return conversation.TitleUpdate{}, err
	}
	text = strings.TrimSpace(text)
	if conversationID == "" || text == "" {
		return conversation.TitleUpdate{}, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "conversation id and title are required", nil, "56eaf28b-0dca-4728-a50c-87c58d387886")
	}

	stored, applied, err := s.conversations.ApplySynthesizedTitle(ctx, userID, conversationID, text)
	if err != nil {
		return conversation.TitleUpdate{}, err
	}
	if applied {
		metrics.RecordTitleGeneration("stored")
	} else {
		metrics.RecordTitleGeneration("skipped")
	}
	return stored.CurrentTitle(), nil
}

func (s *Service) synthesize(ctx context.Context, messages []conversation.Message) string {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.synthesizer.Synthesize(ctx, messages)
}

func errNoMessages(ctx context.Context) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "no messages provided", nil, "5b6b1d6b-c86a-43df-b403-ce1dab33d40b")
}
