package chat

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"jan-server/services/chat-api/internal/domain/conversation"
	"jan-server/services/chat-api/internal/domain/identity"
	"jan-server/services/chat-api/internal/domain/provider"
	"jan-server/services/chat-api/internal/infrastructure/metrics"
	"jan-server/services/chat-api/internal/infrastructure/observability"
	"jan-server/services/chat-api/internal/utils/functional"
	"jan-server/services/chat-api/internal/utils/platformerrors"
)

// DefaultSystemPrompt is prepended to every chat turn.
const DefaultSystemPrompt = "You are an intelligent AI model for Atlas AI, designed to be helpful, knowledgeable, and supportive to users. " +
	"Please format all your responses using proper HTML syntax with appropriate tags like <p>, <h1>-<h6>, <ul>, <ol>, <li>, <strong>, <em>, <code>, <pre>, etc. " +
	"Make your responses well-structured and readable."

// TurnInput describes one chat turn. Messages is the full history ending with the new user
// message. Without a ConversationID the turn is streamed but not persisted.
type TurnInput struct {
	ConversationID string
	Provider       string
	Model          string
	Messages       []conversation.Message
	UserMessageID  string
}

type Config struct {
	SystemPrompt string
	Timeout      time.Duration
}

// Service runs chat turns against a completion provider and persists finished turns.
type Service struct {
	conversations *conversation.ConversationService
	completion    provider.CompletionProvider
	catalog       conversation.ModelCatalog
	config        Config
	log           zerolog.Logger
}

func NewService(conversations *conversation.ConversationService, completion provider.CompletionProvider, catalog conversation.ModelCatalog, config Config, log zerolog.Logger) *Service {
	if strings.TrimSpace(config.SystemPrompt) == "" {
		config.SystemPrompt = DefaultSystemPrompt
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Service{
		conversations: conversations,
		completion:    completion,
		catalog:       catalog,
		config:        config,
		log:           log.With().Str("component", "chat-service").Logger(),
	}
}

// StartTurn validates input, eagerly stores the user message and opens the provider stream.
// The caller drains the returned Turn and must Close it.
func (s *Service) StartTurn(ctx context.Context, userID identity.UserID, in TurnInput) (*Turn, error) {
	if err := identity.Require(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.catalog.Validate(ctx, in.Provider, in.Model); err != nil {
		return nil, err
	}
	if len(in.Messages) == 0 {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "messages cannot be empty", nil, "dd4fa61c-0ade-40c4-9046-5b786076023d")
	}
	last := in.Messages[len(in.Messages)-1]
	if last.Role != conversation.RoleUser || strings.TrimSpace(last.Content) == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "last message must be a non-empty user message", nil, "60f426c2-cb31-4621-972d-0d37ea7fa93d")
	}
	for _, msg := range in.Messages {
		if !msg.Role.Valid() || msg.Role == conversation.RoleSystem {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "messages may only contain user and assistant turns", nil, "94f1977c-2fb8-4e6f-b9a0-a72843a1046e")
		}
	}

	turnCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	turnCtx, span := observability.StartSpan(turnCtx, "chat.turn")
	observability.AddSpanAttributes(turnCtx,
		attribute.String("conversation.id", in.ConversationID),
		attribute.String("llm.provider", in.Provider),
		attribute.String("llm.model", in.Model),
		attribute.Int("chat.history_length", len(in.Messages)),
	)

	turn := &Turn{
		ctx:            turnCtx,
		cancel:         cancel,
		span:           span,
		service:        s,
		userID:         userID,
		conversationID: in.ConversationID,
		provider:       in.Provider,
		model:          in.Model,
		started:        time.Now(),
	}

	if in.ConversationID != "" {
		conv, err := s.conversations.GetConversation(turnCtx, userID, in.ConversationID)
		if err != nil {
			turn.abort(err)
			return nil, err
		}
		if err := s.conversations.SelectModel(turnCtx, userID, conv, in.Provider, in.Model); err != nil {
			turn.abort(err)
			return nil, err
		}
		userMsg := &conversation.Message{ID: in.UserMessageID, Role: conversation.RoleUser, Content: last.Content}
		if _, err := s.conversations.AppendMessage(turnCtx, userID, in.ConversationID, userMsg); err != nil {
			turn.abort(err)
			return nil, err
		}
		metrics.RecordMessagePersisted(string(conversation.RoleUser))
		turn.userMessage = userMsg
	}

	prompt := make([]provider.Message, 0, len(in.Messages)+1)
	prompt = append(prompt, provider.Message{Role: provider.RoleSystem, Content: s.config.SystemPrompt})
	prompt = append(prompt, functional.Map(in.Messages, func(m conversation.Message) provider.Message {
		return provider.Message{Role: string(m.Role), Content: m.Content}
	})...)

	stream, err := s.completion.Stream(turnCtx, provider.Request{
		Provider: in.Provider,
		Model:    in.Model,
		Messages: prompt,
	})
	if err != nil {
		upstream := upstreamError(turnCtx, in.Provider, err)
		turn.abort(upstream)
		return nil, upstream
	}
	turn.stream = stream
	metrics.IncrementActiveStreams(in.Model)
	return turn, nil
}

func upstreamError(ctx context.Context, providerKey string, err error) error {
	if platformerrors.IsValidationError(err) {
		return err
	}
	errorType := "upstream"
	if ctx.Err() != nil {
		errorType = "timeout"
	}
	metrics.RecordProviderError(providerKey, errorType)
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, "completion provider failed", err, "b3629be3-883a-422a-96ab-19b106c8bee3")
}
