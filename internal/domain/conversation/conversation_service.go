package conversation

import (
	"context"
	"strings"
	"time"

	"jan-server/services/chat-api/internal/domain/identity"
	"jan-server/services/chat-api/internal/utils/idgen"
	"jan-server/services/chat-api/internal/utils/platformerrors"
)

// ConversationService handles business logic for conversations
type ConversationService struct {
	store     Store
	catalog   ModelCatalog
	validator *Validator
}

// NewConversationService creates a new conversation service
func NewConversationService(store Store, catalog ModelCatalog) *ConversationService {
	return &ConversationService{
		store:     store,
		catalog:   catalog,
		validator: NewValidator(nil),
	}
}

// CreateConversation stores an empty conversation for userID. An empty title becomes DefaultTitle.
func (s *ConversationService) CreateConversation(ctx context.Context, userID identity.UserID, title, provider, model string) (*Conversation, error) {
	if err := identity.Require(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.catalog.Validate(ctx, provider, model); err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}
	if err := s.validator.ValidateTitle(title); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "conversation validation failed", err, "9460a9be-0a0a-4f73-9cc9-4eba331b0b66")
	}

	id, err := idgen.NewConversationID()
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal, "failed to generate conversation ID", err, "f3d5aa11-8da6-469a-a747-c027a4604877")
	}

	now := time.Now().UTC()
	conv := &Conversation{
		ID:        id,
		UserID:    userID,
		Title:     title,
		Provider:  provider,
		Model:     model,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, conv); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to create conversation")
	}
	return conv, nil
}

// ListConversations returns the user's conversations, most recently updated first.
func (s *ConversationService) ListConversations(ctx context.Context, userID identity.UserID) ([]*Conversation, error) {
	if err := identity.Require(ctx, userID); err != nil {
		return nil, err
	}
	convs, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list conversations")
	}
	return convs, nil
}

// GetConversation loads a conversation with its full message history.
func (s *ConversationService) GetConversation(ctx context.Context, userID identity.UserID, id string) (*Conversation, error) {
	if err := identity.Require(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateConversationID(id); err != nil {
		return nil, notFound(ctx, err)
	}
	conv, err := s.store.Get(ctx, userID, id)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "conversation not found")
	}
	return conv, nil
}

// RenameConversation sets a user chosen title and locks it against synthesis.
func (s *ConversationService) RenameConversation(ctx context.Context, userID identity.UserID, id, title string) (*Conversation, error) {
	if err := identity.Require(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateConversationID(id); err != nil {
		return nil, notFound(ctx, err)
	}
	title = strings.TrimSpace(title)
	if err := s.validator.ValidateTitle(title); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid title", err, "fe51d05f-51e9-48a1-aafd-62e1f8344415")
	}

	conv, _, err := s.store.UpdateTitle(ctx, userID, id, TitleChange{Title: title, Source: TitleSourceUser})
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to rename conversation")
	}
	return conv, nil
}

// ApplySynthesizedTitle stores a generated title unless the conversation already has a final or
// user chosen one. The returned conversation always reflects the stored title.
func (s *ConversationService) ApplySynthesizedTitle(ctx context.Context, userID identity.UserID, id, title string) (*Conversation, bool, error) {
	if err := identity.Require(ctx, userID); err != nil {
		return nil, false, err
	}
	if err := s.validator.ValidateTitle(title); err != nil {
		return nil, false, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid title", err, "e08c9f4a-0999-4acb-bcbc-68dc7fa2014c")
	}
	conv, applied, err := s.store.UpdateTitle(ctx, userID, id, TitleChange{Title: title, Source: TitleSourceSynthesized})
	if err != nil {
		return nil, false, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to store title")
	}
	return conv, applied, nil
}

// SelectModel switches the provider/model a conversation continues with.
func (s *ConversationService) SelectModel(ctx context.Context, userID identity.UserID, conv *Conversation, provider, model string) error {
	if conv.Provider == provider && conv.Model == model {
		return nil
	}
	if err := s.catalog.Validate(ctx, provider, model); err != nil {
		return err
	}
	if err := s.store.UpdateModel(ctx, userID, conv.ID, provider, model); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to update conversation model")
	}
	conv.Provider = provider
	conv.Model = model
	return nil
}

// DeleteConversation removes a conversation and all its messages.
func (s *ConversationService) DeleteConversation(ctx context.Context, userID identity.UserID, id string) error {
	if err := identity.Require(ctx, userID); err != nil {
		return err
	}
	if err := s.validator.ValidateConversationID(id); err != nil {
		return notFound(ctx, err)
	}
	if err := s.store.Delete(ctx, userID, id); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to delete conversation")
	}
	return nil
}

// AppendMessage appends msg to the conversation, generating an id when msg has none.
// Appending an id that is already stored is a no-op.
func (s *ConversationService) AppendMessage(ctx context.Context, userID identity.UserID, id string, msg *Message) (*Message, error) {
	if err := identity.Require(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateMessage(msg); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid message", err, "ca7a81c1-3842-44da-8071-d6fb4428372d")
	}
	if msg.ID == "" {
		msgID, err := idgen.NewMessageID()
		if err != nil {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal, "failed to generate message ID", err, "fea41e46-3e8d-4eac-bfa8-cd0dc241cc24")
		}
		msg.ID = msgID
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	if _, err := s.store.AppendMessage(ctx, userID, id, msg); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to append message")
	}
	return msg, nil
}

func notFound(ctx context.Context, cause error) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "conversation not found", cause, "760f163a-d142-494d-b0e2-a98872566a81")
}
