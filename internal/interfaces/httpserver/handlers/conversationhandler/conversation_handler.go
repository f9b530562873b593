package conversationhandler

import (
	"context"

	"jan-server/services/chat-api/internal/domain/conversation"
	"jan-server/services/chat-api/internal/domain/identity"
	"jan-server/services/chat-api/internal/interfaces/httpserver/requests"
	conversationresponses "jan-server/services/chat-api/internal/interfaces/httpserver/responses/conversation"
	"jan-server/services/chat-api/internal/utils/platformerrors"
)

// ConversationHandler maps conversation requests onto the conversation service.
type ConversationHandler struct {
	conversationService *conversation.ConversationService
	validator           *requests.Validator
}

func NewConversationHandler(conversationService *conversation.ConversationService, validator *requests.Validator) *ConversationHandler {
	return &ConversationHandler{
		conversationService: conversationService,
		validator:           validator,
	}
}

// ListConversations returns the caller's conversations, most recently updated first.
func (h *ConversationHandler) ListConversations(ctx context.Context, userID identity.UserID) (*conversationresponses.ConversationListResponse, error) {
	convs, err := h.conversationService.ListConversations(ctx, userID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to list conversations")
	}
	return conversationresponses.NewConversationListResponse(convs), nil
}

func (h *ConversationHandler) CreateConversation(ctx context.Context, userID identity.UserID, req requests.CreateConversationRequest) (*conversationresponses.ConversationResponse, error) {
	if err := h.validator.Struct(req); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerHandler, platformerrors.ErrorTypeValidation, err.Error(), err, "ad182f7c-b273-4b22-89a0-a10787b43a97")
	}
	conv, err := h.conversationService.CreateConversation(ctx, userID, req.Title, req.Provider, req.Model)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to create conversation")
	}
	return conversationresponses.NewConversationResponse(conv), nil
}

// GetConversation returns the conversation with its full message history.
func (h *ConversationHandler) GetConversation(ctx context.Context, userID identity.UserID, conversationID string) (*conversationresponses.ConversationResponse, error) {
	conv, err := h.conversationService.GetConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to get conversation")
	}
	return conversationresponses.NewConversationResponse(conv), nil
}

// RenameConversation stores a user chosen title. The title is locked against synthesis afterwards.
func (h *ConversationHandler) RenameConversation(ctx context.Context, userID identity.UserID, conversationID string, req requests.RenameConversationRequest) (*conversationresponses.ConversationResponse, error) {
	if err := h.validator.Struct(req); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerHandler, platformerrors.ErrorTypeValidation, err.Error(), err, "c914315a-d312-438b-a4ab-1b1f3d59af64")
	}
	conv, err := h.conversationService.RenameConversation(ctx, userID, conversationID, req.Title)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to rename conversation")
	}
	return conversationresponses.NewConversationResponse(conv), nil
}

func (h *ConversationHandler) DeleteConversation(ctx context.Context, userID identity.UserID, conversationID string) (*conversationresponses.DeletedConversationResponse, error) {
	if err := h.conversationService.DeleteConversation(ctx, userID, conversationID); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to delete conversation")
	}
	return conversationresponses.NewDeletedConversationResponse(conversationID), nil
}
