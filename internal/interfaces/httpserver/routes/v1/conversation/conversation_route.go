package conversation

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jan-server/services/chat-api/internal/domain/identity"
	"jan-server/services/chat-api/internal/interfaces/httpserver/handlers/conversationhandler"
	"jan-server/services/chat-api/internal/interfaces/httpserver/requests"
	"jan-server/services/chat-api/internal/interfaces/httpserver/responses"
	"jan-server/services/chat-api/internal/utils/platformerrors"
)

type ConversationRoute struct {
	handler *conversationhandler.ConversationHandler
	auth    identity.AuthProvider
}

func NewConversationRoute(handler *conversationhandler.ConversationHandler, auth identity.AuthProvider) *ConversationRoute {
	return &ConversationRoute{handler: handler, auth: auth}
}

func (route *ConversationRoute) RegisterRouter(router gin.IRouter) {
	conversations := router.Group("/conversations")
	conversations.GET("", route.listConversations)
	conversations.POST("", route.createConversation)
	conversations.GET("/:conversation_id", route.getConversation)
	conversations.PATCH("/:conversation_id", route.renameConversation)
	conversations.DELETE("/:conversation_id", route.deleteConversation)
}

// listConversations godoc
// @Summary List conversations
// @Description List the authenticated user's conversations, most recently updated first. Messages are not included.
// @Tags Conversations API
// @Security BearerAuth
// @Produce json
// @Success 200 {object} conversationresponses.ConversationListResponse "Successfully retrieved conversations"
// @Failure 401 {object} responses.ErrorResponse "Unauthorized - missing or invalid authentication"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /v1/conversations [get]
func (route *ConversationRoute) listConversations(reqCtx *gin.Context) {
	ctx := reqCtx.Request.Context()
	userID, err := route.auth.CurrentUserID(ctx)
	if err != nil {
		responses.HandleError(reqCtx, err, "authentication required")
		return
	}

	response, err := route.handler.ListConversations(ctx, userID)
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to list conversations")
		return
	}
	reqCtx.JSON(http.StatusOK, response)
}

// createConversation godoc
// @Summary Create a conversation
// @Description Create an empty conversation bound to a provider and model. An empty title becomes "New Chat".
// @Tags Conversations API
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body requests.CreateConversationRequest true "Create conversation request"
// @Success 201 {object} conversationresponses.ConversationResponse "Successfully created conversation"
// @Failure 400 {object} responses.ErrorResponse "Invalid request - unknown provider or model"
// @Failure 401 {object} responses.ErrorResponse "Unauthorized - missing or invalid authentication"
// @Failure 500 {object} responses.ErrorResponse "Internal server error - conversation creation failed"
// @Router /v1/conversations [post]
func (route *ConversationRoute) createConversation(reqCtx *gin.Context) {
	ctx := reqCtx.Request.Context()
	userID, err := route.auth.CurrentUserID(ctx)
	if err != nil {
		responses.HandleError(reqCtx, err, "authentication required")
		return
	}

	var req requests.CreateConversationRequest
	if err := reqCtx.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeValidation, "invalid request body", "b58e36b2-7304-4fd8-8461-6ee594355076")
		return
	}
	response, err := route.handler.CreateConversation(ctx, userID, req)
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to create conversation")
		return
	}
	reqCtx.JSON(http.StatusCreated, response)
}

// getConversation godoc
// @Summary Get a conversation
// @Description Retrieve a conversation with its ordered messages. Conversations owned by other users are reported as not found.
// @Tags Conversations API
// @Security BearerAuth
// @Produce json
// @Param conversation_id path string true "Conversation ID (format: conv_xxxxx)"
// @Success 200 {object} conversationresponses.ConversationResponse "Successfully retrieved conversation"
// @Failure 401 {object} responses.ErrorResponse "Unauthorized - missing or invalid authentication"
// @Failure 404 {object} responses.ErrorResponse "Conversation not found"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /v1/conversations/{conversation_id} [get]
func (route *ConversationRoute) getConversation(reqCtx *gin.Context) {
	ctx := reqCtx.Request.Context()
	userID, err := route.auth.CurrentUserID(ctx)
	if err != nil {
		responses.HandleError(reqCtx, err, "authentication required")
		return
	}

	response, err := route.handler.GetConversation(ctx, userID, reqCtx.Param("conversation_id"))
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to get conversation")
		return
	}
	reqCtx.JSON(http.StatusOK, response)
}

// renameConversation godoc
// @Summary Rename a conversation
// @Description Set a user chosen title. Renamed conversations never receive a synthesized title afterwards.
// @Tags Conversations API
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param conversation_id path string true "Conversation ID (format: conv_xxxxx)"
// @Param request body requests.RenameConversationRequest true "Rename request"
// @Success 200 {object} conversationresponses.ConversationResponse "Successfully renamed conversation"
// @Failure 400 {object} responses.ErrorResponse "Invalid title"
// @Failure 401 {object} responses.ErrorResponse "Unauthorized - missing or invalid authentication"
// @Failure 404 {object} responses.ErrorResponse "Conversation not found"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /v1/conversations/{conversation_id} [patch]
func (route *ConversationRoute) renameConversation(reqCtx *gin.Context) {
	ctx := reqCtx.Request.Context()
	userID, err := route.auth.CurrentUserID(ctx)
	if err != nil {
		responses.HandleError(reqCtx, err, "authentication required")
		return
	}

	var req requests.RenameConversationRequest
	if err := reqCtx.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeValidation, "invalid request body", "86c55025-345b-4d4f-8fd9-f5f28f613ae5")
		return
	}
	response, err := route.handler.RenameConversation(ctx, userID, reqCtx.Param("conversation_id"), req)
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to rename conversation")
		return
	}
	reqCtx.JSON(http.StatusOK, response)
}

// deleteConversation godoc
// @Summary Delete a conversation
// @Description Delete a conversation and all of its messages.
// @Tags Conversations API
// @Security BearerAuth
// @Produce json
// @Param conversation_id path string true "Conversation ID (format: conv_xxxxx)"
// @Success 200 {object} conversationresponses.DeletedConversationResponse "Successfully deleted conversation"
// @Failure 401 {object} responses.ErrorResponse "Unauthorized - missing or invalid authentication"
// @Failure 404 {object} responses.ErrorResponse "Conversation not found"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /v1/conversations/{conversation_id} [delete]
func (route *ConversationRoute) deleteConversation(reqCtx *gin.Context) {
	ctx := reqCtx.Request.Context()
	userID, err := route.auth.CurrentUserID(ctx)
	if err != nil {
		responses.HandleError(reqCtx, err, "authentication required")
		return
	}

	response, err := route.handler.DeleteConversation(ctx, userID, reqCtx.Param("conversation_id"))
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to delete conversation")
		return
	}
	reqCtx.JSON(http.StatusOK, response)
}
