package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jan-server/services/chat-api/internal/domain/identity"
	"jan-server/services/chat-api/internal/interfaces/httpserver/handlers/chathandler"
	"jan-server/services/chat-api/internal/interfaces/httpserver/requests"
	"jan-server/services/chat-api/internal/interfaces/httpserver/responses"
	"jan-server/services/chat-api/internal/utils/platformerrors"
)

type ChatRoute struct {
	handler *chathandler.ChatHandler
	auth    identity.AuthProvider
}

func NewChatRoute(handler *chathandler.ChatHandler, auth identity.AuthProvider) *ChatRoute {
	return &ChatRoute{handler: handler, auth: auth}
}

func (route *ChatRoute) RegisterRouter(router gin.IRouter) {
	chatRouter := router.Group("/chat")
	chatRouter.POST("", route.postChat)
	chatRouter.POST("/title", route.postTitle)
}

// postChat godoc
// @Summary Stream a chat turn
// @Description Send the conversation history ending with a new user message and stream the assistant reply as Server-Sent Events.
// @Description
// @Description **Events:**
// @Description - `{"type":"delta","content":"..."}` for every fragment, in order
// @Description - `{"type":"done","message":{...}}` once the assistant message is stored
// @Description - `{"type":"error","error":{"type":"external_error","message":"..."}}` when the provider fails mid-stream
// @Description - `[DONE]` terminates the stream
// @Description
// @Description With `conversation_id` the user message is stored before streaming and the assistant message after it. Both appends are idempotent on message id.
// @Tags Chat API
// @Security BearerAuth
// @Accept json
// @Produce text/event-stream
// @Param request body requests.ChatRequest true "Chat request"
// @Success 200 {string} string "Server-Sent Events stream"
// @Failure 400 {object} responses.ErrorResponse "Invalid request - unknown provider or model, or empty message"
// @Failure 401 {object} responses.ErrorResponse "Unauthorized - missing or invalid authentication"
// @Failure 404 {object} responses.ErrorResponse "Conversation not found"
// @Failure 502 {object} responses.ErrorResponse "The model provider could not be reached"
// @Router /v1/chat [post]
func (route *ChatRoute) postChat(reqCtx *gin.Context) {
	ctx := reqCtx.Request.Context()
	userID, err := route.auth.CurrentUserID(ctx)
	if err != nil {
		responses.HandleError(reqCtx, err, "authentication required")
		return
	}

	var req requests.ChatRequest
	if err := reqCtx.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeValidation, "invalid request body", "57ade7ff-437e-47f6-84ca-d566bcedc869")
		return
	}
	reqCtx.Set("model", req.Model)

	turn, err := route.handler.StartTurn(ctx, userID, req)
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to complete chat request")
		return
	}
	route.handler.StreamTurn(reqCtx, turn)
}

// postTitle godoc
// @Summary Generate a conversation title
// @Description Synthesize a short title from the first messages. With `conversation_id` the title is stored unless the conversation was renamed or already titled, in which case the stored title is returned.
// @Tags Chat API
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body requests.TitleRequest true "Title request"
// @Success 200 {object} chatresponses.TitleResponse "Generated or stored title"
// @Failure 400 {object} responses.ErrorResponse "Invalid request"
// @Failure 401 {object} responses.ErrorResponse "Unauthorized - missing or invalid authentication"
// @Failure 404 {object} responses.ErrorResponse "Conversation not found"
// @Failure 500 {object} responses.ErrorResponse "Internal server error"
// @Router /v1/chat/title [post]
func (route *ChatRoute) postTitle(reqCtx *gin.Context) {
	ctx := reqCtx.Request.Context()
	userID, err := route.auth.CurrentUserID(ctx)
	if err != nil {
		responses.HandleError(reqCtx, err, "authentication required")
		return
	}

	var req requests.TitleRequest
	if err := reqCtx.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(reqCtx, platformerrors.ErrorTypeValidation, "invalid request body", "5260d8b2-a7c2-4972-8963-58f922a1eb0c")
		return
	}
	response, err := route.handler.GenerateTitle(ctx, userID, req)
	if err != nil {
		responses.HandleError(reqCtx, err, "Failed to generate title")
		return
	}
	reqCtx.JSON(http.StatusOK, response)
}
