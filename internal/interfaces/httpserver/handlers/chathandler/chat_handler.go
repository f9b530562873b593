package chathandler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"jan-server/services/chat-api/internal/domain/chat"
	"jan-server/services/chat-api/internal/domain/conversation"
	"jan-server/services/chat-api/internal/domain/identity"
	"jan-server/services/chat-api/internal/domain/title"
	middleware "jan-server/services/chat-api/internal/interfaces/httpserver/middlewares"
	"jan-server/services/chat-api/internal/interfaces/httpserver/requests"
	chatresponses "jan-server/services/chat-api/internal/interfaces/httpserver/responses/chat"
	conversationresponses "jan-server/services/chat-api/internal/interfaces/httpserver/responses/conversation"
	"jan-server/services/chat-api/internal/utils/markup"
	"jan-server/services/chat-api/internal/utils/platformerrors"
)

// ChatHandler streams chat turns over SSE and generates titles.
type ChatHandler struct {
	chatService  *chat.Service
	titleService *title.Service
	validator    *requests.Validator
	log          zerolog.Logger
}

func NewChatHandler(chatService *chat.Service, titleService *title.Service, validator *requests.Validator, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		chatService:  chatService,
		titleService: titleService,
		validator:    validator,
		log:          log.With().Str("component", "chat-handler").Logger(),
	}
}

// StartTurn validates the request and opens the turn. Errors returned here happen before any
// byte is written, so the caller can still answer with a JSON error.
func (h *ChatHandler) StartTurn(ctx context.Context, userID identity.UserID, req requests.ChatRequest) (*chat.Turn, error) {
	if err := h.validator.Struct(req); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerHandler, platformerrors.ErrorTypeValidation, err.Error(), err, "c1586db8-ec9d-4492-8624-fb35ab740744")
	}
	turn, err := h.chatService.StartTurn(ctx, userID, chat.TurnInput{
		ConversationID: req.ConversationID,
		Provider:       req.Provider,
		Model:          req.Model,
		Messages:       requests.ToDomainMessages(req.Messages),
		UserMessageID:  req.UserMessageID,
	})
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to start chat turn")
	}
	return turn, nil
}

// StreamTurn drains turn onto the response as SSE events: one delta per fragment, then done or
// error, then the [DONE] sentinel. It closes the turn.
func (h *ChatHandler) StreamTurn(reqCtx *gin.Context, turn *chat.Turn) {
	defer turn.Close()

	flusher, ok := middleware.PrepareSSE(reqCtx)
	if !ok {
		h.log.Error().Msg("response writer does not support flushing")
	}
	reqCtx.Status(http.StatusOK)

	write := func(payload string) bool {
		if err := writeSSEData(reqCtx, payload); err != nil {
			h.log.Debug().Err(err).Str("conversation_id", turn.ConversationID()).Msg("client went away mid-stream")
			return false
		}
		if flusher != nil {
			flusher.Flush()
		}
		return true
	}
	writeEvent := func(event chatresponses.StreamEvent) bool {
		data, err := json.Marshal(event)
		if err != nil {
			h.log.Error().Err(err).Msg("failed to encode stream event")
			return false
		}
		return write(string(data))
	}

	for turn.Next() {
		delta := chatresponses.StreamEvent{Type: chatresponses.EventDelta, Content: turn.Content(), HTML: markup.Sanitize(turn.Text())}
		if !writeEvent(delta) {
			return
		}
	}

	if err := turn.Err(); err != nil {
		if reqCtx.Request.Context().Err() != nil {
			return
		}
		pe := platformerrors.AsError(reqCtx.Request.Context(), platformerrors.LayerHandler, err, "chat turn failed")
		platformerrors.LogError(h.log, pe)
		if !writeEvent(chatresponses.StreamEvent{
			Type: chatresponses.EventError,
			Error: &chatresponses.StreamError{
				Type:    platformerrors.ErrorTypeToString(pe.Type),
				Message: streamErrorMessage(pe.Type),
				Code:    pe.UUID,
			},
		}) {
			return
		}
	} else {
		msg := conversationresponses.NewMessageResponse(*turn.Message())
		event := chatresponses.StreamEvent{Type: chatresponses.EventDone, Message: &msg}
		if user := turn.UserMessage(); user != nil {
			userMsg := conversationresponses.NewMessageResponse(*user)
			event.UserMessage = &userMsg
		}
		if !writeEvent(event) {
			return
		}
	}
	write(chatresponses.DoneSentinel)
}

// GenerateTitle synthesizes a title; with a conversation id the title is also stored.
func (h *ChatHandler) GenerateTitle(ctx context.Context, userID identity.UserID, req requests.TitleRequest) (*chatresponses.TitleResponse, error) {
	if err := h.validator.Struct(req); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerHandler, platformerrors.ErrorTypeValidation, err.Error(), err, "23f7ac2d-a07e-4da5-bdca-84b0b5f91ac4")
	}
	var (
		update conversation.TitleUpdate
		err    error
	)
	if strings.TrimSpace(req.Title) != "" {
		update, err = h.titleService.Store(ctx, userID, req.ConversationID, req.Title)
	} else {
		update, err = h.titleService.Generate(ctx, userID, req.ConversationID, requests.ToDomainMessages(req.Messages))
	}
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to generate title")
	}
	return &chatresponses.TitleResponse{
		ConversationID: update.ConversationID,
		Title:          update.Title,
		Version:        update.Version,
	}, nil
}

func streamErrorMessage(errorType platformerrors.ErrorType) string {
	switch errorType {
	case platformerrors.ErrorTypeExternal, platformerrors.ErrorTypeTimeout:
		return "the model provider failed to complete the response"
	case platformerrors.ErrorTypeDatabaseError:
		return "the response could not be saved"
	default:
		return "chat turn failed"
	}
}

// writeSSEData writes an SSE data event to the response
func writeSSEData(reqCtx *gin.Context, data string) error {
	if _, err := reqCtx.Writer.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := reqCtx.Writer.Write([]byte(data)); err != nil {
		return err
	}
	_, err := reqCtx.Writer.Write([]byte("\n\n"))
	return err
}
