// Package chatapi is the HTTP client for the chat API. It implements the session and list
// controller backends so the terminal client can drive a remote server.
package chatapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"resty.dev/v3"

	"jan-server/services/chat-api/internal/domain/chatsession"
	"jan-server/services/chat-api/internal/domain/conversation"
	"jan-server/services/chat-api/internal/domain/conversationlist"
	"jan-server/services/chat-api/internal/domain/identity"
	"jan-server/services/chat-api/internal/domain/provider"
	"jan-server/services/chat-api/internal/interfaces/httpserver/requests"
	"jan-server/services/chat-api/internal/interfaces/httpserver/responses"
	chatresponses "jan-server/services/chat-api/internal/interfaces/httpserver/responses/chat"
	conversationresponses "jan-server/services/chat-api/internal/interfaces/httpserver/responses/conversation"
	"jan-server/services/chat-api/internal/utils/functional"
	"jan-server/services/chat-api/internal/utils/platformerrors"
)

const (
	userIDHeader         = "X-User-ID"
	dataPrefix           = "data: "
	scannerInitialBuffer = 64 * 1024
	scannerMaxBuffer     = 1024 * 1024
)

// Client talks to /v1. With a token every request carries it as a bearer credential;
// without one the user id is sent in the X-User-ID header.
type Client struct {
	client  *resty.Client
	baseURL string
	token   string
}

func NewClient(client *resty.Client, baseURL, token string) *Client {
	return &Client{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   strings.TrimSpace(token),
	}
}

func (c *Client) ListConversations(ctx context.Context, userID identity.UserID) ([]*conversation.Conversation, error) {
	var body conversationresponses.ConversationListResponse
	if err := c.do(ctx, userID, http.MethodGet, "/v1/conversations", nil, &body); err != nil {
		return nil, err
	}
	return functional.Map(body.Data, func(r conversationresponses.ConversationResponse) *conversation.Conversation {
		return r.ToConversation()
	}), nil
}

func (c *Client) CreateConversation(ctx context.Context, userID identity.UserID, title, providerKey, model string) (*conversation.Conversation, error) {
	var body conversationresponses.ConversationResponse
	req := requests.CreateConversationRequest{Title: title, Provider: providerKey, Model: model}
	if err := c.do(ctx, userID, http.MethodPost, "/v1/conversations", req, &body); err != nil {
		return nil, err
	}
	return body.ToConversation(), nil
}

func (c *Client) LoadConversation(ctx context.Context, userID identity.UserID, id string) (*conversation.Conversation, error) {
	var body conversationresponses.ConversationResponse
	if err := c.do(ctx, userID, http.MethodGet, "/v1/conversations/"+id, nil, &body); err != nil {
		return nil, err
	}
	return body.ToConversation(), nil
}

func (c *Client) RenameConversation(ctx context.Context, userID identity.UserID, id, title string) (*conversation.Conversation, error) {
	var body conversationresponses.ConversationResponse
	req := requests.RenameConversationRequest{Title: title}
	if err := c.do(ctx, userID, http.MethodPatch, "/v1/conversations/"+id, req, &body); err != nil {
		return nil, err
	}
	return body.ToConversation(), nil
}

func (c *Client) DeleteConversation(ctx context.Context, userID identity.UserID, id string) error {
	var body conversationresponses.DeletedConversationResponse
	return c.do(ctx, userID, http.MethodDelete, "/v1/conversations/"+id, nil, &body)
}

func (c *Client) SynthesizeTitle(ctx context.Context, userID identity.UserID, conversationID string, messages []conversation.Message) (conversation.TitleUpdate, error) {
	var body chatresponses.TitleResponse
	req := requests.TitleRequest{ConversationID: conversationID, Messages: toRequestMessages(messages)}
	if err := c.do(ctx, userID, http.MethodPost, "/v1/chat/title", req, &body); err != nil {
		return conversation.TitleUpdate{}, err
	}
	return conversation.TitleUpdate{ConversationID: body.ConversationID, Title: body.Title, Version: body.Version}, nil
}

func (c *Client) StoreTitle(ctx context.Context, userID identity.UserID, conversationID, title string) (conversation.TitleUpdate, error) {
	var body chatresponses.TitleResponse
	req := requests.TitleRequest{ConversationID: conversationID, Title: title}
	if err := c.do(ctx, userID, http.MethodPost, "/v1/chat/title", req, &body); err != nil {
		return conversation.TitleUpdate{}, err
	}
	return conversation.TitleUpdate{ConversationID: body.ConversationID, Title: body.Title, Version: body.Version}, nil
}

// ListProviders returns the provider catalog with per-provider configuration status.
func (c *Client) ListProviders(ctx context.Context, userID identity.UserID) (*chatresponses.ProviderListResponse, error) {
	var body chatresponses.ProviderListResponse
	if err := c.do(ctx, userID, http.MethodGet, "/v1/providers", nil, &body); err != nil {
		return nil, err
	}
	return &body, nil
}

// Catalog rebuilds a provider catalog from the server's provider list.
func (c *Client) Catalog(ctx context.Context, userID identity.UserID) (*provider.Catalog, error) {
	list, err := c.ListProviders(ctx, userID)
	if err != nil {
		return nil, err
	}
	catalog := &provider.Catalog{DefaultProvider: list.DefaultProvider, DefaultModel: list.DefaultModel}
	for _, p := range list.Data {
		catalog.Providers = append(catalog.Providers, provider.Provider{Key: p.Key, Name: p.Name, Models: p.Models})
	}
	return catalog, nil
}

// StreamTurn posts the turn and returns a stream over the SSE response. Errors before the
// first byte come back as the server's error envelope.
func (c *Client) StreamTurn(ctx context.Context, userID identity.UserID, req chatsession.TurnRequest) (chatsession.TurnStream, error) {
	body := requests.ChatRequest{
		ConversationID: req.ConversationID,
		Provider:       req.Provider,
		Model:          req.Model,
		Messages:       toRequestMessages(req.Messages),
		UserMessageID:  req.UserMessageID,
	}
	resp, err := c.prepareRequest(ctx, userID).
		SetHeader("Accept", "text/event-stream").
		SetHeader("Accept-Encoding", "identity").
		SetBody(body).
		SetDoNotParseResponse(true).
		Post(c.endpoint("/v1/chat"))
	if err != nil {
		return nil, transportError(ctx, err)
	}
	if resp.IsError() {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		return nil, errorFromEnvelope(ctx, resp.StatusCode(), raw)
	}
	if resp.Body == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerClient, platformerrors.ErrorTypeExternal, "chat stream returned an empty body", nil, "4a8e0f2e-5692-49eb-82d4-204d03068562")
	}
	return newTurnStream(ctx, resp.Body), nil
}

func (c *Client) prepareRequest(ctx context.Context, userID identity.UserID) *resty.Request {
	req := c.client.R().SetContext(ctx)
	req.SetHeader("Content-Type", "application/json")
	if c.token != "" {
		req.SetAuthToken(c.token)
	} else if !userID.IsZero() {
		req.SetHeader(userIDHeader, userID.String())
	}
	return req
}

func (c *Client) do(ctx context.Context, userID identity.UserID, method, path string, body, result any) error {
	var envelope responses.ErrorResponse
	req := c.prepareRequest(ctx, userID).SetResult(result).SetError(&envelope)
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, c.endpoint(path))
	if err != nil {
		return transportError(ctx, err)
	}
	if resp.IsError() {
		if envelope.Error == nil {
			return errorFromEnvelope(ctx, resp.StatusCode(), resp.Bytes())
		}
		return errorFromDetail(ctx, resp.StatusCode(), envelope.Error)
	}
	return nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL + path
}

func toRequestMessages(messages []conversation.Message) []requests.Message {
	return functional.Map(messages, func(m conversation.Message) requests.Message {
		return requests.Message{Role: string(m.Role), Content: m.Content}
	})
}

func transportError(ctx context.Context, err error) error {
	errorType := platformerrors.ErrorTypeExternal
	if errors.Is(err, context.DeadlineExceeded) {
		errorType = platformerrors.ErrorTypeTimeout
	}
	return platformerrors.NewError(ctx, platformerrors.LayerClient, errorType, "chat API request failed", err, "58b97102-01b5-4120-aa0c-24eef7efc8a0")
}

func errorFromEnvelope(ctx context.Context, status int, raw []byte) error {
	var envelope responses.ErrorResponse
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != nil {
		return errorFromDetail(ctx, status, envelope.Error)
	}
	message := strings.TrimSpace(string(raw))
	if message == "" {
		message = http.StatusText(status)
	}
	return platformerrors.NewError(ctx, platformerrors.LayerClient, statusErrorType(status), message, nil, "a7a0eb84-4905-4672-873b-2f96d1187439")
}

func errorFromDetail(ctx context.Context, status int, detail *responses.ErrorDetail) error {
	errorType := platformerrors.ErrorTypeFromString(detail.Type)
	if errorType == platformerrors.ErrorTypeInternal {
		errorType = statusErrorType(status)
	}
	return platformerrors.NewErrorWithContext(ctx, platformerrors.LayerClient, errorType, detail.Message, nil, detail.Code, map[string]any{
		"status":     status,
		"request_id": detail.RequestID,
	})
}

func statusErrorType(status int) platformerrors.ErrorType {
	switch status {
	case http.StatusBadRequest:
		return platformerrors.ErrorTypeValidation
	case http.StatusUnauthorized:
		return platformerrors.ErrorTypeUnauthorized
	case http.StatusForbidden:
		return platformerrors.ErrorTypeForbidden
	case http.StatusNotFound:
		return platformerrors.ErrorTypeNotFound
	case http.StatusConflict:
		return platformerrors.ErrorTypeConflict
	case http.StatusTooManyRequests:
		return platformerrors.ErrorTypeRateLimited
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return platformerrors.ErrorTypeExternal
	case http.StatusGatewayTimeout:
		return platformerrors.ErrorTypeTimeout
	default:
		return platformerrors.ErrorTypeInternal
	}
}

// turnStream reads delta, done and error events off an SSE body.
type turnStream struct {
	ctx     context.Context
	body    io.ReadCloser
	scanner *bufio.Scanner
	content string
	message *conversation.Message
	err     error
	done    bool
}

func newTurnStream(ctx context.Context, body io.ReadCloser) *turnStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, scannerInitialBuffer), scannerMaxBuffer)
	return &turnStream{ctx: ctx, body: body, scanner: scanner}
}

func (s *turnStream) Next() bool {
	if s.done {
		return false
	}
	for s.scanner.Scan() {
		data, ok := strings.CutPrefix(s.scanner.Text(), dataPrefix)
		if !ok {
			continue
		}
		if data == chatresponses.DoneSentinel {
			break
		}
		var event chatresponses.StreamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			s.finish(platformerrors.NewError(s.ctx, platformerrors.LayerClient, platformerrors.ErrorTypeExternal, "malformed stream event", err, "10c9f6af-fd13-4382-bb52-68744159b6a4"))
			return false
		}
		switch event.Type {
		case chatresponses.EventDelta:
			if event.Content == "" {
				continue
			}
			s.content = event.Content
			return true
		case chatresponses.EventDone:
			if event.Message != nil {
				msg := event.Message.ToMessage()
				s.message = &msg
			}
		case chatresponses.EventError:
			s.finish(streamEventError(s.ctx, event.Error))
			return false
		}
	}

	if err := s.scanner.Err(); err != nil {
		s.finish(transportError(s.ctx, err))
		return false
	}
	if s.message == nil && s.err == nil {
		s.finish(platformerrors.NewError(s.ctx, platformerrors.LayerClient, platformerrors.ErrorTypeExternal, "chat stream ended before completion", nil, "7cb91800-e6fd-46a4-82f5-124eba691a88"))
		return false
	}
	s.done = true
	s.content = ""
	return false
}

func (s *turnStream) finish(err error) {
	s.err = err
	s.done = true
	s.content = ""
}

func (s *turnStream) Content() string { return s.content }

func (s *turnStream) Err() error { return s.err }

func (s *turnStream) Message() *conversation.Message { return s.message }

func (s *turnStream) Close() error {
	s.done = true
	return s.body.Close()
}

func streamEventError(ctx context.Context, streamErr *chatresponses.StreamError) error {
	if streamErr == nil {
		return platformerrors.NewError(ctx, platformerrors.LayerClient, platformerrors.ErrorTypeExternal, "chat stream failed", nil, "a6e16dee-1d34-4170-bcfa-ccdec2c09241")
	}
	return platformerrors.NewError(ctx, platformerrors.LayerClient, platformerrors.ErrorTypeFromString(streamErr.Type), streamErr.Message, nil, streamErr.Code)
}

var (
	_ chatsession.Backend      = (*Client)(nil)
	_ conversationlist.Backend = (*Client)(nil)
)
