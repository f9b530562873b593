package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"jan-server/services/chat-api/internal/domain/conversation"
	"jan-server/services/chat-api/internal/domain/identity"
	"jan-server/services/chat-api/internal/domain/provider"
	"jan-server/services/chat-api/internal/infrastructure/metrics"
	"jan-server/services/chat-api/internal/infrastructure/observability"
	"jan-server/services/chat-api/internal/utils/markup"
	"jan-server/services/chat-api/internal/utils/platformerrors"
)

// Turn is an in-flight chat turn. Next advances to the next fragment; once it returns false the
// turn is finished and either Message or Err is set.
type Turn struct {
	ctx     context.Context
	cancel  context.CancelFunc
	span    trace.Span
	service *Service
	stream  provider.Stream

	userID         identity.UserID
	conversationID string
	provider       string
	model          string

	userMessage *conversation.Message
	message     *conversation.Message
	buf         strings.Builder
	fragment    string
	err         error
	done        bool

	started    time.Time
	firstToken bool
	closeOnce  sync.Once
}

// Next blocks until the next non-empty fragment is available.
func (t *Turn) Next() bool {
	if t.done {
		return false
	}
	for t.stream.Next() {
		fragment := t.stream.Content()
		if fragment == "" {
			continue
		}
		if !t.firstToken {
			t.firstToken = true
			latency := time.Since(t.started)
			metrics.RecordFirstToken(t.model, t.provider, latency.Seconds())
			observability.AddSpanEvent(t.ctx, "first_token", attribute.Int64("chat.first_token_ms", latency.Milliseconds()))
		}
		t.fragment = fragment
		t.buf.WriteString(fragment)
		return true
	}

	t.done = true
	t.fragment = ""
	metrics.RecordLLMDuration(t.model, t.provider, true, time.Since(t.started).Seconds())
	if err := t.stream.Err(); err != nil {
		t.err = upstreamError(t.ctx, t.provider, err)
		observability.RecordError(t.ctx, t.err)
		return false
	}
	t.finalize()
	return false
}

// Content returns the fragment produced by the last successful Next.
func (t *Turn) Content() string { return t.fragment }

// Text returns everything received so far.
func (t *Turn) Text() string { return t.buf.String() }

func (t *Turn) Err() error { return t.err }

// Message returns the finalized assistant message, or nil while streaming or after a failure.
func (t *Turn) Message() *conversation.Message { return t.message }

// UserMessage returns the stored user message, or nil for unsaved turns.
func (t *Turn) UserMessage() *conversation.Message { return t.userMessage }

func (t *Turn) ConversationID() string { return t.conversationID }

// Close releases the provider stream. It is safe to call more than once.
func (t *Turn) Close() error {
	var err error
	t.closeOnce.Do(func() {
		if t.stream != nil {
			err = t.stream.Close()
			metrics.DecrementActiveStreams(t.model)
		}
		t.span.End()
		t.cancel()
	})
	return err
}

func (t *Turn) finalize() {
	content := t.buf.String()
	msg := &conversation.Message{
		Role:     conversation.RoleAssistant,
		Content:  content,
		Provider: t.provider,
		Model:    t.model,
	}
	if strings.TrimSpace(markup.PlainText(content)) == "" {
		t.err = platformerrors.NewError(t.ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, "completion provider returned an empty response", nil, "1664d4e8-cc37-461a-bbeb-b656449cc331")
		metrics.RecordProviderError(t.provider, "empty_response")
		return
	}

	if t.conversationID != "" {
		if _, err := t.service.conversations.AppendMessage(t.ctx, t.userID, t.conversationID, msg); err != nil {
			t.err = err
			observability.RecordError(t.ctx, err)
			t.service.log.Error().Err(err).Str("conversation_id", t.conversationID).Msg("failed to persist assistant message")
			return
		}
		metrics.RecordMessagePersisted(string(conversation.RoleAssistant))
	}
	observability.AddSpanAttributes(t.ctx, attribute.Int("chat.response_length", len(content)))
	t.message = msg
}

func (t *Turn) abort(err error) {
	observability.RecordError(t.ctx, err)
	t.span.End()
	t.cancel()
	t.done = true
	t.err = err
}
