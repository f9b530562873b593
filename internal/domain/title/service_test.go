package title

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/chat-api/internal/domain/conversation"
	"jan-server/services/chat-api/internal/domain/identity"
	"jan-server/services/chat-api/internal/domain/provider"
	"jan-server/services/chat-api/internal/infrastructure/memstore"
	"jan-server/services/chat-api/internal/utils/platformerrors"
)

type mutexLocker struct {
	mu    sync.Mutex
	held  map[string]bool
	calls int
}

func (l *mutexLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.held == nil {
		l.held = make(map[string]bool)
	}
	if l.held[key] {
		return nil, ErrLockHeld
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, nil
}

type fixture struct {
	svc           *Service
	conversations *conversation.ConversationService
	completion    *mockCompletion
	locker        *mutexLocker
}

func newFixture(output string) *fixture {
	completion := &mockCompletion{CompleteFunc: func(context.Context, provider.Request) (string, error) {
		return output, nil
	}}
	conversations := conversation.NewConversationService(memstore.New(), provider.DefaultCatalog())
	locker := &mutexLocker{}
	synth := NewSynthesizer(completion, SynthesizerConfig{Provider: "openai", Model: "gpt-4o-mini"}, zerolog.Nop())
	return &fixture{
		svc:           NewService(synth, conversations, locker, time.Second, zerolog.Nop()),
		conversations: conversations,
		completion:    completion,
		locker:        locker,
	}
}

func (f *fixture) seed(t *testing.T, user identity.UserID, text string) *conversation.Conversation {
	t.Helper()
	ctx := context.Background()
	conv, err := f.conversations.CreateConversation(ctx, user, text, "openai", "gpt-4o-mini")
	require.NoError(t, err)
	_, err = f.conversations.AppendMessage(ctx, user, conv.ID, &conversation.Message{Role: conversation.RoleUser, Content: text})
	require.NoError(t, err)
	return conv
}

func TestGenerate_StoresTitleOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture("Greeting Exchange")
	conv := f.seed(t, "u1", "Hi")

	update, err := f.svc.Generate(ctx, "u1", conv.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, update.ConversationID)
	assert.Equal(t, "Greeting Exchange", update.Title)
	assert.Equal(t, int64(1), update.Version)
	require.Len(t, f.completion.calls, 1)
	assert.Contains(t, f.completion.calls[0].Messages[0].Content, "User: Hi")

	again, err := f.svc.Generate(ctx, "u1", conv.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, update, again)
	assert.Len(t, f.completion.calls, 1)
}

func TestGenerate_RespectsManualRename(t *testing.T) {
	ctx := context.Background()
	f := newFixture("Generated")
	conv := f.seed(t, "u1", "Hi")

	_, err := f.conversations.RenameConversation(ctx, "u1", conv.ID, "Mine")
	require.NoError(t, err)

	update, err := f.svc.Generate(ctx, "u1", conv.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "Mine", update.Title)
	assert.Empty(t, f.completion.calls)
}

func TestGenerate_LockHeldReturnsStoredTitle(t *testing.T) {
	ctx := context.Background()
	f := newFixture("Generated")
	conv := f.seed(t, "u1", "Hi")

	release, err := f.locker.Acquire(ctx, "title:"+conv.ID, time.Second)
	require.NoError(t, err)
	defer release()

	update, err := f.svc.Generate(ctx, "u1", conv.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hi", update.Title)
	assert.Zero(t, update.Version)
	assert.Empty(t, f.completion.calls)
}

func TestGenerate_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture("Generated")
	conv := f.seed(t, "u1", "Hi")

	_, err := f.svc.Generate(ctx, "", conv.ID, nil)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeUnauthorized))

	_, err = f.svc.Generate(ctx, "u2", conv.ID, nil)
	assert.True(t, platformerrors.IsNotFoundError(err))

	_, err = f.svc.Generate(ctx, "u1", "", nil)
	assert.True(t, platformerrors.IsValidationError(err))
}

func TestGenerate_WithoutConversation(t *testing.T) {
	f := newFixture(`"Travel Plans"`)
	update, err := f.svc.Generate(context.Background(), "u1", "", []conversation.Message{{Role: conversation.RoleUser, Content: "Plan a trip"}})
	require.NoError(t, err)
	assert.Equal(t, "Travel Plans", update.Title)
	assert.Empty(t, update.ConversationID)
	assert.Zero(t, f.locker.calls)
}

type brokenLocker struct{}

func (brokenLocker) Acquire(context.Context, string, time.Duration) (func(), error) {
	return nil, errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")
}

func TestGenerate_LockUnavailableStillStoresTitle(t *testing.T) {
	ctx := context.Background()
	f := newFixture("")
	f.svc.locker = brokenLocker{}
	text := "Explain quantum entanglement in simple terms please really in depth and thoroughly with examples"
	conv := f.seed(t, "u1", text)

	update, err := f.svc.Generate(ctx, "u1", conv.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "Explain quantum entanglement in simple terms pl...", update.Title)
	assert.Equal(t, int64(1), update.Version)

	stored, err := f.conversations.GetConversation(ctx, "u1", conv.ID)
	require.NoError(t, err)
	assert.Equal(t, update.Title, stored.Title)
	assert.True(t, stored.TitleFinalized)
}

type failingTitles struct {
	Conversations
}

func (failingTitles) ApplySynthesizedTitle(context.Context, identity.UserID, string, string) (*conversation.Conversation, bool, error) {
	return nil, false, errors.New("connection reset")
}

func TestGenerate_StoreFailureReturnsTitle(t *testing.T) {
	f := newFixture("Greeting Exchange")
	conv := f.seed(t, "u1", "Hi")
	f.svc.conversations = failingTitles{Conversations: f.conversations}

	update, err := f.svc.Generate(context.Background(), "u1", conv.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, conversation.TitleUpdate{ConversationID: conv.ID, Title: "Greeting Exchange"}, update)
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	f := newFixture("unused")
	conv := f.seed(t, "u1", "Hi")

	update, err := f.svc.Store(ctx, "u1", conv.ID, "  New Chat ")
	require.NoError(t, err)
	assert.Equal(t, conversation.TitleUpdate{ConversationID: conv.ID, Title: "New Chat", Version: 1}, update)

	again, err := f.svc.Store(ctx, "u1", conv.ID, "Something Else")
	require.NoError(t, err)
	assert.Equal(t, update, again)
	assert.Empty(t, f.completion.calls)

	_, err = f.svc.Store(ctx, "u1", conv.ID, " ")
	assert.True(t, platformerrors.IsValidationError(err))
	_, err = f.svc.Store(ctx, "u2", conv.ID, "Mine")
	assert.True(t, platformerrors.IsNotFoundError(err))
}
