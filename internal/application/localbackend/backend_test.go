package localbackend

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/chat-api/internal/domain/chat"
	"jan-server/services/chat-api/internal/domain/chatsession"
	"jan-server/services/chat-api/internal/domain/conversation"
	"jan-server/services/chat-api/internal/domain/conversationlist"
	"jan-server/services/chat-api/internal/domain/identity"
	"jan-server/services/chat-api/internal/domain/provider"
	"jan-server/services/chat-api/internal/domain/provider/providertest"
	"jan-server/services/chat-api/internal/domain/title"
	"jan-server/services/chat-api/internal/infrastructure/cache"
	"jan-server/services/chat-api/internal/infrastructure/memstore"
)

type harness struct {
	completion    *providertest.Provider
	conversations *conversation.ConversationService
	list          *conversationlist.Controller
	session       *chatsession.Controller
}

func newHarness(t *testing.T, completion *providertest.Provider) *harness {
	t.Helper()
	return newHarnessWithLocker(t, completion, cache.NewLocalLocker())
}

func newHarnessWithLocker(t *testing.T, completion *providertest.Provider, locker title.Locker) *harness {
	t.Helper()
	log := zerolog.Nop()
	catalog := provider.DefaultCatalog()
	conversations := conversation.NewConversationService(memstore.New(), catalog)
	chatService := chat.NewService(conversations, completion, catalog, chat.Config{Timeout: 5 * time.Second}, log)
	synth := title.NewSynthesizer(completion, title.SynthesizerConfig{Provider: "openai", Model: "gpt-4o-mini"}, log)
	titles := title.NewService(synth, conversations, locker, 5*time.Second, log)
	backend := New(conversations, chatService, titles)

	list := conversationlist.NewController(backend, nil, log)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go list.Run(ctx)

	session := chatsession.NewController(list, backend, list.Updates(), chatsession.Config{
		Provider:     "openai",
		Model:        "gpt-4o-mini",
		TitleTimeout: 5 * time.Second,
	}, chatsession.Hooks{}, log)

	return &harness{completion: completion, conversations: conversations, list: list, session: session}
}

func TestFirstTurnEndToEnd(t *testing.T) {
	ctx := context.Background()
	user := identity.UserID("U1")
	h := newHarness(t, providertest.Fragments("Friendly Greeting", "Hello", "! ", "How can I help?"))

	require.NoError(t, h.session.Submit(ctx, user, "Hi"))
	h.session.Wait()

	msgs := h.session.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Hello! How can I help?", msgs[1].Content)

	id := h.session.ConversationID()
	stored, err := h.conversations.GetConversation(ctx, user, id)
	require.NoError(t, err)
	require.Len(t, stored.Messages, 2)
	assert.Equal(t, "Hi", stored.Messages[0].Content)
	assert.Equal(t, "Hello! How can I help?", stored.Messages[1].Content)
	assert.Equal(t, "openai", stored.Messages[1].Provider)
	assert.Equal(t, "gpt-4o-mini", stored.Messages[1].Model)
	assert.Equal(t, "Friendly Greeting", stored.Title)
	assert.True(t, stored.TitleFinalized)

	titleCalls := h.completion.CompleteRequests()
	require.Len(t, titleCalls, 1)
	assert.Equal(t, "gpt-4o-mini", titleCalls[0].Model)
	require.Len(t, titleCalls[0].Messages, 1)
	assert.Contains(t, titleCalls[0].Messages[0].Content, "User: Hi")

	require.Eventually(t, func() bool {
		entry, ok := h.list.Entry(id)
		return ok && entry.Title == "Friendly Greeting" && entry.Version == stored.Version
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, h.session.Submit(ctx, user, "Thanks"))
	h.session.Wait()
	assert.Len(t, h.completion.CompleteRequests(), 1)

	stored, err = h.conversations.GetConversation(ctx, user, id)
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 4)
}

type unreachableLocker struct{}

func (unreachableLocker) Acquire(context.Context, string, time.Duration) (func(), error) {
	return nil, errors.New("dial tcp 127.0.0.1:6379: connection refused")
}

func TestTitleStoredWhenLockBackendIsDown(t *testing.T) {
	tests := []struct {
		name      string
		titleFunc func(context.Context, provider.Request) (string, error)
		want      string
	}{
		{
			name:      "synthesized",
			titleFunc: func(context.Context, provider.Request) (string, error) { return "Quantum Basics", nil },
			want:      "Quantum Basics",
		},
		{
			name:      "fallback",
			titleFunc: func(context.Context, provider.Request) (string, error) { return "", errors.New("upstream 503") },
			want:      "Explain quantum entanglement in simple terms pl...",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			user := identity.UserID("U1")
			completion := providertest.Fragments("", "Particles", " share state.")
			completion.CompleteFunc = tt.titleFunc
			h := newHarnessWithLocker(t, completion, unreachableLocker{})

			require.NoError(t, h.session.Submit(ctx, user, "Explain quantum entanglement in simple terms please, with an example"))
			h.session.Wait()

			id := h.session.ConversationID()
			stored, err := h.conversations.GetConversation(ctx, user, id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stored.Title)
			assert.True(t, stored.TitleFinalized)

			require.Eventually(t, func() bool {
				entry, ok := h.list.Entry(id)
				return ok && entry.Title == tt.want && entry.Version == stored.Version
			}, time.Second, 5*time.Millisecond)
		})
	}
}

func TestRenameBeforeTitleKeepsUserTitle(t *testing.T) {
	ctx := context.Background()
	user := identity.UserID("U1")
	h := newHarness(t, providertest.Fragments("Synthesized", "ok"))

	id, err := h.list.Create(ctx, user, "openai", "gpt-4o-mini", "Draft")
	require.NoError(t, err)
	require.NoError(t, h.list.Rename(ctx, user, id, "My own title"))

	require.NoError(t, h.session.Switch(ctx, user, id))
	assert.True(t, h.session.TitleFinalized())
	require.NoError(t, h.session.Submit(ctx, user, "Hi"))
	h.session.Wait()

	stored, err := h.conversations.GetConversation(ctx, user, id)
	require.NoError(t, err)
	assert.Equal(t, "My own title", stored.Title)
	assert.Empty(t, h.completion.CompleteRequests())

	entry, ok := h.list.Entry(id)
	require.True(t, ok)
	assert.Equal(t, "My own title", entry.Title)
}

func TestDeleteActiveConversationResetsSession(t *testing.T) {
	ctx := context.Background()
	user := identity.UserID("U1")
	h := newHarness(t, providertest.Fragments("Short title", "answer"))

	require.NoError(t, h.session.Submit(ctx, user, "Hi"))
	h.session.Wait()
	id := h.session.ConversationID()

	wasActive, err := h.list.Delete(ctx, user, id)
	require.NoError(t, err)
	require.True(t, wasActive)
	assert.True(t, h.session.OnConversationDeleted(id))
	assert.Equal(t, chatsession.StateEmpty, h.session.State())

	_, err = h.conversations.GetConversation(ctx, user, id)
	require.Error(t, err)

	require.NoError(t, h.session.Submit(ctx, user, "Start over"))
	h.session.Wait()
	assert.NotEqual(t, id, h.session.ConversationID())
}

func TestOtherUsersCannotSeeConversation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, providertest.Fragments("Private talk", "secret"))

	require.NoError(t, h.session.Submit(ctx, "U1", "Hi"))
	h.session.Wait()
	id := h.session.ConversationID()

	other := New(h.conversations, nil, nil)
	_, err := other.LoadConversation(ctx, "U2", id)
	require.Error(t, err)

	convs, err := other.ListConversations(ctx, "U2")
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestUpstreamFailureKeepsDraft(t *testing.T) {
	ctx := context.Background()
	user := identity.UserID("U1")
	completion := providertest.Fragments("unused")
	completion.StreamFunc = func(context.Context, provider.Request) (provider.Stream, error) {
		return providertest.NewSliceStream([]string{"Par", "tial"}, assert.AnError), nil
	}
	h := newHarness(t, completion)

	err := h.session.Submit(ctx, user, "Will this work?")
	require.Error(t, err)
	assert.Equal(t, "Will this work?", h.session.Draft())
	assert.Equal(t, "Partial", h.session.Truncated())

	stored, err := h.conversations.GetConversation(ctx, user, h.session.ConversationID())
	require.NoError(t, err)
	require.Len(t, stored.Messages, 1)
	assert.True(t, strings.HasPrefix(stored.Messages[0].ID, "msg_"))

	// The retry reuses the persisted user message instead of duplicating it.
	completion.StreamFunc = func(context.Context, provider.Request) (provider.Stream, error) {
		return providertest.NewSliceStream([]string{"Yes"}, nil), nil
	}
	require.NoError(t, h.session.Submit(ctx, user, "Will this work?"))
	h.session.Wait()

	stored, err = h.conversations.GetConversation(ctx, user, h.session.ConversationID())
	require.NoError(t, err)
	require.Len(t, stored.Messages, 2)
	assert.Equal(t, "Yes", stored.Messages[1].Content)
}
