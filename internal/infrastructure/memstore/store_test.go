package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/chat-api/internal/domain/conversation"
	"jan-server/services/chat-api/internal/domain/identity"
	"jan-server/services/chat-api/internal/utils/platformerrors"
)

func seed(t *testing.T, s *Store, owner identity.UserID, id string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, s.Create(context.Background(), &conversation.Conversation{
		ID: id, UserID: owner, Title: "New Chat", Provider: "openai", Model: "gpt-4o", CreatedAt: now, UpdatedAt: now,
	}))
}

func TestStore_OwnerScoping(t *testing.T) {
	ctx := context.Background()
	s := New()
	seed(t, s, "u1", "conv_a")

	_, err := s.Get(ctx, "u2", "conv_a")
	require.Error(t, err)
	assert.True(t, platformerrors.IsNotFoundError(err))

	_, err = s.AppendMessage(ctx, "u2", "conv_a", &conversation.Message{ID: "msg_1", Role: conversation.RoleUser, Content: "hi"})
	assert.True(t, platformerrors.IsNotFoundError(err))

	_, _, err = s.UpdateTitle(ctx, "u2", "conv_a", conversation.TitleChange{Title: "x", Source: conversation.TitleSourceUser})
	assert.True(t, platformerrors.IsNotFoundError(err))

	assert.True(t, platformerrors.IsNotFoundError(s.Delete(ctx, "u2", "conv_a")))

	list, err := s.List(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, list)

	conv, err := s.Get(ctx, "u1", "conv_a")
	require.NoError(t, err)
	assert.Equal(t, "conv_a", conv.ID)
}

func TestStore_AppendMessageIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()
	seed(t, s, "u1", "conv_a")

	first := &conversation.Message{ID: "msg_1", Role: conversation.RoleUser, Content: "hi"}
	appended, err := s.AppendMessage(ctx, "u1", "conv_a", first)
	require.NoError(t, err)
	assert.True(t, appended)

	again := &conversation.Message{ID: "msg_1", Role: conversation.RoleUser, Content: "hi"}
	appended, err = s.AppendMessage(ctx, "u1", "conv_a", again)
	require.NoError(t, err)
	assert.False(t, appended)
	assert.Equal(t, 1, again.Sequence)

	_, err = s.AppendMessage(ctx, "u1", "conv_a", &conversation.Message{ID: "msg_2", Role: conversation.RoleAssistant, Content: "hello"})
	require.NoError(t, err)

	conv, err := s.Get(ctx, "u1", "conv_a")
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, 2, conv.MessageCount)
	assert.Equal(t, []int{1, 2}, []int{conv.Messages[0].Sequence, conv.Messages[1].Sequence})
}

func TestStore_UpdateTitle(t *testing.T) {
	ctx := context.Background()

	t.Run("synthesized applies once", func(t *testing.T) {
		s := New()
		seed(t, s, "u1", "conv_a")

		conv, applied, err := s.UpdateTitle(ctx, "u1", "conv_a", conversation.TitleChange{Title: "Greeting", Source: conversation.TitleSourceSynthesized})
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, int64(1), conv.Version)

		conv, applied, err = s.UpdateTitle(ctx, "u1", "conv_a", conversation.TitleChange{Title: "Other", Source: conversation.TitleSourceSynthesized})
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Equal(t, "Greeting", conv.Title)
		assert.Equal(t, int64(1), conv.Version)
	})

	t.Run("user rename locks", func(t *testing.T) {
		s := New()
		seed(t, s, "u1", "conv_a")

		conv, applied, err := s.UpdateTitle(ctx, "u1", "conv_a", conversation.TitleChange{Title: "Mine", Source: conversation.TitleSourceUser})
		require.NoError(t, err)
		assert.True(t, applied)
		assert.True(t, conv.TitleLocked)

		conv, applied, err = s.UpdateTitle(ctx, "u1", "conv_a", conversation.TitleChange{Title: "Generated", Source: conversation.TitleSourceSynthesized})
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Equal(t, "Mine", conv.Title)

		conv, _, err = s.UpdateTitle(ctx, "u1", "conv_a", conversation.TitleChange{Title: "Mine again", Source: conversation.TitleSourceUser})
		require.NoError(t, err)
		assert.Equal(t, int64(2), conv.Version)
	})
}

func TestStore_ListOrdersByRecency(t *testing.T) {
	ctx := context.Background()
	s := New()
	seed(t, s, "u1", "conv_a")
	seed(t, s, "u1", "conv_b")

	_, err := s.AppendMessage(ctx, "u1", "conv_a", &conversation.Message{ID: "msg_1", Role: conversation.RoleUser, Content: "bump"})
	require.NoError(t, err)

	list, err := s.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "conv_a", list[0].ID)
	assert.Equal(t, "conv_b", list[1].ID)
}

func TestStore_MessageIDsAreScopedToConversation(t *testing.T) {
	ctx := context.Background()
	s := New()
	seed(t, s, "u1", "conv_a")
	seed(t, s, "u1", "conv_b")

	for _, id := range []string{"conv_a", "conv_b"} {
		inserted, err := s.AppendMessage(ctx, "u1", id, &conversation.Message{ID: "msg_same", Role: conversation.RoleUser, Content: "hi"})
		require.NoError(t, err)
		assert.True(t, inserted, id)
	}
}
