package dbschema

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm/schema"

	"jan-server/services/chat-api/internal/domain/conversation"
)

func TestConversationRoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	conv := &conversation.Conversation{
		ID:             "conv_abc",
		UserID:         "u1",
		Title:          "Trip",
		Provider:       "google",
		Model:          "gemini-1.5-pro",
		TitleFinalized: true,
		Version:        3,
		MessageCount:   2,
		CreatedAt:      now,
		UpdatedAt:      now.Add(time.Minute),
	}

	row := NewSchemaConversation(conv)
	assert.Equal(t, "u1", row.UserID)
	assert.Equal(t, conv, row.EtoD())
}

func TestTitleSource(t *testing.T) {
	row := &Conversation{}
	assert.Empty(t, row.TitleSource())

	row.Metadata = datatypes.JSONMap{MetadataTitleSource: string(conversation.TitleSourceUser)}
	assert.Equal(t, conversation.TitleSourceUser, row.TitleSource())

	row.Metadata = datatypes.JSONMap{MetadataTitleSource: 7}
	assert.Empty(t, row.TitleSource())
}

func TestMessageRoundTrip(t *testing.T) {
	msg := &conversation.Message{ID: "msg_1", Role: conversation.RoleAssistant, Content: "<p>hi</p>", Provider: "xai", Model: "grok-3", Sequence: 2, CreatedAt: time.Unix(10, 0).UTC()}
	row := NewSchemaMessage("conv_abc", msg)
	assert.Equal(t, "conv_abc", row.ConversationID)
	assert.Equal(t, *msg, row.EtoD())
}

func TestMessagePrimaryKeyIncludesConversation(t *testing.T) {
	s, err := schema.Parse(&Message{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)
	assert.Equal(t, []string{"conversation_id", "id"}, s.PrimaryFieldDBNames)
}
