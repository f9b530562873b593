package title

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/chat-api/internal/domain/conversation"
	"jan-server/services/chat-api/internal/domain/provider"
)

type mockCompletion struct {
	CompleteFunc func(ctx context.Context, req provider.Request) (string, error)
	calls        []provider.Request
}

func (m *mockCompletion) Stream(context.Context, provider.Request) (provider.Stream, error) {
	return nil, errors.New("not implemented")
}

func (m *mockCompletion) Complete(ctx context.Context, req provider.Request) (string, error) {
	m.calls = append(m.calls, req)
	return m.CompleteFunc(ctx, req)
}

func userMsg(content string) conversation.Message {
	return conversation.Message{Role: conversation.RoleUser, Content: content}
}

func assistantMsg(content string) conversation.Message {
	return conversation.Message{Role: conversation.RoleAssistant, Content: content}
}

const longPrompt = "Explain quantum entanglement in simple terms please really in depth and thoroughly with examples"

func TestFallback(t *testing.T) {
	tests := []struct {
		name     string
		messages []conversation.Message
		want     string
	}{
		{"long first message", []conversation.Message{userMsg(longPrompt)}, longPrompt[:47] + "..."},
		{"short first message", []conversation.Message{userMsg("  Hi  ")}, "Hi"},
		{"empty first message", []conversation.Message{userMsg("")}, "New Chat"},
		{"whitespace first message", []conversation.Message{userMsg(" \n\t ")}, "New Chat"},
		{"no user message", []conversation.Message{assistantMsg("hello")}, "New Chat"},
		{"nothing", nil, "New Chat"},
		{"skips leading assistant", []conversation.Message{assistantMsg("hello"), userMsg("Plan a trip")}, "Plan a trip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fallback(tt.messages))
		})
	}
	assert.Equal(t, "Explain quantum entanglement in simple terms pl...", Fallback([]conversation.Message{userMsg(longPrompt)}))
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`"Quantum Basics"`, "Quantum Basics"},
		{"'Trip Planning'\n", "Trip Planning"},
		{"  Go   Concurrency  ", "Go Concurrency"},
		{strings.Repeat("x", 60), strings.Repeat("x", 47) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanTitle(tt.raw))
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	messages := []conversation.Message{
		userMsg("one"), assistantMsg("two"), userMsg("three"), assistantMsg("four"), userMsg("five"),
	}
	prompt := BuildPrompt(messages)
	assert.Contains(t, prompt, "maximum 6 words")
	assert.Contains(t, prompt, "User: one\nAssistant: two\nUser: three\nAssistant: four")
	assert.NotContains(t, prompt, "five")
}

func TestSynthesize(t *testing.T) {
	ctx := context.Background()
	config := SynthesizerConfig{Provider: "openai", Model: "gpt-4o-mini"}

	t.Run("uses model output", func(t *testing.T) {
		mock := &mockCompletion{CompleteFunc: func(context.Context, provider.Request) (string, error) {
			return `"Friendly Greeting"`, nil
		}}
		got := NewSynthesizer(mock, config, zerolog.Nop()).Synthesize(ctx, []conversation.Message{userMsg("Hi")})
		assert.Equal(t, "Friendly Greeting", got)

		require.Len(t, mock.calls, 1)
		req := mock.calls[0]
		assert.Equal(t, "openai", req.Provider)
		assert.Equal(t, "gpt-4o-mini", req.Model)
		assert.Equal(t, MaxTokens, req.MaxTokens)
		require.NotNil(t, req.Temperature)
		assert.InDelta(t, 0.3, *req.Temperature, 1e-6)
	})

	t.Run("falls back on error", func(t *testing.T) {
		mock := &mockCompletion{CompleteFunc: func(context.Context, provider.Request) (string, error) {
			return "", errors.New("upstream down")
		}}
		got := NewSynthesizer(mock, config, zerolog.Nop()).Synthesize(ctx, []conversation.Message{userMsg(longPrompt)})
		assert.Equal(t, longPrompt[:47]+"...", got)
	})

	t.Run("falls back on short output", func(t *testing.T) {
		mock := &mockCompletion{CompleteFunc: func(context.Context, provider.Request) (string, error) {
			return `"A"`, nil
		}}
		got := NewSynthesizer(mock, config, zerolog.Nop()).Synthesize(ctx, []conversation.Message{userMsg("  ")})
		assert.Equal(t, "New Chat", got)
	})

	t.Run("no provider", func(t *testing.T) {
		got := NewSynthesizer(nil, config, zerolog.Nop()).Synthesize(ctx, []conversation.Message{userMsg("Hi")})
		assert.Equal(t, "Hi", got)
	})
}
