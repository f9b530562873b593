package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"jan-server/services/chat-api/internal/domain/provider"
	"jan-server/services/chat-api/internal/domain/provider/providertest"
	"jan-server/services/chat-api/internal/utils/platformerrors"
)

func drain(t *testing.T, s provider.Stream) []string {
	t.Helper()
	var out []string
	for s.Next() {
		out = append(out, s.Content())
	}
	return out
}

func TestOpenAIProvider_Stream(t *testing.T) {
	var got openai.ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "text/event-stream")
		for _, fragment := range []string{"Hello", "", "! ", "How can I help?"} {
			chunk := openai.ChatCompletionStreamResponse{Choices: []openai.ChatCompletionStreamChoice{{Delta: openai.ChatCompletionStreamChoiceDelta{Content: fragment}}}}
			body, _ := json.Marshal(chunk)
			fmt.Fprintf(w, "data: %s\n\n", body)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	p := NewOpenAIProvider("sk-test", server.URL+"/", time.Second)
	temperature := float32(0.7)
	stream, err := p.Stream(context.Background(), provider.Request{
		Provider:    provider.KeyXAI,
		Model:       "grok-3",
		Messages:    []provider.Message{{Role: provider.RoleSystem, Content: "sys"}, {Role: provider.RoleUser, Content: "Hi"}},
		Temperature: &temperature,
	})
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, []string{"Hello", "! ", "How can I help?"}, drain(t, stream))
	assert.NoError(t, stream.Err())
	assert.Equal(t, "grok-3", got.Model)
	assert.True(t, got.Stream)
	assert.InDelta(t, 0.7, got.Temperature, 0.001)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
}

func TestOpenAIProvider_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 20, req.MaxTokens)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Role: "assistant", Content: `"Trip Planning"`}}},
		})
	}))
	defer server.Close()

	p := NewOpenAIProvider("sk-test", server.URL, time.Second)
	out, err := p.Complete(context.Background(), provider.Request{Model: "gpt-4o-mini", MaxTokens: 20, Messages: []provider.Message{{Role: provider.RoleUser, Content: "x"}}})
	require.NoError(t, err)
	assert.Equal(t, `"Trip Planning"`, out)
}

func TestOpenAIProvider_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider("sk-bad", server.URL, time.Second)
	_, err := p.Stream(context.Background(), provider.Request{Model: "gpt-4o", Messages: []provider.Message{{Role: provider.RoleUser, Content: "x"}}})
	require.Error(t, err)
}

type scriptedReceiver struct {
	responses []openai.ChatCompletionStreamResponse
	err       error
	closed    bool
}

func (r *scriptedReceiver) Recv() (openai.ChatCompletionStreamResponse, error) {
	if len(r.responses) == 0 {
		return openai.ChatCompletionStreamResponse{}, r.err
	}
	resp := r.responses[0]
	r.responses = r.responses[1:]
	return resp, nil
}

func (r *scriptedReceiver) Close() error {
	r.closed = true
	return nil
}

func TestOpenAIStream_MidStreamError(t *testing.T) {
	recv := &scriptedReceiver{
		responses: []openai.ChatCompletionStreamResponse{{Choices: []openai.ChatCompletionStreamChoice{{Delta: openai.ChatCompletionStreamChoiceDelta{Content: "Par"}}}}},
		err:       errors.New("connection reset"),
	}
	stream := &openAIStream{stream: recv}
	assert.Equal(t, []string{"Par"}, drain(t, stream))
	assert.EqualError(t, stream.Err(), "connection reset")
	assert.False(t, stream.Next())
	require.NoError(t, stream.Close())
	assert.True(t, recv.closed)
}

type fakeModels struct {
	responses []*genai.GenerateContentResponse
	err       error

	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(_ context.Context, _ string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.contents, f.config = contents, config
	if f.err != nil {
		return nil, f.err
	}
	return f.responses[0], nil
}

func (f *fakeModels) GenerateContentStream(_ context.Context, _ string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	f.contents, f.config = contents, config
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, resp := range f.responses {
			if !yield(resp, nil) {
				return
			}
		}
		if f.err != nil {
			yield(nil, f.err)
		}
	}
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(text, genai.RoleModel)}}}
}

func TestGoogleProvider_Stream(t *testing.T) {
	tests := []struct {
		name      string
		responses []*genai.GenerateContentResponse
		err       error
		want      []string
		wantErr   bool
	}{
		{
			name:      "deltas",
			responses: []*genai.GenerateContentResponse{textResponse("Hello"), textResponse("! "), textResponse("How can I help?")},
			want:      []string{"Hello", "! ", "How can I help?"},
		},
		{
			name:      "cumulative text",
			responses: []*genai.GenerateContentResponse{textResponse("Hel"), textResponse("Hello"), textResponse("Hello!")},
			want:      []string{"Hel", "lo", "!"},
		},
		{
			name:      "error after partial",
			responses: []*genai.GenerateContentResponse{textResponse("Part")},
			err:       errors.New("quota exceeded"),
			want:      []string{"Part"},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			models := &fakeModels{responses: tt.responses, err: tt.err}
			p := &GoogleProvider{models: models}
			temperature := float32(0.3)
			stream, err := p.Stream(context.Background(), provider.Request{
				Model:       "gemini-1.5-flash",
				Temperature: &temperature,
				MaxTokens:   64,
				Messages: []provider.Message{
					{Role: provider.RoleSystem, Content: "Be brief"},
					{Role: provider.RoleUser, Content: "Hi"},
					{Role: provider.RoleAssistant, Content: "Hello"},
					{Role: provider.RoleUser, Content: "Again"},
				},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, drain(t, stream))
			assert.Equal(t, tt.wantErr, stream.Err() != nil)
			require.NoError(t, stream.Close())

			require.Len(t, models.contents, 3)
			assert.Equal(t, string(genai.RoleModel), models.contents[1].Role)
			require.NotNil(t, models.config.SystemInstruction)
			assert.Equal(t, "Be brief", models.config.SystemInstruction.Parts[0].Text)
			assert.Equal(t, int32(64), models.config.MaxOutputTokens)
		})
	}
}

func TestGoogleProvider_Complete(t *testing.T) {
	models := &fakeModels{responses: []*genai.GenerateContentResponse{textResponse("Weekend Hiking Plans")}}
	p := &GoogleProvider{models: models}
	out, err := p.Complete(context.Background(), provider.Request{Model: "gemini-1.5-pro", Messages: []provider.Message{{Role: provider.RoleUser, Content: "x"}}})
	require.NoError(t, err)
	assert.Equal(t, "Weekend Hiking Plans", out)

	_, err = p.Complete(context.Background(), provider.Request{Model: "gemini-1.5-pro", Messages: []provider.Message{{Role: provider.RoleSystem, Content: "only system"}}})
	require.Error(t, err)
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(zerolog.Nop())
	openaiFake := providertest.Fragments("Title", "a", "b")
	registry.Register(provider.KeyOpenAI, openaiFake)

	assert.Equal(t, []string{provider.KeyOpenAI}, registry.Configured())

	stream, err := registry.Stream(ctx, provider.Request{Provider: provider.KeyOpenAI, Model: "gpt-4o"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, drain(t, stream))
	require.NoError(t, stream.Close())
	require.NoError(t, stream.Close())

	out, err := registry.Complete(ctx, provider.Request{Provider: provider.KeyOpenAI, Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.Equal(t, "Title", out)

	_, err = registry.Stream(ctx, provider.Request{Provider: provider.KeyGoogle, Model: "gemini-1.5-pro"})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeExternal))
	_, err = registry.Complete(ctx, provider.Request{Provider: provider.KeyXAI, Model: "grok-3"})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeExternal))

	openaiFake.CompleteFunc = func(context.Context, provider.Request) (string, error) { return "", errors.New("boom") }
	_, err = registry.Complete(ctx, provider.Request{Provider: provider.KeyOpenAI, Model: "gpt-4o-mini"})
	require.Error(t, err)
}
