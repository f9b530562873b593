package inference

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"jan-server/services/chat-api/internal/domain/provider"
)

// OpenAIProvider talks to any OpenAI compatible chat completions API. It serves both OpenAI and
// xAI, which differ only in base URL and key.
type OpenAIProvider struct {
	client *openai.Client
}

func NewOpenAIProvider(apiKey, baseURL string, timeout time.Duration) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &OpenAIProvider{client: openai.NewClientWithConfig(cfg)}
}

func (p *OpenAIProvider) Stream(ctx context.Context, req provider.Request) (provider.Stream, error) {
	chatReq := buildOpenAIRequest(req)
	chatReq.Stream = true
	stream, err := p.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, err
	}
	return &openAIStream{stream: stream}, nil
}

func (p *OpenAIProvider) Complete(ctx context.Context, req provider.Request) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, buildOpenAIRequest(req))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func buildOpenAIRequest(req provider.Request) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: msg.Role, Content: msg.Content})
	}
	chatReq := openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature != nil {
		chatReq.Temperature = *req.Temperature
	}
	return chatReq
}

type chatCompletionReceiver interface {
	Recv() (openai.ChatCompletionStreamResponse, error)
	Close() error
}

type openAIStream struct {
	stream  chatCompletionReceiver
	current string
	err     error
	done    bool
}

func (s *openAIStream) Next() bool {
	if s.done {
		return false
	}
	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			s.done = true
			return false
		}
		if err != nil {
			s.err = err
			s.done = true
			return false
		}

		var sb strings.Builder
		for _, choice := range resp.Choices {
			sb.WriteString(choice.Delta.Content)
		}
		if sb.Len() == 0 {
			continue
		}
		s.current = sb.String()
		return true
	}
}

func (s *openAIStream) Content() string { return s.current }

func (s *openAIStream) Err() error { return s.err }

func (s *openAIStream) Close() error {
	s.done = true
	return s.stream.Close()
}
