package inference

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/genai"

	"jan-server/services/chat-api/internal/domain/provider"
)

type googleModelsClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// GoogleProvider serves Gemini models through the Gemini API.
type GoogleProvider struct {
	models googleModelsClient
}

func NewGoogleProvider(ctx context.Context, apiKey string) (*GoogleProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create google client: %w", err)
	}
	return &GoogleProvider{models: client.Models}, nil
}

func (p *GoogleProvider) Stream(ctx context.Context, req provider.Request) (provider.Stream, error) {
	contents, cfg, err := buildGoogleRequest(req)
	if err != nil {
		return nil, err
	}
	streamCtx, cancel := context.WithCancel(ctx)
	return newGoogleStream(p.models.GenerateContentStream(streamCtx, req.Model, contents, cfg), cancel), nil
}

func (p *GoogleProvider) Complete(ctx context.Context, req provider.Request) (string, error) {
	contents, cfg, err := buildGoogleRequest(req)
	if err != nil {
		return "", err
	}
	resp, err := p.models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return "", err
	}
	return extractVisibleText(resp), nil
}

// buildGoogleRequest moves system messages into the system instruction and maps assistant turns
// to the model role.
func buildGoogleRequest(req provider.Request) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	contents := make([]*genai.Content, 0, len(req.Messages))
	var systemParts []string

	for _, msg := range req.Messages {
		switch msg.Role {
		case provider.RoleSystem:
			if content := strings.TrimSpace(msg.Content); content != "" {
				systemParts = append(systemParts, content)
			}
		case provider.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return nil, nil, errors.New("at least one user or assistant message is required")
	}

	cfg := &genai.GenerateContentConfig{}
	if len(systemParts) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(systemParts, "\n\n"), genai.RoleUser)
	}
	if req.Temperature != nil {
		cfg.Temperature = genai.Ptr(*req.Temperature)
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	return contents, cfg, nil
}

type googleStreamEvent struct {
	delta string
	err   error
}

type googleStream struct {
	events  chan googleStreamEvent
	cancel  context.CancelFunc
	current string
	err     error
	done    bool
}

func newGoogleStream(stream iter.Seq2[*genai.GenerateContentResponse, error], cancel context.CancelFunc) *googleStream {
	s := &googleStream{
		events: make(chan googleStreamEvent, 32),
		cancel: cancel,
	}
	go func() {
		defer close(s.events)
		output := ""
		for resp, err := range stream {
			if err != nil {
				s.events <- googleStreamEvent{err: err}
				return
			}
			text := extractVisibleText(resp)
			if text == "" {
				continue
			}
			// Some responses repeat the accumulated text instead of sending a delta.
			delta := text
			if output != "" && strings.HasPrefix(text, output) {
				delta = text[len(output):]
				output = text
			} else {
				output += delta
			}
			if delta != "" {
				s.events <- googleStreamEvent{delta: delta}
			}
		}
	}()
	return s
}

func (s *googleStream) Next() bool {
	if s.done {
		return false
	}
	for ev := range s.events {
		if ev.err != nil {
			s.err = ev.err
			s.done = true
			return false
		}
		s.current = ev.delta
		return true
	}
	s.done = true
	return false
}

func (s *googleStream) Content() string { return s.current }

func (s *googleStream) Err() error { return s.err }

// Close cancels the request and drains the producer so it can exit.
func (s *googleStream) Close() error {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if !s.done {
		for range s.events {
		}
		s.done = true
	}
	return nil
}

func extractVisibleText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}
