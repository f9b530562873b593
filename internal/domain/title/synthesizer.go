package title

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"jan-server/services/chat-api/internal/domain/conversation"
	"jan-server/services/chat-api/internal/domain/provider"
	"jan-server/services/chat-api/internal/utils/stringutils"
)

const (
	MaxContextMessages = 4
	MaxTokens          = 20
	Temperature        = float32(0.3)
	MaxLength          = 50
	MinLength          = 3
)

const promptTemplate = `Based on this conversation, generate a concise, descriptive title (maximum 6 words). The title should capture the main topic or question being discussed. Respond with ONLY the title, no quotes, no explanations.

Conversation:
%s`

// SynthesizerConfig selects the model used for titles.
type SynthesizerConfig struct {
	Provider string
	Model    string
}

// Synthesizer derives short conversation labels. It never fails: every problem degrades to
// Fallback.
type Synthesizer struct {
	completion provider.CompletionProvider
	config     SynthesizerConfig
	log        zerolog.Logger
}

func NewSynthesizer(completion provider.CompletionProvider, config SynthesizerConfig, log zerolog.Logger) *Synthesizer {
	return &Synthesizer{
		completion: completion,
		config:     config,
		log:        log.With().Str("component", "title-synthesizer").Logger(),
	}
}

// Synthesize returns a title for messages.
func (s *Synthesizer) Synthesize(ctx context.Context, messages []conversation.Message) string {
	if s.completion == nil || len(messages) == 0 {
		return Fallback(messages)
	}

	temperature := Temperature
	raw, err := s.completion.Complete(ctx, provider.Request{
		Provider:    s.config.Provider,
		Model:       s.config.Model,
		Messages:    []provider.Message{{Role: provider.RoleUser, Content: BuildPrompt(messages)}},
		MaxTokens:   MaxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("provider", s.config.Provider).Msg("title completion failed, using fallback")
		return Fallback(messages)
	}

	title := CleanTitle(raw)
	if len([]rune(title)) < MinLength {
		return Fallback(messages)
	}
	return title
}

// BuildPrompt renders the first few turns into the title prompt.
func BuildPrompt(messages []conversation.Message) string {
	if len(messages) > MaxContextMessages {
		messages = messages[:MaxContextMessages]
	}
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		speaker := "Assistant"
		if msg.Role == conversation.RoleUser {
			speaker = "User"
		}
		lines = append(lines, speaker+": "+msg.Content)
	}
	return fmt.Sprintf(promptTemplate, strings.Join(lines, "\n"))
}

// CleanTitle trims model output, removes wrapping quotes and caps the length.
func CleanTitle(raw string) string {
	title := stringutils.StripWrappingQuotes(strings.TrimSpace(raw))
	title = stringutils.CollapseWhitespace(title)
	return stringutils.TruncateTitle(title, MaxLength)
}

// Fallback derives a title from the first user message, or DefaultTitle when there is none.
func Fallback(messages []conversation.Message) string {
	for _, msg := range messages {
		if msg.Role != conversation.RoleUser {
			continue
		}
		text := strings.TrimSpace(msg.Content)
		if text == "" {
			break
		}
		return stringutils.TruncateTitle(text, MaxLength)
	}
	return conversation.DefaultTitle
}
