package domain

import (
	"github.com/google/wire"
	"github.com/rs/zerolog"

	"jan-server/services/chat-api/internal/config"
	"jan-server/services/chat-api/internal/domain/chat"
	"jan-server/services/chat-api/internal/domain/conversation"
	"jan-server/services/chat-api/internal/domain/provider"
	"jan-server/services/chat-api/internal/domain/title"
)

// ServiceProvider provides all domain services
var ServiceProvider = wire.NewSet(
	// Conversation domain
	conversation.NewConversationService,
	wire.Bind(new(conversation.ModelCatalog), new(*provider.Catalog)),

	// Chat domain
	ProvideChatConfig,
	chat.NewService,

	// Titles
	ProvideSynthesizerConfig,
	title.NewSynthesizer,
	ProvideTitleService,
	wire.Bind(new(title.Conversations), new(*conversation.ConversationService)),
)

func ProvideChatConfig(cfg *config.Config) chat.Config {
	return chat.Config{
		SystemPrompt: cfg.SystemPrompt,
		Timeout:      cfg.ChatTimeout,
	}
}

func ProvideSynthesizerConfig(cfg *config.Config) title.SynthesizerConfig {
	return title.SynthesizerConfig{
		Provider: cfg.TitleModelProvider,
		Model:    cfg.TitleModel,
	}
}

func ProvideTitleService(
	synthesizer *title.Synthesizer,
	conversations title.Conversations,
	locker title.Locker,
	cfg *config.Config,
	log zerolog.Logger,
) *title.Service {
	return title.NewService(synthesizer, conversations, locker, cfg.TitleTimeout, log)
}
