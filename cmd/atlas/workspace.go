package main

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"jan-server/services/chat-api/internal/application/localbackend"
	"jan-server/services/chat-api/internal/domain"
	"jan-server/services/chat-api/internal/domain/chat"
	"jan-server/services/chat-api/internal/domain/chatsession"
	"jan-server/services/chat-api/internal/domain/conversation"
	"jan-server/services/chat-api/internal/domain/conversationlist"
	"jan-server/services/chat-api/internal/domain/identity"
	"jan-server/services/chat-api/internal/domain/provider"
	"jan-server/services/chat-api/internal/domain/title"
	"jan-server/services/chat-api/internal/infrastructure"
	"jan-server/services/chat-api/internal/infrastructure/cache"
	"jan-server/services/chat-api/internal/infrastructure/logger"
	"jan-server/services/chat-api/internal/interfaces/httpserver/handlers/providerhandler"
	chatresponses "jan-server/services/chat-api/internal/interfaces/httpserver/responses/chat"
	"jan-server/services/chat-api/internal/utils/httpclients"
	"jan-server/services/chat-api/internal/utils/httpclients/chatapi"
)

const (
	defaultServerURL = "http://localhost:8080"
	localUserID      = "local-user"
	// Streams can run for a long time; the server enforces the per-turn timeout.
	clientTimeout = 5 * time.Minute
)

type backend interface {
	chatsession.Backend
	conversationlist.Backend
}

// workspace is everything a command needs: a backend for the controllers, the caller's id and
// the provider catalog.
type workspace struct {
	backend   backend
	userID    identity.UserID
	log       zerolog.Logger
	catalog   func(ctx context.Context) (*provider.Catalog, error)
	providers func(ctx context.Context) (*chatresponses.ProviderListResponse, error)
	close     func()
}

func openWorkspace(cmd *cobra.Command) (*workspace, error) {
	flags := cmd.Flags()
	verbose, _ := flags.GetBool("verbose")
	level := "warn"
	if verbose {
		level = "debug"
	}
	log, err := logger.NewWithWriter(level, "console", os.Stderr)
	if err != nil {
		return nil, err
	}

	user := flagOrEnv(cmd, "user", "ATLAS_USER_ID")
	if local, _ := flags.GetBool("local"); local {
		if user == "" {
			user = localUserID
		}
		return openLocal(identity.UserID(user), log)
	}

	server := flagOrEnv(cmd, "server", "ATLAS_SERVER_URL")
	if server == "" {
		server = defaultServerURL
	}
	token := flagOrEnv(cmd, "token", "ATLAS_TOKEN")
	if token == "" && user == "" {
		return nil, errors.New("--user (or ATLAS_USER_ID) is required when no token is set")
	}
	if user == "" {
		// The server derives the user from the token; controllers only need a non-empty id.
		user = "token"
	}
	return openRemote(server, token, identity.UserID(user), log), nil
}

func openRemote(server, token string, userID identity.UserID, log zerolog.Logger) *workspace {
	client := chatapi.NewClient(httpclients.NewClient("atlas", clientTimeout), server, token)
	return &workspace{
		backend: client,
		userID:  userID,
		log:     log,
		catalog: func(ctx context.Context) (*provider.Catalog, error) {
			return client.Catalog(ctx, userID)
		},
		providers: func(ctx context.Context) (*chatresponses.ProviderListResponse, error) {
			return client.ListProviders(ctx, userID)
		},
		close: func() {},
	}
}

// openLocal wires the domain services exactly as the server does, minus HTTP.
func openLocal(userID identity.UserID, log zerolog.Logger) (*workspace, error) {
	cfg, err := infrastructure.ProvideConfig()
	if err != nil {
		return nil, err
	}
	db, cleanup, err := infrastructure.ProvideDatabase(cfg, log)
	if err != nil {
		return nil, err
	}
	registry, err := infrastructure.ProvideCompletionRegistry(cfg, log)
	if err != nil {
		cleanup()
		return nil, err
	}

	conversations := conversation.NewConversationService(infrastructure.ProvideConversationStore(cfg, db), cfg.Catalog)
	chatService := chat.NewService(conversations, registry, cfg.Catalog, domain.ProvideChatConfig(cfg), log)
	synthesizer := title.NewSynthesizer(registry, domain.ProvideSynthesizerConfig(cfg), log)
	titles := domain.ProvideTitleService(synthesizer, conversations, cache.NewLocalLocker(), cfg, log)
	providers := providerhandler.NewProviderHandler(cfg.Catalog, registry)

	return &workspace{
		backend: localbackend.New(conversations, chatService, titles),
		userID:  userID,
		log:     log,
		catalog: func(context.Context) (*provider.Catalog, error) {
			return cfg.Catalog, nil
		},
		providers: func(context.Context) (*chatresponses.ProviderListResponse, error) {
			return providers.ListProviders(), nil
		},
		close: cleanup,
	}, nil
}

func flagOrEnv(cmd *cobra.Command, flag, envKey string) string {
	value, _ := cmd.Flags().GetString(flag)
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return strings.TrimSpace(os.Getenv(envKey))
}

// parseModel splits "provider/model".
func parseModel(ref string) (string, string, bool) {
	providerKey, model, ok := strings.Cut(strings.TrimSpace(ref), "/")
	if !ok || providerKey == "" || model == "" {
		return "", "", false
	}
	return providerKey, model, true
}
