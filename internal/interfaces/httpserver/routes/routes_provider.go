package routes

import (
	"github.com/google/wire"

	"jan-server/services/chat-api/internal/domain/identity"
	"jan-server/services/chat-api/internal/infrastructure/inference"
	"jan-server/services/chat-api/internal/interfaces/httpserver/handlers/chathandler"
	"jan-server/services/chat-api/internal/interfaces/httpserver/handlers/conversationhandler"
	"jan-server/services/chat-api/internal/interfaces/httpserver/handlers/providerhandler"
	"jan-server/services/chat-api/internal/interfaces/httpserver/requests"
	v1 "jan-server/services/chat-api/internal/interfaces/httpserver/routes/v1"
	"jan-server/services/chat-api/internal/interfaces/httpserver/routes/v1/chat"
	"jan-server/services/chat-api/internal/interfaces/httpserver/routes/v1/conversation"
	"jan-server/services/chat-api/internal/interfaces/httpserver/routes/v1/provider"
)

var RouteProvider = wire.NewSet(
	// Request validation
	requests.NewValidator,

	// Identity
	ProvideAuthProvider,

	// Handlers
	chathandler.NewChatHandler,
	conversationhandler.NewConversationHandler,
	providerhandler.NewProviderHandler,
	wire.Bind(new(providerhandler.ConfiguredProviders), new(*inference.Registry)),

	// Routes
	v1.NewV1Route,
	chat.NewChatRoute,
	conversation.NewConversationRoute,
	provider.NewProviderRoute,
)

// ProvideAuthProvider resolves users from the principal the auth middleware stores on the
// request context.
func ProvideAuthProvider() identity.AuthProvider {
	return identity.NewContextAuthProvider()
}
