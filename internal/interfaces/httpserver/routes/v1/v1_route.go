package v1

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"jan-server/services/chat-api/internal/config"
	"jan-server/services/chat-api/internal/interfaces/httpserver/responses"
	"jan-server/services/chat-api/internal/interfaces/httpserver/routes/v1/chat"
	"jan-server/services/chat-api/internal/interfaces/httpserver/routes/v1/conversation"
	"jan-server/services/chat-api/internal/interfaces/httpserver/routes/v1/provider"
	"jan-server/services/chat-api/internal/utils/platformerrors"
)

const debugSecretHeader = "X-Debug-Secret"

type V1Route struct {
	conversation *conversation.ConversationRoute
	chat         *chat.ChatRoute
	provider     *provider.ProviderRoute
	config       *config.Config
}

func NewV1Route(
	conversation *conversation.ConversationRoute,
	chat *chat.ChatRoute,
	provider *provider.ProviderRoute,
	cfg *config.Config,
) *V1Route {
	return &V1Route{
		conversation,
		chat,
		provider,
		cfg,
	}
}

// RegisterRouter mounts the authenticated /v1 routes.
func (v1Route *V1Route) RegisterRouter(router gin.IRouter) {
	v1Router := router.Group("/v1")
	v1Route.conversation.RegisterRouter(v1Router)
	v1Route.chat.RegisterRouter(v1Router)
	v1Route.provider.RegisterRouter(v1Router)
}

// RegisterPublicRouter mounts endpoints that do not require authentication.
func (v1Route *V1Route) RegisterPublicRouter(router gin.IRouter) {
	v1Router := router.Group("/v1")
	v1Router.GET("/version", v1Route.getVersion)
	v1Router.GET("/debug/config", v1Route.getDebugConfig)
}

// getVersion godoc
// @Summary Get API build version
// @Description Returns the current build version of the API server and environment reload timestamp.
// @Tags Server API
// @Produce json
// @Success 200 {object} map[string]string "Version information including version number and environment reload timestamp"
// @Router /v1/version [get]
func (v1Route *V1Route) getVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":         config.Version,
		"env_reloaded_at": v1Route.config.EnvReloadedAt.Format(time.RFC3339),
	})
}

// getDebugConfig godoc
// @Summary Report configuration status
// @Description Reports which secrets are configured without revealing them. In production the endpoint is forbidden unless DEBUG_SECRET is configured and sent in the X-Debug-Secret header.
// @Tags Server API
// @Produce json
// @Param X-Debug-Secret header string false "Debug secret, required in production"
// @Success 200 {object} map[string]any "Configuration status"
// @Failure 403 {object} responses.ErrorResponse "Forbidden in production without the debug secret"
// @Router /v1/debug/config [get]
func (v1Route *V1Route) getDebugConfig(c *gin.Context) {
	cfg := v1Route.config
	if cfg.IsProduction() && !debugSecretMatches(cfg.DebugSecret, c.GetHeader(debugSecretHeader)) {
		responses.HandleNewError(c, platformerrors.ErrorTypeForbidden, "debug endpoint disabled", "030466aa-dc85-41d4-8247-b0c586e653b7")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"environment":  cfg.Environment,
		"version":      config.Version,
		"store_driver": cfg.StoreDriver,
		"auth_enabled": cfg.AuthEnabled,
		"secrets":      cfg.SecretStatus(),
		"title_model":  cfg.TitleModelProvider + "/" + cfg.TitleModel,
	})
}

func debugSecretMatches(configured, supplied string) bool {
	if configured == "" || supplied == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(supplied)) == 1
}
