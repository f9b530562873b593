package provider

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jan-server/services/chat-api/internal/interfaces/httpserver/handlers/providerhandler"
)

type ProviderRoute struct {
	handler *providerhandler.ProviderHandler
}

func NewProviderRoute(handler *providerhandler.ProviderHandler) *ProviderRoute {
	return &ProviderRoute{handler: handler}
}

func (route *ProviderRoute) RegisterRouter(router gin.IRouter) {
	router.GET("/providers", route.listProviders)
}

// listProviders godoc
// @Summary List providers and models
// @Description Returns the provider/model catalog with the default selection. `configured` is false for providers without credentials.
// @Tags Providers API
// @Security BearerAuth
// @Produce json
// @Success 200 {object} chatresponses.ProviderListResponse "Provider catalog"
// @Failure 401 {object} responses.ErrorResponse "Unauthorized - missing or invalid authentication"
// @Router /v1/providers [get]
func (route *ProviderRoute) listProviders(reqCtx *gin.Context) {
	reqCtx.JSON(http.StatusOK, route.handler.ListProviders())
}
