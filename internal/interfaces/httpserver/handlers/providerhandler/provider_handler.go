package providerhandler

import (
	"slices"

	"jan-server/services/chat-api/internal/domain/provider"
	chatresponses "jan-server/services/chat-api/internal/interfaces/httpserver/responses/chat"
)

// ConfiguredProviders reports which provider keys have credentials.
type ConfiguredProviders interface {
	Configured() []string
}

type ProviderHandler struct {
	catalog    *provider.Catalog
	configured ConfiguredProviders
}

func NewProviderHandler(catalog *provider.Catalog, configured ConfiguredProviders) *ProviderHandler {
	return &ProviderHandler{catalog: catalog, configured: configured}
}

// ListProviders returns the catalog, flagging providers that can actually serve requests.
func (h *ProviderHandler) ListProviders() *chatresponses.ProviderListResponse {
	var configured []string
	if h.configured != nil {
		configured = h.configured.Configured()
	}
	data := make([]chatresponses.ProviderResponse, 0, len(h.catalog.Providers))
	for _, p := range h.catalog.Providers {
		data = append(data, chatresponses.ProviderResponse{
			Key:        p.Key,
			Name:       p.Name,
			Configured: slices.Contains(configured, p.Key),
			Models:     p.Models,
		})
	}
	return &chatresponses.ProviderListResponse{
		Object:          "list",
		DefaultProvider: h.catalog.DefaultProvider,
		DefaultModel:    h.catalog.DefaultModel,
		Data:            data,
	}
}
