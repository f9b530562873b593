package inference

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"jan-server/services/chat-api/internal/config"
	"jan-server/services/chat-api/internal/domain/provider"
	"jan-server/services/chat-api/internal/infrastructure/metrics"
	"jan-server/services/chat-api/internal/utils/platformerrors"
)

// Registry dispatches completion requests to the adapter registered for the request's provider.
type Registry struct {
	adapters map[string]provider.CompletionProvider
	log      zerolog.Logger
}

var _ provider.CompletionProvider = (*Registry)(nil)

func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		adapters: make(map[string]provider.CompletionProvider),
		log:      log.With().Str("component", "inference-registry").Logger(),
	}
}

// NewRegistryFromConfig registers an adapter for every provider with a configured key.
func NewRegistryFromConfig(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Registry, error) {
	registry := NewRegistry(log)
	if cfg.OpenAIAPIKey != "" {
		registry.Register(provider.KeyOpenAI, NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ChatTimeout))
	}
	if cfg.XAIAPIKey != "" {
		registry.Register(provider.KeyXAI, NewOpenAIProvider(cfg.XAIAPIKey, cfg.XAIBaseURL, cfg.ChatTimeout))
	}
	if cfg.GeminiAPIKey != "" {
		google, err := NewGoogleProvider(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		registry.Register(provider.KeyGoogle, google)
	}
	if len(registry.adapters) == 0 {
		registry.log.Warn().Msg("no provider API keys configured, every completion will fail")
	}
	return registry, nil
}

func (r *Registry) Register(key string, adapter provider.CompletionProvider) {
	r.adapters[key] = adapter
}

// Configured returns the provider keys with a registered adapter.
func (r *Registry) Configured() []string {
	keys := make([]string, 0, len(r.adapters))
	for key := range r.adapters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (r *Registry) Stream(ctx context.Context, req provider.Request) (provider.Stream, error) {
	adapter, err := r.adapter(ctx, req.Provider)
	if err != nil {
		return nil, err
	}
	metrics.IncrementActiveStreams(req.Model)
	stream, err := adapter.Stream(ctx, req)
	if err != nil {
		metrics.DecrementActiveStreams(req.Model)
		return nil, err
	}
	return &trackedStream{Stream: stream, model: req.Model}, nil
}

func (r *Registry) Complete(ctx context.Context, req provider.Request) (string, error) {
	adapter, err := r.adapter(ctx, req.Provider)
	if err != nil {
		return "", err
	}
	start := time.Now()
	out, err := adapter.Complete(ctx, req)
	metrics.RecordLLMDuration(req.Model, req.Provider, false, time.Since(start).Seconds())
	if err != nil {
		metrics.RecordProviderError(req.Provider, "upstream")
		return "", err
	}
	return out, nil
}

func (r *Registry) adapter(ctx context.Context, key string) (provider.CompletionProvider, error) {
	adapter, ok := r.adapters[key]
	if !ok {
		metrics.RecordProviderError(key, "not_configured")
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, "provider "+key+" is not configured", nil, "3a0d59d5-51cd-4950-a091-d5888a6ee86e")
	}
	return adapter, nil
}

// trackedStream keeps the active stream gauge in step with open streams.
type trackedStream struct {
	provider.Stream
	model  string
	closed bool
}

func (s *trackedStream) Close() error {
	if !s.closed {
		s.closed = true
		metrics.DecrementActiveStreams(s.model)
	}
	return s.Stream.Close()
}
