package provider

import (
	"context"
	"fmt"
	"sort"

	"jan-server/services/chat-api/internal/utils/platformerrors"
)

const (
	KeyOpenAI = "openai"
	KeyGoogle = "google"
	KeyXAI    = "xai"
)

// Model is one selectable model of a provider.
type Model struct {
	Key  string `yaml:"key" json:"key"`
	Name string `yaml:"name" json:"name"`
}

// Provider groups the models served by one backend.
type Provider struct {
	Key    string  `yaml:"key" json:"key"`
	Name   string  `yaml:"name" json:"name"`
	Models []Model `yaml:"models" json:"models"`
}

// Catalog lists the provider/model pairs a conversation may use.
type Catalog struct {
	DefaultProvider string     `yaml:"default_provider" json:"default_provider"`
	DefaultModel    string     `yaml:"default_model" json:"default_model"`
	Providers       []Provider `yaml:"providers" json:"providers"`
}

// DefaultCatalog returns the built-in provider set.
func DefaultCatalog() *Catalog {
	return &Catalog{
		DefaultProvider: KeyOpenAI,
		DefaultModel:    "gpt-4o",
		Providers: []Provider{
			{
				Key:  KeyOpenAI,
				Name: "OpenAI",
				Models: []Model{
					{Key: "gpt-4o", Name: "GPT-4o"},
					{Key: "gpt-4o-mini", Name: "GPT-4o Mini"},
					{Key: "gpt-4-turbo", Name: "GPT-4 Turbo"},
				},
			},
			{
				Key:  KeyGoogle,
				Name: "Google",
				Models: []Model{
					{Key: "gemini-1.5-pro", Name: "Gemini 1.5 Pro"},
					{Key: "gemini-1.5-flash", Name: "Gemini 1.5 Flash"},
					{Key: "gemini-2.0-flash-exp", Name: "Gemini 2.0 Flash (Experimental)"},
				},
			},
			{
				Key:  KeyXAI,
				Name: "xAI",
				Models: []Model{
					{Key: "grok-3", Name: "Grok 3"},
					{Key: "grok-3-mini", Name: "Grok 3 Mini"},
					{Key: "grok-beta", Name: "Grok Beta"},
				},
			},
		},
	}
}

// Lookup returns the provider with the given key.
func (c *Catalog) Lookup(key string) (Provider, bool) {
	for _, p := range c.Providers {
		if p.Key == key {
			return p, true
		}
	}
	return Provider{}, false
}

// Supports reports whether model is offered by provider.
func (c *Catalog) Supports(providerKey, modelKey string) bool {
	p, ok := c.Lookup(providerKey)
	if !ok {
		return false
	}
	for _, m := range p.Models {
		if m.Key == modelKey {
			return true
		}
	}
	return false
}

// Validate returns a validation error for unknown provider or model keys.
func (c *Catalog) Validate(ctx context.Context, providerKey, modelKey string) error {
	p, ok := c.Lookup(providerKey)
	if !ok {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, fmt.Sprintf("invalid provider %q", providerKey), nil, "8bd91f37-32bd-4e43-b969-7fa0d451946e")
	}
	for _, m := range p.Models {
		if m.Key == modelKey {
			return nil
		}
	}
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, fmt.Sprintf("invalid model %q for provider %q", modelKey, providerKey), nil, "72af7393-cc53-42b9-a7c1-659ae75483e2")
}

// ProviderKeys returns the configured provider keys in sorted order.
func (c *Catalog) ProviderKeys() []string {
	keys := make([]string, 0, len(c.Providers))
	for _, p := range c.Providers {
		keys = append(keys, p.Key)
	}
	sort.Strings(keys)
	return keys
}

// Check verifies the catalog is internally consistent.
func (c *Catalog) Check() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("catalog has no providers")
	}
	seen := make(map[string]struct{}, len(c.Providers))
	for _, p := range c.Providers {
		if p.Key == "" {
			return fmt.Errorf("provider without key")
		}
		if _, dup := seen[p.Key]; dup {
			return fmt.Errorf("duplicate provider %q", p.Key)
		}
		seen[p.Key] = struct{}{}
		if len(p.Models) == 0 {
			return fmt.Errorf("provider %q has no models", p.Key)
		}
	}
	if !c.Supports(c.DefaultProvider, c.DefaultModel) {
		return fmt.Errorf("default %s/%s is not in the catalog", c.DefaultProvider, c.DefaultModel)
	}
	return nil
}
