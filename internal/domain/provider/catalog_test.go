package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/chat-api/internal/utils/platformerrors"
)

func TestDefaultCatalog(t *testing.T) {
	catalog := DefaultCatalog()
	require.NoError(t, catalog.Check())
	assert.Equal(t, []string{"google", "openai", "xai"}, catalog.ProviderKeys())
	assert.True(t, catalog.Supports("openai", "gpt-4o-mini"))
	assert.True(t, catalog.Supports("xai", "grok-3"))
	assert.False(t, catalog.Supports("openai", "grok-3"))
}

func TestCatalogValidate(t *testing.T) {
	ctx := context.Background()
	catalog := DefaultCatalog()

	tests := []struct {
		name     string
		provider string
		model    string
		wantErr  bool
	}{
		{"known pair", "google", "gemini-1.5-flash", false},
		{"unknown provider", "anthropic", "claude", true},
		{"unknown model", "openai", "gpt-2", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := catalog.Validate(ctx, tt.provider, tt.model)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, platformerrors.IsValidationError(err))
		})
	}
}

func TestCatalogCheck(t *testing.T) {
	bad := &Catalog{
		DefaultProvider: "openai",
		DefaultModel:    "gpt-4o",
		Providers:       []Provider{{Key: "openai", Models: []Model{{Key: "gpt-4o-mini"}}}},
	}
	assert.Error(t, bad.Check())

	dup := DefaultCatalog()
	dup.Providers = append(dup.Providers, dup.Providers[0])
	assert.Error(t, dup.Check())
}
