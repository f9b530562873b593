package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"jan-server/services/chat-api/internal/domain/provider"
	"jan-server/services/chat-api/internal/infrastructure/logger"
)

// LoadCatalog reads a provider catalog YAML file.
//
//	default_provider: openai
//	default_model: gpt-4o
//	providers:
//	  - key: openai
//	    name: OpenAI
//	    models:
//	      - key: gpt-4o
//	        name: GPT-4o
func LoadCatalog(path string) (*provider.Catalog, error) {
	cleanPath := filepath.Clean(strings.TrimSpace(path))
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("read provider catalog %q: %w", cleanPath, err)
	}

	var catalog provider.Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse provider catalog %q: %w", cleanPath, err)
	}
	if err := catalog.Check(); err != nil {
		return nil, fmt.Errorf("provider catalog %q: %w", cleanPath, err)
	}

	log := logger.GetLogger()
	log.Info().
		Str("path", cleanPath).
		Strs("providers", catalog.ProviderKeys()).
		Msg("loaded provider catalog")
	return &catalog, nil
}
