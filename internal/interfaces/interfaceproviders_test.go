package interfaces

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/chat-api/internal/config"
)

func TestProvideTokenValidator_NilStaysNilInterface(t *testing.T) {
	assert.Nil(t, ProvideTokenValidator(nil))
}

func TestProvideReadinessChecks_OnlyConfiguredDependencies(t *testing.T) {
	assert.Empty(t, ProvideReadinessChecks(nil, nil, nil))
}

func TestProvideRateLimiter(t *testing.T) {
	limiter, err := ProvideRateLimiter(&config.Config{RateLimitPerMinute: 0})
	require.NoError(t, err)
	assert.Nil(t, limiter)

	limiter, err = ProvideRateLimiter(&config.Config{RateLimitPerMinute: 60, RateLimitBurst: 1})
	require.NoError(t, err)
	require.NotNil(t, limiter)
	assert.True(t, limiter.Allow("uid:U1"))
	assert.False(t, limiter.Allow("uid:U1"))
}
