package observability

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/chat-api/internal/config"
)

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		raw      string
		endpoint string
		insecure bool
	}{
		{"otel-collector:4318", "otel-collector:4318", true},
		{"http://otel-collector:4318", "otel-collector:4318", true},
		{"https://otlp.example.com", "otlp.example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			endpoint, insecure := normalizeEndpoint(tt.raw)
			assert.Equal(t, tt.endpoint, endpoint)
			assert.Equal(t, tt.insecure, insecure)
		})
	}
}

func TestParseHeaders(t *testing.T) {
	headers := parseHeaders("x-api-key=abc, broken, tenant = jan ,empty=")
	assert.Equal(t, map[string]string{"x-api-key": "abc", "tenant": "jan"}, headers)
}

func TestSetupWithoutExporter(t *testing.T) {
	ctx := context.Background()
	shutdown, err := Setup(ctx, &config.Config{ServiceName: "chat-api", ServiceNamespace: "jan", Environment: "test"}, zerolog.Nop())
	require.NoError(t, err)

	spanCtx, span := StartSpan(ctx, "test")
	assert.NotEmpty(t, GetTraceID(spanCtx))
	assert.NotEmpty(t, GetSpanID(spanCtx))
	span.End()

	require.NoError(t, shutdown(ctx))
}
