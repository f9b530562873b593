package middlewares

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"jan-server/services/chat-api/internal/domain/identity"
	authvalidator "jan-server/services/chat-api/internal/infrastructure/auth"
	"jan-server/services/chat-api/internal/interfaces/httpserver/responses"
	"jan-server/services/chat-api/internal/utils/platformerrors"
)

type mockValidator struct {
	ValidateFunc func(ctx context.Context, rawToken string) (*authvalidator.Claims, error)
}

func (m *mockValidator) Validate(ctx context.Context, rawToken string) (*authvalidator.Claims, error) {
	return m.ValidateFunc(ctx, rawToken)
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(handlers...)
	engine.GET("/whoami", func(c *gin.Context) {
		userID, err := identity.NewContextAuthProvider().CurrentUserID(c.Request.Context())
		if err != nil {
			responses.HandleError(c, err, "unauthorized")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"user_id":    userID.String(),
			"request_id": platformerrors.RequestIDFromContext(c.Request.Context()),
		})
	})
	return engine
}

func TestRequestID(t *testing.T) {
	engine := newEngine(RequestID())

	t.Run("generated when missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))
		assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
	})

	t.Run("propagated when supplied", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(requestIDHeader, "req-123")
		engine.ServeHTTP(rec, req)
		assert.Equal(t, "req-123", rec.Header().Get(requestIDHeader))

		var body responses.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.NotNil(t, body.Error)
		assert.Equal(t, "req-123", body.Error.RequestID)
	})
}

func TestAuthMiddleware_HeaderMode(t *testing.T) {
	engine := newEngine(RequestID(), AuthMiddleware(nil, zerolog.Nop()))

	tests := []struct {
		name       string
		userID     string
		wantStatus int
	}{
		{name: "user header accepted", userID: "U1", wantStatus: http.StatusOK},
		{name: "missing header rejected", userID: "", wantStatus: http.StatusUnauthorized},
		{name: "blank header rejected", userID: "   ", wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.userID != "" {
				req.Header.Set(UserIDHeader, tt.userID)
			}
			engine.ServeHTTP(rec, req)
			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.JSONEq(t, `"U1"`, mustField(t, rec.Body.Bytes(), "user_id"))
				return
			}
			var body responses.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "unauthorized_error", body.Error.Type)
		})
	}
}

func TestAuthMiddleware_JWTMode(t *testing.T) {
	validator := &mockValidator{ValidateFunc: func(_ context.Context, raw string) (*authvalidator.Claims, error) {
		if raw != "good-token" {
			return nil, errors.New("bad signature")
		}
		return &authvalidator.Claims{Subject: "user-sub", Email: "u@example.com"}, nil
	}}
	engine := newEngine(AuthMiddleware(validator, zerolog.Nop()))

	tests := []struct {
		name       string
		header     string
		userHeader string
		wantStatus int
	}{
		{name: "valid bearer", header: "Bearer good-token", wantStatus: http.StatusOK},
		{name: "lowercase scheme", header: "bearer good-token", wantStatus: http.StatusOK},
		{name: "invalid token", header: "Bearer forged", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "user header ignored when jwt required", userHeader: "U1", wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.userHeader != "" {
				req.Header.Set(UserIDHeader, tt.userHeader)
			}
			engine.ServeHTTP(rec, req)
			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.JSONEq(t, `"user-sub"`, mustField(t, rec.Body.Bytes(), "user_id"))
				assert.Equal(t, string(identity.AuthMethodJWT), rec.Header().Get("X-Auth-Method"))
			}
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter, err := NewRateLimiter(60, 2)
	require.NoError(t, err)
	engine := newEngine(AuthMiddleware(nil, zerolog.Nop()), RateLimitMiddleware(limiter))

	do := func(user string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(UserIDHeader, user)
		engine.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("U1"))
	assert.Equal(t, http.StatusOK, do("U1"))
	assert.Equal(t, http.StatusTooManyRequests, do("U1"))
	assert.Equal(t, http.StatusOK, do("U2"), "budgets are per user")
}

func TestNewRateLimiter_Disabled(t *testing.T) {
	limiter, err := NewRateLimiter(0, 10)
	require.NoError(t, err)
	assert.Nil(t, limiter)

	engine := newEngine(AuthMiddleware(nil, zerolog.Nop()), RateLimitMiddleware(limiter))
	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set(UserIDHeader, "U1")
		engine.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		origin     string
		wantOrigin string
	}{
		{name: "listed origin echoed", allowed: []string{"http://localhost:3000"}, origin: "http://localhost:3000", wantOrigin: "http://localhost:3000"},
		{name: "unlisted origin ignored", allowed: []string{"http://localhost:3000"}, origin: "http://evil.test", wantOrigin: ""},
		{name: "wildcard", allowed: []string{"*"}, origin: "http://any.test", wantOrigin: "*"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newEngine(CORSMiddleware(tt.allowed))
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodOptions, "/whoami", nil)
			req.Header.Set("Origin", tt.origin)
			engine.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func mustField(t *testing.T, body []byte, field string) string {
	t.Helper()
	var payload map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &payload))
	return string(payload[field])
}

func TestLoggingMiddleware_IncludesTraceContext(t *testing.T) {
	previous := otel.GetTracerProvider()
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(previous)
	})

	var buf bytes.Buffer
	engine := newEngine(LoggingMiddleware(zerolog.New(&buf)), TracingMiddleware("chat-api-test"), AuthMiddleware(nil, zerolog.Nop()))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(UserIDHeader, "u1")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Len(t, line["trace_id"], 32)
	assert.Len(t, line["span_id"], 16)
	assert.Equal(t, "u1", line["user_id"])
	assert.Equal(t, float64(http.StatusOK), line["status"])
}

func TestLoggingMiddleware_WithoutSpanOmitsTraceContext(t *testing.T) {
	var buf bytes.Buffer
	engine := newEngine(LoggingMiddleware(zerolog.New(&buf)))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.NotContains(t, line, "trace_id")
	assert.NotContains(t, line, "span_id")
}
