package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/chat-api/internal/utils/platformerrors"
)

func serve(t *testing.T, handler gin.HandlerFunc) (int, ErrorResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set(requestIDKey, "req-1")
	handler(c)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	return rec.Code, body
}

func TestHandleError(t *testing.T) {
	ctx := context.Background()
	notFound := platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "conversation not found", nil, "code-404")

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantType    string
		wantMessage string
		wantCode    string
	}{
		{
			name:        "not found keeps the domain message",
			err:         platformerrors.AsError(ctx, platformerrors.LayerHandler, notFound, "failed to get conversation"),
			wantStatus:  http.StatusNotFound,
			wantType:    "not_found_error",
			wantMessage: "conversation not found",
			wantCode:    "code-404",
		},
		{
			name:        "upstream failure gets the generic message",
			err:         platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, "completion provider failed", errors.New("dial tcp: refused"), "code-502"),
			wantStatus:  http.StatusBadGateway,
			wantType:    "external_error",
			wantMessage: "chat request failed",
			wantCode:    "code-502",
		},
		{
			name:        "persistence failure",
			err:         platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "insert failed", errors.New("pq: broken"), "code-500"),
			wantStatus:  http.StatusInternalServerError,
			wantType:    "persistence_error",
			wantMessage: "chat request failed",
			wantCode:    "code-500",
		},
		{
			name:        "plain error is internal",
			err:         errors.New("boom"),
			wantStatus:  http.StatusInternalServerError,
			wantType:    "internal_error",
			wantMessage: "chat request failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := serve(t, func(c *gin.Context) { HandleError(c, tt.err, "chat request failed") })
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantType, body.Error.Type)
			assert.Equal(t, tt.wantMessage, body.Error.Message)
			assert.Equal(t, "req-1", body.Error.RequestID)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body.Error.Code)
			} else {
				assert.NotEmpty(t, body.Error.Code)
			}
		})
	}
}

func TestHandleNewError(t *testing.T) {
	status, body := serve(t, func(c *gin.Context) {
		HandleNewError(c, platformerrors.ErrorTypeValidation, "invalid request body", "code-400")
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", body.Error.Type)
	assert.Equal(t, "code-400", body.Error.Code)
}

func TestHandleErrorWithStatus(t *testing.T) {
	status, body := serve(t, func(c *gin.Context) {
		HandleErrorWithStatus(c, http.StatusTooManyRequests, nil, "too many requests")
	})
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "rate_limited_error", body.Error.Type)
}
