package platformerrors

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsErrorPreservesType(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	inner := NewError(ctx, LayerDomain, ErrorTypeNotFound, "conversation not found", nil, "code-1")

	wrapped := AsError(ctx, LayerHandler, inner, "load conversation")

	require.NotNil(t, wrapped)
	assert.Equal(t, ErrorTypeNotFound, wrapped.Type)
	assert.Equal(t, "code-1", wrapped.UUID)
	assert.Equal(t, "req-1", wrapped.RequestID)
	assert.True(t, IsNotFoundError(wrapped))
	assert.ErrorIs(t, wrapped, inner)
}

func TestAsErrorClassifiesPlainErrors(t *testing.T) {
	ctx := context.Background()

	assert.Nil(t, AsError(ctx, LayerDomain, nil, "noop"))
	assert.Equal(t, ErrorTypeDatabaseError, AsError(ctx, LayerRepository, errors.New("conn refused"), "insert").Type)
	assert.Equal(t, ErrorTypeTimeout, AsError(ctx, LayerDomain, context.DeadlineExceeded, "stream").Type)
	assert.Equal(t, ErrorTypeInternal, AsError(ctx, LayerDomain, errors.New("boom"), "x").Type)
}

func TestErrorTypeToHTTPStatus(t *testing.T) {
	tests := map[ErrorType]int{
		ErrorTypeUnauthorized:  http.StatusUnauthorized,
		ErrorTypeValidation:    http.StatusBadRequest,
		ErrorTypeExternal:      http.StatusBadGateway,
		ErrorTypeNotFound:      http.StatusNotFound,
		ErrorTypeDatabaseError: http.StatusInternalServerError,
		ErrorTypeRateLimited:   http.StatusTooManyRequests,
	}
	for errType, status := range tests {
		t.Run(string(errType), func(t *testing.T) {
			assert.Equal(t, status, ErrorTypeToHTTPStatus(errType))
		})
	}
}

func TestNewErrorGeneratesCode(t *testing.T) {
	err := NewError(context.Background(), LayerDomain, ErrorTypeValidation, "bad", nil, "")
	assert.NotEmpty(t, err.UUID)
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "[domain][VALIDATION]")
}

func TestErrorTypeFromString(t *testing.T) {
	for _, errType := range []ErrorType{ErrorTypeNotFound, ErrorTypeExternal, ErrorTypeDatabaseError, ErrorTypeRateLimited} {
		assert.Equal(t, errType, ErrorTypeFromString(ErrorTypeToString(errType)))
	}
	assert.Equal(t, ErrorTypeInternal, ErrorTypeFromString("teapot_error"))
}
