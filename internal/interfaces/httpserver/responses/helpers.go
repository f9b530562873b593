package responses

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jan-server/services/chat-api/internal/infrastructure/logger"
	"jan-server/services/chat-api/internal/utils/platformerrors"
)

const requestIDKey = "X-Request-Id"

// HandleError logs err and writes the error envelope. Platform errors keep their type and code;
// anything else is reported as an internal error. The wrapped cause never reaches the client.
func HandleError(c *gin.Context, err error, message string) {
	pe := platformerrors.GetPlatformError(err)
	if pe == nil {
		pe = platformerrors.NewError(c.Request.Context(), platformerrors.LayerHandler, platformerrors.ErrorTypeInternal, message, err, "")
	}
	if pe.RequestID == "" {
		pe.RequestID = requestID(c)
	}
	platformerrors.LogError(logger.GetLogger(), pe)

	userMessage := message
	switch pe.Type {
	case platformerrors.ErrorTypeValidation, platformerrors.ErrorTypeNotFound, platformerrors.ErrorTypeConflict,
		platformerrors.ErrorTypeUnauthorized, platformerrors.ErrorTypeForbidden:
		userMessage = rootMessage(pe)
	}
	if userMessage == "" {
		userMessage = pe.Message
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(platformerrors.ErrorTypeToHTTPStatus(pe.Type), ErrorResponse{
		Error: &ErrorDetail{
			Message:   userMessage,
			Type:      platformerrors.ErrorTypeToString(pe.Type),
			Code:      pe.UUID,
			RequestID: pe.RequestID,
		},
	})
}

// HandleErrorWithStatus writes an error envelope with an explicit status code.
func HandleErrorWithStatus(c *gin.Context, statusCode int, err error, message string) {
	if err != nil {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		Error: &ErrorDetail{
			Message:   message,
			Type:      statusToErrorType(statusCode),
			RequestID: requestID(c),
		},
	})
}

// HandleNewError writes a typed error raised at the route level, such as a malformed body.
func HandleNewError(c *gin.Context, errorType platformerrors.ErrorType, message string, code ...string) {
	detail := &ErrorDetail{
		Message:   message,
		Type:      platformerrors.ErrorTypeToString(errorType),
		RequestID: requestID(c),
	}
	if len(code) > 0 {
		detail.Code = code[0]
	}
	c.AbortWithStatusJSON(platformerrors.ErrorTypeToHTTPStatus(errorType), ErrorResponse{Error: detail})
}

func statusToErrorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return platformerrors.ErrorTypeToString(platformerrors.ErrorTypeValidation)
	case http.StatusUnauthorized:
		return platformerrors.ErrorTypeToString(platformerrors.ErrorTypeUnauthorized)
	case http.StatusForbidden:
		return platformerrors.ErrorTypeToString(platformerrors.ErrorTypeForbidden)
	case http.StatusNotFound:
		return platformerrors.ErrorTypeToString(platformerrors.ErrorTypeNotFound)
	case http.StatusConflict:
		return platformerrors.ErrorTypeToString(platformerrors.ErrorTypeConflict)
	case http.StatusTooManyRequests:
		return platformerrors.ErrorTypeToString(platformerrors.ErrorTypeRateLimited)
	case http.StatusBadGateway:
		return platformerrors.ErrorTypeToString(platformerrors.ErrorTypeExternal)
	default:
		return platformerrors.ErrorTypeToString(platformerrors.ErrorTypeInternal)
	}
}

// rootMessage returns the message of the innermost platform error, which is the one written for
// the caller rather than a chain of layer prefixes.
func rootMessage(pe *platformerrors.PlatformError) string {
	for {
		inner := platformerrors.GetPlatformError(pe.Err)
		if inner == nil {
			return pe.Message
		}
		pe = inner
	}
}

func requestID(c *gin.Context) string {
	if id := c.GetString(requestIDKey); id != "" {
		return id
	}
	return platformerrors.RequestIDFromContext(c.Request.Context())
}
