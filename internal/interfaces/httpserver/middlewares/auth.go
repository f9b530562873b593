package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"jan-server/services/chat-api/internal/domain/identity"
	authvalidator "jan-server/services/chat-api/internal/infrastructure/auth"
	"jan-server/services/chat-api/internal/interfaces/httpserver/responses"
)

const (
	principalContextKey = "principal"
	// UserIDHeader identifies the caller when JWT auth is disabled (local development and
	// deployments behind an authenticating gateway).
	UserIDHeader = "X-User-ID"
)

var errNoCredentials = errors.New("no credentials")

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	Validate(ctx context.Context, rawToken string) (*authvalidator.Claims, error)
}

// AuthMiddleware resolves the caller. With a validator every request needs a valid bearer token;
// without one the X-User-ID header is trusted.
func AuthMiddleware(validator TokenValidator, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			principal identity.Principal
			err       error
		)
		if validator != nil {
			principal, err = principalFromJWT(c, validator)
		} else {
			principal, err = principalFromHeader(c)
		}

		if err != nil {
			if !errors.Is(err, errNoCredentials) {
				logger.Warn().Err(err).Str("path", c.FullPath()).Msg("jwt validation failed")
			}
			responses.HandleErrorWithStatus(c, http.StatusUnauthorized, err, "authentication required")
			return
		}

		setPrincipal(c, principal)
		c.Next()
	}
}

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(c *gin.Context) (identity.Principal, bool) {
	val, ok := c.Get(principalContextKey)
	if !ok {
		return identity.Principal{}, false
	}
	principal, ok := val.(identity.Principal)
	return principal, ok
}

func setPrincipal(c *gin.Context, principal identity.Principal) {
	c.Set(principalContextKey, principal)
	c.Set("user_id", principal.ID.String())
	c.Request = c.Request.WithContext(identity.WithPrincipal(c.Request.Context(), principal))
	c.Writer.Header().Set("X-Auth-Method", string(principal.AuthMethod))
}

func principalFromHeader(c *gin.Context) (identity.Principal, error) {
	userID := identity.UserID(strings.TrimSpace(c.GetHeader(UserIDHeader)))
	if userID.IsZero() {
		return identity.Principal{}, errNoCredentials
	}
	return identity.Principal{
		ID:         userID,
		AuthMethod: identity.AuthMethodHeader,
		Subject:    userID.String(),
	}, nil
}

func principalFromJWT(c *gin.Context, validator TokenValidator) (identity.Principal, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return identity.Principal{}, errNoCredentials
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return identity.Principal{}, errNoCredentials
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return identity.Principal{}, errNoCredentials
	}
	claims, err := validator.Validate(c.Request.Context(), token)
	if err != nil {
		return identity.Principal{}, err
	}
	return claims.Principal(), nil
}
