package identity

import (
	"context"
	"strings"

	"jan-server/services/chat-api/internal/utils/platformerrors"
)

// UserID is the stable identifier of an authenticated user. Every store and controller
// operation takes it explicitly.
type UserID string

// IsZero reports whether the id is empty.
func (u UserID) IsZero() bool {
	return strings.TrimSpace(string(u)) == ""
}

func (u UserID) String() string {
	return string(u)
}

// AuthMethod describes how a caller authenticated with the API.
type AuthMethod string

const (
	AuthMethodJWT    AuthMethod = "jwt"
	AuthMethodHeader AuthMethod = "header"
)

// Principal captures normalized caller identity independent of auth mechanism.
type Principal struct {
	ID         UserID
	AuthMethod AuthMethod
	Subject    string
	Issuer     string
	Username   string
	Email      string
	Name       string
	Scopes     []string
}

// AuthProvider resolves the current user for a request.
type AuthProvider interface {
	CurrentUserID(ctx context.Context) (UserID, error)
}

type principalKey struct{}

// WithPrincipal returns a context carrying principal.
func WithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// PrincipalFromContext returns the principal stored by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	principal, ok := ctx.Value(principalKey{}).(Principal)
	return principal, ok
}

// ContextAuthProvider reads the principal placed on the request context by the auth middleware.
type ContextAuthProvider struct{}

func NewContextAuthProvider() *ContextAuthProvider {
	return &ContextAuthProvider{}
}

// CurrentUserID implements AuthProvider.
func (ContextAuthProvider) CurrentUserID(ctx context.Context) (UserID, error) {
	principal, ok := PrincipalFromContext(ctx)
	if !ok || principal.ID.IsZero() {
		return "", ErrUnauthenticated(ctx)
	}
	return principal.ID, nil
}

// ErrUnauthenticated builds the error returned whenever no valid identity is present.
func ErrUnauthenticated(ctx context.Context) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnauthorized, "authentication required", nil, "0d147ec2-9e47-482b-8af2-13123a18794e")
}

// Require returns an Unauthorized error when userID is empty.
func Require(ctx context.Context, userID UserID) error {
	if userID.IsZero() {
		return ErrUnauthenticated(ctx)
	}
	return nil
}
