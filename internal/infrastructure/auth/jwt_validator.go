package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"jan-server/services/chat-api/internal/domain/identity"
)

// Claims represent the subset of JWT claims the API uses.
type Claims struct {
	Subject           string
	Issuer            string
	Audience          []string
	PreferredUsername string
	Email             string
	Name              string
	Scopes            []string
	ExpiresAt         time.Time
}

// Principal converts the claims into the request principal. The subject is the user id.
func (c *Claims) Principal() identity.Principal {
	return identity.Principal{
		ID:         identity.UserID(c.Subject),
		AuthMethod: identity.AuthMethodJWT,
		Subject:    c.Subject,
		Issuer:     c.Issuer,
		Username:   c.PreferredUsername,
		Email:      c.Email,
		Name:       c.Name,
		Scopes:     c.Scopes,
	}
}

// JWTValidator validates bearer tokens against a JWKS endpoint.
type JWTValidator struct {
	issuer       string
	audience     string
	jwksURL      string
	logger       zerolog.Logger
	refreshEvery time.Duration
	clockSkew    time.Duration
	now          func() time.Time
	jwks         atomic.Pointer[keyfunc.JWKS]
	lastErr      atomic.Value // lastErrWrap
}

// lastErrWrap avoids storing a bare nil in atomic.Value.
type lastErrWrap struct{ Err error }

const (
	jwksInitialRetryInterval   = time.Second
	jwksInitialRetryMaxBackoff = 10 * time.Second
	jwksInitialRetryTimeout    = 2 * time.Minute
)

// NewJWTValidator fetches the key set, retrying with backoff, and keeps it refreshed.
func NewJWTValidator(ctx context.Context, jwksURL, issuer, audience string, refreshEvery, clockSkew time.Duration, logger zerolog.Logger) (*JWTValidator, error) {
	if jwksURL == "" {
		return nil, errors.New("jwks url is required")
	}
	v := newJWTValidator(issuer, audience, clockSkew, logger)
	v.jwksURL = jwksURL
	v.refreshEvery = refreshEvery
	if err := v.initJWKS(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

func newJWTValidator(issuer, audience string, clockSkew time.Duration, logger zerolog.Logger) *JWTValidator {
	v := &JWTValidator{
		issuer:    issuer,
		audience:  audience,
		clockSkew: clockSkew,
		logger:    logger.With().Str("component", "jwt-validator").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	v.lastErr.Store(lastErrWrap{})
	return v
}

func (v *JWTValidator) initJWKS(ctx context.Context) error {
	options := keyfunc.Options{
		Ctx: ctx,
		RefreshErrorHandler: func(err error) {
			v.lastErr.Store(lastErrWrap{Err: err})
			if err != nil {
				v.logger.Error().Err(err).Msg("jwks refresh failed")
			}
		},
		RefreshInterval:   v.refreshEvery,
		RefreshUnknownKID: true,
	}

	backoff := jwksInitialRetryInterval
	deadline := time.Now().Add(jwksInitialRetryTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	for attempt := 1; ; attempt++ {
		jwks, err := keyfunc.Get(v.jwksURL, options)
		if err == nil {
			v.lastErr.Store(lastErrWrap{})
			v.jwks.Store(jwks)
			return nil
		}

		v.logger.Warn().
			Err(err).
			Str("jwks_url", v.jwksURL).
			Int("attempt", attempt).
			Msg("initial jwks fetch failed, retrying")

		select {
		case <-ctx.Done():
			return fmt.Errorf("fetch jwks: %w", ctx.Err())
		case <-time.After(backoff):
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("fetch jwks: %w", err)
		}
		backoff = min(backoff*2, jwksInitialRetryMaxBackoff)
	}
}

// Validate parses rawToken and checks signature, issuer, audience and validity window.
func (v *JWTValidator) Validate(_ context.Context, rawToken string) (*Claims, error) {
	jwks := v.jwks.Load()
	if jwks == nil {
		return nil, errors.New("jwks not initialised")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithoutClaimsValidation(),
	)
	token, err := parser.ParseWithClaims(rawToken, jwt.MapClaims{}, jwks.Keyfunc)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	iss, _ := mapClaims["iss"].(string)
	if iss != v.issuer {
		return nil, fmt.Errorf("issuer mismatch %s", iss)
	}

	audiences, err := v.checkAudience(mapClaims["aud"])
	if err != nil {
		return nil, err
	}

	sub, _ := mapClaims["sub"].(string)
	if sub == "" {
		return nil, errors.New("sub claim missing")
	}

	expires := jwtNumericTime(mapClaims["exp"])
	notBefore := jwtNumericTime(mapClaims["nbf"])
	now := v.now()
	if expires.IsZero() {
		return nil, errors.New("exp claim missing")
	}
	if now.After(expires.Add(v.clockSkew)) {
		return nil, errors.New("token expired")
	}
	if !notBefore.IsZero() && now.Add(v.clockSkew).Before(notBefore) {
		return nil, errors.New("token not yet valid")
	}

	var scopes []string
	if scopeStr, ok := mapClaims["scope"].(string); ok && scopeStr != "" {
		scopes = strings.Fields(scopeStr)
	}

	return &Claims{
		Subject:           sub,
		Issuer:            iss,
		Audience:          audiences,
		PreferredUsername: claimString(mapClaims["preferred_username"]),
		Email:             claimString(mapClaims["email"]),
		Name:              claimString(mapClaims["name"]),
		Scopes:            scopes,
		ExpiresAt:         expires,
	}, nil
}

// checkAudience accepts a string or list aud claim. An unset expected audience accepts any.
func (v *JWTValidator) checkAudience(raw any) ([]string, error) {
	var audiences []string
	switch val := raw.(type) {
	case nil:
	case string:
		audiences = append(audiences, val)
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok {
				audiences = append(audiences, s)
			}
		}
	default:
		return nil, fmt.Errorf("aud claim unsupported type %T", val)
	}

	if v.audience == "" {
		return audiences, nil
	}
	for _, aud := range audiences {
		if aud == v.audience {
			return audiences, nil
		}
	}
	return nil, errors.New("audience mismatch")
}

// Ready indicates whether JWKS has been loaded and the last refresh succeeded.
func (v *JWTValidator) Ready() bool {
	if v.jwks.Load() == nil {
		return false
	}
	if wrap, ok := v.lastErr.Load().(lastErrWrap); ok && wrap.Err != nil {
		return false
	}
	return true
}

func jwtNumericTime(value any) time.Time {
	switch timeValue := value.(type) {
	case float64:
		return time.Unix(int64(timeValue), 0).UTC()
	case int64:
		return time.Unix(timeValue, 0).UTC()
	case json.Number:
		if unixTime, err := timeValue.Int64(); err == nil {
			return time.Unix(unixTime, 0).UTC()
		}
	}
	return time.Time{}
}

func claimString(value any) string {
	if str, ok := value.(string); ok {
		return str
	}
	return ""
}
