package interfaces

import (
	"context"
	"errors"

	"github.com/google/wire"
	"gorm.io/gorm"

	"jan-server/services/chat-api/internal/config"
	"jan-server/services/chat-api/internal/infrastructure/auth"
	"jan-server/services/chat-api/internal/infrastructure/cache"
	"jan-server/services/chat-api/internal/interfaces/httpserver"
	middleware "jan-server/services/chat-api/internal/interfaces/httpserver/middlewares"
)

var InterfacesProvider = wire.NewSet(
	ProvideTokenValidator,
	ProvideRateLimiter,
	ProvideReadinessChecks,
	httpserver.NewHttpServer,
)

// ProvideTokenValidator returns a nil interface when auth is disabled so the middleware
// switches to header identification.
func ProvideTokenValidator(validator *auth.JWTValidator) middleware.TokenValidator {
	if validator == nil {
		return nil
	}
	return validator
}

func ProvideRateLimiter(cfg *config.Config) (*middleware.RateLimiter, error) {
	return middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
}

// ProvideReadinessChecks registers a check for every external dependency in use.
func ProvideReadinessChecks(db *gorm.DB, redisCache *cache.RedisCache, validator *auth.JWTValidator) []httpserver.ReadinessCheck {
	var checks []httpserver.ReadinessCheck
	if db != nil {
		checks = append(checks, httpserver.ReadinessCheck{
			Name: "database",
			Check: func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
		})
	}
	if redisCache != nil {
		checks = append(checks, httpserver.ReadinessCheck{Name: "redis", Check: redisCache.HealthCheck})
	}
	if validator != nil {
		checks = append(checks, httpserver.ReadinessCheck{
			Name: "jwks",
			Check: func(context.Context) error {
				if !validator.Ready() {
					return errors.New("jwks not loaded")
				}
				return nil
			},
		})
	}
	return checks
}
