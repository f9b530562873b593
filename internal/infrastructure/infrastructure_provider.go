package infrastructure

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"jan-server/services/chat-api/internal/config"
	"jan-server/services/chat-api/internal/domain/conversation"
	"jan-server/services/chat-api/internal/domain/provider"
	"jan-server/services/chat-api/internal/domain/title"
	"jan-server/services/chat-api/internal/infrastructure/auth"
	"jan-server/services/chat-api/internal/infrastructure/cache"
	"jan-server/services/chat-api/internal/infrastructure/database"
	"jan-server/services/chat-api/internal/infrastructure/database/repository/conversationrepo"
	"jan-server/services/chat-api/internal/infrastructure/database/transaction"
	"jan-server/services/chat-api/internal/infrastructure/inference"
	"jan-server/services/chat-api/internal/infrastructure/logger"
	"jan-server/services/chat-api/internal/infrastructure/memstore"
)

// ProvideConfig loads and provides the application configuration
func ProvideConfig() (*config.Config, error) {
	return config.Load()
}

// ProvideLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func ProvideLogger(cfg *config.Config) (zerolog.Logger, error) {
	return logger.New(cfg.LogLevel, cfg.LogFormat)
}

// ProvideDatabase opens Postgres when STORE_DRIVER=postgres. In memory mode it returns a nil
// handle and the store provider falls back to memstore.
func ProvideDatabase(cfg *config.Config, log zerolog.Logger) (*gorm.DB, func(), error) {
	if cfg.StoreDriver != config.StoreDriverPostgres {
		return nil, func() {}, nil
	}

	logLevel := gormlogger.Warn
	if cfg.LogLevel == "debug" {
		logLevel = gormlogger.Info
	}
	db, err := database.Connect(database.Config{
		WriteDSN:    cfg.DBPostgresqlWriteDSN,
		ReadDSNs:    []string{cfg.DBPostgresqlRead1DSN},
		MaxIdle:     cfg.DBMaxIdleConns,
		MaxOpen:     cfg.DBMaxOpenConns,
		MaxLifetime: cfg.DBConnMaxLifetime,
		LogLevel:    logLevel,
	})
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	if cfg.AutoMigrate {
		log.Info().Msg("Running database migrations...")
		if err := database.AutoMigrate(context.Background(), db); err != nil {
			log.Error().Err(err).Msg("Failed to run database migrations")
			cleanup()
			return nil, nil, err
		}
		log.Info().Msg("Database migrations completed successfully")
	}
	return db, cleanup, nil
}

// ProvideConversationStore picks the store matching STORE_DRIVER.
func ProvideConversationStore(cfg *config.Config, db *gorm.DB) conversation.Store {
	if cfg.StoreDriver == config.StoreDriverMemory || db == nil {
		return memstore.New()
	}
	return conversationrepo.NewConversationGormRepository(transaction.NewDatabase(db))
}

// ProvideRedisCache connects to REDIS_URL. Without one it returns nil.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, func(), error) {
	if cfg.RedisURL == "" {
		return nil, func() {}, nil
	}
	redisCache, err := cache.NewRedisCache(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return redisCache, func() { _ = redisCache.Close() }, nil
}

// ProvideTitleLocker uses Redis locks across replicas and an in-process lock otherwise.
func ProvideTitleLocker(redisCache *cache.RedisCache) title.Locker {
	if redisCache == nil {
		return cache.NewLocalLocker()
	}
	return redisCache
}

func ProvideCompletionRegistry(cfg *config.Config, log zerolog.Logger) (*inference.Registry, error) {
	return inference.NewRegistryFromConfig(context.Background(), cfg, log)
}

func ProvideCatalog(cfg *config.Config) *provider.Catalog {
	return cfg.Catalog
}

// ProvideJWTValidator returns nil when AUTH_ENABLED=false.
func ProvideJWTValidator(cfg *config.Config, log zerolog.Logger) (*auth.JWTValidator, error) {
	if !cfg.AuthEnabled {
		return nil, nil
	}
	return auth.NewJWTValidator(
		context.Background(),
		cfg.JWKSURL,
		cfg.Issuer,
		cfg.Audience,
		cfg.RefreshJWKSInterval,
		cfg.AuthClockSkew,
		log,
	)
}

// InfrastructureProvider provides all infrastructure dependencies
var InfrastructureProvider = wire.NewSet(
	// Config
	ProvideConfig,
	ProvideLogger,
	ProvideCatalog,

	// Storage
	ProvideDatabase,
	ProvideConversationStore,

	// Locks
	ProvideRedisCache,
	ProvideTitleLocker,

	// Provider registry
	ProvideCompletionRegistry,
	wire.Bind(new(provider.CompletionProvider), new(*inference.Registry)),

	// Auth
	ProvideJWTValidator,
)
