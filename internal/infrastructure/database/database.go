package database

import (
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
	"gorm.io/plugin/dbresolver"

	"jan-server/services/chat-api/internal/infrastructure/logger"
)

const (
	SchemaName  = "chat_api"
	TablePrefix = SchemaName + "."
)

// Config holds database configuration
type Config struct {
	WriteDSN    string
	ReadDSNs    []string
	MaxIdle     int
	MaxOpen     int
	MaxLifetime time.Duration
	LogLevel    gormlogger.LogLevel
}

// Connect opens the primary connection and registers read replicas, if any.
func Connect(cfg Config) (*gorm.DB, error) {
	log := logger.GetLogger()

	db, err := gorm.Open(postgres.Open(cfg.WriteDSN), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			TablePrefix: TablePrefix,
		},
		Logger: gormlogger.Default.LogMode(cfg.LogLevel),
	})
	if err != nil {
		log.Error().
			Str("error_code", "0c06e201-a8ee-4c78-b2b6-646d499c5650").
			Err(err).
			Msg("unable to connect to database")
		return nil, err
	}

	replicas := make([]gorm.Dialector, 0, len(cfg.ReadDSNs))
	for _, dsn := range cfg.ReadDSNs {
		if dsn != "" {
			replicas = append(replicas, postgres.Open(dsn))
		}
	}
	if len(replicas) > 0 {
		resolver := dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		}).
			SetMaxIdleConns(cfg.MaxIdle).
			SetMaxOpenConns(cfg.MaxOpen).
			SetConnMaxLifetime(cfg.MaxLifetime)
		if err := db.Use(resolver); err != nil {
			return nil, err
		}
		log.Info().Int("replicas", len(replicas)).Msg("Registered read replicas")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdle)
	sqlDB.SetMaxOpenConns(cfg.MaxOpen)
	sqlDB.SetConnMaxLifetime(cfg.MaxLifetime)

	log.Info().Msg("Successfully connected to database")
	return db, nil
}
