package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"jan-server/services/chat-api/internal/infrastructure/logger"
	"jan-server/services/chat-api/internal/infrastructure/observability"
)

func main() {
	if err := run(); err != nil {
		log := logger.GetLogger()
		log.Fatal().Err(err).Msg("server stopped with error")
	}
}

func run() error {
	log := logger.GetLogger()
	// Values already in the environment win over .env files.
	for _, path := range []string{".env", "../.env"} {
		if err := godotenv.Load(path); err == nil {
			log.Debug().Str("path", path).Msg("loaded env file")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, cleanup, err := CreateApplication()
	if err != nil {
		return err
	}
	defer cleanup()
	log = application.log

	otelShutdown, err := observability.Setup(ctx, application.config, log)
	if err != nil {
		log.Error().Err(err).Msg("initialize observability")
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otelShutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("shutdown telemetry")
			}
		}()
	}

	if err := application.Start(ctx); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
