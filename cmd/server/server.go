package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"jan-server/services/chat-api/internal/config"
	"jan-server/services/chat-api/internal/infrastructure/metrics"
	"jan-server/services/chat-api/internal/interfaces/httpserver"
)

const shutdownTimeout = 15 * time.Second

type Application struct {
	httpServer *httpserver.HTTPServer
	config     *config.Config
	log        zerolog.Logger
}

// @title Atlas Chat API
// @version 1.0
// @description Multi-provider chat API with conversation management, streamed responses and title synthesis.
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func (application *Application) Start(ctx context.Context) error {
	apiServer := application.httpServer.Server()
	opsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", application.config.MetricsPort),
		Handler:           opsMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		application.log.Info().Str("addr", apiServer.Addr).Msg("HTTP server listening")
		return serve(apiServer)
	})
	eg.Go(func() error {
		application.log.Info().Str("addr", opsServer.Addr).Msg("metrics server listening")
		return serve(opsServer)
	})
	eg.Go(func() error {
		<-ctx.Done()
		application.log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(apiServer.Shutdown(shutdownCtx), opsServer.Shutdown(shutdownCtx))
	})
	return eg.Wait()
}

func serve(server *http.Server) error {
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func opsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}
