package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"jan-server/services/chat-api/internal/config"
	middleware "jan-server/services/chat-api/internal/interfaces/httpserver/middlewares"
	v1 "jan-server/services/chat-api/internal/interfaces/httpserver/routes/v1"

	_ "jan-server/services/chat-api/docs/swagger"
)

const readinessTimeout = 2 * time.Second

// ReadinessCheck reports whether one dependency can serve traffic.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type HTTPServer struct {
	engine  *gin.Engine
	v1Route *v1.V1Route
	config  *config.Config
	checks  []ReadinessCheck
}

// NewHttpServer builds the engine and mounts every route. A nil validator means callers are
// identified by the X-User-ID header.
func NewHttpServer(
	v1Route *v1.V1Route,
	cfg *config.Config,
	logger zerolog.Logger,
	validator middleware.TokenValidator,
	limiter *middleware.RateLimiter,
	checks []ReadinessCheck,
) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)
	server := HTTPServer{
		engine:  gin.New(),
		v1Route: v1Route,
		config:  cfg,
		checks:  checks,
	}
	server.engine.Use(gin.Recovery())
	server.engine.Use(middleware.RequestID())
	server.engine.Use(middleware.TracingMiddleware(cfg.ServiceName))
	server.engine.Use(middleware.LoggingMiddleware(logger))
	server.engine.Use(middleware.MetricsMiddleware())
	server.engine.Use(middleware.CORSMiddleware(cfg.CORSAllowedOrigins))

	server.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	server.engine.GET("/readyz", server.readyz)

	if cfg.EnableSwagger {
		server.engine.GET("/v1/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	root := server.engine.Group("/")
	v1Route.RegisterPublicRouter(root)

	protected := server.engine.Group("/")
	protected.Use(
		middleware.AuthMiddleware(validator, logger),
		middleware.RateLimitMiddleware(limiter),
	)
	v1Route.RegisterRouter(protected)

	return &server
}

// Handler exposes the engine for http.Server and tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

// Server returns an http.Server bound to HTTP_PORT. Write timeouts stay unset because chat
// responses are long-lived streams.
func (s *HTTPServer) Server() *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.HTTPPort),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func (s *HTTPServer) readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	failed := gin.H{}
	for _, check := range s.checks {
		if err := check.Check(ctx); err != nil {
			failed[check.Name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "checks": failed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
