// Package httpclients builds the outbound HTTP clients used by the terminal client.
package httpclients

import (
	"context"
	"time"

	"resty.dev/v3"

	"jan-server/services/chat-api/internal/infrastructure/logger"
	"jan-server/services/chat-api/internal/utils/platformerrors"
)

type httpClientStartsAt struct{}

const requestIDHeader = "X-Request-Id"

// NewClient returns a resty client that forwards the request id and logs every exchange.
func NewClient(clientName string, timeout time.Duration) *resty.Client {
	client := resty.New()
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	client.AddRequestMiddleware(func(c *resty.Client, r *resty.Request) error {
		ctx := context.WithValue(r.Context(), httpClientStartsAt{}, time.Now())
		if requestID := platformerrors.RequestIDFromContext(ctx); requestID != "" {
			r.SetHeader(requestIDHeader, requestID)
		}
		r.SetContext(ctx)
		return nil
	})
	client.AddResponseMiddleware(func(c *resty.Client, r *resty.Response) error {
		log := logger.GetLogger()
		startTime, _ := r.Request.Context().Value(httpClientStartsAt{}).(time.Time)

		event := log.Debug().
			Str("client", clientName).
			Int("status", r.StatusCode()).
			Str("request_id", r.Header().Get(requestIDHeader)).
			Dur("latency", time.Since(startTime))
		if raw := r.Request.RawRequest; raw != nil {
			event = event.Str("method", raw.Method).Str("path", raw.URL.Path)
		}
		event.Msg("HTTP client request")
		return nil
	})
	return client
}
