package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"weddingplanners/api/internal/metrics"
)

const (
	// HeaderRequestID carries the id assigned to each request.
	HeaderRequestID = "X-Request-ID"
	// HeaderPlannerSource tells clients whether a listing came from the store
	// or from the fallback data.
	HeaderPlannerSource = "X-Planner-Source"
	// ContextKeyRequestID is the gin context key holding the request id.
	ContextKeyRequestID = "request_id"

	unmatchedRoute = "unmatched"
)

// RequestLogger assigns a request id, logs each request once it completes and
// counts it by route.
func RequestLogger(log zerolog.Logger, rec metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(ContextKeyRequestID, requestID)
		c.Header(HeaderRequestID, requestID)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		status := c.Writer.Status()
		rec.ObserveRequest(c.Request.Method, route, status)

		var event *zerolog.Event
		switch {
		case status >= 500:
			event = log.Error()
		case status >= 400:
			event = log.Warn()
		default:
			event = log.Info()
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(startTime)).
			Str("client_ip", c.ClientIP()).
			Msg("request handled")
	}
}
