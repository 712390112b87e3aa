// Package requestlog emits one structured log line per HTTP request and
// stamps every request with an id carried through the context for auditing.
package requestlog

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ledgerly/ledgerly/internal/authcontext"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-Id"

// GinMiddleware logs the request outcome and stores request metadata in the
// context so downstream audit writes can record it.
func GinMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := ensureRequestID(c)
		meta := authcontext.RequestMeta{
			RequestID: requestID,
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		c.Request = c.Request.WithContext(authcontext.WithRequestMeta(c.Request.Context(), meta))

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", route),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.Int("bytes", c.Writer.Size()),
			zap.String("client_ip", meta.IPAddress),
		}
		if caller, ok := authcontext.CallerFromContext(c.Request.Context()); ok {
			fields = append(fields, zap.String("user_id", caller.UserID.String()))
		}
		if last := c.Errors.Last(); last != nil {
			fields = append(fields, zap.Error(last.Err))
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Error("http request", fields...)
		case status >= 400:
			log.Warn("http request", fields...)
		default:
			log.Info("http request", fields...)
		}
	}
}

// ensureRequestID trusts an inbound X-Request-Id when present so ids survive
// proxy hops, and mints a ULID otherwise.
func ensureRequestID(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(requestIDHeader)); id != "" && len(id) <= 64 {
		c.Header(requestIDHeader, id)
		return id
	}
	id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
	c.Header(requestIDHeader, id)
	return id
}
