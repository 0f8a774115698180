package tracing

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/MangaColor/coordinator/internal/shared/id"
)

// Header carries the request ID across hops
const Header = "X-Request-ID"

// maxIncomingLength bounds adopted client IDs
const maxIncomingLength = 128

type contextKey string

const requestIDKey contextKey = "request_id"

// WithRequestID returns a context carrying rid
func WithRequestID(ctx context.Context, rid id.RequestID) context.Context {
	return context.WithValue(ctx, requestIDKey, rid)
}

// RequestID retrieves the request ID from context
func RequestID(ctx context.Context) id.RequestID {
	if ctx == nil {
		return ""
	}
	if rid, ok := ctx.Value(requestIDKey).(id.RequestID); ok {
		return rid
	}
	return ""
}

// RequestIDOrNew returns the request ID in ctx, minting one when absent
func RequestIDOrNew(ctx context.Context) id.RequestID {
	if rid := RequestID(ctx); rid != "" {
		return rid
	}
	return id.NewRequestID()
}

// HTTPMiddleware creates Gin middleware that assigns request IDs and logs
// each completed request
func HTTPMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		rid := id.RequestID(c.GetHeader(Header))
		if rid == "" || len(rid) > maxIncomingLength {
			rid = id.NewRequestID()
		}

		c.Request = c.Request.WithContext(WithRequestID(c.Request.Context(), rid))
		c.Header(Header, rid.String())

		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("request_id", rid.String()),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			logger.Warn("Observer request completed with errors", append(fields, zap.Error(c.Errors.Last()))...)
			return
		}
		logger.Debug("Observer request completed", fields...)
	}
}
