package middelware

import (
	"errors"
	"net/http"
	"time"

	"taller-backend/models"
	"taller-backend/utils/logger"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

var errPanic = errors.New("handler panicked")

// LoggingMiddleware provides request logging
type LoggingMiddleware struct {
	logger    logger.Logger
	skipPaths map[string]bool
}

// NewLoggingMiddleware creates a new logging middleware
func NewLoggingMiddleware(log logger.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{
		logger:    log,
		skipPaths: map[string]bool{"/health": true},
	}
}

// StructuredLogger logs one line per request with the caller and trace id
func (m *LoggingMiddleware) StructuredLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		if m.skipPaths[path] {
			return
		}

		fields := map[string]interface{}{
			"method":  c.Request.Method,
			"path":    path,
			"route":   c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		}
		if actor, ok := ActorFromContext(c); ok {
			fields["user_id"] = actor.UserID
			fields["role"] = actor.Role
		}
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			m.logger.Errorf("HTTP request completed with error: %+v", fields)
		case status >= 400:
			m.logger.Warnf("HTTP request completed with client error: %+v", fields)
		default:
			m.logger.Infof("HTTP request completed successfully: %+v", fields)
		}
	}
}

// Recovery turns a handler panic into a 500 envelope
func (m *LoggingMiddleware) Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		m.logger.Errorf("Panic recovered on %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.APIResponse{
			Status:  "error",
			Code:    http.StatusInternalServerError,
			Message: "Internal Server Error",
			Error:   models.Describe(errPanic),
		})
	})
}
