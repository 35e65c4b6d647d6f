package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	headerUserID = "X-User-ID"
	headerAdmin  = "X-Admin"

	ctxUserID = "user_id"
)

// RequestLogger logs one line per request with the active trace id.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Info("http request",
			zap.String("trace_id", TraceID(c)),
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("route", c.FullPath()),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// TraceID returns the trace id of the request span, or "" outside a sampled trace.
func TraceID(c *gin.Context) string {
	sc := trace.SpanFromContext(c.Request.Context()).SpanContext()
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// RequireUser rejects requests that do not name the calling user.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerUserID)
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "message": headerUserID + " header is required"})
			return
		}
		c.Set(ctxUserID, id)
		c.Next()
	}
}

// RequireAdmin rejects requests without the admin marker.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ok, _ := strconv.ParseBool(c.GetHeader(headerAdmin)); !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "admin access required"})
			return
		}
		c.Next()
	}
}

func userID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}
