// Package middleware provides the gin middleware chain used by the service:
// request IDs, access logging, panic recovery, and CORS.
package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/abhyasam/pkg/utils/errors"
	"github.com/kart-io/abhyasam/pkg/utils/id"
	"github.com/kart-io/abhyasam/pkg/utils/response"
)

// RequestIDKey is the context key and response header for request IDs.
const RequestIDKey = "X-Request-ID"

// RequestID assigns a ULID to each request unless the client provided one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDKey)
		if rid == "" {
			rid = id.NewULID()
		}
		c.Set(RequestIDKey, rid)
		c.Header(RequestIDKey, rid)
		c.Next()
	}
}

// GetRequestID returns the request ID assigned by RequestID, if any.
func GetRequestID(c *gin.Context) string {
	if rid, ok := c.Get(RequestIDKey); ok {
		if s, ok := rid.(string); ok {
			return s
		}
	}
	return ""
}

// AccessLog logs one structured line per request.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Infow("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"request_id", GetRequestID(c),
		)
	}
}

// Recovery converts panics into 500 responses instead of dropping connections.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorw("panic recovered",
					"panic", r,
					"path", c.Request.URL.Path,
					"request_id", GetRequestID(c),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					response.Err(errors.ErrInternal).WithRequestID(GetRequestID(c)))
			}
		}()
		c.Next()
	}
}

// CORS allows browser clients on other origins to call the API.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, "+RequestIDKey)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
