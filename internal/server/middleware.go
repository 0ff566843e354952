package server

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roach88/pulsegrid/internal/metrics"
)

// observe logs every request and records its metrics. The route label is
// the registered pattern, so row ids never become label values.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		metrics.RecordServerRequest(c.Request.Method, route, status, elapsed)

		attrs := []any{
			"method", c.Request.Method,
			"route", route,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", elapsed,
		}
		if last := c.Errors.Last(); last != nil {
			attrs = append(attrs, "error", last.Err)
		}
		switch {
		case status >= 500:
			s.logger.Error("request failed", attrs...)
		case status >= 400:
			s.logger.Warn("request rejected", attrs...)
		default:
			s.logger.Debug("request served", attrs...)
		}
	}
}

// recovery turns handler panics into 500 error bodies.
func (s *Server) recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("handler panic", "path", c.Request.URL.Path, "panic", r)
				writeError(c, http.StatusInternalServerError, fmt.Errorf("internal error"))
				c.Abort()
			}
		}()
		c.Next()
	}
}

func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.token == "" {
			c.Next()
			return
		}
		got, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) != 1 {
			writeError(c, http.StatusUnauthorized, errUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}
