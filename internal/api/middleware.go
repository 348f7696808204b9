package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eigerco/homestore/pkg/log"
)

// requestID propagates a client supplied X-Request-ID or assigns a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.New().String()
		}
		c.Set(contextKeyRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// accessLog writes one line per request once the response is complete.
func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := log.HTTP.Info()
		if status >= http.StatusInternalServerError {
			ev = log.HTTP.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Str("request_id", c.GetString(contextKeyRequestID)).
			Msg("request")
	}
}

func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		done := s.metrics.RequestStarted()
		defer done()

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.RecordRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// recovery turns a handler panic into a 500 with the usual error body.
func recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		log.HTTP.Error().
			Interface("panic", recovered).
			Str("path", c.Request.URL.Path).
			Str("request_id", c.GetString(contextKeyRequestID)).
			Msg("handler panicked")
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: msgInternal})
	})
}

// altSvc advertises the HTTP/3 endpoint on responses served over TCP.
func (s *Server) altSvc() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ProtoMajor < 3 {
			_ = s.http3.SetQUICHeaders(c.Writer.Header())
		}
		c.Next()
	}
}
