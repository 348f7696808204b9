// Package api serves the store over HTTP. Every data route performs exactly
// one storage operation and answers only after it has committed.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/quic-go/quic-go/http3"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/eigerco/homestore/internal/config"
	"github.com/eigerco/homestore/internal/metrics"
	"github.com/eigerco/homestore/internal/store"
	"github.com/eigerco/homestore/internal/version"
	"github.com/eigerco/homestore/pkg/log"
)

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// Server holds the shared store handle and the loaded configuration. It has
// no other state and is safe for concurrent use.
type Server struct {
	config  config.Config
	store   *store.Store
	metrics *metrics.Metrics
	version string
	router  *gin.Engine
	http3   *http3.Server
}

// Option customizes a Server.
type Option func(*Server)

// WithMetrics records request and storage metrics and, when enabled in the
// configuration, serves them.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithVersion overrides the version reported by /health.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

func NewServer(cfg config.Config, st *store.Store, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		config:  cfg,
		store:   st,
		version: version.Version,
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.Server.HTTP3.Enabled {
		h3, err := s.newHTTP3Server()
		if err != nil {
			return nil, err
		}
		s.http3 = h3
	}

	s.router = s.newRouter()
	if s.http3 != nil {
		s.http3.Handler = s.router
	}
	return s, nil
}

func (s *Server) newRouter() *gin.Engine {
	r := gin.New()
	r.UseRawPath = true
	r.UnescapePathValues = true
	r.HandleMethodNotAllowed = true

	r.Use(requestID(), recovery(), accessLog(), s.observe())
	if s.config.Server.CORS {
		r.Use(cors.New(permissiveCORS()))
	}
	if s.http3 != nil {
		r.Use(s.altSvc())
	}

	register(r, s.restMethods())

	if s.config.Metrics.Enabled && s.metrics != nil {
		r.GET(s.config.Metrics.Path, gin.WrapH(s.metrics.Handler()))
	}

	r.NoRoute(func(c *gin.Context) {
		respondNotFound(c, msgNotFound)
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, ErrorResponse{Error: msgMethodNotAllowed})
	})
	return r
}

func permissiveCORS() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowMethods = []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions}
	cfg.AllowHeaders = []string{"*"}
	cfg.ExposeHeaders = []string{headerRequestID, "ETag"}
	return cfg
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves HTTP on addr, plus HTTP/3 when configured, and blocks until a
// listener fails or ctx is cancelled. On cancellation in-flight requests
// get the configured shutdown timeout to finish.
func (s *Server) Run(ctx context.Context, addr string) error {
	readTimeout, writeTimeout, shutdownTimeout := s.config.Server.Timeouts()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.HTTP.Info().Str("addr", ln.Addr().String()).Msg("HTTP server listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	if s.http3 != nil {
		g.Go(func() error {
			log.HTTP.Info().Str("addr", s.http3.Addr).Msg("HTTP/3 server listening")
			err := s.http3.ListenAndServe()
			if gctx.Err() != nil || errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("HTTP/3 server: %w", err)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.HTTP.Info().Msg("shutting down HTTP servers")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		if s.http3 != nil {
			err = multierr.Append(err, s.http3.Close())
		}
		return err
	})

	return g.Wait()
}
