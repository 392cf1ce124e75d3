// Package server exposes the environment instance registry over the v1 HTTP
// JSON surface.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/catherio/gym-http-api/internal/observability"
	"github.com/catherio/gym-http-api/internal/registry"
	"github.com/catherio/gym-http-api/internal/upload"
)

const serverName = "gym-http"

// Config holds the listen and lifecycle settings.
type Config struct {
	Addr         string
	CORSOrigins  []string
	DrainTimeout time.Duration
}

// DefaultConfig binds the service to its conventional loopback port.
func DefaultConfig() Config {
	return Config{
		Addr:         "127.0.0.1:5000",
		DrainTimeout: 10 * time.Second,
	}
}

// Server owns the router, the instance registry, and the shutdown signal.
type Server struct {
	cfg      Config
	registry *registry.Registry
	uploader *upload.Client
	router   *gin.Engine
	started  time.Time

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// New wires the middleware chain and the v1 routes around reg and uploader.
func New(cfg Config, reg *registry.Registry, uploader *upload.Client) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(serverName))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CORSOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		cfg:        cfg,
		registry:   reg,
		uploader:   uploader,
		router:     r,
		started:    time.Now(),
		shutdownCh: make(chan struct{}),
	}
	s.registerRoutes()
	return s
}

// Router exposes the engine for tests and in-process use.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) registerRoutes() {
	v1 := s.router.Group("/v1")
	v1.POST("/envs/", s.handleEnvCreate)
	v1.GET("/envs/", s.handleEnvList)
	v1.POST("/envs/:instance_id/check_exists/", s.handleEnvExists)
	v1.POST("/envs/:instance_id/reset/", s.handleEnvReset)
	v1.POST("/envs/:instance_id/step/", s.handleEnvStep)
	v1.GET("/envs/:instance_id/action_space/", s.handleActionSpace)
	v1.GET("/envs/:instance_id/observation_space/", s.handleObservationSpace)
	v1.POST("/envs/:instance_id/monitor/start/", s.handleMonitorStart)
	v1.POST("/envs/:instance_id/monitor/close/", s.handleMonitorClose)
	v1.POST("/upload/", s.handleUpload)
	v1.POST("/shutdown/", s.handleShutdown)

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.started).String(),
			"service": serverName,
			"version": "0.0.1",
		})
	})

	s.router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":   true,
			"uptime":  time.Since(s.started).String(),
			"service": serverName,
			"version": "0.0.1",
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Serve runs the HTTP listener until ctx is canceled or a shutdown request
// arrives, then drains in-flight requests before returning.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Msg("gym http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info().Msg("context canceled, draining")
	case <-s.shutdownCh:
		log.Info().Msg("shutdown requested, draining")
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), s.drainTimeout())
	defer cancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info().Msg("gym http server stopped")
	return nil
}

func (s *Server) drainTimeout() time.Duration {
	if s.cfg.DrainTimeout <= 0 {
		return 10 * time.Second
	}
	return s.cfg.DrainTimeout
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
