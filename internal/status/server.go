// Package status serves the watcher's health and progress probes over HTTP.
package status

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agrolink/marketplace-watcher/internal/logger"
	"github.com/agrolink/marketplace-watcher/internal/watcher"
)

// StatsProvider exposes the watcher progress
type StatsProvider interface {
	Stats() watcher.Stats
}

// Config holds the probe server configuration
type Config struct {
	Debug        bool
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server wraps the HTTP server
type Server struct {
	config Config
	stats  StatsProvider

	mu         sync.Mutex
	httpServer *http.Server
}

// New creates a probe server
func New(cfg Config, stats StatsProvider) *Server {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 5 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &Server{
		config: cfg,
		stats:  stats,
	}
}

// Handler builds the gin router
func (s *Server) Handler() http.Handler {
	if s.config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(recovery())
	router.Use(requestLogger())

	router.GET("/healthz", s.healthz)
	router.GET("/status", s.status)

	return router
}

// healthz answers 200 while the watcher is consuming the feed and 503 otherwise
func (s *Server) healthz(c *gin.Context) {
	stats := s.stats.Stats()
	if !stats.Running {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "stopped", "mode": stats.Mode})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": stats.Mode})
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, s.stats.Stats())
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	srv := s.httpServer
	s.mu.Unlock()

	logger.Info("Starting status server", zap.String("address", addr))

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start status server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down status server")

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown status server: %w", err)
		}
	}

	return nil
}
