// Package api implements the HTTP API for the intake service.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/regintake/internal/logger"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	Debug        bool
}

// Server wraps the gin engine and the underlying http.Server.
type Server struct {
	httpServer *http.Server
	log        logger.Interface
}

// NewServer creates the API server and mounts all routes.
func NewServer(cfg ServerConfig, handler *IntakeHandler, log logger.Interface) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/api/v1")
	{
		v1.GET("/intake/items", handler.ListItems)
		v1.GET("/intake/items/:key", handler.GetItem)
		v1.GET("/intake/items/:key/snapshot", handler.GetSnapshotURL)
		v1.POST("/intake/items/:key/transition", handler.TransitionItem)
		v1.POST("/intake/runs", handler.TriggerRun)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Address,
			Handler:      engine,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: log,
	}
}

// Start serves HTTP until the listener fails or Stop is called.
func (s *Server) Start() error {
	s.log.Info("starting API server", "address", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("stopping API server")
	return s.httpServer.Shutdown(ctx)
}
