// Package server exposes prompt evaluation, the deep-analysis proxy and the
// rubric admin API over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/thinkwright/prompt-evals/internal/deepanalysis"
	"github.com/thinkwright/prompt-evals/internal/engine"
	"github.com/thinkwright/prompt-evals/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	Addr        string
	AdminSecret string // empty denies admin routes to non-localhost hosts
	CORSOrigin  string // "*" or a comma-separated origin list
	Version     string
	Logger      *slog.Logger
}

// Server wires the engine, the rubric store and the analyzer to gin routes.
type Server struct {
	cfg      Config
	engine   *engine.Engine
	store    *store.Store
	analyzer deepanalysis.Analyzer
	logger   *slog.Logger
	router   *gin.Engine
	now      func() time.Time
}

// New builds the server and its routes. analyzer may be nil, in which case
// the analyze routes answer 503.
func New(cfg Config, eng *engine.Engine, st *store.Store, analyzer deepanalysis.Analyzer) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":3005"
	}
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	s := &Server{
		cfg:      cfg,
		engine:   eng,
		store:    st,
		analyzer: analyzer,
		logger:   cfg.Logger,
		now:      time.Now,
	}
	s.router = s.routes()
	return s
}

// Handler returns the underlying http.Handler (useful for testing).
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("HTTP server starting", "address", s.cfg.Addr, "admin_secret", s.cfg.AdminSecret != "")

	go func() {
		<-ctx.Done()
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("HTTP server shutdown error", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	// Client addresses are never read from forwarding headers.
	if err := r.SetTrustedProxies(nil); err != nil {
		s.logger.Warn("reset trusted proxies", "error", err)
	}
	r.Use(gin.Recovery(), requestLogger(s.logger), corsMiddleware(s.cfg.CORSOrigin))

	api := r.Group("/api")

	// Open routes: callers bring their own provider key.
	api.POST("/evaluate", s.handleEvaluate)
	api.POST("/analyze", s.handleAnalyze)
	api.POST("/claude/analyze", s.handleLegacyAnalyze)

	admin := api.Group("", adminAuth(s.cfg.AdminSecret))

	levers := admin.Group("/levers")
	levers.GET("", s.listLevers)
	levers.POST("/reorder", s.reorderLevers)
	levers.GET("/:id", s.getLever)
	levers.PUT("/:id", s.updateLever)
	levers.POST("/:id/toggle", s.toggleLever)

	models := admin.Group("/models")
	models.GET("", s.listModels)
	models.GET("/:id", s.getModel)
	models.PUT("/:id", s.updateModel)
	models.POST("/:id/toggle", s.toggleModel)
	models.PUT("/:id/lever-weights", s.setLeverWeights)

	system := admin.Group("/system")
	system.GET("/health", s.health)
	system.GET("/export", s.exportConfig)
	system.POST("/import", s.importConfig)

	return r
}

// reload rebuilds the engine snapshot after a rubric change.
func (s *Server) reload() {
	if err := s.engine.Reload(s.store); err != nil {
		s.logger.Error("engine reload failed", "error", err)
	}
}

func errorJSON(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}
