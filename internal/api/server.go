// Package api exposes the guidance engine over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/abhisek/mathguide/internal/corpus"
	"github.com/abhisek/mathguide/internal/guidance"
	"github.com/abhisek/mathguide/internal/phrase"
	"github.com/abhisek/mathguide/internal/session"
)

// Engine is the guidance capability the server drives.
// *guidance.Orchestrator satisfies it.
type Engine interface {
	Handle(ctx context.Context, t guidance.Turn) guidance.DecisionRecord
	EndSession(ctx context.Context, sessionID string) error
	Snapshot(sessionID string) (session.Session, bool)
}

// Config holds HTTP server configuration.
type Config struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DefaultConfig listens on localhost:8080.
func DefaultConfig() Config {
	return Config{Host: "localhost", Port: 8080, ShutdownTimeout: 10 * time.Second}
}

// Validate checks the port range.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("server port must be in 1-65535, got %d", c.Port)
	}
	return nil
}

// Addr is the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Server provides the HTTP endpoints.
type Server struct {
	echo    *echo.Echo
	engine  Engine
	phraser phrase.Phraser
	logger  *zap.Logger
	config  Config
}

// NewServer creates a server. phraser may be nil, in which case responses
// carry the decision only. Request metrics and /metrics use reg.
func NewServer(engine Engine, phraser phrase.Phraser, reg *prometheus.Registry, logger *zap.Logger, cfg Config) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking")
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(newRequestMetrics(reg).middleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:    e,
		engine:  engine,
		phraser: phraser,
		logger:  logger,
		config:  cfg,
	}
	s.registerRoutes(reg)
	return s, nil
}

func (s *Server) registerRoutes(reg *prometheus.Registry) {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	v1 := s.echo.Group("/v1")
	v1.POST("/turn", s.handleTurn)
	v1.GET("/sessions/:id", s.handleGetSession)
	v1.POST("/sessions/:id/end", s.handleEndSession)
}

// TurnRequest is the request body for POST /v1/turn. An empty session id
// starts a new session.
type TurnRequest struct {
	SessionID  string `json:"session_id"`
	Input      string `json:"input"`
	Topic      string `json:"topic,omitempty"`
	Difficulty int    `json:"difficulty,omitempty"`
}

// TurnResponse is the response body for POST /v1/turn.
type TurnResponse struct {
	SessionID string                  `json:"session_id"`
	Decision  guidance.DecisionRecord `json:"decision"`
	Message   string                  `json:"message,omitempty"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleTurn(c echo.Context) error {
	var req TurnRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid turn request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	topic := corpus.Topic(req.Topic)
	if topic != "" && !slices.Contains(corpus.AllTopics(), topic) {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown topic %q", req.Topic))
	}
	if req.Difficulty < 0 || req.Difficulty > 5 {
		return echo.NewHTTPError(http.StatusBadRequest, "difficulty must be 1-5, or 0 for any")
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	ctx := c.Request().Context()
	rec := s.engine.Handle(ctx, guidance.Turn{
		SessionID:  req.SessionID,
		Input:      req.Input,
		Topic:      topic,
		Difficulty: req.Difficulty,
	})

	resp := TurnResponse{SessionID: req.SessionID, Decision: rec}
	if s.phraser != nil {
		msg, err := s.phraser.Phrase(ctx, rec)
		if err != nil {
			s.logger.Warn("failed to phrase decision", zap.String("session_id", req.SessionID), zap.Error(err))
		}
		resp.Message = msg
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGetSession(c echo.Context) error {
	snap, ok := s.engine.Snapshot(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) handleEndSession(c echo.Context) error {
	id := c.Param("id")
	if err := s.engine.EndSession(c.Request().Context(), id); err != nil {
		s.logger.Error("failed to end session", zap.String("session_id", id), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "session ended but could not be archived")
	}
	return c.NoContent(http.StatusNoContent)
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := s.config.Addr()
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
