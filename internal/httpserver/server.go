// Package httpserver exposes analysis, explanation and search over HTTP.
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"github.com/ccollicutt/logdoctor/internal/apperr"
	"github.com/ccollicutt/logdoctor/internal/pipeline"
	"github.com/ccollicutt/logdoctor/pkg/config"
)

// Server provides the HTTP API.
type Server struct {
	cfg       *config.Config
	runner    *pipeline.Runner
	logger    *zap.Logger
	parser    fastjson.ParserPool
	server    *http.Server
	listener  net.Listener
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a new HTTP API server. A nil logger disables logging.
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:       cfg,
		runner:    pipeline.New(cfg, logger),
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
}

// Handler returns the routed gin engine.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.POST("/analyze", s.handleAnalyze)
	api.POST("/explain", s.handleExplain)
	api.POST("/search", s.handleSearch)
	return r
}

// Start begins serving HTTP requests in the background.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.Handler(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return apperr.New(apperr.CodeConfig, "cannot listen on "+s.cfg.Server.Addr, err)
	}
	s.listener = listener
	s.startTime = time.Now()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped", zap.Error(err))
		}
	}()
	s.logger.Info("http server listening", zap.String("addr", listener.Addr().String()))
	return nil
}

// Addr returns the bound listen address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Server.Addr
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func statusFor(err error) int {
	switch apperr.CodeOf(err) {
	case apperr.CodeInvalidInput:
		return http.StatusBadRequest
	case apperr.CodeInputTooLarge:
		return http.StatusRequestEntityTooLarge
	case apperr.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": apperr.MessageOf(err), "code": apperr.CodeOf(err)})
}
