package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	"github.com/flashide/flashide/internal/api/middleware"
	"github.com/flashide/flashide/internal/infrastructure/config"
	"github.com/flashide/flashide/internal/infrastructure/logging"
	"github.com/flashide/flashide/internal/infrastructure/monitoring"
	"github.com/flashide/flashide/internal/infrastructure/tracing"
)

// Server wraps the HTTP server and the resources it owns
type Server struct {
	name       string
	router     *gin.Engine
	httpServer *http.Server
	logger     *logging.Logger
	metrics    *monitoring.Metrics
	tracer     *tracing.Tracer
	closers    []func() error
}

func newServer(name string, cfg *config.Config, port string) *Server {
	logger := logging.NewFromLevel(cfg.Logging.Level, cfg.Logging.Development).Named(name)
	metrics := monitoring.NewMetrics("flashide_" + name)
	tracer := tracing.New(name, logger.Logger)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	s := &Server{
		name:    name,
		router:  router,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
	}
	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler: the router behind gzip compression.
// WebSocket upgrades bypass compression.
func (s *Server) Handler() http.Handler {
	gzipped := gzhttp.GzipHandler(s.router)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			s.router.ServeHTTP(w, r)
			return
		}
		gzipped.ServeHTTP(w, r)
	})
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Logger returns the server logger
func (s *Server) Logger() *logging.Logger {
	return s.logger
}

// Run starts the HTTP server and blocks until it stops
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server failed: %w", s.name, err)
	}
	return nil
}

// abort releases what a failed constructor already acquired
func (s *Server) abort(err error) error {
	_ = s.Close(context.Background())
	return err
}

// Close gracefully shuts down the server and releases its resources
func (s *Server) Close(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shut down http server: %w", err))
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.tracer.Close()

	// Sync logger before exit
	_ = s.logger.Sync()

	if err := errors.Join(errs...); err != nil {
		s.logger.Error("Shutdown finished with errors", zap.Error(err))
		return err
	}
	return nil
}
