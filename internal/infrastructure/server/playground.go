package server

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/flashide/flashide/internal/api/http"
	"github.com/flashide/flashide/internal/api/ws"
	"github.com/flashide/flashide/internal/domain/console"
	"github.com/flashide/flashide/internal/domain/sandbox"
	"github.com/flashide/flashide/internal/domain/source"
	"github.com/flashide/flashide/internal/domain/workspace"
	"github.com/flashide/flashide/internal/infrastructure/config"
	"github.com/flashide/flashide/internal/infrastructure/storage"
	"github.com/flashide/flashide/internal/relay/client"
)

// NewPlayground assembles the workspace host. ctx bounds the workspace's
// lifetime, including background prompt requests.
func NewPlayground(ctx context.Context, cfg *config.Config) (*Server, error) {
	s := newServer("playground", cfg, cfg.Playground.Port)
	pc := cfg.Playground

	s.logger.Info("Initializing playground",
		zap.String("store", pc.StorePath),
		zap.String("relay", pc.RelayURL),
		zap.Bool("discard_stale", pc.DiscardStale),
		zap.Bool("surface_errors", pc.SurfaceErrors),
	)

	db, err := storage.Open(pc.StorePath, storage.WithMkdirAll())
	if err != nil {
		return nil, s.abort(fmt.Errorf("failed to open workspace store: %w", err))
	}
	s.closers = append(s.closers, db.Close)

	backend, err := source.NewSQLiteBackend(ctx, db)
	if err != nil {
		return nil, s.abort(err)
	}

	seed, err := source.LoadSeed(pc.SeedFile)
	if err != nil {
		return nil, s.abort(err)
	}

	store, err := source.NewStore(ctx, backend, seed, s.logger.Named("source").Logger)
	if err != nil {
		return nil, s.abort(err)
	}

	sandboxCfg := sandbox.DefaultConfig()
	sandboxCfg.Timeout = cfg.Sandbox.Timeout
	preview := sandbox.New(sandboxCfg, s.logger.Named("sandbox").Logger)

	log := console.NewStore()
	wsp := workspace.New(store, log, preview, client.New(pc.RelayURL), workspace.Options{
		DiscardStale:  pc.DiscardStale,
		SurfaceErrors: pc.SurfaceErrors,
		Metrics:       s.metrics,
		Logger:        s.logger.Named("workspace").Logger,
	})
	if err := wsp.Mount(ctx); err != nil {
		// A runaway initial document must not keep the host down.
		s.logger.Warn("Initial render failed", zap.Error(err))
	}
	s.closers = append(s.closers, func() error {
		wsp.Close()
		return nil
	})

	registerPlaygroundRoutes(s.router,
		apihttp.NewWorkspaceHandlers(wsp, s.logger.Logger),
		ws.NewConsoleHandler(log, s.metrics, s.logger.Named("console").Logger),
	)

	return s, nil
}

func registerPlaygroundRoutes(router *gin.Engine, h *apihttp.WorkspaceHandlers, stream *ws.ConsoleHandler) {
	router.GET("/health", h.Health)

	router.GET("/workspace", h.Get)
	router.PUT("/workspace/tab", h.SetTab)
	router.PUT("/workspace/fields/:field", h.SetField)
	router.PUT("/workspace/prompt", h.SetPrompt)
	router.POST("/workspace/ask", h.Ask)

	router.GET("/preview", h.Preview)
	router.GET("/console", h.Console)
	router.GET("/console/stream", stream.Stream)
}
