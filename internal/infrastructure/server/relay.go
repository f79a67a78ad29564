package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/flashide/flashide/internal/api/http"
	"github.com/flashide/flashide/internal/api/middleware"
	"github.com/flashide/flashide/internal/infrastructure/config"
	"github.com/flashide/flashide/internal/relay"
)

// NewRelay assembles the prompt relay service
func NewRelay(cfg *config.Config) *Server {
	s := newServer("relay", cfg, cfg.Server.Port)

	upstream := relay.NewUpstream(cfg.Upstream, s.metrics, s.logger.Named("upstream").Logger)
	if cfg.Upstream.APIKey == "" {
		s.logger.Warn("GEMINI_API_KEY is not set; upstream calls will be rejected")
	}
	s.logger.Info("Initializing relay",
		zap.String("model", upstream.Model()),
		zap.String("upstream", cfg.Upstream.BaseURL),
	)

	// Relay routes only; the workspace host is never throttled.
	if cfg.RateLimit.Enabled {
		s.logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		s.router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewRelayHandlers(relay.NewService(upstream, s.logger.Logger), upstream.Model(), s.logger.Logger)
	registerRelayRoutes(s.router, handlers)

	return s
}

func registerRelayRoutes(router *gin.Engine, h *apihttp.RelayHandlers) {
	router.GET("/health", h.Health)

	router.POST("/relay", h.Relay)
	router.GET("/models", h.Models)

	// Paths used by the original front end
	router.POST("/api/gemini", h.Relay)
	router.GET("/api/models", h.Models)
}
