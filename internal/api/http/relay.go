package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/flashide/flashide/internal/relay"
)

// RelayHandlers serves the prompt relay endpoints
type RelayHandlers struct {
	service *relay.Service
	model   string
	logger  *zap.Logger
}

// NewRelayHandlers creates the relay handler set
func NewRelayHandlers(service *relay.Service, model string, logger *zap.Logger) *RelayHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RelayHandlers{service: service, model: model, logger: logger}
}

type relayRequest struct {
	Prompt interface{} `json:"prompt"`
}

// Relay handles POST /relay
func (h *RelayHandlers) Relay(c *gin.Context) {
	var req relayRequest
	// An unreadable body is treated as a missing prompt.
	_ = c.ShouldBindJSON(&req)
	prompt, _ := req.Prompt.(string)

	result, err := h.service.Relay(c.Request.Context(), prompt)
	if err != nil {
		h.relayError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}

func (h *RelayHandlers) relayError(c *gin.Context, err error) {
	_ = c.Error(err)

	if errors.Is(err, relay.ErrPromptRequired) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prompt is required"})
		return
	}

	var upErr *relay.UpstreamError
	if errors.As(err, &upErr) {
		c.JSON(upErr.Status, gin.H{"error": upErr.Payload()})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// Models handles GET /models
func (h *RelayHandlers) Models(c *gin.Context) {
	models, err := h.service.ListModels(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list models"})
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", models)
}

// Health handles GET /health
func (h *RelayHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "relay",
		"model":   h.model,
	})
}
