package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/flashide/flashide/internal/domain/source"
	"github.com/flashide/flashide/internal/domain/workspace"
)

// WorkspaceHandlers exposes the workspace state container
type WorkspaceHandlers struct {
	workspace *workspace.Workspace
	logger    *zap.Logger
}

// NewWorkspaceHandlers creates the workspace handler set
func NewWorkspaceHandlers(ws *workspace.Workspace, logger *zap.Logger) *WorkspaceHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkspaceHandlers{workspace: ws, logger: logger}
}

// Get handles GET /workspace
func (h *WorkspaceHandlers) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.workspace.Snapshot())
}

type tabRequest struct {
	Tab string `json:"tab" binding:"required"`
}

// SetTab handles PUT /workspace/tab
func (h *WorkspaceHandlers) SetTab(c *gin.Context) {
	var req tabRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.workspace.SetTab(req.Tab); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.workspace.Snapshot())
}

type fieldRequest struct {
	Value *string `json:"value" binding:"required"`
}

// SetField handles PUT /workspace/fields/:field
func (h *WorkspaceHandlers) SetField(c *gin.Context) {
	var req fieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.workspace.SetField(c.Request.Context(), c.Param("field"), *req.Value); err != nil {
		if errors.Is(err, source.ErrUnknownField) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to update field", zap.String("field", c.Param("field")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.workspace.Snapshot())
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

// SetPrompt handles PUT /workspace/prompt
func (h *WorkspaceHandlers) SetPrompt(c *gin.Context) {
	var req promptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.workspace.SetPrompt(req.Prompt)
	c.JSON(http.StatusOK, h.workspace.Snapshot())
}

// Ask handles POST /workspace/ask. The request runs in the background;
// poll GET /workspace for the outcome.
func (h *WorkspaceHandlers) Ask(c *gin.Context) {
	if !h.workspace.AskAsync() {
		c.JSON(http.StatusOK, h.workspace.Snapshot())
		return
	}
	c.JSON(http.StatusAccepted, h.workspace.Snapshot())
}

// Preview handles GET /preview
func (h *WorkspaceHandlers) Preview(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(h.workspace.Preview()))
}

// Console handles GET /console
func (h *WorkspaceHandlers) Console(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"entries": h.workspace.Console().Entries()})
}

// Health handles GET /health
func (h *WorkspaceHandlers) Health(c *gin.Context) {
	resp := gin.H{
		"status":  "healthy",
		"service": "playground",
		"console": h.workspace.Console().Len(),
	}
	if r := h.workspace.LastRender(); r != nil {
		resp["last_render"] = gin.H{
			"scripts":     r.Scripts,
			"errors":      len(r.Errors),
			"duration_ms": r.Duration.Milliseconds(),
		}
	}
	c.JSON(http.StatusOK, resp)
}
