package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/garyjia/approval-workflow/internal/application/engine"
	"github.com/garyjia/approval-workflow/internal/application/port"
	"github.com/garyjia/approval-workflow/internal/domain/entity"
	"github.com/garyjia/approval-workflow/internal/domain/workflow"
)

// Engine is the workflow engine surface the HTTP layer invokes.
type Engine interface {
	Submit(ctx context.Context, payload json.RawMessage, actor entity.Actor, metadata map[string]any) (*entity.WorkflowInstance, error)
	Respond(ctx context.Context, id string, trigger workflow.Trigger, actor entity.Actor, metadata map[string]any) (*entity.WorkflowInstance, error)
	Withdraw(ctx context.Context, id string, actor entity.Actor, metadata map[string]any) (*entity.WorkflowInstance, error)
	Status(ctx context.Context, id string) (*entity.WorkflowInstance, error)
	Heartbeat() engine.Health
}

// Handler serves the workflow HTTP endpoints.
type Handler struct {
	engine Engine
	logger *zap.Logger
}

// NewHandler creates a new workflow HTTP handler.
func NewHandler(engine Engine, logger *zap.Logger) *Handler {
	return &Handler{engine: engine, logger: logger}
}

type submitRequest struct {
	Payload  json.RawMessage `json:"payload" binding:"required"`
	Metadata map[string]any  `json:"metadata"`
}

type respondRequest struct {
	ID       string         `json:"id" binding:"required"`
	Trigger  string         `json:"trigger" binding:"required"`
	Metadata map[string]any `json:"metadata"`
}

type withdrawRequest struct {
	ID       string         `json:"id" binding:"required"`
	Metadata map[string]any `json:"metadata"`
}

// Submit creates a new workflow instance.
func (h *Handler) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	instance, err := h.engine.Submit(c.Request.Context(), req.Payload, actorFrom(c), req.Metadata)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, instance)
}

// Respond applies a trigger to an existing workflow instance.
func (h *Handler) Respond(c *gin.Context) {
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	instance, err := h.engine.Respond(c.Request.Context(), req.ID, workflow.Trigger(req.Trigger), actorFrom(c), req.Metadata)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, instance)
}

// Withdraw withdraws a pending workflow instance.
func (h *Handler) Withdraw(c *gin.Context) {
	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	instance, err := h.engine.Withdraw(c.Request.Context(), req.ID, actorFrom(c), req.Metadata)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, instance)
}

// Status returns a workflow instance with its full history.
func (h *Handler) Status(c *gin.Context) {
	instance, err := h.engine.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if instance == nil {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "workflow not found"})
		return
	}

	c.JSON(http.StatusOK, instance)
}

// Heartbeat reports engine liveness.
func (h *Handler) Heartbeat(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Heartbeat())
}

// writeError maps engine errors onto HTTP statuses, separating caller
// mistakes from store failures.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, workflow.ErrUnknownTrigger):
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
	case errors.Is(err, workflow.ErrRoleNotPermitted):
		c.JSON(http.StatusForbidden, gin.H{"status": "error", "message": err.Error()})
	case errors.Is(err, workflow.ErrNoMatchingOrigin), errors.Is(err, port.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"status": "error", "message": err.Error()})
	case errors.Is(err, port.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": err.Error()})
	default:
		h.logger.Error("Workflow operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "internal server error"})
	}
}
