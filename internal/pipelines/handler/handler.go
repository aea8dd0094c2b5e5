// Package handler exposes the pipeline board over HTTP.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pipeline_board_backend/internal/pipelines/service"
	"pipeline_board_backend/internal/pipelines/transport"
	"pipeline_board_backend/platform/httpkit"
	"pipeline_board_backend/platform/validator"
)

// Handler handles HTTP requests for pipelines, stages, and leads.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid id"
)

// New creates a new pipeline board handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) tenant(c *gin.Context) (uuid.UUID, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return uuid.Nil, false
	}
	return httpkit.MustGetTenantID(c, identity)
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.Nil, false
	}
	return id, true
}

// =============================================================================
// Pipelines
// =============================================================================

// ListPipelines retrieves all pipelines for the caller's organization.
// GET /api/v1/pipelines
func (h *Handler) ListPipelines(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	result, err := h.svc.ListPipelines(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetPipeline retrieves a pipeline by ID.
// GET /api/v1/pipelines/:id
func (h *Handler) GetPipeline(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	result, err := h.svc.GetPipeline(c.Request.Context(), tenantID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CreatePipeline creates a new pipeline.
// POST /api/v1/pipelines
func (h *Handler) CreatePipeline(c *gin.Context) {
	var req transport.CreatePipelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	result, err := h.svc.CreatePipeline(c.Request.Context(), tenantID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// DeletePipeline removes a pipeline and everything in it.
// DELETE /api/v1/pipelines/:id
func (h *Handler) DeletePipeline(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.svc.DeletePipeline(c.Request.Context(), tenantID, id)) {
		return
	}
	httpkit.NoContent(c)
}

// GetSummary retrieves the derived aggregates for a pipeline.
// GET /api/v1/pipelines/:id/summary
func (h *Handler) GetSummary(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	result, err := h.svc.GetSummary(c.Request.Context(), tenantID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// =============================================================================
// Stages
// =============================================================================

// ListStages retrieves a pipeline's stages in board order.
// GET /api/v1/pipelines/:id/stages
func (h *Handler) ListStages(c *gin.Context) {
	pipelineID, ok := pathID(c)
	if !ok {
		return
	}
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	result, err := h.svc.ListStages(c.Request.Context(), tenantID, pipelineID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CreateStage appends a stage to a pipeline's board.
// POST /api/v1/stages
func (h *Handler) CreateStage(c *gin.Context) {
	var req transport.CreateStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	result, err := h.svc.CreateStage(c.Request.Context(), tenantID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// UpdateStage writes the full stage state.
// PUT /api/v1/stages/:id
func (h *Handler) UpdateStage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req transport.UpdateStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.svc.UpdateStage(c.Request.Context(), tenantID, id, req)) {
		return
	}
	httpkit.NoContent(c)
}

// DeleteStage removes a stage and its leads.
// DELETE /api/v1/stages/:id
func (h *Handler) DeleteStage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.svc.DeleteStage(c.Request.Context(), tenantID, id)) {
		return
	}
	httpkit.NoContent(c)
}
