package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pipeline_board_backend/internal/pipelines/transport"
	"pipeline_board_backend/platform/httpkit"
)

// ListLeads retrieves the leads currently in a stage.
// GET /api/v1/stages/:id/leads
func (h *Handler) ListLeads(c *gin.Context) {
	stageID, ok := pathID(c)
	if !ok {
		return
	}
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	result, err := h.svc.ListLeadsByStage(c.Request.Context(), tenantID, stageID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetLead retrieves a lead by ID.
// GET /api/v1/leads/:id
func (h *Handler) GetLead(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	result, err := h.svc.GetLead(c.Request.Context(), tenantID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CreateLead inserts a lead into a stage.
// POST /api/v1/leads
func (h *Handler) CreateLead(c *gin.Context) {
	var req transport.CreateLeadRequest
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

	result, err := h.svc.CreateLead(c.Request.Context(), tenantID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// UpdateLead writes mutable lead fields.
// PUT /api/v1/leads/:id
func (h *Handler) UpdateLead(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req transport.UpdateLeadRequest
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

	if httpkit.HandleError(c, h.svc.UpdateLead(c.Request.Context(), tenantID, id, req)) {
		return
	}
	httpkit.NoContent(c)
}

// DeleteLead removes a lead.
// DELETE /api/v1/leads/:id
func (h *Handler) DeleteLead(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.svc.DeleteLead(c.Request.Context(), tenantID, id)) {
		return
	}
	httpkit.NoContent(c)
}

// MoveLead moves a lead card to another stage.
// PATCH /api/v1/leads/:id/move
func (h *Handler) MoveLead(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req transport.MoveLeadRequest
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

	if httpkit.HandleError(c, h.svc.MoveLeadCard(c.Request.Context(), tenantID, id, req)) {
		return
	}
	httpkit.NoContent(c)
}

// ListTransfers retrieves a lead's transfer history, newest first.
// GET /api/v1/leads/:id/transfers
func (h *Handler) ListTransfers(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	result, err := h.svc.GetTransferHistory(c.Request.Context(), tenantID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
