package transport

import (
	"time"

	"pipeline_board_backend/internal/pipelines/domain"

	"github.com/google/uuid"
)

// CreatePipelineRequest contains data for creating a new pipeline.
type CreatePipelineRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

// CreateStageRequest contains data for creating a new stage.
// All fields are required; the client-side validation gate mirrors this.
type CreateStageRequest struct {
	IDPipeline  uuid.UUID  `json:"id_pipeline" validate:"required"`
	Name        string     `json:"name" validate:"required,min=1,max=100"`
	Description string     `json:"description" validate:"required,max=500"`
	IDAgent     *uuid.UUID `json:"id_agent" validate:"required"`
}

// UpdateStageRequest carries the full stage state; partial updates are not
// supported, every update round-trips all fields the client knows.
type UpdateStageRequest struct {
	Name        string     `json:"name" validate:"required,min=1,max=100"`
	Description string     `json:"description" validate:"max=500"`
	StageOrder  int        `json:"stage_order" validate:"min=0"`
	IDAgent     *uuid.UUID `json:"id_agent,omitempty"`
}

// CreateLeadRequest contains data for creating a new lead.
type CreateLeadRequest struct {
	IDPipeline uuid.UUID  `json:"id_pipeline" validate:"required"`
	IDStage    uuid.UUID  `json:"id_stage" validate:"required"`
	IDContact  *uuid.UUID `json:"id_contact,omitempty"`
	Name       string     `json:"name" validate:"required,min=1,max=200"`
	Phone      string     `json:"phone" validate:"omitempty,max=32"`
	Value      float64    `json:"value" validate:"min=0"`
	Status     string     `json:"status" validate:"omitempty,max=50"`
	Notes      string     `json:"notes" validate:"omitempty,max=5000"`
}

// UpdateLeadRequest contains mutable lead fields; stage membership changes go
// through the move endpoint instead.
type UpdateLeadRequest struct {
	IDContact *uuid.UUID `json:"id_contact,omitempty"`
	Name      string     `json:"name" validate:"required,min=1,max=200"`
	Phone     string     `json:"phone" validate:"omitempty,max=32"`
	Value     float64    `json:"value" validate:"min=0"`
	Status    string     `json:"status" validate:"omitempty,max=50"`
	Notes     string     `json:"notes" validate:"omitempty,max=5000"`
}

// MoveLeadRequest is the move-lead-card payload.
type MoveLeadRequest struct {
	IDStage    uuid.UUID  `json:"id_stage" validate:"required"`
	MovedBy    string     `json:"moved_by" validate:"required,oneof=human ai unknown"`
	AssignedTo *uuid.UUID `json:"assigned_to,omitempty"`
}

// PipelineResponse represents a pipeline in API responses.
type PipelineResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PipelineListResponse wraps a list of pipelines.
type PipelineListResponse struct {
	Items []PipelineResponse `json:"items"`
	Total int                `json:"total"`
}

// StageResponse represents a stage in API responses. Color is derived from
// board position and is purely cosmetic.
type StageResponse struct {
	ID          uuid.UUID  `json:"id"`
	IDPipeline  uuid.UUID  `json:"id_pipeline"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StageOrder  int        `json:"stage_order"`
	IDAgent     *uuid.UUID `json:"id_agent,omitempty"`
	Color       string     `json:"color"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// StageListResponse wraps a pipeline's ordered stages.
type StageListResponse struct {
	Items []StageResponse `json:"items"`
	Total int             `json:"total"`
}

// LeadResponse represents a lead in API responses.
type LeadResponse struct {
	ID           uuid.UUID  `json:"id"`
	IDPipeline   uuid.UUID  `json:"id_pipeline"`
	IDStage      uuid.UUID  `json:"id_stage"`
	IDContact    *uuid.UUID `json:"id_contact,omitempty"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone"`
	Value        float64    `json:"value"`
	Status       string     `json:"status"`
	MovedBy      string     `json:"moved_by"`
	AssignedTo   *uuid.UUID `json:"assigned_to,omitempty"`
	Notes        string     `json:"notes"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastActivity time.Time  `json:"lastActivity"`
}

// LeadListResponse wraps a stage's leads.
type LeadListResponse struct {
	Items []LeadResponse `json:"items"`
	Total int            `json:"total"`
}

// TransferResponse represents one transfer history entry.
type TransferResponse struct {
	ID          uuid.UUID  `json:"id"`
	IDLead      uuid.UUID  `json:"id_lead"`
	IDStageFrom uuid.UUID  `json:"id_stage_from"`
	IDStageTo   uuid.UUID  `json:"id_stage_to"`
	MovedBy     string     `json:"moved_by"`
	AssignedTo  *uuid.UUID `json:"assigned_to,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// TransferListResponse wraps a lead's transfer history, newest first.
type TransferListResponse struct {
	Items []TransferResponse `json:"items"`
	Total int                `json:"total"`
}

// PipelineSummaryResponse carries the derived board aggregates.
type PipelineSummaryResponse struct {
	IDPipeline uuid.UUID             `json:"id_pipeline"`
	TotalLeads int                   `json:"totalLeads"`
	TotalValue float64               `json:"totalValue"`
	Stages     []domain.StageSummary `json:"stages"`
}
