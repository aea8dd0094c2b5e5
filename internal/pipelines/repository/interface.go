package repository

import (
	"context"

	"pipeline_board_backend/internal/pipelines/domain"

	"github.com/google/uuid"
)

// Repository defines persistence operations for the pipeline board.
// All operations are tenant-scoped by organization ID.
type Repository interface {
	GetPipeline(ctx context.Context, organizationID, id uuid.UUID) (domain.Pipeline, error)
	ListPipelines(ctx context.Context, organizationID uuid.UUID) ([]domain.Pipeline, error)
	CreatePipeline(ctx context.Context, organizationID uuid.UUID, name string) (domain.Pipeline, error)
	// DeletePipeline removes the pipeline; stages and leads cascade.
	DeletePipeline(ctx context.Context, organizationID, id uuid.UUID) error

	ListStages(ctx context.Context, organizationID, pipelineID uuid.UUID) ([]domain.Stage, error)
	GetStage(ctx context.Context, organizationID, stageID uuid.UUID) (domain.Stage, error)
	CreateStage(ctx context.Context, organizationID uuid.UUID, stage domain.Stage) (domain.Stage, error)
	// UpdateStage writes all mutable stage fields; partial updates are not
	// supported by the API contract.
	UpdateStage(ctx context.Context, organizationID uuid.UUID, stage domain.Stage) error
	// DeleteStage removes the stage and its leads, returning how many leads
	// were removed with it.
	DeleteStage(ctx context.Context, organizationID, stageID uuid.UUID) (int, error)

	// SummarizeStages recomputes per-stage lead counts and value totals.
	SummarizeStages(ctx context.Context, organizationID, pipelineID uuid.UUID) ([]domain.StageSummary, error)

	ListLeadsByStage(ctx context.Context, organizationID, stageID uuid.UUID) ([]domain.Lead, error)
	GetLead(ctx context.Context, organizationID, leadID uuid.UUID) (domain.Lead, error)
	CreateLead(ctx context.Context, organizationID uuid.UUID, lead domain.Lead) (domain.Lead, error)
	UpdateLead(ctx context.Context, organizationID uuid.UUID, lead domain.Lead) error
	DeleteLead(ctx context.Context, organizationID, leadID uuid.UUID) error
	// MoveLead updates stage membership, provenance, and assignment in one
	// statement and refreshes last_activity.
	MoveLead(ctx context.Context, organizationID, leadID, toStageID uuid.UUID, movedBy string, assignedTo *uuid.UUID) error

	RecordTransfer(ctx context.Context, record domain.TransferRecord) error
	ListTransfersByLead(ctx context.Context, organizationID, leadID uuid.UUID) ([]domain.TransferRecord, error)
}
