// Package service provides business logic for the pipeline board bounded context.
package service

import (
	"context"

	"pipeline_board_backend/internal/events"
	"pipeline_board_backend/internal/pipelines/domain"
	"pipeline_board_backend/internal/pipelines/repository"
	"pipeline_board_backend/internal/pipelines/transport"
	"pipeline_board_backend/platform/logger"

	"github.com/google/uuid"
)

// TransferScheduler enqueues transfer-history records for asynchronous
// persistence. A nil scheduler disables history recording.
type TransferScheduler interface {
	ScheduleTransferRecord(ctx context.Context, leadID, fromStageID, toStageID uuid.UUID, movedBy string, assignedTo *uuid.UUID) error
}

// SummaryCache caches derived pipeline aggregates between mutations.
type SummaryCache interface {
	GetSummary(ctx context.Context, organizationID, pipelineID uuid.UUID) (transport.PipelineSummaryResponse, bool)
	SetSummary(ctx context.Context, organizationID, pipelineID uuid.UUID, summary transport.PipelineSummaryResponse)
	Invalidate(ctx context.Context, organizationID, pipelineID uuid.UUID)
}

// Service provides business logic for pipelines, stages, and leads.
type Service struct {
	repo      repository.Repository
	bus       events.Bus
	scheduler TransferScheduler
	cache     SummaryCache
	log       *logger.Logger
}

// New creates a new pipeline board service.
func New(repo repository.Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

// SetTransferScheduler wires the asynq-backed transfer recorder.
func (s *Service) SetTransferScheduler(scheduler TransferScheduler) {
	s.scheduler = scheduler
}

// SetSummaryCache wires the Redis summary cache.
func (s *Service) SetSummaryCache(cache SummaryCache) {
	s.cache = cache
}

// =============================================================================
// Pipelines
// =============================================================================

// ListPipelines retrieves all pipelines for the organization.
func (s *Service) ListPipelines(ctx context.Context, organizationID uuid.UUID) (transport.PipelineListResponse, error) {
	pipelines, err := s.repo.ListPipelines(ctx, organizationID)
	if err != nil {
		return transport.PipelineListResponse{}, err
	}

	items := make([]transport.PipelineResponse, 0, len(pipelines))
	for _, p := range pipelines {
		items = append(items, toPipelineResponse(p))
	}
	return transport.PipelineListResponse{Items: items, Total: len(items)}, nil
}

// GetPipeline retrieves a single pipeline.
func (s *Service) GetPipeline(ctx context.Context, organizationID, id uuid.UUID) (transport.PipelineResponse, error) {
	p, err := s.repo.GetPipeline(ctx, organizationID, id)
	if err != nil {
		return transport.PipelineResponse{}, err
	}
	return toPipelineResponse(p), nil
}

// CreatePipeline creates a new pipeline.
func (s *Service) CreatePipeline(ctx context.Context, organizationID uuid.UUID, req transport.CreatePipelineRequest) (transport.PipelineResponse, error) {
	p, err := s.repo.CreatePipeline(ctx, organizationID, req.Name)
	if err != nil {
		return transport.PipelineResponse{}, err
	}
	return toPipelineResponse(p), nil
}

// DeletePipeline removes a pipeline; its stages and leads cascade server-side.
func (s *Service) DeletePipeline(ctx context.Context, organizationID, id uuid.UUID) error {
	if err := s.repo.DeletePipeline(ctx, organizationID, id); err != nil {
		return err
	}

	s.invalidateSummary(ctx, organizationID, id)
	s.bus.Publish(ctx, events.PipelineDeleted{
		BaseEvent:  events.NewBaseEvent(),
		TenantID:   organizationID,
		PipelineID: id,
	})
	return nil
}

// GetSummary returns the derived aggregates for a pipeline, served from cache
// when a mutation has not invalidated it.
func (s *Service) GetSummary(ctx context.Context, organizationID, pipelineID uuid.UUID) (transport.PipelineSummaryResponse, error) {
	if s.cache != nil {
		if summary, ok := s.cache.GetSummary(ctx, organizationID, pipelineID); ok {
			return summary, nil
		}
	}

	if _, err := s.repo.GetPipeline(ctx, organizationID, pipelineID); err != nil {
		return transport.PipelineSummaryResponse{}, err
	}

	stages, err := s.repo.SummarizeStages(ctx, organizationID, pipelineID)
	if err != nil {
		return transport.PipelineSummaryResponse{}, err
	}

	summary := transport.PipelineSummaryResponse{IDPipeline: pipelineID, Stages: stages}
	for _, stage := range stages {
		summary.TotalLeads += stage.Count
		summary.TotalValue += stage.Value
	}

	if s.cache != nil {
		s.cache.SetSummary(ctx, organizationID, pipelineID, summary)
	}
	return summary, nil
}

// =============================================================================
// Stages
// =============================================================================

// ListStages retrieves a pipeline's stages in board order, with display colors
// assigned by position.
func (s *Service) ListStages(ctx context.Context, organizationID, pipelineID uuid.UUID) (transport.StageListResponse, error) {
	stages, err := s.repo.ListStages(ctx, organizationID, pipelineID)
	if err != nil {
		return transport.StageListResponse{}, err
	}

	items := make([]transport.StageResponse, 0, len(stages))
	for i, stage := range stages {
		items = append(items, toStageResponse(stage, i))
	}
	return transport.StageListResponse{Items: items, Total: len(items)}, nil
}

// CreateStage appends a new stage to a pipeline's board.
func (s *Service) CreateStage(ctx context.Context, organizationID uuid.UUID, req transport.CreateStageRequest) (transport.StageResponse, error) {
	stage, err := s.repo.CreateStage(ctx, organizationID, domain.Stage{
		PipelineID:  req.IDPipeline,
		Name:        req.Name,
		Description: req.Description,
		AgentID:     req.IDAgent,
	})
	if err != nil {
		return transport.StageResponse{}, err
	}

	s.invalidateSummary(ctx, organizationID, stage.PipelineID)
	s.bus.Publish(ctx, events.StageCreated{
		BaseEvent:  events.NewBaseEvent(),
		TenantID:   organizationID,
		PipelineID: stage.PipelineID,
		StageID:    stage.ID,
		Name:       stage.Name,
	})
	return toStageResponse(stage, stage.StageOrder-1), nil
}

// UpdateStage writes the full stage state.
func (s *Service) UpdateStage(ctx context.Context, organizationID, stageID uuid.UUID, req transport.UpdateStageRequest) error {
	current, err := s.repo.GetStage(ctx, organizationID, stageID)
	if err != nil {
		return err
	}

	current.Name = req.Name
	current.Description = req.Description
	current.StageOrder = req.StageOrder
	current.AgentID = req.IDAgent

	if err := s.repo.UpdateStage(ctx, organizationID, current); err != nil {
		return err
	}

	s.invalidateSummary(ctx, organizationID, current.PipelineID)
	s.bus.Publish(ctx, events.StageUpdated{
		BaseEvent:  events.NewBaseEvent(),
		TenantID:   organizationID,
		PipelineID: current.PipelineID,
		StageID:    stageID,
	})
	return nil
}

// DeleteStage removes a stage and every lead it contains.
func (s *Service) DeleteStage(ctx context.Context, organizationID, stageID uuid.UUID) error {
	stage, err := s.repo.GetStage(ctx, organizationID, stageID)
	if err != nil {
		return err
	}

	leadCount, err := s.repo.DeleteStage(ctx, organizationID, stageID)
	if err != nil {
		return err
	}

	s.invalidateSummary(ctx, organizationID, stage.PipelineID)
	s.bus.Publish(ctx, events.StageDeleted{
		BaseEvent:  events.NewBaseEvent(),
		TenantID:   organizationID,
		PipelineID: stage.PipelineID,
		StageID:    stageID,
		LeadCount:  leadCount,
	})
	return nil
}

func (s *Service) invalidateSummary(ctx context.Context, organizationID, pipelineID uuid.UUID) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, organizationID, pipelineID)
	}
}

// =============================================================================
// Mappers
// =============================================================================

func toPipelineResponse(p domain.Pipeline) transport.PipelineResponse {
	return transport.PipelineResponse{
		ID:        p.ID,
		Name:      p.Name,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func toStageResponse(stage domain.Stage, position int) transport.StageResponse {
	return transport.StageResponse{
		ID:          stage.ID,
		IDPipeline:  stage.PipelineID,
		Name:        stage.Name,
		Description: stage.Description,
		StageOrder:  stage.StageOrder,
		IDAgent:     stage.AgentID,
		Color:       domain.StageColor(position),
		CreatedAt:   stage.CreatedAt,
		UpdatedAt:   stage.UpdatedAt,
	}
}

func toLeadResponse(lead domain.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:           lead.ID,
		IDPipeline:   lead.PipelineID,
		IDStage:      lead.StageID,
		IDContact:    lead.ContactID,
		Name:         lead.Name,
		Phone:        lead.Phone,
		Value:        lead.Value,
		Status:       lead.Status,
		MovedBy:      lead.MovedBy,
		AssignedTo:   lead.AssignedTo,
		Notes:        lead.Notes,
		CreatedAt:    lead.CreatedAt,
		LastActivity: lead.LastActivity,
	}
}
