package board

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pipeline_board_backend/internal/pipelines/domain"
	"pipeline_board_backend/internal/pipelines/transport"
	"pipeline_board_backend/platform/logger"
	"pipeline_board_backend/platform/validator"
)

// Stages load their leads concurrently; the limit keeps a wide board from
// opening dozens of connections at once.
const maxConcurrentLeadFetches = 4

// Session binds a store, coordinator, and gateway to one selected pipeline.
// It owns the generation counter: every Load bumps it, and asynchronous
// completions issued against an older generation are discarded, so switching
// pipelines or reloading can never be overwritten by a stale response.
type Session struct {
	pipelineID  uuid.UUID
	store       *Store
	api         PipelineAPI
	coordinator *Coordinator
	gateway     *Gateway
	epoch       Epoch
	log         *logger.Logger

	mu       sync.Mutex
	pipeline domain.Pipeline
}

// NewSession creates a board session for the given pipeline.
func NewSession(pipelineID uuid.UUID, api PipelineAPI, val *validator.Validator, log *logger.Logger) *Session {
	store := NewStore()
	s := &Session{
		pipelineID:  pipelineID,
		store:       store,
		api:         api,
		coordinator: NewCoordinator(store, api, log),
		gateway:     NewGateway(store, api, val, log),
		log:         log,
	}
	s.coordinator.SetEpoch(&s.epoch)
	s.gateway.SetEpoch(&s.epoch)
	s.gateway.SetReload(s.Load)
	return s
}

// SetNotifier wires user-visible notifications into both mutation paths.
func (s *Session) SetNotifier(n Notifier) {
	s.coordinator.SetNotifier(n)
	s.gateway.SetNotifier(n)
}

// SetConfirmer wires the confirmation gate for destructive operations.
func (s *Session) SetConfirmer(c Confirmer) {
	s.gateway.SetConfirmer(c)
}

// SetRollback toggles compensation of failed optimistic mutations.
func (s *Session) SetRollback(enabled bool) {
	s.coordinator.SetRollback(enabled)
	s.gateway.SetRollback(enabled)
}

// Load fetches the pipeline, its stages, and the leads of every stage, then
// replaces the store content wholesale. Lead fetches run concurrently. The
// snapshot is only installed if no newer Load has started in the meantime.
func (s *Session) Load(ctx context.Context) error {
	token := s.epoch.Next()

	pipeline, err := s.api.GetPipeline(ctx, s.pipelineID)
	if err != nil {
		return err
	}

	stages, err := s.api.ListStages(ctx, s.pipelineID)
	if err != nil {
		return err
	}

	views := make([]StageView, len(stages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLeadFetches)
	for i, stage := range stages {
		views[i].Stage = stage
		g.Go(func() error {
			leads, err := s.api.ListLeadsByStage(gctx, stage.ID)
			if err != nil {
				return err
			}
			views[i].Leads = leads
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if s.epoch.Stale(token) {
		s.log.Debug("discarding stale pipeline snapshot", "pipelineId", s.pipelineID)
		return nil
	}

	s.mu.Lock()
	s.pipeline = pipeline
	s.mu.Unlock()
	s.store.LoadSnapshot(views)
	return nil
}

// Pipeline returns the last loaded pipeline record.
func (s *Session) Pipeline() domain.Pipeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pipeline
}

// Store exposes the underlying store for direct reads.
func (s *Session) Store() *Store { return s.store }

// Snapshot returns the current board state for rendering.
func (s *Session) Snapshot() []StageView { return s.store.Snapshot() }

// Totals returns the pipeline-level lead count and value aggregates.
func (s *Session) Totals() (int, float64) { return s.store.Totals() }

// MoveLead moves a lead card to the target stage.
func (s *Session) MoveLead(ctx context.Context, leadID, targetStageID uuid.UUID) {
	s.coordinator.MoveLead(ctx, leadID, targetStageID)
}

// AddStage creates a stage in the session's pipeline.
func (s *Session) AddStage(ctx context.Context, name, description string, agentID *uuid.UUID) error {
	return s.gateway.AddStage(ctx, transport.CreateStageRequest{
		IDPipeline:  s.pipelineID,
		Name:        name,
		Description: description,
		IDAgent:     agentID,
	})
}

// RenameStage updates stage metadata.
func (s *Session) RenameStage(ctx context.Context, stageID uuid.UUID, name, description string, agentID *uuid.UUID) {
	s.gateway.RenameStage(ctx, stageID, name, description, agentID)
}

// RenameLead updates a lead's name.
func (s *Session) RenameLead(ctx context.Context, leadID uuid.UUID, name string) {
	s.gateway.RenameLead(ctx, leadID, name)
}

// DeleteStage removes a stage after confirmation.
func (s *Session) DeleteStage(ctx context.Context, stageID uuid.UUID) error {
	return s.gateway.DeleteStage(ctx, stageID)
}

// DeletePipeline removes the session's pipeline after confirmation. The
// caller abandons the session on success.
func (s *Session) DeletePipeline(ctx context.Context) error {
	return s.gateway.DeletePipeline(ctx, s.pipelineID)
}

// TransferHistory fetches a lead's stage-movement audit trail, newest first.
func (s *Session) TransferHistory(ctx context.Context, leadID uuid.UUID) ([]domain.TransferRecord, error) {
	return s.api.ListTransfers(ctx, leadID)
}

// Wait blocks until all in-flight background reconciliations have finished.
func (s *Session) Wait() {
	s.coordinator.Wait()
	s.gateway.Wait()
}
