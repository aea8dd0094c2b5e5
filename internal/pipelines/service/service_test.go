package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"pipeline_board_backend/internal/events"
	"pipeline_board_backend/internal/pipelines/domain"
	"pipeline_board_backend/internal/pipelines/transport"
	"pipeline_board_backend/platform/apperr"
	"pipeline_board_backend/platform/logger"
)

// fakeRepo is an in-memory Repository with call recording on the paths the
// service tests exercise.
type fakeRepo struct {
	pipelines map[uuid.UUID]domain.Pipeline
	stages    map[uuid.UUID]domain.Stage
	leads     map[uuid.UUID]domain.Lead
	transfers []domain.TransferRecord

	summaries []domain.StageSummary

	moveCalls      int
	summarizeCalls int
	moveErr        error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		pipelines: map[uuid.UUID]domain.Pipeline{},
		stages:    map[uuid.UUID]domain.Stage{},
		leads:     map[uuid.UUID]domain.Lead{},
	}
}

func (f *fakeRepo) GetPipeline(_ context.Context, organizationID, id uuid.UUID) (domain.Pipeline, error) {
	p, ok := f.pipelines[id]
	if !ok || p.OrganizationID != organizationID {
		return domain.Pipeline{}, apperr.NotFound("pipeline not found")
	}
	return p, nil
}

func (f *fakeRepo) ListPipelines(_ context.Context, organizationID uuid.UUID) ([]domain.Pipeline, error) {
	out := make([]domain.Pipeline, 0)
	for _, p := range f.pipelines {
		if p.OrganizationID == organizationID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreatePipeline(_ context.Context, organizationID uuid.UUID, name string) (domain.Pipeline, error) {
	p := domain.Pipeline{ID: uuid.New(), OrganizationID: organizationID, Name: name}
	f.pipelines[p.ID] = p
	return p, nil
}

func (f *fakeRepo) DeletePipeline(_ context.Context, organizationID, id uuid.UUID) error {
	if _, ok := f.pipelines[id]; !ok {
		return apperr.NotFound("pipeline not found")
	}
	delete(f.pipelines, id)
	return nil
}

func (f *fakeRepo) ListStages(_ context.Context, _, pipelineID uuid.UUID) ([]domain.Stage, error) {
	out := make([]domain.Stage, 0)
	for _, s := range f.stages {
		if s.PipelineID == pipelineID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetStage(_ context.Context, _, stageID uuid.UUID) (domain.Stage, error) {
	s, ok := f.stages[stageID]
	if !ok {
		return domain.Stage{}, apperr.NotFound("stage not found")
	}
	return s, nil
}

func (f *fakeRepo) CreateStage(_ context.Context, _ uuid.UUID, stage domain.Stage) (domain.Stage, error) {
	stage.ID = uuid.New()
	stage.StageOrder = len(f.stages) + 1
	f.stages[stage.ID] = stage
	return stage, nil
}

func (f *fakeRepo) UpdateStage(_ context.Context, _ uuid.UUID, stage domain.Stage) error {
	if _, ok := f.stages[stage.ID]; !ok {
		return apperr.NotFound("stage not found")
	}
	f.stages[stage.ID] = stage
	return nil
}

func (f *fakeRepo) DeleteStage(_ context.Context, _, stageID uuid.UUID) (int, error) {
	if _, ok := f.stages[stageID]; !ok {
		return 0, apperr.NotFound("stage not found")
	}
	count := 0
	for id, lead := range f.leads {
		if lead.StageID == stageID {
			delete(f.leads, id)
			count++
		}
	}
	delete(f.stages, stageID)
	return count, nil
}

func (f *fakeRepo) SummarizeStages(_ context.Context, _, _ uuid.UUID) ([]domain.StageSummary, error) {
	f.summarizeCalls++
	return f.summaries, nil
}

func (f *fakeRepo) ListLeadsByStage(_ context.Context, _, stageID uuid.UUID) ([]domain.Lead, error) {
	out := make([]domain.Lead, 0)
	for _, lead := range f.leads {
		if lead.StageID == stageID {
			out = append(out, lead)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetLead(_ context.Context, _, leadID uuid.UUID) (domain.Lead, error) {
	lead, ok := f.leads[leadID]
	if !ok {
		return domain.Lead{}, apperr.NotFound("lead not found")
	}
	return lead, nil
}

func (f *fakeRepo) CreateLead(_ context.Context, _ uuid.UUID, lead domain.Lead) (domain.Lead, error) {
	lead.ID = uuid.New()
	f.leads[lead.ID] = lead
	return lead, nil
}

func (f *fakeRepo) UpdateLead(_ context.Context, _ uuid.UUID, lead domain.Lead) error {
	if _, ok := f.leads[lead.ID]; !ok {
		return apperr.NotFound("lead not found")
	}
	f.leads[lead.ID] = lead
	return nil
}

func (f *fakeRepo) DeleteLead(_ context.Context, _, leadID uuid.UUID) error {
	delete(f.leads, leadID)
	return nil
}

func (f *fakeRepo) MoveLead(_ context.Context, _, leadID, toStageID uuid.UUID, movedBy string, assignedTo *uuid.UUID) error {
	f.moveCalls++
	if f.moveErr != nil {
		return f.moveErr
	}
	lead := f.leads[leadID]
	lead.StageID = toStageID
	lead.MovedBy = movedBy
	lead.AssignedTo = assignedTo
	f.leads[leadID] = lead
	return nil
}

func (f *fakeRepo) RecordTransfer(_ context.Context, record domain.TransferRecord) error {
	f.transfers = append(f.transfers, record)
	return nil
}

func (f *fakeRepo) ListTransfersByLead(_ context.Context, _, leadID uuid.UUID) ([]domain.TransferRecord, error) {
	out := make([]domain.TransferRecord, 0)
	for _, record := range f.transfers {
		if record.LeadID == leadID {
			out = append(out, record)
		}
	}
	return out, nil
}

// fakeBus records published events synchronously.
type fakeBus struct {
	published []events.Event
}

func (b *fakeBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *fakeBus) PublishSync(_ context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *fakeBus) Subscribe(string, events.Handler) {}

// fakeScheduler records transfer scheduling calls.
type fakeScheduler struct {
	calls []uuid.UUID
	err   error
}

func (s *fakeScheduler) ScheduleTransferRecord(_ context.Context, leadID, _, _ uuid.UUID, _ string, _ *uuid.UUID) error {
	s.calls = append(s.calls, leadID)
	return s.err
}

// fakeCache records invalidations and serves one canned summary.
type fakeCache struct {
	summary       transport.PipelineSummaryResponse
	hasSummary    bool
	sets          int
	invalidations int
}

func (c *fakeCache) GetSummary(context.Context, uuid.UUID, uuid.UUID) (transport.PipelineSummaryResponse, bool) {
	return c.summary, c.hasSummary
}

func (c *fakeCache) SetSummary(_ context.Context, _, _ uuid.UUID, summary transport.PipelineSummaryResponse) {
	c.summary = summary
	c.sets++
}

func (c *fakeCache) Invalidate(context.Context, uuid.UUID, uuid.UUID) {
	c.invalidations++
}

type fixture struct {
	svc   *Service
	repo  *fakeRepo
	bus   *fakeBus
	orgID uuid.UUID

	pipeline domain.Pipeline
	stageA   domain.Stage
	stageB   domain.Stage
	lead     domain.Lead
}

func newFixture() *fixture {
	repo := newFakeRepo()
	bus := &fakeBus{}
	orgID := uuid.New()

	pipeline := domain.Pipeline{ID: uuid.New(), OrganizationID: orgID, Name: "Sales"}
	repo.pipelines[pipeline.ID] = pipeline

	agent := uuid.New()
	stageA := domain.Stage{ID: uuid.New(), PipelineID: pipeline.ID, Name: "New", StageOrder: 1}
	stageB := domain.Stage{ID: uuid.New(), PipelineID: pipeline.ID, Name: "Won", StageOrder: 2, AgentID: &agent}
	repo.stages[stageA.ID] = stageA
	repo.stages[stageB.ID] = stageB

	lead := domain.Lead{ID: uuid.New(), PipelineID: pipeline.ID, StageID: stageA.ID, Name: "Acme", Value: 1000, MovedBy: domain.MovedByUnknown}
	repo.leads[lead.ID] = lead

	return &fixture{
		svc:      New(repo, bus, logger.New("development")),
		repo:     repo,
		bus:      bus,
		orgID:    orgID,
		pipeline: pipeline,
		stageA:   stageA,
		stageB:   stageB,
		lead:     lead,
	}
}

func TestMoveLeadCardNormalizesProvenanceAndSchedulesHistory(t *testing.T) {
	fx := newFixture()
	sched := &fakeScheduler{}
	cache := &fakeCache{}
	fx.svc.SetTransferScheduler(sched)
	fx.svc.SetSummaryCache(cache)

	err := fx.svc.MoveLeadCard(context.Background(), fx.orgID, fx.lead.ID, transport.MoveLeadRequest{
		IDStage: fx.stageB.ID,
		MovedBy: "Human",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	moved := fx.repo.leads[fx.lead.ID]
	if moved.StageID != fx.stageB.ID {
		t.Fatalf("expected lead in stage %s, got %s", fx.stageB.ID, moved.StageID)
	}
	if moved.MovedBy != domain.MovedByHuman {
		t.Fatalf("expected provenance normalized to %q, got %q", domain.MovedByHuman, moved.MovedBy)
	}

	if len(sched.calls) != 1 || sched.calls[0] != fx.lead.ID {
		t.Fatalf("expected one transfer scheduled for the lead, got %v", sched.calls)
	}
	if cache.invalidations != 1 {
		t.Fatalf("expected summary invalidation, got %d", cache.invalidations)
	}

	if len(fx.bus.published) != 1 {
		t.Fatalf("expected one event, got %d", len(fx.bus.published))
	}
	event, ok := fx.bus.published[0].(events.LeadMoved)
	if !ok {
		t.Fatalf("expected LeadMoved event, got %T", fx.bus.published[0])
	}
	if event.FromStageID != fx.stageA.ID || event.ToStageID != fx.stageB.ID {
		t.Fatalf("unexpected event stages %+v", event)
	}
}

func TestMoveLeadCardRejectsCrossPipelineTarget(t *testing.T) {
	fx := newFixture()

	otherPipeline := domain.Pipeline{ID: uuid.New(), OrganizationID: fx.orgID, Name: "Other"}
	fx.repo.pipelines[otherPipeline.ID] = otherPipeline
	foreignStage := domain.Stage{ID: uuid.New(), PipelineID: otherPipeline.ID, Name: "Elsewhere"}
	fx.repo.stages[foreignStage.ID] = foreignStage

	err := fx.svc.MoveLeadCard(context.Background(), fx.orgID, fx.lead.ID, transport.MoveLeadRequest{
		IDStage: foreignStage.ID,
		MovedBy: domain.MovedByHuman,
	})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if fx.repo.moveCalls != 0 {
		t.Fatal("rejected moves must not reach the repository")
	}
	if len(fx.bus.published) != 0 {
		t.Fatal("rejected moves must not publish events")
	}
}

func TestMoveLeadCardSchedulerFailureDoesNotFailTheMove(t *testing.T) {
	fx := newFixture()
	sched := &fakeScheduler{err: errors.New("redis down")}
	fx.svc.SetTransferScheduler(sched)

	err := fx.svc.MoveLeadCard(context.Background(), fx.orgID, fx.lead.ID, transport.MoveLeadRequest{
		IDStage: fx.stageB.ID,
		MovedBy: domain.MovedByHuman,
	})
	if err != nil {
		t.Fatalf("a lost history entry must not fail the move: %v", err)
	}
	if fx.repo.leads[fx.lead.ID].StageID != fx.stageB.ID {
		t.Fatal("expected move committed despite scheduler failure")
	}
}

func TestMoveLeadCardMissingLeadIsNotFound(t *testing.T) {
	fx := newFixture()

	err := fx.svc.MoveLeadCard(context.Background(), fx.orgID, uuid.New(), transport.MoveLeadRequest{
		IDStage: fx.stageB.ID,
		MovedBy: domain.MovedByHuman,
	})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetSummaryServedFromCacheWhenFresh(t *testing.T) {
	fx := newFixture()
	cache := &fakeCache{
		hasSummary: true,
		summary:    transport.PipelineSummaryResponse{IDPipeline: fx.pipeline.ID, TotalLeads: 42},
	}
	fx.svc.SetSummaryCache(cache)

	summary, err := fx.svc.GetSummary(context.Background(), fx.orgID, fx.pipeline.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.TotalLeads != 42 {
		t.Fatalf("expected cached summary, got %+v", summary)
	}
	if fx.repo.summarizeCalls != 0 {
		t.Fatal("cache hit must not recompute from the database")
	}
}

func TestGetSummaryRecomputesAndCachesOnMiss(t *testing.T) {
	fx := newFixture()
	cache := &fakeCache{}
	fx.svc.SetSummaryCache(cache)
	fx.repo.summaries = []domain.StageSummary{
		{StageID: fx.stageA.ID, Name: "New", Count: 3, Value: 1500},
		{StageID: fx.stageB.ID, Name: "Won", Count: 5, Value: 9000},
	}

	summary, err := fx.svc.GetSummary(context.Background(), fx.orgID, fx.pipeline.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.TotalLeads != 8 {
		t.Fatalf("expected total leads 8, got %d", summary.TotalLeads)
	}
	if summary.TotalValue != 10500 {
		t.Fatalf("expected total value 10500, got %v", summary.TotalValue)
	}
	if cache.sets != 1 {
		t.Fatalf("expected recomputed summary cached, got %d sets", cache.sets)
	}
}

func TestCreateLeadDefaultsStatusAndProvenance(t *testing.T) {
	fx := newFixture()

	created, err := fx.svc.CreateLead(context.Background(), fx.orgID, transport.CreateLeadRequest{
		IDPipeline: fx.pipeline.ID,
		IDStage:    fx.stageA.ID,
		Name:       "Initech",
		Value:      300,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Status != defaultLeadStatus {
		t.Fatalf("expected default status %q, got %q", defaultLeadStatus, created.Status)
	}
	if created.MovedBy != domain.MovedByUnknown {
		t.Fatalf("expected provenance %q before any move, got %q", domain.MovedByUnknown, created.MovedBy)
	}
}

func TestDeleteStagePublishesLeadCount(t *testing.T) {
	fx := newFixture()

	if err := fx.svc.DeleteStage(context.Background(), fx.orgID, fx.stageA.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fx.bus.published) != 1 {
		t.Fatalf("expected one event, got %d", len(fx.bus.published))
	}
	event, ok := fx.bus.published[0].(events.StageDeleted)
	if !ok {
		t.Fatalf("expected StageDeleted event, got %T", fx.bus.published[0])
	}
	if event.LeadCount != 1 {
		t.Fatalf("expected the cascade count in the event, got %d", event.LeadCount)
	}
	if _, ok := fx.repo.leads[fx.lead.ID]; ok {
		t.Fatal("expected the stage's leads removed with it")
	}
}

func TestListStagesAssignsPositionalColors(t *testing.T) {
	fx := newFixture()

	stages, err := fx.svc.ListStages(context.Background(), fx.orgID, fx.pipeline.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stages.Total != 2 {
		t.Fatalf("expected 2 stages, got %d", stages.Total)
	}
	for _, stage := range stages.Items {
		if stage.Color == "" {
			t.Fatalf("expected a display color for stage %s", stage.Name)
		}
	}
}
