package board

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"pipeline_board_backend/internal/pipelines/domain"
	"pipeline_board_backend/internal/pipelines/transport"
	"pipeline_board_backend/platform/logger"
)

// fakeAPI is an in-memory PipelineAPI with per-operation error injection and
// call recording. Hooks run inside the faked call, which lets tests interleave
// a second operation mid-flight.
type fakeAPI struct {
	mu sync.Mutex

	pipeline     domain.Pipeline
	stages       []domain.Stage
	leadsByStage map[uuid.UUID][]domain.Lead

	moveErr   error
	moveGate  chan struct{}
	moveCalls []fakeMoveCall

	createErr    error
	createCalls  []transport.CreateStageRequest
	createdStage domain.Stage

	updateErr   error
	updateCalls []fakeUpdateCall

	updateLeadErr   error
	updateLeadGate  chan struct{}
	updateLeadCalls []fakeUpdateLeadCall

	deleteStageErr      error
	deleteStageCalls    int
	deletePipelineErr   error
	deletePipelineCalls int

	leadsHook func()
}

type fakeMoveCall struct {
	leadID uuid.UUID
	req    transport.MoveLeadRequest
}

type fakeUpdateCall struct {
	stageID uuid.UUID
	req     transport.UpdateStageRequest
}

type fakeUpdateLeadCall struct {
	leadID uuid.UUID
	req    transport.UpdateLeadRequest
}

func (f *fakeAPI) GetPipeline(context.Context, uuid.UUID) (domain.Pipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pipeline, nil
}

func (f *fakeAPI) ListStages(context.Context, uuid.UUID) ([]domain.Stage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Stage(nil), f.stages...), nil
}

func (f *fakeAPI) ListLeadsByStage(_ context.Context, stageID uuid.UUID) ([]domain.Lead, error) {
	f.mu.Lock()
	hook := f.leadsHook
	f.leadsHook = nil
	leads := append([]domain.Lead(nil), f.leadsByStage[stageID]...)
	f.mu.Unlock()

	if hook != nil {
		hook()
		// Re-read so the hook's data swap is visible to this fetch too.
		f.mu.Lock()
		leads = append([]domain.Lead(nil), f.leadsByStage[stageID]...)
		f.mu.Unlock()
	}
	return leads, nil
}

func (f *fakeAPI) MoveLeadCard(_ context.Context, leadID uuid.UUID, req transport.MoveLeadRequest) error {
	if f.moveGate != nil {
		<-f.moveGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moveCalls = append(f.moveCalls, fakeMoveCall{leadID: leadID, req: req})
	return f.moveErr
}

func (f *fakeAPI) UpdateLeadCard(_ context.Context, leadID uuid.UUID, req transport.UpdateLeadRequest) error {
	if f.updateLeadGate != nil {
		<-f.updateLeadGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateLeadCalls = append(f.updateLeadCalls, fakeUpdateLeadCall{leadID: leadID, req: req})
	return f.updateLeadErr
}

func (f *fakeAPI) CreateStage(_ context.Context, req transport.CreateStageRequest) (domain.Stage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls = append(f.createCalls, req)
	if f.createErr != nil {
		return domain.Stage{}, f.createErr
	}
	return f.createdStage, nil
}

func (f *fakeAPI) UpdateStage(_ context.Context, stageID uuid.UUID, req transport.UpdateStageRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls = append(f.updateCalls, fakeUpdateCall{stageID: stageID, req: req})
	return f.updateErr
}

func (f *fakeAPI) DeleteStage(context.Context, uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteStageCalls++
	return f.deleteStageErr
}

func (f *fakeAPI) DeletePipeline(context.Context, uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletePipelineCalls++
	return f.deletePipelineErr
}

func (f *fakeAPI) ListTransfers(context.Context, uuid.UUID) ([]domain.TransferRecord, error) {
	return nil, nil
}

func (f *fakeAPI) moveCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.moveCalls)
}

func (f *fakeAPI) createCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.createCalls)
}

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	failures  []string
}

func (n *recordingNotifier) Success(title, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, title)
}

func (n *recordingNotifier) Error(title, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, title)
}

func (n *recordingNotifier) failureCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.failures)
}

func (n *recordingNotifier) successCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.successes)
}

// stubConfirmer answers every confirmation the same way.
type stubConfirmer struct {
	approve bool
	calls   int
}

func (c *stubConfirmer) Confirm(context.Context, string, string) bool {
	c.calls++
	return c.approve
}

func testLogger() *logger.Logger {
	return logger.New("development")
}

// twoStageBoard builds a store with stage A holding two leads and stage B,
// which has an agent, holding none.
func twoStageBoard() (*Store, domain.Stage, domain.Stage, domain.Lead, domain.Lead) {
	agentID := uuid.New()
	stageA := domain.Stage{ID: uuid.New(), PipelineID: uuid.New(), Name: "New", StageOrder: 1}
	stageB := domain.Stage{ID: uuid.New(), PipelineID: stageA.PipelineID, Name: "Qualified", StageOrder: 2, AgentID: &agentID}

	lead1 := domain.Lead{ID: uuid.New(), PipelineID: stageA.PipelineID, StageID: stageA.ID, Name: "Acme", Value: 1000, MovedBy: domain.MovedByUnknown}
	lead2 := domain.Lead{ID: uuid.New(), PipelineID: stageA.PipelineID, StageID: stageA.ID, Name: "Globex", Value: 500, MovedBy: domain.MovedByUnknown}

	store := NewStore()
	store.LoadSnapshot([]StageView{
		{Stage: stageA, Leads: []domain.Lead{lead1, lead2}},
		{Stage: stageB},
	})
	return store, stageA, stageB, lead1, lead2
}

func stageByID(t interface{ Fatalf(string, ...interface{}) }, views []StageView, id uuid.UUID) StageView {
	for _, view := range views {
		if view.Stage.ID == id {
			return view
		}
	}
	t.Fatalf("stage %s not found in snapshot", id)
	return StageView{}
}
