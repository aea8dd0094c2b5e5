// Package board implements the embeddable pipeline board state manager: an
// in-memory store of stages and their lead cards, a move coordinator that
// applies drag-and-drop moves optimistically and reconciles them with the
// pipeline API, and a mutation gateway for stage create/rename/delete and
// lead rename flows.
// The package has no UI dependencies; hosts drive it through Session and
// render from Store snapshots.
package board

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"

	"pipeline_board_backend/internal/pipelines/domain"
	"pipeline_board_backend/internal/pipelines/transport"
)

// PipelineAPI is the remote collaborator the board reconciles against.
type PipelineAPI interface {
	GetPipeline(ctx context.Context, pipelineID uuid.UUID) (domain.Pipeline, error)
	ListStages(ctx context.Context, pipelineID uuid.UUID) ([]domain.Stage, error)
	ListLeadsByStage(ctx context.Context, stageID uuid.UUID) ([]domain.Lead, error)
	MoveLeadCard(ctx context.Context, leadID uuid.UUID, req transport.MoveLeadRequest) error
	UpdateLeadCard(ctx context.Context, leadID uuid.UUID, req transport.UpdateLeadRequest) error
	CreateStage(ctx context.Context, req transport.CreateStageRequest) (domain.Stage, error)
	UpdateStage(ctx context.Context, stageID uuid.UUID, req transport.UpdateStageRequest) error
	DeleteStage(ctx context.Context, stageID uuid.UUID) error
	DeletePipeline(ctx context.Context, pipelineID uuid.UUID) error
	ListTransfers(ctx context.Context, leadID uuid.UUID) ([]domain.TransferRecord, error)
}

// Notifier surfaces operation outcomes to the user. Hosts plug in whatever
// toast or banner mechanism they have.
type Notifier interface {
	Success(title, detail string)
	Error(title, detail string)
}

// Confirmer gates destructive operations behind an explicit user confirmation.
// Returning false aborts the operation without touching anything.
type Confirmer interface {
	Confirm(ctx context.Context, title, message string) bool
}

// StageView is one stage with the leads currently in it. Count and Value are
// derived from the live lead slice so they can never drift.
type StageView struct {
	Stage domain.Stage
	Leads []domain.Lead
}

// Count returns the number of leads in the stage.
func (v StageView) Count() int { return len(v.Leads) }

// Value returns the sum of lead values in the stage.
func (v StageView) Value() float64 {
	var total float64
	for _, lead := range v.Leads {
		total += lead.Value
	}
	return total
}

// Epoch is a generation counter scoping asynchronous completions to the
// snapshot they were issued against. A reload bumps the generation; results
// carrying an older token are discarded instead of writing into a view that
// has moved on.
type Epoch struct {
	n atomic.Uint64
}

// Current returns the active generation.
func (e *Epoch) Current() uint64 { return e.n.Load() }

// Next advances to a new generation and returns it.
func (e *Epoch) Next() uint64 { return e.n.Add(1) }

// Stale reports whether token belongs to a superseded generation.
func (e *Epoch) Stale(token uint64) bool { return e.n.Load() != token }

type nopNotifier struct{}

func (nopNotifier) Success(string, string) {}
func (nopNotifier) Error(string, string)   {}
