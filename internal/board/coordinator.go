package board

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"pipeline_board_backend/internal/pipelines/domain"
	"pipeline_board_backend/internal/pipelines/transport"
	"pipeline_board_backend/platform/logger"
)

// Coordinator applies lead moves optimistically and reconciles them with the
// pipeline API. The local mutation is synchronous; the remote call runs in the
// background and, by default, compensates the move if the server rejects it.
type Coordinator struct {
	store    *Store
	api      PipelineAPI
	log      *logger.Logger
	notifier Notifier
	epoch    *Epoch
	rollback bool

	wg sync.WaitGroup
}

// NewCoordinator creates a move coordinator with rollback-on-failure enabled.
func NewCoordinator(store *Store, api PipelineAPI, log *logger.Logger) *Coordinator {
	return &Coordinator{
		store:    store,
		api:      api,
		log:      log,
		notifier: nopNotifier{},
		epoch:    &Epoch{},
		rollback: true,
	}
}

// SetNotifier wires user-visible failure notifications.
func (c *Coordinator) SetNotifier(n Notifier) {
	if n != nil {
		c.notifier = n
	}
}

// SetRollback toggles compensation of failed moves. Disabling it restores the
// legacy fire-and-forget behavior: the optimistic state stays authoritative
// and a failed remote call is only logged.
func (c *Coordinator) SetRollback(enabled bool) {
	c.rollback = enabled
}

// SetEpoch shares a generation counter with the owning session so completions
// from before a reload are discarded.
func (c *Coordinator) SetEpoch(e *Epoch) {
	if e != nil {
		c.epoch = e
	}
}

// MoveLead moves a lead to the target stage. The store mutation happens before
// this returns: the lead is tagged as moved by a human and assigned to the
// target stage's agent. A missing lead or missing target stage is a silent
// no-op. Moving a lead onto its current stage changes nothing visibly but
// still issues the remote call.
func (c *Coordinator) MoveLead(ctx context.Context, leadID, targetStageID uuid.UUID) {
	target, ok := c.store.Stage(targetStageID)
	if !ok {
		return
	}

	original, _, ok := c.store.ApplyMove(leadID, targetStageID, domain.MovedByHuman, target.AgentID)
	if !ok {
		return
	}

	token := c.epoch.Current()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		err := c.api.MoveLeadCard(ctx, leadID, transport.MoveLeadRequest{
			IDStage:    targetStageID,
			MovedBy:    domain.MovedByHuman,
			AssignedTo: target.AgentID,
		})
		if err == nil {
			return
		}

		c.log.RemoteCallFailed("move lead card", err)
		if c.epoch.Stale(token) {
			return
		}
		if !c.rollback {
			return
		}
		if c.store.CompensateMove(original, targetStageID) {
			c.notifier.Error("Move failed", "The lead was returned to its previous stage.")
		}
	}()
}

// Wait blocks until all in-flight remote moves have completed. Hosts call it
// on teardown; tests call it before asserting.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}
