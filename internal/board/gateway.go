package board

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"pipeline_board_backend/internal/pipelines/transport"
	"pipeline_board_backend/platform/apperr"
	"pipeline_board_backend/platform/logger"
	"pipeline_board_backend/platform/validator"
)

// Gateway handles stage create, rename, and delete flows plus lead renames,
// keeping the store consistent with the remote outcome. Creation is
// pessimistic (no store mutation until the server confirms, then a full
// reload), renames are optimistic with rollback, and deletes are
// confirmation-gated.
type Gateway struct {
	store     *Store
	api       PipelineAPI
	val       *validator.Validator
	log       *logger.Logger
	notifier  Notifier
	confirmer Confirmer
	epoch     *Epoch
	rollback  bool
	reload    func(ctx context.Context) error

	wg sync.WaitGroup
}

type autoConfirm struct{}

func (autoConfirm) Confirm(context.Context, string, string) bool { return true }

// NewGateway creates a stage mutation gateway. Without a Confirmer, deletes
// proceed unprompted; hosts wire their confirmation dialog via SetConfirmer.
func NewGateway(store *Store, api PipelineAPI, val *validator.Validator, log *logger.Logger) *Gateway {
	return &Gateway{
		store:     store,
		api:       api,
		val:       val,
		log:       log,
		notifier:  nopNotifier{},
		confirmer: autoConfirm{},
		epoch:     &Epoch{},
		rollback:  true,
	}
}

// SetNotifier wires user-visible notifications.
func (g *Gateway) SetNotifier(n Notifier) {
	if n != nil {
		g.notifier = n
	}
}

// SetConfirmer wires the confirmation gate for destructive operations.
func (g *Gateway) SetConfirmer(c Confirmer) {
	if c != nil {
		g.confirmer = c
	}
}

// SetRollback toggles compensation of failed renames, mirroring the move
// coordinator's legacy mode.
func (g *Gateway) SetRollback(enabled bool) {
	g.rollback = enabled
}

// SetEpoch shares a generation counter with the owning session.
func (g *Gateway) SetEpoch(e *Epoch) {
	if e != nil {
		g.epoch = e
	}
}

// SetReload wires the full re-fetch performed after a successful stage
// creation, so the server-assigned id and stage order become authoritative.
func (g *Gateway) SetReload(reload func(ctx context.Context) error) {
	g.reload = reload
}

// AddStage creates a stage remotely. All fields are required; a blank one
// fails validation before any remote call and leaves the store untouched.
// There is no optimistic insert: on success the whole pipeline is re-fetched.
func (g *Gateway) AddStage(ctx context.Context, req transport.CreateStageRequest) error {
	if err := g.val.Struct(req); err != nil {
		return apperr.Validation("all stage fields are required").WithDetails(err.Error())
	}

	if _, err := g.api.CreateStage(ctx, req); err != nil {
		g.notifier.Error("Failed to create stage", err.Error())
		return err
	}

	if g.reload != nil {
		if err := g.reload(ctx); err != nil {
			g.log.RemoteCallFailed("reload after create stage", err)
		}
	}
	g.notifier.Success("Stage created", req.Name)
	return nil
}

// RenameStage updates stage metadata optimistically, then pushes the full
// stage record to the server (partial updates are not supported). A failed
// remote call restores the previous record unless rollback is disabled.
func (g *Gateway) RenameStage(ctx context.Context, stageID uuid.UUID, name, description string, agentID *uuid.UUID) {
	previous, ok := g.store.RenameStage(stageID, name, description, agentID)
	if !ok {
		return
	}

	token := g.epoch.Current()
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()

		err := g.api.UpdateStage(ctx, stageID, transport.UpdateStageRequest{
			Name:        name,
			Description: description,
			StageOrder:  previous.StageOrder,
			IDAgent:     agentID,
		})
		if err == nil {
			return
		}

		g.log.RemoteCallFailed("update stage", err)
		if g.epoch.Stale(token) {
			return
		}
		if !g.rollback {
			return
		}
		if g.store.RestoreStage(previous) {
			g.notifier.Error("Rename failed", "The stage was restored to its previous name.")
		}
	}()
}

// RenameLead updates a lead's name optimistically, then pushes the full lead
// record to the server (partial updates are not supported). A failed remote
// call restores the previous record unless rollback is disabled.
func (g *Gateway) RenameLead(ctx context.Context, leadID uuid.UUID, name string) {
	previous, ok := g.store.RenameLead(leadID, name)
	if !ok {
		return
	}

	token := g.epoch.Current()
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()

		err := g.api.UpdateLeadCard(ctx, leadID, transport.UpdateLeadRequest{
			IDContact: previous.ContactID,
			Name:      name,
			Phone:     previous.Phone,
			Value:     previous.Value,
			Status:    previous.Status,
			Notes:     previous.Notes,
		})
		if err == nil {
			return
		}

		g.log.RemoteCallFailed("update lead", err)
		if g.epoch.Stale(token) {
			return
		}
		if !g.rollback {
			return
		}
		if g.store.RestoreLead(previous) {
			g.notifier.Error("Rename failed", "The lead was restored to its previous name.")
		}
	}()
}

// DeleteStage removes a stage after user confirmation. The store is only
// touched once the server confirms; a declined confirmation aborts silently.
func (g *Gateway) DeleteStage(ctx context.Context, stageID uuid.UUID) error {
	stage, ok := g.store.Stage(stageID)
	if !ok {
		return nil
	}
	if !g.confirmer.Confirm(ctx, "Delete stage", "Deleting \""+stage.Name+"\" also deletes every lead in it.") {
		return nil
	}

	if err := g.api.DeleteStage(ctx, stageID); err != nil {
		g.notifier.Error("Failed to delete stage", err.Error())
		return err
	}

	g.store.RemoveStage(stageID)
	g.notifier.Success("Stage deleted", stage.Name)
	return nil
}

// DeletePipeline removes the whole pipeline after user confirmation. On
// success the host abandons the view; the store is not updated here.
func (g *Gateway) DeletePipeline(ctx context.Context, pipelineID uuid.UUID) error {
	if !g.confirmer.Confirm(ctx, "Delete pipeline", "This deletes the pipeline with all its stages and leads.") {
		return nil
	}

	if err := g.api.DeletePipeline(ctx, pipelineID); err != nil {
		g.notifier.Error("Failed to delete pipeline", err.Error())
		return err
	}

	g.notifier.Success("Pipeline deleted", "")
	return nil
}

// Wait blocks until in-flight rename confirmations have completed.
func (g *Gateway) Wait() {
	g.wg.Wait()
}
