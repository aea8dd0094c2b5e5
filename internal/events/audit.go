package events

import (
	"context"
	"fmt"

	"pipeline_board_backend/platform/logger"
)

// AuditTrail logs one structured line per board mutation event, giving
// operators a flat who-changed-what record without a dedicated audit store.
type AuditTrail struct {
	log *logger.Logger
}

// NewAuditTrail creates an audit trail writing through the given logger.
func NewAuditTrail(log *logger.Logger) *AuditTrail {
	return &AuditTrail{log: log}
}

// Handle writes the audit line for a board mutation event. Payloads that do
// not match their subscribed event name are rejected.
func (a *AuditTrail) Handle(_ context.Context, event Event) error {
	switch e := event.(type) {
	case LeadMoved:
		a.log.Info("lead_moved",
			"tenantId", e.TenantID,
			"pipelineId", e.PipelineID,
			"leadId", e.LeadID,
			"fromStageId", e.FromStageID,
			"toStageId", e.ToStageID,
			"movedBy", e.MovedBy,
		)
	case StageCreated:
		a.log.Info("stage_created",
			"tenantId", e.TenantID,
			"pipelineId", e.PipelineID,
			"stageId", e.StageID,
			"name", e.Name,
		)
	case StageUpdated:
		a.log.Info("stage_updated",
			"tenantId", e.TenantID,
			"pipelineId", e.PipelineID,
			"stageId", e.StageID,
		)
	case StageDeleted:
		a.log.Info("stage_deleted",
			"tenantId", e.TenantID,
			"pipelineId", e.PipelineID,
			"stageId", e.StageID,
			"leadCount", e.LeadCount,
		)
	case PipelineDeleted:
		a.log.Info("pipeline_deleted",
			"tenantId", e.TenantID,
			"pipelineId", e.PipelineID,
		)
	default:
		return fmt.Errorf("audit trail: unrecognized event %q", event.EventName())
	}
	return nil
}

// RegisterAuditTrail subscribes the audit trail to every pipeline domain
// event on the bus.
func RegisterAuditTrail(bus Bus, log *logger.Logger) {
	trail := NewAuditTrail(log)
	for _, name := range []string{
		LeadMoved{}.EventName(),
		StageCreated{}.EventName(),
		StageUpdated{}.EventName(),
		StageDeleted{}.EventName(),
		PipelineDeleted{}.EventName(),
	} {
		bus.Subscribe(name, trail)
	}
}
