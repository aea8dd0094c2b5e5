// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	platformevents "pipeline_board_backend/platform/events"
	"pipeline_board_backend/platform/logger"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = platformevents.Event
	Bus         = platformevents.Bus
	Handler     = platformevents.Handler
	HandlerFunc = platformevents.HandlerFunc
	BaseEvent   = platformevents.BaseEvent
	InMemoryBus = platformevents.InMemoryBus
)

// Re-export platform functions
var NewBaseEvent = platformevents.NewBaseEvent

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}

// =============================================================================
// Pipeline Board Domain Events
// =============================================================================

// LeadMoved is published after a lead changes stage.
type LeadMoved struct {
	BaseEvent
	TenantID    uuid.UUID  `json:"tenantId"`
	PipelineID  uuid.UUID  `json:"pipelineId"`
	LeadID      uuid.UUID  `json:"leadId"`
	FromStageID uuid.UUID  `json:"fromStageId"`
	ToStageID   uuid.UUID  `json:"toStageId"`
	MovedBy     string     `json:"movedBy"`
	AssignedTo  *uuid.UUID `json:"assignedTo,omitempty"`
}

func (e LeadMoved) EventName() string { return "pipelines.lead.moved" }

// StageCreated is published after a new stage is persisted.
type StageCreated struct {
	BaseEvent
	TenantID   uuid.UUID `json:"tenantId"`
	PipelineID uuid.UUID `json:"pipelineId"`
	StageID    uuid.UUID `json:"stageId"`
	Name       string    `json:"name"`
}

func (e StageCreated) EventName() string { return "pipelines.stage.created" }

// StageUpdated is published after stage metadata changes.
type StageUpdated struct {
	BaseEvent
	TenantID   uuid.UUID `json:"tenantId"`
	PipelineID uuid.UUID `json:"pipelineId"`
	StageID    uuid.UUID `json:"stageId"`
}

func (e StageUpdated) EventName() string { return "pipelines.stage.updated" }

// StageDeleted is published after a stage and its leads are removed.
type StageDeleted struct {
	BaseEvent
	TenantID   uuid.UUID `json:"tenantId"`
	PipelineID uuid.UUID `json:"pipelineId"`
	StageID    uuid.UUID `json:"stageId"`
	LeadCount  int       `json:"leadCount"`
}

func (e StageDeleted) EventName() string { return "pipelines.stage.deleted" }

// PipelineDeleted is published after a pipeline cascade-delete.
type PipelineDeleted struct {
	BaseEvent
	TenantID   uuid.UUID `json:"tenantId"`
	PipelineID uuid.UUID `json:"pipelineId"`
}

func (e PipelineDeleted) EventName() string { return "pipelines.pipeline.deleted" }
