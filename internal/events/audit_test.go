package events

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"pipeline_board_backend/platform/logger"
)

// impostorEvent reuses a subscribed event name with a foreign payload type.
type impostorEvent struct{}

func (impostorEvent) EventName() string     { return "pipelines.lead.moved" }
func (impostorEvent) OccurredAt() time.Time { return time.Now() }

func TestAuditTrailHandlesEveryDomainEvent(t *testing.T) {
	trail := NewAuditTrail(logger.New("development"))
	ctx := context.Background()
	tenantID := uuid.New()
	pipelineID := uuid.New()

	cases := []Event{
		LeadMoved{BaseEvent: NewBaseEvent(), TenantID: tenantID, PipelineID: pipelineID, LeadID: uuid.New(), FromStageID: uuid.New(), ToStageID: uuid.New(), MovedBy: "human"},
		StageCreated{BaseEvent: NewBaseEvent(), TenantID: tenantID, PipelineID: pipelineID, StageID: uuid.New(), Name: "Qualified"},
		StageUpdated{BaseEvent: NewBaseEvent(), TenantID: tenantID, PipelineID: pipelineID, StageID: uuid.New()},
		StageDeleted{BaseEvent: NewBaseEvent(), TenantID: tenantID, PipelineID: pipelineID, StageID: uuid.New(), LeadCount: 3},
		PipelineDeleted{BaseEvent: NewBaseEvent(), TenantID: tenantID, PipelineID: pipelineID},
	}
	for _, event := range cases {
		if err := trail.Handle(ctx, event); err != nil {
			t.Fatalf("Handle(%s) returned %v", event.EventName(), err)
		}
	}
}

func TestRegisterAuditTrailSubscribesToEveryMutation(t *testing.T) {
	log := logger.New("development")
	bus := NewInMemoryBus(log)
	RegisterAuditTrail(bus, log)

	published := []Event{
		LeadMoved{BaseEvent: NewBaseEvent()},
		StageCreated{BaseEvent: NewBaseEvent()},
		StageUpdated{BaseEvent: NewBaseEvent()},
		StageDeleted{BaseEvent: NewBaseEvent()},
		PipelineDeleted{BaseEvent: NewBaseEvent()},
	}
	for _, event := range published {
		if err := bus.PublishSync(context.Background(), event); err != nil {
			t.Fatalf("PublishSync(%s) returned %v", event.EventName(), err)
		}
	}

	// A mismatched payload under a subscribed name surfaces as a handler
	// error, which proves the trail actually receives dispatches.
	if err := bus.PublishSync(context.Background(), impostorEvent{}); err == nil {
		t.Fatal("expected the audit trail to reject a mismatched payload")
	}
}
