// Package scheduler moves transfer-history writes out of the request path.
// A lead move enqueues a task over Redis; the worker binary consumes it and
// appends to the lead_transfers audit trail.
package scheduler

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TaskLeadTransferRecord records one lead stage transfer.
const TaskLeadTransferRecord = "leads.transfer.record"

// LeadTransferPayload is the task payload for TaskLeadTransferRecord.
type LeadTransferPayload struct {
	LeadID      uuid.UUID  `json:"lead_id"`
	FromStageID uuid.UUID  `json:"from_stage_id"`
	ToStageID   uuid.UUID  `json:"to_stage_id"`
	MovedBy     string     `json:"moved_by"`
	AssignedTo  *uuid.UUID `json:"assigned_to,omitempty"`
	MovedAt     time.Time  `json:"moved_at"`
}

// NewLeadTransferTask builds the asynq task for a transfer record.
func NewLeadTransferTask(payload LeadTransferPayload) (*asynq.Task, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal transfer payload: %w", err)
	}
	return asynq.NewTask(TaskLeadTransferRecord, raw), nil
}
