// Package domain provides core entities and business rules for the pipeline
// board bounded context.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Provenance values recorded on a lead when it changes stage.
const (
	MovedByHuman   = "human"
	MovedByAI      = "ai"
	MovedByUnknown = "unknown"
)

// NormalizeProvenance maps free-text provenance tags onto the known set.
// Anything unrecognized collapses to "unknown" at the boundary instead of
// propagating arbitrary strings into the board.
func NormalizeProvenance(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case MovedByHuman:
		return MovedByHuman
	case MovedByAI:
		return MovedByAI
	default:
		return MovedByUnknown
	}
}

// Pipeline is a named container of ordered stages, scoped to one organization.
type Pipeline struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"id_organization"`
	Name           string    `json:"name"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Stage belongs to exactly one pipeline. StageOrder is a sort key for
// left-to-right display; it is not required to be unique.
type Stage struct {
	ID          uuid.UUID  `json:"id"`
	PipelineID  uuid.UUID  `json:"id_pipeline"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StageOrder  int        `json:"stage_order"`
	AgentID     *uuid.UUID `json:"id_agent,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Lead belongs to exactly one stage at a time, and to the same pipeline as
// that stage. The pipeline match is enforced server-side on move.
type Lead struct {
	ID           uuid.UUID  `json:"id"`
	PipelineID   uuid.UUID  `json:"id_pipeline"`
	StageID      uuid.UUID  `json:"id_stage"`
	ContactID    *uuid.UUID `json:"id_contact,omitempty"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone"`
	Value        float64    `json:"value"`
	Status       string     `json:"status"`
	MovedBy      string     `json:"moved_by"`
	AssignedTo   *uuid.UUID `json:"assigned_to,omitempty"`
	Notes        string     `json:"notes"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastActivity time.Time  `json:"lastActivity"`
}

// StageSummary is the derived aggregate for one stage: lead count and the sum
// of lead values. Always recomputed from live leads, never stored.
type StageSummary struct {
	StageID uuid.UUID `json:"id_stage"`
	Name    string    `json:"name"`
	Count   int       `json:"count"`
	Value   float64   `json:"value"`
}

// TransferRecord is one entry in a lead's stage-movement audit trail.
type TransferRecord struct {
	ID          uuid.UUID  `json:"id"`
	LeadID      uuid.UUID  `json:"id_lead"`
	FromStageID uuid.UUID  `json:"id_stage_from"`
	ToStageID   uuid.UUID  `json:"id_stage_to"`
	MovedBy     string     `json:"moved_by"`
	AssignedTo  *uuid.UUID `json:"assigned_to,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}
