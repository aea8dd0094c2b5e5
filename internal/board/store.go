package board

import (
	"sync"

	"github.com/google/uuid"

	"pipeline_board_backend/internal/pipelines/domain"
)

// Store is the single source of truth for the selected pipeline's stages and
// leads. Every operation takes the lock for its full duration, so mutations
// are individually atomic and a snapshot never observes a half-applied move.
type Store struct {
	mu     sync.Mutex
	stages []StageView
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// LoadSnapshot replaces the entire store content. There are no partial-merge
// semantics; a fresh load always wins.
func (s *Store) LoadSnapshot(stages []StageView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stages = cloneViews(stages)
}

// FindLead scans all stages for the lead and returns the owning stage id
// alongside a copy of the lead.
func (s *Store) FindLead(leadID uuid.UUID) (uuid.UUID, domain.Lead, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.stages {
		for _, lead := range s.stages[i].Leads {
			if lead.ID == leadID {
				return s.stages[i].Stage.ID, lead, true
			}
		}
	}
	return uuid.Nil, domain.Lead{}, false
}

// RemoveLead removes the lead from whichever stage contains it and returns
// the removed lead so the caller can re-insert it elsewhere.
func (s *Store) RemoveLead(leadID uuid.UUID) (domain.Lead, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLeadLocked(leadID)
}

// InsertLead appends the lead into the target stage. Missing stages are a
// silent no-op. Duplicate prevention is the caller's responsibility; the move
// coordinator always removes before inserting.
func (s *Store) InsertLead(stageID uuid.UUID, lead domain.Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLeadLocked(stageID, lead)
}

// RenameStage updates stage metadata in place, leaving leads untouched. It
// returns the previous stage record for rollback, and false when the stage is
// not in the store.
func (s *Store) RenameStage(stageID uuid.UUID, name, description string, agentID *uuid.UUID) (domain.Stage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.stages {
		if s.stages[i].Stage.ID == stageID {
			previous := s.stages[i].Stage
			s.stages[i].Stage.Name = name
			s.stages[i].Stage.Description = description
			s.stages[i].Stage.AgentID = agentID
			return previous, true
		}
	}
	return domain.Stage{}, false
}

// RestoreStage writes back a previously captured stage record. Used to undo
// an optimistic rename after the remote call fails.
func (s *Store) RestoreStage(stage domain.Stage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.stages {
		if s.stages[i].Stage.ID == stage.ID {
			s.stages[i].Stage = stage
			return true
		}
	}
	return false
}

// RenameLead updates a lead's name in place, wherever the lead currently
// sits. Stage membership and move provenance are untouched. It returns the
// previous lead record for rollback, and false when the lead is not in the
// store.
func (s *Store) RenameLead(leadID uuid.UUID, name string) (domain.Lead, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.stages {
		for j := range s.stages[i].Leads {
			if s.stages[i].Leads[j].ID == leadID {
				previous := s.stages[i].Leads[j]
				s.stages[i].Leads[j].Name = name
				return previous, true
			}
		}
	}
	return domain.Lead{}, false
}

// RestoreLead writes back a previously captured lead's editable fields. The
// lead keeps its current stage placement and provenance tags, so undoing a
// failed rename cannot undo a move that landed in the meantime.
func (s *Store) RestoreLead(previous domain.Lead) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.stages {
		for j := range s.stages[i].Leads {
			if s.stages[i].Leads[j].ID == previous.ID {
				current := &s.stages[i].Leads[j]
				current.Name = previous.Name
				current.Phone = previous.Phone
				current.Value = previous.Value
				current.Status = previous.Status
				current.Notes = previous.Notes
				current.ContactID = previous.ContactID
				return true
			}
		}
	}
	return false
}

// RemoveStage deletes the stage and every lead it contains from the local
// view. Remote cascade deletion is the pipeline API's responsibility.
func (s *Store) RemoveStage(stageID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.stages {
		if s.stages[i].Stage.ID == stageID {
			s.stages = append(s.stages[:i], s.stages[i+1:]...)
			return true
		}
	}
	return false
}

// Stage returns a copy of the stage record.
func (s *Store) Stage(stageID uuid.UUID) (domain.Stage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.stages {
		if s.stages[i].Stage.ID == stageID {
			return s.stages[i].Stage, true
		}
	}
	return domain.Stage{}, false
}

// Snapshot returns a deep copy of the board for rendering.
func (s *Store) Snapshot() []StageView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneViews(s.stages)
}

// Totals returns the pipeline-level aggregates: total lead count and the sum
// of lead values across all stages.
func (s *Store) Totals() (int, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	var value float64
	for i := range s.stages {
		count += s.stages[i].Count()
		value += s.stages[i].Value()
	}
	return count, value
}

// ApplyMove atomically relocates a lead to the target stage, tagging it with
// the given provenance and assignee. It returns the lead as it was before the
// move plus its prior stage, so a failed remote call can compensate. The
// target is checked before removal: a missing target or missing lead leaves
// the store untouched.
func (s *Store) ApplyMove(leadID, targetStageID uuid.UUID, movedBy string, assignedTo *uuid.UUID) (domain.Lead, uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasStageLocked(targetStageID) {
		return domain.Lead{}, uuid.Nil, false
	}

	previous, ok := s.removeLeadLocked(leadID)
	if !ok {
		return domain.Lead{}, uuid.Nil, false
	}

	moved := previous
	moved.StageID = targetStageID
	moved.MovedBy = movedBy
	moved.AssignedTo = assignedTo
	s.insertLeadLocked(targetStageID, moved)
	return previous, previous.StageID, true
}

// CompensateMove undoes an optimistic move after the remote call failed. It
// only applies when the lead is still sitting in the stage the failed move
// put it in; if a newer gesture has already relocated the card, the stale
// failure must not clobber it.
func (s *Store) CompensateMove(original domain.Lead, failedTargetID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.ownerLocked(original.ID)
	if !ok || owner != failedTargetID {
		return false
	}
	if !s.hasStageLocked(original.StageID) {
		return false
	}

	if _, ok := s.removeLeadLocked(original.ID); !ok {
		return false
	}
	s.insertLeadLocked(original.StageID, original)
	return true
}

func (s *Store) removeLeadLocked(leadID uuid.UUID) (domain.Lead, bool) {
	for i := range s.stages {
		leads := s.stages[i].Leads
		for j, lead := range leads {
			if lead.ID == leadID {
				s.stages[i].Leads = append(leads[:j], leads[j+1:]...)
				return lead, true
			}
		}
	}
	return domain.Lead{}, false
}

func (s *Store) insertLeadLocked(stageID uuid.UUID, lead domain.Lead) {
	for i := range s.stages {
		if s.stages[i].Stage.ID == stageID {
			s.stages[i].Leads = append(s.stages[i].Leads, lead)
			return
		}
	}
}

func (s *Store) hasStageLocked(stageID uuid.UUID) bool {
	for i := range s.stages {
		if s.stages[i].Stage.ID == stageID {
			return true
		}
	}
	return false
}

func (s *Store) ownerLocked(leadID uuid.UUID) (uuid.UUID, bool) {
	for i := range s.stages {
		for _, lead := range s.stages[i].Leads {
			if lead.ID == leadID {
				return s.stages[i].Stage.ID, true
			}
		}
	}
	return uuid.Nil, false
}

func cloneViews(stages []StageView) []StageView {
	out := make([]StageView, len(stages))
	for i, view := range stages {
		out[i] = StageView{
			Stage: view.Stage,
			Leads: append([]domain.Lead(nil), view.Leads...),
		}
	}
	return out
}
