package board

import (
	"testing"

	"github.com/google/uuid"

	"pipeline_board_backend/internal/pipelines/domain"
)

func TestAggregatesAlwaysMatchLeadMembership(t *testing.T) {
	store, stageA, stageB, lead1, _ := twoStageBoard()

	assertAggregates := func(stageID uuid.UUID, count int, value float64) {
		t.Helper()
		view := stageByID(t, store.Snapshot(), stageID)
		if view.Count() != count {
			t.Fatalf("expected count %d, got %d", count, view.Count())
		}
		if view.Value() != value {
			t.Fatalf("expected value %v, got %v", value, view.Value())
		}
	}

	assertAggregates(stageA.ID, 2, 1500)
	assertAggregates(stageB.ID, 0, 0)

	removed, ok := store.RemoveLead(lead1.ID)
	if !ok {
		t.Fatal("expected lead to be removed")
	}
	assertAggregates(stageA.ID, 1, 500)

	store.InsertLead(stageB.ID, removed)
	assertAggregates(stageB.ID, 1, 1000)

	totalLeads, totalValue := store.Totals()
	if totalLeads != 2 {
		t.Fatalf("expected 2 total leads, got %d", totalLeads)
	}
	if totalValue != 1500 {
		t.Fatalf("expected total value 1500, got %v", totalValue)
	}
}

func TestApplyMoveRelocatesTagsAndAssigns(t *testing.T) {
	store, stageA, stageB, lead1, _ := twoStageBoard()

	original, fromStageID, ok := store.ApplyMove(lead1.ID, stageB.ID, domain.MovedByHuman, stageB.AgentID)
	if !ok {
		t.Fatal("expected move to apply")
	}
	if fromStageID != stageA.ID {
		t.Fatalf("expected source stage %s, got %s", stageA.ID, fromStageID)
	}
	if original.MovedBy != domain.MovedByUnknown {
		t.Fatalf("expected original provenance to be preserved, got %q", original.MovedBy)
	}

	// The lead exists in exactly one stage, tagged and assigned.
	snapshot := store.Snapshot()
	appearances := 0
	for _, view := range snapshot {
		for _, lead := range view.Leads {
			if lead.ID == lead1.ID {
				appearances++
				if view.Stage.ID != stageB.ID {
					t.Fatalf("expected lead in stage %s, found in %s", stageB.ID, view.Stage.ID)
				}
				if lead.MovedBy != domain.MovedByHuman {
					t.Fatalf("expected provenance %q, got %q", domain.MovedByHuman, lead.MovedBy)
				}
				if lead.AssignedTo == nil || *lead.AssignedTo != *stageB.AgentID {
					t.Fatalf("expected lead assigned to stage agent")
				}
			}
		}
	}
	if appearances != 1 {
		t.Fatalf("expected lead to appear in exactly one stage, got %d", appearances)
	}
}

func TestApplyMoveToCurrentStageKeepsAggregates(t *testing.T) {
	store, stageA, _, lead1, _ := twoStageBoard()

	if _, _, ok := store.ApplyMove(lead1.ID, stageA.ID, domain.MovedByHuman, nil); !ok {
		t.Fatal("expected self-move to apply")
	}

	view := stageByID(t, store.Snapshot(), stageA.ID)
	if view.Count() != 2 || view.Value() != 1500 {
		t.Fatalf("expected aggregates unchanged, got count %d value %v", view.Count(), view.Value())
	}
}

func TestApplyMoveMissingTargetLeavesStoreUntouched(t *testing.T) {
	store, stageA, _, lead1, _ := twoStageBoard()

	if _, _, ok := store.ApplyMove(lead1.ID, uuid.New(), domain.MovedByHuman, nil); ok {
		t.Fatal("expected move to a missing stage to be refused")
	}

	view := stageByID(t, store.Snapshot(), stageA.ID)
	if view.Count() != 2 {
		t.Fatalf("expected lead to stay in its stage, count %d", view.Count())
	}
}

func TestApplyMoveMissingLeadIsNoOp(t *testing.T) {
	store, stageA, stageB, _, _ := twoStageBoard()

	if _, _, ok := store.ApplyMove(uuid.New(), stageB.ID, domain.MovedByHuman, nil); ok {
		t.Fatal("expected moving an unknown lead to be a no-op")
	}

	totalLeads, _ := store.Totals()
	if totalLeads != 2 {
		t.Fatalf("expected totals unchanged, got %d", totalLeads)
	}
	if view := stageByID(t, store.Snapshot(), stageA.ID); view.Count() != 2 {
		t.Fatalf("expected source stage untouched, count %d", view.Count())
	}
}

func TestCompensateMoveRestoresOriginalLead(t *testing.T) {
	store, stageA, stageB, lead1, _ := twoStageBoard()

	original, _, _ := store.ApplyMove(lead1.ID, stageB.ID, domain.MovedByHuman, stageB.AgentID)
	if !store.CompensateMove(original, stageB.ID) {
		t.Fatal("expected compensation to apply")
	}

	stageID, lead, ok := store.FindLead(lead1.ID)
	if !ok || stageID != stageA.ID {
		t.Fatalf("expected lead back in stage %s", stageA.ID)
	}
	if lead.MovedBy != domain.MovedByUnknown {
		t.Fatalf("expected original provenance restored, got %q", lead.MovedBy)
	}
	if lead.AssignedTo != nil {
		t.Fatal("expected original assignment restored")
	}
}

func TestCompensateMoveSkipsWhenANewerGestureWon(t *testing.T) {
	store, stageA, stageB, lead1, _ := twoStageBoard()

	original, _, _ := store.ApplyMove(lead1.ID, stageB.ID, domain.MovedByHuman, stageB.AgentID)
	// A second gesture moves the lead again before the first failure lands.
	store.ApplyMove(lead1.ID, stageA.ID, domain.MovedByHuman, nil)

	if store.CompensateMove(original, stageB.ID) {
		t.Fatal("expected stale compensation to be dropped")
	}

	stageID, _, _ := store.FindLead(lead1.ID)
	if stageID != stageA.ID {
		t.Fatalf("expected newer move to win, lead is in %s", stageID)
	}
}

func TestRemoveStageDropsItsLeadsFromTotals(t *testing.T) {
	store, stageA, stageB, _, _ := twoStageBoard()

	before, _ := store.Totals()
	if !store.RemoveStage(stageA.ID) {
		t.Fatal("expected stage removal")
	}

	for _, view := range store.Snapshot() {
		if view.Stage.ID == stageA.ID {
			t.Fatal("expected stage to be gone from the snapshot")
		}
	}
	after, _ := store.Totals()
	if after != before-2 {
		t.Fatalf("expected totals to drop by the stage's count, before %d after %d", before, after)
	}
	if view := stageByID(t, store.Snapshot(), stageB.ID); view.Count() != 0 {
		t.Fatalf("expected other stages untouched")
	}
}

func TestRenameStageCapturesPreviousRecord(t *testing.T) {
	store, stageA, _, _, _ := twoStageBoard()
	agent := uuid.New()

	previous, ok := store.RenameStage(stageA.ID, "Contacted", "first touch", &agent)
	if !ok {
		t.Fatal("expected rename to apply")
	}
	if previous.Name != "New" {
		t.Fatalf("expected previous name captured, got %q", previous.Name)
	}

	current, _ := store.Stage(stageA.ID)
	if current.Name != "Contacted" || current.Description != "first touch" {
		t.Fatalf("expected renamed stage, got %+v", current)
	}
	if view := stageByID(t, store.Snapshot(), stageA.ID); view.Count() != 2 {
		t.Fatal("rename must not touch leads")
	}

	if !store.RestoreStage(previous) {
		t.Fatal("expected restore to apply")
	}
	restored, _ := store.Stage(stageA.ID)
	if restored.Name != "New" {
		t.Fatalf("expected restored name, got %q", restored.Name)
	}
}

func TestSnapshotIsDetachedFromStore(t *testing.T) {
	store, stageA, _, _, _ := twoStageBoard()

	snapshot := store.Snapshot()
	view := stageByID(t, snapshot, stageA.ID)
	view.Leads[0].Value = 999999

	fresh := stageByID(t, store.Snapshot(), stageA.ID)
	if fresh.Value() != 1500 {
		t.Fatalf("expected store unaffected by snapshot mutation, value %v", fresh.Value())
	}
}

func TestInsertLeadDoesNotDeduplicate(t *testing.T) {
	store, _, stageB, lead1, _ := twoStageBoard()

	// Duplicate prevention is the move coordinator's job; the store allows it.
	store.InsertLead(stageB.ID, lead1)

	appearances := 0
	for _, view := range store.Snapshot() {
		for _, lead := range view.Leads {
			if lead.ID == lead1.ID {
				appearances++
			}
		}
	}
	if appearances != 2 {
		t.Fatalf("expected raw insert to permit duplicates, got %d appearances", appearances)
	}
}
