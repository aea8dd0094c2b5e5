package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"pipeline_board_backend/internal/pipelines/domain"
	"pipeline_board_backend/internal/pipelines/transport"
	"pipeline_board_backend/platform/apperr"
	"pipeline_board_backend/platform/logger"
)

func TestListLeadsCoercesLooseWireRecords(t *testing.T) {
	stageID := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stages/"+stageID.String()+"/leads" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		// Value as string, as null, and provenance in arbitrary casing, the
		// way loosely-typed upstreams actually ship it.
		_, _ = w.Write([]byte(`{"items":[
			{"id":"` + uuid.NewString() + `","id_stage":"` + stageID.String() + `","name":"a","value":"1500.50","moved_by":"Human"},
			{"id":"` + uuid.NewString() + `","id_stage":"` + stageID.String() + `","name":"b","value":null,"moved_by":"robot"},
			{"id":"` + uuid.NewString() + `","id_stage":"` + stageID.String() + `","name":"c","value":250,"moved_by":"AI"}
		],"total":3}`))
	}))
	defer server.Close()

	c := New(server.URL, "token", logger.New("development"))
	leads, err := c.ListLeadsByStage(context.Background(), stageID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(leads) != 3 {
		t.Fatalf("expected 3 leads, got %d", len(leads))
	}

	if leads[0].Value != 1500.50 || leads[0].MovedBy != domain.MovedByHuman {
		t.Fatalf("expected coerced string value and normalized provenance, got %v %q", leads[0].Value, leads[0].MovedBy)
	}
	if leads[1].Value != 0 || leads[1].MovedBy != domain.MovedByUnknown {
		t.Fatalf("expected null value to default and unknown provenance, got %v %q", leads[1].Value, leads[1].MovedBy)
	}
	if leads[2].Value != 250 || leads[2].MovedBy != domain.MovedByAI {
		t.Fatalf("expected plain number and ai provenance, got %v %q", leads[2].Value, leads[2].MovedBy)
	}
}

func TestMoveLeadCardSendsPatchWithBearerToken(t *testing.T) {
	leadID := uuid.New()
	stageID := uuid.New()
	var gotMethod, gotPath, gotAuth string
	var gotBody transport.MoveLeadRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := New(server.URL, "secret-token", logger.New("development"))
	err := c.MoveLeadCard(context.Background(), leadID, transport.MoveLeadRequest{
		IDStage: stageID,
		MovedBy: domain.MovedByHuman,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotMethod != http.MethodPatch {
		t.Fatalf("expected PATCH, got %s", gotMethod)
	}
	if gotPath != "/leads/"+leadID.String()+"/move" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotAuth != "Bearer secret-token" {
		t.Fatalf("expected bearer token, got %q", gotAuth)
	}
	if gotBody.IDStage != stageID || gotBody.MovedBy != domain.MovedByHuman {
		t.Fatalf("unexpected body %+v", gotBody)
	}
}

func TestErrorResponsesMapToTypedKinds(t *testing.T) {
	cases := []struct {
		name   string
		status int
		kind   apperr.Kind
	}{
		{"not found", http.StatusNotFound, apperr.KindNotFound},
		{"conflict", http.StatusConflict, apperr.KindConflict},
		{"bad request", http.StatusBadRequest, apperr.KindValidation},
		{"unauthorized", http.StatusUnauthorized, apperr.KindUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"error":"nope"}`))
			}))
			defer server.Close()

			c := New(server.URL, "", logger.New("development"))
			err := c.DeleteStage(context.Background(), uuid.New())
			if err == nil {
				t.Fatal("expected an error")
			}
			if !apperr.Is(err, tc.kind) {
				t.Fatalf("expected kind %v, got %v", tc.kind, err)
			}
			if err.Error() != "nope" {
				t.Fatalf("expected server message to surface, got %q", err.Error())
			}
		})
	}
}

func TestListStagesUnwrapsListEnvelope(t *testing.T) {
	pipelineID := uuid.New()
	stageID := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"id":"` + stageID.String() + `","id_pipeline":"` + pipelineID.String() + `","name":"New","stage_order":1}],"total":1}`))
	}))
	defer server.Close()

	c := New(server.URL, "", logger.New("development"))
	stages, err := c.ListStages(context.Background(), pipelineID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stages) != 1 || stages[0].ID != stageID || stages[0].StageOrder != 1 {
		t.Fatalf("unexpected stages %+v", stages)
	}
}
