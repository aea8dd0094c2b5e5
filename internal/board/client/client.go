// Package client is the HTTP adapter between the board core and the pipeline
// API. Wire records are coerced into typed domain entities at this boundary:
// malformed monetary values default to zero and unrecognized provenance tags
// collapse to "unknown", so loosely-typed payloads never reach the board.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"pipeline_board_backend/internal/pipelines/domain"
	"pipeline_board_backend/internal/pipelines/transport"
	"pipeline_board_backend/platform/apperr"
	"pipeline_board_backend/platform/httpkit"
	"pipeline_board_backend/platform/logger"
)

const defaultTimeout = 15 * time.Second

// Client talks to the pipeline API over HTTP and implements board.PipelineAPI.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *logger.Logger
}

// New creates a pipeline API client. baseURL points at the /api/v1 prefix;
// token is the bearer access token.
func New(baseURL, token string, log *logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
		log:     log,
	}
}

// SetHTTPClient swaps the underlying HTTP client; tests pass one backed by
// httptest.
func (c *Client) SetHTTPClient(h *http.Client) {
	if h != nil {
		c.http = h
	}
}

// =============================================================================
// Wire records
// =============================================================================

// flexFloat tolerates monetary values arriving as a number, a numeric string,
// or null. Anything else decodes as zero instead of failing the whole payload.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	*f = 0
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			*f = flexFloat(v)
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*f = flexFloat(v)
	}
	return nil
}

type leadRecord struct {
	ID           uuid.UUID  `json:"id"`
	IDPipeline   uuid.UUID  `json:"id_pipeline"`
	IDStage      uuid.UUID  `json:"id_stage"`
	IDContact    *uuid.UUID `json:"id_contact"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone"`
	Value        flexFloat  `json:"value"`
	Status       string     `json:"status"`
	MovedBy      string     `json:"moved_by"`
	AssignedTo   *uuid.UUID `json:"assigned_to"`
	Notes        string     `json:"notes"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastActivity time.Time  `json:"lastActivity"`
}

func (r leadRecord) toDomain() domain.Lead {
	return domain.Lead{
		ID:           r.ID,
		PipelineID:   r.IDPipeline,
		StageID:      r.IDStage,
		ContactID:    r.IDContact,
		Name:         r.Name,
		Phone:        r.Phone,
		Value:        float64(r.Value),
		Status:       r.Status,
		MovedBy:      domain.NormalizeProvenance(r.MovedBy),
		AssignedTo:   r.AssignedTo,
		Notes:        r.Notes,
		CreatedAt:    r.CreatedAt,
		LastActivity: r.LastActivity,
	}
}

type stageRecord struct {
	ID          uuid.UUID  `json:"id"`
	IDPipeline  uuid.UUID  `json:"id_pipeline"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StageOrder  int        `json:"stage_order"`
	IDAgent     *uuid.UUID `json:"id_agent"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (r stageRecord) toDomain() domain.Stage {
	return domain.Stage{
		ID:          r.ID,
		PipelineID:  r.IDPipeline,
		Name:        r.Name,
		Description: r.Description,
		StageOrder:  r.StageOrder,
		AgentID:     r.IDAgent,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type transferRecord struct {
	ID          uuid.UUID  `json:"id"`
	IDLead      uuid.UUID  `json:"id_lead"`
	IDStageFrom uuid.UUID  `json:"id_stage_from"`
	IDStageTo   uuid.UUID  `json:"id_stage_to"`
	MovedBy     string     `json:"moved_by"`
	AssignedTo  *uuid.UUID `json:"assigned_to"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// =============================================================================
// PipelineAPI
// =============================================================================

// GetPipeline fetches one pipeline.
func (c *Client) GetPipeline(ctx context.Context, pipelineID uuid.UUID) (domain.Pipeline, error) {
	var out domain.Pipeline
	err := c.do(ctx, http.MethodGet, "/pipelines/"+pipelineID.String(), nil, &out)
	return out, err
}

// ListStages fetches a pipeline's stages in board order.
func (c *Client) ListStages(ctx context.Context, pipelineID uuid.UUID) ([]domain.Stage, error) {
	var out struct {
		Items []stageRecord `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/pipelines/"+pipelineID.String()+"/stages", nil, &out); err != nil {
		return nil, err
	}
	stages := make([]domain.Stage, 0, len(out.Items))
	for _, item := range out.Items {
		stages = append(stages, item.toDomain())
	}
	return stages, nil
}

// ListLeadsByStage fetches the leads currently in a stage.
func (c *Client) ListLeadsByStage(ctx context.Context, stageID uuid.UUID) ([]domain.Lead, error) {
	var out struct {
		Items []leadRecord `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/stages/"+stageID.String()+"/leads", nil, &out); err != nil {
		return nil, err
	}
	leads := make([]domain.Lead, 0, len(out.Items))
	for _, item := range out.Items {
		leads = append(leads, item.toDomain())
	}
	return leads, nil
}

// MoveLeadCard moves a lead to another stage.
func (c *Client) MoveLeadCard(ctx context.Context, leadID uuid.UUID, req transport.MoveLeadRequest) error {
	return c.do(ctx, http.MethodPatch, "/leads/"+leadID.String()+"/move", req, nil)
}

// UpdateLeadCard writes the full editable lead state.
func (c *Client) UpdateLeadCard(ctx context.Context, leadID uuid.UUID, req transport.UpdateLeadRequest) error {
	return c.do(ctx, http.MethodPut, "/leads/"+leadID.String(), req, nil)
}

// CreateStage creates a stage and returns the server-assigned record.
func (c *Client) CreateStage(ctx context.Context, req transport.CreateStageRequest) (domain.Stage, error) {
	var out stageRecord
	if err := c.do(ctx, http.MethodPost, "/stages", req, &out); err != nil {
		return domain.Stage{}, err
	}
	return out.toDomain(), nil
}

// UpdateStage writes the full stage state.
func (c *Client) UpdateStage(ctx context.Context, stageID uuid.UUID, req transport.UpdateStageRequest) error {
	return c.do(ctx, http.MethodPut, "/stages/"+stageID.String(), req, nil)
}

// DeleteStage removes a stage and its leads.
func (c *Client) DeleteStage(ctx context.Context, stageID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/stages/"+stageID.String(), nil, nil)
}

// DeletePipeline removes a pipeline with everything in it.
func (c *Client) DeletePipeline(ctx context.Context, pipelineID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/pipelines/"+pipelineID.String(), nil, nil)
}

// ListTransfers fetches a lead's transfer history, newest first.
func (c *Client) ListTransfers(ctx context.Context, leadID uuid.UUID) ([]domain.TransferRecord, error) {
	var out struct {
		Items []transferRecord `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/leads/"+leadID.String()+"/transfers", nil, &out); err != nil {
		return nil, err
	}
	records := make([]domain.TransferRecord, 0, len(out.Items))
	for _, item := range out.Items {
		records = append(records, domain.TransferRecord{
			ID:          item.ID,
			LeadID:      item.IDLead,
			FromStageID: item.IDStageFrom,
			ToStageID:   item.IDStageTo,
			MovedBy:     domain.NormalizeProvenance(item.MovedBy),
			AssignedTo:  item.AssignedTo,
			CreatedAt:   item.CreatedAt,
		})
	}
	return records, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.errorFrom(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) errorFrom(resp *http.Response) error {
	var payload httpkit.ErrorResponse
	message := resp.Status
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
		message = payload.Error
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return apperr.NotFound(message)
	case http.StatusConflict:
		return apperr.Conflict(message)
	case http.StatusBadRequest:
		return apperr.Validation(message).WithDetails(payload.Details)
	case http.StatusUnauthorized:
		return apperr.Unauthorized(message)
	case http.StatusForbidden:
		return apperr.Forbidden(message)
	default:
		return fmt.Errorf("pipeline api: %s (%d)", message, resp.StatusCode)
	}
}
