package repository

import (
	"context"
	"errors"
	"fmt"

	"pipeline_board_backend/internal/pipelines/domain"
	"pipeline_board_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pipelineNotFoundMessage = "pipeline not found"
	stageNotFoundMessage    = "stage not found"
)

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new pipeline board repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

const listStagesQuery = `
	SELECT s.id, s.id_pipeline, s.name, s.description, s.stage_order, s.id_agent, s.created_at, s.updated_at
	FROM pipeline_stages s
	JOIN pipelines p ON p.id = s.id_pipeline
	WHERE s.id_pipeline = $1 AND p.organization_id = $2
	ORDER BY s.stage_order ASC, s.created_at ASC`

const getStageQuery = `
	SELECT s.id, s.id_pipeline, s.name, s.description, s.stage_order, s.id_agent, s.created_at, s.updated_at
	FROM pipeline_stages s
	JOIN pipelines p ON p.id = s.id_pipeline
	WHERE s.id = $1 AND p.organization_id = $2`

// GetPipeline retrieves a pipeline by ID within the organization.
func (r *Repo) GetPipeline(ctx context.Context, organizationID, id uuid.UUID) (domain.Pipeline, error) {
	query := `
		SELECT id, organization_id, name, created_at, updated_at
		FROM pipelines
		WHERE id = $1 AND organization_id = $2`

	var p domain.Pipeline
	err := r.pool.QueryRow(ctx, query, id, organizationID).Scan(
		&p.ID, &p.OrganizationID, &p.Name, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Pipeline{}, apperr.NotFound(pipelineNotFoundMessage)
		}
		return domain.Pipeline{}, fmt.Errorf("get pipeline: %w", err)
	}

	return p, nil
}

// ListPipelines retrieves all pipelines for the organization, oldest first.
func (r *Repo) ListPipelines(ctx context.Context, organizationID uuid.UUID) ([]domain.Pipeline, error) {
	query := `
		SELECT id, organization_id, name, created_at, updated_at
		FROM pipelines
		WHERE organization_id = $1
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list pipelines: %w", err)
	}
	defer rows.Close()

	pipelines := make([]domain.Pipeline, 0)
	for rows.Next() {
		var p domain.Pipeline
		if err := rows.Scan(&p.ID, &p.OrganizationID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan pipeline: %w", err)
		}
		pipelines = append(pipelines, p)
	}
	return pipelines, rows.Err()
}

// CreatePipeline inserts a new pipeline and returns it with server-assigned fields.
func (r *Repo) CreatePipeline(ctx context.Context, organizationID uuid.UUID, name string) (domain.Pipeline, error) {
	query := `
		INSERT INTO pipelines (id, organization_id, name)
		VALUES ($1, $2, $3)
		RETURNING id, organization_id, name, created_at, updated_at`

	var p domain.Pipeline
	err := r.pool.QueryRow(ctx, query, uuid.New(), organizationID, name).Scan(
		&p.ID, &p.OrganizationID, &p.Name, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return domain.Pipeline{}, fmt.Errorf("create pipeline: %w", err)
	}
	return p, nil
}

// DeletePipeline removes a pipeline; stages and leads cascade via foreign keys.
func (r *Repo) DeletePipeline(ctx context.Context, organizationID, id uuid.UUID) error {
	query := `DELETE FROM pipelines WHERE id = $1 AND organization_id = $2`

	tag, err := r.pool.Exec(ctx, query, id, organizationID)
	if err != nil {
		return fmt.Errorf("delete pipeline: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(pipelineNotFoundMessage)
	}
	return nil
}

// ListStages retrieves a pipeline's stages ordered by stage_order.
func (r *Repo) ListStages(ctx context.Context, organizationID, pipelineID uuid.UUID) ([]domain.Stage, error) {
	rows, err := r.pool.Query(ctx, listStagesQuery, pipelineID, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer rows.Close()

	stages := make([]domain.Stage, 0)
	for rows.Next() {
		var s domain.Stage
		if err := rows.Scan(&s.ID, &s.PipelineID, &s.Name, &s.Description, &s.StageOrder, &s.AgentID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		stages = append(stages, s)
	}
	return stages, rows.Err()
}

// GetStage retrieves a stage by ID within the organization.
func (r *Repo) GetStage(ctx context.Context, organizationID, stageID uuid.UUID) (domain.Stage, error) {
	var s domain.Stage
	err := r.pool.QueryRow(ctx, getStageQuery, stageID, organizationID).Scan(
		&s.ID, &s.PipelineID, &s.Name, &s.Description, &s.StageOrder, &s.AgentID, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Stage{}, apperr.NotFound(stageNotFoundMessage)
		}
		return domain.Stage{}, fmt.Errorf("get stage: %w", err)
	}
	return s, nil
}

// SummarizeStages recomputes per-stage lead counts and value totals directly
// from the leads table.
func (r *Repo) SummarizeStages(ctx context.Context, organizationID, pipelineID uuid.UUID) ([]domain.StageSummary, error) {
	query := `
		SELECT s.id, s.name, COUNT(l.id), COALESCE(SUM(l.value), 0)
		FROM pipeline_stages s
		JOIN pipelines p ON p.id = s.id_pipeline
		LEFT JOIN leads l ON l.id_stage = s.id
		WHERE s.id_pipeline = $1 AND p.organization_id = $2
		GROUP BY s.id, s.name, s.stage_order
		ORDER BY s.stage_order ASC`

	rows, err := r.pool.Query(ctx, query, pipelineID, organizationID)
	if err != nil {
		return nil, fmt.Errorf("summarize stages: %w", err)
	}
	defer rows.Close()

	summaries := make([]domain.StageSummary, 0)
	for rows.Next() {
		var s domain.StageSummary
		if err := rows.Scan(&s.StageID, &s.Name, &s.Count, &s.Value); err != nil {
			return nil, fmt.Errorf("scan stage summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// CreateStage inserts a stage at the end of its pipeline's board. The stage
// order is assigned server-side as max(stage_order)+1 within the pipeline.
func (r *Repo) CreateStage(ctx context.Context, organizationID uuid.UUID, stage domain.Stage) (domain.Stage, error) {
	// Pipeline ownership check doubles as tenant scoping for the insert.
	if _, err := r.GetPipeline(ctx, organizationID, stage.PipelineID); err != nil {
		return domain.Stage{}, err
	}

	query := `
		INSERT INTO pipeline_stages (id, id_pipeline, name, description, stage_order, id_agent)
		VALUES (
			$1, $2, $3, $4,
			(SELECT COALESCE(MAX(stage_order), 0) + 1 FROM pipeline_stages WHERE id_pipeline = $2),
			$5
		)
		RETURNING id, id_pipeline, name, description, stage_order, id_agent, created_at, updated_at`

	var s domain.Stage
	err := r.pool.QueryRow(ctx, query, uuid.New(), stage.PipelineID, stage.Name, stage.Description, stage.AgentID).Scan(
		&s.ID, &s.PipelineID, &s.Name, &s.Description, &s.StageOrder, &s.AgentID, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return domain.Stage{}, fmt.Errorf("create stage: %w", err)
	}
	return s, nil
}

// UpdateStage writes all mutable stage fields.
func (r *Repo) UpdateStage(ctx context.Context, organizationID uuid.UUID, stage domain.Stage) error {
	query := `
		UPDATE pipeline_stages s
		SET name = $3, description = $4, stage_order = $5, id_agent = $6, updated_at = NOW()
		FROM pipelines p
		WHERE s.id = $1 AND p.id = s.id_pipeline AND p.organization_id = $2`

	tag, err := r.pool.Exec(ctx, query, stage.ID, organizationID, stage.Name, stage.Description, stage.StageOrder, stage.AgentID)
	if err != nil {
		return fmt.Errorf("update stage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(stageNotFoundMessage)
	}
	return nil
}

// DeleteStage removes a stage and its leads inside one transaction, returning
// the number of leads that went with it.
func (r *Repo) DeleteStage(ctx context.Context, organizationID, stageID uuid.UUID) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete stage: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	deleteLeads := `
		DELETE FROM leads l
		USING pipeline_stages s, pipelines p
		WHERE l.id_stage = $1 AND s.id = $1 AND p.id = s.id_pipeline AND p.organization_id = $2`
	leadTag, err := tx.Exec(ctx, deleteLeads, stageID, organizationID)
	if err != nil {
		return 0, fmt.Errorf("delete stage leads: %w", err)
	}

	deleteStage := `
		DELETE FROM pipeline_stages s
		USING pipelines p
		WHERE s.id = $1 AND p.id = s.id_pipeline AND p.organization_id = $2`
	stageTag, err := tx.Exec(ctx, deleteStage, stageID, organizationID)
	if err != nil {
		return 0, fmt.Errorf("delete stage: %w", err)
	}
	if stageTag.RowsAffected() == 0 {
		return 0, apperr.NotFound(stageNotFoundMessage)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("delete stage: commit: %w", err)
	}
	return int(leadTag.RowsAffected()), nil
}
