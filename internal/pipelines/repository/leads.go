package repository

import (
	"context"
	"errors"
	"fmt"

	"pipeline_board_backend/internal/pipelines/domain"
	"pipeline_board_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const leadNotFoundMessage = "lead not found"

const leadColumns = `l.id, l.id_pipeline, l.id_stage, l.id_contact, l.name, l.phone, l.value,
	l.status, l.moved_by, l.assigned_to, l.notes, l.created_at, l.last_activity`

const listLeadsByStageQuery = `
	SELECT ` + leadColumns + `
	FROM leads l
	JOIN pipelines p ON p.id = l.id_pipeline
	WHERE l.id_stage = $1 AND p.organization_id = $2
	ORDER BY l.created_at ASC`

const getLeadQuery = `
	SELECT ` + leadColumns + `
	FROM leads l
	JOIN pipelines p ON p.id = l.id_pipeline
	WHERE l.id = $1 AND p.organization_id = $2`

const moveLeadQuery = `
	UPDATE leads l
	SET id_stage = $3, moved_by = $4, assigned_to = $5, last_activity = NOW()
	FROM pipelines p
	WHERE l.id = $1 AND p.id = l.id_pipeline AND p.organization_id = $2`

func scanLead(row pgx.Row) (domain.Lead, error) {
	var l domain.Lead
	err := row.Scan(
		&l.ID, &l.PipelineID, &l.StageID, &l.ContactID, &l.Name, &l.Phone, &l.Value,
		&l.Status, &l.MovedBy, &l.AssignedTo, &l.Notes, &l.CreatedAt, &l.LastActivity,
	)
	return l, err
}

// ListLeadsByStage retrieves the leads currently in a stage.
func (r *Repo) ListLeadsByStage(ctx context.Context, organizationID, stageID uuid.UUID) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, listLeadsByStageQuery, stageID, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list leads by stage: %w", err)
	}
	defer rows.Close()

	leads := make([]domain.Lead, 0)
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// GetLead retrieves a lead by ID within the organization.
func (r *Repo) GetLead(ctx context.Context, organizationID, leadID uuid.UUID) (domain.Lead, error) {
	l, err := scanLead(r.pool.QueryRow(ctx, getLeadQuery, leadID, organizationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Lead{}, apperr.NotFound(leadNotFoundMessage)
		}
		return domain.Lead{}, fmt.Errorf("get lead: %w", err)
	}
	return l, nil
}

// CreateLead inserts a lead into its stage.
func (r *Repo) CreateLead(ctx context.Context, organizationID uuid.UUID, lead domain.Lead) (domain.Lead, error) {
	stage, err := r.GetStage(ctx, organizationID, lead.StageID)
	if err != nil {
		return domain.Lead{}, err
	}
	if stage.PipelineID != lead.PipelineID {
		return domain.Lead{}, apperr.Conflict("stage belongs to a different pipeline")
	}

	query := `
		INSERT INTO leads (id, id_pipeline, id_stage, id_contact, name, phone, value, status, moved_by, assigned_to, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, id_pipeline, id_stage, id_contact, name, phone, value,
			status, moved_by, assigned_to, notes, created_at, last_activity`

	created, err := scanLead(r.pool.QueryRow(ctx, query,
		uuid.New(), lead.PipelineID, lead.StageID, lead.ContactID, lead.Name, lead.Phone,
		lead.Value, lead.Status, lead.MovedBy, lead.AssignedTo, lead.Notes,
	))
	if err != nil {
		return domain.Lead{}, fmt.Errorf("create lead: %w", err)
	}
	return created, nil
}

// UpdateLead writes mutable lead fields (not stage membership; use MoveLead).
func (r *Repo) UpdateLead(ctx context.Context, organizationID uuid.UUID, lead domain.Lead) error {
	query := `
		UPDATE leads l
		SET id_contact = $3, name = $4, phone = $5, value = $6, status = $7, notes = $8, last_activity = NOW()
		FROM pipelines p
		WHERE l.id = $1 AND p.id = l.id_pipeline AND p.organization_id = $2`

	tag, err := r.pool.Exec(ctx, query, lead.ID, organizationID,
		lead.ContactID, lead.Name, lead.Phone, lead.Value, lead.Status, lead.Notes)
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMessage)
	}
	return nil
}

// DeleteLead removes a lead.
func (r *Repo) DeleteLead(ctx context.Context, organizationID, leadID uuid.UUID) error {
	query := `
		DELETE FROM leads l
		USING pipelines p
		WHERE l.id = $1 AND p.id = l.id_pipeline AND p.organization_id = $2`

	tag, err := r.pool.Exec(ctx, query, leadID, organizationID)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMessage)
	}
	return nil
}

// MoveLead changes a lead's stage membership, provenance, and assignment.
func (r *Repo) MoveLead(ctx context.Context, organizationID, leadID, toStageID uuid.UUID, movedBy string, assignedTo *uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, moveLeadQuery, leadID, organizationID, toStageID, movedBy, assignedTo)
	if err != nil {
		return fmt.Errorf("move lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMessage)
	}
	return nil
}

// RecordTransfer appends a transfer history entry. Called from the worker, so
// no tenant scoping beyond the lead's own foreign keys.
func (r *Repo) RecordTransfer(ctx context.Context, record domain.TransferRecord) error {
	query := `
		INSERT INTO lead_transfers (id, id_lead, id_stage_from, id_stage_to, moved_by, assigned_to, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE(NULLIF($7::timestamptz, '0001-01-01'::timestamptz), NOW()))`

	_, err := r.pool.Exec(ctx, query,
		uuid.New(), record.LeadID, record.FromStageID, record.ToStageID, record.MovedBy, record.AssignedTo, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("record transfer: %w", err)
	}
	return nil
}

// ListTransfersByLead retrieves a lead's transfer history, newest first.
func (r *Repo) ListTransfersByLead(ctx context.Context, organizationID, leadID uuid.UUID) ([]domain.TransferRecord, error) {
	query := `
		SELECT t.id, t.id_lead, t.id_stage_from, t.id_stage_to, t.moved_by, t.assigned_to, t.created_at
		FROM lead_transfers t
		JOIN leads l ON l.id = t.id_lead
		JOIN pipelines p ON p.id = l.id_pipeline
		WHERE t.id_lead = $1 AND p.organization_id = $2
		ORDER BY t.created_at DESC`

	rows, err := r.pool.Query(ctx, query, leadID, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	records := make([]domain.TransferRecord, 0)
	for rows.Next() {
		var t domain.TransferRecord
		if err := rows.Scan(&t.ID, &t.LeadID, &t.FromStageID, &t.ToStageID, &t.MovedBy, &t.AssignedTo, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		records = append(records, t)
	}
	return records, rows.Err()
}
