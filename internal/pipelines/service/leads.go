package service

import (
	"context"

	"pipeline_board_backend/internal/events"
	"pipeline_board_backend/internal/pipelines/domain"
	"pipeline_board_backend/internal/pipelines/transport"
	"pipeline_board_backend/platform/apperr"
	"pipeline_board_backend/platform/phone"

	"github.com/google/uuid"
)

const defaultLeadStatus = "open"

// ListLeadsByStage retrieves the leads currently in a stage.
func (s *Service) ListLeadsByStage(ctx context.Context, organizationID, stageID uuid.UUID) (transport.LeadListResponse, error) {
	leads, err := s.repo.ListLeadsByStage(ctx, organizationID, stageID)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	items := make([]transport.LeadResponse, 0, len(leads))
	for _, lead := range leads {
		items = append(items, toLeadResponse(lead))
	}
	return transport.LeadListResponse{Items: items, Total: len(items)}, nil
}

// GetLead retrieves a single lead.
func (s *Service) GetLead(ctx context.Context, organizationID, leadID uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetLead(ctx, organizationID, leadID)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return toLeadResponse(lead), nil
}

// CreateLead inserts a lead into a stage. Phone numbers are normalized to
// E.164 and provenance starts as "unknown" until something moves the card.
func (s *Service) CreateLead(ctx context.Context, organizationID uuid.UUID, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	status := req.Status
	if status == "" {
		status = defaultLeadStatus
	}

	lead, err := s.repo.CreateLead(ctx, organizationID, domain.Lead{
		PipelineID: req.IDPipeline,
		StageID:    req.IDStage,
		ContactID:  req.IDContact,
		Name:       req.Name,
		Phone:      phone.NormalizeE164(req.Phone),
		Value:      req.Value,
		Status:     status,
		MovedBy:    domain.MovedByUnknown,
		Notes:      req.Notes,
	})
	if err != nil {
		return transport.LeadResponse{}, err
	}

	s.invalidateSummary(ctx, organizationID, lead.PipelineID)
	return toLeadResponse(lead), nil
}

// UpdateLead writes mutable lead fields.
func (s *Service) UpdateLead(ctx context.Context, organizationID, leadID uuid.UUID, req transport.UpdateLeadRequest) error {
	current, err := s.repo.GetLead(ctx, organizationID, leadID)
	if err != nil {
		return err
	}

	current.ContactID = req.IDContact
	current.Name = req.Name
	current.Phone = phone.NormalizeE164(req.Phone)
	current.Value = req.Value
	current.Status = req.Status
	current.Notes = req.Notes

	if err := s.repo.UpdateLead(ctx, organizationID, current); err != nil {
		return err
	}

	s.invalidateSummary(ctx, organizationID, current.PipelineID)
	return nil
}

// DeleteLead removes a lead.
func (s *Service) DeleteLead(ctx context.Context, organizationID, leadID uuid.UUID) error {
	lead, err := s.repo.GetLead(ctx, organizationID, leadID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteLead(ctx, organizationID, leadID); err != nil {
		return err
	}

	s.invalidateSummary(ctx, organizationID, lead.PipelineID)
	return nil
}

// MoveLeadCard moves a lead to another stage. The target stage must belong to
// the lead's pipeline; a mismatch is rejected with a conflict before anything
// is written. History recording happens out-of-band via the scheduler.
func (s *Service) MoveLeadCard(ctx context.Context, organizationID, leadID uuid.UUID, req transport.MoveLeadRequest) error {
	lead, err := s.repo.GetLead(ctx, organizationID, leadID)
	if err != nil {
		return err
	}

	target, err := s.repo.GetStage(ctx, organizationID, req.IDStage)
	if err != nil {
		return err
	}
	if target.PipelineID != lead.PipelineID {
		return apperr.Conflict("target stage belongs to a different pipeline")
	}

	movedBy := domain.NormalizeProvenance(req.MovedBy)
	if err := s.repo.MoveLead(ctx, organizationID, leadID, target.ID, movedBy, req.AssignedTo); err != nil {
		return err
	}

	if s.scheduler != nil {
		if err := s.scheduler.ScheduleTransferRecord(ctx, leadID, lead.StageID, target.ID, movedBy, req.AssignedTo); err != nil {
			// The move already committed; a lost history entry is not worth
			// failing the request over.
			s.log.Error("failed to schedule transfer record", "leadId", leadID, "error", err)
		}
	}

	s.invalidateSummary(ctx, organizationID, lead.PipelineID)
	s.bus.Publish(ctx, events.LeadMoved{
		BaseEvent:   events.NewBaseEvent(),
		TenantID:    organizationID,
		PipelineID:  lead.PipelineID,
		LeadID:      leadID,
		FromStageID: lead.StageID,
		ToStageID:   target.ID,
		MovedBy:     movedBy,
		AssignedTo:  req.AssignedTo,
	})
	return nil
}

// GetTransferHistory retrieves a lead's transfer history, newest first.
func (s *Service) GetTransferHistory(ctx context.Context, organizationID, leadID uuid.UUID) (transport.TransferListResponse, error) {
	if _, err := s.repo.GetLead(ctx, organizationID, leadID); err != nil {
		return transport.TransferListResponse{}, err
	}

	records, err := s.repo.ListTransfersByLead(ctx, organizationID, leadID)
	if err != nil {
		return transport.TransferListResponse{}, err
	}

	items := make([]transport.TransferResponse, 0, len(records))
	for _, record := range records {
		items = append(items, transport.TransferResponse{
			ID:          record.ID,
			IDLead:      record.LeadID,
			IDStageFrom: record.FromStageID,
			IDStageTo:   record.ToStageID,
			MovedBy:     record.MovedBy,
			AssignedTo:  record.AssignedTo,
			CreatedAt:   record.CreatedAt,
		})
	}
	return transport.TransferListResponse{Items: items, Total: len(items)}, nil
}
