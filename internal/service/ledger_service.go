package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"ebvision/internal/model"
	"ebvision/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type RecordActionInput struct {
	StageID      *uuid.UUID      `json:"stage_id"`
	ActionType   string          `json:"action_type" binding:"required"`
	ActionTitle  string          `json:"action_title" binding:"required"`
	Description  string          `json:"description"`
	IsValidating bool            `json:"is_validating"`
	Metadata     json.RawMessage `json:"metadata"`
}

type RecordDocumentInput struct {
	StageID      *uuid.UUID `json:"stage_id"`
	DocumentType string     `json:"document_type" binding:"required"`
	FileName     string     `json:"file_name" binding:"required"`
	FilePath     string     `json:"file_path" binding:"required"`
}

type ValidateDocumentInput struct {
	Status string `json:"status" binding:"required,oneof=validated rejected"`
}

// --- Interface ---

// LedgerService appends action and document records against opportunities.
// Action rows are immutable; document rows carry a reviewable validation
// sub-state. Recording activity keeps the opportunity's last_activity_at
// fresh.
type LedgerService interface {
	RecordAction(ctx context.Context, opportunityID uuid.UUID, actorID *uuid.UUID, input RecordActionInput) (*model.ActionRecord, error)
	RecordDocument(ctx context.Context, opportunityID uuid.UUID, actorID *uuid.UUID, input RecordDocumentInput) (*model.DocumentRecord, error)
	ValidateDocument(ctx context.Context, opportunityID, documentID uuid.UUID, validatorID uuid.UUID, input ValidateDocumentInput) (*model.DocumentRecord, error)
	Actions(ctx context.Context, opportunityID uuid.UUID, limit, offset int) ([]model.ActionRecord, error)
	Documents(ctx context.Context, opportunityID uuid.UUID, limit, offset int) ([]model.DocumentRecord, error)

	// StageRequirements reports how far the logged records cover the stage's
	// declared requirements. Informational only; it never blocks anything.
	StageRequirements(ctx context.Context, stageID uuid.UUID) (*RequirementSummary, error)
}

type ledgerService struct {
	ledger        repository.LedgerRepository
	opportunities repository.OpportunityRepository
	stages        repository.StageRepository
	requirements  RequirementService
	notifier      Notifier
}

func NewLedgerService(
	ledger repository.LedgerRepository,
	opportunities repository.OpportunityRepository,
	stages repository.StageRepository,
	requirements RequirementService,
	notifier Notifier,
) LedgerService {
	return &ledgerService{
		ledger:        ledger,
		opportunities: opportunities,
		stages:        stages,
		requirements:  requirements,
		notifier:      notifier,
	}
}

func (s *ledgerService) RecordAction(ctx context.Context, opportunityID uuid.UUID, actorID *uuid.UUID, input RecordActionInput) (*model.ActionRecord, error) {
	if _, err := s.opportunities.GetByID(ctx, opportunityID); err != nil {
		return nil, err
	}
	if input.StageID != nil {
		if err := s.guardStageBelongs(ctx, *input.StageID, opportunityID); err != nil {
			return nil, err
		}
	}

	record := &model.ActionRecord{
		OpportunityID: opportunityID,
		StageID:       input.StageID,
		ActionType:    input.ActionType,
		ActionTitle:   input.ActionTitle,
		Description:   input.Description,
		PerformedBy:   actorID,
		IsValidating:  input.IsValidating,
		Metadata:      input.Metadata,
	}
	if err := s.ledger.InsertAction(ctx, record); err != nil {
		return nil, err
	}
	if err := s.opportunities.TouchActivity(ctx, opportunityID); err != nil {
		return nil, err
	}

	// A validating stage-scoped action may have just satisfied the stage's
	// requirements; report it, but never fail the write over it.
	if input.StageID != nil && input.IsValidating {
		if stage, err := s.stages.GetByID(ctx, *input.StageID); err == nil {
			if summary, err := s.requirements.StageRequirements(ctx, stage); err != nil {
				log.Printf("WARNING: requirement check after action failed: %v", err)
			} else if summary.MandatorySatisfied {
				notify(s.notifier, "stage.requirements_satisfied", summary)
			}
		}
	}

	notify(s.notifier, "action.recorded", record)
	return record, nil
}

func (s *ledgerService) RecordDocument(ctx context.Context, opportunityID uuid.UUID, actorID *uuid.UUID, input RecordDocumentInput) (*model.DocumentRecord, error) {
	if _, err := s.opportunities.GetByID(ctx, opportunityID); err != nil {
		return nil, err
	}
	if input.StageID != nil {
		if err := s.guardStageBelongs(ctx, *input.StageID, opportunityID); err != nil {
			return nil, err
		}
	}

	record := &model.DocumentRecord{
		OpportunityID: opportunityID,
		StageID:       input.StageID,
		DocumentType:  input.DocumentType,
		FileName:      input.FileName,
		FilePath:      input.FilePath,
		UploadedBy:    actorID,
	}
	if err := s.ledger.InsertDocument(ctx, record); err != nil {
		return nil, err
	}
	if err := s.opportunities.TouchActivity(ctx, opportunityID); err != nil {
		return nil, err
	}
	notify(s.notifier, "document.recorded", record)
	return record, nil
}

func (s *ledgerService) ValidateDocument(ctx context.Context, opportunityID, documentID uuid.UUID, validatorID uuid.UUID, input ValidateDocumentInput) (*model.DocumentRecord, error) {
	if input.Status != model.DocValidationValidated && input.Status != model.DocValidationRejected {
		return nil, fmt.Errorf("%w: validation status must be validated or rejected", ErrInvalidTransition)
	}
	record, err := s.ledger.SetDocumentValidation(ctx, documentID, opportunityID, input.Status, validatorID)
	if err != nil {
		return nil, err
	}
	notify(s.notifier, "document.validated", record)
	return record, nil
}

func (s *ledgerService) Actions(ctx context.Context, opportunityID uuid.UUID, limit, offset int) ([]model.ActionRecord, error) {
	if _, err := s.opportunities.GetByID(ctx, opportunityID); err != nil {
		return nil, err
	}
	return s.ledger.ActionsPage(ctx, opportunityID, limit, offset)
}

func (s *ledgerService) Documents(ctx context.Context, opportunityID uuid.UUID, limit, offset int) ([]model.DocumentRecord, error) {
	if _, err := s.opportunities.GetByID(ctx, opportunityID); err != nil {
		return nil, err
	}
	return s.ledger.DocumentsPage(ctx, opportunityID, limit, offset)
}

func (s *ledgerService) StageRequirements(ctx context.Context, stageID uuid.UUID) (*RequirementSummary, error) {
	stage, err := s.stages.GetByID(ctx, stageID)
	if err != nil {
		return nil, err
	}
	return s.requirements.StageRequirements(ctx, stage)
}

func (s *ledgerService) guardStageBelongs(ctx context.Context, stageID, opportunityID uuid.UUID) error {
	stage, err := s.stages.GetByID(ctx, stageID)
	if err != nil {
		return err
	}
	if stage.OpportunityID != opportunityID {
		return fmt.Errorf("%w: stage does not belong to this opportunity", repository.ErrNotFound)
	}
	return nil
}
