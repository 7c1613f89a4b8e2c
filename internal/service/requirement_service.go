package service

import (
	"context"
	"fmt"

	"ebvision/internal/model"
	"ebvision/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

// ActionRequirementStatus reports how one required action is covered by the
// validating action records logged against the stage (or unscoped against
// the opportunity).
type ActionRequirementStatus struct {
	ActionType  string `json:"action_type"`
	IsMandatory bool   `json:"is_mandatory"`
	Count       int    `json:"count"`
	Satisfied   bool   `json:"satisfied"`
}

// DocumentRequirementStatus reports coverage for one required document. Only
// validated documents satisfy a requirement.
type DocumentRequirementStatus struct {
	DocumentType   string `json:"document_type"`
	IsMandatory    bool   `json:"is_mandatory"`
	Count          int    `json:"count"`
	ValidatedCount int    `json:"validated_count"`
	Satisfied      bool   `json:"satisfied"`
}

// RequirementSummary is the advisory requirement report for one stage.
type RequirementSummary struct {
	StageID            uuid.UUID                   `json:"stage_id"`
	StageTemplateID    uuid.UUID                   `json:"stage_template_id"`
	Actions            []ActionRequirementStatus   `json:"actions"`
	Documents          []DocumentRequirementStatus `json:"documents"`
	MandatorySatisfied bool                        `json:"mandatory_satisfied"`
}

// --- Interface ---

// RequirementService computes whether the actions and documents logged
// against a stage satisfy its template's declared requirements. The summary
// is informational; enforcement is the caller's decision (CompleteStage
// enforces mandatory items, the requirements endpoint never gates anything).
type RequirementService interface {
	StageRequirements(ctx context.Context, stage *model.OpportunityStage) (*RequirementSummary, error)
	MandatorySatisfied(ctx context.Context, stage *model.OpportunityStage) (bool, error)
}

type requirementService struct {
	catalog repository.CatalogRepository
	ledger  repository.LedgerRepository
}

func NewRequirementService(catalog repository.CatalogRepository, ledger repository.LedgerRepository) RequirementService {
	return &requirementService{catalog: catalog, ledger: ledger}
}

// --- Implementation ---

func (s *requirementService) StageRequirements(ctx context.Context, stage *model.OpportunityStage) (*RequirementSummary, error) {
	requiredActions, err := s.catalog.RequiredActionsByTemplate(ctx, stage.StageTemplateID)
	if err != nil {
		return nil, fmt.Errorf("load required actions: %w", err)
	}
	requiredDocs, err := s.catalog.RequiredDocumentsByTemplate(ctx, stage.StageTemplateID)
	if err != nil {
		return nil, fmt.Errorf("load required documents: %w", err)
	}

	actionCounts, err := s.ledger.ValidatingActionCounts(ctx, stage.OpportunityID, stage.ID)
	if err != nil {
		return nil, fmt.Errorf("count logged actions: %w", err)
	}
	docCounts, err := s.ledger.DocumentCounts(ctx, stage.OpportunityID, stage.ID)
	if err != nil {
		return nil, fmt.Errorf("count logged documents: %w", err)
	}

	summary := &RequirementSummary{
		StageID:            stage.ID,
		StageTemplateID:    stage.StageTemplateID,
		Actions:            make([]ActionRequirementStatus, 0, len(requiredActions)),
		Documents:          make([]DocumentRequirementStatus, 0, len(requiredDocs)),
		MandatorySatisfied: true,
	}

	for _, req := range requiredActions {
		count := actionCounts[req.ActionType]
		status := ActionRequirementStatus{
			ActionType:  req.ActionType,
			IsMandatory: req.IsMandatory,
			Count:       count,
			Satisfied:   count > 0,
		}
		if req.IsMandatory && !status.Satisfied {
			summary.MandatorySatisfied = false
		}
		summary.Actions = append(summary.Actions, status)
	}

	for _, req := range requiredDocs {
		counts := docCounts[req.DocumentType]
		status := DocumentRequirementStatus{
			DocumentType:   req.DocumentType,
			IsMandatory:    req.IsMandatory,
			Count:          counts.Total,
			ValidatedCount: counts.Validated,
			Satisfied:      counts.Validated > 0,
		}
		if req.IsMandatory && !status.Satisfied {
			summary.MandatorySatisfied = false
		}
		summary.Documents = append(summary.Documents, status)
	}

	return summary, nil
}

func (s *requirementService) MandatorySatisfied(ctx context.Context, stage *model.OpportunityStage) (bool, error) {
	summary, err := s.StageRequirements(ctx, stage)
	if err != nil {
		return false, err
	}
	return summary.MandatorySatisfied, nil
}
