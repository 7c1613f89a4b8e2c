package service

import (
	"context"
	"fmt"
	"time"

	"ebvision/internal/model"
	"ebvision/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type CreateOpportunityTypeInput struct {
	Name                string `json:"name" binding:"required"`
	Description         string `json:"description"`
	DefaultProbability  int    `json:"default_probability" binding:"min=0,max=100"`
	DefaultDurationDays int    `json:"default_duration_days" binding:"min=0"`
}

type UpdateOpportunityTypeInput struct {
	Name                string `json:"name" binding:"required"`
	Description         string `json:"description"`
	DefaultProbability  int    `json:"default_probability" binding:"min=0,max=100"`
	DefaultDurationDays int    `json:"default_duration_days" binding:"min=0"`
}

type CreateStageTemplateInput struct {
	StageName          string `json:"stage_name" binding:"required"`
	StageOrder         int    `json:"stage_order" binding:"required,min=1"`
	Description        string `json:"description"`
	MinDurationDays    int    `json:"min_duration_days" binding:"min=0"`
	MaxDurationDays    int    `json:"max_duration_days" binding:"min=0"`
	IsMandatory        *bool  `json:"is_mandatory"`
	ValidationRequired bool   `json:"validation_required"`
}

type UpdateStageTemplateInput struct {
	StageName          string `json:"stage_name" binding:"required"`
	StageOrder         int    `json:"stage_order" binding:"required,min=1"`
	Description        string `json:"description"`
	MinDurationDays    int    `json:"min_duration_days" binding:"min=0"`
	MaxDurationDays    int    `json:"max_duration_days" binding:"min=0"`
	IsMandatory        *bool  `json:"is_mandatory"`
	ValidationRequired bool   `json:"validation_required"`
}

type AddRequiredActionInput struct {
	ActionType      string `json:"action_type" binding:"required"`
	IsMandatory     *bool  `json:"is_mandatory"`
	ValidationOrder *int   `json:"validation_order"`
}

type AddRequiredDocumentInput struct {
	DocumentType string `json:"document_type" binding:"required"`
	IsMandatory  *bool  `json:"is_mandatory"`
}

// TypeRequirements is the full requirement configuration of one type, grouped
// by stage for configuration screens.
type TypeRequirements struct {
	Actions   []repository.RequiredActionWithStage   `json:"actions"`
	Documents []repository.RequiredDocumentWithStage `json:"documents"`
}

// --- Interface ---

// CatalogService manages the pipeline configuration: opportunity types, their
// ordered stage templates and the per-template required actions/documents. It
// also instantiates a type's templates into runtime stages for an opportunity.
type CatalogService interface {
	ListTypes(ctx context.Context) ([]model.OpportunityType, error)
	GetType(ctx context.Context, id uuid.UUID) (*model.OpportunityType, error)
	CreateType(ctx context.Context, input CreateOpportunityTypeInput) (*model.OpportunityType, error)
	UpdateType(ctx context.Context, id uuid.UUID, input UpdateOpportunityTypeInput) (*model.OpportunityType, error)
	DeactivateType(ctx context.Context, id uuid.UUID) error

	ListTemplates(ctx context.Context, typeID uuid.UUID) ([]model.StageTemplate, error)
	CreateTemplate(ctx context.Context, typeID uuid.UUID, input CreateStageTemplateInput) (*model.StageTemplate, error)
	UpdateTemplate(ctx context.Context, id uuid.UUID, input UpdateStageTemplateInput) (*model.StageTemplate, error)
	// DeleteTemplate refuses with ErrTemplateInUse when stage instances
	// reference the template.
	DeleteTemplate(ctx context.Context, id uuid.UUID) error
	ReorderTemplates(ctx context.Context, typeID uuid.UUID, orders []repository.TemplateOrder) ([]model.StageTemplate, error)

	AddRequiredAction(ctx context.Context, templateID uuid.UUID, input AddRequiredActionInput) (*model.RequiredAction, error)
	DeleteRequiredAction(ctx context.Context, id uuid.UUID) error
	AddRequiredDocument(ctx context.Context, templateID uuid.UUID, input AddRequiredDocumentInput) (*model.RequiredDocument, error)
	DeleteRequiredDocument(ctx context.Context, id uuid.UUID) error
	TypeRequirements(ctx context.Context, typeID uuid.UUID) (*TypeRequirements, error)

	// InstantiateStages materializes the type's templates as stage instances
	// for the opportunity. Idempotent: a no-op when stages already exist. The
	// first stage starts immediately with a due date derived from its
	// template's max duration.
	InstantiateStages(ctx context.Context, opportunityID, typeID uuid.UUID) ([]model.OpportunityStage, error)
}

type catalogService struct {
	catalog repository.CatalogRepository
	stages  repository.StageRepository
	txm     repository.TransactionManager
}

func NewCatalogService(catalog repository.CatalogRepository, stages repository.StageRepository, txm repository.TransactionManager) CatalogService {
	return &catalogService{catalog: catalog, stages: stages, txm: txm}
}

// --- Types ---

func (s *catalogService) ListTypes(ctx context.Context) ([]model.OpportunityType, error) {
	return s.catalog.ListTypes(ctx)
}

func (s *catalogService) GetType(ctx context.Context, id uuid.UUID) (*model.OpportunityType, error) {
	return s.catalog.GetType(ctx, id)
}

func (s *catalogService) CreateType(ctx context.Context, input CreateOpportunityTypeInput) (*model.OpportunityType, error) {
	t := &model.OpportunityType{
		Name:                input.Name,
		Description:         input.Description,
		DefaultProbability:  input.DefaultProbability,
		DefaultDurationDays: input.DefaultDurationDays,
	}
	if err := s.catalog.CreateType(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *catalogService) UpdateType(ctx context.Context, id uuid.UUID, input UpdateOpportunityTypeInput) (*model.OpportunityType, error) {
	t, err := s.catalog.GetType(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Name = input.Name
	t.Description = input.Description
	t.DefaultProbability = input.DefaultProbability
	t.DefaultDurationDays = input.DefaultDurationDays
	if err := s.catalog.UpdateType(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *catalogService) DeactivateType(ctx context.Context, id uuid.UUID) error {
	return s.catalog.DeactivateType(ctx, id)
}

// --- Templates ---

func (s *catalogService) ListTemplates(ctx context.Context, typeID uuid.UUID) ([]model.StageTemplate, error) {
	if _, err := s.catalog.GetType(ctx, typeID); err != nil {
		return nil, err
	}
	return s.catalog.TemplatesByType(ctx, typeID)
}

func (s *catalogService) CreateTemplate(ctx context.Context, typeID uuid.UUID, input CreateStageTemplateInput) (*model.StageTemplate, error) {
	if _, err := s.catalog.GetType(ctx, typeID); err != nil {
		return nil, err
	}
	t := &model.StageTemplate{
		OpportunityTypeID:  typeID,
		StageName:          input.StageName,
		StageOrder:         input.StageOrder,
		Description:        input.Description,
		MinDurationDays:    input.MinDurationDays,
		MaxDurationDays:    input.MaxDurationDays,
		IsMandatory:        boolOrDefault(input.IsMandatory, true),
		ValidationRequired: input.ValidationRequired,
	}
	if err := s.catalog.CreateTemplate(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *catalogService) UpdateTemplate(ctx context.Context, id uuid.UUID, input UpdateStageTemplateInput) (*model.StageTemplate, error) {
	t, err := s.catalog.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	t.StageName = input.StageName
	t.StageOrder = input.StageOrder
	t.Description = input.Description
	t.MinDurationDays = input.MinDurationDays
	t.MaxDurationDays = input.MaxDurationDays
	t.IsMandatory = boolOrDefault(input.IsMandatory, t.IsMandatory)
	t.ValidationRequired = input.ValidationRequired
	if err := s.catalog.UpdateTemplate(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *catalogService) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	if _, err := s.catalog.GetTemplate(ctx, id); err != nil {
		return err
	}
	inUse, err := s.stages.ExistsForTemplate(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return ErrTemplateInUse
	}
	return s.catalog.DeleteTemplate(ctx, id)
}

func (s *catalogService) ReorderTemplates(ctx context.Context, typeID uuid.UUID, orders []repository.TemplateOrder) ([]model.StageTemplate, error) {
	if _, err := s.catalog.GetType(ctx, typeID); err != nil {
		return nil, err
	}
	// All-or-nothing: a partial reorder would leave duplicate positions.
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		for _, o := range orders {
			if err := s.catalog.SetTemplateOrder(txCtx, o.ID, o.Order); err != nil {
				return fmt.Errorf("reorder template %s: %w", o.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.catalog.TemplatesByType(ctx, typeID)
}

// --- Requirements ---

func (s *catalogService) AddRequiredAction(ctx context.Context, templateID uuid.UUID, input AddRequiredActionInput) (*model.RequiredAction, error) {
	if _, err := s.catalog.GetTemplate(ctx, templateID); err != nil {
		return nil, err
	}
	a := &model.RequiredAction{
		StageTemplateID: templateID,
		ActionType:      input.ActionType,
		IsMandatory:     boolOrDefault(input.IsMandatory, true),
		ValidationOrder: input.ValidationOrder,
	}
	if err := s.catalog.AddRequiredAction(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *catalogService) DeleteRequiredAction(ctx context.Context, id uuid.UUID) error {
	return s.catalog.DeleteRequiredAction(ctx, id)
}

func (s *catalogService) AddRequiredDocument(ctx context.Context, templateID uuid.UUID, input AddRequiredDocumentInput) (*model.RequiredDocument, error) {
	if _, err := s.catalog.GetTemplate(ctx, templateID); err != nil {
		return nil, err
	}
	d := &model.RequiredDocument{
		StageTemplateID: templateID,
		DocumentType:    input.DocumentType,
		IsMandatory:     boolOrDefault(input.IsMandatory, true),
	}
	if err := s.catalog.AddRequiredDocument(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *catalogService) DeleteRequiredDocument(ctx context.Context, id uuid.UUID) error {
	return s.catalog.DeleteRequiredDocument(ctx, id)
}

func (s *catalogService) TypeRequirements(ctx context.Context, typeID uuid.UUID) (*TypeRequirements, error) {
	if _, err := s.catalog.GetType(ctx, typeID); err != nil {
		return nil, err
	}
	actions, err := s.catalog.RequiredActionsByType(ctx, typeID)
	if err != nil {
		return nil, err
	}
	documents, err := s.catalog.RequiredDocumentsByType(ctx, typeID)
	if err != nil {
		return nil, err
	}
	return &TypeRequirements{Actions: actions, Documents: documents}, nil
}

// --- Instantiation ---

func (s *catalogService) InstantiateStages(ctx context.Context, opportunityID, typeID uuid.UUID) ([]model.OpportunityStage, error) {
	exists, err := s.stages.ExistsForOpportunity(ctx, opportunityID)
	if err != nil {
		return nil, err
	}
	if exists {
		return s.stages.ByOpportunity(ctx, opportunityID)
	}

	templates, err := s.catalog.TemplatesByType(ctx, typeID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		for _, tpl := range templates {
			stage := model.OpportunityStage{
				OpportunityID:   opportunityID,
				StageTemplateID: tpl.ID,
				StageName:       tpl.StageName,
				StageOrder:      tpl.StageOrder,
				Status:          model.StageStatusPending,
			}
			if tpl.Description != "" {
				notes := tpl.Description
				stage.Notes = &notes
			}
			// Every instance is due max_duration_days from creation, so the
			// overdue sweep can flag stages that were never even started.
			if tpl.MaxDurationDays > 0 {
				due := now.AddDate(0, 0, tpl.MaxDurationDays)
				stage.DueDate = &due
			}
			// The first stage starts immediately.
			if tpl.StageOrder == 1 {
				start := now
				stage.Status = model.StageStatusInProgress
				stage.StartDate = &start
			}
			if err := s.stages.CreateInstance(txCtx, &stage); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.stages.ByOpportunity(ctx, opportunityID)
}

func boolOrDefault(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
