package service

import (
	"context"
	"fmt"
	"time"

	"ebvision/internal/model"
	"ebvision/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CreateOpportunityInput struct {
	Nom                 string     `json:"nom" binding:"required"`
	Description         string     `json:"description"`
	ClientID            *uuid.UUID `json:"client_id"`
	CollaborateurID     *uuid.UUID `json:"collaborateur_id"`
	BusinessUnitID      *uuid.UUID `json:"business_unit_id"`
	OpportunityTypeID   *uuid.UUID `json:"opportunity_type_id"`
	MontantEstime       string     `json:"montant_estime"`
	Devise              string     `json:"devise"`
	Probabilite         *int       `json:"probabilite" binding:"omitempty,min=0,max=100"`
	DateFermeturePrevue *time.Time `json:"date_fermeture_prevue"`
	FiscalYearID        *uuid.UUID `json:"fiscal_year_id"`
}

// --- Interface ---

// OpportunityService creates opportunities and exposes their pipeline. When a
// typed opportunity is created its stages are instantiated in the same call,
// so a successfully created opportunity is never pipeline-less.
type OpportunityService interface {
	Create(ctx context.Context, input CreateOpportunityInput) (*model.Opportunity, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Opportunity, error)
	Stages(ctx context.Context, id uuid.UUID) ([]model.OpportunityStage, error)
}

type opportunityService struct {
	opportunities repository.OpportunityRepository
	stages        repository.StageRepository
	catalog       repository.CatalogRepository
	ledger        repository.LedgerRepository
	instantiator  CatalogService
	txm           repository.TransactionManager
}

func NewOpportunityService(
	opportunities repository.OpportunityRepository,
	stages repository.StageRepository,
	catalog repository.CatalogRepository,
	ledger repository.LedgerRepository,
	instantiator CatalogService,
	txm repository.TransactionManager,
) OpportunityService {
	return &opportunityService{
		opportunities: opportunities,
		stages:        stages,
		catalog:       catalog,
		ledger:        ledger,
		instantiator:  instantiator,
		txm:           txm,
	}
}

func (s *opportunityService) Create(ctx context.Context, input CreateOpportunityInput) (*model.Opportunity, error) {
	montant := decimal.Zero
	if input.MontantEstime != "" {
		parsed, err := decimal.NewFromString(input.MontantEstime)
		if err != nil {
			return nil, fmt.Errorf("invalid montant_estime: %w", err)
		}
		montant = parsed
	}

	devise := input.Devise
	if devise == "" {
		devise = "EUR"
	}

	probabilite := 0
	if input.Probabilite != nil {
		probabilite = *input.Probabilite
	}

	// The type, when given, supplies probability and close-date defaults.
	var opportunityType *model.OpportunityType
	if input.OpportunityTypeID != nil {
		t, err := s.catalog.GetType(ctx, *input.OpportunityTypeID)
		if err != nil {
			return nil, fmt.Errorf("load opportunity type: %w", err)
		}
		opportunityType = t
		if input.Probabilite == nil {
			probabilite = t.DefaultProbability
		}
	}

	dateFermeture := input.DateFermeturePrevue
	if dateFermeture == nil && opportunityType != nil && opportunityType.DefaultDurationDays > 0 {
		due := time.Now().AddDate(0, 0, opportunityType.DefaultDurationDays)
		dateFermeture = &due
	}

	opportunity := &model.Opportunity{
		Nom:                 input.Nom,
		Description:         input.Description,
		ClientID:            input.ClientID,
		CollaborateurID:     input.CollaborateurID,
		BusinessUnitID:      input.BusinessUnitID,
		OpportunityTypeID:   input.OpportunityTypeID,
		Statut:              model.OpportunityStatusNouvelle,
		MontantEstime:       montant,
		Devise:              devise,
		Probabilite:         probabilite,
		DateFermeturePrevue: dateFermeture,
		FiscalYearID:        input.FiscalYearID,
	}
	if err := s.opportunities.Create(ctx, opportunity); err != nil {
		return nil, err
	}

	if opportunityType != nil {
		if _, err := s.instantiator.InstantiateStages(ctx, opportunity.ID, opportunityType.ID); err != nil {
			return nil, fmt.Errorf("instantiate stages: %w", err)
		}
	}
	return opportunity, nil
}

func (s *opportunityService) Get(ctx context.Context, id uuid.UUID) (*model.Opportunity, error) {
	return s.opportunities.GetByID(ctx, id)
}

func (s *opportunityService) Stages(ctx context.Context, id uuid.UUID) ([]model.OpportunityStage, error) {
	if _, err := s.opportunities.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.stages.ByOpportunity(ctx, id)
}
