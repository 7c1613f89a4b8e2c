package repository

import (
	"context"
	"errors"
	"fmt"

	"ebvision/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// OpportunityRepository defines data access for opportunities.
type OpportunityRepository interface {
	Create(ctx context.Context, o *model.Opportunity) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Opportunity, error)
	// SetStatus updates statut; when closed is true the actual close date is
	// stamped, when false it is cleared (reopen).
	SetStatus(ctx context.Context, id uuid.UUID, statut string, closed bool) error
	// MarkEnCours flips NOUVELLE to EN_COURS; a no-op for any other status.
	MarkEnCours(ctx context.Context, id uuid.UUID) error
	TouchActivity(ctx context.Context, id uuid.UUID) error
}

type opportunityRepository struct {
	pool *pgxpool.Pool
}

func NewOpportunityRepository(pool *pgxpool.Pool) OpportunityRepository {
	return &opportunityRepository{pool: pool}
}

const opportunityColumns = `
	id, nom, description, client_id, collaborateur_id, business_unit_id,
	opportunity_type_id, statut, montant_estime::text, devise, probabilite,
	date_fermeture_prevue, date_fermeture_reelle, fiscal_year_id,
	last_activity_at, created_at, updated_at`

func scanOpportunity(row pgx.Row) (*model.Opportunity, error) {
	var o model.Opportunity
	var montant string
	err := row.Scan(
		&o.ID, &o.Nom, &o.Description, &o.ClientID, &o.CollaborateurID,
		&o.BusinessUnitID, &o.OpportunityTypeID, &o.Statut, &montant,
		&o.Devise, &o.Probabilite, &o.DateFermeturePrevue,
		&o.DateFermetureReelle, &o.FiscalYearID, &o.LastActivityAt,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	o.MontantEstime, err = decimal.NewFromString(montant)
	if err != nil {
		return nil, fmt.Errorf("parse montant_estime: %w", err)
	}
	return &o, nil
}

func (r *opportunityRepository) Create(ctx context.Context, o *model.Opportunity) error {
	query := `
		INSERT INTO opportunities (
			nom, description, client_id, collaborateur_id, business_unit_id,
			opportunity_type_id, statut, montant_estime, devise, probabilite,
			date_fermeture_prevue, fiscal_year_id, last_activity_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9, $10, $11, $12, CURRENT_TIMESTAMP)
		RETURNING id, statut, created_at, updated_at`

	statut := o.Statut
	if statut == "" {
		statut = model.OpportunityStatusNouvelle
	}
	err := querier(ctx, r.pool).QueryRow(ctx, query,
		o.Nom, o.Description, o.ClientID, o.CollaborateurID, o.BusinessUnitID,
		o.OpportunityTypeID, statut, o.MontantEstime.String(), o.Devise,
		o.Probabilite, o.DateFermeturePrevue, o.FiscalYearID,
	).Scan(&o.ID, &o.Statut, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert opportunity: %w", err)
	}
	return nil
}

func (r *opportunityRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Opportunity, error) {
	query := `SELECT` + opportunityColumns + ` FROM opportunities WHERE id = $1`
	return scanOpportunity(querier(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *opportunityRepository) SetStatus(ctx context.Context, id uuid.UUID, statut string, closed bool) error {
	query := `
		UPDATE opportunities SET
			statut = $2,
			date_fermeture_reelle = CASE WHEN $3 THEN CURRENT_TIMESTAMP ELSE NULL END,
			last_activity_at = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`
	tag, err := querier(ctx, r.pool).Exec(ctx, query, id, statut, closed)
	if err != nil {
		return fmt.Errorf("update opportunity status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *opportunityRepository) MarkEnCours(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE opportunities SET statut = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND statut = $3`
	_, err := querier(ctx, r.pool).Exec(ctx, query, id,
		model.OpportunityStatusEnCours, model.OpportunityStatusNouvelle)
	if err != nil {
		return fmt.Errorf("mark opportunity in progress: %w", err)
	}
	return nil
}

func (r *opportunityRepository) TouchActivity(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE opportunities SET last_activity_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`
	_, err := querier(ctx, r.pool).Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("touch opportunity activity: %w", err)
	}
	return nil
}
