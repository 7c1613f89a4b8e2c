package repository

import (
	"context"
	"errors"
	"fmt"

	"ebvision/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TemplateOrder pairs a template id with its new position for reordering.
type TemplateOrder struct {
	ID    uuid.UUID `json:"id" binding:"required"`
	Order int       `json:"order" binding:"required,min=1"`
}

// RequiredActionWithStage is a required action joined with its template's
// name and order, for the per-type requirements view.
type RequiredActionWithStage struct {
	model.RequiredAction
	StageName  string `json:"stage_name"`
	StageOrder int    `json:"stage_order"`
}

// RequiredDocumentWithStage mirrors RequiredActionWithStage for documents.
type RequiredDocumentWithStage struct {
	model.RequiredDocument
	StageName  string `json:"stage_name"`
	StageOrder int    `json:"stage_order"`
}

// CatalogRepository defines data access for opportunity types, their stage
// templates and the required action/document declarations. Template rows
// are pure configuration; runtime state lives in opportunity_stages.
type CatalogRepository interface {
	ListTypes(ctx context.Context) ([]model.OpportunityType, error)
	GetType(ctx context.Context, id uuid.UUID) (*model.OpportunityType, error)
	CreateType(ctx context.Context, t *model.OpportunityType) error
	UpdateType(ctx context.Context, t *model.OpportunityType) error
	DeactivateType(ctx context.Context, id uuid.UUID) error

	TemplatesByType(ctx context.Context, typeID uuid.UUID) ([]model.StageTemplate, error)
	GetTemplate(ctx context.Context, id uuid.UUID) (*model.StageTemplate, error)
	CreateTemplate(ctx context.Context, t *model.StageTemplate) error
	UpdateTemplate(ctx context.Context, t *model.StageTemplate) error
	DeleteTemplate(ctx context.Context, id uuid.UUID) error
	SetTemplateOrder(ctx context.Context, id uuid.UUID, order int) error

	AddRequiredAction(ctx context.Context, a *model.RequiredAction) error
	DeleteRequiredAction(ctx context.Context, id uuid.UUID) error
	AddRequiredDocument(ctx context.Context, d *model.RequiredDocument) error
	DeleteRequiredDocument(ctx context.Context, id uuid.UUID) error

	RequiredActionsByTemplate(ctx context.Context, templateID uuid.UUID) ([]model.RequiredAction, error)
	RequiredDocumentsByTemplate(ctx context.Context, templateID uuid.UUID) ([]model.RequiredDocument, error)
	RequiredActionsByType(ctx context.Context, typeID uuid.UUID) ([]RequiredActionWithStage, error)
	RequiredDocumentsByType(ctx context.Context, typeID uuid.UUID) ([]RequiredDocumentWithStage, error)
}

type catalogRepository struct {
	pool *pgxpool.Pool
}

func NewCatalogRepository(pool *pgxpool.Pool) CatalogRepository {
	return &catalogRepository{pool: pool}
}

const typeColumns = `
	id, name, description, default_probability, default_duration_days,
	is_active, created_at, updated_at`

func scanType(row pgx.Row) (*model.OpportunityType, error) {
	var t model.OpportunityType
	err := row.Scan(
		&t.ID, &t.Name, &t.Description, &t.DefaultProbability,
		&t.DefaultDurationDays, &t.IsActive, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *catalogRepository) ListTypes(ctx context.Context) ([]model.OpportunityType, error) {
	query := `SELECT` + typeColumns + `
		FROM opportunity_types WHERE is_active = TRUE ORDER BY name ASC`
	rows, err := querier(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list opportunity types: %w", err)
	}
	defer rows.Close()

	var types []model.OpportunityType
	for rows.Next() {
		t, err := scanType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, *t)
	}
	return types, rows.Err()
}

func (r *catalogRepository) GetType(ctx context.Context, id uuid.UUID) (*model.OpportunityType, error) {
	query := `SELECT` + typeColumns + ` FROM opportunity_types WHERE id = $1`
	return scanType(querier(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *catalogRepository) CreateType(ctx context.Context, t *model.OpportunityType) error {
	query := `
		INSERT INTO opportunity_types (name, description, default_probability, default_duration_days)
		VALUES ($1, $2, $3, $4)
		RETURNING id, is_active, created_at, updated_at`
	err := querier(ctx, r.pool).QueryRow(ctx, query,
		t.Name, t.Description, t.DefaultProbability, t.DefaultDurationDays,
	).Scan(&t.ID, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert opportunity type: %w", err)
	}
	return nil
}

func (r *catalogRepository) UpdateType(ctx context.Context, t *model.OpportunityType) error {
	query := `
		UPDATE opportunity_types SET
			name = $2, description = $3, default_probability = $4,
			default_duration_days = $5, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at`
	err := querier(ctx, r.pool).QueryRow(ctx, query,
		t.ID, t.Name, t.Description, t.DefaultProbability, t.DefaultDurationDays,
	).Scan(&t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update opportunity type: %w", err)
	}
	return nil
}

func (r *catalogRepository) DeactivateType(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE opportunity_types SET is_active = FALSE, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`
	tag, err := querier(ctx, r.pool).Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivate opportunity type: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const templateColumns = `
	id, opportunity_type_id, stage_name, stage_order, description,
	min_duration_days, max_duration_days, is_mandatory, validation_required,
	created_at, updated_at`

func scanTemplate(row pgx.Row) (*model.StageTemplate, error) {
	var t model.StageTemplate
	err := row.Scan(
		&t.ID, &t.OpportunityTypeID, &t.StageName, &t.StageOrder,
		&t.Description, &t.MinDurationDays, &t.MaxDurationDays,
		&t.IsMandatory, &t.ValidationRequired, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *catalogRepository) TemplatesByType(ctx context.Context, typeID uuid.UUID) ([]model.StageTemplate, error) {
	query := `SELECT` + templateColumns + `
		FROM opportunity_stage_templates
		WHERE opportunity_type_id = $1
		ORDER BY stage_order ASC`
	rows, err := querier(ctx, r.pool).Query(ctx, query, typeID)
	if err != nil {
		return nil, fmt.Errorf("list stage templates: %w", err)
	}
	defer rows.Close()

	var templates []model.StageTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

func (r *catalogRepository) GetTemplate(ctx context.Context, id uuid.UUID) (*model.StageTemplate, error) {
	query := `SELECT` + templateColumns + ` FROM opportunity_stage_templates WHERE id = $1`
	return scanTemplate(querier(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *catalogRepository) CreateTemplate(ctx context.Context, t *model.StageTemplate) error {
	query := `
		INSERT INTO opportunity_stage_templates (
			opportunity_type_id, stage_name, stage_order, description,
			min_duration_days, max_duration_days, is_mandatory, validation_required
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	err := querier(ctx, r.pool).QueryRow(ctx, query,
		t.OpportunityTypeID, t.StageName, t.StageOrder, t.Description,
		t.MinDurationDays, t.MaxDurationDays, t.IsMandatory, t.ValidationRequired,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert stage template: %w", err)
	}
	return nil
}

func (r *catalogRepository) UpdateTemplate(ctx context.Context, t *model.StageTemplate) error {
	query := `
		UPDATE opportunity_stage_templates SET
			stage_name = $2, description = $3, min_duration_days = $4,
			max_duration_days = $5, is_mandatory = $6, validation_required = $7,
			stage_order = $8, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at`
	err := querier(ctx, r.pool).QueryRow(ctx, query,
		t.ID, t.StageName, t.Description, t.MinDurationDays, t.MaxDurationDays,
		t.IsMandatory, t.ValidationRequired, t.StageOrder,
	).Scan(&t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update stage template: %w", err)
	}
	return nil
}

func (r *catalogRepository) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	tag, err := querier(ctx, r.pool).Exec(ctx,
		`DELETE FROM opportunity_stage_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete stage template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *catalogRepository) SetTemplateOrder(ctx context.Context, id uuid.UUID, order int) error {
	tag, err := querier(ctx, r.pool).Exec(ctx, `
		UPDATE opportunity_stage_templates
		SET stage_order = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`, id, order)
	if err != nil {
		return fmt.Errorf("reorder stage template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *catalogRepository) AddRequiredAction(ctx context.Context, a *model.RequiredAction) error {
	query := `
		INSERT INTO stage_required_actions (stage_template_id, action_type, is_mandatory, validation_order)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	err := querier(ctx, r.pool).QueryRow(ctx, query,
		a.StageTemplateID, a.ActionType, a.IsMandatory, a.ValidationOrder,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert required action: %w", err)
	}
	return nil
}

func (r *catalogRepository) DeleteRequiredAction(ctx context.Context, id uuid.UUID) error {
	tag, err := querier(ctx, r.pool).Exec(ctx,
		`DELETE FROM stage_required_actions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete required action: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *catalogRepository) AddRequiredDocument(ctx context.Context, d *model.RequiredDocument) error {
	query := `
		INSERT INTO stage_required_documents (stage_template_id, document_type, is_mandatory)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	err := querier(ctx, r.pool).QueryRow(ctx, query,
		d.StageTemplateID, d.DocumentType, d.IsMandatory,
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert required document: %w", err)
	}
	return nil
}

func (r *catalogRepository) DeleteRequiredDocument(ctx context.Context, id uuid.UUID) error {
	tag, err := querier(ctx, r.pool).Exec(ctx,
		`DELETE FROM stage_required_documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete required document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *catalogRepository) RequiredActionsByTemplate(ctx context.Context, templateID uuid.UUID) ([]model.RequiredAction, error) {
	query := `
		SELECT id, stage_template_id, action_type, is_mandatory, validation_order, created_at
		FROM stage_required_actions
		WHERE stage_template_id = $1
		ORDER BY validation_order NULLS LAST, created_at ASC`
	rows, err := querier(ctx, r.pool).Query(ctx, query, templateID)
	if err != nil {
		return nil, fmt.Errorf("list required actions: %w", err)
	}
	defer rows.Close()

	var actions []model.RequiredAction
	for rows.Next() {
		var a model.RequiredAction
		if err := rows.Scan(&a.ID, &a.StageTemplateID, &a.ActionType, &a.IsMandatory, &a.ValidationOrder, &a.CreatedAt); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

func (r *catalogRepository) RequiredDocumentsByTemplate(ctx context.Context, templateID uuid.UUID) ([]model.RequiredDocument, error) {
	query := `
		SELECT id, stage_template_id, document_type, is_mandatory, created_at
		FROM stage_required_documents
		WHERE stage_template_id = $1
		ORDER BY created_at ASC`
	rows, err := querier(ctx, r.pool).Query(ctx, query, templateID)
	if err != nil {
		return nil, fmt.Errorf("list required documents: %w", err)
	}
	defer rows.Close()

	var docs []model.RequiredDocument
	for rows.Next() {
		var d model.RequiredDocument
		if err := rows.Scan(&d.ID, &d.StageTemplateID, &d.DocumentType, &d.IsMandatory, &d.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *catalogRepository) RequiredActionsByType(ctx context.Context, typeID uuid.UUID) ([]RequiredActionWithStage, error) {
	query := `
		SELECT sra.id, sra.stage_template_id, sra.action_type, sra.is_mandatory,
		       sra.validation_order, sra.created_at, ost.stage_name, ost.stage_order
		FROM stage_required_actions sra
		JOIN opportunity_stage_templates ost ON sra.stage_template_id = ost.id
		WHERE ost.opportunity_type_id = $1
		ORDER BY ost.stage_order, sra.validation_order NULLS LAST`
	rows, err := querier(ctx, r.pool).Query(ctx, query, typeID)
	if err != nil {
		return nil, fmt.Errorf("list required actions by type: %w", err)
	}
	defer rows.Close()

	var actions []RequiredActionWithStage
	for rows.Next() {
		var a RequiredActionWithStage
		if err := rows.Scan(&a.ID, &a.StageTemplateID, &a.ActionType, &a.IsMandatory,
			&a.ValidationOrder, &a.CreatedAt, &a.StageName, &a.StageOrder); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

func (r *catalogRepository) RequiredDocumentsByType(ctx context.Context, typeID uuid.UUID) ([]RequiredDocumentWithStage, error) {
	query := `
		SELECT srd.id, srd.stage_template_id, srd.document_type, srd.is_mandatory,
		       srd.created_at, ost.stage_name, ost.stage_order
		FROM stage_required_documents srd
		JOIN opportunity_stage_templates ost ON srd.stage_template_id = ost.id
		WHERE ost.opportunity_type_id = $1
		ORDER BY ost.stage_order`
	rows, err := querier(ctx, r.pool).Query(ctx, query, typeID)
	if err != nil {
		return nil, fmt.Errorf("list required documents by type: %w", err)
	}
	defer rows.Close()

	var docs []RequiredDocumentWithStage
	for rows.Next() {
		var d RequiredDocumentWithStage
		if err := rows.Scan(&d.ID, &d.StageTemplateID, &d.DocumentType, &d.IsMandatory,
			&d.CreatedAt, &d.StageName, &d.StageOrder); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
