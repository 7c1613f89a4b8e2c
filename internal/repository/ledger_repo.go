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

// DocTypeCount is the per-document-type tally used by the requirement
// validator: how many records exist and how many of them are validated.
type DocTypeCount struct {
	Total     int `json:"total"`
	Validated int `json:"validated"`
}

// LedgerRepository defines data access for the append-only action/document
// ledger. Action rows are immutable; document rows only change their
// validation sub-state.
type LedgerRepository interface {
	InsertAction(ctx context.Context, a *model.ActionRecord) error
	InsertDocument(ctx context.Context, d *model.DocumentRecord) error
	GetDocument(ctx context.Context, id uuid.UUID) (*model.DocumentRecord, error)
	// SetDocumentValidation moves the validation sub-state; validated_at is
	// stamped only for "validated" and cleared for "rejected".
	SetDocumentValidation(ctx context.Context, id, opportunityID uuid.UUID, status string, validatorID uuid.UUID) (*model.DocumentRecord, error)

	ActionsByOpportunity(ctx context.Context, opportunityID uuid.UUID) ([]model.ActionRecord, error)
	DocumentsByOpportunity(ctx context.Context, opportunityID uuid.UUID) ([]model.DocumentRecord, error)
	// ActionsPage and DocumentsPage return newest-first windows for listing
	// endpoints; the unpaged variants stay chronological for the timeline.
	ActionsPage(ctx context.Context, opportunityID uuid.UUID, limit, offset int) ([]model.ActionRecord, error)
	DocumentsPage(ctx context.Context, opportunityID uuid.UUID, limit, offset int) ([]model.DocumentRecord, error)

	// ValidatingActionCounts tallies validating action records per action
	// type, scoped to the stage or unscoped against the opportunity.
	ValidatingActionCounts(ctx context.Context, opportunityID, stageID uuid.UUID) (map[string]int, error)
	// DocumentCounts tallies document records per document type with the
	// same scoping rule.
	DocumentCounts(ctx context.Context, opportunityID, stageID uuid.UUID) (map[string]DocTypeCount, error)
}

type ledgerRepository struct {
	pool *pgxpool.Pool
}

func NewLedgerRepository(pool *pgxpool.Pool) LedgerRepository {
	return &ledgerRepository{pool: pool}
}

const documentColumns = `
	id, opportunity_id, stage_id, document_type, file_name, file_path,
	uploaded_by, validation_status, validated_by, validated_at, uploaded_at`

func scanDocument(row pgx.Row) (*model.DocumentRecord, error) {
	var d model.DocumentRecord
	err := row.Scan(
		&d.ID, &d.OpportunityID, &d.StageID, &d.DocumentType, &d.FileName,
		&d.FilePath, &d.UploadedBy, &d.ValidationStatus, &d.ValidatedBy,
		&d.ValidatedAt, &d.UploadedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *ledgerRepository) InsertAction(ctx context.Context, a *model.ActionRecord) error {
	query := `
		INSERT INTO opportunity_actions (
			opportunity_id, stage_id, action_type, action_title,
			action_description, performed_by, is_validating, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, performed_at`
	err := querier(ctx, r.pool).QueryRow(ctx, query,
		a.OpportunityID, a.StageID, a.ActionType, a.ActionTitle,
		a.Description, a.PerformedBy, a.IsValidating, a.Metadata,
	).Scan(&a.ID, &a.PerformedAt)
	if err != nil {
		return fmt.Errorf("insert action record: %w", err)
	}
	return nil
}

func (r *ledgerRepository) InsertDocument(ctx context.Context, d *model.DocumentRecord) error {
	query := `
		INSERT INTO opportunity_documents (
			opportunity_id, stage_id, document_type, file_name, file_path, uploaded_by
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, validation_status, uploaded_at`
	err := querier(ctx, r.pool).QueryRow(ctx, query,
		d.OpportunityID, d.StageID, d.DocumentType, d.FileName, d.FilePath, d.UploadedBy,
	).Scan(&d.ID, &d.ValidationStatus, &d.UploadedAt)
	if err != nil {
		return fmt.Errorf("insert document record: %w", err)
	}
	return nil
}

func (r *ledgerRepository) GetDocument(ctx context.Context, id uuid.UUID) (*model.DocumentRecord, error) {
	query := `SELECT` + documentColumns + ` FROM opportunity_documents WHERE id = $1`
	return scanDocument(querier(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *ledgerRepository) SetDocumentValidation(ctx context.Context, id, opportunityID uuid.UUID, status string, validatorID uuid.UUID) (*model.DocumentRecord, error) {
	query := `
		UPDATE opportunity_documents SET
			validation_status = $3,
			validated_by = $4,
			validated_at = CASE WHEN $3 = 'validated' THEN CURRENT_TIMESTAMP ELSE NULL END
		WHERE id = $1 AND opportunity_id = $2
		RETURNING` + documentColumns
	return scanDocument(querier(ctx, r.pool).QueryRow(ctx, query, id, opportunityID, status, validatorID))
}

func (r *ledgerRepository) ActionsByOpportunity(ctx context.Context, opportunityID uuid.UUID) ([]model.ActionRecord, error) {
	query := `
		SELECT id, opportunity_id, stage_id, action_type, action_title,
		       action_description, performed_by, is_validating, metadata, performed_at
		FROM opportunity_actions
		WHERE opportunity_id = $1
		ORDER BY performed_at ASC`
	rows, err := querier(ctx, r.pool).Query(ctx, query, opportunityID)
	if err != nil {
		return nil, fmt.Errorf("list action records: %w", err)
	}
	defer rows.Close()

	var actions []model.ActionRecord
	for rows.Next() {
		var a model.ActionRecord
		if err := rows.Scan(&a.ID, &a.OpportunityID, &a.StageID, &a.ActionType,
			&a.ActionTitle, &a.Description, &a.PerformedBy, &a.IsValidating,
			&a.Metadata, &a.PerformedAt); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

func (r *ledgerRepository) DocumentsByOpportunity(ctx context.Context, opportunityID uuid.UUID) ([]model.DocumentRecord, error) {
	query := `SELECT` + documentColumns + `
		FROM opportunity_documents
		WHERE opportunity_id = $1
		ORDER BY uploaded_at ASC`
	rows, err := querier(ctx, r.pool).Query(ctx, query, opportunityID)
	if err != nil {
		return nil, fmt.Errorf("list document records: %w", err)
	}
	defer rows.Close()

	var docs []model.DocumentRecord
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

func (r *ledgerRepository) ActionsPage(ctx context.Context, opportunityID uuid.UUID, limit, offset int) ([]model.ActionRecord, error) {
	query := `
		SELECT id, opportunity_id, stage_id, action_type, action_title,
		       action_description, performed_by, is_validating, metadata, performed_at
		FROM opportunity_actions
		WHERE opportunity_id = $1
		ORDER BY performed_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := querier(ctx, r.pool).Query(ctx, query, opportunityID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("page action records: %w", err)
	}
	defer rows.Close()

	var actions []model.ActionRecord
	for rows.Next() {
		var a model.ActionRecord
		if err := rows.Scan(&a.ID, &a.OpportunityID, &a.StageID, &a.ActionType,
			&a.ActionTitle, &a.Description, &a.PerformedBy, &a.IsValidating,
			&a.Metadata, &a.PerformedAt); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

func (r *ledgerRepository) DocumentsPage(ctx context.Context, opportunityID uuid.UUID, limit, offset int) ([]model.DocumentRecord, error) {
	query := `SELECT` + documentColumns + `
		FROM opportunity_documents
		WHERE opportunity_id = $1
		ORDER BY uploaded_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := querier(ctx, r.pool).Query(ctx, query, opportunityID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("page document records: %w", err)
	}
	defer rows.Close()

	var docs []model.DocumentRecord
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

func (r *ledgerRepository) ValidatingActionCounts(ctx context.Context, opportunityID, stageID uuid.UUID) (map[string]int, error) {
	query := `
		SELECT action_type, COUNT(*)
		FROM opportunity_actions
		WHERE opportunity_id = $1
		  AND (stage_id = $2 OR stage_id IS NULL)
		  AND is_validating = TRUE
		GROUP BY action_type`
	rows, err := querier(ctx, r.pool).Query(ctx, query, opportunityID, stageID)
	if err != nil {
		return nil, fmt.Errorf("count validating actions: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var actionType string
		var n int
		if err := rows.Scan(&actionType, &n); err != nil {
			return nil, err
		}
		counts[actionType] = n
	}
	return counts, rows.Err()
}

func (r *ledgerRepository) DocumentCounts(ctx context.Context, opportunityID, stageID uuid.UUID) (map[string]DocTypeCount, error) {
	query := `
		SELECT document_type,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE validation_status = 'validated')
		FROM opportunity_documents
		WHERE opportunity_id = $1
		  AND (stage_id = $2 OR stage_id IS NULL)
		GROUP BY document_type`
	rows, err := querier(ctx, r.pool).Query(ctx, query, opportunityID, stageID)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]DocTypeCount)
	for rows.Next() {
		var documentType string
		var c DocTypeCount
		if err := rows.Scan(&documentType, &c.Total, &c.Validated); err != nil {
			return nil, err
		}
		counts[documentType] = c
	}
	return counts, rows.Err()
}
