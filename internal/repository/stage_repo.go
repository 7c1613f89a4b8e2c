package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ebvision/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StageRepository defines data access for stage instances. Every status
// transition is a single compare-and-swap UPDATE: the WHERE clause carries the
// expected current status and zero affected rows surfaces as
// ErrStaleTransition, so concurrent writers can never double-apply a
// transition.
type StageRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.OpportunityStage, error)
	ByOpportunity(ctx context.Context, opportunityID uuid.UUID) ([]model.OpportunityStage, error)
	// ByOrder returns the stage at the given order, or ErrNotFound.
	ByOrder(ctx context.Context, opportunityID uuid.UUID, order int) (*model.OpportunityStage, error)
	// FirstByStatus returns the lowest-ordered stage in the given status, or
	// ErrNotFound. The "current" stage is the first IN_PROGRESS one; it is
	// always derived, never stored.
	FirstByStatus(ctx context.Context, opportunityID uuid.UUID, status string) (*model.OpportunityStage, error)
	ExistsForOpportunity(ctx context.Context, opportunityID uuid.UUID) (bool, error)
	ExistsForTemplate(ctx context.Context, templateID uuid.UUID) (bool, error)
	CreateInstance(ctx context.Context, stage *model.OpportunityStage) error

	Start(ctx context.Context, id uuid.UUID) (*model.OpportunityStage, error)
	Complete(ctx context.Context, id uuid.UUID, outcome *string, validatedBy *uuid.UUID) (*model.OpportunityStage, error)
	Block(ctx context.Context, id uuid.UUID) (*model.OpportunityStage, error)
	Unblock(ctx context.Context, id uuid.UUID) (*model.OpportunityStage, error)
	// CompleteRemaining force-completes every non-completed stage of an
	// opportunity (early win on a validated outcome).
	CompleteRemaining(ctx context.Context, opportunityID uuid.UUID) error

	SetRiskPriority(ctx context.Context, id uuid.UUID, risk, priority string) error
	SetDueDate(ctx context.Context, id uuid.UUID, due time.Time) error
	// Overdue lists stages in PENDING or IN_PROGRESS whose due date has
	// passed and whose risk is not yet CRITICAL.
	Overdue(ctx context.Context) ([]model.OpportunityStage, error)
	Stats(ctx context.Context, opportunityID uuid.UUID) (*model.StageStats, error)
}

type stageRepository struct {
	pool *pgxpool.Pool
}

func NewStageRepository(pool *pgxpool.Pool) StageRepository {
	return &stageRepository{pool: pool}
}

const stageColumns = `
	id, opportunity_id, stage_template_id, stage_name, stage_order, status,
	start_date, completed_date, due_date, risk_level, priority_level, outcome,
	notes, validated_by, validated_at, created_at, updated_at`

func scanStage(row pgx.Row) (*model.OpportunityStage, error) {
	var s model.OpportunityStage
	err := row.Scan(
		&s.ID, &s.OpportunityID, &s.StageTemplateID, &s.StageName,
		&s.StageOrder, &s.Status, &s.StartDate, &s.CompletedDate, &s.DueDate,
		&s.RiskLevel, &s.PriorityLevel, &s.Outcome, &s.Notes, &s.ValidatedBy,
		&s.ValidatedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func collectStages(rows pgx.Rows) ([]model.OpportunityStage, error) {
	defer rows.Close()
	var stages []model.OpportunityStage
	for rows.Next() {
		s, err := scanStage(rows)
		if err != nil {
			return nil, err
		}
		stages = append(stages, *s)
	}
	return stages, rows.Err()
}

func (r *stageRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.OpportunityStage, error) {
	query := `SELECT` + stageColumns + ` FROM opportunity_stages WHERE id = $1`
	return scanStage(querier(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *stageRepository) ByOpportunity(ctx context.Context, opportunityID uuid.UUID) ([]model.OpportunityStage, error) {
	query := `SELECT` + stageColumns + `
		FROM opportunity_stages
		WHERE opportunity_id = $1
		ORDER BY stage_order ASC`
	rows, err := querier(ctx, r.pool).Query(ctx, query, opportunityID)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	return collectStages(rows)
}

func (r *stageRepository) ByOrder(ctx context.Context, opportunityID uuid.UUID, order int) (*model.OpportunityStage, error) {
	query := `SELECT` + stageColumns + `
		FROM opportunity_stages
		WHERE opportunity_id = $1 AND stage_order = $2`
	return scanStage(querier(ctx, r.pool).QueryRow(ctx, query, opportunityID, order))
}

func (r *stageRepository) FirstByStatus(ctx context.Context, opportunityID uuid.UUID, status string) (*model.OpportunityStage, error) {
	query := `SELECT` + stageColumns + `
		FROM opportunity_stages
		WHERE opportunity_id = $1 AND status = $2
		ORDER BY stage_order ASC
		LIMIT 1`
	return scanStage(querier(ctx, r.pool).QueryRow(ctx, query, opportunityID, status))
}

func (r *stageRepository) ExistsForOpportunity(ctx context.Context, opportunityID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM opportunity_stages WHERE opportunity_id = $1)`
	if err := querier(ctx, r.pool).QueryRow(ctx, query, opportunityID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check stages exist: %w", err)
	}
	return exists, nil
}

func (r *stageRepository) ExistsForTemplate(ctx context.Context, templateID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM opportunity_stages WHERE stage_template_id = $1)`
	if err := querier(ctx, r.pool).QueryRow(ctx, query, templateID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check template usage: %w", err)
	}
	return exists, nil
}

func (r *stageRepository) CreateInstance(ctx context.Context, stage *model.OpportunityStage) error {
	query := `
		INSERT INTO opportunity_stages (
			opportunity_id, stage_template_id, stage_name, stage_order,
			status, start_date, due_date, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, risk_level, priority_level, created_at, updated_at`
	err := querier(ctx, r.pool).QueryRow(ctx, query,
		stage.OpportunityID, stage.StageTemplateID, stage.StageName,
		stage.StageOrder, stage.Status, stage.StartDate, stage.DueDate, stage.Notes,
	).Scan(&stage.ID, &stage.RiskLevel, &stage.PriorityLevel, &stage.CreatedAt, &stage.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert stage instance: %w", err)
	}
	return nil
}

func (r *stageRepository) transition(ctx context.Context, query string, args ...any) (*model.OpportunityStage, error) {
	stage, err := scanStage(querier(ctx, r.pool).QueryRow(ctx, query, args...))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrStaleTransition
	}
	return stage, err
}

func (r *stageRepository) Start(ctx context.Context, id uuid.UUID) (*model.OpportunityStage, error) {
	query := `
		UPDATE opportunity_stages SET
			status = $2,
			start_date = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $3
		RETURNING` + stageColumns
	return r.transition(ctx, query, id, model.StageStatusInProgress, model.StageStatusPending)
}

func (r *stageRepository) Complete(ctx context.Context, id uuid.UUID, outcome *string, validatedBy *uuid.UUID) (*model.OpportunityStage, error) {
	query := `
		UPDATE opportunity_stages SET
			status = $2,
			completed_date = CURRENT_TIMESTAMP,
			outcome = COALESCE($4, outcome),
			validated_by = COALESCE($5, validated_by),
			validated_at = CASE WHEN $5::uuid IS NULL THEN validated_at ELSE CURRENT_TIMESTAMP END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $3
		RETURNING` + stageColumns
	return r.transition(ctx, query, id, model.StageStatusCompleted, model.StageStatusInProgress, outcome, validatedBy)
}

func (r *stageRepository) Block(ctx context.Context, id uuid.UUID) (*model.OpportunityStage, error) {
	query := `
		UPDATE opportunity_stages SET status = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $3
		RETURNING` + stageColumns
	return r.transition(ctx, query, id, model.StageStatusBlocked, model.StageStatusInProgress)
}

func (r *stageRepository) Unblock(ctx context.Context, id uuid.UUID) (*model.OpportunityStage, error) {
	query := `
		UPDATE opportunity_stages SET status = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = $3
		RETURNING` + stageColumns
	return r.transition(ctx, query, id, model.StageStatusInProgress, model.StageStatusBlocked)
}

func (r *stageRepository) CompleteRemaining(ctx context.Context, opportunityID uuid.UUID) error {
	query := `
		UPDATE opportunity_stages SET
			status = $2,
			completed_date = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP
		WHERE opportunity_id = $1 AND status <> $2`
	if _, err := querier(ctx, r.pool).Exec(ctx, query, opportunityID, model.StageStatusCompleted); err != nil {
		return fmt.Errorf("complete remaining stages: %w", err)
	}
	return nil
}

func (r *stageRepository) SetRiskPriority(ctx context.Context, id uuid.UUID, risk, priority string) error {
	query := `
		UPDATE opportunity_stages SET
			risk_level = $2, priority_level = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`
	tag, err := querier(ctx, r.pool).Exec(ctx, query, id, risk, priority)
	if err != nil {
		return fmt.Errorf("update risk/priority: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *stageRepository) SetDueDate(ctx context.Context, id uuid.UUID, due time.Time) error {
	query := `
		UPDATE opportunity_stages SET due_date = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`
	tag, err := querier(ctx, r.pool).Exec(ctx, query, id, due)
	if err != nil {
		return fmt.Errorf("update due date: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *stageRepository) Overdue(ctx context.Context) ([]model.OpportunityStage, error) {
	query := `SELECT` + stageColumns + `
		FROM opportunity_stages
		WHERE status IN ($1, $2)
		  AND due_date < CURRENT_TIMESTAMP
		  AND risk_level <> $3
		ORDER BY due_date ASC`
	rows, err := querier(ctx, r.pool).Query(ctx, query,
		model.StageStatusPending, model.StageStatusInProgress, model.RiskCritical)
	if err != nil {
		return nil, fmt.Errorf("list overdue stages: %w", err)
	}
	return collectStages(rows)
}

func (r *stageRepository) Stats(ctx context.Context, opportunityID uuid.UUID) (*model.StageStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'COMPLETED'),
			COUNT(*) FILTER (WHERE status = 'IN_PROGRESS'),
			COUNT(*) FILTER (WHERE status = 'PENDING'),
			COUNT(*) FILTER (WHERE status = 'BLOCKED'),
			COUNT(*) FILTER (WHERE risk_level = 'CRITICAL'),
			COUNT(*) FILTER (WHERE risk_level = 'HIGH'),
			COUNT(*) FILTER (WHERE priority_level = 'URGENT')
		FROM opportunity_stages
		WHERE opportunity_id = $1`
	var st model.StageStats
	err := querier(ctx, r.pool).QueryRow(ctx, query, opportunityID).Scan(
		&st.TotalStages, &st.CompletedStages, &st.InProgressStages,
		&st.PendingStages, &st.BlockedStages, &st.CriticalRisks,
		&st.HighRisks, &st.UrgentPriorities,
	)
	if err != nil {
		return nil, fmt.Errorf("stage stats: %w", err)
	}
	return &st, nil
}
