package repository

import (
	"context"
	"fmt"

	"ebvision/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Risk parameter names recognized in the risk_parameters table. Unset
// parameters fall back to model.DefaultRiskParams.
const (
	ParamHighRiskDays    = "HIGH_RISK_DAYS"
	ParamMediumRiskDays  = "MEDIUM_RISK_DAYS"
	ParamEarlyStageOrder = "EARLY_STAGE_ORDER"
)

// ParamsRepository loads the configurable risk/priority thresholds.
type ParamsRepository interface {
	RiskParams(ctx context.Context) (model.RiskParams, error)
}

type paramsRepository struct {
	pool *pgxpool.Pool
}

func NewParamsRepository(pool *pgxpool.Pool) ParamsRepository {
	return &paramsRepository{pool: pool}
}

func (r *paramsRepository) RiskParams(ctx context.Context) (model.RiskParams, error) {
	params := model.DefaultRiskParams

	query := `SELECT parameter_name, parameter_value FROM risk_parameters WHERE is_active = TRUE`
	rows, err := querier(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return params, fmt.Errorf("load risk parameters: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var value int
		if err := rows.Scan(&name, &value); err != nil {
			return params, err
		}
		switch name {
		case ParamHighRiskDays:
			params.HighRiskDays = value
		case ParamMediumRiskDays:
			params.MediumRiskDays = value
		case ParamEarlyStageOrder:
			params.EarlyStageOrder = value
		}
	}
	return params, rows.Err()
}
