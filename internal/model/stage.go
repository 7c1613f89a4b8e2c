package model

import (
	"time"

	"github.com/google/uuid"
)

// Stage status enum constants
const (
	StageStatusPending    = "PENDING"
	StageStatusInProgress = "IN_PROGRESS"
	StageStatusCompleted  = "COMPLETED"
	StageStatusBlocked    = "BLOCKED"
)

// Risk level enum constants
const (
	RiskLow      = "LOW"
	RiskMedium   = "MEDIUM"
	RiskHigh     = "HIGH"
	RiskCritical = "CRITICAL"
)

// Priority level enum constants
const (
	PriorityNormal = "NORMAL"
	PriorityHigh   = "HIGH"
	PriorityUrgent = "URGENT"
)

// Stage completion outcome values, required when the template carries the
// validation_required flag.
const (
	StageOutcomeGagnee = "gagnee"
	StageOutcomePerdue = "perdue"
)

// OpportunityStage is the runtime realization of a stage template for one
// opportunity. stage_name and stage_order are copied from the template at
// instantiation time so later template edits do not rewrite history.
type OpportunityStage struct {
	ID              uuid.UUID  `json:"id"`
	OpportunityID   uuid.UUID  `json:"opportunity_id"`
	StageTemplateID uuid.UUID  `json:"stage_template_id"`
	StageName       string     `json:"stage_name"`
	StageOrder      int        `json:"stage_order"`
	Status          string     `json:"status"`
	StartDate       *time.Time `json:"start_date"`
	CompletedDate   *time.Time `json:"completed_date"`
	DueDate         *time.Time `json:"due_date"`
	RiskLevel       string     `json:"risk_level"`
	PriorityLevel   string     `json:"priority_level"`
	Outcome         *string    `json:"outcome"`
	Notes           *string    `json:"notes"`
	ValidatedBy     *uuid.UUID `json:"validated_by"`
	ValidatedAt     *time.Time `json:"validated_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// StageStats aggregates the pipeline state of one opportunity.
type StageStats struct {
	TotalStages      int `json:"total_stages"`
	CompletedStages  int `json:"completed_stages"`
	InProgressStages int `json:"in_progress_stages"`
	PendingStages    int `json:"pending_stages"`
	BlockedStages    int `json:"blocked_stages"`
	CriticalRisks    int `json:"critical_risks"`
	HighRisks        int `json:"high_risks"`
	UrgentPriorities int `json:"urgent_priorities"`
}

// RiskParams holds the due-date thresholds (in days) used to derive risk and
// priority levels. Values come from the risk_parameters table with these
// defaults as fallback.
type RiskParams struct {
	HighRiskDays    int
	MediumRiskDays  int
	EarlyStageOrder int
}

// DefaultRiskParams are the built-in thresholds: overdue stages are CRITICAL,
// due within HighRiskDays HIGH, within MediumRiskDays MEDIUM, otherwise LOW.
// Stages ordered at or below EarlyStageOrder are at least HIGH priority.
var DefaultRiskParams = RiskParams{
	HighRiskDays:    3,
	MediumRiskDays:  7,
	EarlyStageOrder: 2,
}
