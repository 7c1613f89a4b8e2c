package model

import (
	"time"

	"github.com/google/uuid"
)

// OpportunityType is a reusable pipeline definition. Assigning a type to an
// opportunity instantiates its stage templates as stage instances.
type OpportunityType struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	Description         string    `json:"description"`
	DefaultProbability  int       `json:"default_probability"`
	DefaultDurationDays int       `json:"default_duration_days"`
	IsActive            bool      `json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// StageTemplate is an ordered step definition belonging to one opportunity
// type. stage_order is 1-based and unique within the type. Templates with
// dependent stage instances must not be deleted.
type StageTemplate struct {
	ID                 uuid.UUID `json:"id"`
	OpportunityTypeID  uuid.UUID `json:"opportunity_type_id"`
	StageName          string    `json:"stage_name"`
	StageOrder         int       `json:"stage_order"`
	Description        string    `json:"description"`
	MinDurationDays    int       `json:"min_duration_days"`
	MaxDurationDays    int       `json:"max_duration_days"`
	IsMandatory        bool      `json:"is_mandatory"`
	ValidationRequired bool      `json:"validation_required"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// RequiredAction declares an action type that must be logged against a stage
// before its mandatory requirements are considered satisfied.
type RequiredAction struct {
	ID              uuid.UUID `json:"id"`
	StageTemplateID uuid.UUID `json:"stage_template_id"`
	ActionType      string    `json:"action_type"`
	IsMandatory     bool      `json:"is_mandatory"`
	ValidationOrder *int      `json:"validation_order"`
	CreatedAt       time.Time `json:"created_at"`
}

// RequiredDocument declares a document type that must be uploaded and
// validated against a stage.
type RequiredDocument struct {
	ID              uuid.UUID `json:"id"`
	StageTemplateID uuid.UUID `json:"stage_template_id"`
	DocumentType    string    `json:"document_type"`
	IsMandatory     bool      `json:"is_mandatory"`
	CreatedAt       time.Time `json:"created_at"`
}
