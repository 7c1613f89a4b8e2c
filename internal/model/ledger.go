package model

import (
	"time"

	"github.com/google/uuid"
)

// Workflow action type constants. Action records double as the audit trail:
// every state transition appends one row.
const (
	ActionStageStart         = "STAGE_START"
	ActionStageComplete      = "STAGE_COMPLETE"
	ActionStageBlocked       = "STAGE_BLOCKED"
	ActionStageUnblocked     = "STAGE_UNBLOCKED"
	ActionOverdueAlert       = "OVERDUE_ALERT"
	ActionOpportunityAbandon = "OPPORTUNITY_ABANDON"
	ActionOpportunityReopen  = "OPPORTUNITY_REOPEN"
)

// Document validation sub-states
const (
	DocValidationPending   = "pending"
	DocValidationValidated = "validated"
	DocValidationRejected  = "rejected"
)

// ActionRecord is an append-only ledger entry against an opportunity,
// optionally scoped to a stage. Rows are never mutated after insert.
type ActionRecord struct {
	ID            uuid.UUID  `json:"id"`
	OpportunityID uuid.UUID  `json:"opportunity_id"`
	StageID       *uuid.UUID `json:"stage_id"`
	ActionType    string     `json:"action_type"`
	ActionTitle   string     `json:"action_title"`
	Description   string     `json:"action_description"`
	PerformedBy   *uuid.UUID `json:"performed_by"`
	IsValidating  bool       `json:"is_validating"`
	Metadata      []byte     `json:"metadata,omitempty"`
	PerformedAt   time.Time  `json:"performed_at"`
}

// DocumentRecord is an append-only ledger entry for a produced document.
// Only the validation sub-state may change after insert
// (pending -> validated|rejected, re-reviewable).
type DocumentRecord struct {
	ID               uuid.UUID  `json:"id"`
	OpportunityID    uuid.UUID  `json:"opportunity_id"`
	StageID          *uuid.UUID `json:"stage_id"`
	DocumentType     string     `json:"document_type"`
	FileName         string     `json:"file_name"`
	FilePath         string     `json:"file_path"`
	UploadedBy       *uuid.UUID `json:"uploaded_by"`
	ValidationStatus string     `json:"validation_status"`
	ValidatedBy      *uuid.UUID `json:"validated_by"`
	ValidatedAt      *time.Time `json:"validated_at"`
	UploadedAt       time.Time  `json:"uploaded_at"`
}
