package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Opportunity lifecycle status enum constants
const (
	OpportunityStatusNouvelle = "NOUVELLE"
	OpportunityStatusEnCours  = "EN_COURS"
	OpportunityStatusGagnee   = "GAGNEE"
	OpportunityStatusPerdue   = "PERDUE"
	OpportunityStatusAnnulee  = "ANNULEE"
)

// IsClosedOpportunityStatus reports whether a status is terminal.
// Closed opportunities accept no further stage transitions.
func IsClosedOpportunityStatus(statut string) bool {
	switch statut {
	case OpportunityStatusGagnee, OpportunityStatusPerdue, OpportunityStatusAnnulee:
		return true
	}
	return false
}

// Opportunity represents a sales pursuit moving through a staged pipeline.
// The workflow service mutates statut and date_fermeture_reelle; name, amount
// and ownership fields are edited directly by users.
type Opportunity struct {
	ID                  uuid.UUID       `json:"id"`
	Nom                 string          `json:"nom"`
	Description         string          `json:"description"`
	ClientID            *uuid.UUID      `json:"client_id"`
	CollaborateurID     *uuid.UUID      `json:"collaborateur_id"`
	BusinessUnitID      *uuid.UUID      `json:"business_unit_id"`
	OpportunityTypeID   *uuid.UUID      `json:"opportunity_type_id"`
	Statut              string          `json:"statut"`
	MontantEstime       decimal.Decimal `json:"montant_estime"`
	Devise              string          `json:"devise"`
	Probabilite         int             `json:"probabilite"`
	DateFermeturePrevue *time.Time      `json:"date_fermeture_prevue"`
	DateFermetureReelle *time.Time      `json:"date_fermeture_reelle"`
	FiscalYearID        *uuid.UUID      `json:"fiscal_year_id"`
	LastActivityAt      *time.Time      `json:"last_activity_at"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}
