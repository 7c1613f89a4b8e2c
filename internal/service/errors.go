package service

import "errors"

// Guard-failure sentinels. Handlers translate these into 4xx responses;
// anything else is a persistence failure and surfaces as 500.
var (
	// ErrInvalidTransition is returned when a stage is not in the status the
	// requested transition expects, including when a concurrent writer won
	// the compare-and-swap race.
	ErrInvalidTransition = errors.New("transition not allowed from the current status")
	// ErrOpportunityClosed is returned for any transition attempt against a
	// GAGNEE, PERDUE or ANNULEE opportunity.
	ErrOpportunityClosed = errors.New("opportunity is closed")
	// ErrRequirementsNotMet is returned when mandatory required actions or
	// documents are missing at stage completion.
	ErrRequirementsNotMet = errors.New("mandatory stage requirements are not satisfied")
	// ErrOutcomeRequired is returned when completing a validation-required
	// stage without a gagnee/perdue outcome.
	ErrOutcomeRequired = errors.New("an outcome (gagnee or perdue) is required for this stage")
	// ErrTemplateInUse is returned when deleting a stage template that has
	// instantiated stages.
	ErrTemplateInUse = errors.New("stage template is referenced by existing opportunity stages")
)
