package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"time"

	"ebvision/internal/model"
	"ebvision/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

// CompleteStageInput carries the optional completion outcome. Outcome is
// mandatory (gagnee/perdue) when the stage template requires validation.
type CompleteStageInput struct {
	Outcome string `json:"outcome"`
	Reason  string `json:"reason"`
	Details string `json:"details"`
}

// TimelineEntry is one event in an opportunity's chronological history.
type TimelineEntry struct {
	Type        string    `json:"type"`
	Date        time.Time `json:"date"`
	StageName   string    `json:"stage_name,omitempty"`
	StageOrder  int       `json:"stage_order,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
}

// OpportunityHistory bundles an opportunity with its stages and timeline.
type OpportunityHistory struct {
	Opportunity *model.Opportunity       `json:"opportunity"`
	Stages      []model.OpportunityStage `json:"stages"`
	Timeline    []TimelineEntry          `json:"timeline"`
}

// --- Interface ---

// WorkflowService is the stage state machine: it advances stages through
// PENDING -> IN_PROGRESS -> COMPLETED, derives risk/priority from due dates,
// cascades completions (auto-start next stage, close the opportunity when the
// pipeline finishes) and appends one action record per transition.
type WorkflowService interface {
	StartStage(ctx context.Context, stageID uuid.UUID, actorID *uuid.UUID) (*model.OpportunityStage, error)
	CompleteStage(ctx context.Context, stageID uuid.UUID, actorID *uuid.UUID, input CompleteStageInput) (*model.OpportunityStage, error)
	// MoveToNextStage completes the stage and returns the next stage it
	// auto-started, or nil when the completed stage was the last.
	MoveToNextStage(ctx context.Context, stageID uuid.UUID, actorID *uuid.UUID) (*model.OpportunityStage, error)
	BlockStage(ctx context.Context, stageID uuid.UUID, actorID *uuid.UUID, reason string) (*model.OpportunityStage, error)
	UnblockStage(ctx context.Context, stageID uuid.UUID, actorID *uuid.UUID) (*model.OpportunityStage, error)

	// CheckOverdueStages sweeps stages past their due date, escalates their
	// risk/priority and appends an overdue-alert action per stage. Safe to
	// re-run and to run concurrently with user transitions.
	CheckOverdueStages(ctx context.Context) ([]model.OpportunityStage, error)

	OpportunityStats(ctx context.Context, opportunityID uuid.UUID) (*model.StageStats, error)
	OpportunityHistory(ctx context.Context, opportunityID uuid.UUID) (*OpportunityHistory, error)
	CurrentStage(ctx context.Context, opportunityID uuid.UUID) (*model.OpportunityStage, error)

	AbandonOpportunity(ctx context.Context, opportunityID uuid.UUID, actorID *uuid.UUID, reason string) error
	ReopenOpportunity(ctx context.Context, opportunityID uuid.UUID, actorID *uuid.UUID) error
}

type workflowService struct {
	stages        repository.StageRepository
	opportunities repository.OpportunityRepository
	catalog       repository.CatalogRepository
	ledger        repository.LedgerRepository
	params        repository.ParamsRepository
	requirements  RequirementService
	txm           repository.TransactionManager
	notifier      Notifier
}

func NewWorkflowService(
	stages repository.StageRepository,
	opportunities repository.OpportunityRepository,
	catalog repository.CatalogRepository,
	ledger repository.LedgerRepository,
	params repository.ParamsRepository,
	requirements RequirementService,
	txm repository.TransactionManager,
	notifier Notifier,
) WorkflowService {
	return &workflowService{
		stages:        stages,
		opportunities: opportunities,
		catalog:       catalog,
		ledger:        ledger,
		params:        params,
		requirements:  requirements,
		txm:           txm,
		notifier:      notifier,
	}
}

// --- Risk and priority derivation ---

// ComputeRiskLevel derives a stage's risk from its due date. A stage without
// a due date carries medium risk; an overdue one is critical.
func ComputeRiskLevel(dueDate *time.Time, now time.Time, p model.RiskParams) string {
	if dueDate == nil {
		return model.RiskMedium
	}
	daysUntilDue := int(math.Ceil(dueDate.Sub(now).Hours() / 24))
	switch {
	case daysUntilDue < 0:
		return model.RiskCritical
	case daysUntilDue <= p.HighRiskDays:
		return model.RiskHigh
	case daysUntilDue <= p.MediumRiskDays:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}

// ComputePriorityLevel derives priority from risk and pipeline position:
// critical risk is always urgent, and early stages are never below high.
func ComputePriorityLevel(riskLevel string, stageOrder int, p model.RiskParams) string {
	switch {
	case riskLevel == model.RiskCritical:
		return model.PriorityUrgent
	case riskLevel == model.RiskHigh || stageOrder <= p.EarlyStageOrder:
		return model.PriorityHigh
	default:
		return model.PriorityNormal
	}
}

// riskParams loads thresholds, falling back to defaults on lookup failure so
// a degraded parameters table never blocks a transition.
func (s *workflowService) riskParams(ctx context.Context) model.RiskParams {
	params, err := s.params.RiskParams(ctx)
	if err != nil {
		log.Printf("WARNING: risk parameters lookup failed, using defaults: %v", err)
		return model.DefaultRiskParams
	}
	return params
}

func (s *workflowService) refreshRiskPriority(ctx context.Context, stage *model.OpportunityStage) error {
	params := s.riskParams(ctx)
	risk := ComputeRiskLevel(stage.DueDate, time.Now(), params)
	priority := ComputePriorityLevel(risk, stage.StageOrder, params)
	if err := s.stages.SetRiskPriority(ctx, stage.ID, risk, priority); err != nil {
		return fmt.Errorf("persist risk/priority: %w", err)
	}
	stage.RiskLevel = risk
	stage.PriorityLevel = priority
	return nil
}

// --- Transitions ---

func (s *workflowService) StartStage(ctx context.Context, stageID uuid.UUID, actorID *uuid.UUID) (*model.OpportunityStage, error) {
	stage, err := s.stages.GetByID(ctx, stageID)
	if err != nil {
		return nil, err
	}
	if err := s.guardOpportunityOpen(ctx, stage.OpportunityID); err != nil {
		return nil, err
	}
	if stage.Status != model.StageStatusPending {
		return nil, fmt.Errorf("%w: stage %q is %s", ErrInvalidTransition, stage.StageName, stage.Status)
	}

	// Strict sequential advancement: the predecessor, when present, must be
	// completed first.
	if stage.StageOrder > 1 {
		previous, err := s.stages.ByOrder(ctx, stage.OpportunityID, stage.StageOrder-1)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		if previous != nil && previous.Status != model.StageStatusCompleted {
			return nil, fmt.Errorf("%w: previous stage %q must be completed first", ErrInvalidTransition, previous.StageName)
		}
	}

	updated, err := s.stages.Start(ctx, stageID)
	if err != nil {
		if errors.Is(err, repository.ErrStaleTransition) {
			return nil, fmt.Errorf("%w: stage %q is no longer pending", ErrInvalidTransition, stage.StageName)
		}
		return nil, err
	}

	// Instantiation stamps due dates, but a template whose max duration was
	// configured afterwards leaves the instance without one. Derive it from
	// the actual start in that case.
	if updated.DueDate == nil {
		template, err := s.catalog.GetTemplate(ctx, updated.StageTemplateID)
		if err != nil {
			return nil, fmt.Errorf("load stage template: %w", err)
		}
		if template.MaxDurationDays > 0 {
			due := time.Now().AddDate(0, 0, template.MaxDurationDays)
			if err := s.stages.SetDueDate(ctx, updated.ID, due); err != nil {
				return nil, err
			}
			updated.DueDate = &due
		}
	}

	if err := s.appendStageAction(ctx, updated, actorID, model.ActionStageStart,
		"Etape demarree", fmt.Sprintf("L'etape %q a ete demarree", updated.StageName), nil); err != nil {
		return nil, err
	}
	if err := s.refreshRiskPriority(ctx, updated); err != nil {
		return nil, err
	}
	if err := s.opportunities.MarkEnCours(ctx, updated.OpportunityID); err != nil {
		return nil, err
	}
	if err := s.opportunities.TouchActivity(ctx, updated.OpportunityID); err != nil {
		return nil, err
	}

	notify(s.notifier, "stage.started", updated)
	return updated, nil
}

func (s *workflowService) CompleteStage(ctx context.Context, stageID uuid.UUID, actorID *uuid.UUID, input CompleteStageInput) (*model.OpportunityStage, error) {
	stage, err := s.stages.GetByID(ctx, stageID)
	if err != nil {
		return nil, err
	}
	if err := s.guardOpportunityOpen(ctx, stage.OpportunityID); err != nil {
		return nil, err
	}
	if stage.Status != model.StageStatusInProgress {
		return nil, fmt.Errorf("%w: stage %q is %s", ErrInvalidTransition, stage.StageName, stage.Status)
	}

	// A failed requirement lookup fails closed: completing a stage past an
	// unverifiable gate would defeat the gate.
	satisfied, err := s.requirements.MandatorySatisfied(ctx, stage)
	if err != nil {
		return nil, fmt.Errorf("verify stage requirements: %w", err)
	}
	if !satisfied {
		return nil, ErrRequirementsNotMet
	}

	template, err := s.catalog.GetTemplate(ctx, stage.StageTemplateID)
	if err != nil {
		return nil, fmt.Errorf("load stage template: %w", err)
	}

	outcome := strings.ToLower(strings.TrimSpace(input.Outcome))
	if template.ValidationRequired && outcome != model.StageOutcomeGagnee && outcome != model.StageOutcomePerdue {
		return nil, ErrOutcomeRequired
	}

	var outcomePtr *string
	if outcome != "" {
		outcomePtr = &outcome
	}
	var validatedBy *uuid.UUID
	if template.ValidationRequired {
		validatedBy = actorID
	}

	updated, err := s.stages.Complete(ctx, stageID, outcomePtr, validatedBy)
	if err != nil {
		if errors.Is(err, repository.ErrStaleTransition) {
			return nil, fmt.Errorf("%w: stage %q is no longer in progress", ErrInvalidTransition, stage.StageName)
		}
		return nil, err
	}

	description := fmt.Sprintf("L'etape %q a ete terminee", updated.StageName)
	var metadata []byte
	if outcome != "" {
		description += fmt.Sprintf(" (resultat: %s)", outcome)
		metadata, _ = json.Marshal(map[string]string{
			"outcome": outcome,
			"reason":  input.Reason,
			"details": input.Details,
		})
	}
	if err := s.appendStageAction(ctx, updated, actorID, model.ActionStageComplete,
		"Etape terminee", description, metadata); err != nil {
		return nil, err
	}
	if err := s.opportunities.TouchActivity(ctx, updated.OpportunityID); err != nil {
		return nil, err
	}
	notify(s.notifier, "stage.completed", updated)

	// A validated terminal outcome short-circuits the cascade and closes the
	// opportunity directly.
	if template.ValidationRequired {
		switch outcome {
		case model.StageOutcomeGagnee:
			if err := s.stages.CompleteRemaining(ctx, updated.OpportunityID); err != nil {
				return nil, err
			}
			if err := s.closeOpportunity(ctx, updated.OpportunityID, model.OpportunityStatusGagnee); err != nil {
				return nil, err
			}
			return updated, nil
		case model.StageOutcomePerdue:
			if err := s.closeOpportunity(ctx, updated.OpportunityID, model.OpportunityStatusPerdue); err != nil {
				return nil, err
			}
			return updated, nil
		}
	}

	if err := s.runCascade(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// runCascade executes the post-completion steps as an explicit sequence
// rather than recursive calls, so each step stays independently retryable
// and a future gate can be inserted between them.
func (s *workflowService) runCascade(ctx context.Context, completed *model.OpportunityStage) error {
	steps := []func(context.Context, *model.OpportunityStage) error{
		s.cascadeCheckCompletion,
		s.cascadeStartNext,
	}
	for _, step := range steps {
		if err := step(ctx, completed); err != nil {
			return err
		}
	}
	return nil
}

// cascadeCheckCompletion closes the opportunity as won once every stage is
// completed.
func (s *workflowService) cascadeCheckCompletion(ctx context.Context, completed *model.OpportunityStage) error {
	stats, err := s.stages.Stats(ctx, completed.OpportunityID)
	if err != nil {
		return err
	}
	if stats.TotalStages > 0 && stats.CompletedStages == stats.TotalStages {
		return s.closeOpportunity(ctx, completed.OpportunityID, model.OpportunityStatusGagnee)
	}
	return nil
}

// cascadeStartNext auto-starts the next pending stage. Losing the start race
// to a concurrent caller is not an error: the stage got started either way.
func (s *workflowService) cascadeStartNext(ctx context.Context, completed *model.OpportunityStage) error {
	next, err := s.stages.ByOrder(ctx, completed.OpportunityID, completed.StageOrder+1)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if next.Status != model.StageStatusPending {
		return nil
	}
	if _, err := s.StartStage(ctx, next.ID, nil); err != nil {
		if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrOpportunityClosed) {
			return nil
		}
		return err
	}
	return nil
}

func (s *workflowService) MoveToNextStage(ctx context.Context, stageID uuid.UUID, actorID *uuid.UUID) (*model.OpportunityStage, error) {
	stage, err := s.stages.GetByID(ctx, stageID)
	if err != nil {
		return nil, err
	}
	if _, err := s.CompleteStage(ctx, stageID, actorID, CompleteStageInput{}); err != nil {
		return nil, err
	}

	next, err := s.stages.ByOrder(ctx, stage.OpportunityID, stage.StageOrder+1)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return next, nil
}

func (s *workflowService) BlockStage(ctx context.Context, stageID uuid.UUID, actorID *uuid.UUID, reason string) (*model.OpportunityStage, error) {
	stage, err := s.stages.GetByID(ctx, stageID)
	if err != nil {
		return nil, err
	}
	if err := s.guardOpportunityOpen(ctx, stage.OpportunityID); err != nil {
		return nil, err
	}

	updated, err := s.stages.Block(ctx, stageID)
	if err != nil {
		if errors.Is(err, repository.ErrStaleTransition) {
			return nil, fmt.Errorf("%w: only an in-progress stage can be blocked", ErrInvalidTransition)
		}
		return nil, err
	}

	var metadata []byte
	if reason != "" {
		metadata, _ = json.Marshal(map[string]string{"reason": reason})
	}
	if err := s.appendStageAction(ctx, updated, actorID, model.ActionStageBlocked,
		"Etape bloquee", fmt.Sprintf("L'etape %q a ete bloquee", updated.StageName), metadata); err != nil {
		return nil, err
	}
	notify(s.notifier, "stage.blocked", updated)
	return updated, nil
}

func (s *workflowService) UnblockStage(ctx context.Context, stageID uuid.UUID, actorID *uuid.UUID) (*model.OpportunityStage, error) {
	stage, err := s.stages.GetByID(ctx, stageID)
	if err != nil {
		return nil, err
	}
	if err := s.guardOpportunityOpen(ctx, stage.OpportunityID); err != nil {
		return nil, err
	}

	updated, err := s.stages.Unblock(ctx, stageID)
	if err != nil {
		if errors.Is(err, repository.ErrStaleTransition) {
			return nil, fmt.Errorf("%w: only a blocked stage can be unblocked", ErrInvalidTransition)
		}
		return nil, err
	}

	if err := s.appendStageAction(ctx, updated, actorID, model.ActionStageUnblocked,
		"Etape debloquee", fmt.Sprintf("L'etape %q a ete debloquee", updated.StageName), nil); err != nil {
		return nil, err
	}
	notify(s.notifier, "stage.unblocked", updated)
	return updated, nil
}

// --- Overdue sweep ---

func (s *workflowService) CheckOverdueStages(ctx context.Context) ([]model.OpportunityStage, error) {
	overdue, err := s.stages.Overdue(ctx)
	if err != nil {
		return nil, err
	}

	params := s.riskParams(ctx)
	now := time.Now()
	for i := range overdue {
		stage := &overdue[i]
		risk := ComputeRiskLevel(stage.DueDate, now, params)
		priority := ComputePriorityLevel(risk, stage.StageOrder, params)
		if err := s.stages.SetRiskPriority(ctx, stage.ID, risk, priority); err != nil {
			return nil, err
		}
		stage.RiskLevel = risk
		stage.PriorityLevel = priority

		description := fmt.Sprintf("L'etape %q est en retard", stage.StageName)
		if stage.DueDate != nil {
			description = fmt.Sprintf("L'etape %q est en retard depuis le %s",
				stage.StageName, stage.DueDate.Format("02/01/2006"))
		}
		if err := s.appendStageAction(ctx, stage, nil, model.ActionOverdueAlert,
			"Etape en retard", description, nil); err != nil {
			return nil, err
		}
		notify(s.notifier, "stage.overdue", stage)
	}
	return overdue, nil
}

// --- Queries ---

func (s *workflowService) OpportunityStats(ctx context.Context, opportunityID uuid.UUID) (*model.StageStats, error) {
	if _, err := s.opportunities.GetByID(ctx, opportunityID); err != nil {
		return nil, err
	}
	return s.stages.Stats(ctx, opportunityID)
}

func (s *workflowService) CurrentStage(ctx context.Context, opportunityID uuid.UUID) (*model.OpportunityStage, error) {
	return s.stages.FirstByStatus(ctx, opportunityID, model.StageStatusInProgress)
}

func (s *workflowService) OpportunityHistory(ctx context.Context, opportunityID uuid.UUID) (*OpportunityHistory, error) {
	opportunity, err := s.opportunities.GetByID(ctx, opportunityID)
	if err != nil {
		return nil, err
	}
	stages, err := s.stages.ByOpportunity(ctx, opportunityID)
	if err != nil {
		return nil, err
	}
	actions, err := s.ledger.ActionsByOpportunity(ctx, opportunityID)
	if err != nil {
		return nil, err
	}
	documents, err := s.ledger.DocumentsByOpportunity(ctx, opportunityID)
	if err != nil {
		return nil, err
	}

	stageByID := make(map[uuid.UUID]*model.OpportunityStage, len(stages))
	for i := range stages {
		stageByID[stages[i].ID] = &stages[i]
	}

	timeline := make([]TimelineEntry, 0, len(actions)+len(documents)+2*len(stages))
	for _, a := range actions {
		entry := TimelineEntry{
			Type:        "action",
			Date:        a.PerformedAt,
			Title:       a.ActionTitle,
			Description: a.Description,
		}
		if a.StageID != nil {
			if stage, ok := stageByID[*a.StageID]; ok {
				entry.StageName = stage.StageName
				entry.StageOrder = stage.StageOrder
			}
		}
		timeline = append(timeline, entry)
	}
	for _, d := range documents {
		entry := TimelineEntry{
			Type:        "document",
			Date:        d.UploadedAt,
			Title:       fmt.Sprintf("Document %s", d.DocumentType),
			Description: d.FileName,
		}
		if d.StageID != nil {
			if stage, ok := stageByID[*d.StageID]; ok {
				entry.StageName = stage.StageName
				entry.StageOrder = stage.StageOrder
			}
		}
		timeline = append(timeline, entry)
	}
	for _, stage := range stages {
		if stage.StartDate != nil {
			timeline = append(timeline, TimelineEntry{
				Type:        "stage_start",
				Date:        *stage.StartDate,
				StageName:   stage.StageName,
				StageOrder:  stage.StageOrder,
				Title:       fmt.Sprintf("Debut de l'etape: %s", stage.StageName),
				Description: fmt.Sprintf("L'etape %s a commence", stage.StageName),
			})
		}
		if stage.CompletedDate != nil {
			timeline = append(timeline, TimelineEntry{
				Type:        "stage_complete",
				Date:        *stage.CompletedDate,
				StageName:   stage.StageName,
				StageOrder:  stage.StageOrder,
				Title:       fmt.Sprintf("Fin de l'etape: %s", stage.StageName),
				Description: fmt.Sprintf("L'etape %s a ete terminee", stage.StageName),
			})
		}
	}
	sort.Slice(timeline, func(i, j int) bool { return timeline[i].Date.Before(timeline[j].Date) })

	return &OpportunityHistory{
		Opportunity: opportunity,
		Stages:      stages,
		Timeline:    timeline,
	}, nil
}

// --- Abandon / reopen ---

func (s *workflowService) AbandonOpportunity(ctx context.Context, opportunityID uuid.UUID, actorID *uuid.UUID, reason string) error {
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		opportunity, err := s.opportunities.GetByID(txCtx, opportunityID)
		if err != nil {
			return err
		}
		if model.IsClosedOpportunityStatus(opportunity.Statut) {
			return fmt.Errorf("%w: cannot abandon a %s opportunity", ErrOpportunityClosed, opportunity.Statut)
		}

		if err := s.opportunities.SetStatus(txCtx, opportunityID, model.OpportunityStatusAnnulee, true); err != nil {
			return err
		}

		// Freeze the pipeline: the current stage, if any, is blocked so a
		// later reopen resumes where work stopped.
		current, err := s.stages.FirstByStatus(txCtx, opportunityID, model.StageStatusInProgress)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if current != nil {
			if _, err := s.stages.Block(txCtx, current.ID); err != nil && !errors.Is(err, repository.ErrStaleTransition) {
				return err
			}
		}

		var metadata []byte
		if reason != "" {
			metadata, _ = json.Marshal(map[string]string{"reason": reason})
		}
		record := &model.ActionRecord{
			OpportunityID: opportunityID,
			ActionType:    model.ActionOpportunityAbandon,
			ActionTitle:   "Opportunite abandonnee",
			Description:   "L'opportunite a ete abandonnee",
			PerformedBy:   actorID,
			Metadata:      metadata,
		}
		return s.ledger.InsertAction(txCtx, record)
	})
	if err != nil {
		return err
	}

	notify(s.notifier, "opportunity.abandoned", map[string]any{"opportunity_id": opportunityID, "reason": reason})
	return nil
}

func (s *workflowService) ReopenOpportunity(ctx context.Context, opportunityID uuid.UUID, actorID *uuid.UUID) error {
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		opportunity, err := s.opportunities.GetByID(txCtx, opportunityID)
		if err != nil {
			return err
		}
		if opportunity.Statut != model.OpportunityStatusAnnulee {
			return fmt.Errorf("%w: only an abandoned opportunity can be reopened", ErrInvalidTransition)
		}

		if err := s.opportunities.SetStatus(txCtx, opportunityID, model.OpportunityStatusEnCours, false); err != nil {
			return err
		}

		blocked, err := s.stages.FirstByStatus(txCtx, opportunityID, model.StageStatusBlocked)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if blocked != nil {
			if _, err := s.stages.Unblock(txCtx, blocked.ID); err != nil && !errors.Is(err, repository.ErrStaleTransition) {
				return err
			}
		}

		record := &model.ActionRecord{
			OpportunityID: opportunityID,
			ActionType:    model.ActionOpportunityReopen,
			ActionTitle:   "Opportunite reouverte",
			Description:   "L'opportunite a ete reouverte",
			PerformedBy:   actorID,
		}
		return s.ledger.InsertAction(txCtx, record)
	})
	if err != nil {
		return err
	}

	notify(s.notifier, "opportunity.reopened", map[string]any{"opportunity_id": opportunityID})
	return nil
}

// --- Helpers ---

func (s *workflowService) guardOpportunityOpen(ctx context.Context, opportunityID uuid.UUID) error {
	opportunity, err := s.opportunities.GetByID(ctx, opportunityID)
	if err != nil {
		return err
	}
	if model.IsClosedOpportunityStatus(opportunity.Statut) {
		return fmt.Errorf("%w: opportunity is %s", ErrOpportunityClosed, opportunity.Statut)
	}
	return nil
}

func (s *workflowService) closeOpportunity(ctx context.Context, opportunityID uuid.UUID, statut string) error {
	if err := s.opportunities.SetStatus(ctx, opportunityID, statut, true); err != nil {
		return err
	}
	notify(s.notifier, "opportunity.closed", map[string]any{"opportunity_id": opportunityID, "statut": statut})
	return nil
}

func (s *workflowService) appendStageAction(ctx context.Context, stage *model.OpportunityStage, actorID *uuid.UUID, actionType, title, description string, metadata []byte) error {
	stageID := stage.ID
	record := &model.ActionRecord{
		OpportunityID: stage.OpportunityID,
		StageID:       &stageID,
		ActionType:    actionType,
		ActionTitle:   title,
		Description:   description,
		PerformedBy:   actorID,
		Metadata:      metadata,
	}
	if err := s.ledger.InsertAction(ctx, record); err != nil {
		return fmt.Errorf("append %s action: %w", actionType, err)
	}
	return nil
}
