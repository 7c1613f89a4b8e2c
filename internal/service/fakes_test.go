package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"ebvision/internal/model"
	"ebvision/internal/repository"

	"github.com/google/uuid"
)

// memStore is a shared in-memory backing store for the fake repositories.
// Status transitions take the mutex and check the expected status before
// writing, mirroring the compare-and-swap UPDATEs of the real repositories.
type memStore struct {
	mu            sync.Mutex
	opportunities map[uuid.UUID]*model.Opportunity
	stages        map[uuid.UUID]*model.OpportunityStage
	types         map[uuid.UUID]*model.OpportunityType
	templates     map[uuid.UUID]*model.StageTemplate
	reqActions    map[uuid.UUID]*model.RequiredAction
	reqDocs       map[uuid.UUID]*model.RequiredDocument
	actions       []model.ActionRecord
	documents     map[uuid.UUID]*model.DocumentRecord
	params        model.RiskParams
}

func newMemStore() *memStore {
	return &memStore{
		opportunities: map[uuid.UUID]*model.Opportunity{},
		stages:        map[uuid.UUID]*model.OpportunityStage{},
		types:         map[uuid.UUID]*model.OpportunityType{},
		templates:     map[uuid.UUID]*model.StageTemplate{},
		reqActions:    map[uuid.UUID]*model.RequiredAction{},
		reqDocs:       map[uuid.UUID]*model.RequiredDocument{},
		documents:     map[uuid.UUID]*model.DocumentRecord{},
		params:        model.DefaultRiskParams,
	}
}

// --- OpportunityRepository ---

type memOpportunityRepo struct{ s *memStore }

func (r *memOpportunityRepo) Create(_ context.Context, o *model.Opportunity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o.ID = uuid.New()
	if o.Statut == "" {
		o.Statut = model.OpportunityStatusNouvelle
	}
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	clone := *o
	r.s.opportunities[o.ID] = &clone
	return nil
}

func (r *memOpportunityRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Opportunity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.opportunities[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *o
	return &clone, nil
}

func (r *memOpportunityRepo) SetStatus(_ context.Context, id uuid.UUID, statut string, closed bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.opportunities[id]
	if !ok {
		return repository.ErrNotFound
	}
	o.Statut = statut
	if closed {
		now := time.Now()
		o.DateFermetureReelle = &now
	} else {
		o.DateFermetureReelle = nil
	}
	return nil
}

func (r *memOpportunityRepo) MarkEnCours(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if o, ok := r.s.opportunities[id]; ok && o.Statut == model.OpportunityStatusNouvelle {
		o.Statut = model.OpportunityStatusEnCours
	}
	return nil
}

func (r *memOpportunityRepo) TouchActivity(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if o, ok := r.s.opportunities[id]; ok {
		now := time.Now()
		o.LastActivityAt = &now
	}
	return nil
}

// --- StageRepository ---

type memStageRepo struct{ s *memStore }

func (r *memStageRepo) GetByID(_ context.Context, id uuid.UUID) (*model.OpportunityStage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.stages[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *st
	return &clone, nil
}

func (r *memStageRepo) ByOpportunity(_ context.Context, opportunityID uuid.UUID) ([]model.OpportunityStage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.OpportunityStage
	for _, st := range r.s.stages {
		if st.OpportunityID == opportunityID {
			out = append(out, *st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StageOrder < out[j].StageOrder })
	return out, nil
}

func (r *memStageRepo) ByOrder(_ context.Context, opportunityID uuid.UUID, order int) (*model.OpportunityStage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, st := range r.s.stages {
		if st.OpportunityID == opportunityID && st.StageOrder == order {
			clone := *st
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memStageRepo) FirstByStatus(_ context.Context, opportunityID uuid.UUID, status string) (*model.OpportunityStage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var found *model.OpportunityStage
	for _, st := range r.s.stages {
		if st.OpportunityID == opportunityID && st.Status == status {
			if found == nil || st.StageOrder < found.StageOrder {
				found = st
			}
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	clone := *found
	return &clone, nil
}

func (r *memStageRepo) ExistsForOpportunity(_ context.Context, opportunityID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, st := range r.s.stages {
		if st.OpportunityID == opportunityID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memStageRepo) ExistsForTemplate(_ context.Context, templateID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, st := range r.s.stages {
		if st.StageTemplateID == templateID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memStageRepo) CreateInstance(_ context.Context, stage *model.OpportunityStage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stage.ID = uuid.New()
	if stage.RiskLevel == "" {
		stage.RiskLevel = model.RiskMedium
	}
	if stage.PriorityLevel == "" {
		stage.PriorityLevel = model.PriorityNormal
	}
	stage.CreatedAt = time.Now()
	stage.UpdatedAt = stage.CreatedAt
	clone := *stage
	r.s.stages[stage.ID] = &clone
	return nil
}

func (r *memStageRepo) transition(id uuid.UUID, expected string, apply func(*model.OpportunityStage)) (*model.OpportunityStage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.stages[id]
	if !ok || st.Status != expected {
		return nil, repository.ErrStaleTransition
	}
	apply(st)
	clone := *st
	return &clone, nil
}

func (r *memStageRepo) Start(_ context.Context, id uuid.UUID) (*model.OpportunityStage, error) {
	return r.transition(id, model.StageStatusPending, func(st *model.OpportunityStage) {
		now := time.Now()
		st.Status = model.StageStatusInProgress
		st.StartDate = &now
	})
}

func (r *memStageRepo) Complete(_ context.Context, id uuid.UUID, outcome *string, validatedBy *uuid.UUID) (*model.OpportunityStage, error) {
	return r.transition(id, model.StageStatusInProgress, func(st *model.OpportunityStage) {
		now := time.Now()
		st.Status = model.StageStatusCompleted
		st.CompletedDate = &now
		if outcome != nil {
			st.Outcome = outcome
		}
		if validatedBy != nil {
			st.ValidatedBy = validatedBy
			st.ValidatedAt = &now
		}
	})
}

func (r *memStageRepo) Block(_ context.Context, id uuid.UUID) (*model.OpportunityStage, error) {
	return r.transition(id, model.StageStatusInProgress, func(st *model.OpportunityStage) {
		st.Status = model.StageStatusBlocked
	})
}

func (r *memStageRepo) Unblock(_ context.Context, id uuid.UUID) (*model.OpportunityStage, error) {
	return r.transition(id, model.StageStatusBlocked, func(st *model.OpportunityStage) {
		st.Status = model.StageStatusInProgress
	})
}

func (r *memStageRepo) CompleteRemaining(_ context.Context, opportunityID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	for _, st := range r.s.stages {
		if st.OpportunityID == opportunityID && st.Status != model.StageStatusCompleted {
			st.Status = model.StageStatusCompleted
			st.CompletedDate = &now
		}
	}
	return nil
}

func (r *memStageRepo) SetRiskPriority(_ context.Context, id uuid.UUID, risk, priority string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.stages[id]
	if !ok {
		return repository.ErrNotFound
	}
	st.RiskLevel = risk
	st.PriorityLevel = priority
	return nil
}

func (r *memStageRepo) SetDueDate(_ context.Context, id uuid.UUID, due time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.stages[id]
	if !ok {
		return repository.ErrNotFound
	}
	st.DueDate = &due
	return nil
}

func (r *memStageRepo) Overdue(_ context.Context) ([]model.OpportunityStage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	var out []model.OpportunityStage
	for _, st := range r.s.stages {
		active := st.Status == model.StageStatusPending || st.Status == model.StageStatusInProgress
		if active && st.DueDate != nil && st.DueDate.Before(now) && st.RiskLevel != model.RiskCritical {
			out = append(out, *st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(*out[j].DueDate) })
	return out, nil
}

func (r *memStageRepo) Stats(_ context.Context, opportunityID uuid.UUID) (*model.StageStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var st model.StageStats
	for _, s := range r.s.stages {
		if s.OpportunityID != opportunityID {
			continue
		}
		st.TotalStages++
		switch s.Status {
		case model.StageStatusCompleted:
			st.CompletedStages++
		case model.StageStatusInProgress:
			st.InProgressStages++
		case model.StageStatusPending:
			st.PendingStages++
		case model.StageStatusBlocked:
			st.BlockedStages++
		}
		switch s.RiskLevel {
		case model.RiskCritical:
			st.CriticalRisks++
		case model.RiskHigh:
			st.HighRisks++
		}
		if s.PriorityLevel == model.PriorityUrgent {
			st.UrgentPriorities++
		}
	}
	return &st, nil
}

// --- CatalogRepository ---

type memCatalogRepo struct{ s *memStore }

func (r *memCatalogRepo) ListTypes(_ context.Context) ([]model.OpportunityType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.OpportunityType
	for _, t := range r.s.types {
		if t.IsActive {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memCatalogRepo) GetType(_ context.Context, id uuid.UUID) (*model.OpportunityType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.types[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *t
	return &clone, nil
}

func (r *memCatalogRepo) CreateType(_ context.Context, t *model.OpportunityType) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = uuid.New()
	t.IsActive = true
	t.CreatedAt = time.Now()
	clone := *t
	r.s.types[t.ID] = &clone
	return nil
}

func (r *memCatalogRepo) UpdateType(_ context.Context, t *model.OpportunityType) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.types[t.ID]; !ok {
		return repository.ErrNotFound
	}
	clone := *t
	r.s.types[t.ID] = &clone
	return nil
}

func (r *memCatalogRepo) DeactivateType(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.types[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.IsActive = false
	return nil
}

func (r *memCatalogRepo) TemplatesByType(_ context.Context, typeID uuid.UUID) ([]model.StageTemplate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.StageTemplate
	for _, t := range r.s.templates {
		if t.OpportunityTypeID == typeID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StageOrder < out[j].StageOrder })
	return out, nil
}

func (r *memCatalogRepo) GetTemplate(_ context.Context, id uuid.UUID) (*model.StageTemplate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.templates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *t
	return &clone, nil
}

func (r *memCatalogRepo) CreateTemplate(_ context.Context, t *model.StageTemplate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = uuid.New()
	t.CreatedAt = time.Now()
	clone := *t
	r.s.templates[t.ID] = &clone
	return nil
}

func (r *memCatalogRepo) UpdateTemplate(_ context.Context, t *model.StageTemplate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.templates[t.ID]; !ok {
		return repository.ErrNotFound
	}
	clone := *t
	r.s.templates[t.ID] = &clone
	return nil
}

func (r *memCatalogRepo) DeleteTemplate(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.templates[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.templates, id)
	return nil
}

func (r *memCatalogRepo) SetTemplateOrder(_ context.Context, id uuid.UUID, order int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.templates[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.StageOrder = order
	return nil
}

func (r *memCatalogRepo) AddRequiredAction(_ context.Context, a *model.RequiredAction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	clone := *a
	r.s.reqActions[a.ID] = &clone
	return nil
}

func (r *memCatalogRepo) DeleteRequiredAction(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reqActions[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.reqActions, id)
	return nil
}

func (r *memCatalogRepo) AddRequiredDocument(_ context.Context, d *model.RequiredDocument) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	clone := *d
	r.s.reqDocs[d.ID] = &clone
	return nil
}

func (r *memCatalogRepo) DeleteRequiredDocument(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reqDocs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.reqDocs, id)
	return nil
}

func (r *memCatalogRepo) RequiredActionsByTemplate(_ context.Context, templateID uuid.UUID) ([]model.RequiredAction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.RequiredAction
	for _, a := range r.s.reqActions {
		if a.StageTemplateID == templateID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *memCatalogRepo) RequiredDocumentsByTemplate(_ context.Context, templateID uuid.UUID) ([]model.RequiredDocument, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.RequiredDocument
	for _, d := range r.s.reqDocs {
		if d.StageTemplateID == templateID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *memCatalogRepo) RequiredActionsByType(_ context.Context, typeID uuid.UUID) ([]repository.RequiredActionWithStage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []repository.RequiredActionWithStage
	for _, a := range r.s.reqActions {
		tpl, ok := r.s.templates[a.StageTemplateID]
		if !ok || tpl.OpportunityTypeID != typeID {
			continue
		}
		out = append(out, repository.RequiredActionWithStage{
			RequiredAction: *a,
			StageName:      tpl.StageName,
			StageOrder:     tpl.StageOrder,
		})
	}
	return out, nil
}

func (r *memCatalogRepo) RequiredDocumentsByType(_ context.Context, typeID uuid.UUID) ([]repository.RequiredDocumentWithStage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []repository.RequiredDocumentWithStage
	for _, d := range r.s.reqDocs {
		tpl, ok := r.s.templates[d.StageTemplateID]
		if !ok || tpl.OpportunityTypeID != typeID {
			continue
		}
		out = append(out, repository.RequiredDocumentWithStage{
			RequiredDocument: *d,
			StageName:        tpl.StageName,
			StageOrder:       tpl.StageOrder,
		})
	}
	return out, nil
}

// --- LedgerRepository ---

type memLedgerRepo struct{ s *memStore }

func (r *memLedgerRepo) InsertAction(_ context.Context, a *model.ActionRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a.ID = uuid.New()
	a.PerformedAt = time.Now()
	r.s.actions = append(r.s.actions, *a)
	return nil
}

func (r *memLedgerRepo) InsertDocument(_ context.Context, d *model.DocumentRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d.ID = uuid.New()
	d.ValidationStatus = model.DocValidationPending
	d.UploadedAt = time.Now()
	clone := *d
	r.s.documents[d.ID] = &clone
	return nil
}

func (r *memLedgerRepo) GetDocument(_ context.Context, id uuid.UUID) (*model.DocumentRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.documents[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *d
	return &clone, nil
}

func (r *memLedgerRepo) SetDocumentValidation(_ context.Context, id, opportunityID uuid.UUID, status string, validatorID uuid.UUID) (*model.DocumentRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.documents[id]
	if !ok || d.OpportunityID != opportunityID {
		return nil, repository.ErrNotFound
	}
	d.ValidationStatus = status
	d.ValidatedBy = &validatorID
	if status == model.DocValidationValidated {
		now := time.Now()
		d.ValidatedAt = &now
	} else {
		d.ValidatedAt = nil
	}
	clone := *d
	return &clone, nil
}

func (r *memLedgerRepo) ActionsByOpportunity(_ context.Context, opportunityID uuid.UUID) ([]model.ActionRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.ActionRecord
	for _, a := range r.s.actions {
		if a.OpportunityID == opportunityID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memLedgerRepo) DocumentsByOpportunity(_ context.Context, opportunityID uuid.UUID) ([]model.DocumentRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.DocumentRecord
	for _, d := range r.s.documents {
		if d.OpportunityID == opportunityID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.Before(out[j].UploadedAt) })
	return out, nil
}

func (r *memLedgerRepo) ActionsPage(ctx context.Context, opportunityID uuid.UUID, limit, offset int) ([]model.ActionRecord, error) {
	all, err := r.ActionsByOpportunity(ctx, opportunityID)
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].PerformedAt.After(all[j].PerformedAt) })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *memLedgerRepo) DocumentsPage(ctx context.Context, opportunityID uuid.UUID, limit, offset int) ([]model.DocumentRecord, error) {
	all, err := r.DocumentsByOpportunity(ctx, opportunityID)
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UploadedAt.After(all[j].UploadedAt) })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *memLedgerRepo) ValidatingActionCounts(_ context.Context, opportunityID, stageID uuid.UUID) (map[string]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := make(map[string]int)
	for _, a := range r.s.actions {
		if a.OpportunityID != opportunityID || !a.IsValidating {
			continue
		}
		if a.StageID != nil && *a.StageID != stageID {
			continue
		}
		counts[a.ActionType]++
	}
	return counts, nil
}

func (r *memLedgerRepo) DocumentCounts(_ context.Context, opportunityID, stageID uuid.UUID) (map[string]repository.DocTypeCount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := make(map[string]repository.DocTypeCount)
	for _, d := range r.s.documents {
		if d.OpportunityID != opportunityID {
			continue
		}
		if d.StageID != nil && *d.StageID != stageID {
			continue
		}
		c := counts[d.DocumentType]
		c.Total++
		if d.ValidationStatus == model.DocValidationValidated {
			c.Validated++
		}
		counts[d.DocumentType] = c
	}
	return counts, nil
}

// --- ParamsRepository / TransactionManager / Notifier ---

type memParamsRepo struct {
	s   *memStore
	err error
}

func (r *memParamsRepo) RiskParams(_ context.Context) (model.RiskParams, error) {
	if r.err != nil {
		return model.RiskParams{}, r.err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.params, nil
}

// memTxManager runs the function directly; the fake store is not
// transactional.
type memTxManager struct{}

func (memTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type captureNotifier struct {
	mu       sync.Mutex
	messages [][]byte
}

func (n *captureNotifier) Publish(message []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

// --- Wiring ---

type testEnv struct {
	store         *memStore
	opportunities repository.OpportunityRepository
	stages        repository.StageRepository
	catalogRepo   repository.CatalogRepository
	ledgerRepo    repository.LedgerRepository
	paramsRepo    *memParamsRepo
	notifier      *captureNotifier

	requirements RequirementService
	catalog      CatalogService
	opportunity  OpportunityService
	workflow     WorkflowService
	ledger       LedgerService
}

func newTestEnv() *testEnv {
	store := newMemStore()
	env := &testEnv{
		store:         store,
		opportunities: &memOpportunityRepo{s: store},
		stages:        &memStageRepo{s: store},
		catalogRepo:   &memCatalogRepo{s: store},
		ledgerRepo:    &memLedgerRepo{s: store},
		notifier:      &captureNotifier{},
	}
	txm := memTxManager{}
	env.paramsRepo = &memParamsRepo{s: store}
	paramsRepo := env.paramsRepo

	env.requirements = NewRequirementService(env.catalogRepo, env.ledgerRepo)
	env.catalog = NewCatalogService(env.catalogRepo, env.stages, txm)
	env.opportunity = NewOpportunityService(env.opportunities, env.stages, env.catalogRepo, env.ledgerRepo, env.catalog, txm)
	env.workflow = NewWorkflowService(env.stages, env.opportunities, env.catalogRepo, env.ledgerRepo, paramsRepo, env.requirements, txm, env.notifier)
	env.ledger = NewLedgerService(env.ledgerRepo, env.opportunities, env.stages, env.requirements, env.notifier)
	return env
}

// seedType creates an opportunity type with n ordered templates, each with a
// 10 day max duration.
func (env *testEnv) seedType(n int) *model.OpportunityType {
	ctx := context.Background()
	t, err := env.catalog.CreateType(ctx, CreateOpportunityTypeInput{
		Name:                "Audit contractuel",
		DefaultProbability:  50,
		DefaultDurationDays: 60,
	})
	if err != nil {
		panic(err)
	}
	names := []string{"Prospection", "Qualification", "Proposition", "Negociation", "Decision"}
	for i := 1; i <= n; i++ {
		name := names[(i-1)%len(names)]
		_, err := env.catalog.CreateTemplate(ctx, t.ID, CreateStageTemplateInput{
			StageName:       name,
			StageOrder:      i,
			MaxDurationDays: 10,
		})
		if err != nil {
			panic(err)
		}
	}
	return t
}

// seedOpportunity creates a typed opportunity with instantiated stages and
// returns it with its stages in order.
func (env *testEnv) seedOpportunity(n int) (*model.Opportunity, []model.OpportunityStage) {
	ctx := context.Background()
	t := env.seedType(n)
	opp, err := env.opportunity.Create(ctx, CreateOpportunityInput{
		Nom:               "Refonte SI client",
		OpportunityTypeID: &t.ID,
		MontantEstime:     "120000.50",
	})
	if err != nil {
		panic(err)
	}
	stages, err := env.opportunity.Stages(ctx, opp.ID)
	if err != nil {
		panic(err)
	}
	return opp, stages
}
