package service

import (
	"context"
	"testing"

	"ebvision/internal/model"
	"ebvision/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTypeDefaults(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.catalog.CreateType(ctx, CreateOpportunityTypeInput{
		Name:                "Conseil strategique",
		DefaultProbability:  40,
		DefaultDurationDays: 90,
	})
	require.NoError(t, err)
	assert.True(t, created.IsActive)

	listed, err := env.catalog.ListTypes(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)
}

func TestDeactivateTypeHidesFromList(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	created := env.seedType(2)

	require.NoError(t, env.catalog.DeactivateType(ctx, created.ID))

	listed, err := env.catalog.ListTypes(ctx)
	require.NoError(t, err)
	assert.Empty(t, listed)

	// Direct lookup still works for existing references.
	got, err := env.catalog.GetType(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestDeleteTemplateRefusedWhenInstantiated(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	_, stages := env.seedOpportunity(2)

	err := env.catalog.DeleteTemplate(ctx, stages[0].StageTemplateID)
	require.ErrorIs(t, err, ErrTemplateInUse)
}

func TestDeleteUnusedTemplate(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	created := env.seedType(2)

	templates, err := env.catalog.ListTemplates(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, templates, 2)

	require.NoError(t, env.catalog.DeleteTemplate(ctx, templates[1].ID))

	remaining, err := env.catalog.ListTemplates(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestReorderTemplates(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	created := env.seedType(2)

	templates, err := env.catalog.ListTemplates(ctx, created.ID)
	require.NoError(t, err)

	reordered, err := env.catalog.ReorderTemplates(ctx, created.ID, []repository.TemplateOrder{
		{ID: templates[0].ID, Order: 2},
		{ID: templates[1].ID, Order: 1},
	})
	require.NoError(t, err)
	require.Len(t, reordered, 2)
	assert.Equal(t, templates[1].ID, reordered[0].ID)
	assert.Equal(t, templates[0].ID, reordered[1].ID)
}

func TestCreateOpportunityAppliesTypeDefaults(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	created := env.seedType(2)

	opp, err := env.opportunity.Create(ctx, CreateOpportunityInput{
		Nom:               "Mission audit",
		OpportunityTypeID: &created.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 50, opp.Probabilite)
	assert.Equal(t, "EUR", opp.Devise)
	require.NotNil(t, opp.DateFermeturePrevue)

	stages, err := env.opportunity.Stages(ctx, opp.ID)
	require.NoError(t, err)
	assert.Len(t, stages, 2)
}

func TestCreateOpportunityWithoutTypeHasNoStages(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	opp, err := env.opportunity.Create(ctx, CreateOpportunityInput{
		Nom:           "Piste entrante",
		MontantEstime: "5000",
		Probabilite:   intPtr(10),
	})
	require.NoError(t, err)
	assert.Equal(t, model.OpportunityStatusNouvelle, opp.Statut)
	assert.Equal(t, 10, opp.Probabilite)

	stages, err := env.opportunity.Stages(ctx, opp.ID)
	require.NoError(t, err)
	assert.Empty(t, stages)
}

func TestCreateOpportunityRejectsBadAmount(t *testing.T) {
	env := newTestEnv()

	_, err := env.opportunity.Create(context.Background(), CreateOpportunityInput{
		Nom:           "Montant casse",
		MontantEstime: "not-a-number",
	})
	require.Error(t, err)
}

func intPtr(v int) *int { return &v }
