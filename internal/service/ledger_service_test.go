package service

import (
	"context"
	"testing"

	"ebvision/internal/model"
	"ebvision/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordActionTouchesActivity(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	opp, stages := env.seedOpportunity(2)

	stageID := stages[0].ID
	record, err := env.ledger.RecordAction(ctx, opp.ID, nil, RecordActionInput{
		StageID:     &stageID,
		ActionType:  "appel_telephonique",
		ActionTitle: "Premier contact",
		Description: "Appel de qualification avec le sponsor",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, record.ID)
	assert.False(t, record.PerformedAt.IsZero())

	updated, err := env.opportunity.Get(ctx, opp.ID)
	require.NoError(t, err)
	assert.NotNil(t, updated.LastActivityAt)
}

func TestRecordActionRejectsForeignStage(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	opp, _ := env.seedOpportunity(2)
	_, otherStages := env.seedOpportunity(2)

	foreign := otherStages[0].ID
	_, err := env.ledger.RecordAction(ctx, opp.ID, nil, RecordActionInput{
		StageID:     &foreign,
		ActionType:  "appel_telephonique",
		ActionTitle: "Mauvaise cible",
	})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDocumentValidationLifecycle(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	opp, stages := env.seedOpportunity(2)

	stageID := stages[0].ID
	doc, err := env.ledger.RecordDocument(ctx, opp.ID, nil, RecordDocumentInput{
		StageID:      &stageID,
		DocumentType: "proposition_commerciale",
		FileName:     "proposition_v1.pdf",
		FilePath:     "/uploads/proposition_v1.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, model.DocValidationPending, doc.ValidationStatus)
	assert.Nil(t, doc.ValidatedAt)

	validator := uuid.New()
	rejected, err := env.ledger.ValidateDocument(ctx, opp.ID, doc.ID, validator, ValidateDocumentInput{Status: "rejected"})
	require.NoError(t, err)
	assert.Equal(t, model.DocValidationRejected, rejected.ValidationStatus)
	assert.Nil(t, rejected.ValidatedAt)

	// A rejected document can be re-reviewed.
	validated, err := env.ledger.ValidateDocument(ctx, opp.ID, doc.ID, validator, ValidateDocumentInput{Status: "validated"})
	require.NoError(t, err)
	assert.Equal(t, model.DocValidationValidated, validated.ValidationStatus)
	require.NotNil(t, validated.ValidatedAt)
	assert.Equal(t, &validator, validated.ValidatedBy)
}

func TestStageRequirementsSummary(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	opp, stages := env.seedOpportunity(2)

	_, err := env.catalog.AddRequiredAction(ctx, stages[0].StageTemplateID, AddRequiredActionInput{
		ActionType: "reunion_cadrage",
	})
	require.NoError(t, err)
	_, err = env.catalog.AddRequiredDocument(ctx, stages[0].StageTemplateID, AddRequiredDocumentInput{
		DocumentType: "compte_rendu",
	})
	require.NoError(t, err)

	summary, err := env.ledger.StageRequirements(ctx, stages[0].ID)
	require.NoError(t, err)
	assert.False(t, summary.MandatorySatisfied)
	require.Len(t, summary.Actions, 1)
	require.Len(t, summary.Documents, 1)
	assert.False(t, summary.Actions[0].Satisfied)
	assert.False(t, summary.Documents[0].Satisfied)

	// Log the action, upload and validate the document.
	stageID := stages[0].ID
	_, err = env.ledger.RecordAction(ctx, opp.ID, nil, RecordActionInput{
		StageID:      &stageID,
		ActionType:   "reunion_cadrage",
		ActionTitle:  "Reunion de cadrage",
		IsValidating: true,
	})
	require.NoError(t, err)

	doc, err := env.ledger.RecordDocument(ctx, opp.ID, nil, RecordDocumentInput{
		StageID:      &stageID,
		DocumentType: "compte_rendu",
		FileName:     "cr.pdf",
		FilePath:     "/uploads/cr.pdf",
	})
	require.NoError(t, err)

	// A pending upload does not satisfy the document requirement yet.
	summary, err = env.ledger.StageRequirements(ctx, stages[0].ID)
	require.NoError(t, err)
	assert.True(t, summary.Actions[0].Satisfied)
	assert.False(t, summary.Documents[0].Satisfied)
	assert.Equal(t, 1, summary.Documents[0].Count)
	assert.False(t, summary.MandatorySatisfied)

	_, err = env.ledger.ValidateDocument(ctx, opp.ID, doc.ID, uuid.New(), ValidateDocumentInput{Status: "validated"})
	require.NoError(t, err)

	summary, err = env.ledger.StageRequirements(ctx, stages[0].ID)
	require.NoError(t, err)
	assert.True(t, summary.Documents[0].Satisfied)
	assert.True(t, summary.MandatorySatisfied)
}

func TestNonValidatingActionDoesNotSatisfyRequirement(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	opp, stages := env.seedOpportunity(2)

	_, err := env.catalog.AddRequiredAction(ctx, stages[0].StageTemplateID, AddRequiredActionInput{
		ActionType: "reunion_cadrage",
	})
	require.NoError(t, err)

	stageID := stages[0].ID
	_, err = env.ledger.RecordAction(ctx, opp.ID, nil, RecordActionInput{
		StageID:     &stageID,
		ActionType:  "reunion_cadrage",
		ActionTitle: "Note informelle",
	})
	require.NoError(t, err)

	summary, err := env.ledger.StageRequirements(ctx, stages[0].ID)
	require.NoError(t, err)
	assert.False(t, summary.Actions[0].Satisfied)
}

func TestOptionalRequirementDoesNotBlock(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	_, stages := env.seedOpportunity(2)

	optional := false
	_, err := env.catalog.AddRequiredAction(ctx, stages[0].StageTemplateID, AddRequiredActionInput{
		ActionType:  "visite_site",
		IsMandatory: &optional,
	})
	require.NoError(t, err)

	summary, err := env.ledger.StageRequirements(ctx, stages[0].ID)
	require.NoError(t, err)
	assert.False(t, summary.Actions[0].Satisfied)
	assert.True(t, summary.MandatorySatisfied)

	_, err = env.workflow.CompleteStage(ctx, stages[0].ID, nil, CompleteStageInput{})
	require.NoError(t, err)
}

func TestActionsPagination(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	opp, _ := env.seedOpportunity(1)

	for i := 0; i < 5; i++ {
		_, err := env.ledger.RecordAction(ctx, opp.ID, nil, RecordActionInput{
			ActionType:  "note",
			ActionTitle: "Note de suivi",
		})
		require.NoError(t, err)
	}

	page, err := env.ledger.Actions(ctx, opp.ID, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := env.ledger.Actions(ctx, opp.ID, 10, 4)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}
