package service

import (
	"context"
	"testing"

	"alcyxob/nutrition-app/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func applierFixture(t *testing.T) (*fakeTargetRepo, *domain.AutoAdjustRule, primitive.ObjectID) {
	t.Helper()
	targetRepo := newFakeTargetRepo()
	clientID := primitive.NewObjectID()
	trainerID := primitive.NewObjectID()

	target := &domain.NutritionTarget{
		ClientID:  clientID,
		CreatedBy: trainerID,
		BMR:       domain.BMRResult{Value: 1780, Inputs: map[string]float64{"weightKg": 80}},
		TDEE:      domain.TDEEResult{Value: 2759},
		Calories:  domain.CalorieTarget{Value: 2200, Goal: domain.GoalWeightLoss},
		Macros: domain.MacroTargets{
			Protein: domain.MacroTarget{Grams: 176},
			Carbs:   domain.MacroTarget{Grams: 240},
			Fats:    domain.MacroTarget{Grams: 61},
		},
	}
	targetID, err := targetRepo.CreateActive(context.Background(), target)
	require.NoError(t, err)

	rule := &domain.AutoAdjustRule{
		ID:        primitive.NewObjectID(),
		ClientID:  clientID,
		CreatedBy: trainerID,
		Name:      "plateau response",
	}
	return targetRepo, rule, targetID
}

func TestApply_PercentageDeltaUsesCurrentCalories(t *testing.T) {
	targetRepo, rule, targetID := applierFixture(t)
	rule.Actions = domain.RuleActions{CaloriePctDelta: -10}

	outcome, err := NewAdjustmentApplier(targetRepo).Apply(context.Background(), rule, rule.CreatedBy)
	require.NoError(t, err)

	// -10% of the target's 2200 kcal, not of the 2759 TDEE.
	require.Len(t, outcome.Applied, 1)
	assert.Equal(t, 1980.0, outcome.Applied[0].NewValue)

	target, err := targetRepo.GetByID(context.Background(), targetID)
	require.NoError(t, err)
	assert.Equal(t, 1980.0, target.Calories.Value)
}

func TestApply_CombinedDeltas(t *testing.T) {
	targetRepo, rule, targetID := applierFixture(t)
	rule.Actions = domain.RuleActions{
		CalorieDelta:    -100,
		CaloriePctDelta: -10, // -220 on 2200
		ProteinDeltaG:   10,
		CarbDeltaG:      -30,
	}

	outcome, err := NewAdjustmentApplier(targetRepo).Apply(context.Background(), rule, rule.CreatedBy)
	require.NoError(t, err)
	require.Len(t, outcome.Applied, 3)

	target, err := targetRepo.GetByID(context.Background(), targetID)
	require.NoError(t, err)
	assert.Equal(t, 1880.0, target.Calories.Value)
	assert.Equal(t, 186.0, target.Macros.Protein.Grams)
	assert.Equal(t, 210.0, target.Macros.Carbs.Grams)

	// Every change carries a ledger entry naming the rule, all committed
	// in one write.
	require.Len(t, target.AdjustmentLog, 3)
	for _, entry := range target.AdjustmentLog {
		assert.Contains(t, entry.Reason, "plateau response")
		assert.Equal(t, rule.CreatedBy.Hex(), entry.ActorID)
	}
	assert.Equal(t, int64(2), target.Version)
}

func TestApply_NoActiveTarget(t *testing.T) {
	targetRepo, rule, targetID := applierFixture(t)
	rule.Actions = domain.RuleActions{CalorieDelta: -100}
	targetRepo.targets[targetID].IsActive = false

	_, err := NewAdjustmentApplier(targetRepo).Apply(context.Background(), rule, rule.CreatedBy)
	assert.ErrorIs(t, err, ErrNoActiveTarget)
}

func TestApply_NotifyOnlyActionsHaveNothingToApply(t *testing.T) {
	targetRepo, rule, _ := applierFixture(t)
	rule.Actions = domain.RuleActions{NotifyClient: true, NotifyTrainer: true}

	_, err := NewAdjustmentApplier(targetRepo).Apply(context.Background(), rule, rule.CreatedBy)
	assert.ErrorIs(t, err, ErrNoAdjustments)
}
