package service

import (
	"context"
	"testing"
	"time"

	"alcyxob/nutrition-app/internal/domain"
	"alcyxob/nutrition-app/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type targetTestEnv struct {
	svc        TargetService
	userRepo   *fakeUserRepo
	targetRepo *fakeTargetRepo
	logRepo    *fakeLogRepo
	trainerID  primitive.ObjectID
	clientID   primitive.ObjectID
}

func newTargetTestEnv(t *testing.T) *targetTestEnv {
	t.Helper()
	userRepo := newFakeUserRepo()
	targetRepo := newFakeTargetRepo()
	logRepo := newFakeLogRepo()

	trainer := userRepo.add(&domain.User{Name: "Coach", Email: "coach@example.com", Role: domain.RoleTrainer})
	client := userRepo.add(&domain.User{
		Name: "Client", Email: "client@example.com", Role: domain.RoleClient,
		TrainerID: &trainer.ID,
		Biometrics: &domain.Biometrics{
			WeightKG: 80, HeightCM: 180, Age: 30,
			Gender: domain.GenderMale, ActivityLevel: domain.ActivityModeratelyActive,
		},
	})

	return &targetTestEnv{
		svc:        NewTargetService(targetRepo, logRepo, userRepo, NewBiometricProvider(userRepo), 0),
		userRepo:   userRepo,
		targetRepo: targetRepo,
		logRepo:    logRepo,
		trainerID:  trainer.ID,
		clientID:   client.ID,
	}
}

func TestCreateTarget_WorkedExample(t *testing.T) {
	env := newTargetTestEnv(t)

	target, err := env.svc.CreateTarget(context.Background(), env.trainerID, env.clientID, TargetParams{
		Goal:               domain.GoalWeightLoss,
		TargetWeeklyRateKG: 0.5,
	})
	require.NoError(t, err)

	assert.Equal(t, 1780.0, target.BMR.Value)
	assert.Equal(t, 2759.0, target.TDEE.Value)
	assert.Equal(t, 2209.0, target.Calories.Value)
	assert.Equal(t, 176.0, target.Macros.Protein.Grams)
	assert.True(t, target.IsActive)
	assert.Equal(t, int64(1), target.Version)
	assert.Empty(t, target.AdjustmentLog)
	// Default review interval is 28 days.
	assert.WithinDuration(t, target.EffectiveDate.AddDate(0, 0, 28), target.NextReviewDate, time.Second)
}

func TestCreateTarget_DeactivatesPriorActive(t *testing.T) {
	env := newTargetTestEnv(t)
	ctx := context.Background()
	params := TargetParams{Goal: domain.GoalWeightLoss}

	first, err := env.svc.CreateTarget(ctx, env.trainerID, env.clientID, params)
	require.NoError(t, err)
	second, err := env.svc.CreateTarget(ctx, env.trainerID, env.clientID, params)
	require.NoError(t, err)

	active, err := env.targetRepo.GetActiveByClient(ctx, env.clientID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)

	stored, err := env.targetRepo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
}

func TestCreateTarget_Authorization(t *testing.T) {
	env := newTargetTestEnv(t)
	ctx := context.Background()
	params := TargetParams{Goal: domain.GoalWeightLoss}

	t.Run("unknown client", func(t *testing.T) {
		_, err := env.svc.CreateTarget(ctx, env.trainerID, primitive.NewObjectID(), params)
		assert.ErrorIs(t, err, ErrClientNotFound)
	})

	t.Run("unmanaged client", func(t *testing.T) {
		other := env.userRepo.add(&domain.User{Name: "Other", Email: "o@example.com", Role: domain.RoleClient})
		_, err := env.svc.CreateTarget(ctx, env.trainerID, other.ID, params)
		assert.ErrorIs(t, err, ErrClientNotManaged)
	})

	t.Run("target for a trainer account", func(t *testing.T) {
		_, err := env.svc.CreateTarget(ctx, env.trainerID, env.trainerID, params)
		assert.ErrorIs(t, err, ErrClientNotRole)
	})
}

func TestCreateTarget_IncompleteProfile(t *testing.T) {
	env := newTargetTestEnv(t)
	env.userRepo.users[env.clientID].Biometrics = nil

	_, err := env.svc.CreateTarget(context.Background(), env.trainerID, env.clientID, TargetParams{Goal: domain.GoalWeightLoss})
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestPreviewCalculation_MatchesCreate(t *testing.T) {
	env := newTargetTestEnv(t)
	ctx := context.Background()
	params := TargetParams{Goal: domain.GoalWeightLoss, TargetWeeklyRateKG: 0.5, PlannedDietWeeks: 12}

	figures, err := env.svc.PreviewCalculation(ctx, env.trainerID, env.clientID, params)
	require.NoError(t, err)

	target, err := env.svc.CreateTarget(ctx, env.trainerID, env.clientID, params)
	require.NoError(t, err)

	// Preview and create share one calculation path; the figures must be
	// identical, not merely close.
	assert.Equal(t, figures.BMR, target.BMR)
	assert.Equal(t, figures.TDEE, target.TDEE)
	assert.Equal(t, figures.Calories, target.Calories)
	assert.Equal(t, figures.Macros, target.Macros)
	assert.Equal(t, figures.Refeed, target.Refeed)
	assert.Equal(t, figures.DietBreak, target.DietBreak)
}

func TestUpdateTarget_LedgersEveryChangedField(t *testing.T) {
	env := newTargetTestEnv(t)
	ctx := context.Background()

	target, err := env.svc.CreateTarget(ctx, env.trainerID, env.clientID, TargetParams{Goal: domain.GoalWeightLoss, TargetWeeklyRateKG: 0.5})
	require.NoError(t, err)

	updated, err := env.svc.UpdateTarget(ctx, env.trainerID, target.ID, map[string]float64{
		FieldCalories: 2100,
		FieldProteinG: 180,
	}, "plateau after week 3", nil)
	require.NoError(t, err)

	assert.Equal(t, 2100.0, updated.Calories.Value)
	assert.Equal(t, 180.0, updated.Macros.Protein.Grams)
	require.Len(t, updated.AdjustmentLog, 2)
	for _, entry := range updated.AdjustmentLog {
		assert.NotEmpty(t, entry.ID)
		assert.Equal(t, "plateau after week 3", entry.Reason)
		assert.Equal(t, env.trainerID.Hex(), entry.ActorID)
	}
	assert.Equal(t, FieldCalories, updated.AdjustmentLog[0].FieldPath)
	assert.Equal(t, 2209.0, updated.AdjustmentLog[0].OldValue)
	assert.Equal(t, FieldProteinG, updated.AdjustmentLog[1].FieldPath)

	// Derived figures follow the new calories.
	assert.Equal(t, -659.0, updated.Calories.Adjustment) // 2100 - 2759
	assert.Equal(t, 23.9, updated.Calories.AdjustmentPct)
	assert.Equal(t, 2.25, updated.Macros.Protein.GPerKG) // 180 / 80

	// Version advanced; the change persisted.
	assert.Equal(t, int64(2), updated.Version)
	stored, err := env.targetRepo.GetByID(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, 2100.0, stored.Calories.Value)
}

func TestUpdateTarget_UnchangedFieldGetsNoEntry(t *testing.T) {
	env := newTargetTestEnv(t)
	ctx := context.Background()

	target, err := env.svc.CreateTarget(ctx, env.trainerID, env.clientID, TargetParams{Goal: domain.GoalWeightLoss, TargetWeeklyRateKG: 0.5})
	require.NoError(t, err)

	updated, err := env.svc.UpdateTarget(ctx, env.trainerID, target.ID, map[string]float64{
		FieldCalories: target.Calories.Value, // same value
		FieldFiberG:   35,
	}, "more fiber", nil)
	require.NoError(t, err)
	require.Len(t, updated.AdjustmentLog, 1)
	assert.Equal(t, FieldFiberG, updated.AdjustmentLog[0].FieldPath)
}

func TestUpdateTarget_Validation(t *testing.T) {
	env := newTargetTestEnv(t)
	ctx := context.Background()

	target, err := env.svc.CreateTarget(ctx, env.trainerID, env.clientID, TargetParams{Goal: domain.GoalWeightLoss})
	require.NoError(t, err)

	t.Run("empty reason", func(t *testing.T) {
		_, err := env.svc.UpdateTarget(ctx, env.trainerID, target.ID, map[string]float64{FieldCalories: 2000}, "", nil)
		assert.ErrorIs(t, err, ErrEmptyReason)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := env.svc.UpdateTarget(ctx, env.trainerID, target.ID, map[string]float64{"tdee.value": 2500}, "tweak", nil)
		assert.ErrorIs(t, err, ErrUnknownField)
	})

	t.Run("missing target", func(t *testing.T) {
		_, err := env.svc.UpdateTarget(ctx, env.trainerID, primitive.NewObjectID(), map[string]float64{FieldCalories: 2000}, "tweak", nil)
		assert.ErrorIs(t, err, ErrTargetNotFound)
	})

	t.Run("stranger denied", func(t *testing.T) {
		stranger := env.userRepo.add(&domain.User{Name: "X", Email: "x@example.com", Role: domain.RoleTrainer})
		_, err := env.svc.UpdateTarget(ctx, stranger.ID, target.ID, map[string]float64{FieldCalories: 2000}, "tweak", nil)
		assert.ErrorIs(t, err, ErrTargetAccessDenied)
	})
}

func TestUpdateTarget_VersionConflict(t *testing.T) {
	env := newTargetTestEnv(t)
	ctx := context.Background()

	target, err := env.svc.CreateTarget(ctx, env.trainerID, env.clientID, TargetParams{Goal: domain.GoalWeightLoss})
	require.NoError(t, err)

	// A reader holds a stale copy while another writer commits first.
	stale, err := env.targetRepo.GetByID(ctx, target.ID)
	require.NoError(t, err)
	_, err = env.svc.UpdateTarget(ctx, env.trainerID, target.ID, map[string]float64{FieldCalories: 2000}, "tweak", nil)
	require.NoError(t, err)

	// The stale write must not silently overwrite the committed one.
	stale.Calories.Value = 1800
	err = env.targetRepo.Update(ctx, stale)
	assert.ErrorIs(t, err, repository.ErrConflict)

	stored, err := env.targetRepo.GetByID(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, 2000.0, stored.Calories.Value)
}

func TestRecalculateTarget_SupersedesWithNewIdentity(t *testing.T) {
	env := newTargetTestEnv(t)
	ctx := context.Background()

	first, err := env.svc.CreateTarget(ctx, env.trainerID, env.clientID, TargetParams{Goal: domain.GoalWeightLoss, TargetWeeklyRateKG: 0.5})
	require.NoError(t, err)

	// The client lost weight; refresh the calculation from new biometrics.
	env.userRepo.users[env.clientID].Biometrics.WeightKG = 76

	fresh, err := env.svc.RecalculateTarget(ctx, env.trainerID, env.clientID, "monthly biometric refresh")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, fresh.ID)
	assert.True(t, fresh.IsActive)
	assert.Equal(t, domain.GoalWeightLoss, fresh.Calories.Goal)
	// BMR drops with weight: 10*76 + 6.25*180 - 150 + 5 = 1740
	assert.Equal(t, 1740.0, fresh.BMR.Value)

	// Opening ledger entries document the shift from the old figures.
	require.NotEmpty(t, fresh.AdjustmentLog)
	for _, entry := range fresh.AdjustmentLog {
		assert.Equal(t, "monthly biometric refresh", entry.Reason)
	}

	old, err := env.targetRepo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, old.IsActive)
}

func TestRecalculateTarget_RequiresActiveTargetAndReason(t *testing.T) {
	env := newTargetTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.RecalculateTarget(ctx, env.trainerID, env.clientID, "refresh")
	assert.ErrorIs(t, err, ErrNoActiveTarget)

	_, err = env.svc.RecalculateTarget(ctx, env.trainerID, env.clientID, "")
	assert.ErrorIs(t, err, ErrEmptyReason)
}

func TestGetActiveTarget_Access(t *testing.T) {
	env := newTargetTestEnv(t)
	ctx := context.Background()

	created, err := env.svc.CreateTarget(ctx, env.trainerID, env.clientID, TargetParams{Goal: domain.GoalWeightLoss})
	require.NoError(t, err)

	t.Run("client reads own", func(t *testing.T) {
		got, err := env.svc.GetActiveTarget(ctx, env.clientID, domain.RoleClient, env.clientID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("client cannot read another's", func(t *testing.T) {
		_, err := env.svc.GetActiveTarget(ctx, primitive.NewObjectID(), domain.RoleClient, env.clientID)
		assert.ErrorIs(t, err, ErrTargetAccessDenied)
	})

	t.Run("managing trainer reads", func(t *testing.T) {
		got, err := env.svc.GetActiveTarget(ctx, env.trainerID, domain.RoleTrainer, env.clientID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("no active target", func(t *testing.T) {
		orphan := env.userRepo.add(&domain.User{Name: "N", Email: "n@example.com", Role: domain.RoleClient, TrainerID: &env.trainerID})
		_, err := env.svc.GetActiveTarget(ctx, env.trainerID, domain.RoleTrainer, orphan.ID)
		assert.ErrorIs(t, err, ErrNoActiveTarget)
	})
}

func TestGetDueForReview_ScopesByClientTrainer(t *testing.T) {
	env := newTargetTestEnv(t)
	ctx := context.Background()

	created, err := env.svc.CreateTarget(ctx, env.trainerID, env.clientID, TargetParams{Goal: domain.GoalWeightLoss})
	require.NoError(t, err)

	t.Run("not yet due", func(t *testing.T) {
		due, err := env.svc.GetDueForReview(ctx, env.trainerID)
		require.NoError(t, err)
		assert.Empty(t, due)
	})

	// Push the review date into the past.
	env.targetRepo.targets[created.ID].NextReviewDate = time.Now().UTC().AddDate(0, 0, -1)

	t.Run("managing trainer sees the due target", func(t *testing.T) {
		due, err := env.svc.GetDueForReview(ctx, env.trainerID)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, created.ID, due[0].ID)
	})

	t.Run("foreign trainer sees nothing", func(t *testing.T) {
		stranger := env.userRepo.add(&domain.User{Name: "X", Email: "x3@example.com", Role: domain.RoleTrainer})
		due, err := env.svc.GetDueForReview(ctx, stranger.ID)
		require.NoError(t, err)
		assert.Empty(t, due)
	})
}

func TestComputeAdherenceStats(t *testing.T) {
	w1, w2 := 80.0, 79.4
	logs := []domain.NutritionLog{
		{ProteinG: 170, WeightKG: &w1, Adherence: &domain.Adherence{CaloriePct: 98, WithinTarget: true}},
		{ProteinG: 150, Adherence: &domain.Adherence{CaloriePct: 120, WithinTarget: false}},
		{ProteinG: 160, WeightKG: &w2, Adherence: &domain.Adherence{CaloriePct: 102, WithinTarget: true}},
	}

	stats := computeAdherenceStats(logs)
	assert.Equal(t, 3, stats.DaysLogged)
	assert.Equal(t, 2, stats.DaysWithin)
	assert.Equal(t, 66.7, stats.AdherencePct)
	assert.Equal(t, 106.7, stats.AvgCaloriePct)
	assert.Equal(t, 160.0, stats.AvgProteinG)
	assert.Equal(t, -0.6, stats.WeightChangeKG)
}

func TestComputeAdherenceStats_Empty(t *testing.T) {
	stats := computeAdherenceStats(nil)
	assert.Zero(t, stats.DaysLogged)
	assert.Zero(t, stats.AdherencePct)
}
