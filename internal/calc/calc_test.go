package calc

import (
	"testing"

	"alcyxob/nutrition-app/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseInputs() Inputs {
	return Inputs{
		WeightKG:      80,
		HeightCM:      180,
		Age:           30,
		Gender:        domain.GenderMale,
		ActivityLevel: domain.ActivityModeratelyActive,
		Goal:          domain.GoalWeightLoss,
	}
}

func floatPtr(v float64) *float64 { return &v }

// --- BMR ---

func TestCalculateBMR_MifflinStJeor(t *testing.T) {
	in := baseInputs()

	bmr, err := CalculateBMR(in)
	require.NoError(t, err)
	// 10*80 + 6.25*180 - 5*30 + 5
	assert.Equal(t, 1780.0, bmr.Value)
	assert.Equal(t, domain.FormulaMifflinStJeor, bmr.Formula)
	assert.Equal(t, 80.0, bmr.Inputs["weightKg"])
	assert.NotEmpty(t, bmr.Rationale)
}

func TestCalculateBMR_MifflinStJeor_Female(t *testing.T) {
	in := baseInputs()
	in.WeightKG = 60
	in.HeightCM = 165
	in.Age = 25
	in.Gender = domain.GenderFemale

	bmr, err := CalculateBMR(in)
	require.NoError(t, err)
	// 10*60 + 6.25*165 - 5*25 - 161 = 1345.25
	assert.Equal(t, 1345.0, bmr.Value)
}

func TestCalculateBMR_HarrisBenedict(t *testing.T) {
	in := baseInputs()
	in.Formula = domain.FormulaHarrisBenedict

	bmr, err := CalculateBMR(in)
	require.NoError(t, err)
	// 88.362 + 13.397*80 + 4.799*180 - 5.677*30 = 1853.632
	assert.Equal(t, 1854.0, bmr.Value)
}

func TestCalculateBMR_KatchMcArdle(t *testing.T) {
	in := baseInputs()
	in.Formula = domain.FormulaKatchMcArdle
	in.BodyFatPct = floatPtr(20)

	bmr, err := CalculateBMR(in)
	require.NoError(t, err)
	// LBM = 80*0.8 = 64; 370 + 21.6*64 = 1752.4
	assert.Equal(t, 1752.0, bmr.Value)
	assert.Equal(t, 64.0, bmr.Inputs["leanBodyMassKg"])
}

func TestCalculateBMR_KatchMcArdleWithoutBodyFat(t *testing.T) {
	in := baseInputs()
	in.Formula = domain.FormulaKatchMcArdle

	_, err := CalculateBMR(in)
	require.Error(t, err)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "bodyFatPct", vErr.Field)
}

func TestCalculateBMR_UnknownFormula(t *testing.T) {
	in := baseInputs()
	in.Formula = "cunningham"

	_, err := CalculateBMR(in)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "formula", vErr.Field)
}

// --- TDEE ---

func TestCalculateTDEE_Multipliers(t *testing.T) {
	bmr := domain.BMRResult{Value: 1780}

	cases := []struct {
		level domain.ActivityLevel
		want  float64
	}{
		{domain.ActivitySedentary, 2136},
		{domain.ActivityLightlyActive, 2448}, // 2447.5 rounds up
		{domain.ActivityModeratelyActive, 2759},
		{domain.ActivityVeryActive, 3071}, // 3070.5 rounds up
		{domain.ActivityExtraActive, 3382},
	}
	for _, tc := range cases {
		t.Run(string(tc.level), func(t *testing.T) {
			tdee, err := CalculateTDEE(bmr, tc.level)
			require.NoError(t, err)
			assert.Equal(t, tc.want, tdee.Value)
		})
	}
}

func TestCalculateTDEE_UnknownLevel(t *testing.T) {
	_, err := CalculateTDEE(domain.BMRResult{Value: 1780}, "athlete")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "activityLevel", vErr.Field)
}

// --- Calorie target ---

func TestCalculateCalorieTarget_WeightLossRate(t *testing.T) {
	tdee := domain.TDEEResult{Value: 2759}
	in := baseInputs()
	in.TargetWeeklyRateKG = 0.5

	ct, err := CalculateCalorieTarget(tdee, in)
	require.NoError(t, err)
	assert.Equal(t, 2209.0, ct.Value)
	assert.Equal(t, -550.0, ct.Adjustment)
	assert.Equal(t, 19.9, ct.AdjustmentPct)
	assert.Equal(t, -0.5, ct.TargetWeeklyRateKG)
	assert.Equal(t, "550 calorie deficit (≈20% below TDEE) for 0.5kg/week fat loss.", ct.Rationale)
}

func TestCalculateCalorieTarget_WeightLossDefaultDeficit(t *testing.T) {
	ct, err := CalculateCalorieTarget(domain.TDEEResult{Value: 2500}, baseInputs())
	require.NoError(t, err)
	assert.Equal(t, 2000.0, ct.Value)
	assert.Equal(t, -500.0, ct.Adjustment)
}

func TestCalculateCalorieTarget_MuscleGainDefaultSurplus(t *testing.T) {
	in := baseInputs()
	in.Goal = domain.GoalMuscleGain

	ct, err := CalculateCalorieTarget(domain.TDEEResult{Value: 2759}, in)
	require.NoError(t, err)
	assert.Equal(t, 3059.0, ct.Value)
	assert.Equal(t, 300.0, ct.Adjustment)
	assert.Greater(t, ct.TargetWeeklyRateKG, 0.0)
}

func TestCalculateCalorieTarget_MaintenanceGoals(t *testing.T) {
	for _, goal := range []domain.Goal{domain.GoalMaintenance, domain.GoalHealth, domain.GoalBodyRecomposition} {
		t.Run(string(goal), func(t *testing.T) {
			in := baseInputs()
			in.Goal = goal
			ct, err := CalculateCalorieTarget(domain.TDEEResult{Value: 2759}, in)
			require.NoError(t, err)
			assert.Equal(t, 2759.0, ct.Value)
			assert.Zero(t, ct.Adjustment)
		})
	}
}

func TestCalculateCalorieTarget_PerformanceSurplus(t *testing.T) {
	in := baseInputs()
	in.Goal = domain.GoalPerformance

	ct, err := CalculateCalorieTarget(domain.TDEEResult{Value: 2759}, in)
	require.NoError(t, err)
	assert.Equal(t, 2959.0, ct.Value)
	assert.Equal(t, 200.0, ct.Adjustment)
}

func TestCalculateCalorieTarget_ExplicitAdjustmentOverrides(t *testing.T) {
	in := baseInputs()
	in.TargetWeeklyRateKG = 1.0 // would give -1100, override wins
	in.ExplicitAdjustment = floatPtr(-300)

	ct, err := CalculateCalorieTarget(domain.TDEEResult{Value: 2759}, in)
	require.NoError(t, err)
	assert.Equal(t, 2459.0, ct.Value)
	assert.Equal(t, -300.0, ct.Adjustment)
}

func TestCalculateCalorieTarget_UnknownGoal(t *testing.T) {
	in := baseInputs()
	in.Goal = "bulking"

	_, err := CalculateCalorieTarget(domain.TDEEResult{Value: 2759}, in)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "goal", vErr.Field)
}

// --- Macros ---

func TestCalculateMacros_ProteinFirstFatSecondCarbRemainder(t *testing.T) {
	in := baseInputs()
	calories := domain.CalorieTarget{Value: 2209, Goal: domain.GoalWeightLoss}

	m, err := CalculateMacros(calories, in)
	require.NoError(t, err)
	// Protein 2.2 g/kg * 80 = 176 g
	assert.Equal(t, 176.0, m.Protein.Grams)
	assert.Equal(t, 2.2, m.Protein.GPerKG)
	// Fat 25% of 2209 / 9 = 61 g
	assert.Equal(t, 61.0, m.Fats.Grams)
	// Carbs take the remainder: (2209 - 704 - 549) / 4 = 239 g
	assert.Equal(t, 239.0, m.Carbs.Grams)
	// Fiber 14 g per 1000 kcal
	assert.Equal(t, 31.0, m.Fiber.Grams)
}

func TestCalculateMacros_KcalConsistency(t *testing.T) {
	// After whole-gram rounding the macro calories must land within 1%
	// of the calorie target.
	goals := []domain.Goal{
		domain.GoalWeightLoss, domain.GoalMuscleGain, domain.GoalBodyRecomposition,
		domain.GoalMaintenance, domain.GoalHealth, domain.GoalPerformance,
	}
	for _, goal := range goals {
		t.Run(string(goal), func(t *testing.T) {
			in := baseInputs()
			in.Goal = goal
			figures, err := Calculate(in)
			require.NoError(t, err)

			macroKcal := figures.Macros.Protein.Grams*4 +
				figures.Macros.Carbs.Grams*4 +
				figures.Macros.Fats.Grams*9
			assert.InEpsilon(t, figures.Calories.Value, macroKcal, 0.01)
		})
	}
}

func TestCalculateMacros_FatFloor(t *testing.T) {
	// Low-fat preference on a small calorie budget would drop fat below
	// 0.6 g/kg; the floor must hold.
	in := baseInputs()
	in.DietPreference = domain.DietLowFat
	calories := domain.CalorieTarget{Value: 1200, Goal: domain.GoalWeightLoss}

	m, err := CalculateMacros(calories, in)
	require.NoError(t, err)
	// 20% of 1200 / 9 = 27 g; floor is 0.6 * 80 = 48 g
	assert.Equal(t, 48.0, m.Fats.Grams)
	assert.Contains(t, m.Fats.Rationale, "floored")
}

func TestCalculateMacros_ProteinOverride(t *testing.T) {
	in := baseInputs()
	in.ProteinGPerKG = floatPtr(2.5)
	calories := domain.CalorieTarget{Value: 2209, Goal: domain.GoalWeightLoss}

	m, err := CalculateMacros(calories, in)
	require.NoError(t, err)
	assert.Equal(t, 200.0, m.Protein.Grams)
}

func TestCalculateMacros_CustomSplit(t *testing.T) {
	in := baseInputs()
	in.Split = &CustomSplit{ProteinPct: 40, CarbPct: 40, FatPct: 20}
	calories := domain.CalorieTarget{Value: 2000, Goal: domain.GoalWeightLoss}

	m, err := CalculateMacros(calories, in)
	require.NoError(t, err)
	assert.Equal(t, 200.0, m.Protein.Grams)
	assert.Equal(t, 200.0, m.Carbs.Grams)
	assert.Equal(t, 44.0, m.Fats.Grams)
}

func TestCalculateMacros_CustomSplitMustSumTo100(t *testing.T) {
	in := baseInputs()
	in.Split = &CustomSplit{ProteinPct: 40, CarbPct: 40, FatPct: 30}

	_, err := CalculateMacros(domain.CalorieTarget{Value: 2000}, in)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "split", vErr.Field)
}

func TestCalculateMacros_KetoPreference(t *testing.T) {
	in := baseInputs()
	in.DietPreference = domain.DietKeto
	calories := domain.CalorieTarget{Value: 2209, Goal: domain.GoalWeightLoss}

	m, err := CalculateMacros(calories, in)
	require.NoError(t, err)
	// 70% of calories to fat: 2209*0.7/9 = 172 g
	assert.Equal(t, 172.0, m.Fats.Grams)
}

// --- Water ---

func TestCalculateWater(t *testing.T) {
	cases := []struct {
		level domain.ActivityLevel
		want  float64
	}{
		{domain.ActivitySedentary, 2.6},        // 80*0.033
		{domain.ActivityModeratelyActive, 2.9}, // +0.25
		{domain.ActivityVeryActive, 3.1},       // +0.5
	}
	for _, tc := range cases {
		t.Run(string(tc.level), func(t *testing.T) {
			w := CalculateWater(80, tc.level)
			assert.Equal(t, tc.want, w.Liters)
		})
	}
}

// --- Refeed / diet break ---

func TestRefeedPlan_Cadence(t *testing.T) {
	t.Run("deep deficit gets weekly", func(t *testing.T) {
		plan := RefeedPlan(domain.CalorieTarget{Adjustment: -700, AdjustmentPct: 25.4}, 0)
		require.NotNil(t, plan)
		assert.Equal(t, domain.RefeedWeekly, plan.Frequency)
		assert.Equal(t, 525.0, plan.CalorieIncrease) // 75% of 700
		assert.True(t, plan.CarbFocused)
	})

	t.Run("moderate deficit gets biweekly", func(t *testing.T) {
		plan := RefeedPlan(domain.CalorieTarget{Adjustment: -550, AdjustmentPct: 19.9}, 0)
		require.NotNil(t, plan)
		assert.Equal(t, domain.RefeedBiweekly, plan.Frequency)
	})

	t.Run("shallow but long diet gets monthly", func(t *testing.T) {
		plan := RefeedPlan(domain.CalorieTarget{Adjustment: -200, AdjustmentPct: 7.2}, 12)
		require.NotNil(t, plan)
		assert.Equal(t, domain.RefeedMonthly, plan.Frequency)
	})

	t.Run("shallow short diet gets none", func(t *testing.T) {
		assert.Nil(t, RefeedPlan(domain.CalorieTarget{Adjustment: -200, AdjustmentPct: 7.2}, 4))
	})

	t.Run("surplus gets none", func(t *testing.T) {
		assert.Nil(t, RefeedPlan(domain.CalorieTarget{Adjustment: 300, AdjustmentPct: 10.9}, 12))
	})
}

func TestDietBreakPlan(t *testing.T) {
	deficit := domain.CalorieTarget{Adjustment: -550, AdjustmentPct: 19.9}

	t.Run("long deep diet earns a break", func(t *testing.T) {
		plan := DietBreakPlan(deficit, 12)
		require.NotNil(t, plan)
		assert.Equal(t, 8, plan.EveryNWeeks)
		assert.Equal(t, 7, plan.DurationDays)
		assert.True(t, plan.AtMaintenance)
	})

	t.Run("short diet does not", func(t *testing.T) {
		assert.Nil(t, DietBreakPlan(deficit, 4))
	})

	t.Run("shallow deficit does not", func(t *testing.T) {
		assert.Nil(t, DietBreakPlan(domain.CalorieTarget{Adjustment: -250, AdjustmentPct: 9.1}, 12))
	})
}

// --- Full pipeline ---

func TestCalculate_WorkedExample(t *testing.T) {
	in := baseInputs()
	in.TargetWeeklyRateKG = 0.5

	figures, err := Calculate(in)
	require.NoError(t, err)

	assert.Equal(t, 1780.0, figures.BMR.Value)
	assert.Equal(t, 2759.0, figures.TDEE.Value)
	assert.Equal(t, 2209.0, figures.Calories.Value)
	assert.Equal(t, 176.0, figures.Macros.Protein.Grams)
	assert.Equal(t, 4, figures.MealTiming.MealsPerDay)
	require.NotNil(t, figures.Refeed)
	assert.Equal(t, domain.RefeedBiweekly, figures.Refeed.Frequency)
}

func TestCalculate_Deterministic(t *testing.T) {
	in := baseInputs()
	in.TargetWeeklyRateKG = 0.5
	in.PlannedDietWeeks = 12

	first, err := Calculate(in)
	require.NoError(t, err)
	second, err := Calculate(in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCalculate_InputValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Inputs)
		field  string
	}{
		{"zero weight", func(in *Inputs) { in.WeightKG = 0 }, "weightKg"},
		{"negative height", func(in *Inputs) { in.HeightCM = -1 }, "heightCm"},
		{"zero age", func(in *Inputs) { in.Age = 0 }, "age"},
		{"unknown gender", func(in *Inputs) { in.Gender = "other" }, "gender"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := baseInputs()
			tc.mutate(&in)
			_, err := Calculate(in)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
}
