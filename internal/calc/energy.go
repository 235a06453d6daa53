package calc

import (
	"fmt"
	"math"

	"alcyxob/nutrition-app/internal/domain"
)

// activityMultipliers is the fixed five-level TDEE table. It is the single
// source of truth for valid activity levels — also used for input
// validation at the API layer.
var activityMultipliers = map[domain.ActivityLevel]float64{
	domain.ActivitySedentary:        1.2,
	domain.ActivityLightlyActive:    1.375,
	domain.ActivityModeratelyActive: 1.55,
	domain.ActivityVeryActive:       1.725,
	domain.ActivityExtraActive:      1.9,
}

// ValidActivityLevel reports whether the level exists in the TDEE table.
func ValidActivityLevel(level domain.ActivityLevel) bool {
	_, ok := activityMultipliers[level]
	return ok
}

// KcalPerKGFat is the conversion used to translate a weekly weight-change
// rate into a daily calorie adjustment (7700 kcal ≈ 1 kg of body fat).
const KcalPerKGFat = 7700.0

// Goal-based default daily adjustments, used when the caller supplies
// neither an explicit adjustment nor a target weekly rate.
const (
	defaultDeficit     = 500.0
	defaultSurplus     = 300.0
	performanceSurplus = 200.0
)

// CalculateTDEE scales BMR by the activity multiplier. Unknown activity
// levels are a validation error.
func CalculateTDEE(bmr domain.BMRResult, level domain.ActivityLevel) (domain.TDEEResult, error) {
	mult, ok := activityMultipliers[level]
	if !ok {
		return domain.TDEEResult{}, validationErr("activityLevel", fmt.Sprintf("unsupported value %q", level))
	}
	value := math.Round(bmr.Value * mult)
	return domain.TDEEResult{
		Value:         value,
		ActivityLevel: level,
		Multiplier:    mult,
		Rationale: fmt.Sprintf("BMR %.0f × %.3g multiplier for %s lifestyle = %.0f kcal/day maintenance.",
			bmr.Value, mult, level, value),
	}, nil
}

// CalculateCalorieTarget applies the goal-driven signed adjustment to TDEE.
// A caller-supplied explicit adjustment overrides the goal defaults; a
// target weekly rate is converted via 7700 kcal per kg of fat.
func CalculateCalorieTarget(tdee domain.TDEEResult, in Inputs) (domain.CalorieTarget, error) {
	var adjustment float64
	var weeklyRate float64
	var rationale string

	rateAdjustment := func(defaultDaily float64) float64 {
		if in.TargetWeeklyRateKG > 0 {
			return math.Round(in.TargetWeeklyRateKG * KcalPerKGFat / 7)
		}
		return defaultDaily
	}

	switch in.Goal {
	case domain.GoalWeightLoss:
		adjustment = -rateAdjustment(defaultDeficit)
		weeklyRate = -math.Abs(adjustment) * 7 / KcalPerKGFat
	case domain.GoalMuscleGain:
		adjustment = rateAdjustment(defaultSurplus)
		weeklyRate = adjustment * 7 / KcalPerKGFat
	case domain.GoalBodyRecomposition, domain.GoalMaintenance, domain.GoalHealth:
		adjustment = 0
	case domain.GoalPerformance:
		adjustment = performanceSurplus
	default:
		return domain.CalorieTarget{}, validationErr("goal", fmt.Sprintf("unsupported value %q", in.Goal))
	}

	if in.ExplicitAdjustment != nil {
		adjustment = *in.ExplicitAdjustment
		weeklyRate = adjustment * 7 / KcalPerKGFat
	}

	value := math.Round(tdee.Value + adjustment)
	pct := 0.0
	if tdee.Value > 0 {
		pct = math.Round(math.Abs(adjustment)/tdee.Value*1000) / 10
	}

	switch {
	case in.ExplicitAdjustment != nil:
		rationale = fmt.Sprintf("Caller-specified %+.0f kcal/day adjustment from TDEE %.0f.", adjustment, tdee.Value)
	case in.Goal == domain.GoalWeightLoss:
		rationale = fmt.Sprintf("%.0f calorie deficit (≈%.0f%% below TDEE) for %.1fkg/week fat loss.",
			math.Abs(adjustment), pct, math.Abs(weeklyRate))
	case in.Goal == domain.GoalMuscleGain:
		rationale = fmt.Sprintf("%.0f calorie surplus (≈%.0f%% above TDEE) for %.2fkg/week lean gain.",
			adjustment, pct, weeklyRate)
	case in.Goal == domain.GoalPerformance:
		rationale = "Fixed 200 kcal surplus to support training output and recovery."
	default:
		rationale = fmt.Sprintf("Maintenance intake at TDEE for %s goal.", in.Goal)
	}

	return domain.CalorieTarget{
		Value:              value,
		Goal:               in.Goal,
		Adjustment:         adjustment,
		AdjustmentPct:      pct,
		TargetWeeklyRateKG: math.Round(weeklyRate*100) / 100,
		Rationale:          rationale,
	}, nil
}
