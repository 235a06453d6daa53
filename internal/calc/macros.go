package calc

import (
	"fmt"
	"math"

	"alcyxob/nutrition-app/internal/domain"
)

const (
	kcalPerGramProtein = 4.0
	kcalPerGramCarb    = 4.0
	kcalPerGramFat     = 9.0

	// Minimum fat intake in g/kg bodyweight; below this hormonal health
	// suffers, so the preference-based percentage is floored here.
	minFatGPerKG = 0.6

	// Fiber prescription per the dietary guideline of 14 g per 1000 kcal.
	fiberGPer1000Kcal = 14.0
)

// proteinGPerKGByGoal is the goal-conditioned protein table, overridable
// per calculation.
var proteinGPerKGByGoal = map[domain.Goal]float64{
	domain.GoalWeightLoss:        2.2,
	domain.GoalMuscleGain:        2.0,
	domain.GoalBodyRecomposition: 2.4,
	domain.GoalMaintenance:       1.8,
	domain.GoalHealth:            1.6,
	domain.GoalPerformance:       1.9,
}

// fatPctByPreference is the share of total calories assigned to fat before
// the g/kg floor is applied.
var fatPctByPreference = map[domain.DietPreference]float64{
	domain.DietBalanced: 0.25,
	domain.DietLowFat:   0.20,
	domain.DietLowCarb:  0.35,
	domain.DietKeto:     0.70,
}

// CalculateMacros splits the calorie budget into macro targets. The order
// is deliberate and load-bearing: protein is sized first from the g/kg
// table, fat second as a percentage of calories (floored for hormonal
// health), and carbohydrate receives the remaining budget.
func CalculateMacros(calories domain.CalorieTarget, in Inputs) (domain.MacroTargets, error) {
	if in.Split != nil {
		return macrosFromSplit(calories, in)
	}

	// Protein first.
	gPerKG, ok := proteinGPerKGByGoal[in.Goal]
	if !ok {
		return domain.MacroTargets{}, validationErr("goal", fmt.Sprintf("unsupported value %q", in.Goal))
	}
	proteinRationale := fmt.Sprintf("%.1f g/kg for %s goal", gPerKG, in.Goal)
	if in.ProteinGPerKG != nil {
		if *in.ProteinGPerKG <= 0 {
			return domain.MacroTargets{}, validationErr("proteinGPerKg", "must be positive")
		}
		gPerKG = *in.ProteinGPerKG
		proteinRationale = fmt.Sprintf("%.1f g/kg (coach override)", gPerKG)
	}
	proteinG := math.Round(gPerKG * in.WeightKG)
	proteinKcal := proteinG * kcalPerGramProtein

	// Fat second, as a preference-conditioned share of total calories.
	pref := in.DietPreference
	if pref == "" {
		pref = domain.DietBalanced
	}
	fatPct, ok := fatPctByPreference[pref]
	if !ok {
		return domain.MacroTargets{}, validationErr("dietPreference", fmt.Sprintf("unsupported value %q", pref))
	}
	fatG := math.Round(calories.Value * fatPct / kcalPerGramFat)
	fatRationale := fmt.Sprintf("%.0f%% of calories for %s preference", fatPct*100, pref)
	if floor := math.Round(minFatGPerKG * in.WeightKG); fatG < floor {
		fatG = floor
		fatRationale = fmt.Sprintf("floored at %.1f g/kg for hormonal health (%s preference would have gone lower)", minFatGPerKG, pref)
	}
	fatKcal := fatG * kcalPerGramFat

	// Carbohydrate takes the remainder.
	carbKcal := calories.Value - proteinKcal - fatKcal
	if carbKcal < 0 {
		carbKcal = 0
	}
	carbG := math.Round(carbKcal / kcalPerGramCarb)

	fiberG := math.Round(calories.Value / 1000 * fiberGPer1000Kcal)

	return domain.MacroTargets{
		Protein: macroTarget(proteinG, kcalPerGramProtein, calories.Value, in.WeightKG,
			proteinRationale+"; protein is prioritized to preserve lean mass."),
		Fats: macroTarget(fatG, kcalPerGramFat, calories.Value, in.WeightKG,
			fatRationale+"."),
		Carbs: macroTarget(carbG, kcalPerGramCarb, calories.Value, in.WeightKG,
			"Remainder of the calorie budget after protein and fat; fuels training."),
		Fiber: macroTarget(fiberG, 0, calories.Value, in.WeightKG,
			fmt.Sprintf("%.0f g per 1000 kcal of intake for digestive health.", fiberGPer1000Kcal)),
	}, nil
}

// macrosFromSplit applies a fully custom percentage split, bypassing the
// goal/preference tables entirely.
func macrosFromSplit(calories domain.CalorieTarget, in Inputs) (domain.MacroTargets, error) {
	s := in.Split
	total := s.ProteinPct + s.CarbPct + s.FatPct
	if math.Abs(total-100) > 0.5 {
		return domain.MacroTargets{}, validationErr("split", fmt.Sprintf("percentages sum to %.1f, want 100", total))
	}
	proteinG := math.Round(calories.Value * s.ProteinPct / 100 / kcalPerGramProtein)
	carbG := math.Round(calories.Value * s.CarbPct / 100 / kcalPerGramCarb)
	fatG := math.Round(calories.Value * s.FatPct / 100 / kcalPerGramFat)
	fiberG := math.Round(calories.Value / 1000 * fiberGPer1000Kcal)

	rationale := fmt.Sprintf("Custom %.0f/%.0f/%.0f protein/carb/fat split specified by coach.",
		s.ProteinPct, s.CarbPct, s.FatPct)
	return domain.MacroTargets{
		Protein: macroTarget(proteinG, kcalPerGramProtein, calories.Value, in.WeightKG, rationale),
		Carbs:   macroTarget(carbG, kcalPerGramCarb, calories.Value, in.WeightKG, rationale),
		Fats:    macroTarget(fatG, kcalPerGramFat, calories.Value, in.WeightKG, rationale),
		Fiber: macroTarget(fiberG, 0, calories.Value, in.WeightKG,
			fmt.Sprintf("%.0f g per 1000 kcal of intake for digestive health.", fiberGPer1000Kcal)),
	}, nil
}

func macroTarget(grams, kcalPerGram, totalCalories, weightKG float64, rationale string) domain.MacroTarget {
	pct := 0.0
	if totalCalories > 0 && kcalPerGram > 0 {
		pct = math.Round(grams*kcalPerGram/totalCalories*1000) / 10
	}
	gPerKG := 0.0
	if weightKG > 0 {
		gPerKG = math.Round(grams/weightKG*100) / 100
	}
	return domain.MacroTarget{
		Grams:     grams,
		PctCals:   pct,
		GPerKG:    gPerKG,
		Rationale: rationale,
	}
}

// CalculateWater prescribes daily hydration linearly off bodyweight with a
// bump for higher activity levels.
func CalculateWater(weightKG float64, level domain.ActivityLevel) domain.WaterTarget {
	liters := weightKG * 0.033
	switch level {
	case domain.ActivityModeratelyActive:
		liters += 0.25
	case domain.ActivityVeryActive, domain.ActivityExtraActive:
		liters += 0.5
	}
	liters = math.Round(liters*10) / 10
	return domain.WaterTarget{
		Liters:    liters,
		Rationale: fmt.Sprintf("33 ml per kg bodyweight, adjusted for %s activity.", level),
	}
}
