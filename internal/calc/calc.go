// Package calc is the metabolic calculation library: pure, stateless
// functions producing BMR, TDEE, calorie target, macro split, water, fiber
// and periodization strategies from biometric/goal inputs.
//
// Determinism is load-bearing: identical inputs must always yield identical
// outputs, so the preview endpoint and target creation share this one code
// path and produce bit-identical figures.
package calc

import (
	"fmt"

	"alcyxob/nutrition-app/internal/domain"
)

// ValidationError reports an unusable input before any calculation runs.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func validationErr(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// CustomSplit is a fully caller-specified macro percentage split. When
// present it bypasses the goal/preference tables entirely. Percentages must
// sum to 100.
type CustomSplit struct {
	ProteinPct float64
	CarbPct    float64
	FatPct     float64
}

// Inputs are the biometric and goal parameters for one calculation.
type Inputs struct {
	WeightKG      float64
	HeightCM      float64
	Age           int
	Gender        domain.Gender
	BodyFatPct    *float64
	ActivityLevel domain.ActivityLevel

	Goal    domain.Goal
	Formula domain.BMRFormula // empty defaults to Mifflin-St Jeor

	// TargetWeeklyRateKG is the desired rate of weight change in kg/week
	// (magnitude; direction comes from the goal). Zero means use the
	// goal's default daily adjustment.
	TargetWeeklyRateKG float64

	// ExplicitAdjustment, when set, overrides the goal-based calorie
	// adjustment entirely (signed kcal/day).
	ExplicitAdjustment *float64

	// ProteinGPerKG overrides the goal-conditioned protein table.
	ProteinGPerKG *float64

	DietPreference domain.DietPreference // empty defaults to balanced
	Split          *CustomSplit

	// PlannedDietWeeks is the intended diet duration; it gates the
	// diet-break strategy and shifts refeed cadence.
	PlannedDietWeeks int

	MealsPerDay int // zero defaults to 4
}

// Figures is the complete set of derived values for one target.
type Figures struct {
	BMR        domain.BMRResult
	TDEE       domain.TDEEResult
	Calories   domain.CalorieTarget
	Macros     domain.MacroTargets
	Water      domain.WaterTarget
	MealTiming domain.MealTiming
	Refeed     *domain.RefeedStrategy
	DietBreak  *domain.DietBreakStrategy
}

// Calculate derives all figures from the inputs. Ordering is load-bearing:
// protein is sized first, fat second, and carbohydrate receives whatever
// calories remain. Changing that order changes results.
func Calculate(in Inputs) (*Figures, error) {
	if in.WeightKG <= 0 {
		return nil, validationErr("weightKg", "must be positive")
	}
	if in.HeightCM <= 0 {
		return nil, validationErr("heightCm", "must be positive")
	}
	if in.Age <= 0 {
		return nil, validationErr("age", "must be positive")
	}
	if in.Gender != domain.GenderMale && in.Gender != domain.GenderFemale {
		return nil, validationErr("gender", fmt.Sprintf("unsupported value %q", in.Gender))
	}

	bmr, err := CalculateBMR(in)
	if err != nil {
		return nil, err
	}
	tdee, err := CalculateTDEE(bmr, in.ActivityLevel)
	if err != nil {
		return nil, err
	}
	calories, err := CalculateCalorieTarget(tdee, in)
	if err != nil {
		return nil, err
	}
	macros, err := CalculateMacros(calories, in)
	if err != nil {
		return nil, err
	}

	mealsPerDay := in.MealsPerDay
	if mealsPerDay <= 0 {
		mealsPerDay = 4
	}

	return &Figures{
		BMR:      bmr,
		TDEE:     tdee,
		Calories: calories,
		Macros:   macros,
		Water:    CalculateWater(in.WeightKG, in.ActivityLevel),
		MealTiming: domain.MealTiming{
			MealsPerDay:     mealsPerDay,
			PreWorkoutNote:  "Carb-forward meal 1-2h before training",
			PostWorkoutNote: "Protein within 2h after training",
		},
		Refeed:    RefeedPlan(calories, in.PlannedDietWeeks),
		DietBreak: DietBreakPlan(calories, in.PlannedDietWeeks),
	}, nil
}
