package calc

import (
	"fmt"
	"math"

	"alcyxob/nutrition-app/internal/domain"
)

// Refeed cadence thresholds over the deficit percentage of TDEE.
const (
	refeedWeeklyDeficitPct   = 20.0
	refeedBiweeklyDeficitPct = 10.0

	// Monthly refeeds only make sense once a shallow deficit has run for
	// a while; below this planned duration no refeed is prescribed.
	refeedMonthlyMinWeeks = 8
)

// Diet-break gating: only extended, meaningfully deep diets earn one.
const (
	dietBreakMinWeeks      = 8
	dietBreakMinDeficitPct = 15.0
	dietBreakEveryNWeeks   = 8
	dietBreakDurationDays  = 7
)

// RefeedPlan selects a refeed cadence from the deficit depth and planned
// diet duration. Returns nil when the target carries no deficit or the
// deficit is too shallow and short to warrant one.
func RefeedPlan(calories domain.CalorieTarget, plannedWeeks int) *domain.RefeedStrategy {
	if calories.Adjustment >= 0 {
		return nil
	}
	deficitPct := calories.AdjustmentPct

	var freq domain.RefeedFrequency
	switch {
	case deficitPct >= refeedWeeklyDeficitPct:
		freq = domain.RefeedWeekly
	case deficitPct >= refeedBiweeklyDeficitPct:
		freq = domain.RefeedBiweekly
	case plannedWeeks >= refeedMonthlyMinWeeks:
		freq = domain.RefeedMonthly
	default:
		return nil
	}

	// Partial restoration: bring the refeed day about three quarters of
	// the way back to maintenance, weighted toward carbohydrate.
	increase := math.Round(math.Abs(calories.Adjustment) * 0.75)
	return &domain.RefeedStrategy{
		Frequency:       freq,
		CalorieIncrease: increase,
		CarbFocused:     true,
		Rationale: fmt.Sprintf(
			"%s refeed of +%.0f kcal (mostly carbs) to offset the %.0f%% deficit's impact on training and adherence.",
			freq, increase, deficitPct),
	}
}

// DietBreakPlan prescribes a full week at maintenance during long, deep
// deficits. Requires a minimum planned multi-week duration before
// activating; shallow or short diets return nil.
func DietBreakPlan(calories domain.CalorieTarget, plannedWeeks int) *domain.DietBreakStrategy {
	if calories.Adjustment >= 0 {
		return nil
	}
	if plannedWeeks < dietBreakMinWeeks || calories.AdjustmentPct < dietBreakMinDeficitPct {
		return nil
	}
	return &domain.DietBreakStrategy{
		EveryNWeeks:   dietBreakEveryNWeeks,
		DurationDays:  dietBreakDurationDays,
		AtMaintenance: true,
		Rationale: fmt.Sprintf(
			"%d-day maintenance block every %d weeks: a %.0f%% deficit planned for %d weeks benefits from periodic metabolic and psychological relief.",
			dietBreakDurationDays, dietBreakEveryNWeeks, calories.AdjustmentPct, plannedWeeks),
	}
}
