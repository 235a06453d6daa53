package service

import (
	"alcyxob/nutrition-app/internal/domain"
	"fmt"
	"math"
	"time"
)

// ConditionResult is one condition's verdict. Lacking enough log data is a
// normal not-met outcome ("insufficient evidence"), never an error.
type ConditionResult struct {
	Met    bool
	Detail string
}

// Snapshot converts the result for a rule's trigger history.
func (r ConditionResult) Snapshot(name string) domain.ConditionSnapshot {
	return domain.ConditionSnapshot{Condition: name, Met: r.Met, Detail: r.Detail}
}

// EvaluateWeightTrend computes the linear weekly weight-change rate over
// the condition window and tests it against the threshold and direction.
// Needs at least two weighed-in entries; fewer is insufficient evidence.
func EvaluateWeightTrend(c domain.WeightTrendCondition, logs []domain.NutritionLog, asOf time.Time) ConditionResult {
	windowStart := asOf.AddDate(0, 0, -7*c.WindowWeeks)

	// Collect weighed-in entries inside the window, oldest first.
	type weighIn struct {
		date   time.Time
		weight float64
	}
	var points []weighIn
	for _, l := range logs {
		if l.WeightKG == nil || l.Date.Before(windowStart) || l.Date.After(asOf) {
			continue
		}
		points = append(points, weighIn{date: l.Date, weight: *l.WeightKG})
	}
	if len(points) < 2 {
		return ConditionResult{Met: false, Detail: fmt.Sprintf("insufficient data: %d weigh-in(s) in %d-week window, need at least 2", len(points), c.WindowWeeks)}
	}

	first, last := points[0], points[len(points)-1]
	days := last.date.Sub(first.date).Hours() / 24
	if days <= 0 {
		return ConditionResult{Met: false, Detail: "insufficient data: weigh-ins span less than a day"}
	}
	weeklyRate := (last.weight - first.weight) / days * 7

	var met bool
	switch c.Direction {
	case domain.TrendStable:
		met = math.Abs(weeklyRate) < c.ThresholdKGPerWeek
	case domain.TrendIncreasing:
		met = weeklyRate >= c.ThresholdKGPerWeek
	case domain.TrendDecreasing:
		met = weeklyRate <= -c.ThresholdKGPerWeek
	}

	return ConditionResult{
		Met: met,
		Detail: fmt.Sprintf("weight trend %.2f kg/week over %d week(s) (%d weigh-ins); want %s at %.2f kg/week",
			weeklyRate, c.WindowWeeks, len(points), c.Direction, c.ThresholdKGPerWeek),
	}
}

// EvaluateAdherence tests whether the fraction of in-window logs flagged
// within-target meets the configured minimum. Zero logs is insufficient
// evidence.
func EvaluateAdherence(c domain.AdherenceCondition, logs []domain.NutritionLog, asOf time.Time) ConditionResult {
	windowStart := asOf.AddDate(0, 0, -7*c.WindowWeeks)

	total, within := 0, 0
	for _, l := range logs {
		if l.Date.Before(windowStart) || l.Date.After(asOf) {
			continue
		}
		total++
		if l.Adherence != nil && l.Adherence.WithinTarget {
			within++
		}
	}
	if total == 0 {
		return ConditionResult{Met: false, Detail: fmt.Sprintf("insufficient data: no logs in %d-week window", c.WindowWeeks)}
	}

	pct := float64(within) / float64(total) * 100
	return ConditionResult{
		Met: pct >= c.MinPercent,
		Detail: fmt.Sprintf("adherence %.1f%% (%d of %d days within target) over %d week(s); want ≥%.0f%%",
			pct, within, total, c.WindowWeeks, c.MinPercent),
	}
}

// EvaluatePerformance checks the trailing 7 days for degraded energy or
// sleep: met when more than half of all logged days show the signal
// degraded. Days that omit the signal count against, so sparse reporting
// never triggers on its own. No logs is insufficient evidence.
func EvaluatePerformance(c domain.PerformanceCondition, logs []domain.NutritionLog, asOf time.Time) ConditionResult {
	windowStart := asOf.AddDate(0, 0, -7)

	days, degraded := 0, 0
	for _, l := range logs {
		if l.Date.Before(windowStart) || l.Date.After(asOf) {
			continue
		}
		days++
		switch c.Signal {
		case domain.SignalEnergy:
			if l.Energy != nil && (*l.Energy == domain.EnergyLow || *l.Energy == domain.EnergyVeryLow) {
				degraded++
			}
		case domain.SignalSleep:
			if l.Sleep != nil && (*l.Sleep == domain.SleepPoor || *l.Sleep == domain.SleepFair) {
				degraded++
			}
		}
	}
	if days == 0 {
		return ConditionResult{Met: false, Detail: "insufficient data: no logs in trailing 7 days"}
	}

	return ConditionResult{
		Met: degraded*2 > days,
		Detail: fmt.Sprintf("%d of %d logged days show degraded %s over trailing 7 days",
			degraded, days, c.Signal),
	}
}
