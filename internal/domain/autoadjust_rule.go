// internal/domain/autoadjust_rule.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TrendDirection is the direction a weight-trend condition tests for.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// PerformanceSignal selects which subjective log field a performance
// condition inspects.
type PerformanceSignal string

const (
	SignalEnergy PerformanceSignal = "energy"
	SignalSleep  PerformanceSignal = "sleep"
)

// WeightTrendCondition holds when the client's linear weekly weight-change
// rate matches the configured direction and threshold over the window.
type WeightTrendCondition struct {
	Enabled            bool           `bson:"enabled" json:"enabled"`
	ThresholdKGPerWeek float64        `bson:"thresholdKgPerWeek" json:"thresholdKgPerWeek"`
	Direction          TrendDirection `bson:"direction" json:"direction"`
	WindowWeeks        int            `bson:"windowWeeks" json:"windowWeeks"`
}

// AdherenceCondition holds when the fraction of in-window logs flagged
// within-target meets the configured minimum percentage.
type AdherenceCondition struct {
	Enabled     bool    `bson:"enabled" json:"enabled"`
	MinPercent  float64 `bson:"minPercent" json:"minPercent"`
	WindowWeeks int     `bson:"windowWeeks" json:"windowWeeks"`
}

// PerformanceCondition holds when more than half of the trailing week's
// logged days show degraded energy or sleep.
type PerformanceCondition struct {
	Enabled bool              `bson:"enabled" json:"enabled"`
	Signal  PerformanceSignal `bson:"signal" json:"signal"`
}

// RuleConditions is the closed set of condition variants. All enabled
// conditions must hold for the rule to trigger (logical AND).
type RuleConditions struct {
	WeightTrend *WeightTrendCondition `bson:"weightTrend,omitempty" json:"weightTrend,omitempty"`
	Adherence   *AdherenceCondition   `bson:"adherence,omitempty" json:"adherence,omitempty"`
	Performance *PerformanceCondition `bson:"performance,omitempty" json:"performance,omitempty"`
}

// RuleActions are the deltas applied to the active target on trigger.
// CaloriePctDelta is computed against the target's current calorie value,
// not against TDEE.
type RuleActions struct {
	CalorieDelta     float64 `bson:"calorieDelta" json:"calorieDelta"`
	CaloriePctDelta  float64 `bson:"caloriePctDelta" json:"caloriePctDelta"`
	ProteinDeltaG    float64 `bson:"proteinDeltaG" json:"proteinDeltaG"`
	CarbDeltaG       float64 `bson:"carbDeltaG" json:"carbDeltaG"`
	FatDeltaG        float64 `bson:"fatDeltaG" json:"fatDeltaG"`
	NotifyClient     bool    `bson:"notifyClient" json:"notifyClient"`
	NotifyTrainer    bool    `bson:"notifyTrainer" json:"notifyTrainer"`
	RequiresApproval bool    `bson:"requiresApproval" json:"requiresApproval"`
}

// ConditionSnapshot records how one condition evaluated at trigger time.
type ConditionSnapshot struct {
	Condition string `bson:"condition" json:"condition"`
	Met       bool   `bson:"met" json:"met"`
	Detail    string `bson:"detail" json:"detail"`
}

// AppliedAdjustment records one concrete field change made by a trigger.
type AppliedAdjustment struct {
	FieldPath string  `bson:"fieldPath" json:"fieldPath"`
	OldValue  float64 `bson:"oldValue" json:"oldValue"`
	NewValue  float64 `bson:"newValue" json:"newValue"`
}

// RuleTrigger is one entry in a rule's append-only trigger history.
type RuleTrigger struct {
	ID          string              `bson:"id" json:"id"` // uuid
	Date        time.Time           `bson:"date" json:"date"`
	Conditions  []ConditionSnapshot `bson:"conditions" json:"conditions"`
	Adjustments []AppliedAdjustment `bson:"adjustments,omitempty" json:"adjustments,omitempty"`
	Approved    bool                `bson:"approved" json:"approved"`
	ApprovedBy  *primitive.ObjectID `bson:"approvedBy,omitempty" json:"approvedBy,omitempty"`
}

// AutoAdjustRule is a trainer-authored automation policy scoped to one
// client. Evaluation is idempotent per check: re-running a check over the
// same log window never double-applies an adjustment.
type AutoAdjustRule struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientID  primitive.ObjectID `bson:"clientId" json:"clientId"`
	CreatedBy primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	Name      string             `bson:"name" json:"name"`

	Conditions RuleConditions `bson:"conditions" json:"conditions"`
	Actions    RuleActions    `bson:"actions" json:"actions"`

	IsActive           bool          `bson:"isActive" json:"isActive"`
	AutoApply          bool          `bson:"autoApply" json:"autoApply"`
	CheckFrequencyDays int           `bson:"checkFrequencyDays" json:"checkFrequencyDays"`
	LastChecked        *time.Time    `bson:"lastChecked,omitempty" json:"lastChecked,omitempty"`
	LastTriggered      *time.Time    `bson:"lastTriggered,omitempty" json:"lastTriggered,omitempty"`
	TriggerCount       int           `bson:"triggerCount" json:"triggerCount"`
	TriggerHistory     []RuleTrigger `bson:"triggerHistory" json:"triggerHistory"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// WidestWindowWeeks returns the largest enabled condition window. The
// performance condition always looks at the trailing week.
func (r *AutoAdjustRule) WidestWindowWeeks() int {
	widest := 0
	if c := r.Conditions.WeightTrend; c != nil && c.Enabled && c.WindowWeeks > widest {
		widest = c.WindowWeeks
	}
	if c := r.Conditions.Adherence; c != nil && c.Enabled && c.WindowWeeks > widest {
		widest = c.WindowWeeks
	}
	if c := r.Conditions.Performance; c != nil && c.Enabled && widest < 1 {
		widest = 1
	}
	return widest
}

// HasEnabledCondition reports whether at least one condition is enabled.
// A rule with no enabled conditions never triggers.
func (r *AutoAdjustRule) HasEnabledCondition() bool {
	return (r.Conditions.WeightTrend != nil && r.Conditions.WeightTrend.Enabled) ||
		(r.Conditions.Adherence != nil && r.Conditions.Adherence.Enabled) ||
		(r.Conditions.Performance != nil && r.Conditions.Performance.Enabled)
}
