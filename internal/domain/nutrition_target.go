// internal/domain/nutrition_target.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Goal drives the signed calorie adjustment from TDEE.
type Goal string

const (
	GoalWeightLoss        Goal = "weight_loss"
	GoalMuscleGain        Goal = "muscle_gain"
	GoalBodyRecomposition Goal = "body_recomposition"
	GoalMaintenance       Goal = "maintenance"
	GoalHealth            Goal = "health"
	GoalPerformance       Goal = "performance"
)

// BMRFormula selects which basal-metabolic-rate equation to use.
type BMRFormula string

const (
	FormulaMifflinStJeor  BMRFormula = "mifflin_st_jeor"
	FormulaHarrisBenedict BMRFormula = "harris_benedict"
	FormulaKatchMcArdle   BMRFormula = "katch_mcardle"
)

// DietPreference shifts the default fat/carb split.
type DietPreference string

const (
	DietBalanced DietPreference = "balanced"
	DietLowFat   DietPreference = "low_fat"
	DietLowCarb  DietPreference = "low_carb"
	DietKeto     DietPreference = "keto"
)

// BMRResult is the basal metabolic rate with its audit trail.
// Every derived figure on a target carries a rationale string; these are
// surfaced to clinicians and are required, not decoration.
type BMRResult struct {
	Value     float64            `bson:"value" json:"value"`
	Formula   BMRFormula         `bson:"formula" json:"formula"`
	Inputs    map[string]float64 `bson:"inputs" json:"inputs"`
	Rationale string             `bson:"rationale" json:"rationale"`
}

// TDEEResult is BMR scaled by the activity multiplier.
type TDEEResult struct {
	Value         float64       `bson:"value" json:"value"`
	ActivityLevel ActivityLevel `bson:"activityLevel" json:"activityLevel"`
	Multiplier    float64       `bson:"multiplier" json:"multiplier"`
	Rationale     string        `bson:"rationale" json:"rationale"`
}

// CalorieTarget is the daily calorie prescription derived from TDEE and goal.
type CalorieTarget struct {
	Value float64 `bson:"value" json:"value"`
	Goal  Goal    `bson:"goal" json:"goal"`
	// Signed daily adjustment from TDEE (negative = deficit).
	Adjustment    float64 `bson:"adjustment" json:"adjustment"`
	AdjustmentPct float64 `bson:"adjustmentPct" json:"adjustmentPct"`
	// Target rate of weight change in kg/week (signed, negative = loss).
	TargetWeeklyRateKG float64 `bson:"targetWeeklyRateKg" json:"targetWeeklyRateKg"`
	Rationale          string  `bson:"rationale" json:"rationale"`
}

// MacroTarget is one macronutrient prescription.
type MacroTarget struct {
	Grams     float64 `bson:"grams" json:"grams"`
	PctCals   float64 `bson:"pctCals" json:"pctCals"`
	GPerKG    float64 `bson:"gPerKg" json:"gPerKg"`
	Rationale string  `bson:"rationale" json:"rationale"`
}

// MacroTargets groups the per-macronutrient prescriptions.
type MacroTargets struct {
	Protein MacroTarget `bson:"protein" json:"protein"`
	Carbs   MacroTarget `bson:"carbs" json:"carbs"`
	Fats    MacroTarget `bson:"fats" json:"fats"`
	Fiber   MacroTarget `bson:"fiber" json:"fiber"`
}

// WaterTarget is the daily hydration prescription.
type WaterTarget struct {
	Liters    float64 `bson:"liters" json:"liters"`
	Rationale string  `bson:"rationale" json:"rationale"`
}

// MealTiming describes how the calorie budget is spread across the day.
type MealTiming struct {
	MealsPerDay     int    `bson:"mealsPerDay" json:"mealsPerDay"`
	PreWorkoutNote  string `bson:"preWorkoutNote,omitempty" json:"preWorkoutNote,omitempty"`
	PostWorkoutNote string `bson:"postWorkoutNote,omitempty" json:"postWorkoutNote,omitempty"`
}

// RefeedFrequency is the cadence of planned refeed days.
type RefeedFrequency string

const (
	RefeedWeekly   RefeedFrequency = "weekly"
	RefeedBiweekly RefeedFrequency = "biweekly"
	RefeedMonthly  RefeedFrequency = "monthly"
)

// RefeedStrategy is a planned periodic partial restoration of calories,
// mainly carbohydrates, during a sustained deficit.
type RefeedStrategy struct {
	Frequency       RefeedFrequency `bson:"frequency" json:"frequency"`
	CalorieIncrease float64         `bson:"calorieIncrease" json:"calorieIncrease"`
	CarbFocused     bool            `bson:"carbFocused" json:"carbFocused"`
	Rationale       string          `bson:"rationale" json:"rationale"`
}

// DietBreakStrategy is a planned multi-day return to maintenance calories
// during an extended deficit.
type DietBreakStrategy struct {
	EveryNWeeks   int    `bson:"everyNWeeks" json:"everyNWeeks"`
	DurationDays  int    `bson:"durationDays" json:"durationDays"`
	AtMaintenance bool   `bson:"atMaintenance" json:"atMaintenance"`
	Rationale     string `bson:"rationale" json:"rationale"`
}

// TargetAdjustment is one entry in a target's append-only adjustment ledger.
// Entries are never rewritten or deleted; they are the audit trail of record.
type TargetAdjustment struct {
	ID             string    `bson:"id" json:"id"` // uuid
	Timestamp      time.Time `bson:"timestamp" json:"timestamp"`
	FieldPath      string    `bson:"fieldPath" json:"fieldPath"`
	OldValue       float64   `bson:"oldValue" json:"oldValue"`
	NewValue       float64   `bson:"newValue" json:"newValue"`
	Reason         string    `bson:"reason" json:"reason"`
	ActorID        string    `bson:"actorId" json:"actorId"`
	ClientFeedback *string   `bson:"clientFeedback,omitempty" json:"clientFeedback,omitempty"`
}

// NutritionTarget is one computed nutrition prescription for one client,
// effective from EffectiveDate. At most one target per client is active at
// any instant; activating a new one deactivates all others atomically.
type NutritionTarget struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientID       primitive.ObjectID `bson:"clientId" json:"clientId"`
	CreatedBy      primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	EffectiveDate  time.Time          `bson:"effectiveDate" json:"effectiveDate"`
	NextReviewDate time.Time          `bson:"nextReviewDate" json:"nextReviewDate"`
	IsActive       bool               `bson:"isActive" json:"isActive"`
	// Version guards concurrent in-place updates (optimistic concurrency).
	Version int64 `bson:"version" json:"version"`

	BMR           BMRResult          `bson:"bmr" json:"bmr"`
	TDEE          TDEEResult         `bson:"tdee" json:"tdee"`
	Calories      CalorieTarget      `bson:"calories" json:"calories"`
	Macros        MacroTargets       `bson:"macros" json:"macros"`
	Water         WaterTarget        `bson:"water" json:"water"`
	MealTiming    MealTiming         `bson:"mealTiming" json:"mealTiming"`
	Refeed        *RefeedStrategy    `bson:"refeed,omitempty" json:"refeed,omitempty"`
	DietBreak     *DietBreakStrategy `bson:"dietBreak,omitempty" json:"dietBreak,omitempty"`
	AdjustmentLog []TargetAdjustment `bson:"adjustmentLog" json:"adjustmentLog"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
