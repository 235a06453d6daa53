// internal/domain/nutrition_log.go
package domain

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SleepQuality is the client's self-reported sleep rating.
type SleepQuality string

const (
	SleepPoor      SleepQuality = "poor"
	SleepFair      SleepQuality = "fair"
	SleepGood      SleepQuality = "good"
	SleepExcellent SleepQuality = "excellent"
)

// EnergyLevel is the client's self-reported energy rating.
type EnergyLevel string

const (
	EnergyVeryLow  EnergyLevel = "very_low"
	EnergyLow      EnergyLevel = "low"
	EnergyModerate EnergyLevel = "moderate"
	EnergyHigh     EnergyLevel = "high"
)

// AdherenceTolerancePct is the fixed band around the calorie target inside
// which a day counts as within-target.
const AdherenceTolerancePct = 10.0

// TargetSnapshot captures the figures the client was prescribed at logging
// time, so adherence stays meaningful after the target is later adjusted.
type TargetSnapshot struct {
	Calories float64 `bson:"calories" json:"calories"`
	ProteinG float64 `bson:"proteinG" json:"proteinG"`
}

// Adherence is computed at logging time against the target snapshot.
type Adherence struct {
	CaloriePct   float64 `bson:"caloriePct" json:"caloriePct"`
	WithinTarget bool    `bson:"withinTarget" json:"withinTarget"`
}

// NutritionLog is one client's intake record for one day. Consumed
// read-only by the rule engine for trend windows.
type NutritionLog struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientID primitive.ObjectID `bson:"clientId" json:"clientId"`
	Date     time.Time          `bson:"date" json:"date"`

	Calories float64  `bson:"calories" json:"calories"`
	ProteinG float64  `bson:"proteinG" json:"proteinG"`
	CarbsG   *float64 `bson:"carbsG,omitempty" json:"carbsG,omitempty"`
	FatsG    *float64 `bson:"fatsG,omitempty" json:"fatsG,omitempty"`
	FiberG   *float64 `bson:"fiberG,omitempty" json:"fiberG,omitempty"`
	WeightKG *float64 `bson:"weightKg,omitempty" json:"weightKg,omitempty"`
	WaterL   *float64 `bson:"waterL,omitempty" json:"waterL,omitempty"`

	Sleep  *SleepQuality `bson:"sleep,omitempty" json:"sleep,omitempty"`
	Mood   *string       `bson:"mood,omitempty" json:"mood,omitempty"`
	Energy *EnergyLevel  `bson:"energy,omitempty" json:"energy,omitempty"`

	Target    *TargetSnapshot `bson:"target,omitempty" json:"target,omitempty"`
	Adherence *Adherence      `bson:"adherence,omitempty" json:"adherence,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// ComputeAdherence derives the adherence figures for logged calories
// against a target snapshot using the fixed ±10% band.
func ComputeAdherence(loggedCalories float64, target TargetSnapshot) Adherence {
	if target.Calories <= 0 {
		return Adherence{}
	}
	pct := loggedCalories / target.Calories * 100
	return Adherence{
		CaloriePct:   math.Round(pct*10) / 10,
		WithinTarget: math.Abs(pct-100) <= AdherenceTolerancePct,
	}
}
