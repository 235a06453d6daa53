package service

import (
	"alcyxob/nutrition-app/internal/calc"
	"alcyxob/nutrition-app/internal/domain"
	"alcyxob/nutrition-app/internal/repository"
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrClientNotFound     = errors.New("client user not found")
	ErrClientNotRole      = errors.New("user found but is not a client")
	ErrClientNotManaged   = errors.New("client is not managed by this trainer")
	ErrTargetNotFound     = errors.New("nutrition target not found")
	ErrNoActiveTarget     = errors.New("client has no active nutrition target")
	ErrTargetAccessDenied = errors.New("access denied to this nutrition target")
	ErrEmptyReason        = errors.New("a non-empty reason is required for target changes")
	ErrUnknownField       = errors.New("unknown adjustable field path")
)

// Field paths accepted by UpdateTarget and written to the adjustment ledger.
const (
	FieldCalories = "calories.value"
	FieldProteinG = "macros.protein.grams"
	FieldCarbsG   = "macros.carbs.grams"
	FieldFatsG    = "macros.fats.grams"
	FieldFiberG   = "macros.fiber.grams"
	FieldWaterL   = "water.liters"
)

// adjustableFields fixes the application order so ledger output is
// deterministic for a given change set.
var adjustableFields = []string{
	FieldCalories, FieldProteinG, FieldCarbsG, FieldFatsG, FieldFiberG, FieldWaterL,
}

// TargetParams are the goal-side inputs for a target calculation; the
// biometric side comes from the client's profile.
type TargetParams struct {
	Goal               domain.Goal
	Formula            domain.BMRFormula
	TargetWeeklyRateKG float64
	ExplicitAdjustment *float64
	ProteinGPerKG      *float64
	DietPreference     domain.DietPreference
	Split              *calc.CustomSplit
	PlannedDietWeeks   int
	MealsPerDay        int
	// ReviewAfterDays sets the next-review date; zero defaults to 28.
	ReviewAfterDays int
}

// AdherenceStats summarize a log window against a target.
type AdherenceStats struct {
	DaysLogged     int     `json:"daysLogged"`
	DaysWithin     int     `json:"daysWithin"`
	AdherencePct   float64 `json:"adherencePct"`
	AvgCaloriePct  float64 `json:"avgCaloriePct"`
	AvgProteinG    float64 `json:"avgProteinG"`
	WeightChangeKG float64 `json:"weightChangeKg"`
}

// AdherenceReport is the target snapshot plus window statistics and
// coaching recommendations.
type AdherenceReport struct {
	Target          *domain.NutritionTarget `json:"target"`
	Start           time.Time               `json:"start"`
	End             time.Time               `json:"end"`
	Stats           AdherenceStats          `json:"stats"`
	Recommendations []string                `json:"recommendations"`
}

// TargetService owns the nutrition target aggregate: calculation, the two
// revision strategies, queries, and reporting.
//
// The two revision strategies are deliberately distinct operations:
// UpdateTarget mutates the existing record in place and ledgers every field
// change (a manual coaching tweak); RecalculateTarget deactivates the
// current record and creates a brand-new one from refreshed biometrics (a
// full refresh with new identity). Both are supported; neither replaces
// the other.
type TargetService interface {
	CreateTarget(ctx context.Context, trainerID, clientID primitive.ObjectID, params TargetParams) (*domain.NutritionTarget, error)
	PreviewCalculation(ctx context.Context, trainerID, clientID primitive.ObjectID, params TargetParams) (*calc.Figures, error)
	UpdateTarget(ctx context.Context, actorID, targetID primitive.ObjectID, changes map[string]float64, reason string, clientFeedback *string) (*domain.NutritionTarget, error)
	RecalculateTarget(ctx context.Context, trainerID, clientID primitive.ObjectID, reason string) (*domain.NutritionTarget, error)
	GetActiveTarget(ctx context.Context, actorID primitive.ObjectID, actorRole domain.Role, clientID primitive.ObjectID) (*domain.NutritionTarget, error)
	GetTargetHistory(ctx context.Context, trainerID, clientID primitive.ObjectID, page int64) ([]domain.NutritionTarget, error)
	GetDueForReview(ctx context.Context, trainerID primitive.ObjectID) ([]domain.NutritionTarget, error)
	GetAdherenceReport(ctx context.Context, actorID primitive.ObjectID, actorRole domain.Role, targetID primitive.ObjectID, start, end time.Time) (*AdherenceReport, error)
}

// --- Service Implementation ---

type targetService struct {
	targetRepo repository.TargetRepository
	logRepo    repository.LogRepository
	userRepo   repository.UserRepository
	biometrics BiometricProvider
	// reviewDays is the review interval applied when a trainer does not
	// set one explicitly.
	reviewDays int
}

// NewTargetService creates a new instance of targetService.
func NewTargetService(
	targetRepo repository.TargetRepository,
	logRepo repository.LogRepository,
	userRepo repository.UserRepository,
	biometrics BiometricProvider,
	defaultReviewDays int,
) TargetService {
	if defaultReviewDays <= 0 {
		defaultReviewDays = 28
	}
	return &targetService{
		targetRepo: targetRepo,
		logRepo:    logRepo,
		userRepo:   userRepo,
		biometrics: biometrics,
		reviewDays: defaultReviewDays,
	}
}

// === Calculation paths ===

// CreateTarget calculates and persists a new active target for the client,
// deactivating any prior active target atomically in the store.
func (s *targetService) CreateTarget(ctx context.Context, trainerID, clientID primitive.ObjectID, params TargetParams) (*domain.NutritionTarget, error) {
	figures, err := s.calculateForClient(ctx, trainerID, clientID, params)
	if err != nil {
		return nil, err
	}
	if params.ReviewAfterDays <= 0 {
		params.ReviewAfterDays = s.reviewDays
	}

	target := targetFromFigures(clientID, trainerID, figures, params)
	if _, err := s.targetRepo.CreateActive(ctx, target); err != nil {
		return nil, err
	}
	return target, nil
}

// PreviewCalculation runs the exact calculation CreateTarget would run,
// without persisting anything. Same inputs, same code path, identical
// figures.
func (s *targetService) PreviewCalculation(ctx context.Context, trainerID, clientID primitive.ObjectID, params TargetParams) (*calc.Figures, error) {
	return s.calculateForClient(ctx, trainerID, clientID, params)
}

// calculateForClient authorizes the trainer, pulls biometrics, and runs the
// calculation library.
func (s *targetService) calculateForClient(ctx context.Context, trainerID, clientID primitive.ObjectID, params TargetParams) (*calc.Figures, error) {
	// 1. Validate inputs
	if trainerID == primitive.NilObjectID || clientID == primitive.NilObjectID {
		return nil, errors.New("trainer ID and client ID are required")
	}

	// 2. Verify the client exists and is managed by this trainer
	if err := s.authorizeTrainerForClient(ctx, trainerID, clientID); err != nil {
		return nil, err
	}

	// 3. Pull biometrics; missing required fields surface as errors here
	bio, err := s.biometrics.GetProfile(ctx, clientID)
	if err != nil {
		return nil, err
	}

	// 4. Run the calculation library
	return calc.Calculate(calc.Inputs{
		WeightKG:           bio.WeightKG,
		HeightCM:           bio.HeightCM,
		Age:                bio.Age,
		Gender:             bio.Gender,
		BodyFatPct:         bio.BodyFatPct,
		ActivityLevel:      bio.ActivityLevel,
		Goal:               params.Goal,
		Formula:            params.Formula,
		TargetWeeklyRateKG: params.TargetWeeklyRateKG,
		ExplicitAdjustment: params.ExplicitAdjustment,
		ProteinGPerKG:      params.ProteinGPerKG,
		DietPreference:     params.DietPreference,
		Split:              params.Split,
		PlannedDietWeeks:   params.PlannedDietWeeks,
		MealsPerDay:        params.MealsPerDay,
	})
}

// === Revision strategy 1: in-place ledgered update ===

// UpdateTarget mutates the target's adjustable figures in place,
// recomputing dependent percentage fields and appending one ledger entry
// per changed field. The repository write is version-guarded, so the whole
// change set commits atomically or not at all.
func (s *targetService) UpdateTarget(ctx context.Context, actorID, targetID primitive.ObjectID, changes map[string]float64, reason string, clientFeedback *string) (*domain.NutritionTarget, error) {
	if len(changes) == 0 {
		return nil, errors.New("at least one field change is required")
	}

	// 1. Get the target
	target, err := s.targetRepo.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTargetNotFound
		}
		return nil, err
	}

	// 2. Authorization: actor must be the client's trainer or the client
	if err := s.authorizeActorForTarget(ctx, actorID, target); err != nil {
		return nil, err
	}

	// 3. Apply changes and ledger them
	if _, err := ApplyFieldChanges(target, changes, reason, actorID, clientFeedback); err != nil {
		return nil, err
	}

	// 4. Persist (version-guarded)
	if err := s.targetRepo.Update(ctx, target); err != nil {
		return nil, err
	}
	return target, nil
}

// === Revision strategy 2: deactivate-and-recreate ===

// RecalculateTarget deactivates the client's current active target and
// creates a brand-new one from refreshed biometric inputs, carrying over
// the goal-side parameters of the superseded target. The new target's
// ledger opens with entries documenting the figure shifts from the old one.
func (s *targetService) RecalculateTarget(ctx context.Context, trainerID, clientID primitive.ObjectID, reason string) (*domain.NutritionTarget, error) {
	if reason == "" {
		return nil, ErrEmptyReason
	}

	// 1. The current active target supplies the goal parameters
	current, err := s.targetRepo.GetActiveByClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActiveTarget
		}
		return nil, err
	}

	params := TargetParams{
		Goal:               current.Calories.Goal,
		Formula:            current.BMR.Formula,
		TargetWeeklyRateKG: math.Abs(current.Calories.TargetWeeklyRateKG),
		MealsPerDay:        current.MealTiming.MealsPerDay,
		ReviewAfterDays:    s.reviewDays,
	}

	// 2. Recalculate with fresh biometrics
	figures, err := s.calculateForClient(ctx, trainerID, clientID, params)
	if err != nil {
		return nil, err
	}

	// 3. New identity, opening ledger entries for the shift
	target := targetFromFigures(clientID, trainerID, figures, params)
	now := time.Now().UTC()
	for _, shift := range []struct {
		path     string
		old, new float64
	}{
		{FieldCalories, current.Calories.Value, target.Calories.Value},
		{FieldProteinG, current.Macros.Protein.Grams, target.Macros.Protein.Grams},
		{FieldCarbsG, current.Macros.Carbs.Grams, target.Macros.Carbs.Grams},
		{FieldFatsG, current.Macros.Fats.Grams, target.Macros.Fats.Grams},
	} {
		if shift.old == shift.new {
			continue
		}
		target.AdjustmentLog = append(target.AdjustmentLog, domain.TargetAdjustment{
			ID:        uuid.NewString(),
			Timestamp: now,
			FieldPath: shift.path,
			OldValue:  shift.old,
			NewValue:  shift.new,
			Reason:    reason,
			ActorID:   trainerID.Hex(),
		})
	}

	// 4. Persist; the store deactivates the superseded target atomically
	if _, err := s.targetRepo.CreateActive(ctx, target); err != nil {
		return nil, err
	}
	return target, nil
}

// === Queries ===

// GetActiveTarget returns the client's active target. Clients may only
// read their own; trainers only their managed clients'.
func (s *targetService) GetActiveTarget(ctx context.Context, actorID primitive.ObjectID, actorRole domain.Role, clientID primitive.ObjectID) (*domain.NutritionTarget, error) {
	if actorRole == domain.RoleClient {
		if actorID != clientID {
			return nil, ErrTargetAccessDenied
		}
	} else if err := s.authorizeTrainerForClient(ctx, actorID, clientID); err != nil {
		return nil, err
	}

	target, err := s.targetRepo.GetActiveByClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActiveTarget
		}
		return nil, err
	}
	return target, nil
}

const historyPageSize = 20

// GetTargetHistory returns the client's targets, newest effective first.
func (s *targetService) GetTargetHistory(ctx context.Context, trainerID, clientID primitive.ObjectID, page int64) ([]domain.NutritionTarget, error) {
	if err := s.authorizeTrainerForClient(ctx, trainerID, clientID); err != nil {
		return nil, err
	}
	return s.targetRepo.GetHistoryByClient(ctx, clientID, page, historyPageSize)
}

// GetDueForReview returns the trainer's managed clients' targets whose
// next-review date has elapsed.
func (s *targetService) GetDueForReview(ctx context.Context, trainerID primitive.ObjectID) ([]domain.NutritionTarget, error) {
	due, err := s.targetRepo.GetDueForReview(ctx, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	// Scope by each client's trainerId, the same source of truth the
	// per-client authorization checks use.
	scoped := []domain.NutritionTarget{}
	for _, t := range due {
		client, err := s.userRepo.GetByID(ctx, t.ClientID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if client.TrainerID != nil && *client.TrainerID == trainerID {
			scoped = append(scoped, t)
		}
	}
	return scoped, nil
}

// GetAdherenceReport aggregates the client's logs over the window against
// the target's figures.
func (s *targetService) GetAdherenceReport(ctx context.Context, actorID primitive.ObjectID, actorRole domain.Role, targetID primitive.ObjectID, start, end time.Time) (*AdherenceReport, error) {
	target, err := s.targetRepo.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTargetNotFound
		}
		return nil, err
	}

	if actorRole == domain.RoleClient {
		if actorID != target.ClientID {
			return nil, ErrTargetAccessDenied
		}
	} else if err := s.authorizeActorForTarget(ctx, actorID, target); err != nil {
		return nil, err
	}

	logs, err := s.logRepo.GetByClientDateRange(ctx, target.ClientID, start, end)
	if err != nil {
		return nil, err
	}

	stats := computeAdherenceStats(logs)
	return &AdherenceReport{
		Target:          target,
		Start:           start,
		End:             end,
		Stats:           stats,
		Recommendations: adherenceRecommendations(target, stats),
	}, nil
}

// === Internal helpers ===

func (s *targetService) authorizeTrainerForClient(ctx context.Context, trainerID, clientID primitive.ObjectID) error {
	client, err := s.userRepo.GetByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrClientNotFound
		}
		return err
	}
	if client.Role != domain.RoleClient {
		return ErrClientNotRole
	}
	if client.TrainerID == nil || *client.TrainerID != trainerID {
		return ErrClientNotManaged
	}
	return nil
}

// authorizeActorForTarget allows the target's client or their trainer.
func (s *targetService) authorizeActorForTarget(ctx context.Context, actorID primitive.ObjectID, target *domain.NutritionTarget) error {
	if actorID == target.ClientID {
		return nil
	}
	if err := s.authorizeTrainerForClient(ctx, actorID, target.ClientID); err != nil {
		return ErrTargetAccessDenied
	}
	return nil
}

// targetFromFigures assembles a fresh NutritionTarget from calculated
// figures.
func targetFromFigures(clientID, createdBy primitive.ObjectID, figures *calc.Figures, params TargetParams) *domain.NutritionTarget {
	now := time.Now().UTC()
	reviewAfter := params.ReviewAfterDays
	if reviewAfter <= 0 {
		reviewAfter = 28
	}
	return &domain.NutritionTarget{
		ClientID:       clientID,
		CreatedBy:      createdBy,
		EffectiveDate:  now,
		NextReviewDate: now.AddDate(0, 0, reviewAfter),
		BMR:            figures.BMR,
		TDEE:           figures.TDEE,
		Calories:       figures.Calories,
		Macros:         figures.Macros,
		Water:          figures.Water,
		MealTiming:     figures.MealTiming,
		Refeed:         figures.Refeed,
		DietBreak:      figures.DietBreak,
		AdjustmentLog:  []domain.TargetAdjustment{},
	}
}

// ApplyFieldChanges sets new absolute values on the target's adjustable
// fields, appends one ledger entry per field that actually changed, and
// recomputes the dependent percentage fields. It mutates the target in
// memory only; the caller persists. Shared by the manual update path and
// the rule-driven adjustment applier.
func ApplyFieldChanges(target *domain.NutritionTarget, changes map[string]float64, reason string, actorID primitive.ObjectID, clientFeedback *string) ([]domain.AppliedAdjustment, error) {
	if reason == "" {
		return nil, ErrEmptyReason
	}
	for path := range changes {
		if !knownField(path) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, path)
		}
	}

	now := time.Now().UTC()
	var applied []domain.AppliedAdjustment
	for _, path := range adjustableFields {
		newValue, ok := changes[path]
		if !ok {
			continue
		}
		slot := fieldSlot(target, path)
		oldValue := *slot
		if newValue == oldValue {
			continue
		}
		*slot = newValue
		target.AdjustmentLog = append(target.AdjustmentLog, domain.TargetAdjustment{
			ID:             uuid.NewString(),
			Timestamp:      now,
			FieldPath:      path,
			OldValue:       oldValue,
			NewValue:       newValue,
			Reason:         reason,
			ActorID:        actorID.Hex(),
			ClientFeedback: clientFeedback,
		})
		applied = append(applied, domain.AppliedAdjustment{
			FieldPath: path,
			OldValue:  oldValue,
			NewValue:  newValue,
		})
	}

	if len(applied) > 0 {
		recomputeDerived(target)
	}
	return applied, nil
}

func knownField(path string) bool {
	for _, f := range adjustableFields {
		if f == path {
			return true
		}
	}
	return false
}

func fieldSlot(target *domain.NutritionTarget, path string) *float64 {
	switch path {
	case FieldCalories:
		return &target.Calories.Value
	case FieldProteinG:
		return &target.Macros.Protein.Grams
	case FieldCarbsG:
		return &target.Macros.Carbs.Grams
	case FieldFatsG:
		return &target.Macros.Fats.Grams
	case FieldFiberG:
		return &target.Macros.Fiber.Grams
	case FieldWaterL:
		return &target.Water.Liters
	}
	return nil
}

// recomputeDerived refreshes the percentage-of-calories and g/kg figures
// after gram or calorie changes, and the calorie adjustment relative to
// TDEE. Weight comes from the calculation-input snapshot on the BMR result.
func recomputeDerived(target *domain.NutritionTarget) {
	total := target.Calories.Value
	weight := target.BMR.Inputs["weightKg"]

	refresh := func(m *domain.MacroTarget, kcalPerGram float64) {
		if total > 0 && kcalPerGram > 0 {
			m.PctCals = math.Round(m.Grams*kcalPerGram/total*1000) / 10
		}
		if weight > 0 {
			m.GPerKG = math.Round(m.Grams/weight*100) / 100
		}
	}
	refresh(&target.Macros.Protein, 4)
	refresh(&target.Macros.Carbs, 4)
	refresh(&target.Macros.Fats, 9)

	target.Calories.Adjustment = target.Calories.Value - target.TDEE.Value
	if target.TDEE.Value > 0 {
		target.Calories.AdjustmentPct = math.Round(math.Abs(target.Calories.Adjustment)/target.TDEE.Value*1000) / 10
	}
}

func computeAdherenceStats(logs []domain.NutritionLog) AdherenceStats {
	stats := AdherenceStats{DaysLogged: len(logs)}
	if len(logs) == 0 {
		return stats
	}

	var pctSum, proteinSum float64
	var firstWeight, lastWeight *float64
	for i := range logs {
		l := logs[i]
		proteinSum += l.ProteinG
		if l.Adherence != nil {
			pctSum += l.Adherence.CaloriePct
			if l.Adherence.WithinTarget {
				stats.DaysWithin++
			}
		}
		if l.WeightKG != nil {
			if firstWeight == nil {
				firstWeight = l.WeightKG
			}
			lastWeight = l.WeightKG
		}
	}

	stats.AdherencePct = math.Round(float64(stats.DaysWithin)/float64(len(logs))*1000) / 10
	stats.AvgCaloriePct = math.Round(pctSum/float64(len(logs))*10) / 10
	stats.AvgProteinG = math.Round(proteinSum/float64(len(logs))*10) / 10
	if firstWeight != nil && lastWeight != nil {
		stats.WeightChangeKG = math.Round((*lastWeight-*firstWeight)*100) / 100
	}
	return stats
}

func adherenceRecommendations(target *domain.NutritionTarget, stats AdherenceStats) []string {
	var recs []string
	if stats.DaysLogged == 0 {
		return []string{"No logs in this window; encourage daily logging before drawing conclusions."}
	}
	if stats.AdherencePct < 70 {
		recs = append(recs, "Adherence is below 70%; consider simplifying the plan or revisiting the calorie target.")
	}
	if stats.AvgProteinG < target.Macros.Protein.Grams*0.8 {
		recs = append(recs, fmt.Sprintf("Average protein intake (%.0fg) is well below the %.0fg target; prioritize protein at each meal.", stats.AvgProteinG, target.Macros.Protein.Grams))
	}
	if target.Calories.Goal == domain.GoalWeightLoss && stats.WeightChangeKG > 0 {
		recs = append(recs, "Weight moved upward during a fat-loss phase; review intake accuracy or adjust the deficit.")
	}
	if len(recs) == 0 {
		recs = append(recs, "On track; keep the current prescription until the next review date.")
	}
	return recs
}
