package service

import (
	"alcyxob/nutrition-app/internal/domain"
	"alcyxob/nutrition-app/internal/repository"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNoAdjustments means a rule triggered but its actions carry no deltas.
var ErrNoAdjustments = errors.New("rule actions contain no adjustments to apply")

// AdjustmentOutcome reports what an application actually changed, for
// caller reporting and notifications.
type AdjustmentOutcome struct {
	TargetID primitive.ObjectID         `json:"targetId"`
	Applied  []domain.AppliedAdjustment `json:"applied"`
}

// AdjustmentApplier applies a rule's configured deltas to the client's
// active target. All deltas commit through one version-guarded target
// write together with their ledger entries, or not at all. A missing
// active target is a reported failure, never a silent skip.
type AdjustmentApplier interface {
	Apply(ctx context.Context, rule *domain.AutoAdjustRule, actorID primitive.ObjectID) (*AdjustmentOutcome, error)
}

type adjustmentApplier struct {
	targetRepo repository.TargetRepository
}

// NewAdjustmentApplier creates a new instance of adjustmentApplier.
func NewAdjustmentApplier(targetRepo repository.TargetRepository) AdjustmentApplier {
	return &adjustmentApplier{targetRepo: targetRepo}
}

// Apply computes new absolute values from the rule's deltas against the
// current figures and writes them through the ledgered update path.
func (a *adjustmentApplier) Apply(ctx context.Context, rule *domain.AutoAdjustRule, actorID primitive.ObjectID) (*AdjustmentOutcome, error) {
	// 1. The client must have an active target to adjust
	target, err := a.targetRepo.GetActiveByClient(ctx, rule.ClientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActiveTarget
		}
		return nil, err
	}

	// 2. Compute new absolute values. The percentage delta works off the
	// target's current calorie value, not TDEE.
	changes, descriptions := ruleChanges(rule.Actions, target)
	if len(changes) == 0 {
		return nil, ErrNoAdjustments
	}

	reason := fmt.Sprintf("Auto-adjustment rule %q: %s", rule.Name, strings.Join(descriptions, ", "))

	// 3. Mutate and ledger in memory, then commit in one write
	applied, err := ApplyFieldChanges(target, changes, reason, actorID, nil)
	if err != nil {
		return nil, err
	}
	if err := a.targetRepo.Update(ctx, target); err != nil {
		return nil, err
	}

	return &AdjustmentOutcome{TargetID: target.ID, Applied: applied}, nil
}

// ruleChanges translates action deltas into absolute field values plus
// human-readable delta descriptions for the ledger reason.
func ruleChanges(actions domain.RuleActions, target *domain.NutritionTarget) (map[string]float64, []string) {
	changes := map[string]float64{}
	var descriptions []string

	calorieDelta := actions.CalorieDelta
	if actions.CaloriePctDelta != 0 {
		calorieDelta += math.Round(target.Calories.Value * actions.CaloriePctDelta / 100)
	}
	if calorieDelta != 0 {
		changes[FieldCalories] = target.Calories.Value + calorieDelta
		descriptions = append(descriptions, fmt.Sprintf("calories %+.0f kcal", calorieDelta))
	}
	if actions.ProteinDeltaG != 0 {
		changes[FieldProteinG] = target.Macros.Protein.Grams + actions.ProteinDeltaG
		descriptions = append(descriptions, fmt.Sprintf("protein %+.0f g", actions.ProteinDeltaG))
	}
	if actions.CarbDeltaG != 0 {
		changes[FieldCarbsG] = target.Macros.Carbs.Grams + actions.CarbDeltaG
		descriptions = append(descriptions, fmt.Sprintf("carbs %+.0f g", actions.CarbDeltaG))
	}
	if actions.FatDeltaG != 0 {
		changes[FieldFatsG] = target.Macros.Fats.Grams + actions.FatDeltaG
		descriptions = append(descriptions, fmt.Sprintf("fat %+.0f g", actions.FatDeltaG))
	}
	return changes, descriptions
}
