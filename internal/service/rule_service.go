package service

import (
	"alcyxob/nutrition-app/internal/domain"
	"alcyxob/nutrition-app/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrRuleNotFound     = errors.New("auto-adjust rule not found")
	ErrRuleAccessDenied = errors.New("access denied to this auto-adjust rule")
	ErrNoPendingTrigger = errors.New("rule has no pending trigger awaiting approval")
	ErrInvalidRuleInput = errors.New("invalid rule definition")
)

const defaultCheckFrequencyDays = 7

// RuleInput is the trainer-authored definition for create/update.
type RuleInput struct {
	Name               string
	Conditions         domain.RuleConditions
	Actions            domain.RuleActions
	IsActive           bool
	AutoApply          bool
	CheckFrequencyDays int
}

// RuleCheckResult reports one rule's evaluation. Failures in one rule never
// abort its siblings; they land in Error here instead.
type RuleCheckResult struct {
	RuleID          primitive.ObjectID         `json:"ruleId"`
	RuleName        string                     `json:"ruleName"`
	Skipped         bool                       `json:"skipped"`
	Triggered       bool                       `json:"triggered"`
	Applied         bool                       `json:"applied"`
	PendingApproval bool                       `json:"pendingApproval"`
	Detail          string                     `json:"detail,omitempty"`
	Conditions      []domain.ConditionSnapshot `json:"conditions,omitempty"`
	Outcome         *AdjustmentOutcome         `json:"outcome,omitempty"`
	Error           string                     `json:"error,omitempty"`
}

// RuleService owns trainer-authored auto-adjustment rules and their
// evaluation state machine:
//
//	Idle → Evaluating → {NotTriggered | Triggered}
//	Triggered → {AutoApplied | PendingApproval}
//	PendingApproval → Approved → Applied
type RuleService interface {
	CreateRule(ctx context.Context, trainerID, clientID primitive.ObjectID, input RuleInput) (*domain.AutoAdjustRule, error)
	UpdateRule(ctx context.Context, trainerID, ruleID primitive.ObjectID, input RuleInput) (*domain.AutoAdjustRule, error)
	DeleteRule(ctx context.Context, trainerID, ruleID primitive.ObjectID) error
	ListRules(ctx context.Context, trainerID, clientID primitive.ObjectID) ([]domain.AutoAdjustRule, error)
	// CheckRules evaluates every active rule for the client. Side-effecting:
	// triggered rules with autoApply mutate the active target.
	CheckRules(ctx context.Context, trainerID, clientID primitive.ObjectID) ([]RuleCheckResult, error)
	// ApproveRule applies the adjustments of the most recent pending
	// trigger and marks it approved with the supplied approver identity.
	ApproveRule(ctx context.Context, approverID, ruleID primitive.ObjectID) (*AdjustmentOutcome, error)
}

// --- Service Implementation ---

type ruleService struct {
	ruleRepo repository.RuleRepository
	logRepo  repository.LogRepository
	userRepo repository.UserRepository
	applier  AdjustmentApplier
	// now is injectable for deterministic checks in tests.
	now func() time.Time
}

// NewRuleService creates a new instance of ruleService.
func NewRuleService(
	ruleRepo repository.RuleRepository,
	logRepo repository.LogRepository,
	userRepo repository.UserRepository,
	applier AdjustmentApplier,
) RuleService {
	return &ruleService{
		ruleRepo: ruleRepo,
		logRepo:  logRepo,
		userRepo: userRepo,
		applier:  applier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// === Rule CRUD ===

// CreateRule validates and stores a new rule for a managed client.
func (s *ruleService) CreateRule(ctx context.Context, trainerID, clientID primitive.ObjectID, input RuleInput) (*domain.AutoAdjustRule, error) {
	if trainerID == primitive.NilObjectID || clientID == primitive.NilObjectID {
		return nil, errors.New("trainer ID and client ID are required")
	}
	if err := s.authorizeTrainer(ctx, trainerID, clientID); err != nil {
		return nil, err
	}
	if err := validateRuleInput(input); err != nil {
		return nil, err
	}

	freq := input.CheckFrequencyDays
	if freq <= 0 {
		freq = defaultCheckFrequencyDays
	}
	rule := &domain.AutoAdjustRule{
		ClientID:           clientID,
		CreatedBy:          trainerID,
		Name:               input.Name,
		Conditions:         input.Conditions,
		Actions:            input.Actions,
		IsActive:           input.IsActive,
		AutoApply:          input.AutoApply,
		CheckFrequencyDays: freq,
	}
	if _, err := s.ruleRepo.Create(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// UpdateRule replaces the rule's definition. Trigger history and
// bookkeeping survive the update untouched.
func (s *ruleService) UpdateRule(ctx context.Context, trainerID, ruleID primitive.ObjectID, input RuleInput) (*domain.AutoAdjustRule, error) {
	rule, err := s.getOwnedRule(ctx, trainerID, ruleID)
	if err != nil {
		return nil, err
	}
	if err := validateRuleInput(input); err != nil {
		return nil, err
	}

	rule.Name = input.Name
	rule.Conditions = input.Conditions
	rule.Actions = input.Actions
	rule.IsActive = input.IsActive
	rule.AutoApply = input.AutoApply
	if input.CheckFrequencyDays > 0 {
		rule.CheckFrequencyDays = input.CheckFrequencyDays
	}

	if err := s.ruleRepo.Update(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// DeleteRule removes the rule entirely.
func (s *ruleService) DeleteRule(ctx context.Context, trainerID, ruleID primitive.ObjectID) error {
	err := s.ruleRepo.Delete(ctx, ruleID, trainerID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrRuleNotFound
	}
	return err
}

// ListRules returns all rules for a managed client, newest first.
func (s *ruleService) ListRules(ctx context.Context, trainerID, clientID primitive.ObjectID) ([]domain.AutoAdjustRule, error) {
	if err := s.authorizeTrainer(ctx, trainerID, clientID); err != nil {
		return nil, err
	}
	return s.ruleRepo.GetByClient(ctx, clientID)
}

// === Evaluation ===

// CheckRules evaluates each of the client's active rules independently.
// One rule's failure is reported in its result and never aborts siblings.
func (s *ruleService) CheckRules(ctx context.Context, trainerID, clientID primitive.ObjectID) ([]RuleCheckResult, error) {
	if err := s.authorizeTrainer(ctx, trainerID, clientID); err != nil {
		return nil, err
	}

	rules, err := s.ruleRepo.GetActiveByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	asOf := s.now()
	results := make([]RuleCheckResult, 0, len(rules))
	for i := range rules {
		results = append(results, s.checkRule(ctx, &rules[i], asOf))
	}
	return results, nil
}

// checkRule runs one rule through the evaluation state machine.
func (s *ruleService) checkRule(ctx context.Context, rule *domain.AutoAdjustRule, asOf time.Time) RuleCheckResult {
	result := RuleCheckResult{RuleID: rule.ID, RuleName: rule.Name}

	// 1. Frequency gate: a rule checked more recently than its cadence is
	// skipped without touching its bookkeeping.
	if rule.LastChecked != nil && asOf.Sub(*rule.LastChecked) < time.Duration(rule.CheckFrequencyDays)*24*time.Hour {
		result.Skipped = true
		result.Detail = fmt.Sprintf("checked %s ago, cadence is %dd", asOf.Sub(*rule.LastChecked).Round(time.Minute), rule.CheckFrequencyDays)
		return result
	}

	// Every non-skipped check updates lastChecked, trigger or not.
	defer func() {
		checked := asOf
		rule.LastChecked = &checked
		if err := s.ruleRepo.Update(ctx, rule); err != nil && result.Error == "" {
			result.Error = err.Error()
		}
	}()

	if !rule.HasEnabledCondition() {
		result.Detail = "no enabled conditions"
		return result
	}

	// 2. Idempotency guard: a trigger inside the widest condition window
	// still covers this check; re-running over the same data must not
	// double-apply.
	windowWeeks := rule.WidestWindowWeeks()
	if rule.LastTriggered != nil && asOf.Sub(*rule.LastTriggered) < time.Duration(windowWeeks)*7*24*time.Hour {
		result.Detail = fmt.Sprintf("covered by trigger at %s; window is %d week(s)", rule.LastTriggered.Format(time.RFC3339), windowWeeks)
		return result
	}

	// 3. Pull logs for the union of all enabled condition windows.
	windowStart := asOf.AddDate(0, 0, -7*windowWeeks)
	logs, err := s.logRepo.GetByClientDateRange(ctx, rule.ClientID, windowStart, asOf)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	// 4. Evaluate each enabled condition; all must hold (logical AND).
	triggered := true
	if c := rule.Conditions.WeightTrend; c != nil && c.Enabled {
		r := EvaluateWeightTrend(*c, logs, asOf)
		result.Conditions = append(result.Conditions, r.Snapshot("weight_trend"))
		triggered = triggered && r.Met
	}
	if c := rule.Conditions.Adherence; c != nil && c.Enabled {
		r := EvaluateAdherence(*c, logs, asOf)
		result.Conditions = append(result.Conditions, r.Snapshot("adherence"))
		triggered = triggered && r.Met
	}
	if c := rule.Conditions.Performance; c != nil && c.Enabled {
		r := EvaluatePerformance(*c, logs, asOf)
		result.Conditions = append(result.Conditions, r.Snapshot("performance"))
		triggered = triggered && r.Met
	}
	if !triggered {
		result.Detail = "one or more enabled conditions not met"
		return result
	}

	// 5. Trigger: bookkeeping happens whether or not the adjustment
	// auto-applies.
	result.Triggered = true
	trigger := domain.RuleTrigger{
		ID:         uuid.NewString(),
		Date:       asOf,
		Conditions: result.Conditions,
	}
	when := asOf
	rule.LastTriggered = &when
	rule.TriggerCount++

	if !rule.AutoApply || rule.Actions.RequiresApproval {
		rule.TriggerHistory = append(rule.TriggerHistory, trigger)
		result.PendingApproval = true
		result.Detail = "trigger recorded; awaiting approval"
		return result
	}

	// Auto-apply: the trigger is approved on behalf of the rule's creator
	// and committed BEFORE the target mutation. The idempotency guard reads
	// lastTriggered from the store, so a failed write after application
	// would otherwise let a retried check apply the same adjustment twice;
	// this ordering can only lose an adjustment, never double it.
	approver := rule.CreatedBy
	trigger.Approved = true
	trigger.ApprovedBy = &approver
	rule.TriggerHistory = append(rule.TriggerHistory, trigger)
	checked := asOf
	rule.LastChecked = &checked
	if err := s.ruleRepo.Update(ctx, rule); err != nil {
		result.Error = err.Error()
		return result
	}

	outcome, err := s.applier.Apply(ctx, rule, rule.CreatedBy)
	if err != nil {
		// The trigger stays on record; the failed application is reported,
		// not silently dropped.
		result.Error = err.Error()
		return result
	}
	rule.TriggerHistory[len(rule.TriggerHistory)-1].Adjustments = outcome.Applied
	result.Applied = true
	result.Outcome = outcome
	return result
}

// ApproveRule applies the most recent pending trigger's adjustments and
// marks it approved. Approving an already-approved trigger is rejected.
func (s *ruleService) ApproveRule(ctx context.Context, approverID, ruleID primitive.ObjectID) (*AdjustmentOutcome, error) {
	rule, err := s.getOwnedRule(ctx, approverID, ruleID)
	if err != nil {
		return nil, err
	}

	if len(rule.TriggerHistory) == 0 {
		return nil, ErrNoPendingTrigger
	}
	last := &rule.TriggerHistory[len(rule.TriggerHistory)-1]
	if last.Approved {
		return nil, ErrNoPendingTrigger
	}

	// The approval is committed before the target mutation; a write failure
	// after application could otherwise leave the trigger pending and let a
	// retried approval apply the adjustment twice.
	last.Approved = true
	last.ApprovedBy = &approverID
	if err := s.ruleRepo.Update(ctx, rule); err != nil {
		return nil, err
	}

	outcome, err := s.applier.Apply(ctx, rule, approverID)
	if err != nil {
		// Roll the approval back so the trigger can be retried. If the
		// revert write fails the trigger stays consumed rather than risk a
		// double application.
		last.Approved = false
		last.ApprovedBy = nil
		_ = s.ruleRepo.Update(ctx, rule)
		return nil, err
	}

	last.Adjustments = outcome.Applied
	if err := s.ruleRepo.Update(ctx, rule); err != nil {
		return nil, err
	}
	return outcome, nil
}

// === Internal helpers ===

// authorizeTrainer verifies the trainer manages the client.
func (s *ruleService) authorizeTrainer(ctx context.Context, trainerID, clientID primitive.ObjectID) error {
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

// getOwnedRule fetches a rule and verifies the trainer created it.
func (s *ruleService) getOwnedRule(ctx context.Context, trainerID, ruleID primitive.ObjectID) (*domain.AutoAdjustRule, error) {
	rule, err := s.ruleRepo.GetByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRuleNotFound
		}
		return nil, err
	}
	if rule.CreatedBy != trainerID {
		return nil, ErrRuleAccessDenied
	}
	return rule, nil
}

// validateRuleInput rejects unusable definitions before they are stored.
func validateRuleInput(input RuleInput) error {
	if input.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRuleInput)
	}
	if c := input.Conditions.WeightTrend; c != nil && c.Enabled {
		if c.WindowWeeks <= 0 {
			return fmt.Errorf("%w: weight-trend window must be positive", ErrInvalidRuleInput)
		}
		if c.ThresholdKGPerWeek <= 0 {
			return fmt.Errorf("%w: weight-trend threshold must be positive", ErrInvalidRuleInput)
		}
		switch c.Direction {
		case domain.TrendIncreasing, domain.TrendDecreasing, domain.TrendStable:
		default:
			return fmt.Errorf("%w: unknown trend direction %q", ErrInvalidRuleInput, c.Direction)
		}
	}
	if c := input.Conditions.Adherence; c != nil && c.Enabled {
		if c.WindowWeeks <= 0 {
			return fmt.Errorf("%w: adherence window must be positive", ErrInvalidRuleInput)
		}
		if c.MinPercent <= 0 || c.MinPercent > 100 {
			return fmt.Errorf("%w: adherence minimum must be in (0,100]", ErrInvalidRuleInput)
		}
	}
	if c := input.Conditions.Performance; c != nil && c.Enabled {
		switch c.Signal {
		case domain.SignalEnergy, domain.SignalSleep:
		default:
			return fmt.Errorf("%w: unknown performance signal %q", ErrInvalidRuleInput, c.Signal)
		}
	}
	return nil
}
