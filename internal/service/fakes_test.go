package service

import (
	"context"
	"time"

	"alcyxob/nutrition-app/internal/domain"
	"alcyxob/nutrition-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory repository fakes for service tests. They mirror the mongo
// implementations' observable behavior: CreateActive deactivates the
// client's other targets, Update is version-guarded.

type fakeUserRepo struct {
	users map[primitive.ObjectID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[primitive.ObjectID]*domain.User{}}
}

func (r *fakeUserRepo) add(u *domain.User) *domain.User {
	if u.ID == primitive.NilObjectID {
		u.ID = primitive.NewObjectID()
	}
	r.users[u.ID] = u
	return u
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) (primitive.ObjectID, error) {
	r.add(user)
	return user.ID, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) AddClientIDToTrainer(_ context.Context, trainerID, clientID primitive.ObjectID) error {
	t, ok := r.users[trainerID]
	if !ok {
		return repository.ErrNotFound
	}
	t.ClientIDs = append(t.ClientIDs, clientID)
	return nil
}

func (r *fakeUserRepo) GetClientsByTrainerID(_ context.Context, trainerID primitive.ObjectID) ([]domain.User, error) {
	var out []domain.User
	for _, u := range r.users {
		if u.TrainerID != nil && *u.TrainerID == trainerID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) SetTrainerForClient(_ context.Context, clientID, trainerID primitive.ObjectID) error {
	c, ok := r.users[clientID]
	if !ok {
		return repository.ErrNotFound
	}
	c.TrainerID = &trainerID
	return nil
}

func (r *fakeUserRepo) UpdateBiometrics(_ context.Context, clientID primitive.ObjectID, bio domain.Biometrics) error {
	c, ok := r.users[clientID]
	if !ok {
		return repository.ErrNotFound
	}
	c.Biometrics = &bio
	return nil
}

type fakeTargetRepo struct {
	targets map[primitive.ObjectID]*domain.NutritionTarget
}

func newFakeTargetRepo() *fakeTargetRepo {
	return &fakeTargetRepo{targets: map[primitive.ObjectID]*domain.NutritionTarget{}}
}

func (r *fakeTargetRepo) CreateActive(_ context.Context, target *domain.NutritionTarget) (primitive.ObjectID, error) {
	target.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	target.CreatedAt = now
	target.UpdatedAt = now
	target.IsActive = true
	target.Version = 1
	for _, t := range r.targets {
		if t.ClientID == target.ClientID {
			t.IsActive = false
		}
	}
	cp := *target
	r.targets[target.ID] = &cp
	return target.ID, nil
}

func (r *fakeTargetRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.NutritionTarget, error) {
	t, ok := r.targets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTargetRepo) GetActiveByClient(_ context.Context, clientID primitive.ObjectID) (*domain.NutritionTarget, error) {
	for _, t := range r.targets {
		if t.ClientID == clientID && t.IsActive {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeTargetRepo) GetHistoryByClient(_ context.Context, clientID primitive.ObjectID, page, perPage int64) ([]domain.NutritionTarget, error) {
	var out []domain.NutritionTarget
	for _, t := range r.targets {
		if t.ClientID == clientID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *fakeTargetRepo) GetDueForReview(_ context.Context, asOf time.Time) ([]domain.NutritionTarget, error) {
	var out []domain.NutritionTarget
	for _, t := range r.targets {
		if t.IsActive && !t.NextReviewDate.After(asOf) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *fakeTargetRepo) Update(_ context.Context, target *domain.NutritionTarget) error {
	stored, ok := r.targets[target.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != target.Version {
		return repository.ErrConflict
	}
	target.Version++
	target.UpdatedAt = time.Now().UTC()
	cp := *target
	r.targets[target.ID] = &cp
	return nil
}

type fakeRuleRepo struct {
	rules map[primitive.ObjectID]*domain.AutoAdjustRule
	// updateErr is returned by the next Update call, then cleared.
	updateErr error
}

func newFakeRuleRepo() *fakeRuleRepo {
	return &fakeRuleRepo{rules: map[primitive.ObjectID]*domain.AutoAdjustRule{}}
}

// cloneRule copies the trigger history as well, so in-memory mutations on
// a fetched rule never leak into the store without an Update.
func cloneRule(rule *domain.AutoAdjustRule) *domain.AutoAdjustRule {
	cp := *rule
	cp.TriggerHistory = append([]domain.RuleTrigger(nil), rule.TriggerHistory...)
	return &cp
}

func (r *fakeRuleRepo) Create(_ context.Context, rule *domain.AutoAdjustRule) (primitive.ObjectID, error) {
	rule.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	r.rules[rule.ID] = cloneRule(rule)
	return rule.ID, nil
}

func (r *fakeRuleRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.AutoAdjustRule, error) {
	rule, ok := r.rules[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneRule(rule), nil
}

func (r *fakeRuleRepo) GetByClient(_ context.Context, clientID primitive.ObjectID) ([]domain.AutoAdjustRule, error) {
	var out []domain.AutoAdjustRule
	for _, rule := range r.rules {
		if rule.ClientID == clientID {
			out = append(out, *cloneRule(rule))
		}
	}
	return out, nil
}

func (r *fakeRuleRepo) GetActiveByClient(_ context.Context, clientID primitive.ObjectID) ([]domain.AutoAdjustRule, error) {
	var out []domain.AutoAdjustRule
	for _, rule := range r.rules {
		if rule.ClientID == clientID && rule.IsActive {
			out = append(out, *cloneRule(rule))
		}
	}
	return out, nil
}

func (r *fakeRuleRepo) Update(_ context.Context, rule *domain.AutoAdjustRule) error {
	if r.updateErr != nil {
		err := r.updateErr
		r.updateErr = nil
		return err
	}
	if _, ok := r.rules[rule.ID]; !ok {
		return repository.ErrNotFound
	}
	rule.UpdatedAt = time.Now().UTC()
	r.rules[rule.ID] = cloneRule(rule)
	return nil
}

func (r *fakeRuleRepo) Delete(_ context.Context, id primitive.ObjectID, createdBy primitive.ObjectID) error {
	rule, ok := r.rules[id]
	if !ok || rule.CreatedBy != createdBy {
		return repository.ErrNotFound
	}
	delete(r.rules, id)
	return nil
}

type fakeLogRepo struct {
	logs []domain.NutritionLog
}

func newFakeLogRepo() *fakeLogRepo {
	return &fakeLogRepo{}
}

func (r *fakeLogRepo) Create(_ context.Context, entry *domain.NutritionLog) (primitive.ObjectID, error) {
	entry.ID = primitive.NewObjectID()
	entry.CreatedAt = time.Now().UTC()
	r.logs = append(r.logs, *entry)
	return entry.ID, nil
}

func (r *fakeLogRepo) GetByClientDateRange(_ context.Context, clientID primitive.ObjectID, start, end time.Time) ([]domain.NutritionLog, error) {
	var out []domain.NutritionLog
	for _, l := range r.logs {
		if l.ClientID == clientID && !l.Date.Before(start) && !l.Date.After(end) {
			out = append(out, l)
		}
	}
	// Logs are appended in date order by the tests; good enough for the
	// ascending contract.
	return out, nil
}
