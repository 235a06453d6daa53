package repository

import (
	"alcyxob/nutrition-app/internal/domain" // Import our defined domain models
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive" // For using ObjectIDs
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
	// ErrConflict signals a version mismatch on an optimistic update; the
	// caller should re-read and retry or surface the conflict.
	ErrConflict = RepositoryError("version conflict")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	AddClientIDToTrainer(ctx context.Context, trainerID, clientID primitive.ObjectID) error
	GetClientsByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.User, error)
	SetTrainerForClient(ctx context.Context, clientID, trainerID primitive.ObjectID) error
	UpdateBiometrics(ctx context.Context, clientID primitive.ObjectID, bio domain.Biometrics) error
}

// TargetRepository defines the interface for interacting with nutrition
// target data. It owns the single-active-per-client invariant: CreateActive
// is the only way to produce an active target, and it atomically
// deactivates all other targets for the client in the same operation.
type TargetRepository interface {
	// CreateActive inserts the target with IsActive=true and deactivates
	// every other target for the same client, atomically.
	CreateActive(ctx context.Context, target *domain.NutritionTarget) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.NutritionTarget, error)
	GetActiveByClient(ctx context.Context, clientID primitive.ObjectID) (*domain.NutritionTarget, error)
	// GetHistoryByClient returns targets ordered by effective date
	// descending. Page is 1-based.
	GetHistoryByClient(ctx context.Context, clientID primitive.ObjectID, page, perPage int64) ([]domain.NutritionTarget, error)
	GetDueForReview(ctx context.Context, asOf time.Time) ([]domain.NutritionTarget, error)
	// Update replaces the stored document if the stored version matches
	// target.Version, then increments it. Mismatch returns ErrConflict.
	// This is the only mutation path; ledger entries are only appended.
	Update(ctx context.Context, target *domain.NutritionTarget) error
}

// RuleRepository defines the interface for interacting with auto-adjust
// rule data.
type RuleRepository interface {
	Create(ctx context.Context, rule *domain.AutoAdjustRule) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.AutoAdjustRule, error)
	GetByClient(ctx context.Context, clientID primitive.ObjectID) ([]domain.AutoAdjustRule, error)
	GetActiveByClient(ctx context.Context, clientID primitive.ObjectID) ([]domain.AutoAdjustRule, error)
	Update(ctx context.Context, rule *domain.AutoAdjustRule) error
	Delete(ctx context.Context, id primitive.ObjectID, createdBy primitive.ObjectID) error
}

// LogRepository defines the read-mostly interface over client daily logs.
// The rule engine only ever reads; creation exists so clients can record
// their day.
type LogRepository interface {
	Create(ctx context.Context, entry *domain.NutritionLog) (primitive.ObjectID, error)
	// GetByClientDateRange returns logs ordered by date ascending,
	// inclusive of both bounds.
	GetByClientDateRange(ctx context.Context, clientID primitive.ObjectID, start, end time.Time) ([]domain.NutritionLog, error)
}
