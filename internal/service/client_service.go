package service

import (
	"alcyxob/nutrition-app/internal/domain"
	"alcyxob/nutrition-app/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrLogAccessDenied = errors.New("access denied to this client's logs")
	ErrInvalidLogEntry = errors.New("invalid log entry")
)

// LogInput is one day's intake record as submitted by the client.
type LogInput struct {
	Date     time.Time
	Calories float64
	ProteinG float64
	CarbsG   *float64
	FatsG    *float64
	FiberG   *float64
	WeightKG *float64
	WaterL   *float64
	Sleep    *domain.SleepQuality
	Mood     *string
	Energy   *domain.EnergyLevel
}

// ClientService covers the client-side surface: biometric profile upkeep
// and daily logging. Logs capture a snapshot of the active target at
// logging time so adherence stays meaningful after later adjustments.
type ClientService interface {
	UpdateBiometrics(ctx context.Context, actorID primitive.ObjectID, actorRole domain.Role, clientID primitive.ObjectID, bio domain.Biometrics) error
	LogDay(ctx context.Context, clientID primitive.ObjectID, input LogInput) (*domain.NutritionLog, error)
	GetLogs(ctx context.Context, actorID primitive.ObjectID, actorRole domain.Role, clientID primitive.ObjectID, start, end time.Time) ([]domain.NutritionLog, error)
}

type clientService struct {
	userRepo   repository.UserRepository
	logRepo    repository.LogRepository
	targetRepo repository.TargetRepository
}

// NewClientService creates a new instance of clientService.
func NewClientService(
	userRepo repository.UserRepository,
	logRepo repository.LogRepository,
	targetRepo repository.TargetRepository,
) ClientService {
	return &clientService{
		userRepo:   userRepo,
		logRepo:    logRepo,
		targetRepo: targetRepo,
	}
}

// UpdateBiometrics records the client's profile. Clients may update their
// own; trainers those of clients they manage.
func (s *clientService) UpdateBiometrics(ctx context.Context, actorID primitive.ObjectID, actorRole domain.Role, clientID primitive.ObjectID, bio domain.Biometrics) error {
	if actorRole == domain.RoleClient && actorID != clientID {
		return ErrLogAccessDenied
	}
	if actorRole == domain.RoleTrainer {
		client, err := s.userRepo.GetByID(ctx, clientID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrClientNotFound
			}
			return err
		}
		if client.TrainerID == nil || *client.TrainerID != actorID {
			return ErrClientNotManaged
		}
	}

	if bio.WeightKG <= 0 || bio.HeightCM <= 0 || bio.Age <= 0 {
		return errors.New("weight, height, and age must be positive")
	}
	if bio.Gender != domain.GenderMale && bio.Gender != domain.GenderFemale {
		return errors.New("unsupported gender value")
	}
	return s.userRepo.UpdateBiometrics(ctx, clientID, bio)
}

// LogDay records one day's intake, snapshotting the active target (if any)
// and computing adherence against it with the fixed ±10% band.
func (s *clientService) LogDay(ctx context.Context, clientID primitive.ObjectID, input LogInput) (*domain.NutritionLog, error) {
	if input.Date.IsZero() {
		return nil, errors.New("log date is required")
	}
	if input.Calories < 0 || input.ProteinG < 0 {
		return nil, ErrInvalidLogEntry
	}

	entry := &domain.NutritionLog{
		ClientID: clientID,
		Date:     input.Date.UTC(),
		Calories: input.Calories,
		ProteinG: input.ProteinG,
		CarbsG:   input.CarbsG,
		FatsG:    input.FatsG,
		FiberG:   input.FiberG,
		WeightKG: input.WeightKG,
		WaterL:   input.WaterL,
		Sleep:    input.Sleep,
		Mood:     input.Mood,
		Energy:   input.Energy,
	}

	// A missing active target is fine here: the day is still logged, it
	// just carries no adherence figures.
	target, err := s.targetRepo.GetActiveByClient(ctx, clientID)
	if err == nil {
		snapshot := domain.TargetSnapshot{
			Calories: target.Calories.Value,
			ProteinG: target.Macros.Protein.Grams,
		}
		adherence := domain.ComputeAdherence(input.Calories, snapshot)
		entry.Target = &snapshot
		entry.Adherence = &adherence
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	if _, err := s.logRepo.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// GetLogs returns the client's logs in the window, oldest first.
func (s *clientService) GetLogs(ctx context.Context, actorID primitive.ObjectID, actorRole domain.Role, clientID primitive.ObjectID, start, end time.Time) ([]domain.NutritionLog, error) {
	if actorRole == domain.RoleClient && actorID != clientID {
		return nil, ErrLogAccessDenied
	}
	if actorRole == domain.RoleTrainer {
		client, err := s.userRepo.GetByID(ctx, clientID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrClientNotFound
			}
			return nil, err
		}
		if client.TrainerID == nil || *client.TrainerID != actorID {
			return nil, ErrClientNotManaged
		}
	}
	return s.logRepo.GetByClientDateRange(ctx, clientID, start, end)
}
