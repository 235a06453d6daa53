package service

import (
	"alcyxob/nutrition-app/internal/domain"
	"alcyxob/nutrition-app/internal/repository"
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrProfileNotFound   = errors.New("client profile not found")
	ErrProfileIncomplete = errors.New("client biometric profile is incomplete")
)

// BiometricProvider supplies the biometric inputs the calculation library
// needs. Absence of a required field is surfaced as an error to the caller,
// never silently defaulted.
type BiometricProvider interface {
	GetProfile(ctx context.Context, clientID primitive.ObjectID) (*domain.Biometrics, error)
}

// userBiometricProvider reads the profile off the client's user record.
type userBiometricProvider struct {
	userRepo repository.UserRepository
}

// NewBiometricProvider creates a provider backed by the user store.
func NewBiometricProvider(userRepo repository.UserRepository) BiometricProvider {
	return &userBiometricProvider{userRepo: userRepo}
}

// GetProfile fetches and validates the client's biometrics.
func (p *userBiometricProvider) GetProfile(ctx context.Context, clientID primitive.ObjectID) (*domain.Biometrics, error) {
	user, err := p.userRepo.GetByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	bio := user.Biometrics
	if bio == nil {
		return nil, ErrProfileNotFound
	}
	if bio.WeightKG <= 0 || bio.HeightCM <= 0 || bio.Age <= 0 || bio.Gender == "" || bio.ActivityLevel == "" {
		return nil, ErrProfileIncomplete
	}
	return bio, nil
}
