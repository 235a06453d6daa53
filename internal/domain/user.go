package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role type to distinguish between user roles
type Role string

// Define constants for roles
const (
	RoleTrainer Role = "trainer"
	RoleClient  Role = "client"
)

// Gender values accepted by the calculation formulas.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// ActivityLevel is one of the five fixed TDEE activity levels.
type ActivityLevel string

const (
	ActivitySedentary        ActivityLevel = "sedentary"
	ActivityLightlyActive    ActivityLevel = "lightly_active"
	ActivityModeratelyActive ActivityLevel = "moderately_active"
	ActivityVeryActive       ActivityLevel = "very_active"
	ActivityExtraActive      ActivityLevel = "extra_active"
)

// Biometrics holds the client profile data the calculation library consumes.
// BodyFatPct is optional; the Katch-McArdle formula requires it and fails
// validation when it is absent.
type Biometrics struct {
	WeightKG      float64       `bson:"weightKg" json:"weightKg"`
	HeightCM      float64       `bson:"heightCm" json:"heightCm"`
	Age           int           `bson:"age" json:"age"`
	Gender        Gender        `bson:"gender" json:"gender"`
	BodyFatPct    *float64      `bson:"bodyFatPct,omitempty" json:"bodyFatPct,omitempty"`
	ActivityLevel ActivityLevel `bson:"activityLevel" json:"activityLevel"`
	UpdatedAt     time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// User represents a user in the system (either a Trainer or a Client).
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`    // Should be unique
	PasswordHash string             `bson:"passwordHash" json:"-"` // Never expose this via JSON
	Role         Role               `bson:"role" json:"role"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`

	// --- Trainer-specific ---
	// Stores ObjectIDs of Clients managed by this Trainer.
	ClientIDs []primitive.ObjectID `bson:"clientIds,omitempty" json:"clientIds,omitempty"`

	// --- Client-specific ---
	// Stores the ObjectID of the Trainer managing this Client.
	TrainerID *primitive.ObjectID `bson:"trainerId,omitempty" json:"trainerId,omitempty"`
	// Biometric profile used to calculate nutrition targets. Nil until the
	// client (or their trainer) records it.
	Biometrics *Biometrics `bson:"biometrics,omitempty" json:"biometrics,omitempty"`
}

func (u *User) IsTrainer() bool {
	return u.Role == RoleTrainer
}

func (u *User) IsClient() bool {
	return u.Role == RoleClient
}
