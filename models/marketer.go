package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MinLevel = 1
	MaxLevel = 10
)

// Marketer is a network participant. Revenue fields only change through
// the ledger's atomic increment.
type Marketer struct {
	ID             primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Name           string             `json:"name" bson:"name"`
	Email          string             `json:"email,omitempty" bson:"email,omitempty"`
	ReferralCode   string             `json:"referralCode" bson:"referralCode"`
	Level          int                `json:"level" bson:"level"`
	TeamRevenue    Money              `json:"teamRevenue" bson:"teamRevenue"`
	MonthlyRevenue Money              `json:"monthlyRevenue" bson:"monthlyRevenue"`
	// LastNotifiedLevel is the highest level a payment qualification was emitted for.
	LastNotifiedLevel int       `json:"lastNotifiedLevel" bson:"lastNotifiedLevel"`
	FCMToken          string    `json:"-" bson:"fcmToken,omitempty"`
	CreatedAt         time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt" bson:"updatedAt"`
}

// CreateMarketerRequest is the admin onboarding payload
type CreateMarketerRequest struct {
	Name  string `json:"name" validate:"required,min=2,max=120"`
	Email string `json:"email" validate:"omitempty,email"`
	Level int    `json:"level" validate:"omitempty,min=1,max=10"`
}
