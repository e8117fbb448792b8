package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const SaleStatusCompleted = "completed"

// Sale is written once per resolved referral code and never mutated.
type Sale struct {
	ID             primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	MarketerID     primitive.ObjectID `json:"marketerId" bson:"marketerId"`
	ReferralCode   string             `json:"referralCode" bson:"referralCode"`
	Amount         Money              `json:"amount" bson:"amount"`
	ProductID      string             `json:"productId" bson:"productId"`
	CustomerID     string             `json:"customerId" bson:"customerId"`
	IdempotencyKey string             `json:"-" bson:"idempotencyKey,omitempty"`
	Status         string             `json:"status" bson:"status"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
}

// RecordSaleRequest is the inbound sale payload
type RecordSaleRequest struct {
	ReferralCode string  `json:"referralCode" validate:"required,max=64"`
	Amount       float64 `json:"amount" validate:"required,gt=0"`
	ProductID    string  `json:"productId" validate:"required,max=128"`
	CustomerID   string  `json:"customerId" validate:"required,max=128"`
}

// SaleResult is returned by RecordSale whether or not a qualification fired.
type SaleResult struct {
	Success      bool   `json:"success"`
	Sale         Sale   `json:"sale"`
	MarketerName string `json:"marketerName"`
	Amount       Money  `json:"amount"`
}
