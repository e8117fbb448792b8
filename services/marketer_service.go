package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/affiliate_backend/models"
	"github.com/HSouheill/affiliate_backend/repositories"
	"github.com/HSouheill/affiliate_backend/utils"
)

const referralCodeAttempts = 5

// MarketerService onboards marketers and manages their device tokens.
type MarketerService struct {
	ledger repositories.LedgerStore
}

func NewMarketerService(ledger repositories.LedgerStore) *MarketerService {
	return &MarketerService{ledger: ledger}
}

// Create stores a new marketer with a freshly generated referral code.
func (s *MarketerService) Create(ctx context.Context, req models.CreateMarketerRequest) (*models.Marketer, error) {
	level := req.Level
	if level == 0 {
		level = models.MinLevel
	}
	if level < models.MinLevel || level > models.MaxLevel {
		return nil, fmt.Errorf("%w: level must be between %d and %d", ErrInvalidInput, models.MinLevel, models.MaxLevel)
	}

	marketer := &models.Marketer{
		Name:  utils.SanitizeInput(req.Name),
		Email: utils.SanitizeEmail(req.Email),
		Level: level,
	}
	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		code, err := utils.GenerateMarketerReferralCode()
		if err != nil {
			return nil, err
		}
		if _, err := s.ledger.FindMarketerByReferralCode(ctx, code); err == nil {
			continue
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		marketer.ReferralCode = code
		break
	}
	if marketer.ReferralCode == "" {
		return nil, fmt.Errorf("%w: could not allocate a referral code", ErrPersistence)
	}

	if err := s.ledger.CreateMarketer(ctx, marketer); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	log.Printf("Marketer %s created with referral code %s", marketer.ID.Hex(), marketer.ReferralCode)
	return marketer, nil
}

func (s *MarketerService) Get(ctx context.Context, id string) (*models.Marketer, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid marketer id", ErrInvalidInput)
	}
	return s.ledger.GetMarketer(ctx, objID)
}

// UpdateFCMToken registers the device that receives push for the marketer.
func (s *MarketerService) UpdateFCMToken(ctx context.Context, id, token string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: invalid marketer id", ErrInvalidInput)
	}
	return s.ledger.UpdateFCMToken(ctx, objID, token)
}
