package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/affiliate_backend/metrics"
	"github.com/HSouheill/affiliate_backend/models"
	"github.com/HSouheill/affiliate_backend/repositories"
	"github.com/HSouheill/affiliate_backend/utils"
)

const (
	marketerSalesLimit = 10
	globalSalesLimit   = 50
)

// SaleInput is a validated sale event.
type SaleInput struct {
	ReferralCode   string
	Amount         models.Money
	ProductID      string
	CustomerID     string
	IdempotencyKey string
}

// QualificationService records sales and decides payment qualification.
type QualificationService struct {
	ledger        repositories.LedgerStore
	tiers         *TierTable
	notifications *NotificationService
	idempotency   IdempotencyStore
	payouts       PayoutPublisher
	now           func() time.Time
}

func NewQualificationService(ledger repositories.LedgerStore, tiers *TierTable, notifications *NotificationService, idempotency IdempotencyStore, payouts PayoutPublisher) *QualificationService {
	if idempotency == nil {
		idempotency = NewMemoryIdempotencyStore()
	}
	if payouts == nil {
		payouts = NoopPayoutPublisher{}
	}
	return &QualificationService{
		ledger:        ledger,
		tiers:         tiers,
		notifications: notifications,
		idempotency:   idempotency,
		payouts:       payouts,
		now:           time.Now,
	}
}

// RecordSale stores the sale, bumps the marketer's revenue and fires at most
// one payment qualification per level crossing.
func (s *QualificationService) RecordSale(ctx context.Context, in SaleInput) (*models.SaleResult, error) {
	in.ReferralCode = utils.NormalizeReferralCode(in.ReferralCode)
	if in.ReferralCode == "" || in.Amount <= 0 || in.ProductID == "" || in.CustomerID == "" {
		metrics.SaleErrorsTotal.WithLabelValues("input").Inc()
		return nil, fmt.Errorf("%w: referral code, positive amount, product and customer are required", ErrInvalidInput)
	}
	if in.Amount > models.MaxAmount {
		metrics.SaleErrorsTotal.WithLabelValues("input").Inc()
		return nil, fmt.Errorf("%w: amount above %s", ErrInvalidInput, models.MaxAmount)
	}

	if in.IdempotencyKey == "" {
		return s.recordSale(ctx, in)
	}

	prior, err := s.idempotency.Begin(ctx, in.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		return prior, nil
	}
	result, err := s.recordSale(ctx, in)
	if err != nil {
		if abortErr := s.idempotency.Abort(ctx, in.IdempotencyKey); abortErr != nil {
			log.Printf("Failed to release idempotency key %s: %v", in.IdempotencyKey, abortErr)
		}
		return nil, err
	}
	if err := s.idempotency.Complete(ctx, in.IdempotencyKey, result); err != nil {
		log.Printf("Failed to store result for idempotency key %s: %v", in.IdempotencyKey, err)
	}
	return result, nil
}

func (s *QualificationService) recordSale(ctx context.Context, in SaleInput) (*models.SaleResult, error) {
	marketer, err := s.ledger.FindMarketerByReferralCode(ctx, in.ReferralCode)
	if errors.Is(err, repositories.ErrNotFound) {
		metrics.SaleErrorsTotal.WithLabelValues("unknown_code").Inc()
		return nil, fmt.Errorf("%w: %s", ErrUnknownReferralCode, in.ReferralCode)
	}
	if err != nil {
		metrics.SaleErrorsTotal.WithLabelValues("persistence").Inc()
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	sale := &models.Sale{
		ID:             primitive.NewObjectID(),
		MarketerID:     marketer.ID,
		ReferralCode:   in.ReferralCode,
		Amount:         in.Amount,
		ProductID:      in.ProductID,
		CustomerID:     in.CustomerID,
		IdempotencyKey: in.IdempotencyKey,
		Status:         models.SaleStatusCompleted,
		CreatedAt:      s.now().UTC().Truncate(time.Millisecond),
	}
	err = s.ledger.InsertSale(ctx, sale)
	if errors.Is(err, repositories.ErrDuplicateSale) {
		// another instance already recorded this key
		existing, findErr := s.ledger.FindSaleByIdempotencyKey(ctx, in.IdempotencyKey)
		if findErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, findErr)
		}
		return &models.SaleResult{Success: true, Sale: *existing, MarketerName: marketer.Name, Amount: existing.Amount}, nil
	}
	if err != nil {
		metrics.SaleErrorsTotal.WithLabelValues("persistence").Inc()
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	updated, err := s.ledger.IncrementRevenue(ctx, marketer.ID, in.Amount)
	if err != nil {
		if delErr := s.ledger.DeleteSale(ctx, sale.ID); delErr != nil {
			log.Printf("Failed to remove sale %s after revenue update failure: %v", sale.ID.Hex(), delErr)
		}
		if errors.Is(err, repositories.ErrRevenueOverflow) {
			metrics.SaleErrorsTotal.WithLabelValues("input").Inc()
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		metrics.SaleErrorsTotal.WithLabelValues("persistence").Inc()
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	metrics.SalesRecordedTotal.Inc()
	metrics.SalesAmountTotal.Add(in.Amount.Float64())

	if _, err := s.evaluate(ctx, updated, "sale"); err != nil {
		log.Printf("Qualification check for marketer %s degraded: %v", updated.ID.Hex(), err)
	}
	s.notifySale(ctx, updated, sale)

	return &models.SaleResult{
		Success:      true,
		Sale:         *sale,
		MarketerName: marketer.Name,
		Amount:       in.Amount,
	}, nil
}

// evaluate emits the payment qualification for the marketer's current level
// when team revenue reached the threshold and nobody emitted it yet.
func (s *QualificationService) evaluate(ctx context.Context, marketer *models.Marketer, source string) (bool, error) {
	tier, err := s.tiers.RequiredFor(marketer.Level)
	if err != nil {
		return false, err
	}
	if marketer.TeamRevenue < tier.TeamRevenueThreshold {
		return false, nil
	}

	previous, claimed, err := s.ledger.ClaimQualification(ctx, marketer.ID, tier.Level)
	if err != nil {
		return false, err
	}
	if !claimed {
		return false, nil
	}

	n := &models.Notification{
		Type:      models.NotificationTypePaymentQualification,
		Title:     "Payment Qualification",
		Message:   fmt.Sprintf("%s reached %s team revenue and qualifies for the level %d payout of %s", marketer.Name, marketer.TeamRevenue, tier.Level, tier.PayoutAmount),
		SubjectID: models.AdminSubject,
		Payload: map[string]interface{}{
			"marketer_id":   marketer.ID.Hex(),
			"marketer_name": marketer.Name,
			"level":         tier.Level,
			"team_revenue":  marketer.TeamRevenue.Float64(),
			"threshold":     tier.TeamRevenueThreshold.Float64(),
			"salary_amount": tier.PayoutAmount.Float64(),
		},
	}
	if _, err := s.notifications.Create(ctx, n); err != nil {
		if relErr := s.ledger.ReleaseQualification(ctx, marketer.ID, tier.Level, previous); relErr != nil {
			log.Printf("Failed to release qualification claim for marketer %s level %d: %v", marketer.ID.Hex(), tier.Level, relErr)
		}
		return false, err
	}
	metrics.QualificationsTotal.WithLabelValues(strconv.Itoa(tier.Level), source).Inc()
	log.Printf("Payment qualification emitted: marketer=%s level=%d teamRevenue=%s payout=%s", marketer.ID.Hex(), tier.Level, marketer.TeamRevenue, tier.PayoutAmount)

	if err := s.payouts.PublishQualification(ctx, newQualificationEvent(*n, marketer, tier)); err != nil {
		log.Printf("Failed to hand qualification %s to payout: %v", n.ID.Hex(), err)
	}
	return true, nil
}

func (s *QualificationService) notifySale(ctx context.Context, marketer *models.Marketer, sale *models.Sale) {
	n := &models.Notification{
		Type:      models.NotificationTypeSaleRecorded,
		Title:     "New Sale",
		Message:   fmt.Sprintf("A sale of %s was recorded with your referral code", sale.Amount),
		SubjectID: marketer.ID.Hex(),
		Payload: map[string]interface{}{
			"sale_id":      sale.ID.Hex(),
			"product_id":   sale.ProductID,
			"amount":       sale.Amount.Float64(),
			"team_revenue": marketer.TeamRevenue.Float64(),
		},
	}
	if _, err := s.notifications.Create(ctx, n); err != nil {
		log.Printf("Failed to notify marketer %s about sale %s: %v", marketer.ID.Hex(), sale.ID.Hex(), err)
	}
}

// ListSales returns the 10 newest sales of a marketer, or the 50 newest overall.
func (s *QualificationService) ListSales(ctx context.Context, marketerID string) ([]models.Sale, error) {
	if marketerID == "" {
		return s.ledger.ListSales(ctx, nil, globalSalesLimit)
	}
	id, err := primitive.ObjectIDFromHex(marketerID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid marketer id", ErrInvalidInput)
	}
	return s.ledger.ListSales(ctx, &id, marketerSalesLimit)
}

// SweepQualifications re-emits qualifications that were claimed nowhere,
// e.g. because the notification write failed during the sale.
func (s *QualificationService) SweepQualifications(ctx context.Context) (int, error) {
	emitted := 0
	for _, tier := range s.tiers.All() {
		candidates, err := s.ledger.ListQualificationCandidates(ctx, tier.Level, tier.TeamRevenueThreshold, 100)
		if err != nil {
			return emitted, err
		}
		for i := range candidates {
			ok, err := s.evaluate(ctx, &candidates[i], "sweep")
			if err != nil {
				log.Printf("Sweep failed for marketer %s: %v", candidates[i].ID.Hex(), err)
				continue
			}
			if ok {
				emitted++
			}
		}
	}
	return emitted, nil
}

// ResetMonthlyRevenue starts a new revenue month for every marketer.
func (s *QualificationService) ResetMonthlyRevenue(ctx context.Context) (int64, error) {
	return s.ledger.ResetMonthlyRevenue(ctx)
}

// StartRevenueMonth resets monthly revenue when month differs from the month
// last recorded in the ledger. The very first recorded month never resets.
func (s *QualificationService) StartRevenueMonth(ctx context.Context, month string) (bool, int64, error) {
	previous, err := s.ledger.SwapRevenueMonth(ctx, month)
	if err != nil {
		return false, 0, err
	}
	if previous == "" || previous == month {
		return false, 0, nil
	}
	n, err := s.ResetMonthlyRevenue(ctx)
	if err != nil {
		// put the old month back so the next tick retries
		if _, swapErr := s.ledger.SwapRevenueMonth(ctx, previous); swapErr != nil {
			log.Printf("Failed to restore revenue month %s: %v", previous, swapErr)
		}
		return false, 0, err
	}
	return true, n, nil
}
