package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HSouheill/affiliate_backend/models"
	"github.com/HSouheill/affiliate_backend/repositories"
)

type recordingDispatcher struct {
	mu  sync.Mutex
	got []models.Notification
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, n models.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.got = append(d.got, n)
	return nil
}

func (d *recordingDispatcher) count(t models.NotificationType) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := 0
	for _, n := range d.got {
		if n.Type == t {
			c++
		}
	}
	return c
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []QualificationEvent
}

func (p *recordingPublisher) PublishQualification(ctx context.Context, event QualificationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

type fixture struct {
	ledger     *repositories.MemoryLedger
	store      *repositories.MemoryNotificationStore
	dispatcher *recordingDispatcher
	payouts    *recordingPublisher
	notifier   *NotificationService
	engine     *QualificationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ledger:     repositories.NewMemoryLedger(),
		store:      repositories.NewMemoryNotificationStore(),
		dispatcher: &recordingDispatcher{},
		payouts:    &recordingPublisher{},
	}
	f.notifier = NewNotificationService(f.store, f.ledger, f.dispatcher)
	f.engine = NewQualificationService(f.ledger, DefaultTierTable(), f.notifier, NewMemoryIdempotencyStore(), f.payouts)
	return f
}

func (f *fixture) marketer(t *testing.T, code string, level int, revenue models.Money) *models.Marketer {
	t.Helper()
	m := &models.Marketer{Name: "Marketer " + code, ReferralCode: code, Level: level, TeamRevenue: revenue}
	require.NoError(t, f.ledger.CreateMarketer(context.Background(), m))
	return m
}

func (f *fixture) adminNotifications(t *testing.T) []models.Notification {
	t.Helper()
	page, err := f.store.ListByCursor(context.Background(), repositories.ListQuery{
		SubjectID: models.AdminSubject,
		Limit:     repositories.MaxPageLimit,
		Type:      models.NotificationTypePaymentQualification,
	})
	require.NoError(t, err)
	return page.Items
}

func sale(code string, amount models.Money) SaleInput {
	return SaleInput{ReferralCode: code, Amount: amount, ProductID: "prod-1", CustomerID: "cust-1"}
}
