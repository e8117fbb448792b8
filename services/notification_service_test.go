package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HSouheill/affiliate_backend/models"
	"github.com/HSouheill/affiliate_backend/repositories"
)

func TestCreateAppendsThenDispatches(t *testing.T) {
	f := newFixture(t)

	n, err := f.notifier.Create(context.Background(), &models.Notification{
		Type:      models.NotificationTypeSystem,
		Title:     "Maintenance",
		SubjectID: "m1",
	})
	require.NoError(t, err)
	assert.False(t, n.ID.IsZero())
	assert.Equal(t, models.NotificationStatusUnread, n.Status)
	require.Len(t, f.dispatcher.got, 1)
	assert.Equal(t, n.ID, f.dispatcher.got[0].ID)

	_, err = f.notifier.Create(context.Background(), &models.Notification{Type: "bogus", Title: "x", SubjectID: "m1"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestConcurrentCreatesDispatchInAppendOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.notifier.Create(ctx, &models.Notification{Type: models.NotificationTypeSaleRecorded, Title: "sale", SubjectID: "m1"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	page, err := f.store.ListByCursor(ctx, repositories.ListQuery{SubjectID: "m1", Limit: repositories.MaxPageLimit})
	require.NoError(t, err)
	require.Len(t, page.Items, n)
	require.Len(t, f.dispatcher.got, n)
	for i, dispatched := range f.dispatcher.got {
		assert.Equal(t, page.Items[n-1-i].ID, dispatched.ID, "dispatch %d", i)
	}
}

func TestPendingReturnsUnreadOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	var last *models.Notification
	for i := 0; i < 3; i++ {
		n, err := f.notifier.Create(ctx, &models.Notification{Type: models.NotificationTypeSaleRecorded, Title: "sale", SubjectID: "m1"})
		require.NoError(t, err)
		last = n
	}
	require.NoError(t, f.notifier.MarkRead(ctx, "m1", last.ID))

	page, err := f.notifier.Pending(ctx, "m1", "")
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.EqualValues(t, 2, page.UnreadCount)
	for _, n := range page.Items {
		assert.NotEqual(t, last.ID, n.ID)
	}
}

func TestListRejectsUnknownFilters(t *testing.T) {
	f := newFixture(t)

	_, err := f.notifier.List(context.Background(), repositories.ListQuery{SubjectID: "m1", Type: "bogus"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.notifier.List(context.Background(), repositories.ListQuery{SubjectID: "m1", Status: "archived"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.notifier.MarkAllReadByType(context.Background(), "m1", "bogus")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAdminOverview(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, typ := range []models.NotificationType{
		models.NotificationTypePaymentQualification,
		models.NotificationTypePaymentQualification,
		models.NotificationTypeLevelPromotion,
	} {
		_, err := f.notifier.Create(ctx, &models.Notification{Type: typ, Title: "t", SubjectID: models.AdminSubject})
		require.NoError(t, err)
	}
	_, err := f.notifier.MarkAllReadByType(ctx, models.AdminSubject, models.NotificationTypeLevelPromotion)
	require.NoError(t, err)

	page, counts, err := f.notifier.AdminOverview(ctx, "unread", 50)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.EqualValues(t, 3, counts.Total)
	assert.EqualValues(t, 2, counts.Unread)
	assert.EqualValues(t, 2, counts.PaymentQualification)
	assert.EqualValues(t, 1, counts.LevelPromotion)

	page, _, err = f.notifier.AdminOverview(ctx, "", 50)
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)

	_, _, err = f.notifier.AdminOverview(ctx, "archived", 50)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
