package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/affiliate_backend/models"
)

func note(at time.Time, status models.NotificationStatus) models.Notification {
	return models.Notification{
		ID:        primitive.NewObjectID(),
		Type:      models.NotificationTypePaymentQualification,
		Title:     "t",
		Status:    status,
		CreatedAt: at,
	}
}

func TestStoreMergesPushAndReplay(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	old := note(base, models.NotificationStatusUnread)
	mid := note(base.Add(time.Minute), models.NotificationStatusUnread)
	read := note(base.Add(2*time.Minute), models.NotificationStatusRead)
	fresh := note(base.Add(3*time.Minute), models.NotificationStatusUnread)

	s := NewStore()
	assert.True(t, s.AddNotification(mid))
	assert.False(t, s.AddNotification(mid), "duplicate push")

	s.SetNotifications([]models.Notification{old, mid, read, mid})
	assert.Equal(t, 2, s.UnreadCount())

	assert.True(t, s.AddNotification(fresh))
	got := s.Notifications()
	if assert.Len(t, got, 3) {
		assert.Equal(t, fresh.ID, got[0].ID)
		assert.Equal(t, mid.ID, got[1].ID)
		assert.Equal(t, old.ID, got[2].ID)
	}
}

func TestStoreMarkAsRead(t *testing.T) {
	base := time.Now()
	a := note(base, models.NotificationStatusUnread)
	b := note(base.Add(time.Second), models.NotificationStatusUnread)

	s := NewStore()
	s.SetNotifications([]models.Notification{a, b})

	assert.True(t, s.MarkAsRead(a.ID))
	assert.False(t, s.MarkAsRead(a.ID))
	assert.Equal(t, 1, s.UnreadCount())

	s.MarkAllAsRead()
	assert.Equal(t, 0, s.UnreadCount())
	assert.Empty(t, s.Notifications())

	// a replayed item can come back after being marked read locally
	assert.True(t, s.AddNotification(b))
}

func TestStoreIgnoresReadPush(t *testing.T) {
	s := NewStore()
	assert.False(t, s.AddNotification(note(time.Now(), models.NotificationStatusRead)))
	assert.Equal(t, 0, s.UnreadCount())
}

func TestApplySnapshotKeepsNewerLiveItems(t *testing.T) {
	snapshotAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	stale := note(snapshotAt.Add(-time.Hour), models.NotificationStatusUnread)
	replayed := note(snapshotAt.Add(-time.Minute), models.NotificationStatusUnread)
	live := note(snapshotAt.Add(time.Millisecond), models.NotificationStatusUnread)

	s := NewStore()
	s.AddNotification(stale)
	s.AddNotification(live)

	s.ApplySnapshot([]models.Notification{replayed}, snapshotAt)
	got := s.Notifications()
	if assert.Len(t, got, 2) {
		assert.Equal(t, live.ID, got[0].ID)
		assert.Equal(t, replayed.ID, got[1].ID)
	}

	// a plain replace trusts the replay alone
	s.SetNotifications([]models.Notification{replayed})
	assert.Equal(t, 1, s.UnreadCount())
}
