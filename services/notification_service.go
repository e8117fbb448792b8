package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/affiliate_backend/metrics"
	"github.com/HSouheill/affiliate_backend/models"
	"github.com/HSouheill/affiliate_backend/repositories"
)

// PendingBacklogLimit caps the unread page replayed on connect.
const PendingBacklogLimit = 50

// Dispatcher delivers a freshly appended notification to live connections.
// Delivery is best-effort; the backlog is the source of truth.
type Dispatcher interface {
	Dispatch(ctx context.Context, n models.Notification) error
}

// NotificationService appends notifications and fans them out.
type NotificationService struct {
	store      repositories.NotificationStore
	ledger     repositories.LedgerStore
	dispatcher Dispatcher
	push       PushSender
	mailer     Mailer
	ordering   subjectLocks
}

func NewNotificationService(store repositories.NotificationStore, ledger repositories.LedgerStore, dispatcher Dispatcher) *NotificationService {
	return &NotificationService{
		store:      store,
		ledger:     ledger,
		dispatcher: dispatcher,
		ordering:   subjectLocks{locks: make(map[string]*subjectLock)},
	}
}

// subjectLocks serializes append+dispatch per subject so pushes leave in append order.
type subjectLocks struct {
	mu    sync.Mutex
	locks map[string]*subjectLock
}

type subjectLock struct {
	sync.Mutex
	refs int
}

func (l *subjectLocks) lock(subjectID string) func() {
	l.mu.Lock()
	sl, ok := l.locks[subjectID]
	if !ok {
		sl = &subjectLock{}
		l.locks[subjectID] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.Lock()
	return func() {
		sl.Unlock()
		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.locks, subjectID)
		}
		l.mu.Unlock()
	}
}

// WithPush enables mobile push for marketer subjects that registered a device token.
func (s *NotificationService) WithPush(push PushSender) *NotificationService {
	s.push = push
	return s
}

// WithMailer enables admin email for payment qualifications.
func (s *NotificationService) WithMailer(mailer Mailer) *NotificationService {
	s.mailer = mailer
	return s
}

func (s *NotificationService) SetDispatcher(dispatcher Dispatcher) {
	s.dispatcher = dispatcher
}

// Create appends n and then pushes it. Only the append can fail the call.
func (s *NotificationService) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	if !n.Type.Valid() || n.SubjectID == "" || n.Title == "" {
		return nil, fmt.Errorf("%w: notification needs a known type, subject and title", ErrInvalidInput)
	}
	unlock := s.ordering.lock(n.SubjectID)
	if _, err := s.store.Append(ctx, n); err != nil {
		unlock()
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	metrics.NotificationsCreatedTotal.WithLabelValues(string(n.Type)).Inc()

	if s.dispatcher != nil {
		if err := s.dispatcher.Dispatch(ctx, *n); err != nil {
			log.Printf("Notification %s stays in backlog, live dispatch failed: %v", n.ID.Hex(), err)
		}
	}
	unlock()
	s.sideChannels(*n)
	return n, nil
}

func (s *NotificationService) sideChannels(n models.Notification) {
	if s.mailer != nil && n.Type == models.NotificationTypePaymentQualification {
		go func() {
			if err := s.mailer.SendNotification(n); err != nil {
				log.Printf("Failed to email admin about notification %s: %v", n.ID.Hex(), err)
			}
		}()
	}
	if s.push == nil || s.ledger == nil || n.SubjectID == models.AdminSubject {
		return
	}
	marketerID, err := primitive.ObjectIDFromHex(n.SubjectID)
	if err != nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		marketer, err := s.ledger.GetMarketer(ctx, marketerID)
		if err != nil || marketer.FCMToken == "" {
			return
		}
		if err := s.push.Send(ctx, marketer.FCMToken, n); err != nil {
			log.Printf("Failed to send push for notification %s: %v", n.ID.Hex(), err)
		}
	}()
}

func (s *NotificationService) List(ctx context.Context, q repositories.ListQuery) (*models.NotificationPage, error) {
	if q.Type != "" && !q.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown notification type %q", ErrInvalidInput, q.Type)
	}
	if q.Status != "" && q.Status != models.NotificationStatusUnread && q.Status != models.NotificationStatusRead {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, q.Status)
	}
	return s.store.ListByCursor(ctx, q)
}

// Pending returns the unread backlog replayed to a (re)connecting client.
func (s *NotificationService) Pending(ctx context.Context, subjectID, cursor string) (*models.NotificationPage, error) {
	return s.store.ListByCursor(ctx, repositories.ListQuery{
		SubjectID: subjectID,
		Cursor:    cursor,
		Limit:     PendingBacklogLimit,
		Status:    models.NotificationStatusUnread,
	})
}

func (s *NotificationService) MarkRead(ctx context.Context, subjectID string, id primitive.ObjectID) error {
	return s.store.MarkRead(ctx, subjectID, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, subjectID string) (int64, error) {
	return s.store.MarkAllRead(ctx, subjectID)
}

func (s *NotificationService) MarkAllReadByType(ctx context.Context, subjectID string, t models.NotificationType) (int64, error) {
	if !t.Valid() {
		return 0, fmt.Errorf("%w: unknown notification type %q", ErrInvalidInput, t)
	}
	return s.store.MarkAllReadByType(ctx, subjectID, t)
}

func (s *NotificationService) Delete(ctx context.Context, subjectID string, id primitive.ObjectID) error {
	return s.store.Delete(ctx, subjectID, id)
}

// AdminOverview lists the admin subject's notifications with aggregate counts.
func (s *NotificationService) AdminOverview(ctx context.Context, status string, limit int) (*models.NotificationPage, *models.NotificationCounts, error) {
	q := repositories.ListQuery{SubjectID: models.AdminSubject, Limit: limit}
	switch status {
	case "", "all":
	case string(models.NotificationStatusUnread), string(models.NotificationStatusRead):
		q.Status = models.NotificationStatus(status)
	default:
		return nil, nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	page, err := s.store.ListByCursor(ctx, q)
	if err != nil {
		return nil, nil, err
	}
	counts, err := s.store.Counts(ctx, models.AdminSubject)
	if err != nil {
		return nil, nil, err
	}
	return page, counts, nil
}

// IsNotFound reports whether err means the notification does not exist for the subject.
func IsNotFound(err error) bool {
	return errors.Is(err, repositories.ErrNotFound)
}
