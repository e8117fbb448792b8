package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/affiliate_backend/models"
)

// MemoryNotificationStore keeps each subject's log sorted newest first.
type MemoryNotificationStore struct {
	mu        sync.RWMutex
	bySubject map[string][]*models.Notification
	byID      map[primitive.ObjectID]*models.Notification
	now       func() time.Time
	// FailAppend lets tests simulate a store outage.
	FailAppend error
}

func NewMemoryNotificationStore() *MemoryNotificationStore {
	return &MemoryNotificationStore{
		bySubject: make(map[string][]*models.Notification),
		byID:      make(map[primitive.ObjectID]*models.Notification),
		now:       time.Now,
	}
}

func (s *MemoryNotificationStore) Append(ctx context.Context, n *models.Notification) (primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailAppend != nil {
		return primitive.NilObjectID, s.FailAppend
	}
	n.ID = primitive.NewObjectID()
	n.Status = models.NotificationStatusUnread
	n.CreatedAt = storeTime(s.now())
	n.ReadAt = nil

	stored := *n
	list := s.bySubject[n.SubjectID]
	idx := sort.Search(len(list), func(i int) bool { return newer(stored, *list[i]) })
	list = append(list, nil)
	copy(list[idx+1:], list[idx:])
	list[idx] = &stored
	s.bySubject[n.SubjectID] = list
	s.byID[stored.ID] = &stored
	return stored.ID, nil
}

func (s *MemoryNotificationStore) Get(ctx context.Context, id primitive.ObjectID) (*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *n
	return &out, nil
}

func matches(n *models.Notification, q ListQuery) bool {
	if q.Type != "" && n.Type != q.Type {
		return false
	}
	if q.Status != "" && n.Status != q.Status {
		return false
	}
	return true
}

func (s *MemoryNotificationStore) ListByCursor(ctx context.Context, q ListQuery) (*models.NotificationPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := normalizeLimit(q.Limit)
	var c *pageCursor
	if q.Cursor != "" {
		var err error
		if c, err = decodeCursor(q.Cursor); err != nil {
			return nil, err
		}
		anchor, ok := s.byID[c.ID]
		if !ok {
			return nil, ErrInvalidCursor
		}
		if err := checkAnchor(c, anchor, q.SubjectID); err != nil {
			return nil, err
		}
	}

	list := s.bySubject[q.SubjectID]
	var window []models.Notification
	var total, unread int64
	for _, n := range list {
		if matches(n, q) {
			total++
		}
		if (q.Type == "" || n.Type == q.Type) && n.Status == models.NotificationStatusUnread {
			unread++
		}
	}

	if c != nil && c.Direction == cursorNewer {
		anchor := models.Notification{ID: c.ID, CreatedAt: c.CreatedAt}
		for i := len(list) - 1; i >= 0 && len(window) <= limit; i-- {
			n := list[i]
			if newer(*n, anchor) && matches(n, q) {
				window = append(window, *n)
			}
		}
	} else {
		for _, n := range list {
			if len(window) > limit {
				break
			}
			if c != nil && !newer(models.Notification{ID: c.ID, CreatedAt: c.CreatedAt}, *n) {
				continue
			}
			if matches(n, q) {
				window = append(window, *n)
			}
		}
	}

	page := buildPage(window, limit, c)
	page.Total = total
	page.UnreadCount = unread
	return page, nil
}

func (s *MemoryNotificationStore) owned(subjectID string, id primitive.ObjectID) (*models.Notification, error) {
	n, ok := s.byID[id]
	if !ok || n.SubjectID != subjectID {
		return nil, ErrNotFound
	}
	return n, nil
}

func (s *MemoryNotificationStore) markRead(n *models.Notification, at time.Time) bool {
	if n.Status == models.NotificationStatusRead {
		return false
	}
	n.Status = models.NotificationStatusRead
	n.ReadAt = &at
	return true
}

func (s *MemoryNotificationStore) MarkRead(ctx context.Context, subjectID string, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.owned(subjectID, id)
	if err != nil {
		return err
	}
	s.markRead(n, storeTime(s.now()))
	return nil
}

func (s *MemoryNotificationStore) MarkAllRead(ctx context.Context, subjectID string) (int64, error) {
	return s.MarkAllReadByType(ctx, subjectID, "")
}

func (s *MemoryNotificationStore) MarkAllReadByType(ctx context.Context, subjectID string, t models.NotificationType) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	at := storeTime(s.now())
	var changed int64
	for _, n := range s.bySubject[subjectID] {
		if t != "" && n.Type != t {
			continue
		}
		if s.markRead(n, at) {
			changed++
		}
	}
	return changed, nil
}

func (s *MemoryNotificationStore) Delete(ctx context.Context, subjectID string, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.owned(subjectID, id); err != nil {
		return err
	}
	delete(s.byID, id)
	list := s.bySubject[subjectID]
	for i, n := range list {
		if n.ID == id {
			s.bySubject[subjectID] = append(list[:i], list[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryNotificationStore) Counts(ctx context.Context, subjectID string) (*models.NotificationCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := &models.NotificationCounts{}
	for _, n := range s.bySubject[subjectID] {
		counts.Total++
		if n.Status == models.NotificationStatusUnread {
			counts.Unread++
		}
		switch n.Type {
		case models.NotificationTypePaymentQualification:
			counts.PaymentQualification++
		case models.NotificationTypeLevelPromotion:
			counts.LevelPromotion++
		}
	}
	return counts, nil
}
