// Package client keeps a dashboard's view of its notifications in sync with
// the server: pushes from the live channel plus backlog replays.
package client

import (
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/affiliate_backend/models"
)

// Store is the unread working set, newest first, deduplicated by id.
// Full history is a paginated REST query, not this store.
type Store struct {
	mu    sync.RWMutex
	items []models.Notification
	index map[primitive.ObjectID]struct{}
}

func NewStore() *Store {
	return &Store{index: make(map[primitive.ObjectID]struct{})}
}

// AddNotification merges one pushed notification. Duplicates and read items are ignored.
func (s *Store) AddNotification(n models.Notification) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.IsRead() {
		return false
	}
	if _, ok := s.index[n.ID]; ok {
		return false
	}
	s.index[n.ID] = struct{}{}
	s.items = append(s.items, n)
	sortNewestFirst(s.items)
	return true
}

// SetNotifications replaces the working set with the unread part of a backlog replay.
func (s *Store) SetNotifications(list []models.Notification) {
	s.ApplySnapshot(list, time.Time{})
}

// ApplySnapshot replaces the working set with a backlog replay read at
// snapshotAt. Items already held that were created at or after snapshotAt
// and are missing from the replay are kept, since the replay could not see
// them. A zero snapshotAt replaces everything.
func (s *Store) ApplySnapshot(list []models.Notification, snapshotAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]models.Notification, 0, len(list))
	index := make(map[primitive.ObjectID]struct{}, len(list))
	for _, n := range list {
		if n.IsRead() {
			continue
		}
		if _, ok := index[n.ID]; ok {
			continue
		}
		index[n.ID] = struct{}{}
		items = append(items, n)
	}
	if !snapshotAt.IsZero() {
		for _, n := range s.items {
			if _, ok := index[n.ID]; ok || n.CreatedAt.Before(snapshotAt) {
				continue
			}
			index[n.ID] = struct{}{}
			items = append(items, n)
		}
	}
	sortNewestFirst(items)
	s.items = items
	s.index = index
}

// MarkAsRead drops id from the working set.
func (s *Store) MarkAsRead(id primitive.ObjectID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[id]; !ok {
		return false
	}
	delete(s.index, id)
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	return true
}

func (s *Store) MarkAllAsRead() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.index = make(map[primitive.ObjectID]struct{})
}

// Notifications returns a copy of the working set.
func (s *Store) Notifications() []models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Notification, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.items {
		if !n.IsRead() {
			count++
		}
	}
	return count
}

func sortNewestFirst(items []models.Notification) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID.Hex() > items[j].ID.Hex()
	})
}
