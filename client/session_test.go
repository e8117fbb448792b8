package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HSouheill/affiliate_backend/models"
)

func TestSessionResyncsWhenMarkFails(t *testing.T) {
	a := note(time.Now(), models.NotificationStatusUnread)
	b := note(time.Now().Add(time.Second), models.NotificationStatusUnread)

	var fetches int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/notifications":
			fetches++
			json.NewEncoder(w).Encode(models.Response{
				Status: http.StatusOK,
				Data:   models.NotificationPage{Items: []models.Notification{b, a}},
			})
		case r.Method == http.MethodPut && r.URL.Path == "/api/notifications/read-all":
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(models.Response{Status: http.StatusInternalServerError, Message: "Internal server error"})
		case r.Method == http.MethodPut:
			json.NewEncoder(w).Encode(models.Response{Status: http.StatusOK, Message: "Notification marked as read"})
		default:
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(models.Response{Status: http.StatusNotFound})
		}
	}))
	defer server.Close()

	store := NewStore()
	s := NewSession(server.URL, "tok", store)
	ctx := context.Background()

	require.NoError(t, s.FetchPending(ctx))
	assert.Equal(t, 2, store.UnreadCount())

	require.NoError(t, s.MarkAsRead(ctx, a.ID))
	assert.Equal(t, 1, store.UnreadCount())

	err := s.MarkAllAsRead(ctx)
	require.Error(t, err)
	assert.Equal(t, 2, fetches)
	assert.Equal(t, 2, store.UnreadCount(), "server state wins after a failed mark-all")
}
