package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/affiliate_backend/models"
)

// Session performs the REST side of notification handling for one subject.
// Mark operations update the Store first and re-fetch the backlog when the
// server rejects them.
type Session struct {
	BaseURL string
	Token   string
	Store   *Store
	HTTP    *http.Client
}

func NewSession(baseURL, token string, store *Store) *Session {
	return &Session{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Store:   store,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *Session) do(ctx context.Context, method, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, s.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var body envelope
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, body.Message)
	}
	if out != nil && len(body.Data) > 0 {
		return json.Unmarshal(body.Data, out)
	}
	return nil
}

// FetchPending replaces the Store with the server's unread backlog.
func (s *Session) FetchPending(ctx context.Context) error {
	var page models.NotificationPage
	if err := s.do(ctx, http.MethodGet, "/api/notifications?status=unread&limit=50", &page); err != nil {
		return err
	}
	s.Store.SetNotifications(page.Items)
	return nil
}

func (s *Session) MarkAsRead(ctx context.Context, id primitive.ObjectID) error {
	s.Store.MarkAsRead(id)
	if err := s.do(ctx, http.MethodPut, "/api/notifications/"+id.Hex()+"/read", nil); err != nil {
		return s.resync(ctx, err)
	}
	return nil
}

func (s *Session) MarkAllAsRead(ctx context.Context) error {
	s.Store.MarkAllAsRead()
	if err := s.do(ctx, http.MethodPut, "/api/notifications/read-all", nil); err != nil {
		return s.resync(ctx, err)
	}
	return nil
}

func (s *Session) resync(ctx context.Context, cause error) error {
	if err := s.FetchPending(ctx); err != nil {
		return fmt.Errorf("%v (resync failed: %v)", cause, err)
	}
	return cause
}
