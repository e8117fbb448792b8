package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/HSouheill/affiliate_backend/models"
	ws "github.com/HSouheill/affiliate_backend/websocket"
)

const (
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 30 * time.Second
	DefaultMaxAttempts = 10
)

var ErrGaveUp = errors.New("notification channel: reconnect attempts exhausted")

// Listener keeps a live channel open and feeds a Store. Every (re)connect
// asks for the pending backlog, which is authoritative over cached state.
type Listener struct {
	URL   string
	Token string
	Store *Store

	Dialer      *websocket.Dialer
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int

	// OnEvent, when set, observes every envelope after the store applied it.
	OnEvent func(event string)
}

func NewListener(rawURL, token string, store *Store) *Listener {
	return &Listener{
		URL:         rawURL,
		Token:       token,
		Store:       store,
		Dialer:      websocket.DefaultDialer,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		MaxAttempts: DefaultMaxAttempts,
	}
}

// backoff returns the wait before the given (1-based) retry.
func (l *Listener) backoff(attempt int) time.Duration {
	d := l.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= l.MaxDelay {
			return l.MaxDelay
		}
	}
	if d > l.MaxDelay {
		return l.MaxDelay
	}
	return d
}

// Run blocks until ctx is cancelled or MaxAttempts consecutive connects fail.
func (l *Listener) Run(ctx context.Context) error {
	failures := 0
	for {
		ready, err := l.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if ready {
			failures = 0
		}
		failures++
		if failures > l.MaxAttempts {
			return fmt.Errorf("%w: %v", ErrGaveUp, err)
		}
		wait := l.backoff(failures)
		log.Printf("notification channel lost (%v), retrying in %s", err, wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (l *Listener) dialURL() (string, error) {
	u, err := url.Parse(l.URL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", l.Token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// session runs one connection. It reports whether the connection got ready.
func (l *Listener) session(ctx context.Context) (bool, error) {
	target, err := l.dialURL()
	if err != nil {
		return false, err
	}
	conn, _, err := l.Dialer.DialContext(ctx, target, nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	ready := false
	for {
		var env ws.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return ready, err
		}
		switch env.Event {
		case ws.EventConnectionReady:
			ready = true
			if err := conn.WriteJSON(ws.Envelope{Event: ws.EventFetchPending}); err != nil {
				return ready, err
			}
		case ws.EventNotificationsPending:
			var payload ws.PendingPayload
			if err := json.Unmarshal(env.Data, &payload); err != nil {
				return ready, err
			}
			l.Store.ApplySnapshot(payload.Notifications, payload.SnapshotAt)
		case ws.EventNotificationsNew:
			var n models.Notification
			if err := json.Unmarshal(env.Data, &n); err != nil {
				return ready, err
			}
			l.Store.AddNotification(n)
		case ws.EventError:
			var payload ws.ErrorPayload
			_ = json.Unmarshal(env.Data, &payload)
			log.Printf("notification channel error: %s", payload.Message)
		}
		if l.OnEvent != nil {
			l.OnEvent(env.Event)
		}
	}
}
