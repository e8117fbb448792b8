package websocket

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/HSouheill/affiliate_backend/metrics"
	"github.com/HSouheill/affiliate_backend/models"
)

var ErrHubClosed = errors.New("notification hub is not running")

// DefaultHandshakeTimeout bounds how long a connection may stay unauthenticated.
const DefaultHandshakeTimeout = 10 * time.Second

// snapshotSlack covers appends stamped before a backlog read but not yet visible to it.
const snapshotSlack = time.Second

// Authenticator resolves a bearer token to the subject it may listen on.
type Authenticator func(token string) (subjectID string, err error)

// BacklogSource serves the unread backlog replayed to a connection.
type BacklogSource interface {
	Pending(ctx context.Context, subjectID, cursor string) (*models.NotificationPage, error)
}

type delivery struct {
	subjectID string
	msg       []byte
}

// Hub maintains the set of ready connections per subject and pushes to them.
type Hub struct {
	subjects   map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan delivery
	done       chan struct{}
	mu         sync.RWMutex

	auth             Authenticator
	backlog          BacklogSource
	handshakeTimeout time.Duration
}

// NewHub creates a new Hub instance
func NewHub(auth Authenticator, backlog BacklogSource) *Hub {
	return &Hub{
		subjects:         make(map[string]map[*Client]struct{}),
		register:         make(chan *Client),
		unregister:       make(chan *Client),
		broadcast:        make(chan delivery, 256),
		done:             make(chan struct{}),
		auth:             auth,
		backlog:          backlog,
		handshakeTimeout: DefaultHandshakeTimeout,
	}
}

func (h *Hub) WithHandshakeTimeout(d time.Duration) *Hub {
	h.handshakeTimeout = d
	return h
}

// Run starts the hub's event loop and blocks until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for subject, clients := range h.subjects {
				for c := range clients {
					c.shutdown()
				}
				delete(h.subjects, subject)
			}
			h.mu.Unlock()
			metrics.ConnectedClients.Set(0)
			return
		case c := <-h.register:
			h.mu.Lock()
			if h.subjects[c.SubjectID] == nil {
				h.subjects[c.SubjectID] = make(map[*Client]struct{})
			}
			h.subjects[c.SubjectID][c] = struct{}{}
			h.mu.Unlock()
			c.setState(stateReady)
			c.emit(EventConnectionReady, ReadyPayload{ConnectionID: c.ID, SubjectID: c.SubjectID})
			metrics.ConnectedClients.Inc()
			close(c.registered)
		case c := <-h.unregister:
			h.remove(c)
		case d := <-h.broadcast:
			h.deliver(d)
		}
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	clients, ok := h.subjects[c.SubjectID]
	_, member := clients[c]
	if ok && member {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.subjects, c.SubjectID)
		}
	}
	h.mu.Unlock()
	if member {
		metrics.ConnectedClients.Dec()
	}
	c.shutdown()
}

func (h *Hub) deliver(d delivery) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.subjects[d.subjectID]))
	for c := range h.subjects[d.subjectID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		metrics.PushesTotal.WithLabelValues("offline").Inc()
		return
	}
	for _, c := range targets {
		if c.enqueue(d.msg) {
			metrics.PushesTotal.WithLabelValues("delivered").Inc()
			continue
		}
		// slow or dead consumer; it recovers through the backlog on reconnect
		metrics.PushesTotal.WithLabelValues("dropped").Inc()
		log.Printf("Dropping websocket %s of subject %s: send buffer full", c.ID, c.SubjectID)
		h.remove(c)
	}
}

// Push sends notifications:new to every ready connection of the subject.
// A subject with no connection is a no-op.
func (h *Hub) Push(ctx context.Context, subjectID string, n models.Notification) error {
	msg, err := encodeEvent(EventNotificationsNew, n)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- delivery{subjectID: subjectID, msg: msg}:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatch pushes n to its own subject.
func (h *Hub) Dispatch(ctx context.Context, n models.Notification) error {
	return h.Push(ctx, n.SubjectID, n)
}

// ConnectionCount returns the number of ready connections of a subject.
func (h *Hub) ConnectionCount(subjectID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subjects[subjectID])
}

func (h *Hub) authenticate(c *Client, token string) bool {
	if h.auth == nil {
		c.fail("authentication unavailable")
		return false
	}
	subjectID, err := h.auth(token)
	if err != nil || subjectID == "" {
		c.fail("invalid token")
		return false
	}
	c.SubjectID = subjectID
	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	select {
	case h.register <- c:
	case <-h.done:
		c.fail("server shutting down")
		return false
	}
	<-c.registered

	h.sendPending(c, "")
	return true
}

func (h *Hub) unregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
		c.shutdown()
	}
}

// sendPending answers with the unread backlog. Results for a connection that
// closed meanwhile are discarded.
func (h *Hub) sendPending(c *Client, cursor string) {
	payload := PendingPayload{
		Notifications: []models.Notification{},
		SnapshotAt:    time.Now().Add(-snapshotSlack).UTC().Truncate(time.Millisecond),
	}
	if h.backlog != nil {
		page, err := h.backlog.Pending(c.ctx, c.SubjectID, cursor)
		if c.ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Printf("Failed to load pending notifications for %s: %v", c.SubjectID, err)
			c.emit(EventError, ErrorPayload{Message: "failed to load pending notifications"})
			return
		}
		payload.Notifications = page.Items
		payload.NextCursor = page.NextCursor
		payload.UnreadCount = page.UnreadCount
	}
	c.emit(EventNotificationsPending, payload)
}
