package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HSouheill/affiliate_backend/models"
	"github.com/HSouheill/affiliate_backend/repositories"
	"github.com/HSouheill/affiliate_backend/services"
)

var tokens = map[string]string{
	"admin-token": models.AdminSubject,
	"m1-token":    "m1",
}

func testAuth(token string) (string, error) {
	if subject, ok := tokens[token]; ok {
		return subject, nil
	}
	return "", errors.New("bad token")
}

type harness struct {
	hub      *Hub
	notifier *services.NotificationService
	server   *httptest.Server
}

func newHarness(t *testing.T, handshake time.Duration) *harness {
	t.Helper()
	store := repositories.NewMemoryNotificationStore()
	notifier := services.NewNotificationService(store, nil, nil)
	hub := NewHub(testAuth, notifier).WithHandshakeTimeout(handshake)
	notifier.SetDispatcher(hub)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	e := echo.New()
	e.GET("/api/ws", func(c echo.Context) error {
		return HandleWebSocket(c, hub)
	})
	server := httptest.NewServer(e)

	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return &harness{hub: hub, notifier: notifier, server: server}
}

func (h *harness) dial(t *testing.T, query string) *gws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/api/ws" + query
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (h *harness) notify(t *testing.T, subject string) *models.Notification {
	t.Helper()
	n, err := h.notifier.Create(context.Background(), &models.Notification{
		Type:      models.NotificationTypePaymentQualification,
		Title:     "Payment Qualification",
		SubjectID: subject,
	})
	require.NoError(t, err)
	return n
}

func readEvent(t *testing.T, conn *gws.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func readPending(t *testing.T, conn *gws.Conn) PendingPayload {
	t.Helper()
	env := readEvent(t, conn)
	require.Equal(t, EventNotificationsPending, env.Event)
	var payload PendingPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	return payload
}

func waitForConnections(t *testing.T, hub *Hub, subject string, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return hub.ConnectionCount(subject) == want
	}, 3*time.Second, 10*time.Millisecond)
}

func TestConnectSendsReadyThenPending(t *testing.T) {
	h := newHarness(t, DefaultHandshakeTimeout)
	existing := h.notify(t, models.AdminSubject)

	conn := h.dial(t, "?token=admin-token")

	ready := readEvent(t, conn)
	require.Equal(t, EventConnectionReady, ready.Event)
	var rp ReadyPayload
	require.NoError(t, json.Unmarshal(ready.Data, &rp))
	assert.Equal(t, models.AdminSubject, rp.SubjectID)
	assert.NotEmpty(t, rp.ConnectionID)

	pending := readPending(t, conn)
	require.Len(t, pending.Notifications, 1)
	assert.Equal(t, existing.ID, pending.Notifications[0].ID)
	assert.EqualValues(t, 1, pending.UnreadCount)
}

func TestPushReachesReadyConnection(t *testing.T) {
	h := newHarness(t, DefaultHandshakeTimeout)
	conn := h.dial(t, "?token=m1-token")
	readEvent(t, conn)
	readPending(t, conn)

	n := h.notify(t, "m1")
	env := readEvent(t, conn)
	require.Equal(t, EventNotificationsNew, env.Event)
	var got models.Notification
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, n.ID, got.ID)
}

func TestPushToOfflineSubjectIsNoop(t *testing.T) {
	h := newHarness(t, DefaultHandshakeTimeout)
	assert.NoError(t, h.hub.Push(context.Background(), "nobody", models.Notification{SubjectID: "nobody"}))
}

func TestAuthEventHandshake(t *testing.T) {
	h := newHarness(t, DefaultHandshakeTimeout)
	conn := h.dial(t, "")

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"event": EventAuth,
		"data":  map[string]string{"token": "m1-token"},
	}))
	assert.Equal(t, EventConnectionReady, readEvent(t, conn).Event)
	readPending(t, conn)
	waitForConnections(t, h.hub, "m1", 1)
}

func TestInvalidTokenGetsErrorAndClose(t *testing.T) {
	h := newHarness(t, DefaultHandshakeTimeout)
	conn := h.dial(t, "?token=forged")

	env := readEvent(t, conn)
	assert.Equal(t, EventError, env.Event)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, h.hub.ConnectionCount("m1"))
}

func TestHandshakeTimeout(t *testing.T) {
	h := newHarness(t, 100*time.Millisecond)
	conn := h.dial(t, "")

	env := readEvent(t, conn)
	require.Equal(t, EventError, env.Event)
	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "authentication timeout", payload.Message)
}

func TestFetchPendingRepeatsBacklog(t *testing.T) {
	h := newHarness(t, DefaultHandshakeTimeout)
	h.notify(t, "m1")
	conn := h.dial(t, "?token=m1-token")
	readEvent(t, conn)
	require.Len(t, readPending(t, conn).Notifications, 1)

	require.NoError(t, conn.WriteJSON(Envelope{Event: EventFetchPending}))
	assert.Len(t, readPending(t, conn).Notifications, 1)
}

func TestReconnectReplaysMissedNotifications(t *testing.T) {
	h := newHarness(t, DefaultHandshakeTimeout)

	conn := h.dial(t, "?token=admin-token")
	readEvent(t, conn)
	readPending(t, conn)
	seen := h.notify(t, models.AdminSubject)
	require.Equal(t, EventNotificationsNew, readEvent(t, conn).Event)

	conn.Close()
	waitForConnections(t, h.hub, models.AdminSubject, 0)

	const missed = 3
	for i := 0; i < missed; i++ {
		h.notify(t, models.AdminSubject)
	}

	again := h.dial(t, "?token=admin-token")
	readEvent(t, again)
	pending := readPending(t, again)

	ids := map[string]bool{}
	for _, n := range pending.Notifications {
		assert.False(t, ids[n.ID.Hex()], "duplicate %s", n.ID.Hex())
		ids[n.ID.Hex()] = true
	}
	assert.Len(t, ids, missed+1)
	assert.True(t, ids[seen.ID.Hex()], "unread items pushed before the disconnect stay in the backlog")
}

func TestMultipleConnectionsPerSubject(t *testing.T) {
	h := newHarness(t, DefaultHandshakeTimeout)
	a := h.dial(t, "?token=admin-token")
	b := h.dial(t, "?token=admin-token")
	for _, conn := range []*gws.Conn{a, b} {
		readEvent(t, conn)
		readPending(t, conn)
	}
	waitForConnections(t, h.hub, models.AdminSubject, 2)

	n := h.notify(t, models.AdminSubject)
	for _, conn := range []*gws.Conn{a, b} {
		env := readEvent(t, conn)
		require.Equal(t, EventNotificationsNew, env.Event)
		var got models.Notification
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, n.ID, got.ID)
	}
}
