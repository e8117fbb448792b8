package websocket

import (
	"encoding/json"
	"time"

	"github.com/HSouheill/affiliate_backend/models"
)

// Event names on the notification channel.
const (
	EventAuth                 = "auth"
	EventConnectionReady      = "connection:ready"
	EventNotificationsNew     = "notifications:new"
	EventNotificationsPending = "notifications:pending"
	EventFetchPending         = "notifications:fetch-pending"
	EventError                = "error"
)

// Envelope is every frame exchanged on the channel.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type AuthPayload struct {
	Token string `json:"token"`
}

type ReadyPayload struct {
	ConnectionID string `json:"connectionId"`
	SubjectID    string `json:"subjectId"`
}

type FetchPendingPayload struct {
	Cursor string `json:"cursor,omitempty"`
}

// PendingPayload is one backlog replay. Items created at or after SnapshotAt
// may be missing from it and arrive as notifications:new instead.
type PendingPayload struct {
	Notifications []models.Notification `json:"notifications"`
	NextCursor    string                `json:"nextCursor,omitempty"`
	UnreadCount   int64                 `json:"unreadCount"`
	SnapshotAt    time.Time             `json:"snapshotAt"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func encodeEvent(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
