package repositories

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/affiliate_backend/models"
)

type cursorDirection string

const (
	cursorOlder cursorDirection = "n"
	cursorNewer cursorDirection = "p"
)

// pageCursor anchors a page on a (createdAt, id) tuple so concurrent appends
// never shift what an issued cursor points at.
type pageCursor struct {
	Direction cursorDirection
	CreatedAt time.Time
	ID        primitive.ObjectID
}

func encodeCursor(direction cursorDirection, n models.Notification) string {
	raw := fmt.Sprintf("%s:%d:%s", direction, n.CreatedAt.UnixNano(), n.ID.Hex())
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(s string) (*pageCursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	parts := strings.Split(string(raw), ":")
	if len(parts) != 3 {
		return nil, ErrInvalidCursor
	}
	direction := cursorDirection(parts[0])
	if direction != cursorOlder && direction != cursorNewer {
		return nil, ErrInvalidCursor
	}
	nanos, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	id, err := primitive.ObjectIDFromHex(parts[2])
	if err != nil {
		return nil, ErrInvalidCursor
	}
	return &pageCursor{Direction: direction, CreatedAt: time.Unix(0, nanos).UTC(), ID: id}, nil
}

// checkAnchor rejects cursors whose anchor was deleted or belongs to someone else.
func checkAnchor(c *pageCursor, anchor *models.Notification, subjectID string) error {
	if anchor == nil || anchor.SubjectID != subjectID || !anchor.CreatedAt.Equal(c.CreatedAt) {
		return ErrInvalidCursor
	}
	return nil
}

// newer reports whether a sorts before b in the newest-first order.
func newer(a, b models.Notification) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.Hex() > b.ID.Hex()
}

// buildPage turns a fetched window (limit+1 rows, in fetch order) into a page
// with newest-first items and the cursors around it.
func buildPage(window []models.Notification, limit int, c *pageCursor) *models.NotificationPage {
	hasMore := len(window) > limit
	if hasMore {
		window = window[:limit]
	}
	items := make([]models.Notification, len(window))
	copy(items, window)
	if c != nil && c.Direction == cursorNewer {
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
	}

	page := &models.NotificationPage{Items: items}
	if len(items) == 0 {
		return page
	}
	olderExists := hasMore
	newerExists := c != nil
	if c != nil && c.Direction == cursorNewer {
		olderExists = true
		newerExists = hasMore
	}
	if olderExists {
		page.NextCursor = encodeCursor(cursorOlder, items[len(items)-1])
	}
	if newerExists {
		page.PrevCursor = encodeCursor(cursorNewer, items[0])
	}
	return page
}

func storeTime(t time.Time) time.Time {
	// MongoDB keeps millisecond precision; cursors must survive a round trip.
	return t.UTC().Truncate(time.Millisecond)
}
