package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string

const (
	NotificationTypePaymentQualification NotificationType = "payment_qualification"
	NotificationTypeLevelPromotion       NotificationType = "level_promotion"
	NotificationTypeSaleRecorded         NotificationType = "sale_recorded"
	NotificationTypeSystem               NotificationType = "system"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTypePaymentQualification, NotificationTypeLevelPromotion,
		NotificationTypeSaleRecorded, NotificationTypeSystem:
		return true
	}
	return false
}

type NotificationStatus string

const (
	NotificationStatusUnread NotificationStatus = "unread"
	NotificationStatusRead   NotificationStatus = "read"
)

// AdminSubject is the shared subject every admin connection listens on.
const AdminSubject = "admin"

// Notification model
type Notification struct {
	ID        primitive.ObjectID     `json:"id,omitempty" bson:"_id,omitempty"`
	Type      NotificationType       `json:"type" bson:"type"`
	Title     string                 `json:"title" bson:"title"`
	Message   string                 `json:"message" bson:"message"`
	SubjectID string                 `json:"subjectId" bson:"subjectId"` // marketer id hex or AdminSubject
	Payload   map[string]interface{} `json:"payload,omitempty" bson:"payload,omitempty"`
	Status    NotificationStatus     `json:"status" bson:"status"`
	CreatedAt time.Time              `json:"createdAt" bson:"createdAt"`
	ReadAt    *time.Time             `json:"readAt,omitempty" bson:"readAt,omitempty"`
}

func (n Notification) IsRead() bool {
	return n.Status == NotificationStatusRead
}

// NotificationPage is one cursor page of a subject's notifications.
type NotificationPage struct {
	Items       []Notification `json:"items"`
	NextCursor  string         `json:"nextCursor,omitempty"`
	PrevCursor  string         `json:"prevCursor,omitempty"`
	Total       int64          `json:"total"`
	UnreadCount int64          `json:"unreadCount"`
}

// NotificationCounts is the admin aggregate view.
type NotificationCounts struct {
	Total                int64 `json:"total"`
	Unread               int64 `json:"unread"`
	PaymentQualification int64 `json:"payment_qualification"`
	LevelPromotion       int64 `json:"level_promotion"`
}

// FCMTokenUpdateRequest represents the request body for updating FCM tokens
type FCMTokenUpdateRequest struct {
	FCMToken string `json:"fcmToken" validate:"required"`
}
