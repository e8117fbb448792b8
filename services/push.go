package services

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"

	"github.com/HSouheill/affiliate_backend/models"
)

// PushSender delivers a notification to a mobile device token.
type PushSender interface {
	Send(ctx context.Context, token string, n models.Notification) error
}

type FCMPushSender struct {
	client *messaging.Client
}

func NewFCMPushSender(ctx context.Context, app *firebase.App) (*FCMPushSender, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize messaging client: %w", err)
	}
	return &FCMPushSender{client: client}, nil
}

func (p *FCMPushSender) Send(ctx context.Context, token string, n models.Notification) error {
	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Message,
		},
		Data: map[string]string{
			"type":           string(n.Type),
			"notificationId": n.ID.Hex(),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:     "default",
				ChannelID: "affiliate_notifications",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{Title: n.Title, Body: n.Message},
					Sound: "default",
				},
			},
		},
	}
	if _, err := p.client.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send FCM notification: %w", err)
	}
	return nil
}
