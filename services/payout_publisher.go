package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/HSouheill/affiliate_backend/models"
)

// QualificationEvent is handed to the external payout executor.
type QualificationEvent struct {
	EventID        string    `json:"eventId"`
	NotificationID string    `json:"notificationId"`
	MarketerID     string    `json:"marketerId"`
	MarketerName   string    `json:"marketerName"`
	Level          int       `json:"level"`
	TeamRevenue    float64   `json:"teamRevenue"`
	PayoutAmount   float64   `json:"payoutAmount"`
	TierVersion    string    `json:"tierVersion"`
	QualifiedAt    time.Time `json:"qualifiedAt"`
}

// PayoutPublisher forwards qualifications; payment execution happens elsewhere.
type PayoutPublisher interface {
	PublishQualification(ctx context.Context, event QualificationEvent) error
}

type NoopPayoutPublisher struct{}

func (NoopPayoutPublisher) PublishQualification(context.Context, QualificationEvent) error {
	return nil
}

type KafkaPayoutPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPayoutPublisher(brokers []string, topic string) *KafkaPayoutPublisher {
	return &KafkaPayoutPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

func newQualificationEvent(n models.Notification, marketer *models.Marketer, tier models.TierRequirement) QualificationEvent {
	return QualificationEvent{
		EventID:        uuid.NewString(),
		NotificationID: n.ID.Hex(),
		MarketerID:     marketer.ID.Hex(),
		MarketerName:   marketer.Name,
		Level:          tier.Level,
		TeamRevenue:    marketer.TeamRevenue.Float64(),
		PayoutAmount:   tier.PayoutAmount.Float64(),
		TierVersion:    TierTableVersion,
		QualifiedAt:    n.CreatedAt,
	}
}

// PublishQualification keys messages by marketer so one marketer's events stay ordered.
func (p *KafkaPayoutPublisher) PublishQualification(ctx context.Context, event QualificationEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.MarketerID),
		Value: value,
		Time:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to publish qualification event: %w", err)
	}
	return nil
}

func (p *KafkaPayoutPublisher) Close() error {
	return p.writer.Close()
}
