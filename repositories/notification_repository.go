package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/HSouheill/affiliate_backend/models"
)

// NotificationRepository is the NotificationStore backed by MongoDB.
type NotificationRepository struct {
	collection *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{collection: db.Collection("notifications")}
}

func (r *NotificationRepository) Append(ctx context.Context, n *models.Notification) (primitive.ObjectID, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	n.ID = primitive.NewObjectID()
	n.Status = models.NotificationStatusUnread
	n.CreatedAt = storeTime(time.Now())
	n.ReadAt = nil

	if _, err := r.collection.InsertOne(ctx, n); err != nil {
		return primitive.NilObjectID, fmt.Errorf("failed to insert notification: %w", err)
	}
	return n.ID, nil
}

func (r *NotificationRepository) Get(ctx context.Context, id primitive.ObjectID) (*models.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var n models.Notification
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&n)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find notification: %w", err)
	}
	return &n, nil
}

func queryFilter(q ListQuery) bson.M {
	filter := bson.M{"subjectId": q.SubjectID}
	if q.Type != "" {
		filter["type"] = q.Type
	}
	if q.Status != "" {
		filter["status"] = q.Status
	}
	return filter
}

func (r *NotificationRepository) ListByCursor(ctx context.Context, q ListQuery) (*models.NotificationPage, error) {
	limit := normalizeLimit(q.Limit)

	var c *pageCursor
	if q.Cursor != "" {
		var err error
		if c, err = decodeCursor(q.Cursor); err != nil {
			return nil, err
		}
		anchor, err := r.Get(ctx, c.ID)
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCursor
		}
		if err != nil {
			return nil, err
		}
		if err := checkAnchor(c, anchor, q.SubjectID); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := queryFilter(q)
	sortDir := -1
	if c != nil {
		op := "$lt"
		if c.Direction == cursorNewer {
			op = "$gt"
			sortDir = 1
		}
		filter["$or"] = bson.A{
			bson.M{"createdAt": bson.M{op: c.CreatedAt}},
			bson.M{"createdAt": c.CreatedAt, "_id": bson.M{op: c.ID}},
		}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: sortDir}, {Key: "_id", Value: sortDir}}).
		SetLimit(int64(limit + 1))
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var window []models.Notification
	if err := cursor.All(ctx, &window); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}
	for i := range window {
		window[i].CreatedAt = window[i].CreatedAt.UTC()
	}

	page := buildPage(window, limit, c)

	if page.Total, err = r.collection.CountDocuments(ctx, queryFilter(q)); err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}
	unread := queryFilter(ListQuery{SubjectID: q.SubjectID, Type: q.Type, Status: models.NotificationStatusUnread})
	if page.UnreadCount, err = r.collection.CountDocuments(ctx, unread); err != nil {
		return nil, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return page, nil
}

func (r *NotificationRepository) markRead(ctx context.Context, filter bson.M) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter["status"] = models.NotificationStatusUnread
	update := bson.M{"$set": bson.M{
		"status": models.NotificationStatusRead,
		"readAt": storeTime(time.Now()),
	}}
	res, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return res.ModifiedCount, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, subjectID string, id primitive.ObjectID) error {
	n, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if n.SubjectID != subjectID {
		return ErrNotFound
	}
	_, err = r.markRead(ctx, bson.M{"_id": id, "subjectId": subjectID})
	return err
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, subjectID string) (int64, error) {
	return r.markRead(ctx, bson.M{"subjectId": subjectID})
}

func (r *NotificationRepository) MarkAllReadByType(ctx context.Context, subjectID string, t models.NotificationType) (int64, error) {
	return r.markRead(ctx, bson.M{"subjectId": subjectID, "type": t})
}

func (r *NotificationRepository) Delete(ctx context.Context, subjectID string, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "subjectId": subjectID})
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *NotificationRepository) Counts(ctx context.Context, subjectID string) (*models.NotificationCounts, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"subjectId": subjectID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": 1},
			"unread": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$status", models.NotificationStatusUnread}}, 1, 0,
			}}},
			"paymentQualification": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$type", models.NotificationTypePaymentQualification}}, 1, 0,
			}}},
			"levelPromotion": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$type", models.NotificationTypeLevelPromotion}}, 1, 0,
			}}},
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate notification counts: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Total                int64 `bson:"total"`
		Unread               int64 `bson:"unread"`
		PaymentQualification int64 `bson:"paymentQualification"`
		LevelPromotion       int64 `bson:"levelPromotion"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode notification counts: %w", err)
	}
	counts := &models.NotificationCounts{}
	if len(rows) > 0 {
		counts.Total = rows[0].Total
		counts.Unread = rows[0].Unread
		counts.PaymentQualification = rows[0].PaymentQualification
		counts.LevelPromotion = rows[0].LevelPromotion
	}
	return counts, nil
}
