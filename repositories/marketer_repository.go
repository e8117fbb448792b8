package repositories

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/HSouheill/affiliate_backend/models"
)

const queryTimeout = 10 * time.Second

// MongoLedger is the LedgerStore backed by the marketers and sales collections.
type MongoLedger struct {
	marketers *mongo.Collection
	sales     *mongo.Collection
	state     *mongo.Collection
}

const revenueMonthKey = "revenue_month"

func NewMongoLedger(db *mongo.Database) *MongoLedger {
	return &MongoLedger{
		marketers: db.Collection("marketers"),
		sales:     db.Collection("sales"),
		state:     db.Collection("ledger_state"),
	}
}

func (r *MongoLedger) CreateMarketer(ctx context.Context, marketer *models.Marketer) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if marketer.ID.IsZero() {
		marketer.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if marketer.CreatedAt.IsZero() {
		marketer.CreatedAt = now
	}
	marketer.UpdatedAt = now

	if _, err := r.marketers.InsertOne(ctx, marketer); err != nil {
		return fmt.Errorf("failed to insert marketer: %w", err)
	}
	return nil
}

func (r *MongoLedger) findMarketer(ctx context.Context, filter bson.M) (*models.Marketer, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var marketer models.Marketer
	err := r.marketers.FindOne(ctx, filter).Decode(&marketer)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find marketer: %w", err)
	}
	return &marketer, nil
}

func (r *MongoLedger) GetMarketer(ctx context.Context, id primitive.ObjectID) (*models.Marketer, error) {
	return r.findMarketer(ctx, bson.M{"_id": id})
}

func (r *MongoLedger) FindMarketerByReferralCode(ctx context.Context, code string) (*models.Marketer, error) {
	return r.findMarketer(ctx, bson.M{"referralCode": code})
}

func (r *MongoLedger) UpdateFCMToken(ctx context.Context, id primitive.ObjectID, token string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.marketers.UpdateByID(ctx, id, bson.M{"$set": bson.M{"fcmToken": token, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("failed to update fcm token: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoLedger) InsertSale(ctx context.Context, sale *models.Sale) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if sale.ID.IsZero() {
		sale.ID = primitive.NewObjectID()
	}
	_, err := r.sales.InsertOne(ctx, sale)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateSale
	}
	if err != nil {
		return fmt.Errorf("failed to insert sale: %w", err)
	}
	return nil
}

func (r *MongoLedger) DeleteSale(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.sales.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete sale: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoLedger) FindSaleByIdempotencyKey(ctx context.Context, key string) (*models.Sale, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var sale models.Sale
	err := r.sales.FindOne(ctx, bson.M{"idempotencyKey": key}).Decode(&sale)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find sale: %w", err)
	}
	return &sale, nil
}

func (r *MongoLedger) ListSales(ctx context.Context, marketerID *primitive.ObjectID, limit int) ([]models.Sale, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{}
	if marketerID != nil {
		filter["marketerId"] = *marketerID
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.sales.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer cursor.Close(ctx)

	sales := make([]models.Sale, 0, limit)
	if err := cursor.All(ctx, &sales); err != nil {
		return nil, fmt.Errorf("failed to decode sales: %w", err)
	}
	return sales, nil
}

func (r *MongoLedger) IncrementRevenue(ctx context.Context, id primitive.ObjectID, amount models.Money) (*models.Marketer, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	update := bson.M{
		"$inc": bson.M{
			"teamRevenue":    int64(amount),
			"monthlyRevenue": int64(amount),
		},
		"$set": bson.M{
			"updatedAt": time.Now().UTC(),
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	headroom := bson.M{"$lte": int64(math.MaxInt64 - amount)}
	filter := bson.M{"_id": id, "teamRevenue": headroom, "monthlyRevenue": headroom}

	var marketer models.Marketer
	err := r.marketers.FindOneAndUpdate(ctx, filter, update, opts).Decode(&marketer)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, findErr := r.GetMarketer(ctx, id); findErr != nil {
			return nil, findErr
		}
		return nil, ErrRevenueOverflow
	}
	if err != nil {
		return nil, fmt.Errorf("failed to increment revenue: %w", err)
	}
	return &marketer, nil
}

func (r *MongoLedger) ResetMonthlyRevenue(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.marketers.UpdateMany(ctx,
		bson.M{"monthlyRevenue": bson.M{"$ne": 0}},
		bson.M{"$set": bson.M{"monthlyRevenue": int64(0), "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reset monthly revenue: %w", err)
	}
	return res.ModifiedCount, nil
}

func (r *MongoLedger) SwapRevenueMonth(ctx context.Context, month string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{"month": month, "updatedAt": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.Before)

	var before struct {
		Month string `bson:"month"`
	}
	err := r.state.FindOneAndUpdate(ctx, bson.M{"_id": revenueMonthKey}, update, opts).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to record revenue month: %w", err)
	}
	return before.Month, nil
}

func (r *MongoLedger) ClaimQualification(ctx context.Context, id primitive.ObjectID, level int) (int, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "lastNotifiedLevel": bson.M{"$lt": level}}
	update := bson.M{"$set": bson.M{"lastNotifiedLevel": level}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var before models.Marketer
	err := r.marketers.FindOneAndUpdate(ctx, filter, update, opts).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to claim qualification: %w", err)
	}
	return before.LastNotifiedLevel, true, nil
}

func (r *MongoLedger) ReleaseQualification(ctx context.Context, id primitive.ObjectID, level, previous int) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.marketers.UpdateOne(ctx,
		bson.M{"_id": id, "lastNotifiedLevel": level},
		bson.M{"$set": bson.M{"lastNotifiedLevel": previous}},
	)
	if err != nil {
		return fmt.Errorf("failed to release qualification: %w", err)
	}
	return nil
}

func (r *MongoLedger) ListQualificationCandidates(ctx context.Context, level int, threshold models.Money, limit int) ([]models.Marketer, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{
		"level":             level,
		"teamRevenue":       bson.M{"$gte": int64(threshold)},
		"lastNotifiedLevel": bson.M{"$lt": level},
	}
	cursor, err := r.marketers.Find(ctx, filter, options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to list qualification candidates: %w", err)
	}
	defer cursor.Close(ctx)

	var marketers []models.Marketer
	if err := cursor.All(ctx, &marketers); err != nil {
		return nil, fmt.Errorf("failed to decode marketers: %w", err)
	}
	return marketers, nil
}
