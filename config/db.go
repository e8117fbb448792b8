// config/db.go
package config

import (
	"context"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectDB establishes connection to MongoDB and ensures the indexes the
// ledger and notification queries rely on.
func ConnectDB(cfg MongoConfig) (*mongo.Client, error) {
	log.Printf("Connecting to MongoDB at: %s", maskMongoURI(cfg.URI))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	log.Println("Connected to MongoDB")

	setupIndexes(client.Database(cfg.DBName))
	return client, nil
}

func setupIndexes(db *mongo.Database) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	indexes := map[string][]mongo.IndexModel{
		"marketers": {
			{
				Keys:    bson.D{{Key: "referralCode", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys: bson.D{{Key: "level", Value: 1}, {Key: "teamRevenue", Value: -1}},
			},
		},
		"sales": {
			{
				Keys:    bson.D{{Key: "idempotencyKey", Value: 1}},
				Options: options.Index().SetUnique(true).SetSparse(true),
			},
			{
				Keys: bson.D{{Key: "marketerId", Value: 1}, {Key: "createdAt", Value: -1}},
			},
		},
		"notifications": {
			{
				Keys: bson.D{{Key: "subjectId", Value: 1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}},
			},
			{
				Keys: bson.D{{Key: "subjectId", Value: 1}, {Key: "status", Value: 1}, {Key: "type", Value: 1}},
			},
		},
	}

	for collName, models := range indexes {
		if _, err := db.Collection(collName).Indexes().CreateMany(ctx, models); err != nil {
			log.Printf("Error creating indexes for %s: %v", collName, err)
		}
	}
	log.Println("Database indexes setup complete")
}

// maskMongoURI masks the password in MongoDB URI for logging
func maskMongoURI(uri string) string {
	if idx := strings.Index(uri, "@"); idx > 0 {
		if colonIdx := strings.LastIndex(uri[:idx], ":"); colonIdx > 0 {
			return uri[:colonIdx+1] + "***" + uri[idx:]
		}
	}
	return uri
}
