package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "accounts"

type MongoStorage struct {
	client     *mongo.Client
	collection *mongo.Collection
	log        *slog.Logger
}

func NewMongoStorage(uri, database string, log *slog.Logger) (*MongoStorage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}

	collection := client.Database(database).Collection(collectionName)

	// Create index on user_id for faster lookups
	_, err = collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		log.Warn("creating index", slog.String("error", err.Error()))
	}

	return &MongoStorage{
		client:     client,
		collection: collection,
		log:        log,
	}, nil
}

func (m *MongoStorage) GetOrCreate(userId int64) (*Account, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var acc Account
	err := m.collection.FindOne(ctx, bson.M{"user_id": userId}).Decode(&acc)
	if err == nil {
		if acc.AvatarImages == nil {
			acc.AvatarImages = []string{}
		}
		return &acc, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("finding account: %w", err)
	}

	fresh := NewAccount(userId)
	_, err = m.collection.InsertOne(ctx, fresh)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Lost the creation race, read whoever won
			err = m.collection.FindOne(ctx, bson.M{"user_id": userId}).Decode(&acc)
			if err != nil {
				return nil, fmt.Errorf("finding account after race: %w", err)
			}
			return &acc, nil
		}
		return nil, fmt.Errorf("creating account: %w", err)
	}
	return fresh, nil
}

func (m *MongoStorage) GetCredits(userId int64) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var acc Account
	err := m.collection.FindOne(ctx, bson.M{"user_id": userId}).Decode(&acc)
	if err != nil {
		return 0, fmt.Errorf("finding account: %w", err)
	}
	return acc.Credits, nil
}

func (m *MongoStorage) SetCredits(userId int64, credits int) error {
	return m.setField(userId, "credits", credits)
}

func (m *MongoStorage) GetAvatarImages(userId int64) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var acc Account
	err := m.collection.FindOne(ctx, bson.M{"user_id": userId}).Decode(&acc)
	if err == mongo.ErrNoDocuments {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding account: %w", err)
	}
	if acc.AvatarImages == nil {
		return []string{}, nil
	}
	return acc.AvatarImages, nil
}

func (m *MongoStorage) SetAvatarImages(userId int64, images []string) error {
	return m.setField(userId, "avatar_images", images)
}

func (m *MongoStorage) SetAvatarEnabled(userId int64, enabled bool) error {
	return m.setField(userId, "avatar_enabled", enabled)
}

func (m *MongoStorage) setField(userId int64, field string, value interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			field:        value,
			"updated_at": time.Now(),
		},
	}
	res, err := m.collection.UpdateOne(ctx, bson.M{"user_id": userId}, update)
	if err != nil {
		return fmt.Errorf("updating %s: %w", field, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("account %d not found", userId)
	}
	return nil
}

func (m *MongoStorage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
