package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/streamhive/backend/internal/db"
	"github.com/streamhive/backend/internal/models"
)

// MongoSubscriptionRepository provides MongoDB-backed persistence for
// channel subscriptions.
type MongoSubscriptionRepository struct {
	subscriptions *mongo.Collection
}

// NewMongoSubscriptionRepository constructs a subscription repository backed by MongoDB.
func NewMongoSubscriptionRepository(m *db.Mongo) *MongoSubscriptionRepository {
	return &MongoSubscriptionRepository{subscriptions: m.Collection(db.SubscriptionsCollection)}
}

// Toggle flips the subscription state between subscriber and channel,
// reporting whether the subscription exists after the call.
func (r *MongoSubscriptionRepository) Toggle(ctx context.Context, subscriber, channel primitive.ObjectID) (bool, error) {
	filter := bson.M{"subscriber": subscriber, "channel": channel}

	err := r.subscriptions.FindOneAndDelete(ctx, filter).Err()
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return false, fmt.Errorf("remove subscription: %w", err)
	}

	_, err = r.subscriptions.InsertOne(ctx, models.Subscription{
		Subscriber: subscriber,
		Channel:    channel,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return true, nil
		}
		return false, fmt.Errorf("insert subscription: %w", err)
	}
	return true, nil
}

// SubscribedChannels lists the public profiles of channels the user follows.
func (r *MongoSubscriptionRepository) SubscribedChannels(ctx context.Context, subscriber primitive.ObjectID) ([]models.PublicUser, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"subscriber": subscriber}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         db.UsersCollection,
			"localField":   "channel",
			"foreignField": "_id",
			"as":           "channel",
			"pipeline": mongo.Pipeline{
				{{Key: "$project", Value: bson.M{
					"username": 1, "fullName": 1, "avatar": 1, "coverImage": 1,
				}}},
			},
		}}},
		{{Key: "$unwind", Value: "$channel"}},
		{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$channel"}}},
	}

	cursor, err := r.subscriptions.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate subscribed channels: %w", err)
	}
	defer cursor.Close(ctx)

	channels := []models.PublicUser{}
	if err := cursor.All(ctx, &channels); err != nil {
		return nil, fmt.Errorf("decode subscribed channels: %w", err)
	}
	return channels, nil
}
