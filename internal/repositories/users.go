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

	"github.com/streamhive/backend/internal/db"
	"github.com/streamhive/backend/internal/logging"
	"github.com/streamhive/backend/internal/models"
)

// MongoUserRepository provides MongoDB-backed persistence for users.
type MongoUserRepository struct {
	users *mongo.Collection
}

// NewMongoUserRepository constructs a user repository backed by MongoDB.
func NewMongoUserRepository(m *db.Mongo) *MongoUserRepository {
	return &MongoUserRepository{users: m.Collection(db.UsersCollection)}
}

// Create persists a new user document.
func (r *MongoUserRepository) Create(ctx context.Context, user models.User) (models.User, error) {
	res, err := r.users.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.User{}, ErrConflict
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}

	user.ID = res.InsertedID.(primitive.ObjectID)
	return user, nil
}

// FindByID fetches a user by its object id.
func (r *MongoUserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var user models.User
	err := r.users.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by id: %w", err)
	}
	return user, nil
}

// FindByIdentifier fetches a user whose username or email matches the identifier.
func (r *MongoUserRepository) FindByIdentifier(ctx context.Context, identifier string) (models.User, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"username": identifier},
		bson.M{"email": identifier},
	}}

	var user models.User
	if err := r.users.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by identifier: %w", err)
	}
	return user, nil
}

// Exists reports whether a user with the given username or email already exists.
func (r *MongoUserRepository) Exists(ctx context.Context, username, email string) (bool, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"username": username},
		bson.M{"email": email},
	}}

	count, err := r.users.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return count > 0, nil
}

// SetRefreshToken stores the user's current refresh token. An empty token
// clears the field, revoking the session.
func (r *MongoUserRepository) SetRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error {
	update := bson.M{"$set": bson.M{"refreshToken": token, "updatedAt": time.Now().UTC()}}
	if token == "" {
		update = bson.M{
			"$unset": bson.M{"refreshToken": ""},
			"$set":   bson.M{"updatedAt": time.Now().UTC()},
		}
	}

	res, err := r.users.UpdateByID(ctx, id, update)
	if err != nil {
		return fmt.Errorf("update refresh token: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPassword replaces the stored password hash.
func (r *MongoUserRepository) SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return r.setField(ctx, id, "password", hash)
}

// SetUsername changes the account's unique username.
func (r *MongoUserRepository) SetUsername(ctx context.Context, id primitive.ObjectID, username string) error {
	return r.setField(ctx, id, "username", username)
}

// SetEmail changes the account's unique email address.
func (r *MongoUserRepository) SetEmail(ctx context.Context, id primitive.ObjectID, email string) error {
	return r.setField(ctx, id, "email", email)
}

// SetAvatar swaps the avatar URL and returns the previous one so the caller
// can release the old asset.
func (r *MongoUserRepository) SetAvatar(ctx context.Context, id primitive.ObjectID, url string) (string, error) {
	return r.swapImage(ctx, id, "avatar", url)
}

// SetCoverImage swaps the cover image URL and returns the previous one.
func (r *MongoUserRepository) SetCoverImage(ctx context.Context, id primitive.ObjectID, url string) (string, error) {
	return r.swapImage(ctx, id, "coverImage", url)
}

func (r *MongoUserRepository) setField(ctx context.Context, id primitive.ObjectID, field, value string) error {
	res, err := r.users.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{field: value, "updatedAt": time.Now().UTC()},
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConflict
		}
		return fmt.Errorf("update user %s: %w", field, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoUserRepository) swapImage(ctx context.Context, id primitive.ObjectID, field, url string) (string, error) {
	var previous models.User
	err := r.users.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{field: url, "updatedAt": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&previous)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("update user %s: %w", field, err)
	}

	if field == "avatar" {
		return previous.Avatar, nil
	}
	return previous.CoverImage, nil
}

// RecordWatch prepends the video to the user's watch history, removing any
// earlier occurrence so the list stays most-recent-first without duplicates.
func (r *MongoUserRepository) RecordWatch(ctx context.Context, id, videoID primitive.ObjectID) error {
	if _, err := r.users.UpdateByID(ctx, id, bson.M{
		"$pull": bson.M{"watchHistory": videoID},
	}); err != nil {
		return fmt.Errorf("dedupe watch history: %w", err)
	}

	res, err := r.users.UpdateByID(ctx, id, bson.M{
		"$push": bson.M{"watchHistory": bson.M{"$each": bson.A{videoID}, "$position": 0}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("push watch history: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ChannelProfile aggregates the public channel view for a username: the user
// document joined against subscriptions twice to compute subscriber and
// subscribed-to counts, plus whether the current user is a subscriber.
func (r *MongoUserRepository) ChannelProfile(ctx context.Context, username string, currentUser primitive.ObjectID) (models.ChannelProfile, error) {
	ctx, span := logging.StartSpan(ctx, "users.channel_profile")
	defer span.End()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"username": username}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         db.SubscriptionsCollection,
			"localField":   "_id",
			"foreignField": "channel",
			"as":           "subscribers",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         db.SubscriptionsCollection,
			"localField":   "_id",
			"foreignField": "subscriber",
			"as":           "subscribedTo",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"subscriberCount":   bson.M{"$size": "$subscribers"},
			"subscribedToCount": bson.M{"$size": "$subscribedTo"},
			"isSubscribed": bson.M{
				"$in": bson.A{currentUser, "$subscribers.subscriber"},
			},
		}}},
		{{Key: "$project", Value: bson.M{
			"username":          1,
			"fullName":          1,
			"email":             1,
			"avatar":            1,
			"coverImage":        1,
			"subscriberCount":   1,
			"subscribedToCount": 1,
			"isSubscribed":      1,
		}}},
	}

	cursor, err := r.users.Aggregate(ctx, pipeline)
	if err != nil {
		return models.ChannelProfile{}, fmt.Errorf("aggregate channel profile: %w", err)
	}
	defer cursor.Close(ctx)

	var profiles []models.ChannelProfile
	if err := cursor.All(ctx, &profiles); err != nil {
		return models.ChannelProfile{}, fmt.Errorf("decode channel profile: %w", err)
	}
	if len(profiles) == 0 {
		return models.ChannelProfile{}, ErrNotFound
	}
	return profiles[0], nil
}

// WatchHistory resolves the user's watched video ids into video documents,
// each joined with a public projection of the owning channel.
func (r *MongoUserRepository) WatchHistory(ctx context.Context, id primitive.ObjectID) ([]models.WatchedVideo, error) {
	ctx, span := logging.StartSpan(ctx, "users.watch_history")
	defer span.End()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": id}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         db.VideosCollection,
			"localField":   "watchHistory",
			"foreignField": "_id",
			"as":           "watched",
			"pipeline": mongo.Pipeline{
				{{Key: "$lookup", Value: bson.M{
					"from":         db.UsersCollection,
					"localField":   "owner",
					"foreignField": "_id",
					"as":           "author",
					"pipeline": mongo.Pipeline{
						{{Key: "$project", Value: bson.M{
							"username": 1, "fullName": 1, "avatar": 1, "coverImage": 1,
						}}},
					},
				}}},
				{{Key: "$unwind", Value: "$author"}},
			},
		}}},
		{{Key: "$unwind", Value: "$watched"}},
		{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$watched"}}},
	}

	cursor, err := r.users.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate watch history: %w", err)
	}
	defer cursor.Close(ctx)

	var watched []models.WatchedVideo
	if err := cursor.All(ctx, &watched); err != nil {
		return nil, fmt.Errorf("decode watch history: %w", err)
	}
	return watched, nil
}
