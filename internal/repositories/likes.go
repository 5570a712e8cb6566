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
	"github.com/streamhive/backend/internal/logging"
	"github.com/streamhive/backend/internal/models"
)

// LikeSubject names exactly one likeable resource.
type LikeSubject struct {
	Video   *primitive.ObjectID
	Comment *primitive.ObjectID
	Tweet   *primitive.ObjectID
}

func (s LikeSubject) filter(likedBy primitive.ObjectID) (bson.M, error) {
	filter := bson.M{"likedBy": likedBy}
	set := 0
	if s.Video != nil {
		filter["video"] = *s.Video
		set++
	}
	if s.Comment != nil {
		filter["comment"] = *s.Comment
		set++
	}
	if s.Tweet != nil {
		filter["tweet"] = *s.Tweet
		set++
	}
	if set != 1 {
		return nil, fmt.Errorf("like subject must reference exactly one resource, got %d", set)
	}
	return filter, nil
}

// MongoLikeRepository provides MongoDB-backed persistence for likes.
type MongoLikeRepository struct {
	likes *mongo.Collection
}

// NewMongoLikeRepository constructs a like repository backed by MongoDB.
func NewMongoLikeRepository(m *db.Mongo) *MongoLikeRepository {
	return &MongoLikeRepository{likes: m.Collection(db.LikesCollection)}
}

// Toggle flips the like state for the (subject, user) pair. It reports whether
// the subject is liked after the call, so two consecutive calls always return
// to the original state.
func (r *MongoLikeRepository) Toggle(ctx context.Context, subject LikeSubject, likedBy primitive.ObjectID) (bool, error) {
	filter, err := subject.filter(likedBy)
	if err != nil {
		return false, err
	}

	err = r.likes.FindOneAndDelete(ctx, filter).Err()
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return false, fmt.Errorf("remove like: %w", err)
	}

	like := models.Like{
		Video:     subject.Video,
		Comment:   subject.Comment,
		Tweet:     subject.Tweet,
		LikedBy:   likedBy,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := r.likes.InsertOne(ctx, like); err != nil {
		// A concurrent toggle may have inserted the like first; the pair is
		// liked either way.
		if mongo.IsDuplicateKeyError(err) {
			return true, nil
		}
		return false, fmt.Errorf("insert like: %w", err)
	}
	return true, nil
}

// LikedVideos lists the videos the user has liked, resolved via a lookup into
// the videos collection.
func (r *MongoLikeRepository) LikedVideos(ctx context.Context, likedBy primitive.ObjectID) ([]models.Video, error) {
	ctx, span := logging.StartSpan(ctx, "likes.liked_videos")
	defer span.End()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"likedBy": likedBy,
			"video":   bson.M{"$exists": true},
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         db.VideosCollection,
			"localField":   "video",
			"foreignField": "_id",
			"as":           "video",
		}}},
		{{Key: "$unwind", Value: "$video"}},
		{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$video"}}},
	}

	cursor, err := r.likes.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate liked videos: %w", err)
	}
	defer cursor.Close(ctx)

	videos := []models.Video{}
	if err := cursor.All(ctx, &videos); err != nil {
		return nil, fmt.Errorf("decode liked videos: %w", err)
	}
	return videos, nil
}
