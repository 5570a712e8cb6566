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

// MongoCommentRepository provides MongoDB-backed persistence for comments.
type MongoCommentRepository struct {
	comments *mongo.Collection
}

// NewMongoCommentRepository constructs a comment repository backed by MongoDB.
func NewMongoCommentRepository(m *db.Mongo) *MongoCommentRepository {
	return &MongoCommentRepository{comments: m.Collection(db.CommentsCollection)}
}

// Create persists a new comment document.
func (r *MongoCommentRepository) Create(ctx context.Context, comment models.Comment) (models.Comment, error) {
	res, err := r.comments.InsertOne(ctx, comment)
	if err != nil {
		return models.Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	comment.ID = res.InsertedID.(primitive.ObjectID)
	return comment, nil
}

// Update replaces the comment text, scoped to the owner.
func (r *MongoCommentRepository) Update(ctx context.Context, id, owner primitive.ObjectID, content string) (models.Comment, error) {
	var updated models.Comment
	err := r.comments.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "owner": owner},
		bson.M{"$set": bson.M{"content": content, "updatedAt": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Comment{}, ErrNotFound
		}
		return models.Comment{}, fmt.Errorf("update comment: %w", err)
	}
	return updated, nil
}

// Delete removes a comment scoped to the owner.
func (r *MongoCommentRepository) Delete(ctx context.Context, id, owner primitive.ObjectID) error {
	res, err := r.comments.DeleteOne(ctx, bson.M{"_id": id, "owner": owner})
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListForVideo returns one page of a video's comments plus the total count in
// a single aggregation round trip, each comment joined with its author's
// public projection.
func (r *MongoCommentRepository) ListForVideo(ctx context.Context, videoID primitive.ObjectID, page, limit int64) (models.CommentPage, error) {
	ctx, span := logging.StartSpan(ctx, "comments.list_for_video")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"video": videoID}}},
		{{Key: "$facet", Value: bson.M{
			"total": mongo.Pipeline{
				{{Key: "$count", Value: "count"}},
			},
			"page": mongo.Pipeline{
				{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
				{{Key: "$skip", Value: (page - 1) * limit}},
				{{Key: "$limit", Value: limit}},
				{{Key: "$lookup", Value: bson.M{
					"from":         db.UsersCollection,
					"localField":   "owner",
					"foreignField": "_id",
					"as":           "author",
					"pipeline": mongo.Pipeline{
						{{Key: "$project", Value: bson.M{
							"username": 1, "fullName": 1, "avatar": 1,
						}}},
					},
				}}},
				{{Key: "$unwind", Value: "$author"}},
			},
		}}},
		{{Key: "$project", Value: bson.M{
			"totalComments": bson.M{"$ifNull": bson.A{bson.M{"$arrayElemAt": bson.A{"$total.count", 0}}, 0}},
			"comments":      "$page",
		}}},
	}

	cursor, err := r.comments.Aggregate(ctx, pipeline)
	if err != nil {
		return models.CommentPage{}, fmt.Errorf("aggregate comments: %w", err)
	}
	defer cursor.Close(ctx)

	var pages []models.CommentPage
	if err := cursor.All(ctx, &pages); err != nil {
		return models.CommentPage{}, fmt.Errorf("decode comments: %w", err)
	}
	if len(pages) == 0 {
		return models.CommentPage{Page: page, Limit: limit, Comments: []models.CommentWithOwner{}}, nil
	}

	result := pages[0]
	result.Page = page
	result.Limit = limit
	if result.Comments == nil {
		result.Comments = []models.CommentWithOwner{}
	}
	return result, nil
}
