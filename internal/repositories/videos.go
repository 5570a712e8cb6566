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
	"github.com/streamhive/backend/internal/models"
)

// VideoListOptions filter and paginate the video listing.
type VideoListOptions struct {
	Page    int64
	Limit   int64
	Query   string
	SortBy  string
	SortAsc bool
	Owner   *primitive.ObjectID
}

// VideoPage is a single page of the video listing.
type VideoPage struct {
	Videos      []models.Video `json:"videos"`
	TotalVideos int64          `json:"totalVideos"`
	TotalPages  int64          `json:"totalPages"`
	CurrentPage int64          `json:"currentPage"`
}

// MongoVideoRepository provides MongoDB-backed persistence for videos.
type MongoVideoRepository struct {
	videos *mongo.Collection
}

// NewMongoVideoRepository constructs a video repository backed by MongoDB.
func NewMongoVideoRepository(m *db.Mongo) *MongoVideoRepository {
	return &MongoVideoRepository{videos: m.Collection(db.VideosCollection)}
}

// Create persists a new video document.
func (r *MongoVideoRepository) Create(ctx context.Context, video models.Video) (models.Video, error) {
	res, err := r.videos.InsertOne(ctx, video)
	if err != nil {
		return models.Video{}, fmt.Errorf("insert video: %w", err)
	}
	video.ID = res.InsertedID.(primitive.ObjectID)
	return video, nil
}

// FindByID fetches a video by its object id.
func (r *MongoVideoRepository) FindByID(ctx context.Context, id primitive.ObjectID) (models.Video, error) {
	var video models.Video
	if err := r.videos.FindOne(ctx, bson.M{"_id": id}).Decode(&video); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("select video: %w", err)
	}
	return video, nil
}

// List returns one page of videos matching the options, with the total count
// for pagination.
func (r *MongoVideoRepository) List(ctx context.Context, opts VideoListOptions) (VideoPage, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = 10
	}
	if opts.SortBy == "" {
		opts.SortBy = "createdAt"
	}

	filter := bson.M{}
	if opts.Query != "" {
		filter["title"] = bson.M{"$regex": opts.Query, "$options": "i"}
	}
	if opts.Owner != nil {
		filter["owner"] = *opts.Owner
	}

	order := -1
	if opts.SortAsc {
		order = 1
	}

	total, err := r.videos.CountDocuments(ctx, filter)
	if err != nil {
		return VideoPage{}, fmt.Errorf("count videos: %w", err)
	}

	cursor, err := r.videos.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: opts.SortBy, Value: order}}).
		SetSkip((opts.Page-1)*opts.Limit).
		SetLimit(opts.Limit))
	if err != nil {
		return VideoPage{}, fmt.Errorf("list videos: %w", err)
	}
	defer cursor.Close(ctx)

	videos := []models.Video{}
	if err := cursor.All(ctx, &videos); err != nil {
		return VideoPage{}, fmt.Errorf("decode videos: %w", err)
	}

	return VideoPage{
		Videos:      videos,
		TotalVideos: total,
		TotalPages:  (total + opts.Limit - 1) / opts.Limit,
		CurrentPage: opts.Page,
	}, nil
}

// UpdateDetails modifies a video's title, description, and optionally its
// thumbnail, scoped to the owner. It returns the updated document.
func (r *MongoVideoRepository) UpdateDetails(ctx context.Context, id, owner primitive.ObjectID, title, description string, thumbnail *string) (models.Video, error) {
	set := bson.M{
		"title":       title,
		"description": description,
		"updatedAt":   time.Now().UTC(),
	}
	if thumbnail != nil {
		set["thumbnail"] = *thumbnail
	}

	var updated models.Video
	err := r.videos.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "owner": owner},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("update video: %w", err)
	}
	return updated, nil
}

// SetPublished flips the publish flag, scoped to the owner.
func (r *MongoVideoRepository) SetPublished(ctx context.Context, id, owner primitive.ObjectID, published bool) (models.Video, error) {
	var updated models.Video
	err := r.videos.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "owner": owner},
		bson.M{"$set": bson.M{"isPublished": published, "updatedAt": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("toggle publish: %w", err)
	}
	return updated, nil
}

// Delete removes a video scoped to the owner and returns the deleted document
// so the caller can release the backing media assets.
func (r *MongoVideoRepository) Delete(ctx context.Context, id, owner primitive.ObjectID) (models.Video, error) {
	var deleted models.Video
	err := r.videos.FindOneAndDelete(ctx, bson.M{"_id": id, "owner": owner}).Decode(&deleted)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("delete video: %w", err)
	}
	return deleted, nil
}
