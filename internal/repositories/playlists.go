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

// MongoPlaylistRepository provides MongoDB-backed persistence for playlists.
type MongoPlaylistRepository struct {
	playlists *mongo.Collection
}

// NewMongoPlaylistRepository constructs a playlist repository backed by MongoDB.
func NewMongoPlaylistRepository(m *db.Mongo) *MongoPlaylistRepository {
	return &MongoPlaylistRepository{playlists: m.Collection(db.PlaylistsCollection)}
}

// Create persists a new playlist document.
func (r *MongoPlaylistRepository) Create(ctx context.Context, playlist models.Playlist) (models.Playlist, error) {
	res, err := r.playlists.InsertOne(ctx, playlist)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("insert playlist: %w", err)
	}
	playlist.ID = res.InsertedID.(primitive.ObjectID)
	return playlist, nil
}

// FindByID fetches a playlist by its object id.
func (r *MongoPlaylistRepository) FindByID(ctx context.Context, id primitive.ObjectID) (models.Playlist, error) {
	var playlist models.Playlist
	if err := r.playlists.FindOne(ctx, bson.M{"_id": id}).Decode(&playlist); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Playlist{}, ErrNotFound
		}
		return models.Playlist{}, fmt.Errorf("select playlist: %w", err)
	}
	return playlist, nil
}

// ListForOwner fetches every playlist belonging to the user.
func (r *MongoPlaylistRepository) ListForOwner(ctx context.Context, owner primitive.ObjectID) ([]models.Playlist, error) {
	cursor, err := r.playlists.Find(ctx, bson.M{"owner": owner},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	defer cursor.Close(ctx)

	playlists := []models.Playlist{}
	if err := cursor.All(ctx, &playlists); err != nil {
		return nil, fmt.Errorf("decode playlists: %w", err)
	}
	return playlists, nil
}

// UpdateDetails renames or re-describes a playlist, scoped to the owner.
func (r *MongoPlaylistRepository) UpdateDetails(ctx context.Context, id, owner primitive.ObjectID, name, description string) (models.Playlist, error) {
	var updated models.Playlist
	err := r.playlists.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "owner": owner},
		bson.M{"$set": bson.M{"name": name, "description": description, "updatedAt": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Playlist{}, ErrNotFound
		}
		return models.Playlist{}, fmt.Errorf("update playlist: %w", err)
	}
	return updated, nil
}

// AddVideo appends a video to the playlist. ErrConflict when the video is
// already present, ErrNotFound when the playlist does not exist for the owner.
func (r *MongoPlaylistRepository) AddVideo(ctx context.Context, id, owner, videoID primitive.ObjectID) error {
	res, err := r.playlists.UpdateOne(ctx,
		bson.M{"_id": id, "owner": owner, "videos": bson.M{"$ne": videoID}},
		bson.M{
			"$push": bson.M{"videos": videoID},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		})
	if err != nil {
		return fmt.Errorf("add video to playlist: %w", err)
	}
	if res.MatchedCount == 0 {
		// Distinguish a missing playlist from a duplicate video.
		count, err := r.playlists.CountDocuments(ctx, bson.M{"_id": id, "owner": owner}, options.Count().SetLimit(1))
		if err != nil {
			return fmt.Errorf("check playlist: %w", err)
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrConflict
	}
	return nil
}

// RemoveVideo pulls a video from the playlist. ErrNotFound when the playlist
// does not exist for the owner or does not contain the video.
func (r *MongoPlaylistRepository) RemoveVideo(ctx context.Context, id, owner, videoID primitive.ObjectID) error {
	res, err := r.playlists.UpdateOne(ctx,
		bson.M{"_id": id, "owner": owner, "videos": videoID},
		bson.M{
			"$pull": bson.M{"videos": videoID},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		})
	if err != nil {
		return fmt.Errorf("remove video from playlist: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a playlist scoped to the owner.
func (r *MongoPlaylistRepository) Delete(ctx context.Context, id, owner primitive.ObjectID) error {
	res, err := r.playlists.DeleteOne(ctx, bson.M{"_id": id, "owner": owner})
	if err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
