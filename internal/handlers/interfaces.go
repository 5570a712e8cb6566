package handlers

import (
	"context"
	"io"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/streamhive/backend/internal/auth"
	"github.com/streamhive/backend/internal/models"
	"github.com/streamhive/backend/internal/repositories"
	"github.com/streamhive/backend/internal/uploads"
)

// UserStore captures the persistence operations required by the user handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) (models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (models.User, error)
	Exists(ctx context.Context, username, email string) (bool, error)
	SetRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error
	SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error
	SetUsername(ctx context.Context, id primitive.ObjectID, username string) error
	SetEmail(ctx context.Context, id primitive.ObjectID, email string) error
	SetAvatar(ctx context.Context, id primitive.ObjectID, url string) (string, error)
	SetCoverImage(ctx context.Context, id primitive.ObjectID, url string) (string, error)
	RecordWatch(ctx context.Context, id, videoID primitive.ObjectID) error
	ChannelProfile(ctx context.Context, username string, currentUser primitive.ObjectID) (models.ChannelProfile, error)
	WatchHistory(ctx context.Context, id primitive.ObjectID) ([]models.WatchedVideo, error)
}

// VideoStore captures persistence for video publishing workflows.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) (models.Video, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (models.Video, error)
	List(ctx context.Context, opts repositories.VideoListOptions) (repositories.VideoPage, error)
	UpdateDetails(ctx context.Context, id, owner primitive.ObjectID, title, description string, thumbnail *string) (models.Video, error)
	SetPublished(ctx context.Context, id, owner primitive.ObjectID, published bool) (models.Video, error)
	Delete(ctx context.Context, id, owner primitive.ObjectID) (models.Video, error)
}

// CommentStore captures persistence for video comments.
type CommentStore interface {
	Create(ctx context.Context, comment models.Comment) (models.Comment, error)
	Update(ctx context.Context, id, owner primitive.ObjectID, content string) (models.Comment, error)
	Delete(ctx context.Context, id, owner primitive.ObjectID) error
	ListForVideo(ctx context.Context, videoID primitive.ObjectID, page, limit int64) (models.CommentPage, error)
}

// LikeStore captures persistence for the polymorphic like toggle.
type LikeStore interface {
	Toggle(ctx context.Context, subject repositories.LikeSubject, likedBy primitive.ObjectID) (bool, error)
	LikedVideos(ctx context.Context, likedBy primitive.ObjectID) ([]models.Video, error)
}

// PlaylistStore captures persistence for playlists.
type PlaylistStore interface {
	Create(ctx context.Context, playlist models.Playlist) (models.Playlist, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (models.Playlist, error)
	ListForOwner(ctx context.Context, owner primitive.ObjectID) ([]models.Playlist, error)
	UpdateDetails(ctx context.Context, id, owner primitive.ObjectID, name, description string) (models.Playlist, error)
	AddVideo(ctx context.Context, id, owner, videoID primitive.ObjectID) error
	RemoveVideo(ctx context.Context, id, owner, videoID primitive.ObjectID) error
	Delete(ctx context.Context, id, owner primitive.ObjectID) error
}

// SubscriptionStore captures persistence for channel subscriptions.
type SubscriptionStore interface {
	Toggle(ctx context.Context, subscriber, channel primitive.ObjectID) (bool, error)
	SubscribedChannels(ctx context.Context, subscriber primitive.ObjectID) ([]models.PublicUser, error)
}

// TokenManager issues and verifies access/refresh token pairs.
type TokenManager interface {
	Issue(user models.User) (models.TokenPair, error)
	ParseAccess(token string) (*auth.AccessClaims, error)
	ParseRefresh(token string) (*auth.RefreshClaims, error)
}

// MediaStore hosts binary assets externally and returns durable URLs.
type MediaStore interface {
	Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, assetURL string) error
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users         UserStore
	Videos        VideoStore
	Comments      CommentStore
	Likes         LikeStore
	Playlists     PlaylistStore
	Subscriptions SubscriptionStore

	Tokens  TokenManager
	Media   MediaStore
	Uploads *uploads.Stager

	LoginLimiter   RateLimiter
	MaxUploadBytes int64
}
