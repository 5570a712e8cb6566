package handlers

import (
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/streamhive/backend/internal/repositories"
)

// LikeHandler implements the polymorphic like toggle and liked-video listing.
type LikeHandler struct {
	Likes LikeStore
}

// ToggleVideo handles POST /api/v1/likes/toggle/v/{videoId}.
func (h LikeHandler) ToggleVideo(w http.ResponseWriter, r *http.Request) error {
	return h.toggle(w, r, "videoId", func(s *repositories.LikeSubject, id primitive.ObjectID) { s.Video = &id })
}

// ToggleComment handles POST /api/v1/likes/toggle/c/{commentId}.
func (h LikeHandler) ToggleComment(w http.ResponseWriter, r *http.Request) error {
	return h.toggle(w, r, "commentId", func(s *repositories.LikeSubject, id primitive.ObjectID) { s.Comment = &id })
}

// ToggleTweet handles POST /api/v1/likes/toggle/t/{tweetId}.
func (h LikeHandler) ToggleTweet(w http.ResponseWriter, r *http.Request) error {
	return h.toggle(w, r, "tweetId", func(s *repositories.LikeSubject, id primitive.ObjectID) { s.Tweet = &id })
}

func (h LikeHandler) toggle(w http.ResponseWriter, r *http.Request, param string, bind func(*repositories.LikeSubject, primitive.ObjectID)) error {
	ctx := r.Context()

	principal, err := mustPrincipal(r)
	if err != nil {
		return err
	}

	id, err := pathObjectID(r, param)
	if err != nil {
		return err
	}

	var subject repositories.LikeSubject
	bind(&subject, id)

	liked, err := h.Likes.Toggle(ctx, subject, principal.UserID)
	if err != nil {
		return internalError("failed to toggle like", err)
	}

	message := "like removed"
	if liked {
		message = "like added"
	}
	return respond(ctx, w, http.StatusOK, map[string]bool{"liked": liked}, message)
}

// LikedVideos handles GET /api/v1/likes/videos.
func (h LikeHandler) LikedVideos(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	principal, err := mustPrincipal(r)
	if err != nil {
		return err
	}

	videos, err := h.Likes.LikedVideos(ctx, principal.UserID)
	if err != nil {
		return internalError("failed to fetch liked videos", err)
	}
	return respond(ctx, w, http.StatusOK, videos, "liked videos fetched successfully")
}
