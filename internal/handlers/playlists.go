package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/streamhive/backend/internal/models"
)

// PlaylistHandler implements playlist CRUD and video membership.
type PlaylistHandler struct {
	Playlists PlaylistStore
	Videos    VideoStore
}

type playlistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Create handles POST /api/v1/playlists.
func (h PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	principal, err := mustPrincipal(r)
	if err != nil {
		return err
	}

	var req playlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return badRequest("invalid request body")
	}
	name := strings.TrimSpace(req.Name)
	description := strings.TrimSpace(req.Description)
	if name == "" || description == "" {
		return badRequest("name and description are required")
	}

	now := time.Now().UTC()
	created, err := h.Playlists.Create(ctx, models.Playlist{
		Name:        name,
		Description: description,
		Owner:       principal.UserID,
		Videos:      []primitive.ObjectID{},
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return internalError("failed to create playlist", err)
	}
	return respond(ctx, w, http.StatusCreated, created, "playlist created successfully")
}

// Get handles GET /api/v1/playlists/{playlistId}.
func (h PlaylistHandler) Get(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := pathObjectID(r, "playlistId")
	if err != nil {
		return err
	}

	playlist, err := h.Playlists.FindByID(ctx, id)
	if err != nil {
		return storeError(err, "playlist not found", "")
	}
	return respond(ctx, w, http.StatusOK, playlist, "playlist fetched successfully")
}

// ListForUser handles GET /api/v1/playlists/user/{userId}.
func (h PlaylistHandler) ListForUser(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	owner, err := pathObjectID(r, "userId")
	if err != nil {
		return err
	}

	playlists, err := h.Playlists.ListForOwner(ctx, owner)
	if err != nil {
		return internalError("failed to fetch playlists", err)
	}
	return respond(ctx, w, http.StatusOK, playlists, "playlists fetched successfully")
}

// Update handles PATCH /api/v1/playlists/{playlistId}, scoped to the owner.
func (h PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	principal, err := mustPrincipal(r)
	if err != nil {
		return err
	}

	id, err := pathObjectID(r, "playlistId")
	if err != nil {
		return err
	}

	var req playlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return badRequest("invalid request body")
	}
	name := strings.TrimSpace(req.Name)
	description := strings.TrimSpace(req.Description)
	if name == "" || description == "" {
		return badRequest("name and description are required")
	}

	updated, err := h.Playlists.UpdateDetails(ctx, id, principal.UserID, name, description)
	if err != nil {
		return storeError(err, "playlist not found", "")
	}
	return respond(ctx, w, http.StatusOK, updated, "playlist updated successfully")
}

// AddVideo handles PATCH /api/v1/playlists/add/{videoId}/{playlistId}.
func (h PlaylistHandler) AddVideo(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	principal, err := mustPrincipal(r)
	if err != nil {
		return err
	}

	videoID, err := pathObjectID(r, "videoId")
	if err != nil {
		return err
	}
	playlistID, err := pathObjectID(r, "playlistId")
	if err != nil {
		return err
	}

	if _, err := h.Videos.FindByID(ctx, videoID); err != nil {
		return storeError(err, "video not found", "")
	}

	if err := h.Playlists.AddVideo(ctx, playlistID, principal.UserID, videoID); err != nil {
		return storeError(err, "playlist not found", "video already in playlist")
	}

	return respond(ctx, w, http.StatusOK, map[string]string{
		"playlistId": playlistID.Hex(),
		"videoId":    videoID.Hex(),
	}, "video added to playlist successfully")
}

// RemoveVideo handles PATCH /api/v1/playlists/remove/{videoId}/{playlistId}.
// Removing a video that is not in the playlist is NotFound, not a silent no-op.
func (h PlaylistHandler) RemoveVideo(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	principal, err := mustPrincipal(r)
	if err != nil {
		return err
	}

	videoID, err := pathObjectID(r, "videoId")
	if err != nil {
		return err
	}
	playlistID, err := pathObjectID(r, "playlistId")
	if err != nil {
		return err
	}

	if err := h.Playlists.RemoveVideo(ctx, playlistID, principal.UserID, videoID); err != nil {
		return storeError(err, "video not found in playlist", "")
	}

	return respond(ctx, w, http.StatusOK, map[string]string{
		"playlistId": playlistID.Hex(),
		"videoId":    videoID.Hex(),
	}, "video removed from playlist successfully")
}

// Delete handles DELETE /api/v1/playlists/{playlistId}, scoped to the owner.
func (h PlaylistHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	principal, err := mustPrincipal(r)
	if err != nil {
		return err
	}

	id, err := pathObjectID(r, "playlistId")
	if err != nil {
		return err
	}

	if err := h.Playlists.Delete(ctx, id, principal.UserID); err != nil {
		return storeError(err, "playlist not found", "")
	}
	return respond(ctx, w, http.StatusOK, map[string]string{"playlistId": id.Hex()}, "playlist deleted successfully")
}
