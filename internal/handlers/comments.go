package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/streamhive/backend/internal/models"
)

// CommentHandler implements comment CRUD and the paginated listing.
type CommentHandler struct {
	Comments CommentStore
	Videos   VideoStore
}

type commentRequest struct {
	Content string `json:"content"`
}

// List handles GET /api/v1/comments/{videoId}: the total count and one page
// of comments in a single aggregation round trip.
func (h CommentHandler) List(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	videoID, err := pathObjectID(r, "videoId")
	if err != nil {
		return err
	}
	if _, err := h.Videos.FindByID(ctx, videoID); err != nil {
		return storeError(err, "video not found", "")
	}

	query := r.URL.Query()
	page, err := h.Comments.ListForVideo(ctx, videoID, queryInt(query.Get("page"), 1), queryInt(query.Get("limit"), 10))
	if err != nil {
		return internalError("failed to fetch comments", err)
	}
	return respond(ctx, w, http.StatusOK, page, "comments fetched successfully")
}

// Add handles POST /api/v1/comments/{videoId}.
func (h CommentHandler) Add(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	principal, err := mustPrincipal(r)
	if err != nil {
		return err
	}

	videoID, err := pathObjectID(r, "videoId")
	if err != nil {
		return err
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return badRequest("invalid request body")
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return badRequest("content is required")
	}

	if _, err := h.Videos.FindByID(ctx, videoID); err != nil {
		return storeError(err, "video not found", "")
	}

	now := time.Now().UTC()
	created, err := h.Comments.Create(ctx, models.Comment{
		Content:   content,
		Video:     videoID,
		Owner:     principal.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return internalError("failed to post comment", err)
	}
	return respond(ctx, w, http.StatusCreated, created, "comment added successfully")
}

// Update handles PATCH /api/v1/comments/c/{commentId}, scoped to the owner.
func (h CommentHandler) Update(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	principal, err := mustPrincipal(r)
	if err != nil {
		return err
	}

	commentID, err := pathObjectID(r, "commentId")
	if err != nil {
		return err
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return badRequest("invalid request body")
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return badRequest("content is required")
	}

	updated, err := h.Comments.Update(ctx, commentID, principal.UserID, content)
	if err != nil {
		return storeError(err, "comment not found", "")
	}
	return respond(ctx, w, http.StatusOK, updated, "comment updated successfully")
}

// Delete handles DELETE /api/v1/comments/c/{commentId}, scoped to the owner.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	principal, err := mustPrincipal(r)
	if err != nil {
		return err
	}

	commentID, err := pathObjectID(r, "commentId")
	if err != nil {
		return err
	}

	if err := h.Comments.Delete(ctx, commentID, principal.UserID); err != nil {
		return storeError(err, "comment not found", "")
	}
	return respond(ctx, w, http.StatusOK, map[string]string{"commentId": commentID.Hex()}, "comment deleted successfully")
}
