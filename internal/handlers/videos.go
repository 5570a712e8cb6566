package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/streamhive/backend/internal/models"
	"github.com/streamhive/backend/internal/repositories"
	"github.com/streamhive/backend/internal/uploads"
)

// VideoHandler implements video publishing and metadata endpoints.
type VideoHandler struct {
	Videos         VideoStore
	Media          MediaStore
	Uploads        *uploads.Stager
	MaxUploadBytes int64
}

// List handles GET /api/v1/videos.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	query := r.URL.Query()

	opts := repositories.VideoListOptions{
		Page:    queryInt(query.Get("page"), 1),
		Limit:   queryInt(query.Get("limit"), 10),
		Query:   strings.TrimSpace(query.Get("query")),
		SortBy:  strings.TrimSpace(query.Get("sortBy")),
		SortAsc: query.Get("sortType") == "asc",
	}

	if userID := query.Get("userId"); userID != "" {
		owner, err := primitive.ObjectIDFromHex(userID)
		if err != nil {
			return badRequest("invalid userId")
		}
		opts.Owner = &owner
	}

	page, err := h.Videos.List(ctx, opts)
	if err != nil {
		return internalError("failed to fetch videos", err)
	}
	return respond(ctx, w, http.StatusOK, page, "videos fetched successfully")
}

// Publish handles POST /api/v1/videos (multipart).
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	principal, err := mustPrincipal(r)
	if err != nil {
		return err
	}

	if err := parseMultipart(w, r, h.MaxUploadBytes); err != nil {
		return err
	}

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	if title == "" || description == "" {
		return badRequest("title and description are required")
	}

	duration := 0.0
	if raw := r.FormValue("duration"); raw != "" {
		duration, err = strconv.ParseFloat(raw, 64)
		if err != nil || duration < 0 {
			return badRequest("invalid duration")
		}
	}

	videoFile, videoHeader, err := r.FormFile("videoFile")
	if err != nil {
		return badRequest("video file is required")
	}
	defer videoFile.Close()

	thumbFile, thumbHeader, err := r.FormFile("thumbnail")
	if err != nil {
		return badRequest("thumbnail is required")
	}
	defer thumbFile.Close()

	videoURL, err := stageAndUpload(ctx, h.Uploads, h.Media, "videos", videoFile, videoHeader)
	if err != nil {
		return err
	}
	thumbURL, err := stageAndUpload(ctx, h.Uploads, h.Media, "thumbnails", thumbFile, thumbHeader)
	if err != nil {
		deleteAsset(ctx, h.Media, videoURL)
		return err
	}

	now := time.Now().UTC()
	created, err := h.Videos.Create(ctx, models.Video{
		Title:       title,
		Description: description,
		VideoFile:   videoURL,
		Thumbnail:   thumbURL,
		Duration:    duration,
		Owner:       principal.UserID,
		IsPublished: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return internalError("failed to create video", err)
	}

	return respond(ctx, w, http.StatusCreated, created, "video published successfully")
}

// Get handles GET /api/v1/videos/{videoId}.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	id, err := pathObjectID(r, "videoId")
	if err != nil {
		return err
	}

	video, err := h.Videos.FindByID(ctx, id)
	if err != nil {
		return storeError(err, "video not found", "")
	}
	return respond(ctx, w, http.StatusOK, video, "video fetched successfully")
}

// Update handles PATCH /api/v1/videos/{videoId} (multipart; thumbnail optional).
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	principal, err := mustPrincipal(r)
	if err != nil {
		return err
	}

	id, err := pathObjectID(r, "videoId")
	if err != nil {
		return err
	}

	if err := parseMultipart(w, r, h.MaxUploadBytes); err != nil {
		return err
	}

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	if title == "" || description == "" {
		return badRequest("title and description are required")
	}

	existing, err := h.Videos.FindByID(ctx, id)
	if err != nil {
		return storeError(err, "video not found", "")
	}
	if existing.Owner != principal.UserID {
		return notFound("video not found")
	}

	var thumbnail *string
	if thumbFile, thumbHeader, err := r.FormFile("thumbnail"); err == nil {
		defer thumbFile.Close()
		url, err := stageAndUpload(ctx, h.Uploads, h.Media, "thumbnails", thumbFile, thumbHeader)
		if err != nil {
			return err
		}
		thumbnail = &url
	}

	updated, err := h.Videos.UpdateDetails(ctx, id, principal.UserID, title, description, thumbnail)
	if err != nil {
		if thumbnail != nil {
			deleteAsset(ctx, h.Media, *thumbnail)
		}
		return storeError(err, "video not found", "")
	}
	if thumbnail != nil && existing.Thumbnail != *thumbnail {
		deleteAsset(ctx, h.Media, existing.Thumbnail)
	}

	return respond(ctx, w, http.StatusOK, updated, "video updated successfully")
}

// Delete handles DELETE /api/v1/videos/{videoId}. The backing media assets are
// released after the document is removed.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	principal, err := mustPrincipal(r)
	if err != nil {
		return err
	}

	id, err := pathObjectID(r, "videoId")
	if err != nil {
		return err
	}

	deleted, err := h.Videos.Delete(ctx, id, principal.UserID)
	if err != nil {
		return storeError(err, "video not found", "")
	}

	deleteAsset(ctx, h.Media, deleted.VideoFile)
	deleteAsset(ctx, h.Media, deleted.Thumbnail)

	return respond(ctx, w, http.StatusOK, map[string]string{"videoId": id.Hex()}, "video deleted successfully")
}

// TogglePublish handles PATCH /api/v1/videos/toggle/{videoId}.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	principal, err := mustPrincipal(r)
	if err != nil {
		return err
	}

	id, err := pathObjectID(r, "videoId")
	if err != nil {
		return err
	}

	existing, err := h.Videos.FindByID(ctx, id)
	if err != nil {
		return storeError(err, "video not found", "")
	}
	if existing.Owner != principal.UserID {
		return notFound("video not found")
	}

	updated, err := h.Videos.SetPublished(ctx, id, principal.UserID, !existing.IsPublished)
	if err != nil {
		return storeError(err, "video not found", "")
	}
	return respond(ctx, w, http.StatusOK, updated, "publish status updated successfully")
}

func queryInt(raw string, fallback int64) int64 {
	if raw == "" {
		return fallback
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
