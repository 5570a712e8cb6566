package handlers

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/streamhive/backend/internal/logging"
	"github.com/streamhive/backend/internal/uploads"
)

// parseMultipart caps the request body at maxBytes before parsing, so an
// oversized upload is rejected instead of spilling to the multipart temp dir.
func parseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return payloadTooLarge("request body too large")
		}
		return badRequest("invalid multipart form")
	}
	return nil
}

// stageAndUpload writes the multipart part to the staging directory, pushes it
// to the media host under the given folder, and removes the staged file
// synchronously whether or not the upload succeeded.
func stageAndUpload(ctx context.Context, stager *uploads.Stager, media MediaStore, folder string, file multipart.File, header *multipart.FileHeader) (string, error) {
	staged, err := stager.Stage(file, header)
	if err != nil {
		return "", internalError("failed to stage upload", err)
	}
	defer func() {
		if err := staged.Remove(); err != nil {
			logging.FromContext(ctx).Warn("remove staged file", "path", staged.Path, "error", err)
		}
	}()

	reader, err := staged.Open()
	if err != nil {
		return "", internalError("failed to read staged upload", err)
	}
	defer reader.Close()

	url, err := media.Upload(ctx, folder+"/"+staged.Name, staged.ContentType, reader)
	if err != nil {
		return "", internalError("failed to upload media asset", err)
	}
	return url, nil
}

// deleteAsset releases a media asset, logging rather than failing the request
// when the media host rejects the delete; the database is the source of truth
// and there is no reconciliation process.
func deleteAsset(ctx context.Context, media MediaStore, assetURL string) {
	if assetURL == "" {
		return
	}
	if err := media.Delete(ctx, assetURL); err != nil {
		logging.FromContext(ctx).Warn("delete media asset", "url", assetURL, "error", err)
	}
}
