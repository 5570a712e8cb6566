package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/streamhive/backend/internal/logging"
	"github.com/streamhive/backend/internal/repositories"
)

// envelope is the uniform response body: success and error responses both
// carry the HTTP status so clients never have to reconcile the two.
type envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data,omitempty"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// apiError is the single tagged error every handler failure is normalised
// into before it reaches the routing boundary.
type apiError struct {
	Status  int
	Message string
	cause   error
}

func (e *apiError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *apiError) Unwrap() error { return e.cause }

func badRequest(message string) error {
	return &apiError{Status: http.StatusBadRequest, Message: message}
}

func unauthorized(message string) error {
	return &apiError{Status: http.StatusUnauthorized, Message: message}
}

func notFound(message string) error {
	return &apiError{Status: http.StatusNotFound, Message: message}
}

func conflict(message string) error {
	return &apiError{Status: http.StatusConflict, Message: message}
}

func tooManyRequests(message string) error {
	return &apiError{Status: http.StatusTooManyRequests, Message: message}
}

func payloadTooLarge(message string) error {
	return &apiError{Status: http.StatusRequestEntityTooLarge, Message: message}
}

func internalError(message string, cause error) error {
	return &apiError{Status: http.StatusInternalServerError, Message: message, cause: cause}
}

// storeError maps repository sentinels onto API errors; anything unexpected
// surfaces as a 500 carrying the underlying message.
func storeError(err error, notFoundMsg, conflictMsg string) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return notFound(notFoundMsg)
	case errors.Is(err, repositories.ErrConflict):
		return conflict(conflictMsg)
	default:
		return internalError("unexpected persistence failure", err)
	}
}

// handlerFunc is an http.HandlerFunc that propagates its failure instead of
// writing it, so error rendering happens in exactly one place.
type handlerFunc func(http.ResponseWriter, *http.Request) error

// handle adapts a handlerFunc into an http.HandlerFunc, rendering any error
// as the uniform error envelope.
func handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}

		var apiErr *apiError
		if !errors.As(err, &apiErr) {
			apiErr = &apiError{Status: http.StatusInternalServerError, Message: "internal server error", cause: err}
		}

		logger := logging.FromContext(r.Context())
		if apiErr.Status >= http.StatusInternalServerError {
			logger.Error("request failed", "status", apiErr.Status, "error", apiErr.Error())
		} else {
			logger.Warn("request rejected", "status", apiErr.Status, "message", apiErr.Message)
		}

		writeJSON(r.Context(), w, apiErr.Status, envelope{
			StatusCode: apiErr.Status,
			Message:    apiErr.Message,
			Success:    false,
		})
	}
}

// respond writes a success envelope.
func respond(ctx context.Context, w http.ResponseWriter, status int, data any, message string) error {
	writeJSON(ctx, w, status, envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    true,
	})
	return nil
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
	}
}

// pathObjectID parses the named path segment as a Mongo object id.
func pathObjectID(r *http.Request, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(r.PathValue(name))
	if err != nil {
		return primitive.NilObjectID, badRequest(fmt.Sprintf("invalid %s", name))
	}
	return id, nil
}
