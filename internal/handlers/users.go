package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/streamhive/backend/internal/models"
	"github.com/streamhive/backend/internal/uploads"
)

// UserHandler implements registration, the session lifecycle, and the
// account/profile endpoints.
type UserHandler struct {
	Users          UserStore
	Videos         VideoStore
	Tokens         TokenManager
	Media          MediaStore
	Uploads        *uploads.Stager
	LoginLimiter   RateLimiter
	MaxUploadBytes int64
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	RefreshToken string `json:"refreshToken"`
	OldPassword  string `json:"oldPassword"`
	NewPassword  string `json:"newPassword"`
}

type sessionResponse struct {
	User models.User `json:"user"`
	models.TokenPair
}

// Register handles POST /api/v1/users/register (multipart).
func (h UserHandler) Register(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	if err := parseMultipart(w, r, h.MaxUploadBytes); err != nil {
		return err
	}

	username := strings.ToLower(strings.TrimSpace(r.FormValue("username")))
	email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
	fullName := strings.TrimSpace(r.FormValue("fullName"))
	password := r.FormValue("password")

	if username == "" || email == "" || fullName == "" || password == "" {
		return badRequest("username, email, fullName, and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return badRequest("invalid email address")
	}
	if len(password) < 8 {
		return badRequest("password must be at least 8 characters")
	}

	avatarFile, avatarHeader, err := r.FormFile("avatar")
	if err != nil {
		return badRequest("avatar image is required")
	}
	defer avatarFile.Close()

	exists, err := h.Users.Exists(ctx, username, email)
	if err != nil {
		return internalError("unable to verify existing accounts", err)
	}
	if exists {
		return conflict("user already exists")
	}

	avatarURL, err := stageAndUpload(ctx, h.Uploads, h.Media, "avatars", avatarFile, avatarHeader)
	if err != nil {
		return err
	}

	coverURL := ""
	if coverFile, coverHeader, err := r.FormFile("coverImage"); err == nil {
		defer coverFile.Close()
		coverURL, err = stageAndUpload(ctx, h.Uploads, h.Media, "covers", coverFile, coverHeader)
		if err != nil {
			return err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return internalError("failed to secure password", err)
	}

	now := time.Now().UTC()
	created, err := h.Users.Create(ctx, models.User{
		Username:   username,
		Email:      email,
		FullName:   fullName,
		Password:   string(hash),
		Avatar:     avatarURL,
		CoverImage: coverURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return storeError(err, "user not found", "user already exists")
	}

	return respond(ctx, w, http.StatusCreated, created, "user registered successfully")
}

// Login handles POST /api/v1/users/login.
func (h UserHandler) Login(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	if !allowRequest(h.LoginLimiter, r, "login") {
		return tooManyRequests("too many login attempts, slow down")
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return badRequest("invalid request body")
	}

	identifier := strings.ToLower(strings.TrimSpace(req.Username))
	if identifier == "" {
		identifier = strings.ToLower(strings.TrimSpace(req.Email))
	}
	if identifier == "" || req.Password == "" {
		return badRequest("username or email and password are required")
	}

	user, err := h.Users.FindByIdentifier(ctx, identifier)
	if err != nil {
		return unauthorized("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return unauthorized("invalid credentials")
	}

	pair, err := h.issueSession(r, user)
	if err != nil {
		return err
	}

	setAuthCookies(w, pair)
	return respond(ctx, w, http.StatusOK, sessionResponse{User: user, TokenPair: pair}, "user logged in successfully")
}

// Logout handles POST /api/v1/users/logout. Clearing an already cleared
// refresh token is silently successful.
func (h UserHandler) Logout(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	principal, err := mustPrincipal(r)
	if err != nil {
		return err
	}

	if err := h.Users.SetRefreshToken(ctx, principal.UserID, ""); err != nil {
		return storeError(err, "user not found", "")
	}

	clearAuthCookies(w)
	return respond(ctx, w, http.StatusOK, nil, "user logged out successfully")
}

// Refresh handles POST /api/v1/users/refresh-token: rotation-on-use with a
// server-side comparison that rejects replay of a rotated-out token.
func (h UserHandler) Refresh(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	token := h.refreshTokenFrom(r)
	if token == "" {
		return unauthorized("refresh token is required")
	}

	user, err := h.verifyRefreshToken(r, token)
	if err != nil {
		return err
	}

	pair, err := h.issueSession(r, user)
	if err != nil {
		return err
	}

	setAuthCookies(w, pair)
	return respond(ctx, w, http.StatusOK, pair, "access token refreshed")
}

// ChangePassword handles PATCH /api/v1/users/change-password. A valid,
// currently stored refresh token is required alongside the old password.
func (h UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return badRequest("invalid request body")
	}

	token := strings.TrimSpace(req.RefreshToken)
	if token == "" {
		if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
			token = cookie.Value
		}
	}
	if token == "" {
		return unauthorized("refresh token is required")
	}

	user, err := h.verifyRefreshToken(r, token)
	if err != nil {
		return err
	}

	if req.OldPassword == "" || req.NewPassword == "" {
		return badRequest("oldPassword and newPassword are required")
	}
	if len(req.NewPassword) < 8 {
		return badRequest("password must be at least 8 characters")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)) != nil {
		return unauthorized("old password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return internalError("failed to secure password", err)
	}
	if err := h.Users.SetPassword(ctx, user.ID, string(hash)); err != nil {
		return storeError(err, "user not found", "")
	}

	return respond(ctx, w, http.StatusOK, nil, "password changed successfully")
}

// ChangeUsername handles PATCH /api/v1/users/change-username.
func (h UserHandler) ChangeUsername(w http.ResponseWriter, r *http.Request) error {
	return h.changeField(w, r, "username", func(r *http.Request, p Principal, value string) error {
		value = strings.ToLower(value)
		return h.Users.SetUsername(r.Context(), p.UserID, value)
	})
}

// ChangeEmail handles PATCH /api/v1/users/change-email.
func (h UserHandler) ChangeEmail(w http.ResponseWriter, r *http.Request) error {
	return h.changeField(w, r, "email", func(r *http.Request, p Principal, value string) error {
		value = strings.ToLower(value)
		if _, err := mail.ParseAddress(value); err != nil {
			return badRequest("invalid email address")
		}
		return h.Users.SetEmail(r.Context(), p.UserID, value)
	})
}

func (h UserHandler) changeField(w http.ResponseWriter, r *http.Request, field string, apply func(*http.Request, Principal, string) error) error {
	ctx := r.Context()

	principal, err := mustPrincipal(r)
	if err != nil {
		return err
	}

	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return badRequest("invalid request body")
	}

	value := strings.TrimSpace(body[field])
	if value == "" {
		return badRequest(field + " is required")
	}

	if err := apply(r, principal, value); err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) {
			return err
		}
		return storeError(err, "user not found", field+" already taken")
	}

	return respond(ctx, w, http.StatusOK, map[string]string{field: strings.ToLower(value)}, field+" updated successfully")
}

// ChangeAvatar handles PATCH /api/v1/users/change-avatar (multipart).
func (h UserHandler) ChangeAvatar(w http.ResponseWriter, r *http.Request) error {
	return h.changeImage(w, r, "avatar", h.Users.SetAvatar)
}

// ChangeCoverImage handles PATCH /api/v1/users/change-coverImage (multipart).
func (h UserHandler) ChangeCoverImage(w http.ResponseWriter, r *http.Request) error {
	return h.changeImage(w, r, "coverImage", h.Users.SetCoverImage)
}

func (h UserHandler) changeImage(w http.ResponseWriter, r *http.Request, field string, swap func(ctx context.Context, id primitive.ObjectID, url string) (string, error)) error {
	ctx := r.Context()

	principal, err := mustPrincipal(r)
	if err != nil {
		return err
	}

	if err := parseMultipart(w, r, h.MaxUploadBytes); err != nil {
		return err
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		return badRequest(field + " image is required")
	}
	defer file.Close()

	folder := "avatars"
	if field == "coverImage" {
		folder = "covers"
	}
	url, err := stageAndUpload(ctx, h.Uploads, h.Media, folder, file, header)
	if err != nil {
		return err
	}

	previous, err := swap(ctx, principal.UserID, url)
	if err != nil {
		deleteAsset(ctx, h.Media, url)
		return storeError(err, "user not found", "")
	}
	deleteAsset(ctx, h.Media, previous)

	return respond(ctx, w, http.StatusOK, map[string]string{field: url}, field+" updated successfully")
}

// Current handles GET /api/v1/users/current.
func (h UserHandler) Current(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	principal, err := mustPrincipal(r)
	if err != nil {
		return err
	}

	user, err := h.Users.FindByID(ctx, principal.UserID)
	if err != nil {
		return storeError(err, "user not found", "")
	}
	return respond(ctx, w, http.StatusOK, user, "current user fetched successfully")
}

// Channel handles GET /api/v1/users/channel/{username}.
func (h UserHandler) Channel(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	principal, err := mustPrincipal(r)
	if err != nil {
		return err
	}

	username := strings.ToLower(strings.TrimSpace(r.PathValue("username")))
	if username == "" {
		return badRequest("username is required")
	}

	profile, err := h.Users.ChannelProfile(ctx, username, principal.UserID)
	if err != nil {
		return storeError(err, "channel not found", "")
	}
	return respond(ctx, w, http.StatusOK, profile, "channel profile fetched successfully")
}

// History handles GET /api/v1/users/history.
func (h UserHandler) History(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	principal, err := mustPrincipal(r)
	if err != nil {
		return err
	}

	watched, err := h.Users.WatchHistory(ctx, principal.UserID)
	if err != nil {
		return internalError("failed to fetch watch history", err)
	}
	return respond(ctx, w, http.StatusOK, watched, "watch history fetched successfully")
}

// RecordWatch handles POST /api/v1/users/history/{videoId}.
func (h UserHandler) RecordWatch(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	principal, err := mustPrincipal(r)
	if err != nil {
		return err
	}

	videoID, err := pathObjectID(r, "videoId")
	if err != nil {
		return err
	}
	if _, err := h.Videos.FindByID(ctx, videoID); err != nil {
		return storeError(err, "video not found", "")
	}

	if err := h.Users.RecordWatch(ctx, principal.UserID, videoID); err != nil {
		return storeError(err, "user not found", "")
	}
	return respond(ctx, w, http.StatusOK, map[string]string{"videoId": videoID.Hex()}, "watch recorded")
}

// issueSession creates a fresh token pair and persists the rotated refresh token.
func (h UserHandler) issueSession(r *http.Request, user models.User) (models.TokenPair, error) {
	pair, err := h.Tokens.Issue(user)
	if err != nil {
		return models.TokenPair{}, internalError("failed to issue session", err)
	}
	if err := h.Users.SetRefreshToken(r.Context(), user.ID, pair.RefreshToken); err != nil {
		return models.TokenPair{}, internalError("failed to persist session", err)
	}
	return pair, nil
}

// verifyRefreshToken validates the token's signature and confirms it is the
// one currently stored on the user record. A mismatch means the token was
// rotated out and must not be honoured again.
func (h UserHandler) verifyRefreshToken(r *http.Request, token string) (models.User, error) {
	claims, err := h.Tokens.ParseRefresh(token)
	if err != nil {
		return models.User{}, unauthorized("invalid refresh token")
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return models.User{}, unauthorized("invalid refresh token")
	}

	user, err := h.Users.FindByID(r.Context(), userID)
	if err != nil {
		return models.User{}, unauthorized("invalid refresh token")
	}
	if user.RefreshToken == "" || user.RefreshToken != token {
		return models.User{}, unauthorized("refresh token is no longer valid")
	}
	return user, nil
}

func (h UserHandler) refreshTokenFrom(r *http.Request) string {
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
		return strings.TrimSpace(req.RefreshToken)
	}
	return ""
}
