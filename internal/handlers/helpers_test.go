package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/streamhive/backend/internal/auth"
	"github.com/streamhive/backend/internal/models"
	"github.com/streamhive/backend/internal/repositories"
	"github.com/streamhive/backend/internal/uploads"
)

type inMemoryUserStore struct {
	users map[primitive.ObjectID]models.User
}

func newInMemoryUserStore() *inMemoryUserStore {
	return &inMemoryUserStore{users: make(map[primitive.ObjectID]models.User)}
}

func (s *inMemoryUserStore) Create(_ context.Context, user models.User) (models.User, error) {
	for _, existing := range s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return models.User{}, repositories.ErrConflict
		}
	}
	user.ID = primitive.NewObjectID()
	s.users[user.ID] = user
	return user, nil
}

func (s *inMemoryUserStore) FindByID(_ context.Context, id primitive.ObjectID) (models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *inMemoryUserStore) FindByIdentifier(_ context.Context, identifier string) (models.User, error) {
	for _, user := range s.users {
		if user.Username == identifier || user.Email == identifier {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *inMemoryUserStore) Exists(_ context.Context, username, email string) (bool, error) {
	for _, user := range s.users {
		if user.Username == username || user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *inMemoryUserStore) SetRefreshToken(_ context.Context, id primitive.ObjectID, token string) error {
	user, ok := s.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	user.RefreshToken = token
	s.users[id] = user
	return nil
}

func (s *inMemoryUserStore) SetPassword(_ context.Context, id primitive.ObjectID, hash string) error {
	user, ok := s.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	user.Password = hash
	s.users[id] = user
	return nil
}

func (s *inMemoryUserStore) SetUsername(_ context.Context, id primitive.ObjectID, username string) error {
	for other, existing := range s.users {
		if other != id && existing.Username == username {
			return repositories.ErrConflict
		}
	}
	user, ok := s.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	user.Username = username
	s.users[id] = user
	return nil
}

func (s *inMemoryUserStore) SetEmail(_ context.Context, id primitive.ObjectID, email string) error {
	for other, existing := range s.users {
		if other != id && existing.Email == email {
			return repositories.ErrConflict
		}
	}
	user, ok := s.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	user.Email = email
	s.users[id] = user
	return nil
}

func (s *inMemoryUserStore) SetAvatar(_ context.Context, id primitive.ObjectID, url string) (string, error) {
	user, ok := s.users[id]
	if !ok {
		return "", repositories.ErrNotFound
	}
	previous := user.Avatar
	user.Avatar = url
	s.users[id] = user
	return previous, nil
}

func (s *inMemoryUserStore) SetCoverImage(_ context.Context, id primitive.ObjectID, url string) (string, error) {
	user, ok := s.users[id]
	if !ok {
		return "", repositories.ErrNotFound
	}
	previous := user.CoverImage
	user.CoverImage = url
	s.users[id] = user
	return previous, nil
}

func (s *inMemoryUserStore) RecordWatch(_ context.Context, id, videoID primitive.ObjectID) error {
	user, ok := s.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	history := []primitive.ObjectID{videoID}
	for _, existing := range user.WatchHistory {
		if existing != videoID {
			history = append(history, existing)
		}
	}
	user.WatchHistory = history
	s.users[id] = user
	return nil
}

func (s *inMemoryUserStore) ChannelProfile(_ context.Context, username string, _ primitive.ObjectID) (models.ChannelProfile, error) {
	for _, user := range s.users {
		if user.Username == username {
			return models.ChannelProfile{PublicUser: user.Public(), Email: user.Email}, nil
		}
	}
	return models.ChannelProfile{}, repositories.ErrNotFound
}

func (s *inMemoryUserStore) WatchHistory(_ context.Context, id primitive.ObjectID) ([]models.WatchedVideo, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	watched := make([]models.WatchedVideo, 0, len(user.WatchHistory))
	for _, videoID := range user.WatchHistory {
		watched = append(watched, models.WatchedVideo{Video: models.Video{ID: videoID}})
	}
	return watched, nil
}

type inMemoryVideoStore struct {
	videos map[primitive.ObjectID]models.Video
}

func newInMemoryVideoStore() *inMemoryVideoStore {
	return &inMemoryVideoStore{videos: make(map[primitive.ObjectID]models.Video)}
}

func (s *inMemoryVideoStore) Create(_ context.Context, video models.Video) (models.Video, error) {
	video.ID = primitive.NewObjectID()
	s.videos[video.ID] = video
	return video, nil
}

func (s *inMemoryVideoStore) FindByID(_ context.Context, id primitive.ObjectID) (models.Video, error) {
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return video, nil
}

func (s *inMemoryVideoStore) List(_ context.Context, opts repositories.VideoListOptions) (repositories.VideoPage, error) {
	page := repositories.VideoPage{CurrentPage: opts.Page, Videos: []models.Video{}}
	for _, video := range s.videos {
		if opts.Owner != nil && video.Owner != *opts.Owner {
			continue
		}
		page.Videos = append(page.Videos, video)
	}
	page.TotalVideos = int64(len(page.Videos))
	page.TotalPages = 1
	return page, nil
}

func (s *inMemoryVideoStore) UpdateDetails(_ context.Context, id, owner primitive.ObjectID, title, description string, thumbnail *string) (models.Video, error) {
	video, ok := s.videos[id]
	if !ok || video.Owner != owner {
		return models.Video{}, repositories.ErrNotFound
	}
	video.Title = title
	video.Description = description
	if thumbnail != nil {
		video.Thumbnail = *thumbnail
	}
	s.videos[id] = video
	return video, nil
}

func (s *inMemoryVideoStore) SetPublished(_ context.Context, id, owner primitive.ObjectID, published bool) (models.Video, error) {
	video, ok := s.videos[id]
	if !ok || video.Owner != owner {
		return models.Video{}, repositories.ErrNotFound
	}
	video.IsPublished = published
	s.videos[id] = video
	return video, nil
}

func (s *inMemoryVideoStore) Delete(_ context.Context, id, owner primitive.ObjectID) (models.Video, error) {
	video, ok := s.videos[id]
	if !ok || video.Owner != owner {
		return models.Video{}, repositories.ErrNotFound
	}
	delete(s.videos, id)
	return video, nil
}

type inMemoryCommentStore struct {
	comments map[primitive.ObjectID]models.Comment
}

func newInMemoryCommentStore() *inMemoryCommentStore {
	return &inMemoryCommentStore{comments: make(map[primitive.ObjectID]models.Comment)}
}

func (s *inMemoryCommentStore) Create(_ context.Context, comment models.Comment) (models.Comment, error) {
	comment.ID = primitive.NewObjectID()
	s.comments[comment.ID] = comment
	return comment, nil
}

func (s *inMemoryCommentStore) Update(_ context.Context, id, owner primitive.ObjectID, content string) (models.Comment, error) {
	comment, ok := s.comments[id]
	if !ok || comment.Owner != owner {
		return models.Comment{}, repositories.ErrNotFound
	}
	comment.Content = content
	s.comments[id] = comment
	return comment, nil
}

func (s *inMemoryCommentStore) Delete(_ context.Context, id, owner primitive.ObjectID) error {
	comment, ok := s.comments[id]
	if !ok || comment.Owner != owner {
		return repositories.ErrNotFound
	}
	delete(s.comments, id)
	return nil
}

func (s *inMemoryCommentStore) ListForVideo(_ context.Context, videoID primitive.ObjectID, page, limit int64) (models.CommentPage, error) {
	result := models.CommentPage{Page: page, Limit: limit, Comments: []models.CommentWithOwner{}}
	for _, comment := range s.comments {
		if comment.Video == videoID {
			result.Comments = append(result.Comments, models.CommentWithOwner{Comment: comment})
		}
	}
	result.TotalComments = int64(len(result.Comments))
	return result, nil
}

type likeKey struct {
	subject primitive.ObjectID
	likedBy primitive.ObjectID
}

type inMemoryLikeStore struct {
	likes map[likeKey]repositories.LikeSubject
}

func newInMemoryLikeStore() *inMemoryLikeStore {
	return &inMemoryLikeStore{likes: make(map[likeKey]repositories.LikeSubject)}
}

func (s *inMemoryLikeStore) Toggle(_ context.Context, subject repositories.LikeSubject, likedBy primitive.ObjectID) (bool, error) {
	var id primitive.ObjectID
	switch {
	case subject.Video != nil:
		id = *subject.Video
	case subject.Comment != nil:
		id = *subject.Comment
	case subject.Tweet != nil:
		id = *subject.Tweet
	}
	key := likeKey{subject: id, likedBy: likedBy}
	if _, ok := s.likes[key]; ok {
		delete(s.likes, key)
		return false, nil
	}
	s.likes[key] = subject
	return true, nil
}

func (s *inMemoryLikeStore) LikedVideos(_ context.Context, likedBy primitive.ObjectID) ([]models.Video, error) {
	videos := []models.Video{}
	for key, subject := range s.likes {
		if key.likedBy == likedBy && subject.Video != nil {
			videos = append(videos, models.Video{ID: *subject.Video})
		}
	}
	return videos, nil
}

type inMemoryPlaylistStore struct {
	playlists map[primitive.ObjectID]models.Playlist
}

func newInMemoryPlaylistStore() *inMemoryPlaylistStore {
	return &inMemoryPlaylistStore{playlists: make(map[primitive.ObjectID]models.Playlist)}
}

func (s *inMemoryPlaylistStore) Create(_ context.Context, playlist models.Playlist) (models.Playlist, error) {
	playlist.ID = primitive.NewObjectID()
	s.playlists[playlist.ID] = playlist
	return playlist, nil
}

func (s *inMemoryPlaylistStore) FindByID(_ context.Context, id primitive.ObjectID) (models.Playlist, error) {
	playlist, ok := s.playlists[id]
	if !ok {
		return models.Playlist{}, repositories.ErrNotFound
	}
	return playlist, nil
}

func (s *inMemoryPlaylistStore) ListForOwner(_ context.Context, owner primitive.ObjectID) ([]models.Playlist, error) {
	playlists := []models.Playlist{}
	for _, playlist := range s.playlists {
		if playlist.Owner == owner {
			playlists = append(playlists, playlist)
		}
	}
	return playlists, nil
}

func (s *inMemoryPlaylistStore) UpdateDetails(_ context.Context, id, owner primitive.ObjectID, name, description string) (models.Playlist, error) {
	playlist, ok := s.playlists[id]
	if !ok || playlist.Owner != owner {
		return models.Playlist{}, repositories.ErrNotFound
	}
	playlist.Name = name
	playlist.Description = description
	s.playlists[id] = playlist
	return playlist, nil
}

func (s *inMemoryPlaylistStore) AddVideo(_ context.Context, id, owner, videoID primitive.ObjectID) error {
	playlist, ok := s.playlists[id]
	if !ok || playlist.Owner != owner {
		return repositories.ErrNotFound
	}
	for _, existing := range playlist.Videos {
		if existing == videoID {
			return repositories.ErrConflict
		}
	}
	playlist.Videos = append(playlist.Videos, videoID)
	s.playlists[id] = playlist
	return nil
}

func (s *inMemoryPlaylistStore) RemoveVideo(_ context.Context, id, owner, videoID primitive.ObjectID) error {
	playlist, ok := s.playlists[id]
	if !ok || playlist.Owner != owner {
		return repositories.ErrNotFound
	}
	for i, existing := range playlist.Videos {
		if existing == videoID {
			playlist.Videos = append(playlist.Videos[:i], playlist.Videos[i+1:]...)
			s.playlists[id] = playlist
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (s *inMemoryPlaylistStore) Delete(_ context.Context, id, owner primitive.ObjectID) error {
	playlist, ok := s.playlists[id]
	if !ok || playlist.Owner != owner {
		return repositories.ErrNotFound
	}
	delete(s.playlists, id)
	return nil
}

type subscriptionKey struct {
	subscriber primitive.ObjectID
	channel    primitive.ObjectID
}

type inMemorySubscriptionStore struct {
	subs map[subscriptionKey]struct{}
}

func newInMemorySubscriptionStore() *inMemorySubscriptionStore {
	return &inMemorySubscriptionStore{subs: make(map[subscriptionKey]struct{})}
}

func (s *inMemorySubscriptionStore) Toggle(_ context.Context, subscriber, channel primitive.ObjectID) (bool, error) {
	key := subscriptionKey{subscriber: subscriber, channel: channel}
	if _, ok := s.subs[key]; ok {
		delete(s.subs, key)
		return false, nil
	}
	s.subs[key] = struct{}{}
	return true, nil
}

func (s *inMemorySubscriptionStore) SubscribedChannels(_ context.Context, subscriber primitive.ObjectID) ([]models.PublicUser, error) {
	channels := []models.PublicUser{}
	for key := range s.subs {
		if key.subscriber == subscriber {
			channels = append(channels, models.PublicUser{ID: key.channel})
		}
	}
	return channels, nil
}

// fakeMediaStore records every upload and delete so tests can assert on
// asset lifecycle without a real object store.
type fakeMediaStore struct {
	uploads []string
	deletes []string
	failOn  string
}

func (s *fakeMediaStore) Upload(_ context.Context, key, _ string, r io.Reader) (string, error) {
	if s.failOn != "" && strings.HasPrefix(key, s.failOn) {
		return "", fmt.Errorf("upload %s: simulated failure", key)
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	url := "https://media.test/" + key
	s.uploads = append(s.uploads, url)
	return url, nil
}

func (s *fakeMediaStore) Delete(_ context.Context, assetURL string) error {
	s.deletes = append(s.deletes, assetURL)
	return nil
}

// testEnv wires the full route table against in-memory stores so tests
// exercise routing, auth middleware, and handlers together.
type testEnv struct {
	mux    *http.ServeMux
	users  *inMemoryUserStore
	videos *inMemoryVideoStore

	comments      *inMemoryCommentStore
	likes         *inMemoryLikeStore
	playlists     *inMemoryPlaylistStore
	subscriptions *inMemorySubscriptionStore

	media  *fakeMediaStore
	stager *uploads.Stager
	tokens *auth.TokenManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	stager, err := uploads.NewStager(t.TempDir())
	if err != nil {
		t.Fatalf("create stager: %v", err)
	}

	env := &testEnv{
		mux:           http.NewServeMux(),
		users:         newInMemoryUserStore(),
		videos:        newInMemoryVideoStore(),
		comments:      newInMemoryCommentStore(),
		likes:         newInMemoryLikeStore(),
		playlists:     newInMemoryPlaylistStore(),
		subscriptions: newInMemorySubscriptionStore(),
		media:         &fakeMediaStore{},
		stager:        stager,
		tokens:        auth.NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour),
	}

	// Advance the token clock on every read so tokens issued back-to-back in
	// the same test never share a second-granularity timestamp.
	base := time.Now()
	var ticks int64
	env.tokens.NowFunc = func() time.Time {
		ticks++
		return base.Add(time.Duration(ticks) * time.Second)
	}

	RegisterRoutes(env.mux, Dependencies{
		Users:          env.users,
		Videos:         env.videos,
		Comments:       env.comments,
		Likes:          env.likes,
		Playlists:      env.playlists,
		Subscriptions:  env.subscriptions,
		Tokens:         env.tokens,
		Media:          env.media,
		Uploads:        stager,
		MaxUploadBytes: 32 << 20,
	})

	return env
}

// seedUser inserts a user with a bcrypt-hashed password and returns it.
func (e *testEnv) seedUser(t *testing.T, username, email, password string) models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	user, err := e.users.Create(context.Background(), models.User{
		Username: username,
		Email:    email,
		FullName: "Test User",
		Password: string(hash),
		Avatar:   "https://media.test/avatars/seed.png",
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// login issues a session for the user the way the login handler would.
func (e *testEnv) login(t *testing.T, user models.User) models.TokenPair {
	t.Helper()

	pair, err := e.tokens.Issue(user)
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}
	if err := e.users.SetRefreshToken(context.Background(), user.ID, pair.RefreshToken); err != nil {
		t.Fatalf("persist refresh token: %v", err)
	}
	return pair
}

func (e *testEnv) do(t *testing.T, method, target, accessToken string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doJSON(t *testing.T, method, target, accessToken string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	return e.do(t, method, target, accessToken, body, "application/json")
}

// doJSONDirect invokes a single handler without going through the route
// table, for cases that need a custom handler configuration.
func (e *testEnv) doJSONDirect(t *testing.T, handler http.HandlerFunc, method, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	req := httptest.NewRequest(method, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

type testEnvelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()

	var env testEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()

	env := decodeEnvelope(t, rec)
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decode envelope data: %v", err)
	}
}

// multipartBody builds a multipart form with the given fields and files.
func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()

	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatalf("write field %s: %v", name, err)
		}
	}
	for name, contents := range files {
		part, err := writer.CreateFormFile(name, name+".bin")
		if err != nil {
			t.Fatalf("create file part %s: %v", name, err)
		}
		if _, err := part.Write(contents); err != nil {
			t.Fatalf("write file part %s: %v", name, err)
		}
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return buf, writer.FormDataContentType()
}
