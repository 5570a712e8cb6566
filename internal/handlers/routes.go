package handlers

import "net/http"

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	users := UserHandler{
		Users:          deps.Users,
		Videos:         deps.Videos,
		Tokens:         deps.Tokens,
		Media:          deps.Media,
		Uploads:        deps.Uploads,
		LoginLimiter:   deps.LoginLimiter,
		MaxUploadBytes: deps.MaxUploadBytes,
	}
	videos := VideoHandler{
		Videos:         deps.Videos,
		Media:          deps.Media,
		Uploads:        deps.Uploads,
		MaxUploadBytes: deps.MaxUploadBytes,
	}
	comments := CommentHandler{Comments: deps.Comments, Videos: deps.Videos}
	likes := LikeHandler{Likes: deps.Likes}
	playlists := PlaylistHandler{Playlists: deps.Playlists, Videos: deps.Videos}
	subscriptions := SubscriptionHandler{Subscriptions: deps.Subscriptions, Users: deps.Users}

	guard := func(fn handlerFunc) http.HandlerFunc {
		return handle(requireAuth(deps.Tokens, fn))
	}

	mux.HandleFunc("GET /healthz", handle(health.Handle))

	mux.HandleFunc("POST /api/v1/users/register", handle(users.Register))
	mux.HandleFunc("POST /api/v1/users/login", handle(users.Login))
	mux.HandleFunc("POST /api/v1/users/logout", guard(users.Logout))
	mux.HandleFunc("POST /api/v1/users/refresh-token", handle(users.Refresh))
	mux.HandleFunc("PATCH /api/v1/users/change-password", handle(users.ChangePassword))
	mux.HandleFunc("PATCH /api/v1/users/change-username", guard(users.ChangeUsername))
	mux.HandleFunc("PATCH /api/v1/users/change-email", guard(users.ChangeEmail))
	mux.HandleFunc("PATCH /api/v1/users/change-avatar", guard(users.ChangeAvatar))
	mux.HandleFunc("PATCH /api/v1/users/change-coverImage", guard(users.ChangeCoverImage))
	mux.HandleFunc("GET /api/v1/users/current", guard(users.Current))
	mux.HandleFunc("GET /api/v1/users/channel/{username}", guard(users.Channel))
	mux.HandleFunc("GET /api/v1/users/history", guard(users.History))
	mux.HandleFunc("POST /api/v1/users/history/{videoId}", guard(users.RecordWatch))

	mux.HandleFunc("GET /api/v1/videos", handle(videos.List))
	mux.HandleFunc("POST /api/v1/videos", guard(videos.Publish))
	mux.HandleFunc("GET /api/v1/videos/{videoId}", handle(videos.Get))
	mux.HandleFunc("PATCH /api/v1/videos/{videoId}", guard(videos.Update))
	mux.HandleFunc("DELETE /api/v1/videos/{videoId}", guard(videos.Delete))
	mux.HandleFunc("PATCH /api/v1/videos/toggle/{videoId}", guard(videos.TogglePublish))

	mux.HandleFunc("GET /api/v1/comments/{videoId}", handle(comments.List))
	mux.HandleFunc("POST /api/v1/comments/{videoId}", guard(comments.Add))
	mux.HandleFunc("PATCH /api/v1/comments/c/{commentId}", guard(comments.Update))
	mux.HandleFunc("DELETE /api/v1/comments/c/{commentId}", guard(comments.Delete))

	mux.HandleFunc("POST /api/v1/likes/toggle/v/{videoId}", guard(likes.ToggleVideo))
	mux.HandleFunc("POST /api/v1/likes/toggle/c/{commentId}", guard(likes.ToggleComment))
	mux.HandleFunc("POST /api/v1/likes/toggle/t/{tweetId}", guard(likes.ToggleTweet))
	mux.HandleFunc("GET /api/v1/likes/videos", guard(likes.LikedVideos))

	mux.HandleFunc("POST /api/v1/playlists", guard(playlists.Create))
	mux.HandleFunc("GET /api/v1/playlists/user/{userId}", guard(playlists.ListForUser))
	mux.HandleFunc("GET /api/v1/playlists/{playlistId}", guard(playlists.Get))
	mux.HandleFunc("PATCH /api/v1/playlists/{playlistId}", guard(playlists.Update))
	mux.HandleFunc("PATCH /api/v1/playlists/add/{videoId}/{playlistId}", guard(playlists.AddVideo))
	mux.HandleFunc("PATCH /api/v1/playlists/remove/{videoId}/{playlistId}", guard(playlists.RemoveVideo))
	mux.HandleFunc("DELETE /api/v1/playlists/{playlistId}", guard(playlists.Delete))

	mux.HandleFunc("POST /api/v1/subscriptions/toggle/{channelId}", guard(subscriptions.Toggle))
	mux.HandleFunc("GET /api/v1/subscriptions/subscribed", guard(subscriptions.Subscribed))
}
