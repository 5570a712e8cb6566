package app

import (
	"context"
	"fmt"
	"time"

	"github.com/streamhive/backend/internal/auth"
	"github.com/streamhive/backend/internal/config"
	"github.com/streamhive/backend/internal/db"
	"github.com/streamhive/backend/internal/handlers"
	"github.com/streamhive/backend/internal/media"
	"github.com/streamhive/backend/internal/middleware"
	"github.com/streamhive/backend/internal/repositories"
	"github.com/streamhive/backend/internal/uploads"
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, mongo *db.Mongo, cfg config.Config) (handlers.Dependencies, error) {
	store, err := media.NewS3Store(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, fmt.Errorf("configure object store: %w", err)
	}

	stager, err := uploads.NewStager(cfg.UploadDir)
	if err != nil {
		return handlers.Dependencies{}, fmt.Errorf("prepare upload staging: %w", err)
	}

	tokens := auth.NewTokenManager(
		cfg.AccessTokenSecret,
		cfg.RefreshTokenSecret,
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
	)

	loginLimiter := middleware.NewIPRateLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow, cfg.LoginRateLimit, 10*time.Minute)

	return handlers.Dependencies{
		Users:         repositories.NewMongoUserRepository(mongo),
		Videos:        repositories.NewMongoVideoRepository(mongo),
		Comments:      repositories.NewMongoCommentRepository(mongo),
		Likes:         repositories.NewMongoLikeRepository(mongo),
		Playlists:     repositories.NewMongoPlaylistRepository(mongo),
		Subscriptions: repositories.NewMongoSubscriptionRepository(mongo),

		Tokens:  tokens,
		Media:   store,
		Uploads: stager,

		LoginLimiter:   loginLimiter,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, nil
}
