package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/streamhive/backend/internal/config"
	"github.com/streamhive/backend/internal/db"
	"github.com/streamhive/backend/internal/handlers"
	"github.com/streamhive/backend/internal/httpserver"
	"github.com/streamhive/backend/internal/middleware"
)

// Run bootstraps the StreamHive backend application.
func Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected command: serve, indexes, or seed")
	}

	switch args[0] {
	case "serve":
		return serve(ctx)
	case "indexes":
		return ensureIndexes(ctx)
	case "seed":
		return runSeed(ctx, args[1:])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	mongo, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return err
	}
	defer func() {
		if err := mongo.Close(context.Background()); err != nil {
			logger.Error("close mongo client", "error", err)
		}
	}()

	deps, err := buildDependencies(ctx, mongo, cfg)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux, deps)

	handler := middleware.RequestLogger(logger)(mux)

	srv := httpserver.New(cfg.AppPort, handler)

	logger.Info("starting http server", "port", cfg.AppPort)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.Start()
	}()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	case sig := <-signalCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpserver.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func ensureIndexes(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	mongo, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return err
	}
	defer mongo.Close(context.Background())

	names, err := db.EnsureIndexes(ctx, mongo)
	if err != nil {
		return err
	}

	for _, name := range names {
		fmt.Printf("ensured index %s\n", name)
	}
	return nil
}

// runSeed loads <name>_seed.json from the seed directory. The file maps
// collection names to arrays of documents in Mongo extended JSON, so seeds
// can carry real ObjectIDs and dates.
func runSeed(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected seed name (e.g. dev)")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	seedDir := cfg.SeedDir
	if !filepath.IsAbs(seedDir) {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("determine working directory: %w", err)
		}
		seedDir = filepath.Join(wd, seedDir)
	}

	seedName := args[0]
	if !strings.HasSuffix(seedName, ".json") {
		seedName = fmt.Sprintf("%s_seed.json", seedName)
	}

	seedPath := filepath.Join(seedDir, seedName)
	contents, err := os.ReadFile(seedPath)
	if err != nil {
		return fmt.Errorf("read seed %s: %w", seedName, err)
	}

	var collections map[string][]bson.M
	if err := bson.UnmarshalExtJSON(contents, false, &collections); err != nil {
		return fmt.Errorf("parse seed %s: %w", seedName, err)
	}

	mongo, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return err
	}
	defer mongo.Close(context.Background())

	for name, docs := range collections {
		if len(docs) == 0 {
			continue
		}
		payload := make([]any, 0, len(docs))
		for _, doc := range docs {
			payload = append(payload, doc)
		}
		if _, err := mongo.Collection(name).InsertMany(ctx, payload); err != nil {
			return fmt.Errorf("seed collection %s: %w", name, err)
		}
		fmt.Printf("seeded %d documents into %s\n", len(docs), name)
	}

	fmt.Printf("applied seed %s\n", seedName)
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     lvl,
	}))
}
