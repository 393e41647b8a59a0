package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/clipcast/backend/internal/config"
	"github.com/clipcast/backend/internal/db"
	"github.com/clipcast/backend/internal/handlers"
	"github.com/clipcast/backend/internal/httpserver"
	"github.com/clipcast/backend/internal/logging"
	"github.com/clipcast/backend/internal/models"
	"github.com/clipcast/backend/internal/repositories"
	"github.com/clipcast/backend/internal/storage"
	"github.com/clipcast/backend/internal/videos"
)

// Run bootstraps the clipcast backend application.
func Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected command: serve, migrate, or sweep")
	}

	switch args[0] {
	case "serve":
		return serve(ctx)
	case "migrate":
		return runMigrations(ctx, args[1:], os.Stdout)
	case "sweep":
		return runSweep(ctx, os.Stdout)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Log, os.Stdout)
	slog.SetDefault(logger)
	ctx = logging.WithLogger(ctx, logger)

	store, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(store, logger)

	logger.Info("connected to mongo", "database", cfg.Mongo.Database, "transactions", store.Transactions)

	deps, cleanup, err := buildDependencies(ctx, store, cfg, logger)
	if err != nil {
		return err
	}

	if !store.Transactions {
		resumed, err := repositories.NewMongoVideoRepository(store, searchOptions(cfg)).ResumeCascades(ctx)
		if err != nil {
			logger.Error("resume pending cascades", "error", err)
		}
		if len(resumed) > 0 {
			logger.Info("resumed pending cascades", "count", len(resumed))
			if err := deps.Media.Janitor.Enqueue(ctx, mediaIDs(resumed)...); err != nil {
				logger.Error("release resumed media", "error", err)
			}
		}
	}

	srv := httpserver.New(cfg.Server, handlers.NewRouter(deps))

	logger.Info("starting http server", "addr", srv.Addr())

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.Start()
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown requested, stopping http server")
	case runErr = <-srvErr:
	}

	if err := srv.GracefulShutdown(ctx); err != nil {
		logger.Error("http server shutdown", "error", err)
	}
	// Handlers may still enqueue cleanups until the server has drained.
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), srv.ShutdownTimeout())
	defer cancel()
	if err := cleanup(shutdownCtx); err != nil {
		logger.Error("stop media janitor", "error", err)
	}
	return runErr
}

// runMigrations applies or reports the index set. A document store has no schema
// to migrate beyond its indexes and the media bucket.
func runMigrations(ctx context.Context, args []string, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	command := "up"
	if len(args) > 0 {
		command = args[0]
	}

	store, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(store, slog.Default())

	switch command {
	case "status":
		report, err := store.IndexReport(ctx)
		if err != nil {
			return err
		}
		for _, status := range report {
			mark := " "
			if status.Present {
				mark = "x"
			}
			fmt.Fprintf(out, "[%s] %s.%s\n", mark, status.Collection, status.Name)
		}
		return nil
	case "up", "":
		if err := store.EnsureIndexes(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "indexes are up to date")

		if cfg.Media.Driver == config.MediaDriverMinIO {
			media, err := storage.NewMinIOStorage(cfg.Media)
			if err != nil {
				return err
			}
			if err := media.EnsureBucket(ctx); err != nil {
				return err
			}
			fmt.Fprintf(out, "bucket %s is ready\n", cfg.Media.Bucket)
		}
		return nil
	case "down":
		return errors.New("down migrations are not supported")
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}
}

// runSweep finishes video deletions that were interrupted mid-cascade.
func runSweep(ctx context.Context, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log, os.Stderr)
	ctx = logging.WithLogger(ctx, logger)

	store, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(store, logger)

	media, err := storage.New(ctx, cfg.Media)
	if err != nil {
		return fmt.Errorf("configure media storage: %w", err)
	}

	resumed, resumeErr := repositories.NewMongoVideoRepository(store, searchOptions(cfg)).ResumeCascades(ctx)
	fmt.Fprintf(out, "resumed %d pending cascades\n", len(resumed))
	return errors.Join(resumeErr, deleteMedia(ctx, media, mediaIDs(resumed), out))
}

// mediaIDs lists the remote objects still referenced by deleted videos.
func mediaIDs(deleted []models.Video) []string {
	ids := make([]string, 0, 2*len(deleted))
	for _, video := range deleted {
		for _, media := range []models.MediaObject{video.VideoFile, video.Thumbnail} {
			if media.PublicID != "" {
				ids = append(ids, media.PublicID)
			}
		}
	}
	return ids
}

// deleteMedia removes every object synchronously; sweep exits before a janitor
// could drain.
func deleteMedia(ctx context.Context, deleter videos.Deleter, ids []string, out io.Writer) error {
	var errs []error
	for _, id := range ids {
		if err := deleter.Delete(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("delete media %s: %w", id, err))
			continue
		}
		fmt.Fprintf(out, "deleted media %s\n", id)
	}
	return errors.Join(errs...)
}

func connect(ctx context.Context, cfg config.Config) (*db.Store, error) {
	connectCtx := ctx
	if cfg.Mongo.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, cfg.Mongo.ConnectTimeout)
		defer cancel()
	}
	return db.Connect(connectCtx, cfg.Mongo)
}

func closeStore(store *db.Store, logger *slog.Logger) {
	if err := store.Close(context.Background()); err != nil {
		logger.Warn("disconnect mongo", "error", err)
	}
}
