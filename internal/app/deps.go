package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clipcast/backend/internal/auth"
	"github.com/clipcast/backend/internal/config"
	"github.com/clipcast/backend/internal/db"
	"github.com/clipcast/backend/internal/handlers"
	"github.com/clipcast/backend/internal/middleware"
	"github.com/clipcast/backend/internal/query"
	"github.com/clipcast/backend/internal/repositories"
	"github.com/clipcast/backend/internal/storage"
	"github.com/clipcast/backend/internal/videos"
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
// The returned cleanup drains the media janitor.
func buildDependencies(ctx context.Context, store *db.Store, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, func(context.Context) error, error) {
	if logger == nil {
		logger = slog.Default()
	}

	media, err := storage.New(ctx, cfg.Media)
	if err != nil {
		return handlers.Dependencies{}, nil, fmt.Errorf("configure media storage: %w", err)
	}
	janitor := videos.NewJanitor(media, videos.JanitorConfig{
		QueueSize: cfg.Media.CleanupQueue,
		Workers:   cfg.Media.CleanupWorkers,
	}, logger.With("component", "janitor"))

	var prober handlers.DurationProber
	if cfg.Probe.Enabled {
		prober = videos.NewFFProbe(cfg.Probe.Timeout)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	accounts := repositories.NewMongoAccountRepository(store)
	likes := repositories.NewMongoLikeRepository(store)
	subscriptions := repositories.NewMongoSubscriptionRepository(store)

	deps := handlers.Dependencies{
		Accounts:      accounts,
		Sessions:      auth.NewManager(cfg.Auth.AccessSecret, cfg.Auth.RefreshSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL, accounts),
		Videos:        repositories.NewMongoVideoRepository(store, searchOptions(cfg)),
		Comments:      repositories.NewMongoCommentRepository(store),
		Likes:         likes,
		Subscriptions: subscriptions,
		Media: handlers.Media{
			Uploader:       media,
			Janitor:        janitor,
			Prober:         prober,
			MaxUploadBytes: cfg.Server.MaxUploadBytes,
		},
		Health:         store,
		Auth:           cfg.Auth,
		Pagination:     cfg.Pagination,
		CORSOrigins:    cfg.Server.CORSOrigins,
		AuthLimiter:    middleware.NewIPRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.Burst, 0),
		Metrics:        middleware.NewMetrics(registry),
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		Logger:         logger,
	}
	return deps, janitor.Shutdown, nil
}

func searchOptions(cfg config.Config) query.SearchOptions {
	return query.SearchOptions{Mode: query.SearchMode(cfg.Search.Mode), Index: cfg.Search.AtlasIndex}
}
