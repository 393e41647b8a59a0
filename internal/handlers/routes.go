package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/clipcast/backend/internal/config"
	"github.com/clipcast/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Accounts      AccountStore
	Sessions      SessionManager
	Videos        VideoStore
	Comments      CommentStore
	Likes         LikeStore
	Subscriptions SubscriptionStore
	Media         Media
	Health        HealthChecker

	Auth        config.AuthConfig
	Pagination  config.PaginationConfig
	CORSOrigins []string

	// AuthLimiter guards login, registration and token refresh.
	AuthLimiter    middleware.RateLimiter
	Metrics        *middleware.Metrics
	MetricsHandler http.Handler
	Logger         *slog.Logger
}

// NewRouter wires every API route behind the shared middleware stack.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	health := HealthHandler{Store: deps.Health}
	users := UserHandler{Accounts: deps.Accounts, Sessions: deps.Sessions, Media: deps.Media, Cookies: deps.Auth}
	videos := VideoHandler{Videos: deps.Videos, Accounts: deps.Accounts, Media: deps.Media, Pagination: deps.Pagination}
	comments := CommentHandler{Comments: deps.Comments, Videos: deps.Videos, Pagination: deps.Pagination}
	likes := LikeHandler{Likes: deps.Likes, Videos: deps.Videos, Comments: deps.Comments, Pagination: deps.Pagination}
	subscriptions := SubscriptionHandler{Subscriptions: deps.Subscriptions, Accounts: deps.Accounts, Pagination: deps.Pagination}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Instrument)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	var verifier middleware.TokenVerifier
	if deps.Sessions != nil {
		verifier = deps.Sessions
	}
	r.Use(middleware.Authenticate(verifier))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond(r.Context(), w, http.StatusNotFound, nil, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respond(r.Context(), w, http.StatusMethodNotAllowed, nil, "method not allowed")
	})

	r.Get("/healthz", health.Handle)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	limited := middleware.Limit(deps.AuthLimiter, "auth")

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.With(limited).Post("/register", users.Register)
			r.With(limited).Post("/login", users.Login)
			r.With(limited).Post("/refresh-token", users.RefreshToken)
			r.Get("/c/{username}", users.ChannelProfile)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAccount)
				r.Post("/logout", users.Logout)
				r.Post("/change-password", users.ChangePassword)
				r.Get("/current-user", users.CurrentUser)
				r.Patch("/update-account", users.UpdateAccount)
				r.Patch("/avatar", users.UpdateAvatar)
				r.Patch("/cover-image", users.UpdateCoverImage)
				r.Get("/history", users.WatchHistory)
			})
		})

		r.Route("/videos", func(r chi.Router) {
			r.Get("/", videos.List)
			r.Get("/{videoId}", videos.Get)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAccount)
				r.Post("/", videos.Publish)
				r.Patch("/{videoId}", videos.Update)
				r.Delete("/{videoId}", videos.Delete)
				r.Patch("/toggle/publish/{videoId}", videos.TogglePublish)
			})
		})

		r.With(middleware.RequireAccount).Get("/dashboard/videos", videos.Dashboard)

		r.Route("/comments", func(r chi.Router) {
			r.Get("/{videoId}", comments.List)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAccount)
				r.Post("/{videoId}", comments.Add)
				r.Patch("/c/{commentId}", comments.Update)
				r.Delete("/c/{commentId}", comments.Delete)
			})
		})

		r.Route("/likes", func(r chi.Router) {
			r.Use(middleware.RequireAccount)
			r.Post("/toggle/v/{videoId}", likes.ToggleVideo)
			r.Post("/toggle/c/{commentId}", likes.ToggleComment)
			r.Get("/videos", likes.LikedVideos)
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Use(middleware.RequireAccount)
			r.Post("/c/{channelId}", subscriptions.Toggle)
			r.Get("/c/{channelId}", subscriptions.Subscribers)
			r.Get("/u/{subscriberId}", subscriptions.SubscribedChannels)
		})
	})

	return r
}
