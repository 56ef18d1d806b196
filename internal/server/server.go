// Package server is the composition root of streambox: it opens the store,
// builds the services and handlers, mounts every route behind the right
// guard and runs the HTTP server until it is told to stop.
//
//	config → sqlstore.DB → services → handlers → chi routes
//
// Nothing outside this package knows how the pieces are constructed.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/sakif/streambox/internal/auth"
	"github.com/sakif/streambox/internal/config"
	"github.com/sakif/streambox/internal/handler"
	"github.com/sakif/streambox/internal/metrics"
	"github.com/sakif/streambox/internal/middleware"
	"github.com/sakif/streambox/internal/repository/sqlstore"
	"github.com/sakif/streambox/internal/service"
)

// Server owns the router and the long-lived resources behind it. The store
// and the Redis client are closed when Start returns.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	db      *sqlstore.DB
	redis   *redis.Client // nil unless redis.enabled
	metrics *metrics.Metrics
}

// New connects to the store (and Redis when enabled) and wires the routes.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqlstore.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		metrics: metrics.New(),
	}

	var revoker auth.Revoker = auth.NewMemoryRevoker()
	if cfg.Redis.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client, err := auth.NewRedisClient(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		s.redis = client
		revoker = auth.NewRedisRevoker(client)
	}

	if err := s.setupRoutes(revoker); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store and the Redis connection.
func (s *Server) Close() error {
	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}

// setupRoutes mounts everything.
//
// Middleware order: request id and real IP first, then Authenticate so the
// session exists before the logger reads the principal from it.
//
//	GET  /                          → /browse
//	GET  /login, /signup            sign-in and sign-up forms (POST rate limited)
//	POST /logout
//	GET  /browse, /watch/{id}       signed-in pages
//	GET  /admin + POST /admin/...   admin pages
//	/api/...                        JSON API, 401/403 instead of redirects
//	GET  /metrics, /healthz
func (s *Server) setupRoutes(revoker auth.Revoker) error {
	cfg := s.config

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	var github *auth.GitHubProvider
	if cfg.Auth.GitHub.Enabled() {
		github = auth.NewGitHubProvider(cfg.Auth.GitHub.ClientID, cfg.Auth.GitHub.ClientSecret, cfg.Auth.GitHub.CallbackURL)
	}

	// === services ===
	authService := service.NewAuthService(s.db, s.db, tokens, auth.NewPasswordService(), revoker, s.metrics, s.logger)
	catalogService := service.NewCatalogService(s.db, s.db, s.logger)
	profileService := service.NewProfileService(s.db, s.db, s.logger)
	watchlistService := service.NewWatchlistService(s.db, s.db, s.logger)
	progressService := service.NewProgressService(s.db, s.db, s.logger)

	// === handlers ===
	views, err := handler.NewRenderer(cfg.Server.TemplateDir, github != nil, s.logger)
	if err != nil {
		return err
	}
	interval := cfg.Playback.CheckpointInterval

	authHandler := handler.NewAuthHandler(authService, github, views, cfg.Auth.SecureCookie, s.logger)
	pageHandler := handler.NewPageHandler(catalogService, watchlistService, progressService, s.metrics, interval, views, s.logger)
	adminHandler := handler.NewAdminHandler(catalogService, profileService, views, s.logger)
	catalogHandler := handler.NewCatalogHandler(catalogService, s.logger)
	watchHandler := handler.NewWatchHandler(watchlistService, progressService, s.metrics, interval, s.logger)

	limit := func(next http.Handler) http.Handler { return next }
	if cfg.RateLimit.Enabled {
		limit = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, s.metrics.RateLimited).Middleware
	}

	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(auth.Authenticate(authService, s.logger))
	r.Use(middleware.Logger(s.logger, s.metrics))
	r.Use(chimiddleware.Recoverer)

	fileServer := http.FileServer(http.Dir(cfg.Server.StaticDir))
	r.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	// === pages ===
	r.Get("/", pageHandler.HandleRoot)
	r.Get("/login", authHandler.HandleLoginPage)
	r.With(limit).Post("/login", authHandler.HandleLogin)
	r.Get("/signup", authHandler.HandleSignupPage)
	r.With(limit).Post("/signup", authHandler.HandleSignup)
	r.Post("/logout", authHandler.HandleLogout)

	if authHandler.GitHubEnabled() {
		r.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		r.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.RequirePage(false))
		r.Get("/browse", pageHandler.HandleBrowse)
		r.Get("/watch/{id}", pageHandler.HandleWatch)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequirePage(true))
		r.Get("/admin", adminHandler.HandleAdminPage)
		r.Post("/admin/movies", adminHandler.HandleCreateMovieForm)
		r.Post("/admin/movies/{id}/delete", adminHandler.HandleDeleteMovieForm)
		r.Post("/admin/profiles/{id}/delete", adminHandler.HandleDeleteProfileForm)
	})

	// === JSON API ===
	r.Route("/api", func(r chi.Router) {
		r.With(limit).Post("/auth/signup", authHandler.HandleAPISignUp)
		r.With(limit).Post("/auth/signin", authHandler.HandleAPISignIn)
		r.Post("/auth/signout", authHandler.HandleAPISignOut)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAPI(false))
			r.Get("/me", authHandler.HandleMe)

			r.Get("/movies", catalogHandler.HandleListMovies)
			r.Get("/movies/{id}", catalogHandler.HandleGetMovie)
			r.Get("/categories", catalogHandler.HandleListCategories)

			r.Get("/watchlist", watchHandler.HandleListWatchlist)
			r.Put("/watchlist/{movieID}", watchHandler.HandleAddToWatchlist)
			r.Delete("/watchlist/{movieID}", watchHandler.HandleRemoveFromWatchlist)
			r.Post("/watchlist/{movieID}/toggle", watchHandler.HandleToggleWatchlist)

			r.Get("/progress/{movieID}", watchHandler.HandleGetProgress)
			r.Put("/progress/{movieID}", watchHandler.HandleSaveProgress)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAPI(true))
			r.Get("/movies", catalogHandler.HandleListMovies)
			r.Post("/movies", catalogHandler.HandleCreateMovie)
			r.Delete("/movies/{id}", catalogHandler.HandleDeleteMovie)
			r.Get("/profiles", adminHandler.HandleListProfiles)
			r.Delete("/profiles/{id}", adminHandler.HandleDeleteProfile)
		})
	})

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"status":"unavailable"}`)
		return
	}
	fmt.Fprint(w, `{"status":"ok"}`)
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up
// to server.shutdown_timeout and closes the store.
func (s *Server) Start() error {
	defer s.Close()

	cfg := s.config.Server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", cfg.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", cfg.Port)),
			slog.String("database", s.db.Driver()),
			slog.Bool("redis", s.redis != nil),
			slog.Bool("github", s.config.Auth.GitHub.Enabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
