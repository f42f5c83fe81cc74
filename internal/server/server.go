package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/yamdb/apiserver/config"
	"github.com/yamdb/apiserver/internal/auth"
	"github.com/yamdb/apiserver/internal/db"
	"github.com/yamdb/apiserver/internal/handlers"
	"github.com/yamdb/apiserver/internal/logging"
	"github.com/yamdb/apiserver/internal/mail"
	"github.com/yamdb/apiserver/internal/metrics"
	"github.com/yamdb/apiserver/internal/ratelimit"
	"github.com/yamdb/apiserver/internal/services"
	"github.com/yamdb/apiserver/internal/store"
	"github.com/yamdb/apiserver/internal/token"
)

const requestTimeout = 60 * time.Second

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	closers    []func() error
}

// Services groups the use-cases served over HTTP.
type Services struct {
	Registration *services.RegistrationService
	Users        *services.UserService
	Categories   *services.CategoryService
	Genres       *services.GenreService
	Titles       *services.TitleService
	Reviews      *services.ReviewService
	Comments     *services.CommentService
}

// NewServices wires the services on top of the Postgres repositories.
func NewServices(conn *sql.DB, mailer mail.Sender, tokens services.TokenIssuer, from string) Services {
	userRepo := store.NewUserRepository(conn)
	categoryRepo := store.NewCategoryRepository(conn)
	genreRepo := store.NewGenreRepository(conn)
	titleRepo := store.NewTitleRepository(conn)
	reviewRepo := store.NewReviewRepository(conn)
	commentRepo := store.NewCommentRepository(conn)

	reviews := services.NewReviewService(reviewRepo, titleRepo)
	return Services{
		Registration: services.NewRegistrationService(userRepo, mailer, tokens, from),
		Users:        services.NewUserService(userRepo),
		Categories:   services.NewCategoryService(categoryRepo),
		Genres:       services.NewGenreService(genreRepo),
		Titles:       services.NewTitleService(titleRepo, categoryRepo, genreRepo),
		Reviews:      reviews,
		Comments:     services.NewCommentService(commentRepo, reviews),
	}
}

// New constructs a Server with its database, mail backend, rate limiter
// and routes.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	codec, err := token.New(cfg.Auth.JWTSecret, cfg.Auth.JWTAlgorithm, cfg.Auth.TokenLifetime)
	if err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &Server{db: dbConn}

	mailer, closeMail, err := mail.Open(ctx, cfg)
	if err != nil {
		_ = s.close()
		return nil, fmt.Errorf("open mail backend: %w", err)
	}
	s.closers = append(s.closers, closeMail)

	limit, closeLimit, err := ratelimit.Middleware(cfg.RateLimit, cfg.Redis, handlers.RateLimited)
	if err != nil {
		_ = s.close()
		return nil, fmt.Errorf("open rate limiter: %w", err)
	}
	s.closers = append(s.closers, closeLimit)

	svc := NewServices(dbConn, mailer, codec, cfg.Mail.From)
	resolver := auth.NewResolver(codec, store.NewUserRepository(dbConn), cfg.Auth.HeaderScheme)
	s.router = NewRouter(cfg, svc, resolver, limit)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// NewRouter builds the HTTP routes. limit throttles the auth endpoints and
// may be nil.
func NewRouter(cfg config.Config, svc Services, resolver handlers.IdentityResolver, limit func(http.Handler) http.Handler) *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logging.RequestLogger,
		middleware.Recoverer,
		metrics.Middleware,
		middleware.Timeout(requestTimeout),
		middleware.StripSlashes,
	)
	if len(cfg.CORS.AllowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	router.NotFound(handlers.NotFound)
	router.MethodNotAllowed(handlers.MethodNotAllowed)

	router.Get("/healthz", handlers.Healthz)
	router.Method(http.MethodGet, "/metrics", metrics.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(handlers.Authenticate(resolver))

		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, svc.Registration, limit)
		})
		r.Route("/users", func(r chi.Router) {
			handlers.UserRouter(r, svc.Users, svc.Registration)
		})
		r.Route("/categories", func(r chi.Router) {
			handlers.CategoryRouter(r, svc.Categories)
		})
		r.Route("/genres", func(r chi.Router) {
			handlers.GenreRouter(r, svc.Genres)
		})
		r.Route("/titles", func(r chi.Router) {
			handlers.TitleRouter(r, svc.Titles, handlers.ReviewRouter(svc.Reviews, svc.Comments))
		})
	})
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	logging.Info().Str("addr", s.httpServer.Addr).Msg("server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones until ctx
// expires and releases the backends.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	return errors.Join(err, s.close())
}

func (s *Server) close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	return errors.Join(errs...)
}
