package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"glucolog/internal/handlers"
	mw "glucolog/internal/middleware"
	"glucolog/internal/repository"
	"glucolog/internal/services"
)

type Options struct {
	JWTSecret      []byte
	AccessTokenTTL time.Duration
	AllowedOrigins []string
}

// NewRouter wires repositories, services and handlers over db.
func NewRouter(db *sqlx.DB, opts Options, logger *zap.Logger) http.Handler {
	readings := repository.NewReadingRepository(db)
	users := repository.NewUserRepository(db)

	authSvc := services.NewAuthService(users, opts.JWTSecret, opts.AccessTokenTTL, logger)
	commandSvc := services.NewReadingCommandService(readings, readings, logger)
	querySvc := services.NewReadingQueryService(readings, logger)
	adminSvc := services.NewAdminService(users, repository.NewAdminRepository(db), logger)

	authHandler := handlers.NewAuthHandler(authSvc, logger)
	userHandler := handlers.NewUserHandler(authSvc, logger)
	readingHandler := handlers.NewReadingHandler(commandSvc, querySvc, logger)
	adminHandler := handlers.NewAdminHandler(adminSvc, logger)
	authMW := mw.NewAuthMiddleware(opts.JWTSecret)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.ZapRequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", health)

	r.Route("/api", func(api chi.Router) {
		api.Post("/register", authHandler.Register)
		api.Post("/login", authHandler.Login)
		api.Group(func(pr chi.Router) {
			pr.Use(authMW.RequireAuth)
			pr.Get("/me", userHandler.Me)

			pr.Route("/readings", func(rr chi.Router) {
				rr.Post("/", readingHandler.Create)
				rr.Get("/", readingHandler.List)
				rr.Get("/summary", readingHandler.Summary)
				rr.Post("/import", readingHandler.Import)
				rr.Get("/{id}", readingHandler.Get)
				rr.Patch("/{id}", readingHandler.Update)
				rr.Delete("/{id}", readingHandler.Delete)
			})

			pr.Get("/admin/overview", adminHandler.Overview)
		})
	})

	return r
}

func health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("App is healthy"))
}
