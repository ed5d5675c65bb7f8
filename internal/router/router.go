package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	appLogger "github.com/FACorreiaa/fabrico-auth/app/logger"
	"github.com/FACorreiaa/fabrico-auth/internal/api"
	"github.com/FACorreiaa/fabrico-auth/internal/api/auth"
	"github.com/FACorreiaa/fabrico-auth/internal/api/user"
)

// Config contains dependencies needed for the router setup
type Config struct {
	AuthHandler *auth.HandlerImpl
	UserHandler *user.HandlerImpl

	AuthenticateMiddleware func(http.Handler) http.Handler
	AuthorizeMiddleware    func(http.Handler) http.Handler

	AllowedOrigins []string
	Timeout        time.Duration
	Logger         *slog.Logger
}

// SetupRouter builds the public API router. Every request, matched or not,
// goes through CORS, request logging, authentication and the path policy in
// that order.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	// preflight requests are answered here, before the policy can reject them
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appLogger.StructuredLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.CleanPath)
	if cfg.Timeout > 0 {
		r.Use(middleware.Timeout(cfg.Timeout))
	}

	r.Use(cfg.AuthenticateMiddleware)
	r.Use(cfg.AuthorizeMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		api.ErrorResponse(w, r, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		api.ErrorResponse(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", cfg.AuthHandler.Register)
			r.Post("/login", cfg.AuthHandler.Login)
		})

		r.Get("/users/me", cfg.UserHandler.Me)
	})

	return r
}
