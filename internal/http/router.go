package http

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/netscore/server/internal/auth"
	"github.com/netscore/server/internal/http/handlers"
	"github.com/netscore/server/internal/middleware"
	"github.com/netscore/server/internal/repo"
)

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(authHandler *handlers.AuthHandler, tokens *auth.TokenService, users repo.UserRepo) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Get("/health", handlers.NewHealthHandler().ServeHTTP)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/authenticate", authHandler.HandleAuthenticate)
		r.Post("/refresh", authHandler.HandleRefresh)
		r.Post("/logout", authHandler.HandleLogout)
	})

	// Protected routes (require a valid access token)
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(tokens, users))
		r.Get("/me", authHandler.HandleMe)
	})

	return r
}
