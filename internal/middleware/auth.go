package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/netscore/server/internal/auth"
	"github.com/netscore/server/internal/model"
	"github.com/netscore/server/internal/repo"
)

type contextKey string

const userKey contextKey = "user"

// AuthMiddleware validates a bearer access token, loads the user and
// requires the active flag, then attaches the user to the context.
func AuthMiddleware(tokens *auth.TokenService, users repo.UserRepo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondWithError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondWithError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			claims, err := tokens.VerifyToken(strings.TrimSpace(parts[1]))
			if err != nil || claims.TokenType != auth.TokenTypeAccess {
				respondWithError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			user, err := users.GetByID(r.Context(), claims.UserID)
			if err != nil || !user.IsActive {
				respondWithError(w, http.StatusUnauthorized, "user not found or inactive")
				return
			}

			ctx := context.WithValue(r.Context(), userKey, &user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUser returns the authenticated user attached by AuthMiddleware.
func GetUser(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userKey).(*model.User)
	return user, ok
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
