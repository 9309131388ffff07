package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/f0rbit/timeline/apierr"
	"github.com/f0rbit/timeline/db"
)

type contextKey string

const (
	// UserIDContextKey stores the authenticated user ID in request context.
	UserIDContextKey contextKey = "user_id"
	// APIKeyIDContextKey stores the matched api_keys row id.
	APIKeyIDContextKey contextKey = "api_key_id"
)

// AuthMiddleware validates the bearer API key on incoming requests
// against db.ApiKeyRepo, short-circuiting with the §7 error envelope on
// failure.
type AuthMiddleware struct {
	keys   *db.ApiKeyRepo
	logger zerolog.Logger
	cache  sync.Map // plaintext secret -> *cachedAuth
	ttl    time.Duration
}

type cachedAuth struct {
	userID    string
	keyID     string
	expiresAt time.Time
}

func NewAuthMiddleware(keys *db.ApiKeyRepo, logger zerolog.Logger) *AuthMiddleware {
	return &AuthMiddleware{keys: keys, logger: logger, ttl: 5 * time.Minute}
}

// Handler is the chi-compatible middleware function.
func (am *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			apierr.Write(w, apierr.MissingAuth())
			return
		}

		secret := authHeader
		if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			secret = authHeader[len("bearer "):]
		}
		if secret == "" {
			apierr.Write(w, apierr.MissingAuth())
			return
		}

		if cached, ok := am.cache.Load(secret); ok {
			ca := cached.(*cachedAuth)
			if time.Now().Before(ca.expiresAt) {
				next.ServeHTTP(w, r.WithContext(withAuth(r.Context(), ca.userID, ca.keyID)))
				return
			}
			am.cache.Delete(secret)
		}

		key, err := am.keys.LookupByPlaintext(r.Context(), secret)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				apierr.Write(w, apierr.InvalidAuth())
				return
			}
			am.logger.Error().Err(err).Msg("middleware: api key lookup failed")
			apierr.Write(w, apierr.Internal(err))
			return
		}

		am.cache.Store(secret, &cachedAuth{userID: key.UserID, keyID: key.ID, expiresAt: time.Now().Add(am.ttl)})
		next.ServeHTTP(w, r.WithContext(withAuth(r.Context(), key.UserID, key.ID)))
	})
}

func withAuth(ctx context.Context, userID, keyID string) context.Context {
	ctx = context.WithValue(ctx, UserIDContextKey, userID)
	return context.WithValue(ctx, APIKeyIDContextKey, keyID)
}

// UserID extracts the authenticated user id from request context. Only
// meaningful downstream of AuthMiddleware.Handler.
func UserID(ctx context.Context) string {
	if v, ok := ctx.Value(UserIDContextKey).(string); ok {
		return v
	}
	return ""
}

// APIKeyID extracts the matched api_keys row id from request context.
func APIKeyID(ctx context.Context) string {
	if v, ok := ctx.Value(APIKeyIDContextKey).(string); ok {
		return v
	}
	return ""
}
