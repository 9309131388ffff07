// Package router assembles the chi.Router exposing the §6 HTTP surface:
// middleware chain, health checks, and every /api/v1 route wired to its
// handler.
package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/f0rbit/timeline/handler"
	appmw "github.com/f0rbit/timeline/middleware"
)

// Handlers bundles every route handler the router mounts.
type Handlers struct {
	Timeline    *handler.TimelineHandler
	Connections *handler.ConnectionsHandler
	Profiles    *handler.ProfilesHandler
	Filters     *handler.FiltersHandler
	Credentials *handler.CredentialsHandler
}

// New returns a configured chi.Router with the middleware chain, health
// endpoints (no auth), and the authenticated /api/v1 surface mounted.
// maxBodyBytes bounds request bodies (§6); allowedOrigins configures CORS
// for browser-based SDK consumers, matching the teacher's CORS → security
// headers → request-id → recovery → logger → body-limit ordering. ready,
// if non-nil, is called by /readyz to check dependency health (database,
// gate cache); a nil ready always reports healthy.
func New(auth *appmw.AuthMiddleware, h Handlers, appLogger zerolog.Logger, maxBodyBytes int64, allowedOrigins []string, ready func(context.Context) error) http.Handler {
	r := chi.NewRouter()

	r.Use(appmw.CORS(allowedOrigins))
	r.Use(appmw.SecurityHeaders)
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(appLogger))
	r.Use(appmw.MaxBodySize(maxBodyBytes))
	r.Use(chimw.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"timeline"}`))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			if err := ready(r.Context()); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable","service":"timeline"}`))
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready","service":"timeline"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Handler)

		r.Get("/timeline/{user_id}", h.Timeline.Get)
		r.Get("/timeline/{user_id}/raw/{platform}", h.Timeline.GetRaw)

		r.Route("/connections", func(r chi.Router) {
			r.Get("/", h.Connections.List)
			r.Post("/", h.Connections.Create)
			r.Post("/refresh-all", h.Connections.RefreshAll)
			r.Patch("/{account_id}", h.Connections.Patch)
			r.Delete("/{account_id}", h.Connections.Delete)
			r.Post("/{account_id}/refresh", h.Connections.Refresh)
			r.Get("/{account_id}/settings", h.Connections.GetSettings)
			r.Put("/{account_id}/settings", h.Connections.PutSettings)
			r.Get("/{account_id}/repos", h.Connections.Repos)
			r.Get("/{account_id}/subreddits", h.Connections.Subreddits)
		})

		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", h.Profiles.List)
			r.Post("/", h.Profiles.Create)
			r.Get("/{id}", h.Profiles.Get)
			r.Patch("/{id}", h.Profiles.Patch)
			r.Delete("/{id}", h.Profiles.Delete)
			r.Get("/{slug}/timeline", h.Profiles.Timeline)

			r.Get("/{id}/filters", h.Filters.List)
			r.Post("/{id}/filters", h.Filters.Create)
			r.Delete("/{id}/filters/{filter_id}", h.Filters.Delete)
		})

		r.Route("/credentials/{platform}", func(r chi.Router) {
			r.Get("/", h.Credentials.Get)
			r.Post("/", h.Credentials.Create)
			r.Delete("/", h.Credentials.Delete)
		})
	})

	return r
}

// requestLogger logs one structured line per completed request, in the
// teacher gateway's router style (method, path, request id, status,
// duration).
func requestLogger(appLogger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(rw, r)
			appLogger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("req_id", chimw.GetReqID(r.Context())).
				Int("status", rw.Status()).
				Dur("duration", time.Since(start)).
				Msg("request completed")
		})
	}
}
