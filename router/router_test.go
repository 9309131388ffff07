package router_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/f0rbit/timeline/corpus"
	"github.com/f0rbit/timeline/crypto"
	"github.com/f0rbit/timeline/db"
	"github.com/f0rbit/timeline/handler"
	"github.com/f0rbit/timeline/ingest"
	appmw "github.com/f0rbit/timeline/middleware"
	"github.com/f0rbit/timeline/refresh"
	"github.com/f0rbit/timeline/router"
	"github.com/f0rbit/timeline/timeline"
)

func testSetup(t *testing.T) (http.Handler, sqlmock.Sqlmock) {
	return testSetupWithReady(t, nil)
}

func testSetupWithReady(t *testing.T, ready func(context.Context) error) (http.Handler, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	log := zerolog.New(io.Discard)
	box, err := crypto.NewBox(strings.Repeat("ab", 32))
	require.NoError(t, err)

	profiles := db.NewProfileRepo(mockDB)
	accounts := db.NewAccountRepo(mockDB)
	filters := db.NewFilterRepo(mockDB)
	credentials := db.NewCredentialsRepo(mockDB)
	apiKeys := db.NewApiKeyRepo(mockDB)
	settings := db.NewSettingsRepo(mockDB)
	rateLimits := db.NewRateLimitRepo(mockDB)

	backend := corpus.NewMemoryBackend()
	assembler := timeline.NewAssembler(accounts, filters, backend)
	ingester := ingest.NewIngester(box, nil, backend, nil)
	orchestrator := refresh.New(accounts, ingester, assembler, nil)

	auth := appmw.NewAuthMiddleware(apiKeys, log)
	handlers := router.Handlers{
		Timeline:    handler.NewTimelineHandler(accounts, backend, log),
		Connections: handler.NewConnectionsHandler(profiles, accounts, settings, rateLimits, backend, box, orchestrator, log),
		Profiles:    handler.NewProfilesHandler(profiles, assembler, log),
		Filters:     handler.NewFiltersHandler(profiles, accounts, filters, log),
		Credentials: handler.NewCredentialsHandler(profiles, credentials, box, log),
	}
	return router.New(auth, handlers, log, 1024*1024, []string{"*"}, ready), mock
}

func TestHealthzIsUnauthenticated(t *testing.T) {
	r, _ := testSetup(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzIsUnauthenticatedAndHealthyByDefault(t *testing.T) {
	r, _ := testSetup(t)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReports503WhenReadyCheckFails(t *testing.T) {
	r, _ := testSetupWithReady(t, func(context.Context) error { return errors.New("db unreachable") })

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUnauthenticatedAPIRouteReturns401(t *testing.T) {
	r, _ := testSetup(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profiles", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnknownRouteReturns404ForAuthenticatedCaller(t *testing.T) {
	r, mock := testSetup(t)

	rows := sqlmock.NewRows([]string{"id", "user_id", "key_hash", "name", "last_used_at", "created_at"}).
		AddRow("key-1", "user-1", "hash", "default", nil, time.Now())
	mock.ExpectQuery("SELECT id, user_id, key_hash").WillReturnRows(rows)
	mock.ExpectExec("UPDATE api_keys SET last_used_at").WillReturnResult(sqlmock.NewResult(0, 1))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nonexistent", nil)
	req.Header.Set("Authorization", "Bearer good-secret")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflightSetsAllowOrigin(t *testing.T) {
	r, _ := testSetup(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/profiles", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecurityHeadersSetOnEveryResponse(t *testing.T) {
	r, _ := testSetup(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Strict-Transport-Security"} {
		require.NotEmpty(t, rec.Header().Get(h), "expected header %s to be set", h)
	}
}
