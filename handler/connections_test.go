package handler_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/f0rbit/timeline/corpus"
	"github.com/f0rbit/timeline/crypto"
	"github.com/f0rbit/timeline/db"
	"github.com/f0rbit/timeline/handler"
)

func newConnectionsRouter(h *handler.ConnectionsHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/connections", h.List)
	r.Post("/connections", h.Create)
	r.Patch("/connections/{account_id}", h.Patch)
	r.Get("/connections/{account_id}/repos", h.Repos)
	r.Get("/connections/{account_id}/subreddits", h.Subreddits)
	return r
}

func TestConnectionsCreateRejectsUnknownPlatform(t *testing.T) {
	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	box, err := crypto.NewBox(strings.Repeat("ef", 32))
	require.NoError(t, err)
	h := handler.NewConnectionsHandler(db.NewProfileRepo(mockDB), db.NewAccountRepo(mockDB), db.NewSettingsRepo(mockDB),
		db.NewRateLimitRepo(mockDB), corpus.NewMemoryBackend(), box, nil, zerolog.Nop())
	r := newConnectionsRouter(h)

	body := `{"profile_id":"p1","platform":"myspace","access_token":"tok"}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/connections", strings.NewReader(body)), "user-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConnectionsListRequiresProfileID(t *testing.T) {
	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	box, err := crypto.NewBox(strings.Repeat("ef", 32))
	require.NoError(t, err)
	h := handler.NewConnectionsHandler(db.NewProfileRepo(mockDB), db.NewAccountRepo(mockDB), db.NewSettingsRepo(mockDB),
		db.NewRateLimitRepo(mockDB), corpus.NewMemoryBackend(), box, nil, zerolog.Nop())
	r := newConnectionsRouter(h)

	req := withUser(httptest.NewRequest(http.MethodGet, "/connections", nil), "user-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConnectionsReposRejectsNonGitHubAccount(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	accountRows := sqlmock.NewRows([]string{"id", "profile_id", "platform", "platform_user_id", "platform_username",
		"access_token_encrypted", "refresh_token_encrypted", "token_expires_at", "is_active", "last_fetched_at", "created_at"}).
		AddRow("a1", "p1", "reddit", nil, nil, "enc", nil, nil, true, nil, time.Now())
	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE id").WithArgs("a1").WillReturnRows(accountRows)
	mock.ExpectQuery("SELECT p.user_id FROM accounts").WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("user-1"))

	box, err := crypto.NewBox(strings.Repeat("ef", 32))
	require.NoError(t, err)
	h := handler.NewConnectionsHandler(db.NewProfileRepo(mockDB), db.NewAccountRepo(mockDB), db.NewSettingsRepo(mockDB),
		db.NewRateLimitRepo(mockDB), corpus.NewMemoryBackend(), box, nil, zerolog.Nop())
	r := newConnectionsRouter(h)

	req := withUser(httptest.NewRequest(http.MethodGet, "/connections/a1/repos", nil), "user-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectionsReposReturnsEmptyListWhenNoMetaStored(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	accountRows := sqlmock.NewRows([]string{"id", "profile_id", "platform", "platform_user_id", "platform_username",
		"access_token_encrypted", "refresh_token_encrypted", "token_expires_at", "is_active", "last_fetched_at", "created_at"}).
		AddRow("a1", "p1", "github", nil, nil, "enc", nil, nil, true, nil, time.Now())
	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE id").WithArgs("a1").WillReturnRows(accountRows)
	mock.ExpectQuery("SELECT p.user_id FROM accounts").WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("user-1"))

	box, err := crypto.NewBox(strings.Repeat("ef", 32))
	require.NoError(t, err)
	h := handler.NewConnectionsHandler(db.NewProfileRepo(mockDB), db.NewAccountRepo(mockDB), db.NewSettingsRepo(mockDB),
		db.NewRateLimitRepo(mockDB), corpus.NewMemoryBackend(), box, nil, zerolog.Nop())
	r := newConnectionsRouter(h)

	req := withUser(httptest.NewRequest(http.MethodGet, "/connections/a1/repos", nil), "user-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"repos":[]`)
	require.NoError(t, mock.ExpectationsWereMet())
}
