package handler_test

import (
	"context"
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
	"github.com/f0rbit/timeline/db"
	"github.com/f0rbit/timeline/handler"
	"github.com/f0rbit/timeline/middleware"
	"github.com/f0rbit/timeline/timeline"
)

func withUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.UserIDContextKey, userID))
}

func newProfilesRouter(h *handler.ProfilesHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/profiles", h.List)
	r.Post("/profiles", h.Create)
	r.Get("/profiles/{id}", h.Get)
	r.Patch("/profiles/{id}", h.Patch)
	r.Delete("/profiles/{id}", h.Delete)
	r.Get("/profiles/{slug}/timeline", h.Timeline)
	return r
}

func TestProfilesListReturnsOwnedProfiles(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	rows := sqlmock.NewRows([]string{"id", "user_id", "slug", "name", "description", "theme", "created_at"}).
		AddRow("p1", "user-1", "my-profile", "My Profile", nil, nil, time.Now())
	mock.ExpectQuery("SELECT id, user_id, slug, name, description, theme, created_at").
		WithArgs("user-1").WillReturnRows(rows)

	h := handler.NewProfilesHandler(db.NewProfileRepo(mockDB), nil, zerolog.Nop())
	r := newProfilesRouter(h)

	req := withUser(httptest.NewRequest(http.MethodGet, "/profiles", nil), "user-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "my-profile")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfilesGetRejectsWrongOwner(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	rows := sqlmock.NewRows([]string{"id", "user_id", "slug", "name", "description", "theme", "created_at"}).
		AddRow("p1", "owner-1", "my-profile", "My Profile", nil, nil, time.Now())
	mock.ExpectQuery("SELECT id, user_id, slug, name, description, theme, created_at").
		WithArgs("p1").WillReturnRows(rows)

	h := handler.NewProfilesHandler(db.NewProfileRepo(mockDB), nil, zerolog.Nop())
	r := newProfilesRouter(h)

	req := withUser(httptest.NewRequest(http.MethodGet, "/profiles/p1", nil), "someone-else")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfilesCreateRejectsMissingSlug(t *testing.T) {
	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	h := handler.NewProfilesHandler(db.NewProfileRepo(mockDB), nil, zerolog.Nop())
	r := newProfilesRouter(h)

	req := withUser(httptest.NewRequest(http.MethodPost, "/profiles", strings.NewReader(`{"name":"My Profile"}`)), "user-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfilesTimelineAssemblesAndReturnsSnapshot(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	profileRows := sqlmock.NewRows([]string{"id", "user_id", "slug", "name", "description", "theme", "created_at"}).
		AddRow("p1", "user-1", "my-profile", "My Profile", nil, nil, time.Now())
	mock.ExpectQuery("SELECT id, user_id, slug, name, description, theme, created_at").
		WithArgs("user-1", "my-profile").WillReturnRows(profileRows)
	mock.ExpectQuery("SELECT (.+) FROM accounts").WillReturnRows(sqlmock.NewRows(
		[]string{"id", "profile_id", "platform", "platform_user_id", "platform_username", "access_token_encrypted", "refresh_token_encrypted", "token_expires_at", "is_active", "last_fetched_at", "created_at"}))
	mock.ExpectQuery("SELECT (.+) FROM profile_filters").WillReturnRows(sqlmock.NewRows(
		[]string{"id", "profile_id", "account_id", "filter_type", "filter_key", "filter_value"}))

	backend := corpus.NewMemoryBackend()
	assembler := timeline.NewAssembler(db.NewAccountRepo(mockDB), db.NewFilterRepo(mockDB), backend)
	h := handler.NewProfilesHandler(db.NewProfileRepo(mockDB), assembler, zerolog.Nop())
	r := newProfilesRouter(h)

	req := withUser(httptest.NewRequest(http.MethodGet, "/profiles/my-profile/timeline", nil), "user-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
