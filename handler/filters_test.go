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

	"github.com/f0rbit/timeline/db"
	"github.com/f0rbit/timeline/handler"
)

func newFiltersRouter(h *handler.FiltersHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/profiles/{id}/filters", h.List)
	r.Post("/profiles/{id}/filters", h.Create)
	r.Delete("/profiles/{id}/filters/{filter_id}", h.Delete)
	return r
}

func TestFiltersCreateRejectsAccountFromAnotherProfile(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	profileRows := sqlmock.NewRows([]string{"id", "user_id", "slug", "name", "description", "theme", "created_at"}).
		AddRow("p1", "user-1", "my-profile", "My Profile", nil, nil, time.Now())
	mock.ExpectQuery("SELECT id, user_id, slug, name, description, theme, created_at").
		WithArgs("p1").WillReturnRows(profileRows)

	accountRows := sqlmock.NewRows([]string{"id", "profile_id", "platform", "platform_user_id", "platform_username",
		"access_token_encrypted", "refresh_token_encrypted", "token_expires_at", "is_active", "last_fetched_at", "created_at"}).
		AddRow("a1", "p2", "github", nil, nil, "enc", nil, nil, true, nil, time.Now())
	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE id").WithArgs("a1").WillReturnRows(accountRows)
	mock.ExpectQuery("SELECT p.user_id FROM accounts").WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("user-1"))

	h := handler.NewFiltersHandler(db.NewProfileRepo(mockDB), db.NewAccountRepo(mockDB), db.NewFilterRepo(mockDB), zerolog.Nop())
	r := newFiltersRouter(h)

	body := `{"account_id":"a1","filter_type":"include","filter_key":"repo","filter_value":"f0rbit/timeline"}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/profiles/p1/filters", strings.NewReader(body)), "user-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFiltersCreateRejectsBadFilterType(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	profileRows := sqlmock.NewRows([]string{"id", "user_id", "slug", "name", "description", "theme", "created_at"}).
		AddRow("p1", "user-1", "my-profile", "My Profile", nil, nil, time.Now())
	mock.ExpectQuery("SELECT id, user_id, slug, name, description, theme, created_at").
		WithArgs("p1").WillReturnRows(profileRows)

	h := handler.NewFiltersHandler(db.NewProfileRepo(mockDB), db.NewAccountRepo(mockDB), db.NewFilterRepo(mockDB), zerolog.Nop())
	r := newFiltersRouter(h)

	body := `{"account_id":"a1","filter_type":"bogus","filter_key":"repo","filter_value":"x"}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/profiles/p1/filters", strings.NewReader(body)), "user-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
