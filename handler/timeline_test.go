package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/f0rbit/timeline/corpus"
	"github.com/f0rbit/timeline/db"
	"github.com/f0rbit/timeline/handler"
)

func newTimelineRouter(h *handler.TimelineHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/timeline/{user_id}", h.Get)
	r.Get("/timeline/{user_id}/raw/{platform}", h.GetRaw)
	return r
}

func TestTimelineGetRejectsOtherUsers(t *testing.T) {
	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	h := handler.NewTimelineHandler(db.NewAccountRepo(mockDB), corpus.NewMemoryBackend(), zerolog.Nop())
	r := newTimelineRouter(h)

	req := withUser(httptest.NewRequest(http.MethodGet, "/timeline/user-2", nil), "user-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTimelineGetReturns404WhenNoSnapshotExists(t *testing.T) {
	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	h := handler.NewTimelineHandler(db.NewAccountRepo(mockDB), corpus.NewMemoryBackend(), zerolog.Nop())
	r := newTimelineRouter(h)

	req := withUser(httptest.NewRequest(http.MethodGet, "/timeline/user-1", nil), "user-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTimelineGetRawRequiresAccountID(t *testing.T) {
	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	h := handler.NewTimelineHandler(db.NewAccountRepo(mockDB), corpus.NewMemoryBackend(), zerolog.Nop())
	r := newTimelineRouter(h)

	req := withUser(httptest.NewRequest(http.MethodGet, "/timeline/user-1/raw/github", nil), "user-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
