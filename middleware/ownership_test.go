package middleware_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/f0rbit/timeline/apierr"
	"github.com/f0rbit/timeline/db"
	"github.com/f0rbit/timeline/middleware"
)

func TestRequireProfileOwnerRejectsWrongUser(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	rows := sqlmock.NewRows([]string{"id", "user_id", "slug", "name", "description", "theme", "created_at"}).
		AddRow("profile-1", "owner-1", "slug", "Name", nil, nil, time.Now())
	mock.ExpectQuery("SELECT id, user_id, slug, name, description, theme, created_at FROM profiles").WillReturnRows(rows)

	profiles := db.NewProfileRepo(mockDB)
	_, err = middleware.RequireProfileOwner(context.Background(), profiles, "someone-else", "profile-1")
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	require.Equal(t, apierr.KindWrongOwner, apiErr.Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequireProfileOwnerMissingReturnsNotFound(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectQuery("SELECT id, user_id, slug, name, description, theme, created_at FROM profiles").WillReturnError(sql.ErrNoRows)

	profiles := db.NewProfileRepo(mockDB)
	_, err = middleware.RequireProfileOwner(context.Background(), profiles, "user-1", "missing")
	apiErr, ok := apierr.As(err)
	require.True(t, ok)
	require.Equal(t, apierr.KindNotFound, apiErr.Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequireProfileOwnerAllowsOwner(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	rows := sqlmock.NewRows([]string{"id", "user_id", "slug", "name", "description", "theme", "created_at"}).
		AddRow("profile-1", "user-1", "slug", "Name", nil, nil, time.Now())
	mock.ExpectQuery("SELECT id, user_id, slug, name, description, theme, created_at FROM profiles").WillReturnRows(rows)

	profiles := db.NewProfileRepo(mockDB)
	profile, err := middleware.RequireProfileOwner(context.Background(), profiles, "user-1", "profile-1")
	require.NoError(t, err)
	require.Equal(t, "profile-1", profile.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
