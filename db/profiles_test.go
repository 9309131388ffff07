package db_test

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/f0rbit/timeline/apierr"
	"github.com/f0rbit/timeline/db"
)

func TestValidSlugGrammar(t *testing.T) {
	cases := map[string]bool{
		"abc":          true,
		"my-profile":   true,
		"ab":           false, // too short
		"My-Profile":   false, // uppercase
		"has space":    false,
		"has_under":    false,
		"123":          true,
		"":             false,
	}
	for slug, want := range cases {
		if got := db.ValidSlug(slug); got != want {
			t.Errorf("ValidSlug(%q) = %v, want %v", slug, got, want)
		}
	}
}

func TestProfileRepoCreateRejectsBadSlug(t *testing.T) {
	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := db.NewProfileRepo(mockDB)
	_, err = repo.Create(context.Background(), "user-1", "x", "My Profile", nil, nil)
	require.Error(t, err)
}

func TestProfileRepoCreateTranslatesUniqueViolationToSlugTaken(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectExec("INSERT INTO profiles").
		WillReturnError(&pq.Error{Code: "23505"})

	repo := db.NewProfileRepo(mockDB)
	_, err = repo.Create(context.Background(), "user-1", "taken-slug", "Name", nil, nil)
	require.Error(t, err)

	apiErr, ok := apierr.As(err)
	require.True(t, ok, "expected *apierr.Error, got %T", err)
	require.Equal(t, 409, apiErr.Status)

	require.NoError(t, mock.ExpectationsWereMet())
}
