package gate_test

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/f0rbit/timeline/db"
	"github.com/f0rbit/timeline/gate"
	"github.com/f0rbit/timeline/provider"
)

func TestShouldFetchConsultsMemoryCacheBeforeDB(t *testing.T) {
	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := db.NewRateLimitRepo(mockDB)
	cache := gate.NewMemoryCache()
	g := gate.New(repo, cache)

	cache.SetBlocked(context.Background(), "acct-1", time.Now().Add(time.Hour))

	ok, err := g.ShouldFetch(context.Background(), "acct-1")
	require.NoError(t, err)
	require.False(t, ok, "cached block must short-circuit before hitting the DB")
}

func TestShouldFetchFallsThroughToDBOnCacheMiss(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	rows := sqlmock.NewRows([]string{"account_id", "remaining", "limit_total", "reset_at", "consecutive_failures", "last_failure_at", "circuit_open_until"}).
		AddRow("acct-1", nil, nil, nil, 0, nil, nil)
	mock.ExpectQuery("SELECT account_id, remaining, limit_total, reset_at, consecutive_failures, last_failure_at, circuit_open_until").
		WillReturnRows(rows)

	repo := db.NewRateLimitRepo(mockDB)
	g := gate.New(repo, gate.NewMemoryCache())

	ok, err := g.ShouldFetch(context.Background(), "acct-1")
	require.NoError(t, err)
	require.True(t, ok, "no recorded state means fetching is allowed")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCircuitOpensAfterThreeConsecutiveFailures(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := db.NewRateLimitRepo(mockDB)
	g := gate.New(repo, gate.NewMemoryCache())

	rowWithFailures := func(failures int) *sqlmock.Rows {
		return sqlmock.NewRows([]string{"account_id", "remaining", "limit_total", "reset_at", "consecutive_failures", "last_failure_at", "circuit_open_until"}).
			AddRow("acct-1", nil, nil, nil, failures, nil, nil)
	}

	for i := 0; i < 3; i++ {
		mock.ExpectQuery("SELECT account_id, remaining, limit_total, reset_at, consecutive_failures, last_failure_at, circuit_open_until").
			WillReturnRows(rowWithFailures(i))
		mock.ExpectExec("INSERT INTO rate_limits").WillReturnResult(sqlmock.NewResult(0, 1))
		err := g.RecordFailure(context.Background(), "acct-1")
		require.NoError(t, err)
	}
	require.NoError(t, mock.ExpectationsWereMet())

	// The third failure opens the circuit, which the gate caches, so the
	// next check is answered from the cache without a DB query.
	ok, err := g.ShouldFetch(context.Background(), "acct-1")
	require.NoError(t, err)
	require.False(t, ok, "circuit must be open after three consecutive failures")
}

func TestRecordSuccessClearsFailureState(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := db.NewRateLimitRepo(mockDB)
	g := gate.New(repo, gate.NewMemoryCache())

	rows := sqlmock.NewRows([]string{"account_id", "remaining", "limit_total", "reset_at", "consecutive_failures", "last_failure_at", "circuit_open_until"}).
		AddRow("acct-1", nil, nil, nil, 2, nil, nil)
	mock.ExpectQuery("SELECT account_id, remaining, limit_total, reset_at, consecutive_failures, last_failure_at, circuit_open_until").
		WillReturnRows(rows)
	mock.ExpectExec("INSERT INTO rate_limits").WillReturnResult(sqlmock.NewResult(0, 1))

	remaining := 42
	limit := 100
	resetAt := time.Now().Add(time.Hour).Unix()
	err = g.RecordSuccess(context.Background(), "acct-1", provider.RateLimitHeaders{
		Remaining: &remaining,
		Limit:     &limit,
		ResetAt:   &resetAt,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
