package ingest_test

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/f0rbit/timeline/corpus"
	"github.com/f0rbit/timeline/crypto"
	"github.com/f0rbit/timeline/db"
	"github.com/f0rbit/timeline/gate"
	"github.com/f0rbit/timeline/ingest"
	"github.com/f0rbit/timeline/provider"
	"github.com/f0rbit/timeline/storeid"
)

func futureTime() time.Time { return time.Now().Add(time.Hour) }

func testBox(t *testing.T) *crypto.Box {
	t.Helper()
	box, err := crypto.NewBox("00000000000000000000000000000000000000000000000000000000000000aa")
	require.NoError(t, err)
	return box
}

func emptyRateLimitRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"account_id", "remaining", "limit_total", "reset_at", "consecutive_failures", "last_failure_at", "circuit_open_until"}).
		AddRow("acct-1", nil, nil, nil, 0, nil, nil)
}

func newGitHubAccount(t *testing.T, box *crypto.Box) db.Account {
	t.Helper()
	encrypted, err := box.EncryptString("token-123")
	require.NoError(t, err)
	return db.Account{ID: "acct-1", Platform: db.PlatformGitHub, AccessTokenEncrypted: encrypted, IsActive: true}
}

func TestIngestAccountWritesMetaAndRepoShards(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectQuery("SELECT account_id, remaining, limit_total, reset_at, consecutive_failures, last_failure_at, circuit_open_until").WillReturnRows(emptyRateLimitRows())
	mock.ExpectQuery("SELECT account_id, remaining, limit_total, reset_at, consecutive_failures, last_failure_at, circuit_open_until").WillReturnRows(emptyRateLimitRows())
	mock.ExpectExec("INSERT INTO rate_limits").WillReturnResult(sqlmock.NewResult(0, 1))

	repo := db.NewRateLimitRepo(mockDB)
	g := gate.New(repo, gate.NewMemoryCache())
	backend := corpus.NewMemoryBackend()
	box := testBox(t)
	account := newGitHubAccount(t, box)

	gh := provider.NewMemoryProvider(provider.GitHub)
	gh.SetGitHub(
		provider.GitHubMeta{Login: "alice", Repos: []string{"alice/work-project"}},
		map[string]provider.GitHubRepoActivity{
			"alice/work-project": {
				Commits: []provider.GitHubCommit{{SHA: "aaa", Repo: "alice/work-project", Branch: "main"}},
			},
		},
	)

	ing := ingest.NewIngester(box, g, backend, map[db.Platform]provider.Provider{db.PlatformGitHub: gh})
	result, err := ing.IngestAccount(context.Background(), account)
	require.NoError(t, err)
	require.Equal(t, ingest.StatusIngested, result.Status)

	commitsID := storeid.GitHubCommits(account.ID, "alice", "work-project").String()
	stats, ok := result.Stats[commitsID]
	require.True(t, ok, "expected a stats entry for %s", commitsID)
	require.Equal(t, 1, stats.Total)
	require.Equal(t, 1, stats.New)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestAccountMergesSecondFetchByNaturalKey(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	for i := 0; i < 2; i++ {
		mock.ExpectQuery("SELECT account_id, remaining, limit_total, reset_at, consecutive_failures, last_failure_at, circuit_open_until").WillReturnRows(emptyRateLimitRows())
		mock.ExpectQuery("SELECT account_id, remaining, limit_total, reset_at, consecutive_failures, last_failure_at, circuit_open_until").WillReturnRows(emptyRateLimitRows())
		mock.ExpectExec("INSERT INTO rate_limits").WillReturnResult(sqlmock.NewResult(0, 1))
	}

	repo := db.NewRateLimitRepo(mockDB)
	g := gate.New(repo, gate.NewMemoryCache())
	backend := corpus.NewMemoryBackend()
	box := testBox(t)
	account := newGitHubAccount(t, box)

	gh := provider.NewMemoryProvider(provider.GitHub)
	gh.SetGitHub(
		provider.GitHubMeta{Login: "alice", Repos: []string{"alice/work-project"}},
		map[string]provider.GitHubRepoActivity{
			"alice/work-project": {Commits: []provider.GitHubCommit{{SHA: "aaa", Additions: 1}}},
		},
	)
	ing := ingest.NewIngester(box, g, backend, map[db.Platform]provider.Provider{db.PlatformGitHub: gh})

	_, err = ing.IngestAccount(context.Background(), account)
	require.NoError(t, err)

	gh.SetGitHub(
		provider.GitHubMeta{Login: "alice", Repos: []string{"alice/work-project"}},
		map[string]provider.GitHubRepoActivity{
			"alice/work-project": {Commits: []provider.GitHubCommit{{SHA: "aaa", Additions: 99}, {SHA: "bbb"}}},
		},
	)
	result, err := ing.IngestAccount(context.Background(), account)
	require.NoError(t, err)

	commitsID := storeid.GitHubCommits(account.ID, "alice", "work-project").String()
	stats := result.Stats[commitsID]
	require.Equal(t, 2, stats.Total, "aaa replaced, bbb appended")
	require.Equal(t, 1, stats.New)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestAccountSkippedWhenGateBlocks(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	repo := db.NewRateLimitRepo(mockDB)
	cache := gate.NewMemoryCache()
	g := gate.New(repo, cache)
	cache.SetBlocked(context.Background(), "acct-1", futureTime())

	backend := corpus.NewMemoryBackend()
	box := testBox(t)
	account := newGitHubAccount(t, box)
	gh := provider.NewMemoryProvider(provider.GitHub)

	ing := ingest.NewIngester(box, g, backend, map[db.Platform]provider.Provider{db.PlatformGitHub: gh})
	result, err := ing.IngestAccount(context.Background(), account)
	require.NoError(t, err)
	require.Equal(t, ingest.StatusSkipped, result.Status)
	require.Equal(t, 0, gh.GetCallCount(), "a blocked gate must not call the provider")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestAccountRecordsRateLimitOnProviderRejection(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectQuery("SELECT account_id, remaining, limit_total, reset_at, consecutive_failures, last_failure_at, circuit_open_until").WillReturnRows(emptyRateLimitRows())
	mock.ExpectQuery("SELECT account_id, remaining, limit_total, reset_at, consecutive_failures, last_failure_at, circuit_open_until").WillReturnRows(emptyRateLimitRows())
	mock.ExpectExec("INSERT INTO rate_limits").WillReturnResult(sqlmock.NewResult(0, 1))

	repo := db.NewRateLimitRepo(mockDB)
	g := gate.New(repo, gate.NewMemoryCache())
	backend := corpus.NewMemoryBackend()
	box := testBox(t)
	account := newGitHubAccount(t, box)

	gh := provider.NewMemoryProvider(provider.GitHub)
	gh.SetSimulateRateLimit(30)

	ing := ingest.NewIngester(box, g, backend, map[db.Platform]provider.Provider{db.PlatformGitHub: gh})
	result, err := ing.IngestAccount(context.Background(), account)
	require.Error(t, err)
	require.Equal(t, ingest.Status(""), result.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
