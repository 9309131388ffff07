package refresh_test

import (
	"context"
	"database/sql"
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
	"github.com/f0rbit/timeline/refresh"
	"github.com/f0rbit/timeline/timeline"
)

func testBox(t *testing.T) *crypto.Box {
	t.Helper()
	box, err := crypto.NewBox("00000000000000000000000000000000000000000000000000000000000000aa")
	require.NoError(t, err)
	return box
}

func accountColumns() []string {
	return []string{"id", "profile_id", "platform", "platform_user_id", "platform_username",
		"access_token_encrypted", "refresh_token_encrypted", "token_expires_at", "is_active", "last_fetched_at", "created_at"}
}

func emptyRateLimitRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"account_id", "remaining", "limit_total", "reset_at", "consecutive_failures", "last_failure_at", "circuit_open_until"}).
		AddRow("acct-1", nil, nil, nil, 0, nil, nil)
}

func newHarness(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *db.AccountRepo, *crypto.Box) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return mockDB, mock, db.NewAccountRepo(mockDB), testBox(t)
}

func TestRefreshSingleAccountNotFound(t *testing.T) {
	mockDB, mock, accounts, box := newHarness(t)
	mock.ExpectQuery("SELECT id, profile_id, platform").WillReturnError(sql.ErrNoRows)

	g := gate.New(db.NewRateLimitRepo(mockDB), gate.NewMemoryCache())
	backend := corpus.NewMemoryBackend()
	ing := ingest.NewIngester(box, g, backend, map[db.Platform]provider.Provider{})
	assembler := timeline.NewAssembler(accounts, db.NewFilterRepo(mockDB), backend)
	orch := refresh.New(accounts, ing, assembler, nil)

	_, err := orch.RefreshSingleAccount(context.Background(), "user-1", "missing")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshSingleAccountInactiveFails(t *testing.T) {
	mockDB, mock, accounts, box := newHarness(t)

	rows := sqlmock.NewRows(accountColumns()).
		AddRow("acct-1", "profile-1", "youtube", nil, nil, "enc", nil, nil, false, nil, time.Now())
	mock.ExpectQuery("SELECT id, profile_id, platform").WillReturnRows(rows)

	g := gate.New(db.NewRateLimitRepo(mockDB), gate.NewMemoryCache())
	backend := corpus.NewMemoryBackend()
	ing := ingest.NewIngester(box, g, backend, map[db.Platform]provider.Provider{})
	assembler := timeline.NewAssembler(accounts, db.NewFilterRepo(mockDB), backend)
	orch := refresh.New(accounts, ing, assembler, nil)

	_, err := orch.RefreshSingleAccount(context.Background(), "user-1", "acct-1")
	require.ErrorIs(t, err, refresh.ErrInactive)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshSingleAccountCooperativePlatformReturnsProcessing(t *testing.T) {
	mockDB, mock, accounts, box := newHarness(t)

	encrypted, err := box.EncryptString("tok")
	require.NoError(t, err)

	rows := sqlmock.NewRows(accountColumns()).
		AddRow("acct-1", "profile-1", "github", nil, nil, encrypted, nil, nil, true, nil, time.Now())
	mock.ExpectQuery("SELECT id, profile_id, platform").WillReturnRows(rows)
	mock.ExpectQuery("SELECT account_id, remaining, limit_total, reset_at, consecutive_failures, last_failure_at, circuit_open_until").WillReturnRows(emptyRateLimitRows())
	mock.ExpectQuery("SELECT account_id, remaining, limit_total, reset_at, consecutive_failures, last_failure_at, circuit_open_until").WillReturnRows(emptyRateLimitRows())
	mock.ExpectExec("INSERT INTO rate_limits").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT a.id, a.profile_id, a.platform").WillReturnRows(sqlmock.NewRows(accountColumns()))

	g := gate.New(db.NewRateLimitRepo(mockDB), gate.NewMemoryCache())
	backend := corpus.NewMemoryBackend()
	gh := provider.NewMemoryProvider(provider.GitHub)
	gh.SetGitHub(provider.GitHubMeta{Login: "alice"}, map[string]provider.GitHubRepoActivity{})
	ing := ingest.NewIngester(box, g, backend, map[db.Platform]provider.Provider{db.PlatformGitHub: gh})
	assembler := timeline.NewAssembler(accounts, db.NewFilterRepo(mockDB), backend)

	// nil Hook means the background task runs inline (awaited), per §9.
	orch := refresh.New(accounts, ing, assembler, nil)

	result, err := orch.RefreshSingleAccount(context.Background(), "user-1", "acct-1")
	require.NoError(t, err)
	require.Equal(t, refresh.SingleProcessing, result.Status)
	require.Equal(t, "github", result.Platform)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshSingleAccountInlinePlatformRefreshes(t *testing.T) {
	mockDB, mock, accounts, box := newHarness(t)

	encrypted, err := box.EncryptString("tok")
	require.NoError(t, err)

	rows := sqlmock.NewRows(accountColumns()).
		AddRow("acct-1", "profile-1", "youtube", nil, nil, encrypted, nil, nil, true, nil, time.Now())
	mock.ExpectQuery("SELECT id, profile_id, platform").WillReturnRows(rows)
	mock.ExpectQuery("SELECT account_id, remaining, limit_total, reset_at, consecutive_failures, last_failure_at, circuit_open_until").WillReturnRows(emptyRateLimitRows())
	mock.ExpectQuery("SELECT account_id, remaining, limit_total, reset_at, consecutive_failures, last_failure_at, circuit_open_until").WillReturnRows(emptyRateLimitRows())
	mock.ExpectExec("INSERT INTO rate_limits").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT a.id, a.profile_id, a.platform").WillReturnRows(sqlmock.NewRows(accountColumns()))

	g := gate.New(db.NewRateLimitRepo(mockDB), gate.NewMemoryCache())
	backend := corpus.NewMemoryBackend()
	yt := provider.NewMemoryProvider(provider.YouTube)
	ing := ingest.NewIngester(box, g, backend, map[db.Platform]provider.Provider{db.PlatformYouTube: yt})
	assembler := timeline.NewAssembler(accounts, db.NewFilterRepo(mockDB), backend)
	orch := refresh.New(accounts, ing, assembler, nil)

	result, err := orch.RefreshSingleAccount(context.Background(), "user-1", "acct-1")
	require.NoError(t, err)
	require.Equal(t, refresh.SingleRefreshed, result.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshAllAccountsPartitionsCooperativeAndInline(t *testing.T) {
	mockDB, mock, accounts, box := newHarness(t)

	encryptedGH, err := box.EncryptString("tok-gh")
	require.NoError(t, err)
	encryptedYT, err := box.EncryptString("tok-yt")
	require.NoError(t, err)

	listRows := sqlmock.NewRows(accountColumns()).
		AddRow("acct-gh", "profile-1", "github", nil, nil, encryptedGH, nil, nil, true, nil, time.Now()).
		AddRow("acct-yt", "profile-1", "youtube", nil, nil, encryptedYT, nil, nil, true, nil, time.Now())
	mock.ExpectQuery("SELECT a.id, a.profile_id, a.platform").WillReturnRows(listRows)

	// inline (youtube) ingest: gate check + record success
	mock.ExpectQuery("SELECT account_id, remaining, limit_total, reset_at, consecutive_failures, last_failure_at, circuit_open_until").WillReturnRows(emptyRateLimitRows())
	mock.ExpectQuery("SELECT account_id, remaining, limit_total, reset_at, consecutive_failures, last_failure_at, circuit_open_until").WillReturnRows(emptyRateLimitRows())
	mock.ExpectExec("INSERT INTO rate_limits").WillReturnResult(sqlmock.NewResult(0, 1))

	// reassemble after inline change
	mock.ExpectQuery("SELECT a.id, a.profile_id, a.platform").WillReturnRows(sqlmock.NewRows(accountColumns()))

	// cooperative (github) background ingest, run inline since Hook is nil
	mock.ExpectQuery("SELECT account_id, remaining, limit_total, reset_at, consecutive_failures, last_failure_at, circuit_open_until").WillReturnRows(emptyRateLimitRows())
	mock.ExpectQuery("SELECT account_id, remaining, limit_total, reset_at, consecutive_failures, last_failure_at, circuit_open_until").WillReturnRows(emptyRateLimitRows())
	mock.ExpectExec("INSERT INTO rate_limits").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT a.id, a.profile_id, a.platform").WillReturnRows(sqlmock.NewRows(accountColumns()))

	g := gate.New(db.NewRateLimitRepo(mockDB), gate.NewMemoryCache())
	backend := corpus.NewMemoryBackend()
	gh := provider.NewMemoryProvider(provider.GitHub)
	gh.SetGitHub(provider.GitHubMeta{Login: "alice"}, map[string]provider.GitHubRepoActivity{})
	yt := provider.NewMemoryProvider(provider.YouTube)
	ing := ingest.NewIngester(box, g, backend, map[db.Platform]provider.Provider{
		db.PlatformGitHub:  gh,
		db.PlatformYouTube: yt,
	})
	assembler := timeline.NewAssembler(accounts, db.NewFilterRepo(mockDB), backend)
	orch := refresh.New(accounts, ing, assembler, nil)

	result, err := orch.RefreshAllAccounts(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, 2, result.Total)
	require.Equal(t, refresh.AllProcessing, result.Status)
	require.Equal(t, 1, result.CooperativeQueued["github"])
	require.Equal(t, 1, result.Succeeded)
	require.Equal(t, 0, result.Failed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshAllAccountsAllInlineCompletesSynchronously(t *testing.T) {
	mockDB, mock, accounts, box := newHarness(t)

	encrypted, err := box.EncryptString("tok")
	require.NoError(t, err)

	listRows := sqlmock.NewRows(accountColumns()).
		AddRow("acct-yt", "profile-1", "youtube", nil, nil, encrypted, nil, nil, true, nil, time.Now())
	mock.ExpectQuery("SELECT a.id, a.profile_id, a.platform").WillReturnRows(listRows)

	mock.ExpectQuery("SELECT account_id, remaining, limit_total, reset_at, consecutive_failures, last_failure_at, circuit_open_until").WillReturnRows(emptyRateLimitRows())
	mock.ExpectQuery("SELECT account_id, remaining, limit_total, reset_at, consecutive_failures, last_failure_at, circuit_open_until").WillReturnRows(emptyRateLimitRows())
	mock.ExpectExec("INSERT INTO rate_limits").WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery("SELECT a.id, a.profile_id, a.platform").WillReturnRows(sqlmock.NewRows(accountColumns()))

	g := gate.New(db.NewRateLimitRepo(mockDB), gate.NewMemoryCache())
	backend := corpus.NewMemoryBackend()
	yt := provider.NewMemoryProvider(provider.YouTube)
	ing := ingest.NewIngester(box, g, backend, map[db.Platform]provider.Provider{db.PlatformYouTube: yt})
	assembler := timeline.NewAssembler(accounts, db.NewFilterRepo(mockDB), backend)
	orch := refresh.New(accounts, ing, assembler, nil)

	result, err := orch.RefreshAllAccounts(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, refresh.AllCompleted, result.Status)
	require.Equal(t, 1, result.Succeeded)
	require.Empty(t, result.CooperativeQueued)
	require.NoError(t, mock.ExpectationsWereMet())
}
