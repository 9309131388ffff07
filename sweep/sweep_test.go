package sweep_test

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/f0rbit/timeline/corpus"
	"github.com/f0rbit/timeline/crypto"
	"github.com/f0rbit/timeline/db"
	"github.com/f0rbit/timeline/gate"
	"github.com/f0rbit/timeline/ingest"
	"github.com/f0rbit/timeline/provider"
	"github.com/f0rbit/timeline/sweep"
	"github.com/f0rbit/timeline/timeline"
)

func accountColumns() []string {
	return []string{"id", "profile_id", "platform", "platform_user_id", "platform_username",
		"access_token_encrypted", "refresh_token_encrypted", "token_expires_at", "is_active", "last_fetched_at", "created_at"}
}

func emptyRateLimitRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"account_id", "remaining", "limit_total", "reset_at", "consecutive_failures", "last_failure_at", "circuit_open_until"}).
		AddRow("acct-1", nil, nil, nil, 0, nil, nil)
}

func testBox(t *testing.T) *crypto.Box {
	t.Helper()
	box, err := crypto.NewBox("00000000000000000000000000000000000000000000000000000000000000aa")
	require.NoError(t, err)
	return box
}

func TestRunProcessesOnePageAndReassemblesChangedUser(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	box := testBox(t)
	encrypted, err := box.EncryptString("tok")
	require.NoError(t, err)

	accounts := db.NewAccountRepo(mockDB)

	page1 := sqlmock.NewRows(accountColumns()).
		AddRow("acct-1", "profile-1", "youtube", nil, nil, encrypted, nil, nil, true, nil, time.Now())
	mock.ExpectQuery("WHERE is_active = true AND id >").WillReturnRows(page1)

	mock.ExpectQuery("SELECT p.user_id").WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("user-1"))

	mock.ExpectQuery("SELECT account_id, remaining, limit_total, reset_at, consecutive_failures, last_failure_at, circuit_open_until").WillReturnRows(emptyRateLimitRows())
	mock.ExpectQuery("SELECT account_id, remaining, limit_total, reset_at, consecutive_failures, last_failure_at, circuit_open_until").WillReturnRows(emptyRateLimitRows())
	mock.ExpectExec("INSERT INTO rate_limits").WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery("WHERE is_active = true AND id >").WillReturnRows(sqlmock.NewRows(accountColumns()))

	mock.ExpectQuery("SELECT a.id, a.profile_id, a.platform").WillReturnRows(
		sqlmock.NewRows(accountColumns()).AddRow("acct-1", "profile-1", "youtube", nil, nil, encrypted, nil, nil, true, nil, time.Now()),
	)

	g := gate.New(db.NewRateLimitRepo(mockDB), gate.NewMemoryCache())
	backend := corpus.NewMemoryBackend()
	yt := provider.NewMemoryProvider(provider.YouTube)
	ing := ingest.NewIngester(box, g, backend, map[db.Platform]provider.Provider{db.PlatformYouTube: yt})
	assembler := timeline.NewAssembler(accounts, db.NewFilterRepo(mockDB), backend)

	sweeper := sweep.New(accounts, ing, assembler, zerolog.Nop())
	result, err := sweeper.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.AccountsProcessed)
	require.Equal(t, 0, result.AccountsFailed)
	require.Equal(t, 1, result.UsersReassembled)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunContinuesPastPerAccountFailures(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	accounts := db.NewAccountRepo(mockDB)

	page1 := sqlmock.NewRows(accountColumns()).
		AddRow("acct-1", "profile-1", "youtube", nil, nil, "not-valid-ciphertext", nil, nil, true, nil, time.Now())
	mock.ExpectQuery("WHERE is_active = true AND id >").WillReturnRows(page1)

	mock.ExpectQuery("SELECT p.user_id").WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("user-1"))

	mock.ExpectQuery("WHERE is_active = true AND id >").WillReturnRows(sqlmock.NewRows(accountColumns()))

	g := gate.New(db.NewRateLimitRepo(mockDB), gate.NewMemoryCache())
	backend := corpus.NewMemoryBackend()
	// The stored token isn't valid ciphertext, so decryption fails before
	// any provider is consulted: IngestAccount errors and the sweep must
	// log it and continue rather than abort the pass.
	ing := ingest.NewIngester(testBox(t), g, backend, map[db.Platform]provider.Provider{})
	assembler := timeline.NewAssembler(accounts, db.NewFilterRepo(mockDB), backend)

	sweeper := sweep.New(accounts, ing, assembler, zerolog.Nop())
	result, err := sweeper.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, result.AccountsProcessed)
	require.Equal(t, 1, result.AccountsFailed)
	require.Equal(t, 0, result.UsersReassembled)
	require.NoError(t, mock.ExpectationsWereMet())
}
