package pgsql_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/SscSPs/voledger/internal/adapters/database/pgsql"
	"github.com/SscSPs/voledger/internal/adapters/database/storetest"
	portsrepo "github.com/SscSPs/voledger/internal/core/ports/repositories"
	"github.com/SscSPs/voledger/pkg/database"
	"github.com/stretchr/testify/require"
)

// The tests need a disposable database; every table is truncated between cases.
const testDatabaseURLEnv = "LEDGER_TEST_PGSQL_URL"

func TestLedgerStore(t *testing.T) {
	databaseURL := os.Getenv(testDatabaseURLEnv)
	if databaseURL == "" {
		t.Skipf("%s not set", testDatabaseURLEnv)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	require.NoError(t, pgsql.MigrateUp(databaseURL, logger))

	pool, err := database.NewPgxPool(context.Background(), databaseURL, true, logger)
	require.NoError(t, err)
	t.Cleanup(func() { database.ClosePgxPool(pool, logger) })

	storetest.Run(t, func(t *testing.T) portsrepo.LedgerStore {
		_, err := pool.Exec(context.Background(), `TRUNCATE transactions, value_objects, assets;`)
		require.NoError(t, err)
		return pgsql.NewRepositoryProvider(pool).Ledger
	})
}
