package pgsql

import (
	portsrepo "github.com/SscSPs/voledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRepositoryProvider wires the PostgreSQL ledger store. The pool stays owned by the
// caller, so the provider has nothing to close.
func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		Ledger: newPgxLedgerStore(dbPool),
	}
}
