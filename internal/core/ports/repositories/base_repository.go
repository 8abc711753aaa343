package repositories

import (
	"context"
)

// TransactionManager runs fn inside one storage transaction. The transaction commits
// when fn returns nil and rolls back otherwise; on rollback every claim taken through
// the LedgerTx is released and none of its writes become visible.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
}
