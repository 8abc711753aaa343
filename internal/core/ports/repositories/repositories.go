package repositories

import "io"

// RepositoryProvider holds the store the services run on and how to release it.
// This makes passing dependencies to the service container constructor cleaner.
type RepositoryProvider struct {
	Ledger LedgerStore
	Closer io.Closer
}

// Close releases the underlying storage handle, if any.
func (p RepositoryProvider) Close() error {
	if p.Closer == nil {
		return nil
	}
	return p.Closer.Close()
}
