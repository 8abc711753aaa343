package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SscSPs/voledger/internal/adapters/database/bolt"
	"github.com/SscSPs/voledger/internal/adapters/database/memory"
	"github.com/SscSPs/voledger/internal/adapters/database/pgsql"
	portsrepo "github.com/SscSPs/voledger/internal/core/ports/repositories"
	"github.com/SscSPs/voledger/internal/platform/config"
	"github.com/SscSPs/voledger/pkg/database"
)

// openRepositories builds the configured storage backend. PostgreSQL schemas are migrated
// before the pool is handed out.
func openRepositories(ctx context.Context, cfg *config.Config, logger *slog.Logger) (portsrepo.RepositoryProvider, func(), error) {
	switch cfg.StorageBackend {
	case config.BackendMemory:
		logger.Warn("Using the in-memory store; the ledger is lost on exit.")
		store := memory.NewStore()
		return portsrepo.RepositoryProvider{Ledger: store, Closer: store}, func() {}, nil

	case config.BackendBolt:
		store, err := bolt.Open(cfg.BoltPath)
		if err != nil {
			return portsrepo.RepositoryProvider{}, nil, fmt.Errorf("failed to open bolt store: %w", err)
		}
		logger.Info("Bolt store opened.", slog.String("path", store.Path()))
		return portsrepo.RepositoryProvider{Ledger: store, Closer: store}, func() {}, nil

	case config.BackendPostgres:
		logger.Info("Running database migrations...")
		if err := pgsql.MigrateUp(cfg.DatabaseURL, logger); err != nil {
			return portsrepo.RepositoryProvider{}, nil, err
		}
		dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck, logger)
		if err != nil {
			return portsrepo.RepositoryProvider{}, nil, fmt.Errorf("failed to initialize database pool: %w", err)
		}
		return pgsql.NewRepositoryProvider(dbPool), func() { database.ClosePgxPool(dbPool, logger) }, nil

	default:
		return portsrepo.RepositoryProvider{}, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
