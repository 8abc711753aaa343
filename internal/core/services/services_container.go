package services

import (
	portsrepo "github.com/SscSPs/voledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/voledger/internal/core/ports/services"
	"github.com/SscSPs/voledger/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider) (*portssvc.ServiceContainer, error) {
	// Every service shares one ledger so they share its asset cache
	ledger, err := NewLedger(repos.Ledger,
		WithAssetCacheSize(cfg.AssetCacheSize),
		WithCoinSelectionBatchSize(cfg.CoinSelectionBatchSize),
	)
	if err != nil {
		return nil, err
	}

	return &portssvc.ServiceContainer{
		Asset:     NewAssetService(ledger),
		Payment:   NewPaymentService(ledger),
		Reporting: NewReportingService(ledger),
	}, nil
}
