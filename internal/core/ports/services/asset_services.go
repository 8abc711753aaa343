package services

import (
	"context"

	"github.com/SscSPs/voledger/internal/core/domain"
	"github.com/SscSPs/voledger/internal/dto"
	"github.com/google/uuid"
)

// AssetReaderSvc defines read operations for the asset registry
type AssetReaderSvc interface {
	// GetAssetByCode retrieves a specific asset by its code.
	GetAssetByCode(ctx context.Context, code string) (*domain.Asset, error)

	// ListAssets retrieves all registered assets.
	ListAssets(ctx context.Context) ([]domain.Asset, error)
}

// AssetWriterSvc defines write operations for the asset registry
type AssetWriterSvc interface {
	// CreateAsset registers a new asset. Registering an identical asset again is not an error.
	CreateAsset(ctx context.Context, req dto.CreateAssetRequest, creatorID uuid.UUID) (*domain.Asset, error)
}

// AssetSvcFacade combines all asset-related service interfaces
type AssetSvcFacade interface {
	AssetReaderSvc
	AssetWriterSvc
}
