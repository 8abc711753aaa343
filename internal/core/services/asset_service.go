package services

import (
	"context"
	"log/slog"

	"github.com/SscSPs/voledger/internal/core/domain"
	portssvc "github.com/SscSPs/voledger/internal/core/ports/services"
	"github.com/SscSPs/voledger/internal/dto"
	"github.com/google/uuid"
)

type assetService struct {
	BaseService
	ledger *Ledger
}

// NewAssetService creates the asset registry service on top of ledger.
func NewAssetService(ledger *Ledger) portssvc.AssetSvcFacade {
	return &assetService{ledger: ledger}
}

var _ portssvc.AssetSvcFacade = (*assetService)(nil)

func (s *assetService) CreateAsset(ctx context.Context, req dto.CreateAssetRequest, creatorID uuid.UUID) (*domain.Asset, error) {
	asset, err := s.ledger.CreateAsset(ctx, domain.NewAsset(req.Code, req.Unit, req.Decimals))
	if err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Asset created",
		slog.String("code", asset.Code),
		slog.String("creator_id", creatorID.String()))
	return asset, nil
}

func (s *assetService) GetAssetByCode(ctx context.Context, code string) (*domain.Asset, error) {
	return s.ledger.GetAsset(ctx, code)
}

func (s *assetService) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	assets, err := s.ledger.ListAssets(ctx)
	if err != nil {
		return nil, err
	}
	if assets == nil {
		return []domain.Asset{}, nil
	}
	return assets, nil
}
