package dto

import (
	"github.com/SscSPs/voledger/internal/core/domain"
)

// CreateAssetRequest defines the data needed to register a new asset.
type CreateAssetRequest struct {
	Code     string `json:"code" binding:"required,assetcode"`
	Unit     uint64 `json:"unit" binding:"required,gt=0"`
	Decimals uint8  `json:"decimals" binding:"lte=18"`
}

// AssetResponse defines the data returned for an asset.
type AssetResponse struct {
	AssetID  string `json:"assetID"`
	Code     string `json:"code"`
	Unit     uint64 `json:"unit"`
	Decimals uint8  `json:"decimals"`
}

// ToAssetResponse converts a domain.Asset to AssetResponse DTO
func ToAssetResponse(asset *domain.Asset) AssetResponse {
	return AssetResponse{
		AssetID:  asset.ID.String(),
		Code:     asset.Code,
		Unit:     asset.Unit,
		Decimals: asset.Decimals,
	}
}

// ToListAssetResponse converts a slice of domain.Asset to a slice of AssetResponse DTOs
func ToListAssetResponse(assets []domain.Asset) []AssetResponse {
	res := make([]AssetResponse, len(assets))
	for i := range assets {
		res[i] = ToAssetResponse(&assets[i])
	}
	return res
}
