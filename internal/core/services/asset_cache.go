package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/SscSPs/voledger/internal/core/domain"
	portsrepo "github.com/SscSPs/voledger/internal/core/ports/repositories"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// AssetCache is a read-through cache of the asset registry. Assets never change after
// registration, so entries only need refreshing when CreateAsset stores one.
type AssetCache struct {
	store  portsrepo.AssetReader
	byCode *lru.Cache[string, domain.Asset]
	byID   *lru.Cache[uuid.UUID, domain.Asset]
}

// NewAssetCache creates a cache holding up to size assets.
func NewAssetCache(store portsrepo.AssetReader, size int) (*AssetCache, error) {
	byCode, err := lru.New[string, domain.Asset](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create asset code cache: %w", err)
	}
	byID, err := lru.New[uuid.UUID, domain.Asset](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create asset id cache: %w", err)
	}
	return &AssetCache{store: store, byCode: byCode, byID: byID}, nil
}

// ByCode returns the asset registered under code.
func (c *AssetCache) ByCode(ctx context.Context, code string) (domain.Asset, error) {
	code = normalizeCode(code)
	if asset, ok := c.byCode.Get(code); ok {
		return asset, nil
	}
	asset, err := c.store.FindAssetByCode(ctx, code)
	if err != nil {
		return domain.Asset{}, fmt.Errorf("failed to look up asset %s: %w", code, err)
	}
	c.Put(*asset)
	return *asset, nil
}

// ByID returns the asset with the given id.
func (c *AssetCache) ByID(ctx context.Context, id uuid.UUID) (domain.Asset, error) {
	if asset, ok := c.byID.Get(id); ok {
		return asset, nil
	}
	asset, err := c.store.FindAssetByID(ctx, id)
	if err != nil {
		return domain.Asset{}, fmt.Errorf("failed to look up asset %s: %w", id, err)
	}
	c.Put(*asset)
	return *asset, nil
}

// Put replaces any cached entry for asset.
func (c *AssetCache) Put(asset domain.Asset) {
	c.Invalidate(asset)
	c.byCode.Add(asset.Code, asset)
	c.byID.Add(asset.ID, asset)
}

// Invalidate drops asset from both indexes.
func (c *AssetCache) Invalidate(asset domain.Asset) {
	c.byCode.Remove(asset.Code)
	c.byID.Remove(asset.ID)
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
