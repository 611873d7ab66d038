package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rl1809/voucher-rush/internal/core/cache"
	"github.com/rl1809/voucher-rush/internal/core/domain"
	"github.com/rl1809/voucher-rush/internal/port"
)

var ErrMissingShopID = errors.New("shop id is required")

const (
	shopKeyPrefix = "cache:shop:"

	shopTTL = 30 * time.Minute
	// Logical TTL for pre-warmed hot shops.
	hotShopTTL = 20 * time.Second
)

type ShopService struct {
	cache *cache.Client
	db    port.DatabaseRepository
}

func NewShopService(c *cache.Client, db port.DatabaseRepository) *ShopService {
	return &ShopService{cache: c, db: db}
}

// GetByID reads through the pass-through path; absent rows are cached as a
// null marker so repeat lookups stop at Redis.
func (s *ShopService) GetByID(ctx context.Context, shopID uint64) (*domain.Shop, error) {
	return cache.QueryWithPassThrough(ctx, s.cache, shopKeyPrefix, shopID, shopTTL, s.db.GetShop)
}

// GetHotByID reads through the logical-expiry path. The entry must have been
// warmed with Warm first; a cold key reads as absent.
func (s *ShopService) GetHotByID(ctx context.Context, shopID uint64) (*domain.Shop, error) {
	return cache.QueryWithLogicalExpire(ctx, s.cache, shopKeyPrefix, shopID, hotShopTTL, s.db.GetShop)
}

// Update writes the database first, then evicts the cache entry. Readers
// rebuild it on the next miss.
func (s *ShopService) Update(ctx context.Context, shop domain.Shop) error {
	if shop.ID == 0 {
		return ErrMissingShopID
	}
	if err := s.db.UpdateShop(ctx, shop); err != nil {
		return err
	}
	return s.cache.Delete(ctx, shopKey(shop.ID))
}

// Warm pre-loads a shop into the logical-expiry cache. A non-positive ttl
// uses the hot-shop default.
func (s *ShopService) Warm(ctx context.Context, shopID uint64, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = hotShopTTL
	}
	shop, err := s.db.GetShop(ctx, shopID)
	if err != nil {
		return err
	}
	if shop == nil {
		return fmt.Errorf("warm shop %d: no such row", shopID)
	}
	return s.cache.SetWithLogicalExpire(ctx, shopKey(shopID), shop, ttl)
}

func shopKey(shopID uint64) string {
	return fmt.Sprintf("%s%d", shopKeyPrefix, shopID)
}
