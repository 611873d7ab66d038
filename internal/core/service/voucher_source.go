package service

import (
	"context"
	"time"

	"github.com/rl1809/voucher-rush/internal/core/cache"
	"github.com/rl1809/voucher-rush/internal/core/domain"
	"github.com/rl1809/voucher-rush/internal/port"
)

const (
	voucherKeyPrefix = "cache:seckill:voucher:"
	voucherTTL       = 30 * time.Minute
)

// VoucherSource resolves flash-sale vouchers for the admission window check.
type VoucherSource interface {
	GetVoucher(ctx context.Context, voucherID uint64) (*domain.SeckillVoucher, error)
}

// CachedVouchers reads vouchers through the pass-through cache; voucher rows
// change rarely, so absent ids are held off the database by the null marker.
type CachedVouchers struct {
	cache *cache.Client
	db    port.DatabaseRepository
}

func NewCachedVouchers(c *cache.Client, db port.DatabaseRepository) *CachedVouchers {
	return &CachedVouchers{cache: c, db: db}
}

func (v *CachedVouchers) GetVoucher(ctx context.Context, voucherID uint64) (*domain.SeckillVoucher, error) {
	return cache.QueryWithPassThrough(ctx, v.cache, voucherKeyPrefix, voucherID, voucherTTL, v.db.GetVoucher)
}
