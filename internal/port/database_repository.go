package port

import (
	"context"

	"github.com/rl1809/voucher-rush/internal/core/domain"
)

type DatabaseRepository interface {
	// GetVoucher retrieves a seckill voucher by ID, nil when absent.
	GetVoucher(ctx context.Context, voucherID uint64) (*domain.SeckillVoucher, error)

	// CountOrders returns how many orders the user already holds for the voucher.
	CountOrders(ctx context.Context, userID, voucherID uint64) (int, error)

	// CreateVoucherOrder persists the order and decrements the voucher stock
	// mirror in one transaction.
	CreateVoucherOrder(ctx context.Context, order domain.VoucherOrder) error

	// GetShop retrieves a shop by ID, nil when absent.
	GetShop(ctx context.Context, shopID uint64) (*domain.Shop, error)

	// UpdateShop writes the shop row; callers evict the cache entry afterwards.
	UpdateShop(ctx context.Context, shop domain.Shop) error

	// GetBlog retrieves a blog by ID, nil when absent.
	GetBlog(ctx context.Context, blogID uint64) (*domain.Blog, error)

	// IncrBlogLiked adjusts the denormalized like counter by delta.
	IncrBlogLiked(ctx context.Context, blogID uint64, delta int) error
}
