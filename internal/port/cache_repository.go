package port

import (
	"context"
	"time"

	"github.com/rl1809/voucher-rush/internal/core/domain"
)

type CacheRepository interface {
	// SeedStock initializes the authoritative stock counter for a voucher.
	SeedStock(ctx context.Context, voucherID uint64, stock int) error

	// AdmitOrder runs the atomic admission script: stock check, one-order-per-user
	// check, stock decrement, dedup-set insert and stream enqueue as one unit.
	AdmitOrder(ctx context.Context, voucherID, userID, orderID uint64) (domain.AdmitResult, error)
}

// OrderQueue is the durable order stream behind a consumer group.
type OrderQueue interface {
	// EnsureGroup creates the consumer group if it does not exist yet.
	EnsureGroup(ctx context.Context) error

	// ReadNew blocks up to the given duration for one undelivered entry.
	// Returns nil when the stream stayed empty.
	ReadNew(ctx context.Context, block time.Duration) (*domain.PendingOrder, error)

	// ReadPending returns one entry delivered to this consumer but never
	// acknowledged, or nil when the pending list is drained.
	ReadPending(ctx context.Context) (*domain.PendingOrder, error)

	// Ack removes an entry from the pending list after durable persistence.
	Ack(ctx context.Context, entryID string) error
}

type SignRepository interface {
	// SetSignBit marks the day of month as signed in the user's monthly bitmap.
	SetSignBit(ctx context.Context, userID uint64, day time.Time) error

	// MonthSignBits returns the sign-in bits from the 1st of the month up to
	// the given day, most recent day in the lowest bit.
	MonthSignBits(ctx context.Context, userID uint64, day time.Time) (int64, error)
}

type LikeRepository interface {
	IsLiked(ctx context.Context, blogID, userID uint64) (bool, error)
	AddLike(ctx context.Context, blogID, userID uint64) error
	RemoveLike(ctx context.Context, blogID, userID uint64) error

	// TopLikers returns the earliest likers of a blog, oldest first.
	TopLikers(ctx context.Context, blogID uint64, n int64) ([]uint64, error)
}
