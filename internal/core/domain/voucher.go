package domain

import "time"

// SeckillVoucher holds the relational view of a flash-sale voucher. The
// Stock column is a mirror kept in sync by the order consumer; admission
// decisions are made against the Redis counter, not this value.
type SeckillVoucher struct {
	VoucherID uint64
	Stock     int
	BeginTime time.Time
	EndTime   time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
