package domain

import "time"

type OrderStatus int

const (
	OrderStatusUnpaid OrderStatus = iota + 1
	OrderStatusPaid
	OrderStatusCancelled
)

type VoucherOrder struct {
	ID        uint64
	UserID    uint64
	VoucherID uint64
	Status    OrderStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PendingOrder is an admitted request sitting in the order stream. The
// consumer group owns it until the entry is acknowledged; on a consumer
// crash it is redelivered through the pending-entries list.
type PendingOrder struct {
	EntryID   string
	OrderID   uint64
	UserID    uint64
	VoucherID uint64
}
