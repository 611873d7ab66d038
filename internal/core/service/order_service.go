package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rl1809/voucher-rush/internal/core/domain"
	"github.com/rl1809/voucher-rush/internal/obs"
	"github.com/rl1809/voucher-rush/internal/port"
)

var (
	ErrOutOfStock      = errors.New("out of stock")
	ErrDuplicateOrder  = errors.New("duplicate order")
	ErrVoucherNotFound = errors.New("voucher not found")
	ErrSaleNotStarted  = errors.New("sale not started")
	ErrSaleEnded       = errors.New("sale ended")
)

// errLockBusy leaves the stream entry unacknowledged so the pending list
// retries it once the competing holder is gone.
var errLockBusy = errors.New("order lock held elsewhere")

const (
	orderIDPrefix = "order"
	orderLockTTL  = 10 * time.Second
	readBlock     = 2 * time.Second
)

type IDGenerator interface {
	NextID(ctx context.Context, prefix string) (uint64, error)
}

type OrderService struct {
	cache    port.CacheRepository
	queue    port.OrderQueue
	db       port.DatabaseRepository
	vouchers VoucherSource
	ids      IDGenerator
	newLock  port.LockFactory
}

func NewOrderService(
	cache port.CacheRepository,
	queue port.OrderQueue,
	db port.DatabaseRepository,
	vouchers VoucherSource,
	ids IDGenerator,
	newLock port.LockFactory,
) *OrderService {
	return &OrderService{
		cache:    cache,
		queue:    queue,
		db:       db,
		vouchers: vouchers,
		ids:      ids,
		newLock:  newLock,
	}
}

// Seckill admits one flash-sale request. The sale window is checked against
// the voucher row first; the id is then minted before the script runs so the
// admission can enqueue the complete order in the same atomic step.
func (s *OrderService) Seckill(ctx context.Context, userID, voucherID uint64) (uint64, error) {
	voucher, err := s.vouchers.GetVoucher(ctx, voucherID)
	if err != nil {
		return 0, fmt.Errorf("load voucher: %w", err)
	}
	if voucher == nil {
		return 0, ErrVoucherNotFound
	}
	now := time.Now()
	if now.Before(voucher.BeginTime) {
		return 0, ErrSaleNotStarted
	}
	if now.After(voucher.EndTime) {
		return 0, ErrSaleEnded
	}

	orderID, err := s.ids.NextID(ctx, orderIDPrefix)
	if err != nil {
		return 0, fmt.Errorf("mint order id: %w", err)
	}

	result, err := s.cache.AdmitOrder(ctx, voucherID, userID, orderID)
	if err != nil {
		return 0, fmt.Errorf("admit order: %w", err)
	}
	obs.AdmissionTotal.WithLabelValues(result.String()).Inc()

	switch result {
	case domain.AdmitOutOfStock:
		return 0, ErrOutOfStock
	case domain.AdmitDuplicate:
		return 0, ErrDuplicateOrder
	}
	return orderID, nil
}

// RunConsumer drains this consumer's pending-entries list, then tails the
// order stream until ctx is cancelled. Entries are acknowledged only after
// the order row is durably committed; a crash in between redelivers the
// entry to the next drain, where the existence re-check makes the replay a
// no-op.
func (s *OrderService) RunConsumer(ctx context.Context) {
	if err := s.queue.EnsureGroup(ctx); err != nil {
		log.Error().Err(err).Msg("ensure consumer group")
		return
	}

	s.drainPending(ctx)

	for {
		if ctx.Err() != nil {
			return
		}
		po, err := s.queue.ReadNew(ctx, readBlock)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Msg("read order stream")
			time.Sleep(time.Second)
			continue
		}
		if po == nil {
			continue
		}
		if err := s.process(ctx, po); err != nil {
			log.Error().Err(err).Uint64("order_id", po.OrderID).Msg("process order")
			s.drainPending(ctx)
		}
	}
}

func (s *OrderService) drainPending(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		po, err := s.queue.ReadPending(ctx)
		if err != nil {
			log.Error().Err(err).Msg("read pending list")
			return
		}
		if po == nil {
			return
		}
		obs.OrderRedeliveries.Inc()
		if err := s.process(ctx, po); err != nil {
			// Entry stays pending; the next drain picks it up again.
			log.Error().Err(err).Uint64("order_id", po.OrderID).Msg("reprocess pending order")
			return
		}
	}
}

func (s *OrderService) process(ctx context.Context, po *domain.PendingOrder) error {
	// Second line of defense behind the admission dedup set: one writer per
	// (user, voucher) while the row is created.
	lock := s.newLock(fmt.Sprintf("order:%d:%d", po.UserID, po.VoucherID))
	ok, err := lock.TryLock(ctx, orderLockTTL)
	if err != nil {
		return fmt.Errorf("acquire order lock: %w", err)
	}
	if !ok {
		return errLockBusy
	}
	defer func() {
		if err := lock.Unlock(ctx); err != nil {
			log.Warn().Err(err).Uint64("order_id", po.OrderID).Msg("release order lock")
		}
	}()

	count, err := s.db.CountOrders(ctx, po.UserID, po.VoucherID)
	if err != nil {
		return fmt.Errorf("check existing order: %w", err)
	}
	if count == 0 {
		now := time.Now()
		order := domain.VoucherOrder{
			ID:        po.OrderID,
			UserID:    po.UserID,
			VoucherID: po.VoucherID,
			Status:    domain.OrderStatusUnpaid,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.db.CreateVoucherOrder(ctx, order); err != nil {
			return fmt.Errorf("persist order: %w", err)
		}
		obs.OrdersPersisted.Inc()
	}

	if err := s.queue.Ack(ctx, po.EntryID); err != nil {
		return fmt.Errorf("ack entry %s: %w", po.EntryID, err)
	}
	return nil
}
