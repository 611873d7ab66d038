package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/rl1809/voucher-rush/internal/core/domain"
)

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) GetVoucher(ctx context.Context, voucherID uint64) (*domain.SeckillVoucher, error) {
	var v domain.SeckillVoucher
	err := m.db.QueryRowContext(ctx, `
		SELECT voucher_id, stock, begin_time, end_time, created_at, updated_at
		FROM seckill_vouchers WHERE voucher_id = ?`, voucherID,
	).Scan(&v.VoucherID, &v.Stock, &v.BeginTime, &v.EndTime, &v.CreatedAt, &v.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query voucher: %w", err)
	}
	return &v, nil
}

func (m *MySQLAdapter) CountOrders(ctx context.Context, userID, voucherID uint64) (int, error) {
	var count int
	err := m.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM voucher_orders WHERE user_id = ? AND voucher_id = ?`,
		userID, voucherID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return count, nil
}

func (m *MySQLAdapter) CreateVoucherOrder(ctx context.Context, order domain.VoucherOrder) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE seckill_vouchers
		SET stock = stock - 1, updated_at = NOW()
		WHERE voucher_id = ? AND stock > 0`,
		order.VoucherID,
	)
	if err != nil {
		return fmt.Errorf("update voucher stock: %w", err)
	}

	// Redis already reserved the unit; the mirror lagging behind is logged
	// but does not void the order.
	rows, _ := result.RowsAffected()
	if rows == 0 {
		log.Warn().Uint64("voucher_id", order.VoucherID).Msg("stock mirror already at zero")
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO voucher_orders (id, user_id, voucher_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		order.ID, order.UserID, order.VoucherID, order.Status,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	return tx.Commit()
}

func (m *MySQLAdapter) GetShop(ctx context.Context, shopID uint64) (*domain.Shop, error) {
	var s domain.Shop
	err := m.db.QueryRowContext(ctx, `
		SELECT id, name, type_id, address, comments, score, created_at, updated_at
		FROM shops WHERE id = ?`, shopID,
	).Scan(&s.ID, &s.Name, &s.TypeID, &s.Address, &s.Comments, &s.Score, &s.CreatedAt, &s.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query shop: %w", err)
	}
	return &s, nil
}

func (m *MySQLAdapter) UpdateShop(ctx context.Context, shop domain.Shop) error {
	_, err := m.db.ExecContext(ctx, `
		UPDATE shops
		SET name = ?, type_id = ?, address = ?, comments = ?, score = ?, updated_at = NOW()
		WHERE id = ?`,
		shop.Name, shop.TypeID, shop.Address, shop.Comments, shop.Score, shop.ID,
	)
	if err != nil {
		return fmt.Errorf("update shop: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetBlog(ctx context.Context, blogID uint64) (*domain.Blog, error) {
	var b domain.Blog
	err := m.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, liked, created_at, updated_at
		FROM blogs WHERE id = ?`, blogID,
	).Scan(&b.ID, &b.UserID, &b.Title, &b.Liked, &b.CreatedAt, &b.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query blog: %w", err)
	}
	return &b, nil
}

func (m *MySQLAdapter) IncrBlogLiked(ctx context.Context, blogID uint64, delta int) error {
	_, err := m.db.ExecContext(ctx, `
		UPDATE blogs SET liked = liked + ?, updated_at = NOW() WHERE id = ?`,
		delta, blogID,
	)
	if err != nil {
		return fmt.Errorf("update blog liked: %w", err)
	}
	return nil
}
