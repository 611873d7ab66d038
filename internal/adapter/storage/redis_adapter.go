package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/voucher-rush/internal/core/domain"
)

const (
	stockKeyPrefix  = "seckill:stock:"
	orderSetPrefix  = "seckill:order:"
	signKeyPrefix   = "sign:"
	likedKeyPrefix  = "blog:liked:"
	orderStreamKey  = "stream.orders"
	signMonthLayout = "200601"
)

// admitOrderScript decides one admission without interleaving: stock check,
// dedup check, decrement, dedup-set insert and enqueue are a single unit.
// Returns 0 accepted, 1 out of stock, 2 duplicate order.
var admitOrderScript = redis.NewScript(`
local stockKey = KEYS[1]
local orderKey = KEYS[2]
local streamKey = KEYS[3]
local voucherId = ARGV[1]
local userId = ARGV[2]
local orderId = ARGV[3]

local stock = redis.call('GET', stockKey)
if not stock or tonumber(stock) <= 0 then
	return 1
end
if redis.call('SISMEMBER', orderKey, userId) == 1 then
	return 2
end
redis.call('INCRBY', stockKey, -1)
redis.call('SADD', orderKey, userId)
redis.call('XADD', streamKey, '*', 'userId', userId, 'voucherId', voucherId, 'id', orderId)
return 0
`)

type RedisAdapter struct {
	client   *redis.Client
	group    string
	consumer string
}

func NewRedisAdapter(client *redis.Client, group, consumer string) *RedisAdapter {
	return &RedisAdapter{client: client, group: group, consumer: consumer}
}

func (r *RedisAdapter) SeedStock(ctx context.Context, voucherID uint64, stock int) error {
	return r.client.Set(ctx, stockKey(voucherID), stock, 0).Err()
}

func (r *RedisAdapter) AdmitOrder(ctx context.Context, voucherID, userID, orderID uint64) (domain.AdmitResult, error) {
	keys := []string{stockKey(voucherID), orderSetKey(voucherID), orderStreamKey}
	result, err := admitOrderScript.Run(ctx, r.client, keys,
		strconv.FormatUint(voucherID, 10),
		strconv.FormatUint(userID, 10),
		strconv.FormatUint(orderID, 10),
	).Int()
	if err != nil {
		return 0, fmt.Errorf("run admission script: %w", err)
	}
	return domain.AdmitResult(result), nil
}

func (r *RedisAdapter) EnsureGroup(ctx context.Context) error {
	err := r.client.XGroupCreateMkStream(ctx, orderStreamKey, r.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group %s: %w", r.group, err)
	}
	return nil
}

func (r *RedisAdapter) ReadNew(ctx context.Context, block time.Duration) (*domain.PendingOrder, error) {
	return r.readGroup(ctx, ">", block)
}

func (r *RedisAdapter) ReadPending(ctx context.Context) (*domain.PendingOrder, error) {
	return r.readGroup(ctx, "0", -1)
}

func (r *RedisAdapter) readGroup(ctx context.Context, offset string, block time.Duration) (*domain.PendingOrder, error) {
	streams, err := r.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    r.group,
		Consumer: r.consumer,
		Streams:  []string{orderStreamKey, offset},
		Count:    1,
		Block:    block,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read order stream: %w", err)
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}
	return parsePendingOrder(streams[0].Messages[0])
}

func (r *RedisAdapter) Ack(ctx context.Context, entryID string) error {
	if err := r.client.XAck(ctx, orderStreamKey, r.group, entryID).Err(); err != nil {
		return fmt.Errorf("ack stream entry %s: %w", entryID, err)
	}
	return nil
}

func (r *RedisAdapter) SetSignBit(ctx context.Context, userID uint64, day time.Time) error {
	return r.client.SetBit(ctx, signKey(userID, day), int64(day.Day()-1), 1).Err()
}

func (r *RedisAdapter) MonthSignBits(ctx context.Context, userID uint64, day time.Time) (int64, error) {
	field := fmt.Sprintf("u%d", day.Day())
	bits, err := r.client.BitField(ctx, signKey(userID, day), "GET", field, 0).Result()
	if err != nil {
		return 0, fmt.Errorf("read sign bitmap: %w", err)
	}
	if len(bits) == 0 {
		return 0, nil
	}
	return bits[0], nil
}

func (r *RedisAdapter) IsLiked(ctx context.Context, blogID, userID uint64) (bool, error) {
	err := r.client.ZScore(ctx, likedKey(blogID), strconv.FormatUint(userID, 10)).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read like score: %w", err)
	}
	return true, nil
}

func (r *RedisAdapter) AddLike(ctx context.Context, blogID, userID uint64) error {
	member := redis.Z{
		Score:  float64(time.Now().UnixMilli()),
		Member: strconv.FormatUint(userID, 10),
	}
	return r.client.ZAdd(ctx, likedKey(blogID), member).Err()
}

func (r *RedisAdapter) RemoveLike(ctx context.Context, blogID, userID uint64) error {
	return r.client.ZRem(ctx, likedKey(blogID), strconv.FormatUint(userID, 10)).Err()
}

func (r *RedisAdapter) TopLikers(ctx context.Context, blogID uint64, n int64) ([]uint64, error) {
	members, err := r.client.ZRange(ctx, likedKey(blogID), 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("range likers: %w", err)
	}
	ids := make([]uint64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse liker id %q: %w", m, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parsePendingOrder(msg redis.XMessage) (*domain.PendingOrder, error) {
	po := &domain.PendingOrder{EntryID: msg.ID}
	var err error
	if po.UserID, err = fieldUint(msg, "userId"); err != nil {
		return nil, err
	}
	if po.VoucherID, err = fieldUint(msg, "voucherId"); err != nil {
		return nil, err
	}
	if po.OrderID, err = fieldUint(msg, "id"); err != nil {
		return nil, err
	}
	return po, nil
}

func fieldUint(msg redis.XMessage, field string) (uint64, error) {
	raw, ok := msg.Values[field].(string)
	if !ok {
		return 0, fmt.Errorf("stream entry %s: missing field %s", msg.ID, field)
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("stream entry %s: field %s: %w", msg.ID, field, err)
	}
	return v, nil
}

func stockKey(voucherID uint64) string {
	return stockKeyPrefix + strconv.FormatUint(voucherID, 10)
}

func orderSetKey(voucherID uint64) string {
	return orderSetPrefix + strconv.FormatUint(voucherID, 10)
}

func signKey(userID uint64, day time.Time) string {
	return signKeyPrefix + strconv.FormatUint(userID, 10) + ":" + day.Format(signMonthLayout)
}

func likedKey(blogID uint64) string {
	return likedKeyPrefix + strconv.FormatUint(blogID, 10)
}
