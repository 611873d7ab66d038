package storage

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/voucher-rush/internal/core/domain"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func resetSeckillKeys(ctx context.Context, client *redis.Client, voucherID uint64) {
	client.Del(ctx, stockKey(voucherID))
	client.Del(ctx, orderSetKey(voucherID))
	client.Del(ctx, orderStreamKey)
}

func TestAdmitOrder_Accepted(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, "g-test", "c-test")

	resetSeckillKeys(ctx, client, 100)
	adapter.SeedStock(ctx, 100, 10)

	result, err := adapter.AdmitOrder(ctx, 100, 7, 111)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != domain.AdmitAccepted {
		t.Fatalf("expected accepted, got %s", result)
	}

	stock, _ := client.Get(ctx, stockKey(100)).Int()
	if stock != 9 {
		t.Errorf("expected stock 9, got %d", stock)
	}
	member, _ := client.SIsMember(ctx, orderSetKey(100), "7").Result()
	if !member {
		t.Error("expected user in dedup set")
	}
	length, _ := client.XLen(ctx, orderStreamKey).Result()
	if length != 1 {
		t.Errorf("expected 1 stream entry, got %d", length)
	}
}

func TestAdmitOrder_OutOfStock(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, "g-test", "c-test")

	resetSeckillKeys(ctx, client, 101)
	adapter.SeedStock(ctx, 101, 0)

	result, err := adapter.AdmitOrder(ctx, 101, 7, 111)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != domain.AdmitOutOfStock {
		t.Errorf("expected out of stock, got %s", result)
	}
}

func TestAdmitOrder_MissingStockKey(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, "g-test", "c-test")

	resetSeckillKeys(ctx, client, 102)

	result, err := adapter.AdmitOrder(ctx, 102, 7, 111)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != domain.AdmitOutOfStock {
		t.Errorf("expected out of stock for unseeded voucher, got %s", result)
	}
}

func TestAdmitOrder_DuplicateUser(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, "g-test", "c-test")

	resetSeckillKeys(ctx, client, 103)
	adapter.SeedStock(ctx, 103, 5)

	first, err := adapter.AdmitOrder(ctx, 103, 7, 111)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != domain.AdmitAccepted {
		t.Fatalf("expected first call accepted, got %s", first)
	}

	second, err := adapter.AdmitOrder(ctx, 103, 7, 112)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second != domain.AdmitDuplicate {
		t.Errorf("expected duplicate, got %s", second)
	}

	stock, _ := client.Get(ctx, stockKey(103)).Int()
	if stock != 4 {
		t.Errorf("expected stock decremented once to 4, got %d", stock)
	}
}

func TestAdmitOrder_Concurrent(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, "g-test", "c-test")

	initialStock := 20
	totalRequests := 50

	resetSeckillKeys(ctx, client, 104)
	adapter.SeedStock(ctx, 104, initialStock)

	var accepted atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(userID uint64) {
			defer wg.Done()
			result, err := adapter.AdmitOrder(ctx, 104, userID, userID+1000)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if result == domain.AdmitAccepted {
				accepted.Add(1)
			}
		}(uint64(i + 1))
	}
	wg.Wait()

	if accepted.Load() != int32(initialStock) {
		t.Errorf("expected %d accepted, got %d", initialStock, accepted.Load())
	}
	stock, _ := client.Get(ctx, stockKey(104)).Int()
	if stock != 0 {
		t.Errorf("expected stock 0, got %d", stock)
	}
	length, _ := client.XLen(ctx, orderStreamKey).Result()
	if length != int64(initialStock) {
		t.Errorf("expected %d stream entries, got %d", initialStock, length)
	}
}

func TestQueue_ReadAckRoundtrip(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, "g-roundtrip", "c-1")

	resetSeckillKeys(ctx, client, 105)
	adapter.SeedStock(ctx, 105, 5)
	if err := adapter.EnsureGroup(ctx); err != nil {
		t.Fatalf("ensure group: %v", err)
	}

	if _, err := adapter.AdmitOrder(ctx, 105, 7, 111); err != nil {
		t.Fatalf("admit: %v", err)
	}

	po, err := adapter.ReadNew(ctx, 500*time.Millisecond)
	if err != nil {
		t.Fatalf("read new: %v", err)
	}
	if po == nil {
		t.Fatal("expected a delivered entry")
	}
	if po.UserID != 7 || po.VoucherID != 105 || po.OrderID != 111 {
		t.Errorf("unexpected entry: %+v", po)
	}

	if err := adapter.Ack(ctx, po.EntryID); err != nil {
		t.Fatalf("ack: %v", err)
	}

	pending, err := adapter.ReadPending(ctx)
	if err != nil {
		t.Fatalf("read pending: %v", err)
	}
	if pending != nil {
		t.Errorf("expected empty pending list, got %+v", pending)
	}
}

func TestQueue_UnackedEntryStaysPending(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, "g-pending", "c-1")

	resetSeckillKeys(ctx, client, 106)
	adapter.SeedStock(ctx, 106, 5)
	if err := adapter.EnsureGroup(ctx); err != nil {
		t.Fatalf("ensure group: %v", err)
	}

	if _, err := adapter.AdmitOrder(ctx, 106, 8, 222); err != nil {
		t.Fatalf("admit: %v", err)
	}

	// Deliver but never acknowledge, as if the consumer crashed here.
	po, err := adapter.ReadNew(ctx, 500*time.Millisecond)
	if err != nil || po == nil {
		t.Fatalf("read new: %v %+v", err, po)
	}

	// A restarted consumer with the same name sees the entry again.
	restarted := NewRedisAdapter(client, "g-pending", "c-1")
	redelivered, err := restarted.ReadPending(ctx)
	if err != nil {
		t.Fatalf("read pending: %v", err)
	}
	if redelivered == nil {
		t.Fatal("expected redelivery of unacked entry")
	}
	if redelivered.EntryID != po.EntryID || redelivered.OrderID != 222 {
		t.Errorf("unexpected redelivered entry: %+v", redelivered)
	}

	if err := restarted.Ack(ctx, redelivered.EntryID); err != nil {
		t.Fatalf("ack: %v", err)
	}
	gone, err := restarted.ReadPending(ctx)
	if err != nil {
		t.Fatalf("read pending after ack: %v", err)
	}
	if gone != nil {
		t.Errorf("expected pending list drained, got %+v", gone)
	}
}

func TestSignBits(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, "g-test", "c-test")

	now := time.Date(2026, 8, 14, 12, 0, 0, 0, time.UTC)
	client.Del(ctx, signKey(9, now))

	for _, day := range []int{12, 13, 14} {
		d := time.Date(2026, 8, day, 12, 0, 0, 0, time.UTC)
		if err := adapter.SetSignBit(ctx, 9, d); err != nil {
			t.Fatalf("set sign bit: %v", err)
		}
	}

	bits, err := adapter.MonthSignBits(ctx, 9, now)
	if err != nil {
		t.Fatalf("month sign bits: %v", err)
	}
	// Days 12..14 of a 14-day window: lowest three bits set.
	if bits != 0b111 {
		t.Errorf("expected 0b111, got %b", bits)
	}
}

func TestLikes(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, "g-test", "c-test")

	client.Del(ctx, likedKey(55))

	liked, err := adapter.IsLiked(ctx, 55, 1)
	if err != nil {
		t.Fatalf("is liked: %v", err)
	}
	if liked {
		t.Error("expected not liked initially")
	}

	for _, userID := range []uint64{1, 2, 3} {
		if err := adapter.AddLike(ctx, 55, userID); err != nil {
			t.Fatalf("add like: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	liked, err = adapter.IsLiked(ctx, 55, 1)
	if err != nil {
		t.Fatalf("is liked: %v", err)
	}
	if !liked {
		t.Error("expected liked after AddLike")
	}

	top, err := adapter.TopLikers(ctx, 55, 5)
	if err != nil {
		t.Fatalf("top likers: %v", err)
	}
	if len(top) != 3 || top[0] != 1 || top[1] != 2 || top[2] != 3 {
		t.Errorf("expected earliest-first [1 2 3], got %v", top)
	}

	if err := adapter.RemoveLike(ctx, 55, 1); err != nil {
		t.Fatalf("remove like: %v", err)
	}
	liked, _ = adapter.IsLiked(ctx, 55, 1)
	if liked {
		t.Error("expected unliked after RemoveLike")
	}
}
