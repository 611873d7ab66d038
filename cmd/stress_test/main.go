// Stress driver: fires concurrent seckill admissions at a live Redis and
// reports accepted / rejected counts against the seeded stock.
package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/voucher-rush/internal/adapter/storage"
	"github.com/rl1809/voucher-rush/internal/core/domain"
	"github.com/rl1809/voucher-rush/internal/core/idgen"
)

const (
	redisAddr     = "localhost:6379"
	voucherID     = 42
	initialStock  = 20
	totalRequests = 50
)

func main() {
	ctx := context.Background()

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	// Clear previous run state.
	rdb.Del(ctx, fmt.Sprintf("seckill:stock:%d", voucherID))
	rdb.Del(ctx, fmt.Sprintf("seckill:order:%d", voucherID))
	rdb.Del(ctx, "stream.orders")

	adapter := storage.NewRedisAdapter(rdb, "g1", "stress")
	ids := idgen.New(rdb)
	if err := adapter.SeedStock(ctx, voucherID, initialStock); err != nil {
		log.Fatalf("failed to seed stock: %v", err)
	}

	var accepted, rejected atomic.Int32
	var wg sync.WaitGroup

	start := time.Now()
	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(userID uint64) {
			defer wg.Done()
			orderID, err := ids.NextID(ctx, "order")
			if err != nil {
				log.Printf("mint id: %v", err)
				return
			}
			result, err := adapter.AdmitOrder(ctx, voucherID, userID, orderID)
			if err != nil {
				log.Printf("admit: %v", err)
				return
			}
			if result == domain.AdmitAccepted {
				accepted.Add(1)
			} else {
				rejected.Add(1)
			}
		}(uint64(i + 1))
	}
	wg.Wait()

	fmt.Printf("requests:  %d\n", totalRequests)
	fmt.Printf("accepted:  %d (stock was %d)\n", accepted.Load(), initialStock)
	fmt.Printf("rejected:  %d\n", rejected.Load())
	fmt.Printf("elapsed:   %s\n", time.Since(start))

	queued, err := rdb.XLen(ctx, "stream.orders").Result()
	if err != nil {
		log.Fatalf("stream length: %v", err)
	}
	fmt.Printf("queued:    %d\n", queued)
}
