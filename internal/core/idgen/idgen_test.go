package idgen

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
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

func TestNextID_StrictlyIncreasing(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	gen := New(client)
	prefix := fmt.Sprintf("test-%d", time.Now().UnixNano())

	var prev uint64
	for i := 0; i < 100; i++ {
		id, err := gen.NextID(ctx, prefix)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id <= prev {
			t.Fatalf("id %d not greater than previous %d", id, prev)
		}
		prev = id
	}
}

func TestNextID_UniqueAcrossGenerators(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	prefix := fmt.Sprintf("test-%d", time.Now().UnixNano())

	// Separate generator instances share nothing but the Redis counter.
	generators := []*Generator{New(client), New(client), New(client)}
	perGenerator := 200

	var mu sync.Mutex
	seen := make(map[uint64]bool)
	var wg sync.WaitGroup

	for _, gen := range generators {
		wg.Add(1)
		go func(g *Generator) {
			defer wg.Done()
			for i := 0; i < perGenerator; i++ {
				id, err := g.NextID(ctx, prefix)
				if err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
				mu.Lock()
				if seen[id] {
					t.Errorf("duplicate id %d", id)
				}
				seen[id] = true
				mu.Unlock()
			}
		}(gen)
	}
	wg.Wait()

	if len(seen) != len(generators)*perGenerator {
		t.Errorf("expected %d distinct ids, got %d", len(generators)*perGenerator, len(seen))
	}
}

func TestNextID_TimeInHighBits(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	gen := New(client)
	prefix := fmt.Sprintf("test-%d", time.Now().UnixNano())

	before := uint64(time.Now().Unix() - epochSeconds)
	id, err := gen.NextID(ctx, prefix)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after := uint64(time.Now().Unix() - epochSeconds)

	seconds := id >> sequenceBits
	if seconds < before || seconds > after {
		t.Errorf("timestamp bits %d outside [%d, %d]", seconds, before, after)
	}
	if id&(1<<sequenceBits-1) == 0 {
		t.Error("expected non-zero sequence bits")
	}
}
