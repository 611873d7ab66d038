package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rl1809/voucher-rush/internal/adapter/handler"
	"github.com/rl1809/voucher-rush/internal/adapter/storage"
	"github.com/rl1809/voucher-rush/internal/config"
	"github.com/rl1809/voucher-rush/internal/core/cache"
	"github.com/rl1809/voucher-rush/internal/core/idgen"
	"github.com/rl1809/voucher-rush/internal/core/service"
	"github.com/rl1809/voucher-rush/internal/port"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	cfg := config.FromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("open mysql")
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("ping mysql")
	}
	log.Info().Msg("connected to mysql")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("ping redis")
	}
	log.Info().Msg("connected to redis")

	newLock := port.LockFactory(func(name string) port.Lock {
		return storage.NewRedisLock(rdb, name)
	})

	redisAdapter := storage.NewRedisAdapter(rdb, cfg.QueueGroup, cfg.ConsumerName)
	mysqlAdapter := storage.NewMySQLAdapter(db)
	cacheClient := cache.NewClient(rdb, newLock, cfg.RebuildWorkers)
	ids := idgen.New(rdb)

	vouchers := service.NewCachedVouchers(cacheClient, mysqlAdapter)
	orderService := service.NewOrderService(redisAdapter, redisAdapter, mysqlAdapter, vouchers, ids, newLock)
	shopService := service.NewShopService(cacheClient, mysqlAdapter)
	userService := service.NewUserService(redisAdapter)
	blogService := service.NewBlogService(redisAdapter, mysqlAdapter)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		orderService.RunConsumer(ctx)
	}()
	log.Info().Str("group", cfg.QueueGroup).Str("consumer", cfg.ConsumerName).Msg("order consumer started")

	httpHandler := handler.NewHTTPHandler(orderService, shopService, userService, blogService)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpHandler.Router(),
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Info().Msg("http server stopped")

	cancel()
	wg.Wait()
	log.Info().Msg("order consumer stopped")

	cacheClient.Close()
	rdb.Close()
	db.Close()
	log.Info().Msg("connections closed")
}
