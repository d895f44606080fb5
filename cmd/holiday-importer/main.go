package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/glowdesk/salon-scheduling/internal/config"
	"github.com/glowdesk/salon-scheduling/internal/db"
	redisclient "github.com/glowdesk/salon-scheduling/internal/redis"
	"github.com/glowdesk/salon-scheduling/internal/scheduling"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("holiday-importer starting up",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.ImportInterval))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Fatal("redis connection error", zap.Error(err))
	}
	defer func() { _ = rdb.Close() }()

	repo := scheduling.NewPgRepository(pgPool)
	locker := redisclient.NewEmployeeLocker(rdb, cfg.LockTTL)
	svc := scheduling.NewService(repo, locker, scheduling.Options{Logger: logger})

	// Run once at startup, then on the interval.
	runOnce(rootCtx, svc, logger)

	ticker := time.NewTicker(cfg.ImportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info("shutdown signal received, stopping holiday importer")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, logger)
		}
	}
}

// runOnce imports the current and the next year, so closures are in place
// before clients start booking across the year boundary.
func runOnce(ctx context.Context, svc *scheduling.Service, logger *zap.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	start := time.Now()
	year := time.Now().Year()
	for _, y := range []int{year, year + 1} {
		if err := svc.ImportNationalHolidays(runCtx, y); err != nil {
			logger.Error("holiday import run failed", zap.Int("year", y), zap.Error(err))
			return
		}
	}
	logger.Info("holiday import run complete", zap.Duration("took", time.Since(start)))
}
