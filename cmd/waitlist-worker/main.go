package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/therapease/scheduling/internal/config"
	"github.com/therapease/scheduling/internal/db"
	"github.com/therapease/scheduling/internal/logger"
	"github.com/therapease/scheduling/internal/notify"
	redisclient "github.com/therapease/scheduling/internal/redis"
	"github.com/therapease/scheduling/internal/scheduling"
)

// The worker sweeps recently cancelled appointments and re-notifies
// waiting-list candidates whose match may have been missed, for
// example when the API crashed between the cancel and the notify.
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config load error: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		os.Stderr.WriteString("logger init error: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("waitlist-worker starting up",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.WorkerInterval))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	log.Info("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn("error closing redis", zap.Error(err))
		}
	}()
	log.Info("connected to Redis")

	var notifier notify.Notifier
	switch cfg.Notifier {
	case "redis":
		notifier = notify.NewRedisNotifier(rdb)
	default:
		notifier = notify.NewLogNotifier(log)
	}

	store := scheduling.NewPgStore(pgPool)
	locker := redisclient.NewRedisScheduleLocker(rdb, cfg.LockTTL)
	svc := scheduling.NewService(store, locker, notifier, log, cfg.CancelNotice)

	// Each sweep covers cancellations since the previous run; the first
	// covers one full interval back so a restart does not drop events.
	lastRun := time.Now().Add(-cfg.WorkerInterval)

	runOnce(rootCtx, svc, log, &lastRun)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info("shutdown signal received, stopping waitlist worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, log, &lastRun)
		}
	}
}

func runOnce(ctx context.Context, svc *scheduling.Service, log *zap.Logger, lastRun *time.Time) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	if err := svc.NotifyMatchesSince(runCtx, *lastRun); err != nil {
		log.Error("waitlist sweep error", zap.Error(err))
		return
	}
	*lastRun = start
	log.Info("waitlist sweep complete", zap.Duration("took", time.Since(start)))
}
