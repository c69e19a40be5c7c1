// cmd/entitlement-service/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Jperi24/nsfw-platform/internal/billing"
	commonaws "github.com/Jperi24/nsfw-platform/internal/common/aws"
	"github.com/Jperi24/nsfw-platform/internal/common/config"
	"github.com/Jperi24/nsfw-platform/internal/common/database"
	"github.com/Jperi24/nsfw-platform/internal/common/errors"
	"github.com/Jperi24/nsfw-platform/internal/common/logger"
	"github.com/Jperi24/nsfw-platform/internal/common/observability"
	"github.com/Jperi24/nsfw-platform/internal/content"
	"github.com/Jperi24/nsfw-platform/internal/entitlement"
	"github.com/Jperi24/nsfw-platform/internal/server"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting entitlement service...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Membership store, optionally fronted by Redis ---
	var store entitlement.Store = entitlement.NewPostgresStore(pg.DB)

	if !cfg.Database.Redis.CacheDisabled {
		var rdb *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		zapLog.Info("Redis connected successfully")

		store = entitlement.NewCachedStore(
			store,
			rdb.Client,
			config.GetDuration(cfg.Database.Redis.MembershipTTL),
			log,
		)
	}

	// --- Notification sink for membership tier changes ---
	var notifier billing.Notifier = billing.NopNotifier{}
	if cfg.Notifications.SES.Enabled {
		sesClient, err := commonaws.NewSESClient(ctx, cfg.Notifications.SES.Region)
		if err != nil {
			zapLog.Fatal("ses client init failed", zap.Error(err))
		}
		notifier = billing.NewSESNotifier(sesClient, cfg.Notifications.SES.FromEmail)
		zapLog.Info("SES notifier initialized", zap.String("region", cfg.Notifications.SES.Region))
	}

	// --- Billing event pipeline ---
	policy := billing.NewStatusPolicy(cfg.Billing.PremiumStatuses)
	applier := billing.NewApplier(store, policy, notifier, log, cfg.Billing.MaxUpdateRetries)
	dispatcher := billing.NewDispatcher(
		applier,
		billing.NewDedupWindow(cfg.Billing.DedupWindowSize),
		config.GetDuration(cfg.Billing.SerializeWait),
		log,
		obs,
	)
	verifier := billing.NewVerifier(
		cfg.Billing.WebhookSecret,
		config.GetDuration(cfg.Billing.SignatureTolerance),
	)

	// --- Content service ---
	gate := entitlement.NewGate()
	contentRepo := content.NewPostgresRepository(pg.DB)
	contentSvc := content.NewService(contentRepo, gate, log)

	// --- HTTP surface ---
	errHandler := errors.NewHandler(log)
	limiter := server.NewRateLimiter(cfg.Server.WebhookRPS, cfg.Server.WebhookBurst)
	srv := server.New(cfg.Server, server.Deps{
		Webhook: server.NewWebhookHandler(verifier, dispatcher, errHandler, log),
		Content: server.NewContentHandler(contentSvc, store, errHandler, log),
		Limiter: limiter,
	}, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	case sig := <-sigCh:
		zapLog.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
	}
	zapLog.Info("entitlement service stopped")
}
