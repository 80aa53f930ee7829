package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GiorgiUbiria/textng_payments/configs"
	"github.com/GiorgiUbiria/textng_payments/internal/gateway"
	"github.com/GiorgiUbiria/textng_payments/internal/handlers"
	"github.com/GiorgiUbiria/textng_payments/internal/idempotency"
	"github.com/GiorgiUbiria/textng_payments/internal/logger"
	"github.com/GiorgiUbiria/textng_payments/internal/payment"
	"github.com/GiorgiUbiria/textng_payments/internal/routes"
	"github.com/GiorgiUbiria/textng_payments/internal/seed"
	"github.com/GiorgiUbiria/textng_payments/internal/store"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// @title                       TextNg Payments API
// @version                     1.0
// @description                 Theme and number purchases, connect accounts and wallet movements.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	logger.Init()
	defer logger.Log.Sync()

	configs.LoadConfig()
	cfg := configs.AppConfig

	store.NewDB()
	store.DBMigrate()

	gw := gateway.NewStripe(gateway.StripeConfig{
		SecretKey:  cfg.Stripe.SecretKey,
		Currency:   cfg.Stripe.Currency,
		RefreshURL: cfg.Stripe.Onboarding.RefreshURL,
		ReturnURL:  cfg.Stripe.Onboarding.ReturnURL,
	})

	if cfg.Seed.Enabled {
		if err := seed.Run(context.Background(), store.DB, gw); err != nil {
			logger.Log.Fatal("seed failed", zap.Error(err))
		}
	}

	var (
		rdb  *redis.Client
		idem *idempotency.Store
	)
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Log.Fatal("redis unreachable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		idem = idempotency.NewStore(rdb, cfg.Redis.IdempotencyTTL)
		logger.Log.Info("idempotency keys enabled", zap.Duration("ttl", cfg.Redis.IdempotencyTTL))
	} else {
		logger.Log.Warn("redis.addr not set, idempotency keys disabled")
	}

	st := store.New(store.DB)
	connect := payment.NewConnect(st, gw)
	h := handlers.New(st,
		payment.NewPurchases(st, gw),
		payment.NewWallet(st, gw, connect, cfg.Wallet.ServiceCharge),
		connect,
	)

	router := routes.NewRoutes(h, idem)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("graceful shutdown failed", zap.Error(err))
	}

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Log.Error("redis close failed", zap.Error(err))
		}
	}

	sqlDB, err := store.DB.DB()
	if err != nil {
		logger.Log.Error("db close skipped, reason:", zap.Error(err))
	} else {
		sqlDB.Close()
		logger.Log.Info("db closed")
	}

	logger.Log.Info("server stopped")
}
