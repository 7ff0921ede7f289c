package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ALI7-sys/CopIt/internal/application/services"
	"github.com/ALI7-sys/CopIt/internal/config"
	"github.com/ALI7-sys/CopIt/internal/infrastructure/cache"
	"github.com/ALI7-sys/CopIt/internal/infrastructure/email"
	"github.com/ALI7-sys/CopIt/internal/infrastructure/payoneer"
	"github.com/ALI7-sys/CopIt/internal/infrastructure/persistence/postgres"
	"github.com/ALI7-sys/CopIt/internal/infrastructure/revolut"
	"github.com/ALI7-sys/CopIt/internal/infrastructure/stores"
	"github.com/ALI7-sys/CopIt/internal/interfaces/rest/handlers"
	"github.com/ALI7-sys/CopIt/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting copit backend",
		"port", cfg.Server.Port,
		"log_level", cfg.Logger.Level,
	)

	if err := postgres.Migrate(cfg.Database); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.Connect(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	orderRepo := postgres.NewOrderRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	cardRepo := postgres.NewCardRepository(db)
	fxRepo := postgres.NewFXRepository(db)

	fxClient := payoneer.NewRetryClient(payoneer.NewClient(cfg.Payoneer), cfg.Retry)
	cardClient := revolut.NewRetryClient(revolut.NewClient(cfg.Revolut), cfg.Retry)

	rateCache := cache.NewRateCache(redisClient, cache.DefaultRateTTL)
	counter := cache.NewCounter(redisClient)

	fxService := services.NewFXService(fxClient, rateCache, fxRepo, logger)
	cardService := services.NewCardService(cardClient, fxService, cardRepo, logger)
	checkoutService := services.NewCheckoutService(cardClient, db, orderRepo, paymentRepo, logger)
	webhookService := services.NewWebhookService(cfg.Webhook.Secret, db, orderRepo, paymentRepo, logger)

	h := handlers.NewHandlers(checkoutService, cardService, fxService, webhookService, logger)
	router := handlers.NewRouter(h, counter, cfg, logger)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	storeRegistry := stores.NewRegistry(
		stores.NewNewegg(cfg.Stores),
		stores.NewBackMarket(cfg.Stores),
	)
	emailSender := email.NewClient(cfg.Email)

	fulfillmentWorker := worker.NewFulfillmentWorker(
		orderRepo,
		cardService,
		storeRegistry,
		emailSender,
		cfg.Worker,
		logger,
	)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	go fulfillmentWorker.Start(workerCtx)

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
