package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"

	"league-system/config"
	"league-system/handlers"
	"league-system/internal/bus"
	"league-system/internal/notify"
	"league-system/internal/providers"
	"league-system/internal/providers/easypaisa"
	"league-system/internal/providers/jazzcash"
	"league-system/internal/providers/stripe"
	"league-system/internal/store"
	"league-system/security"
	"league-system/services"
	"league-system/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg)

	redisClient, err := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		slog.Error("connect redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eventBus := bus.NewRedisBus(redisClient, bus.RedisBusOptions{
		Consumer:        hostnameConsumer(),
		PublishTimeout:  cfg.PublishTimeout,
		ConsumerBlock:   cfg.ConsumerBlock,
		ReclaimMinIdle:  cfg.ReclaimMinIdle,
		ReclaimInterval: cfg.ReclaimInterval,
	})

	registry := providers.NewRegistry()
	registry.Register(jazzcash.New(jazzcash.Config{
		BaseURL:    cfg.JazzCashBaseURL,
		MerchantID: cfg.JazzCashMerchantID,
		HMACKey:    cfg.JazzCashHMACKey,
		ReturnURL:  cfg.JazzCashReturnURL,
		Timeout:    cfg.ProviderTimeout,
	}))
	registry.Register(easypaisa.New(easypaisa.Config{
		BaseURL: cfg.EasypaisaBaseURL,
		StoreID: cfg.EasypaisaStoreID,
		HMACKey: cfg.EasypaisaHMACKey,
		Timeout: cfg.ProviderTimeout,
	}))
	registry.Register(stripe.New(stripe.Config{
		BaseURL:   cfg.StripeBaseURL,
		SecretKey: cfg.StripeSecretKey,
		Timeout:   cfg.ProviderTimeout,
	}))

	paymentService := services.NewPaymentService(store.NewRedisPaymentStore(redisClient), registry, eventBus, cfg.ProviderTimeout)
	matchService := services.NewMatchService(store.NewRedisMatchStore(redisClient), eventBus)
	tournamentService := services.NewTournamentService(store.NewRedisTournamentStore(redisClient), eventBus)

	notificationService := services.NewNotificationService(
		notify.NewPubNubSender(newPubNub(cfg)),
		notify.NewSMTPSender(cfg.SMTPAddr, cfg.SMTPFrom, cfg.SMTPUser, cfg.SMTPPassword),
		notify.NewHTTPSmsSender(cfg.SMSGatewayURL, cfg.SMSGatewayToken, cfg.SMSSenderID),
		notify.NewRedisContactResolver(redisClient),
	)
	notificationService.Start(ctx, eventBus)

	e := echo.New()

	limiter := security.NewRateLimiter(redisClient)
	api := e.Group("/api/v1", limiter.CommandRateLimit(120))
	handlers.NewPaymentHandler(paymentService).Register(api)
	handlers.NewMatchHandler(matchService).Register(api)
	handlers.NewTournamentHandler(tournamentService).Register(api)

	e.GET("/health", func(c echo.Context) error {
		if err := utils.RedisHealthCheck(redisClient); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded", "redis": err.Error()})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.EnableMetrics {
		go serveMetrics(cfg.MetricsPort)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server", "error", err)
			cancel()
		}
	}()

	handleShutdown(ctx, cancel, srv)
}

func setupLogger(cfg *config.Config) {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Environment == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

func newPubNub(cfg *config.Config) *pubnub.PubNub {
	pnConfig := pubnub.NewConfig()
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey
	pnConfig.UUID = "league-system"
	return pubnub.NewPubNub(pnConfig)
}

func hostnameConsumer() string {
	host, err := os.Hostname()
	if err != nil {
		return ""
	}
	return host
}

func serveMetrics(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	slog.Info("metrics listening", "port", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		slog.Error("metrics server", "error", err)
	}
}

// handleShutdown drains in-flight requests, then cancels the root context
// so consumer loops exit before the process does.
func handleShutdown(ctx context.Context, cancel context.CancelFunc, srv *http.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown", "error", err)
	}
	cancel()
}
