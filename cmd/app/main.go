// File: cmd/app/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MALONZAFX/LUMENDEO-TV/internal/config"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/domain/ports/adapter"
	pg "github.com/MALONZAFX/LUMENDEO-TV/internal/infra/db/postgres"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/infra/gateway"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/infra/logging"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/infra/metrics"
	red "github.com/MALONZAFX/LUMENDEO-TV/internal/infra/redis"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/infra/sched"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/infra/web"
	"github.com/MALONZAFX/LUMENDEO-TV/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- Config ----
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	payRepo := pg.NewPaymentRepo(pool)
	videoRepo := pg.NewVideoRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Payment gateway ----
	var pgw adapter.PaymentGateway
	if cfg.Paystack.SecretKey == "" {
		// validate() only lets this through in dev mode
		logger.Warn().Msg("no paystack secret key; using the simulated gateway")
		pgw = gateway.NewNoopGateway(*logger)
	} else {
		pgw = gateway.NewPaystackGateway(gateway.Config{
			BaseURL:       cfg.Paystack.BaseURL,
			SecretKey:     cfg.Paystack.SecretKey,
			Provider:      cfg.Paystack.Provider,
			EmailDomain:   cfg.Product.EmailDomain,
			Currency:      cfg.Product.Currency,
			ChargeTimeout: cfg.Paystack.ChargeTimeout,
			QueryTimeout:  cfg.Paystack.QueryTimeout,
		}, *logger)
	}
	logger.Info().Str("gateway", pgw.Name()).Msg("payment gateway ready")

	// ---- Use cases ----
	paymentUC := usecase.NewPaymentUseCase(payRepo, videoRepo, pgw, locker, usecase.CheckoutConfig{
		PriceCents:    cfg.Product.PriceCents,
		Currency:      cfg.Product.Currency,
		EmailDomain:   cfg.Product.EmailDomain,
		PendingReuse:  cfg.Product.PendingReuse,
		PaymentExpiry: cfg.Product.PaymentExpiry,
		LockTTL:       cfg.Product.LockTTL,
	}, logger)
	accessUC := usecase.NewAccessUseCase(payRepo, videoRepo, logger)
	catalogUC := usecase.NewCatalogUseCase(videoRepo, payRepo, txManager, logger)
	statsUC := usecase.NewStatsUseCase(payRepo, videoRepo, logger)

	// ---- HTTP server ----
	auth := web.NewAuthManager(cfg.Admin.JWTSecret, cfg.Admin.SecureCookie, cfg.Admin.CookieDomain, cfg.Admin.SessionTTL)
	creds := web.AdminCredentials{Username: cfg.Admin.Username, Password: cfg.Admin.Password}
	srv := web.NewServer(paymentUC, accessUC, catalogUC, statsUC, auth, creds, rateLimiter, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second, // charge initiation waits on the gateway
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Metrics listener ----
	metrics.MustRegister()
	if cfg.Server.MetricsPort > 0 {
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Server.MetricsPort)
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Info().Str("addr", addr).Msg("metrics listening")
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	// ---- Expiry sweeper ----
	if cfg.Sweeper.Enabled {
		sweeper := sched.NewExpirySweeper(payRepo, cfg.Sweeper.Interval, cfg.Product.PaymentExpiry, logger)
		go func() { _ = sweeper.Run(ctx) }()
	}

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
}
