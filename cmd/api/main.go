package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace-engine/config"
	httpHandler "marketplace-engine/internal/adapter/http/handler"
	pgStorage "marketplace-engine/internal/adapter/storage/postgres"
	redisStorage "marketplace-engine/internal/adapter/storage/redis"
	"marketplace-engine/internal/core/ports"
	"marketplace-engine/internal/service"
	"marketplace-engine/pkg/logger"

	"github.com/google/uuid"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Marketplace Engine")

	owner, err := uuid.Parse(cfg.Market.OwnerID)
	if err != nil {
		log.Fatal().Err(err).Msg("market.owner_id must be a valid UUID")
	}

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	accountRepo := pgStorage.NewAccountRepo(pool)
	listingRepo := pgStorage.NewListingRepo(pool)
	priceRepo := pgStorage.NewPriceRepo(pool)
	escrowRepo := pgStorage.NewEscrowRepo(pool)
	holdingRepo := pgStorage.NewHoldingRepo(pool)
	tokenRepo := pgStorage.NewTokenRepo(pool)
	receiptRepo := pgStorage.NewReceiptRepo(pool)
	idempotencyRepo := pgStorage.NewIdempotencyRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	mintGuard := redisStorage.NewMintGuard(rdb)

	// Initialize core services
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Initialize business services
	authSvc := service.NewAuthService(accountRepo, hashSvc, tokenSvc)
	listingSvc := service.NewListingService(listingRepo, priceRepo, transactor, log)
	holdingLedger := service.NewHoldingLedger(holdingRepo, listingRepo)
	escrowSvc, depositor := service.NewEscrowService(escrowRepo, tokenRepo, transactor, log)
	marketSvc := service.NewMarketService(
		listingRepo,
		priceRepo,
		tokenRepo,
		receiptRepo,
		idempotencyRepo,
		idempotencyCache,
		mintGuard,
		depositor,
		holdingLedger,
		transactor,
		owner,
		cfg.Market.FeeNumerator,
		log,
	)
	tokenLedger := service.NewTokenLedger(tokenRepo, transactor, owner, log)

	// Initialize rate limit store
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		ListingSvc:     listingSvc,
		MarketSvc:      marketSvc,
		EscrowSvc:      escrowSvc,
		TokenLedger:    tokenLedger,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
