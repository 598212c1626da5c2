package handler

import (
	"marketplace-engine/internal/adapter/http/middleware"
	redisStore "marketplace-engine/internal/adapter/storage/redis"
	"marketplace-engine/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	ListingSvc     ports.ListingService
	MarketSvc      ports.MarketService
	EscrowSvc      ports.EscrowService
	TokenLedger    ports.TokenLedger
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	listingHandler := NewListingHandler(deps.ListingSvc)
	marketHandler := NewMarketHandler(deps.MarketSvc)

	// Public listing reads
	v1.GET("/listings/:id", listingHandler.Get)
	v1.GET("/listings/:id/prices", listingHandler.Prices)
	v1.GET("/listings/:id/royalty", listingHandler.Royalty)
	v1.GET("/listings/:id/receipts", marketHandler.Receipts)
	v1.GET("/receipts/:id", marketHandler.Receipt)

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	listings := v1.Group("/listings", jwtAuth)
	{
		listings.POST("", rl("listings"), listingHandler.Create)
		listings.GET("", rl("listings"), listingHandler.Mine)
		listings.PUT("/:id/config", rl("listings"), listingHandler.Configure)
		listings.PUT("/:id/vendor", rl("listings"), listingHandler.TransferVendor)
		listings.PUT("/:id/uri", rl("listings"), listingHandler.UpdateURI)
		listings.PUT("/:id/price", rl("listings"), listingHandler.SetPrice)
		listings.POST("/:id/mint", rl("mint"), marketHandler.Mint)
		listings.POST("/:id/transfer", rl("transfers"), marketHandler.Transfer)
	}

	v1.GET("/holdings", jwtAuth, marketHandler.Holdings)

	escrowHandler := NewEscrowHandler(deps.EscrowSvc)
	escrow := v1.Group("/escrow", jwtAuth)
	{
		escrow.GET("/:currency", escrowHandler.Deposits)
		escrow.GET("/:currency/totals", escrowHandler.Totals)
		escrow.POST("/:currency/withdraw", rl("escrow_withdraw"), escrowHandler.Withdraw)
	}

	tokenHandler := NewTokenHandler(deps.TokenLedger)
	tokens := v1.Group("/tokens", jwtAuth)
	{
		tokens.POST("", rl("tokens"), tokenHandler.RegisterCurrency)
		tokens.POST("/topup", rl("tokens"), tokenHandler.Topup)
	}
	v1.GET("/balances/:currency", jwtAuth, tokenHandler.Balance)

	return r
}
