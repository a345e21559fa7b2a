package handler

import (
	"bnpl-credit-ledger/internal/adapter/http/middleware"
	redisStore "bnpl-credit-ledger/internal/adapter/storage/redis"
	"bnpl-credit-ledger/internal/core/ports"
	"bnpl-credit-ledger/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	CreditSvc      ports.CreditService
	WalletSvc      ports.WalletService
	ScoreSvc       ports.ScoreService
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
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit
	r.Use(metrics.Middleware())

	// Health check verifying PostgreSQL and Redis connectivity
	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	r.GET("/metrics", metrics.Handler())

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

	// API v1 routes, all JWT-authenticated
	v1 := r.Group("/api/v1")
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	walletHandler := NewWalletHandler(deps.WalletSvc)
	creditHandler := NewCreditHandler(deps.CreditSvc, deps.WalletSvc, deps.ScoreSvc)

	wallet := v1.Group("/wallet", jwtAuth)
	{
		wallet.GET("", rl("wallet_read"), walletHandler.GetSummary)
		wallet.GET("/transactions", rl("wallet_read"), walletHandler.History)
		wallet.POST("/deposit", rl("wallet_move"), walletHandler.Deposit)
		wallet.POST("/withdraw", rl("wallet_move"), walletHandler.Withdraw)

		savings := wallet.Group("/savings")
		{
			savings.POST("/deposit", rl("wallet_move"), walletHandler.DepositSavings)
			savings.POST("/withdraw", rl("wallet_move"), walletHandler.WithdrawSavings)
		}

		wallet.POST("/credit-purchase", rl("credit_purchase"), creditHandler.Purchase)
		wallet.POST("/repay", rl("repay"), creditHandler.Repay)
		wallet.GET("/credit-purchases", rl("wallet_read"), creditHandler.ListPurchases)
		wallet.GET("/credit-score", rl("wallet_read"), creditHandler.GetScore)
		wallet.POST("/limit-increase", rl("limit_increase"), creditHandler.RequestLimitIncrease)
	}

	return r
}
