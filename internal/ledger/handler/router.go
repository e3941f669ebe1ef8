package handler

import (
	"github.com/TrulyGourav/OrchexPay/internal/ledger/domain"
	"github.com/TrulyGourav/OrchexPay/internal/ledger/middleware"
	"github.com/TrulyGourav/OrchexPay/internal/ledger/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc          ports.AuthService
	AccountSvc       ports.AccountService
	LedgerSvc        ports.LedgerService
	TokenSvc         ports.TokenService
	IdempotencyCache ports.IdempotencyCache // nil = replay protection disabled
	RateLimitStore   ports.RateLimitStore   // nil = rate limiting disabled
	HealthCheckers   []ports.HealthChecker
	Logger           zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep, verifies PostgreSQL + Redis)
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

	// Helper: idempotency replay middleware, noop when the cache is absent.
	idem := func() gin.HandlerFunc {
		if deps.IdempotencyCache == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.Idempotency(deps.IdempotencyCache, deps.Logger)
	}()

	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	adminOnly := middleware.RequireRole(domain.RoleAdmin)

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	// --- Account provisioning ---
	accountHandler := NewAccountHandler(deps.AccountSvc)
	ledgerHandler := NewLedgerHandler(deps.LedgerSvc)
	accounts := v1.Group("/accounts", jwtAuth)
	{
		accounts.POST("/merchants", rl("accounts"), adminOnly, accountHandler.CreateMerchant)
		accounts.POST("/merchants/:id/vendors", rl("accounts"),
			middleware.RequireRole(domain.RoleAdmin, domain.RoleMerchant), accountHandler.AddVendor)
		accounts.GET("/merchants/:id/vendors", rl("ledger_read"), accountHandler.ListVendors)
		accounts.GET("/merchants/:id/settlement", rl("ledger_read"),
			middleware.RequireRole(domain.RoleAdmin, domain.RoleMerchant), ledgerHandler.Settlement)
		accounts.GET("/me/bank-details", rl("ledger_read"),
			middleware.RequireRole(domain.RoleVendor), accountHandler.GetBankDetails)
		accounts.PUT("/me/bank-details", rl("accounts"),
			middleware.RequireRole(domain.RoleVendor), accountHandler.SaveBankDetails)
	}

	// --- Wallet queries and admin controls ---
	wallets := v1.Group("/wallets", jwtAuth)
	{
		wallets.GET("/resolve", rl("ledger_read"), ledgerHandler.ResolveWallet)
		wallets.GET("/:id/balance", rl("ledger_read"), ledgerHandler.Balance)
		wallets.PUT("/:id/status", rl("admin"), adminOnly, accountHandler.SetWalletStatus)
	}

	// --- Ledger movements (idempotency key required) ---
	ledger := v1.Group("/ledger", jwtAuth)
	{
		ledger.POST("/credit", rl("ledger_write"), idem, ledgerHandler.Credit)
		ledger.POST("/debit", rl("ledger_write"), idem, ledgerHandler.Debit)
		ledger.POST("/reserve", rl("ledger_write"), idem, ledgerHandler.Reserve)
		ledger.POST("/transfer", rl("ledger_write"), idem, ledgerHandler.Transfer)
		ledger.POST("/entries/:id/confirm", rl("ledger_write"), idem, ledgerHandler.Confirm)
		ledger.POST("/entries/:id/reverse", rl("ledger_write"), idem, ledgerHandler.Reverse)
		ledger.GET("/entries", rl("ledger_read"), ledgerHandler.ListEntries)
	}

	// --- Admin dashboard ---
	admin := v1.Group("/admin", jwtAuth, adminOnly)
	{
		admin.GET("/stats", rl("admin"), ledgerHandler.GetStats)
	}

	return r
}
