package handler

import (
	ledgerdomain "github.com/TrulyGourav/OrchexPay/internal/ledger/domain"
	"github.com/TrulyGourav/OrchexPay/internal/ledger/middleware"
	ledgerports "github.com/TrulyGourav/OrchexPay/internal/ledger/ports"
	"github.com/TrulyGourav/OrchexPay/internal/payout/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	PayoutSvc      ports.PayoutService
	WebhookSvc     ports.WebhookService
	TokenSvc       ledgerports.TokenService
	HealthCheckers []ledgerports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
// Webhook endpoints are unauthenticated; in a deployment they sit behind the
// payment provider's signature verification at the edge.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20))

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	v1 := r.Group("/api/v1")

	payoutHandler := NewPayoutHandler(deps.PayoutSvc, deps.Logger)
	payouts := v1.Group("/payouts", jwtAuth)
	{
		payouts.POST("", payoutHandler.Request)
		payouts.GET("", payoutHandler.List)
		payouts.GET("/:id", payoutHandler.Get)
		payouts.POST("/:id/confirm", middleware.RequireRole(ledgerdomain.RoleAdmin), payoutHandler.Confirm)
		payouts.POST("/:id/reverse", middleware.RequireRole(ledgerdomain.RoleAdmin), payoutHandler.Reverse)
	}

	webhookHandler := NewWebhookHandler(deps.WebhookSvc, deps.Logger)
	webhooks := v1.Group("/webhooks")
	{
		webhooks.POST("/payment-success", webhookHandler.PaymentSucceeded)
		webhooks.POST("/order-complete", webhookHandler.OrderCompleted)
		webhooks.POST("/bank-outcome", webhookHandler.BankOutcome)
	}

	return r
}
