package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/meritodocs/backend/internal/config"
	"github.com/meritodocs/backend/internal/handlers"
	"github.com/meritodocs/backend/internal/middleware"
	"github.com/meritodocs/backend/internal/services/affiliate"
	"github.com/meritodocs/backend/internal/services/email"
	"github.com/meritodocs/backend/internal/services/order"
	"github.com/meritodocs/backend/internal/services/payment"
	"github.com/meritodocs/backend/internal/utils"
)

// Services bundles everything the routes and background jobs share
type Services struct {
	Registry *affiliate.ReferralRegistry
	Ledger   *affiliate.CommissionLedger
	Payout   *affiliate.PayoutManager
	Fraud    *affiliate.FraudSignalEngine
	Approval *payment.ApprovalService
	Orders   *order.OrderService
	Mailer   *email.EmailService
}

// BuildServices constructs the service graph with explicit dependencies
func BuildServices(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Services {
	audit := utils.NewAuditLogger(db)
	mailer := email.NewEmailService(cfg.SMTP)

	registry := affiliate.NewReferralRegistry(db, audit)
	ledger := affiliate.NewCommissionLedger(db)
	payoutMgr := affiliate.NewPayoutManager(db, ledger, audit, mailer, cfg.AdminNotifyEmail)
	fraud := affiliate.NewFraudSignalEngine(db, rdb, registry, audit)
	approval := payment.NewApprovalService(db, ledger, registry, audit, mailer)
	orders := order.NewOrderService(db, registry, audit)

	return &Services{
		Registry: registry,
		Ledger:   ledger,
		Payout:   payoutMgr,
		Fraud:    fraud,
		Approval: approval,
		Orders:   orders,
		Mailer:   mailer,
	}
}

// RegisterRoutes configures all API routes
func RegisterRoutes(router *gin.Engine, db *gorm.DB, svc *Services) {
	audit := utils.NewAuditLogger(db)

	rateLimiter := middleware.NewRateLimiter(60, 10, 60, 5)
	router.Use(rateLimiter.IPRateLimiterMiddleware())

	authHandler := handlers.NewAuthHandler(db, svc.Registry, audit)
	orderHandler := handlers.NewOrderHandler(db, svc.Orders)
	affiliateHandler := handlers.NewAffiliateHandler(db, svc.Ledger, svc.Payout, svc.Fraud)
	adminHandler := handlers.NewAdminHandler(db, svc.Approval, svc.Ledger, svc.Payout, svc.Fraud)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authGroup := router.Group("/api/auth")
	authGroup.Use(rateLimiter.AuthRateLimiterMiddleware())
	{
		authGroup.POST("/signup", authHandler.Signup)
		authGroup.POST("/login", authHandler.Login)
	}

	orderGroup := router.Group("/api/orders")
	orderGroup.Use(middleware.AuthMiddleware())
	{
		orderGroup.POST("", orderHandler.Create)
		orderGroup.GET("", orderHandler.List)
		orderGroup.POST("/proof", orderHandler.SubmitProof)
	}

	affiliateGroup := router.Group("/api/affiliates")
	{
		// click tracking is anonymous by design
		affiliateGroup.POST("/click", affiliateHandler.TrackClick)

		authed := affiliateGroup.Group("")
		authed.Use(middleware.AuthMiddleware())
		{
			authed.GET("/summary", affiliateHandler.Summary)
			authed.POST("/request-payout", affiliateHandler.RequestPayout)
		}
	}

	adminGroup := router.Group("/api/admin")
	adminGroup.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
	{
		adminGroup.POST("/invoices/approve", adminHandler.ApprovePayment)
		adminGroup.POST("/invoices/reject", adminHandler.RejectPayment)
		adminGroup.GET("/commissions", adminHandler.ListCommissions)
		adminGroup.GET("/payouts", adminHandler.ListPayouts)
		adminGroup.POST("/payouts/update", adminHandler.UpdatePayout)
		adminGroup.GET("/affiliates/fraud", adminHandler.FraudPanel)
		adminGroup.GET("/affiliates/conversion.csv", adminHandler.ConversionCSV)
	}
}
