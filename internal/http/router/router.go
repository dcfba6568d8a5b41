package router

import (
	"github.com/gin-gonic/gin"

	"github.com/m-orlov/freelance-market/internal/config"
	"github.com/m-orlov/freelance-market/internal/http/handlers"
	"github.com/m-orlov/freelance-market/internal/http/middleware"
	"github.com/m-orlov/freelance-market/internal/models"
	"github.com/m-orlov/freelance-market/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	projectHandler *handlers.ProjectHandler,
	bidHandler *handlers.BidHandler,
	walletHandler *handlers.WalletHandler,
	paymentHandler *handlers.PaymentHandler,
	disputeHandler *handlers.DisputeHandler,
	reviewHandler *handlers.ReviewHandler,
	notificationHandler *handlers.NotificationHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
	}

	protectedAuth := api.Group("/auth")
	protectedAuth.Use(middleware.AuthMiddleware(tokenManager))
	{
		protectedAuth.GET("/me", authHandler.Me)
		protectedAuth.POST("/logout", authHandler.Logout)
		protectedAuth.GET("/sessions", authHandler.ListSessions)
		protectedAuth.DELETE("/sessions/:id", middleware.UUIDValidator("id"), authHandler.DeleteSession)
	}

	// Публичные маршруты
	api.GET("/projects", projectHandler.List)
	api.GET("/projects/:id", middleware.UUIDValidator("id"), projectHandler.Get)
	api.GET("/users/:id/reviews", middleware.UUIDValidator("id"), reviewHandler.ListByUser)
	api.GET("/ws", wsHandler.Handle)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.POST("/projects", projectHandler.Create)
		protected.GET("/projects/my", projectHandler.ListMine)
		protected.PUT("/projects/:id", middleware.UUIDValidator("id"), projectHandler.Update)
		protected.POST("/projects/:id/complete", middleware.UUIDValidator("id"), projectHandler.Complete)

		protected.POST("/projects/:id/bids", middleware.UUIDValidator("id"), bidHandler.Submit)
		protected.GET("/projects/:id/bids", middleware.UUIDValidator("id"), bidHandler.ListByProject)
		protected.POST("/projects/:id/bids/:bidId/accept", middleware.UUIDValidator("id"), middleware.UUIDValidator("bidId"), bidHandler.Accept)
		protected.GET("/bids/my", bidHandler.ListMine)
		protected.PUT("/bids/:id", middleware.UUIDValidator("id"), bidHandler.Update)
		protected.DELETE("/bids/:id", middleware.UUIDValidator("id"), bidHandler.Withdraw)

		protected.GET("/wallet", walletHandler.Get)
		protected.POST("/wallet/deposit", walletHandler.Deposit)
		protected.POST("/wallet/withdraw", walletHandler.Withdraw)
		protected.GET("/wallet/entries", walletHandler.ListEntries)

		protected.POST("/projects/:id/escrow", middleware.UUIDValidator("id"), paymentHandler.CreateEscrow)
		protected.GET("/projects/:id/escrow", middleware.UUIDValidator("id"), paymentHandler.GetEscrow)
		protected.GET("/payments", paymentHandler.List)
		protected.GET("/payments/:id", middleware.UUIDValidator("id"), paymentHandler.Get)
		protected.POST("/payments/:id/release", middleware.UUIDValidator("id"), paymentHandler.Release)
		protected.POST("/payments/:id/refund-request", middleware.UUIDValidator("id"), paymentHandler.RequestRefund)

		protected.POST("/projects/:id/disputes", middleware.UUIDValidator("id"), disputeHandler.Open)
		protected.GET("/disputes/my", disputeHandler.ListMine)
		protected.GET("/disputes/:id", middleware.UUIDValidator("id"), disputeHandler.Get)
		protected.POST("/disputes/:id/messages", middleware.UUIDValidator("id"), disputeHandler.AddMessage)
		protected.POST("/disputes/:id/close", middleware.UUIDValidator("id"), disputeHandler.Close)
		protected.POST("/disputes/:id/evidence", middleware.UUIDValidator("id"), disputeHandler.UploadEvidence)

		protected.POST("/projects/:id/reviews", middleware.UUIDValidator("id"), reviewHandler.Create)

		protected.GET("/notifications", notificationHandler.List)
		protected.POST("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkRead)
		protected.POST("/notifications/read-all", notificationHandler.MarkAllRead)
	}

	// Администрирование
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tokenManager), middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/disputes", disputeHandler.ListOpen)
		admin.POST("/disputes/:id/review", middleware.UUIDValidator("id"), disputeHandler.TakeInReview)
		admin.POST("/disputes/:id/resolve", middleware.UUIDValidator("id"), disputeHandler.Resolve)
		admin.POST("/payments/:id/refund", middleware.UUIDValidator("id"), paymentHandler.ProcessRefund)
	}

	return r
}
