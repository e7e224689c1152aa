package router

import (
	"time"

	"messmate/config"
	"messmate/internal/handler"
	"messmate/internal/middleware"
	"messmate/internal/repository"
	"messmate/internal/service"
	"messmate/pkg/bkash"
	"messmate/pkg/cloudinary"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Setup wires repositories, services and handlers onto a gin engine. The
// payment service is returned as well so the caller can run its background
// jobs.
func Setup(cfg *config.Config, db *gorm.DB, gateway bkash.Client, cloud cloudinary.Client, log *zap.Logger) (*gin.Engine, *service.PaymentService) {
	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(middleware.NewRateLimiter(100, 60*time.Second)))

	// Repositories
	userRepo := repository.NewUserRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	mealRepo := repository.NewMealRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	marketRepo := repository.NewMarketDateRepository(db)

	// Services
	authSvc := service.NewAuthService(cfg, userRepo)
	notifSvc := service.NewNotificationService(notificationRepo, log)
	settlementSvc := service.NewSettlementService(roomRepo, mealRepo, expenseRepo, paymentRepo)
	callbackURL := cfg.Server.BaseURL + "/api/v1/webhooks/bkash"
	paymentSvc := service.NewPaymentService(paymentRepo, roomRepo, gateway, notifSvc, log, callbackURL)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc, log)
	roomHandler := handler.NewRoomHandler(roomRepo)
	mealHandler := handler.NewMealHandler(mealRepo, roomRepo, notifSvc)
	expenseHandler := handler.NewExpenseHandler(expenseRepo, roomRepo, cloud, notifSvc, log)
	settlementHandler := handler.NewSettlementHandler(settlementSvc, roomRepo)
	paymentHandler := handler.NewPaymentHandler(paymentSvc, cfg.Payment)
	webhookHandler := handler.NewBkashWebhookHandler(paymentSvc, log)
	notificationHandler := handler.NewNotificationHandler(notificationRepo)
	marketHandler := handler.NewMarketDateHandler(marketRepo, roomRepo, notifSvc)

	authMw := middleware.AuthRequired(&cfg.JWT)

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
		}

		rooms := api.Group("/rooms")
		rooms.Use(authMw)
		{
			rooms.POST("", roomHandler.Create)
			rooms.GET("", roomHandler.List)
			rooms.POST("/:id/join", roomHandler.Join)
			rooms.GET("/:id/members", roomHandler.Members)
		}

		meals := api.Group("/meals")
		meals.Use(authMw)
		{
			meals.GET("", mealHandler.List)
			meals.POST("", mealHandler.Toggle)
			meals.GET("/guest", mealHandler.ListGuestMeals)
			meals.POST("/guest", mealHandler.CreateGuestMeal)
		}

		api.GET("/expenses", authMw, expenseHandler.ListExpenses)
		api.POST("/expenses", authMw, expenseHandler.CreateExpense)
		api.GET("/shopping", authMw, expenseHandler.ListShoppingItems)
		api.POST("/shopping", authMw, expenseHandler.CreateShoppingItem)

		api.GET("/calculations", authMw, settlementHandler.Calculations)

		market := api.Group("/market-dates")
		market.Use(authMw)
		{
			market.GET("", marketHandler.List)
			market.POST("", marketHandler.Create)
			market.PATCH("/:id", marketHandler.Update)
		}

		api.GET("/payments", authMw, paymentHandler.History)

		payments := api.Group("/payments/bkash")
		payments.Use(authMw)
		{
			payments.POST("/create", paymentHandler.Create)
			payments.POST("/execute", paymentHandler.Execute)
			payments.GET("/status", paymentHandler.Status)
			payments.GET("/await", paymentHandler.Await)
		}

		me := api.Group("/me")
		me.Use(authMw)
		{
			me.GET("/notifications", notificationHandler.List)
			me.PUT("/notifications/:id/read", notificationHandler.MarkRead)
		}

		api.GET("/webhooks/bkash", webhookHandler.Handle)
	}

	return r, paymentSvc
}
