package api

import (
	"net/http"
	"time"

	"github.com/amarjeet4296/hcn-email-management/internal/api/handlers"
	"github.com/amarjeet4296/hcn-email-management/internal/api/middleware"
	"github.com/amarjeet4296/hcn-email-management/internal/api/validation"
	"github.com/amarjeet4296/hcn-email-management/internal/config"
	"github.com/amarjeet4296/hcn-email-management/internal/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps are the long-lived services the router dispatches to
type Deps struct {
	DB      *gorm.DB
	Config  *config.Config
	Process *services.ProcessService
	Mail    *services.MailService
	Auth    *middleware.AuthManager
}

// SetupRouter initializes and returns the Gin router with all routes configured
func SetupRouter(deps Deps) *gin.Engine {
	cfg := deps.Config

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.APIKeyHeader, middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	origins := cfg.AllowedOrigins()
	if len(origins) == 0 {
		origins = (&config.Config{CORSOrigins: config.DefaultCORSOrigins}).AllowedOrigins()
	}
	if len(origins) == 1 && origins[0] == "*" {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	} else {
		corsConfig.AllowOrigins = origins
	}
	router.Use(cors.New(corsConfig))

	logService := services.NewLogServiceWithLevel(deps.DB, cfg.LogLevel)
	router.Use(middleware.RequestLogger(logService))

	validate := validation.New()
	userService := services.NewUserService(deps.DB)
	actionService := services.NewActionItemService(deps.DB)

	authHandler := handlers.NewAuthHandler(userService, deps.Auth.JWTManager, logService, validate)
	userHandler := handlers.NewUserHandler(userService, logService, validate)
	bookingHandler := handlers.NewBookingHandler(deps.Process.Store(), deps.Process, actionService, cfg.ReminderThreshold())
	processHandler := handlers.NewProcessHandler(deps.Process, validate)
	actionHandler := handlers.NewActionItemHandler(actionService, logService, validate)
	configHandler := handlers.NewConfigHandler(cfg, deps.Mail)
	logHandler := handlers.NewLogHandler(logService)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "process_running": deps.Process.Busy()})
	})

	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)

		// Machine trigger for cron jobs and scripts
		trigger := api.Group("/trigger")
		trigger.Use(middleware.APIKeyMiddleware(deps.Auth.APIKeyManager, logService))
		{
			trigger.POST("/process", processHandler.Trigger)
		}

		protected := api.Group("")
		protected.Use(middleware.JWTMiddleware(deps.Auth.JWTManager))
		{
			protected.GET("/auth/me", authHandler.GetCurrentUser)
			protected.POST("/auth/logout", authHandler.Logout)
			protected.POST("/auth/refresh", authHandler.RefreshToken)

			userGroup := protected.Group("/user")
			{
				userGroup.GET("/profile", userHandler.GetProfile)
				userGroup.PUT("/profile", userHandler.UpdateProfile)
				userGroup.PUT("/password", userHandler.ChangePassword)
			}

			protected.GET("/status", bookingHandler.Status)

			bookings := protected.Group("/bookings")
			{
				bookings.GET("", bookingHandler.List)
				bookings.GET("/pending", bookingHandler.Pending)
				bookings.GET("/critical", bookingHandler.Critical)
				bookings.GET("/summary", bookingHandler.Summary)
				bookings.GET("/:id", bookingHandler.Get)
			}

			protected.POST("/process", processHandler.Run)
			protected.GET("/process/runs", processHandler.Runs)
			protected.GET("/replies", processHandler.Replies)

			actions := protected.Group("/action-items")
			{
				actions.GET("/booking/:booking_id", actionHandler.ByBooking)
				actions.GET("/recent", actionHandler.Recent)
				actions.POST("/add", actionHandler.Add)
				actions.DELETE("/:action_id", actionHandler.Delete)
			}

			protected.GET("/config", configHandler.GetConfig)
			protected.GET("/config/connection", configHandler.TestConnection)
			protected.GET("/logs", logHandler.QueryLogs)
			protected.GET("/logs/recent", logHandler.Recent)
		}
	}

	return router
}
