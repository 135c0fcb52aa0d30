package routes

import (
	"github.com/bugseek/backend/internal/controllers"
	"github.com/bugseek/backend/internal/middleware"
	"github.com/bugseek/backend/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Services bundles the wired service layer main hands to the router.
type Services struct {
	ErrorLogs    *services.ErrorLogService
	Analysis     *services.AnalysisService
	Jobs         *services.JobService
	Feedback     *services.FeedbackService
	Orchestrator *services.AnalysisOrchestrator
}

// SetupRoutes configures all application routes
func SetupRoutes(r *gin.Engine, db *gorm.DB, svc *Services) {
	// Initialize controllers
	authController := controllers.NewAuthController(db)
	logController := controllers.NewLogController(svc.ErrorLogs, svc.Jobs)
	reportController := controllers.NewReportController(svc.Analysis, svc.Feedback)
	automationController := controllers.NewAutomationController()
	systemController := controllers.NewSystemController(svc.ErrorLogs, svc.Jobs, svc.Orchestrator)

	// API routes
	api := r.Group("/api/v1")
	{
		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/login", authController.Login)
			auth.POST("/register", authController.Register)
		}

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware())
		{
			protected.GET("/auth/me", authController.Me)
			protected.POST("/auth/refresh", authController.RefreshToken)
			protected.POST("/auth/change-password", authController.ChangePassword)

			// Error logs
			logs := protected.Group("/logs")
			{
				logs.POST("/upload", logController.Upload)
				logs.GET("", logController.List)
				logs.GET("/:crId", logController.Get)
				logs.DELETE("/:crId", logController.Delete)
			}

			// Analysis reports
			reports := protected.Group("/reports")
			{
				reports.GET("/:crId", reportController.GetReport)
				reports.POST("/:crId/feedback", reportController.SubmitFeedback)
				reports.GET("/:crId/feedback", reportController.ListFeedback)
			}

			// CI automation
			automation := protected.Group("/automation")
			{
				automation.POST("/validate", automationController.Validate)
			}

			// Jobs (upload polling)
			jobs := protected.Group("/jobs")
			{
				jobs.GET("/:id", logController.GetJob)
			}

			protected.GET("/statistics", systemController.Statistics)

			// LLM backend probe
			llm := protected.Group("/llm")
			{
				llm.GET("/health", systemController.LLMHealth)
			}

			// Admin routes
			admin := protected.Group("/admin")
			{
				admin.POST("/cleanup", systemController.AdminCleanup)
			}
		}
	}
}
