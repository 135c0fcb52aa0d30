package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/bugseek/backend/internal/db"
	"github.com/bugseek/backend/internal/logger"
	"github.com/bugseek/backend/internal/middleware"
	"github.com/bugseek/backend/internal/models"
	"github.com/bugseek/backend/internal/routes"
	"github.com/bugseek/backend/internal/services"

	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := "http://localhost:5173"
		if os.Getenv("ENV") != "local" && os.Getenv("ENV") != "" {
			if corsOrigin := os.Getenv("CORS_ORIGIN"); corsOrigin != "" {
				origin = corsOrigin
			}
		}

		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

func main() {
	// Initialize logger first
	logger.Initialize()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file found, using environment variables", nil)
	}

	// Connect to database
	db.Connect()
	db.AutoMigrate()

	// Pattern catalog must be valid before anything is accepted.
	definitions := services.DefaultPatternDefinitions()
	if catalogPath := os.Getenv("PATTERN_CATALOG_PATH"); catalogPath != "" {
		loaded, err := services.LoadPatternDefinitions(catalogPath)
		if err != nil {
			logger.Fatal("Failed to load pattern catalog", map[string]interface{}{
				"path":  catalogPath,
				"error": err.Error(),
			})
		}
		definitions = loaded
	}
	patternLibrary, err := services.NewPatternLibrary(definitions)
	if err != nil {
		logger.Fatal("Invalid pattern catalog", map[string]interface{}{
			"error": err.Error(),
		})
	}
	logger.Info("Pattern library ready", map[string]interface{}{
		"patterns": len(patternLibrary.Definitions()),
	})

	// Wire the analysis pipeline
	extractor := services.NewTextFeatureExtractor()
	fallback := services.NewFallbackAnalyzer(patternLibrary, extractor)
	similarity := services.NewSimilarityIndex()
	llmClient := services.NewOpenAIClient()
	corpus := services.NewMemoryCorpus(db.DB)
	orchestrator := services.NewAnalysisOrchestrator(llmClient, fallback, extractor, similarity, corpus)

	analysisService := services.NewAnalysisService(db.DB, orchestrator)
	errorLogService := services.NewErrorLogService(db.DB)
	jobService := services.NewJobService(db.DB, analysisService, errorLogService)
	feedbackService := services.NewFeedbackService(db.DB)

	// Setup graceful shutdown
	stopChan := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigChan
		logger.Warn("Received shutdown signal, stopping background workers...", nil)
		close(stopChan)
	}()

	// Make sure an admin exists
	if err := seedAdmin(); err != nil {
		log.Printf("Warning: Failed to seed admin user: %v", err)
	}

	// Set Gin mode
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create router without default middleware
	r := gin.New()

	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	r.Use(middleware.RequestLoggerMiddleware())
	r.Use(CORSMiddleware())
	r.Use(gin.Recovery())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		var dbStatus string
		var dbError error

		if db.DB != nil {
			sqlDB, err := db.DB.DB()
			if err != nil {
				dbStatus = "error"
				dbError = err
			} else {
				err = sqlDB.Ping()
				if err != nil {
					dbStatus = "error"
					dbError = err
				} else {
					dbStatus = "ok"
				}
			}
		} else {
			dbStatus = "error"
			dbError = fmt.Errorf("database connection not initialized")
		}

		overallStatus := "ok"
		statusCode := 200

		if dbStatus != "ok" {
			overallStatus = "error"
			statusCode = 503
		}

		dbErrMsg := ""
		if dbError != nil {
			dbErrMsg = dbError.Error()
		}

		response := gin.H{
			"status":    overallStatus,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   "1.0.0",
			"services": gin.H{
				"database": gin.H{
					"status": dbStatus,
					"error":  dbErrMsg,
				},
				"aiAnalysis": gin.H{
					"enabled": orchestrator.Enabled(),
				},
			},
		}

		c.JSON(statusCode, response)
	})

	// Setup routes
	routes.SetupRoutes(r, db.DB, &routes.Services{
		ErrorLogs:    errorLogService,
		Analysis:     analysisService,
		Jobs:         jobService,
		Feedback:     feedbackService,
		Orchestrator: orchestrator,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	logger.Info("Starting BugSeek backend server", map[string]interface{}{
		"port":     port,
		"gin_mode": gin.Mode(),
	})

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	// Wait for shutdown signal
	<-stopChan
	logger.Info("Shutting down server gracefully...", nil)

	// Let in-flight analysis jobs finish before closing the listener.
	jobService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		logger.Info("Server exited gracefully", nil)
	}
}

// seedAdmin creates the bootstrap admin account when it is missing.
func seedAdmin() error {
	email := os.Getenv("ADMIN_EMAIL")
	if email == "" {
		email = "admin@bugseek.local"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
	}

	var existing models.User
	if err := db.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := models.User{
		Email:     email,
		Password:  string(hashedPassword),
		FirstName: "BugSeek",
		LastName:  "Admin",
		Role:      models.RoleAdmin,
	}
	if err := db.DB.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	log.Printf("✅ Created admin user: %s", email)
	return nil
}
