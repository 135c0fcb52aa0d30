package db

import (
	"fmt"
	"log"
	"os"

	"github.com/bugseek/backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect initializes the database connection
func Connect() {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
	)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error), // Reduce logging to avoid issues
	})

	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	log.Println("✅ Database connected successfully")
}

// AutoMigrate runs database migrations
func AutoMigrate() {
	log.Println("Migrating User model...")
	err := DB.AutoMigrate(&models.User{})
	if err != nil {
		log.Printf("User migration failed: %v", err)
		return
	}
	log.Println("✅ User table migrated successfully")

	log.Println("Migrating ErrorLog model...")
	err = DB.AutoMigrate(&models.ErrorLog{})
	if err != nil {
		log.Printf("ErrorLog migration failed: %v", err)
		return
	}
	log.Println("✅ ErrorLog table migrated successfully")

	log.Println("Migrating AnalysisResult model...")
	err = DB.AutoMigrate(&models.AnalysisResult{})
	if err != nil {
		log.Printf("AnalysisResult migration failed: %v", err)
		return
	}
	log.Println("✅ AnalysisResult table migrated successfully")

	log.Println("Migrating AnalysisMemory model...")
	err = DB.AutoMigrate(&models.AnalysisMemory{})
	if err != nil {
		log.Printf("AnalysisMemory migration failed: %v", err)
		return
	}
	log.Println("✅ AnalysisMemory table migrated successfully")

	log.Println("Migrating AnalysisFeedback model...")
	err = DB.AutoMigrate(&models.AnalysisFeedback{})
	if err != nil {
		log.Printf("AnalysisFeedback migration failed: %v", err)
		return
	}
	log.Println("✅ AnalysisFeedback table migrated successfully")

	log.Println("Migrating Job model...")
	err = DB.AutoMigrate(&models.Job{})
	if err != nil {
		log.Printf("Job migration failed: %v", err)
		return
	}
	log.Println("✅ Job table migrated successfully")

	log.Println("✅ All database migrations completed successfully")
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
