package main

import (
	"context"
	"log"
	"os"

	"github.com/bugseek/backend/internal/db"
	"github.com/bugseek/backend/internal/models"
	"github.com/bugseek/backend/internal/services"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

type sampleLog struct {
	CrID        string
	TeamName    string
	Module      string
	Description string
	Owner       string
	LogFileName string
	ErrorName   string
	LogContent  string
}

// Fixed CrIDs keep reseeding idempotent and report URLs stable across runs.
var sampleLogs = []sampleLog{
	{
		CrID:        "5f1c7b9a-3d42-4e8b-9210-8c6f2a1d0e47",
		TeamName:    "platform",
		Module:      "payment-gateway",
		Description: "Payment worker crashed during the nightly settlement run",
		Owner:       "priya",
		LogFileName: "settlement-worker.log",
		ErrorName:   "OutOfMemoryError",
		LogContent: `2026-08-12 02:14:55 INFO settlement batch 4418 started
2026-08-12 02:17:03 WARN heap usage at 91%
2026-08-12 02:17:41 ERROR java.lang.OutOfMemoryError: Java heap space
	at com.pay.settle.BatchLoader.load(BatchLoader.java:212)
	at com.pay.settle.Worker.run(Worker.java:88)
2026-08-12 02:17:42 FATAL worker terminated`,
	},
	{
		CrID:        "9a2e4d17-6c58-49f0-b3a1-47d9e0c85b26",
		TeamName:    "platform",
		Module:      "payment-gateway",
		Description: "Settlement retries exhausted after connection resets",
		Owner:       "priya",
		LogFileName: "settlement-retry.log",
		ErrorName:   "ConnectionReset",
		LogContent: `2026-08-13 02:02:10 INFO settlement batch 4432 started
2026-08-13 02:05:19 ERROR connection reset by peer while calling ledger service
2026-08-13 02:05:22 ERROR connection refused: ledger-svc:7012
2026-08-13 02:06:40 ERROR network unreachable after 3 retries
2026-08-13 02:06:41 WARN batch 4432 parked for manual replay`,
	},
	{
		CrID:        "c47d11f3-8b0a-4c5e-a6d9-1e2f3a4b5c6d",
		TeamName:    "devices",
		Module:      "firmware-updater",
		Description: "Fleet update bricked two gateways in the staging rack",
		Owner:       "marco",
		LogFileName: "gateway-console.txt",
		ErrorName:   "KernelPanic",
		LogContent: `[ 1422.881723] updater: applying image v2.7.1
[ 1424.102314] EXT4-fs error (device mmcblk0p2): __ext4_find_entry:1612
[ 1424.220871] I/O error, dev mmcblk0, sector 204871
[ 1425.003992] Kernel panic - not syncing: Attempted to kill init!
[ 1425.004101] CPU: 0 PID: 1 Comm: systemd Not tainted 5.10.0`,
	},
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Connect to database
	db.Connect()

	// Run migrations first
	log.Println("Running database migrations...")
	db.AutoMigrate()

	log.Println("Seeding database with sample data...")

	if err := seedUsers(); err != nil {
		log.Printf("Error seeding users: %v", err)
	}
	if err := seedErrorLogs(); err != nil {
		log.Printf("Error seeding error logs: %v", err)
	}

	log.Println("✅ Database seeding completed successfully!")
}

func seedUsers() error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	if adminEmail == "" {
		adminEmail = "admin@bugseek.local"
	}
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "admin123"
	}

	users := []struct {
		Email     string
		Password  string
		FirstName string
		LastName  string
		Role      models.UserRole
	}{
		{adminEmail, adminPassword, "BugSeek", "Admin", models.RoleAdmin},
		{"dev@bugseek.local", "dev12345", "Dev", "User", models.RoleMember},
	}

	for _, u := range users {
		var existing models.User
		if err := db.DB.Where("email = ?", u.Email).First(&existing).Error; err == nil {
			log.Printf("⚠️  User already exists: %s", u.Email)
			continue
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("Error hashing password for %s: %v", u.Email, err)
			continue
		}

		user := models.User{
			Email:     u.Email,
			Password:  string(hashedPassword),
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Role:      u.Role,
		}
		if err := db.DB.Create(&user).Error; err != nil {
			log.Printf("Error creating user %s: %v", user.Email, err)
		} else {
			log.Printf("✅ Created user: %s (%s)", user.Email, user.Role)
		}
	}

	return nil
}

// seedErrorLogs stores the sample logs and runs the offline analysis pipeline
// over them so fresh installs have reports and a similarity corpus to browse.
func seedErrorLogs() error {
	definitions := services.DefaultPatternDefinitions()
	patternLibrary, err := services.NewPatternLibrary(definitions)
	if err != nil {
		return err
	}
	extractor := services.NewTextFeatureExtractor()
	fallback := services.NewFallbackAnalyzer(patternLibrary, extractor)
	similarity := services.NewSimilarityIndex()
	corpus := services.NewMemoryCorpus(db.DB)
	orchestrator := services.NewAnalysisOrchestrator(nil, fallback, extractor, similarity, corpus)
	analysisService := services.NewAnalysisService(db.DB, orchestrator)

	for _, sample := range sampleLogs {
		var existing models.ErrorLog
		if err := db.DB.Where("cr_id = ?", sample.CrID).First(&existing).Error; err == nil {
			log.Printf("⚠️  Sample log already exists: %s", sample.LogFileName)
			continue
		}

		errorLog := models.ErrorLog{
			CrID:           sample.CrID,
			TeamName:       sample.TeamName,
			Module:         sample.Module,
			Description:    sample.Description,
			Owner:          sample.Owner,
			LogFileName:    sample.LogFileName,
			ErrorName:      sample.ErrorName,
			LogContent:     sample.LogContent,
			FileSize:       int64(len(sample.LogContent)),
			AnalysisStatus: models.AnalysisStatusPending,
		}
		if err := db.DB.Create(&errorLog).Error; err != nil {
			log.Printf("Error creating sample log %s: %v", sample.LogFileName, err)
			continue
		}

		if _, err := analysisService.RunAnalysis(context.Background(), sample.CrID); err != nil {
			log.Printf("Error analyzing sample log %s: %v", sample.LogFileName, err)
			continue
		}
		log.Printf("✅ Created sample log: %s (%s)", sample.LogFileName, sample.CrID)
	}

	return nil
}
