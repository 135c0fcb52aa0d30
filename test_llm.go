package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bugseek/backend/internal/services"
	"github.com/joho/godotenv"
)

const probeLog = `2026-08-12 02:17:41 ERROR java.lang.OutOfMemoryError: Java heap space
	at com.pay.settle.BatchLoader.load(BatchLoader.java:212)
2026-08-12 02:17:42 FATAL worker terminated`

func main() {
	fmt.Println("Testing LLM backend connection...")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	client := services.NewOpenAIClient()
	if !client.Configured() {
		fmt.Println("❌ LLM_API_KEY is not set, nothing to probe")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// Test health check
	fmt.Println("1. Testing health check...")
	if err := client.Health(ctx); err != nil {
		log.Printf("Health check failed: %v", err)
	} else {
		fmt.Println("✅ Health check passed")
	}

	// Test one analysis round trip
	fmt.Println("2. Testing analysis round trip...")
	startTime := time.Now()

	prompt := fmt.Sprintf(services.ERROR_ANALYSIS_PROMPT, "platform", "payment-gateway", probeLog)
	response, err := client.Complete(ctx, prompt)
	elapsed := time.Since(startTime)

	if err != nil {
		fmt.Printf("Completion failed after %v: %v\n", elapsed, err)
		return
	}

	payload, err := services.ParseAnalysisResponse(response)
	if err != nil {
		log.Printf("Response did not parse after %v: %v", elapsed, err)
	} else {
		fmt.Printf("✅ Analysis successful in %v: %s\n", elapsed, payload.Summary)
	}

	fmt.Println("Test completed!")
}
