package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tendant/weapon-detection-client/internal/config"
	"github.com/tendant/weapon-detection-client/internal/mockbackend"
)

// Stand-in detection backend for local development.
// Every image gets one "knife" detection covering its center.
func main() {
	cfg := config.Load()

	modelLoaded := os.Getenv("MOCK_MODEL_LOADED") != "false" && cfg.MockModelLoadDelay == 0

	log.Printf("Mock Detection Backend")
	log.Printf("  HTTP address: %s", cfg.MockBackendAddr)
	log.Printf("  Model loaded: %v", modelLoaded)

	backend := mockbackend.New(mockbackend.Options{ModelLoaded: modelLoaded})

	// Simulate a slow model load so clients see model_loaded=false first
	if cfg.MockModelLoadDelay > 0 {
		log.Printf("  Model load delay: %v", cfg.MockModelLoadDelay)
		time.AfterFunc(cfg.MockModelLoadDelay, func() {
			backend.SetModelLoaded(true)
			log.Printf("✓ Model loaded")
		})
	}

	server := &http.Server{
		Addr:    cfg.MockBackendAddr,
		Handler: backend.Router(),
	}

	go func() {
		log.Printf("✓ Mock backend ready on %s", cfg.MockBackendAddr)
		log.Printf("")
		log.Printf("Available endpoints:")
		log.Printf("  POST /predict                       - Detect weapons (multipart field: image)")
		log.Printf("  GET  /health                        - Health check")
		log.Printf("  GET  /api/alerts                    - Unacknowledged alerts")
		log.Printf("  POST /api/acknowledge_alert/{id}    - Acknowledge an alert")
		log.Printf("")
		log.Printf("Quick test:")
		log.Printf("  DETECTION_API_URL=http://localhost%s go run ./cmd/detect-client image.jpg", cfg.MockBackendAddr)
		log.Printf("")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
