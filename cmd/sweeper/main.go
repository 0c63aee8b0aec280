package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cineseat/internal/config"
	"cineseat/internal/consumers"
	"cineseat/internal/logger"
)

func main() {
	log.Println("Starting sweeper service...")

	// Load configuration
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	// Override NATS client ID for the worker process
	cfg.NATS.ClientID = "cineseat-sweeper"

	// Create and start the sweeper plus consumers
	consumerService, err := consumers.NewConsumerService(cfg)
	if err != nil {
		log.Fatalf("Failed to create sweeper service: %v", err)
	}

	if err := consumerService.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start sweeper service: %v", err)
	}

	log.Println("Sweeper service started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down sweeper service...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := consumerService.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Sweeper service stopped")
}
