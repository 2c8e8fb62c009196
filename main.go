package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/xiaot623/agentmon/internal/config"
	store "github.com/xiaot623/agentmon/internal/repository"
	"github.com/xiaot623/agentmon/internal/service"
	transport "github.com/xiaot623/agentmon/internal/transport/http"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting agent monitor...")
	log.Printf("HTTP Port: %d", cfg.Port)
	log.Printf("Database: %s", cfg.DatabasePath)
	log.Printf("State dir: %s", cfg.OpenclawDir)
	if cfg.RetentionDays > 0 {
		log.Printf("Retention: %dd", cfg.RetentionDays)
	} else {
		log.Printf("Retention: unlimited")
	}

	// Initialize store
	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("Failed to create database directory: %v", err)
		}
	}
	db, err := store.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize service
	svc := service.New(db, cfg)

	// Warm the history table so the first request serves a synced view.
	if err := svc.Reconcile(context.Background()); err != nil {
		log.Printf("WARN: initial reconcile failed: %v", err)
	}

	// Create HTTP server
	e := transport.NewServer(svc, cfg.BasePath)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("API started on port %d", cfg.Port)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down agent monitor...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Agent monitor stopped")
}
