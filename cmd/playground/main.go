// Command playground runs the workspace host: source store, preview
// sandbox, console log and prompt requests behind an HTTP API.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flashide/flashide/internal/infrastructure/config"
	"github.com/flashide/flashide/internal/infrastructure/server"
)

func main() {
	cfg := config.LoadOrDefault()

	// Parse flags
	port := flag.String("port", cfg.Playground.Port, "Playground port")
	relayURL := flag.String("relay", cfg.Playground.RelayURL, "Prompt relay base URL")
	store := flag.String("store", cfg.Playground.StorePath, "Workspace database path")
	flag.Parse()

	cfg.Playground.Port = *port
	cfg.Playground.RelayURL = *relayURL
	cfg.Playground.StorePath = *store

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	srv, err := server.NewPlayground(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	// Wait for shutdown signal or error
	select {
	case <-sigChan:
		log.Println("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		stop()
		if err := srv.Close(shutdownCtx); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	case err := <-errChan:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}
}
