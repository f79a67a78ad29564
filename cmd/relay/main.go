// Command relay runs the prompt relay service.
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
	port := flag.String("port", cfg.Server.Port, "Relay port")
	host := flag.String("host", cfg.Server.Host, "Relay bind address")
	flag.Parse()

	cfg.Server.Port = *port
	cfg.Server.Host = *host

	srv := server.NewRelay(cfg)

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
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Close(ctx); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	case err := <-errChan:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}
}
