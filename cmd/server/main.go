package main

// Package main is the entry point for the costlens-engine host service.
//
// Responsibilities:
//   - Load and validate configuration from YAML and environment variables
//   - Open the model snapshot store and load the resource catalog
//   - Start the HTTP host exposing train/detect/recommend/forecast
//   - Serve health and Prometheus metrics endpoints
//   - Shut down gracefully on SIGINT/SIGTERM

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/costlens/costlens-engine/internal/config"
	"github.com/costlens/costlens-engine/internal/server"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	manager := config.NewManager(*configPath)
	if err := manager.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := manager.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	srv, err := server.NewServer(manager.Get())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create server: %v\n", err)
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	fmt.Println("\nReceived shutdown signal...")

	if err := srv.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "Error stopping server: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Shutdown complete")
}
