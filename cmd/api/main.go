// Package main provides the entry point for the ShelfNotes server application.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/shelfnotes/shelfnotes-server/internal/di"
	"github.com/shelfnotes/shelfnotes-server/internal/logger"
)

func main() {
	// Create DI container
	injector := di.NewContainer()

	// Bootstrap all services
	if err := di.Bootstrap(injector); err != nil {
		// The logger is unavailable when configuration itself failed.
		log, logErr := do.Invoke[*logger.Logger](injector)
		_ = injector.Shutdown()
		if logErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to bootstrap server: %v\n", err)
			os.Exit(1)
		}
		log.Fatal("Failed to bootstrap server", "error", err)
	}

	// Get logger for shutdown messages
	log := do.MustInvoke[*logger.Logger](injector)

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	// The container stops the HTTP server before the store and search index
	// it depends on.
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}

	log.Info("Goodbye")
}
