// Package main is the entry point for the VideoCurator service and its
// operator commands.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"VideoCurator/internal/app"
	"VideoCurator/internal/config"
	"VideoCurator/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "videocurator",
	Short: "BJJ instructional-video curation service",
	Long:  "VideoCurator discovers and evaluates BJJ instructional videos, learns from viewer feedback, and measures how well its recommendations actually land.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildApp composes a full application from configuration and environment.
func buildApp() (*app.Application, error) {
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)
	return app.New(cfg, logger)
}
