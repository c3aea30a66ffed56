// Package main provides the entry point for the candidate sourcing agent.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sourcing_agent",
	Short: "AI-powered candidate sourcing agent",
	Long:  "Sourcing agent discovers LinkedIn candidates for a job description, scores their fit with Gemini, and optionally sends personalized connection requests.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
