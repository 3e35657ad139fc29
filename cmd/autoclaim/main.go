// Package main provides the entry point for the vehicle insurance claim model training pipeline.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "autoclaim",
	Short: "Vehicle insurance claim model training pipeline",
	Long: `Trains a binary classifier that predicts whether a vehicle insurance customer will file a claim.

Stages run in a fixed order: ingestion -> validation -> transformation -> training -> evaluation -> push.
Every stage artifact is cached by identity, so repeated runs only recompute what changed. A trained
model is pushed to the registry only when it beats the current champion.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}
