// Package main provides the entry point for the rubbish-admin CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rubbish-admin",
	Short: "Administer the rubbish analytics database",
	Long:  "rubbish-admin manages the analytics database behind the geo API: connection profiles, schema migrations, zone grid imports, query sectors, and service API keys.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
