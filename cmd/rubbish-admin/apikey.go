package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RubbishGeo/geo-backend/internal/auth"
)

var createAPIKeyCmd = &cobra.Command{
	Use:   "create-api-key NAME",
	Short: "Mint a new service API key",
	Long:  "Mints a new API key for a service caller (e.g. the listener). The secret is printed once and only its hash is stored.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreateAPIKey,
}

var revokeAPIKeyCmd = &cobra.Command{
	Use:   "revoke-api-key NAME",
	Short: "Revoke a service API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runRevokeAPIKey,
}

func init() {
	rootCmd.AddCommand(createAPIKeyCmd)
	rootCmd.AddCommand(revokeAPIKeyCmd)
}

func runCreateAPIKey(cmd *cobra.Command, args []string) error {
	d, err := openDB()
	if err != nil {
		return err
	}
	secret, err := auth.IssueKey(cmd.Context(), d, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("API key %q created. Store this secret now; it cannot be recovered:\n%s\n", args[0], secret)
	return nil
}

func runRevokeAPIKey(cmd *cobra.Command, args []string) error {
	d, err := openDB()
	if err != nil {
		return err
	}
	if err := auth.RevokeKey(cmd.Context(), d, args[0]); err != nil {
		return err
	}
	fmt.Printf("API key %q revoked\n", args[0])
	return nil
}
