package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RubbishGeo/geo-backend/internal/config"
)

var setDBCmd = &cobra.Command{
	Use:   "set-db CONNSTR",
	Short: "Save the database connection string to the profile file",
	Args:  cobra.ExactArgs(1),
	RunE:  runSetDB,
}

var showDBCmd = &cobra.Command{
	Use:   "show-db",
	Short: "Print the configured database connection string",
	Args:  cobra.NoArgs,
	RunE:  runShowDB,
}

func init() {
	rootCmd.AddCommand(setDBCmd)
	rootCmd.AddCommand(showDBCmd)
}

func runSetDB(_ *cobra.Command, args []string) error {
	if err := config.Save(config.Profile{Connstr: args[0]}); err != nil {
		return err
	}
	path, err := config.Path()
	if err != nil {
		return err
	}
	fmt.Printf("Saved connection string to %s\n", path)
	return nil
}

func runShowDB(_ *cobra.Command, _ []string) error {
	connstr, err := config.Connstr()
	if err != nil {
		if errors.Is(err, config.ErrNoConnstr) {
			return fmt.Errorf("no connection string configured; run set-db or set %s", config.EnvConnstr)
		}
		return err
	}
	fmt.Println(connstr)
	return nil
}
