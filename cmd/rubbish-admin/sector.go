package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RubbishGeo/geo-backend/internal/zones"
)

var insertSectorPolygon string

var insertSectorCmd = &cobra.Command{
	Use:   "insert-sector NAME",
	Short: "Register a named query polygon from a GeoJSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  runInsertSector,
}

var deleteSectorCmd = &cobra.Command{
	Use:   "delete-sector NAME",
	Short: "Delete a query sector",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteSector,
}

var showSectorsCmd = &cobra.Command{
	Use:   "show-sectors",
	Short: "List registered query sectors",
	Args:  cobra.NoArgs,
	RunE:  runShowSectors,
}

func init() {
	insertSectorCmd.Flags().StringVar(&insertSectorPolygon, "polygon", "", "Path to the GeoJSON polygon file (required)")
	insertSectorCmd.MarkFlagRequired("polygon")
	rootCmd.AddCommand(insertSectorCmd)
	rootCmd.AddCommand(deleteSectorCmd)
	rootCmd.AddCommand(showSectorsCmd)
}

func runInsertSector(cmd *cobra.Command, args []string) error {
	d, err := openDB()
	if err != nil {
		return err
	}
	if err := zones.InsertSector(cmd.Context(), d, args[0], insertSectorPolygon); err != nil {
		return err
	}
	fmt.Printf("Sector %q registered\n", args[0])
	return nil
}

func runDeleteSector(cmd *cobra.Command, args []string) error {
	d, err := openDB()
	if err != nil {
		return err
	}
	if err := zones.DeleteSector(cmd.Context(), d, args[0]); err != nil {
		return err
	}
	fmt.Printf("Sector %q deleted\n", args[0])
	return nil
}

func runShowSectors(cmd *cobra.Command, _ []string) error {
	d, err := openDB()
	if err != nil {
		return err
	}
	sectors, err := zones.ListSectors(cmd.Context(), d)
	if err != nil {
		return err
	}
	if len(sectors) == 0 {
		fmt.Println("No sectors registered yet")
		return nil
	}
	for _, s := range sectors {
		fmt.Printf("%d\t%s\n", s.ID, s.Name)
	}
	return nil
}
