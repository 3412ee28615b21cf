package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RubbishGeo/geo-backend/internal/zones"
)

var (
	updateZoneGrid string
	updateZoneName string
)

var updateZoneCmd = &cobra.Command{
	Use:   "update-zone OSMNX_NAME",
	Short: "Import or reimport a zone's street grid from a GeoJSON export",
	Long:  "Imports the centerline grid for a zone from a GeoJSON FeatureCollection of LineString features carrying osmid and name properties. Reimporting an existing zone opens a new grid generation.",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpdateZone,
}

var showZonesCmd = &cobra.Command{
	Use:   "show-zones",
	Short: "List imported zones and their current grid generation",
	Args:  cobra.NoArgs,
	RunE:  runShowZones,
}

func init() {
	updateZoneCmd.Flags().StringVar(&updateZoneGrid, "grid", "", "Path to the GeoJSON grid file (required)")
	updateZoneCmd.Flags().StringVar(&updateZoneName, "name", "", "Display name for the zone (defaults to the osmnx name)")
	updateZoneCmd.MarkFlagRequired("grid")
	rootCmd.AddCommand(updateZoneCmd)
	rootCmd.AddCommand(showZonesCmd)
}

func runUpdateZone(cmd *cobra.Command, args []string) error {
	d, err := openDB()
	if err != nil {
		return err
	}
	return zones.UpdateZone(cmd.Context(), d, args[0], updateZoneName, updateZoneGrid)
}

func runShowZones(cmd *cobra.Command, _ []string) error {
	d, err := openDB()
	if err != nil {
		return err
	}
	list, err := zones.ListZones(cmd.Context(), d)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No zones imported yet")
		return nil
	}
	for _, z := range list {
		fmt.Printf("%d\t%s\t(%s)\tgeneration %d\n", z.ID, z.Name, z.OsmnxName, z.Generation)
	}
	return nil
}
