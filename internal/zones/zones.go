package zones

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/RubbishGeo/geo-backend/internal/geo"
)

// UpdateZone imports (or reimports) a zone's street grid from a GeoJSON
// FeatureCollection of centerlines. Reimports open a new zone generation:
// centerlines still present carry over, new ones are inserted at the new
// generation, and vanished ones get their last generation closed so historic
// pickups keep resolving.
func UpdateZone(ctx context.Context, d *gorm.DB, osmnxName, displayName, gridPath string) error {
	raw, err := os.ReadFile(gridPath)
	if err != nil {
		return fmt.Errorf("zones: reading grid file: %w", err)
	}
	features, err := parseCenterlines(raw)
	if err != nil {
		return err
	}
	if len(features) == 0 {
		return fmt.Errorf("zones: grid file %s has no centerlines", gridPath)
	}
	if displayName == "" {
		displayName = osmnxName
	}

	return d.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		zone, gen, err := nextGeneration(tx, osmnxName, displayName)
		if err != nil {
			return err
		}

		existing := map[int64]bool{}
		var osmids []int64
		if err := tx.Model(&geo.Centerline{}).
			Where("zone_id = ? AND last_zone_generation IS NULL", zone.ID).
			Pluck("osmid", &osmids).Error; err != nil {
			return fmt.Errorf("zones: loading current grid: %w", err)
		}
		for _, id := range osmids {
			existing[id] = true
		}

		imported := map[int64]bool{}
		inserted := 0
		for _, f := range features {
			imported[f.Osmid] = true
			if existing[f.Osmid] {
				continue
			}
			err := tx.Exec(`
				INSERT INTO rubbish.centerlines
					(geometry, first_zone_generation, last_zone_generation, zone_id, osmid, name, length_in_meters)
				VALUES (ST_GeomFromEWKT(?), ?, NULL, ?, ?, ?, ?)`,
				f.Line.EWKT(), gen, zone.ID, f.Osmid, f.Name, f.LengthInMeters,
			).Error
			if err != nil {
				return fmt.Errorf("zones: inserting centerline osmid %d: %w", f.Osmid, err)
			}
			inserted++
		}

		closed := 0
		for osmid := range existing {
			if imported[osmid] {
				continue
			}
			err := tx.Model(&geo.Centerline{}).
				Where("zone_id = ? AND osmid = ? AND last_zone_generation IS NULL", zone.ID, osmid).
				Update("last_zone_generation", gen-1).Error
			if err != nil {
				return fmt.Errorf("zones: closing centerline osmid %d: %w", osmid, err)
			}
			closed++
		}

		log.Printf("Zone %q now at generation %d: %d centerlines inserted, %d carried over, %d closed",
			osmnxName, gen, inserted, len(existing)-closed, closed)
		return nil
	})
}

// nextGeneration finds or creates the zone, finalizes its current generation,
// and opens the next one.
func nextGeneration(tx *gorm.DB, osmnxName, displayName string) (*geo.Zone, int, error) {
	var zone geo.Zone
	err := tx.First(&zone, "osmnx_name = ?", osmnxName).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		zone = geo.Zone{Name: displayName, OsmnxName: osmnxName}
		if err := tx.Create(&zone).Error; err != nil {
			return nil, 0, fmt.Errorf("zones: creating zone %q: %w", osmnxName, err)
		}
	case err != nil:
		return nil, 0, fmt.Errorf("zones: loading zone %q: %w", osmnxName, err)
	}

	var current geo.ZoneGeneration
	gen := 0
	err = tx.Where("zone_id = ?", zone.ID).Order("generation DESC").First(&current).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		// first import
	case err != nil:
		return nil, 0, fmt.Errorf("zones: loading generations for zone %d: %w", zone.ID, err)
	default:
		gen = current.Generation + 1
		now := time.Now()
		if err := tx.Model(&current).Update("final_timestamp", &now).Error; err != nil {
			return nil, 0, fmt.Errorf("zones: finalizing generation %d: %w", current.Generation, err)
		}
	}

	next := geo.ZoneGeneration{ZoneID: zone.ID, Generation: gen}
	if err := tx.Create(&next).Error; err != nil {
		return nil, 0, fmt.Errorf("zones: creating generation %d: %w", gen, err)
	}
	return &zone, gen, nil
}

// ZoneInfo is one row of the zone listing.
type ZoneInfo struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	OsmnxName  string `json:"osmnx_name"`
	Generation int    `json:"generation"`
}

// ListZones returns every imported zone with its current generation.
func ListZones(ctx context.Context, d *gorm.DB) ([]ZoneInfo, error) {
	var out []ZoneInfo
	err := d.WithContext(ctx).Raw(`
		SELECT z.id, z.name, z.osmnx_name, COALESCE(MAX(g.generation), 0) AS generation
		FROM rubbish.zones z
		LEFT JOIN rubbish.zone_generations g ON g.zone_id = z.id
		GROUP BY z.id, z.name, z.osmnx_name
		ORDER BY z.id`).Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("zones: listing zones: %w", err)
	}
	return out, nil
}
