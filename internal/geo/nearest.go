package geo

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"
)

var (
	// ErrNoCenterlines means the zone grid has not been imported yet.
	ErrNoCenterlines = errors.New("no centerlines in the database")
	// ErrRankExceeded means fewer centerlines exist than the requested rank.
	ErrRankExceeded = errors.New("centerline rank out of range")
	// ErrTooFar means the nearest centerline at the requested rank is beyond
	// the insert distance constraint.
	ErrTooFar = errors.New("point too far from any centerline")
)

// Unrectified degree thresholds, so these distances are approximate.
const (
	warnDistanceDeg    = 0.0009 // ~100 m
	discardDistanceDeg = 0.001  // ~1 km with GPS noise margins
)

// knnCandidates bounds the two-step KNN -> ST_Distance match. See
// https://postgis.net/workshops/postgis-intro/knn.html for the pattern.
const knnCandidates = 100

type nearRow struct {
	ID                  int     `gorm:"column:id"`
	WKT                 string  `gorm:"column:wkt"`
	FirstZoneGeneration int     `gorm:"column:first_zone_generation"`
	LastZoneGeneration  *int    `gorm:"column:last_zone_generation"`
	ZoneID              int     `gorm:"column:zone_id"`
	Osmid               int64   `gorm:"column:osmid"`
	Name                string  `gorm:"column:name"`
	LengthInMeters      float64 `gorm:"column:length_in_meters"`
	Distance            float64 `gorm:"column:distance"`
}

// NearestCenterline returns the rank-th closest centerline to the point,
// along with its parsed geometry. Rank 0 is the closest match. When
// enforceDistance is set, matches beyond the discard threshold return
// ErrTooFar; local test databases disable the check because their grids are
// tiny.
func NearestCenterline(ctx context.Context, d *gorm.DB, p Point, rank int, enforceDistance bool) (*Centerline, LineString, error) {
	if rank > knnCandidates {
		return nil, nil, fmt.Errorf("cannot retrieve centerline match with rank > %d", knnCandidates)
	}

	var rows []nearRow
	err := d.WithContext(ctx).Raw(`
		WITH knn AS (
			SELECT id, geometry, first_zone_generation, last_zone_generation,
			       zone_id, osmid, name, length_in_meters
			FROM rubbish.centerlines
			ORDER BY geometry <-> ST_GeomFromEWKT(?)
			LIMIT ?
		)
		SELECT id, ST_AsText(geometry) AS wkt, first_zone_generation,
		       last_zone_generation, zone_id, osmid, name, length_in_meters,
		       ST_Distance(geometry, ST_GeomFromEWKT(?)) AS distance
		FROM knn
		ORDER BY distance
	`, p.EWKT(), knnCandidates, p.EWKT()).Scan(&rows).Error
	if err != nil {
		return nil, nil, fmt.Errorf("centerline knn query failed: %w", err)
	}

	if len(rows) == 0 {
		return nil, nil, ErrNoCenterlines
	}
	if rank >= len(rows) {
		return nil, nil, fmt.Errorf("%w: rank %d with only %d centerlines", ErrRankExceeded, rank, len(rows))
	}

	row := rows[rank]
	line, err := ParseLineStringWKT(row.WKT)
	if err != nil {
		return nil, nil, fmt.Errorf("centerline %d: %w", row.ID, err)
	}

	if enforceDistance {
		if row.Distance > discardDistanceDeg {
			return nil, nil, fmt.Errorf("%w: %s is %.4f deg from centerline %d", ErrTooFar, p.WKT(), row.Distance, row.ID)
		}
		if row.Distance > warnDistanceDeg {
			log.Printf("matching %s to centerline %d located >~100m away; potential data problems", p.WKT(), row.ID)
		}
	}

	return &Centerline{
		ID:                  row.ID,
		Geometry:            row.WKT,
		FirstZoneGeneration: row.FirstZoneGeneration,
		LastZoneGeneration:  row.LastZoneGeneration,
		ZoneID:              row.ZoneID,
		Osmid:               row.Osmid,
		Name:                row.Name,
		LengthInMeters:      row.LengthInMeters,
	}, line, nil
}
