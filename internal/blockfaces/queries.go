package blockfaces

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/RubbishGeo/geo-backend/internal/geo"
)

var (
	ErrSectorNotFound = errors.New("blockfaces: no sector with that name")
	ErrRunNotFound    = errors.New("blockfaces: no pickups for that run")
	ErrNoStatistics   = errors.New("blockfaces: no statistics near that coordinate")
)

// coordMaxRank bounds the rank walk for coordinate queries: past the tenth
// nearest centerline the match is no longer meaningfully "at" the coordinate.
const coordMaxRank = 10

const statJoinSelect = `
SELECT c.id AS centerline_id,
       ST_AsGeoJSON(c.geometry) AS geojson,
       c.name,
       c.length_in_meters,
       s.curb,
       s.rubbish_per_meter,
       s.num_runs
FROM rubbish.centerlines c
LEFT JOIN rubbish.blockface_statistics s ON s.centerline_id = c.id
`

// Radial returns the blockfaces whose centerline lies within distance meters
// of (x, y). The geography cast makes ST_DWithin interpret the distance in
// meters rather than degrees.
func Radial(ctx context.Context, d *gorm.DB, x, y, distance float64, includeNA bool, offset int) ([]BlockfaceOut, error) {
	ewkt := fmt.Sprintf("SRID=4326;POINT(%v %v)", x, y)
	var rows []statRow
	err := d.WithContext(ctx).Raw(statJoinSelect+`
WHERE ST_DWithin(c.geometry::geography, ST_GeomFromEWKT(?)::geography, ?)
ORDER BY c.id
LIMIT ? OFFSET ?`, ewkt, distance, pageSize, offset).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("blockfaces: radial query: %w", err)
	}
	return assemble(rows, includeNA), nil
}

// Sector returns the blockfaces whose centerline intersects the named sector.
func Sector(ctx context.Context, d *gorm.DB, name string, includeNA bool, offset int) ([]BlockfaceOut, error) {
	var count int64
	if err := d.WithContext(ctx).Model(&geo.Sector{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("blockfaces: sector lookup: %w", err)
	}
	if count == 0 {
		return nil, ErrSectorNotFound
	}

	var rows []statRow
	err := d.WithContext(ctx).Raw(statJoinSelect+`
WHERE ST_Intersects(c.geometry, (SELECT geometry FROM rubbish.sectors WHERE name = ?))
ORDER BY c.id
LIMIT ? OFFSET ?`, name, pageSize, offset).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("blockfaces: sector query: %w", err)
	}
	return assemble(rows, includeNA), nil
}

// Coord resolves (x, y) to its nearest centerline and returns that blockface.
// With includeNA unset it walks outward in rank order until it finds a
// centerline that actually has statistics, giving the caller the nearest
// street we know something about.
func Coord(ctx context.Context, d *gorm.DB, x, y float64, includeNA bool) (*BlockfaceOut, error) {
	for rank := 0; rank < coordMaxRank; rank++ {
		cl, _, err := geo.NearestCenterline(ctx, d, geo.Point{X: x, Y: y}, rank, false)
		if err != nil {
			if errors.Is(err, geo.ErrRankExceeded) || errors.Is(err, geo.ErrNoCenterlines) {
				return nil, ErrNoStatistics
			}
			return nil, err
		}
		bf, err := byCenterlineID(ctx, d, cl.ID)
		if err != nil {
			return nil, err
		}
		if includeNA {
			return bf, nil
		}
		if bf.Statistics[geo.CurbLeft] != nil ||
			bf.Statistics[geo.CurbMiddle] != nil ||
			bf.Statistics[geo.CurbRight] != nil {
			return bf, nil
		}
	}
	return nil, ErrNoStatistics
}

// Run returns the blockfaces a run touched, with each blockface carrying only
// the statistics for the curbs that run actually covered.
func Run(ctx context.Context, d *gorm.DB, firebaseRunID string, includeNA bool) ([]BlockfaceOut, error) {
	type runRow struct {
		CenterlineID int     `gorm:"column:centerline_id"`
		Curb         *string `gorm:"column:curb"`
	}
	var touched []runRow
	err := d.WithContext(ctx).Raw(
		`SELECT DISTINCT centerline_id, curb FROM rubbish.pickups WHERE firebase_run_id = ?`,
		firebaseRunID).Scan(&touched).Error
	if err != nil {
		return nil, fmt.Errorf("blockfaces: run query: %w", err)
	}
	if len(touched) == 0 {
		return nil, ErrRunNotFound
	}

	ids := make([]int, 0, len(touched))
	curbs := map[int]map[string]bool{}
	for _, t := range touched {
		if curbs[t.CenterlineID] == nil {
			curbs[t.CenterlineID] = map[string]bool{}
			ids = append(ids, t.CenterlineID)
		}
		if t.Curb != nil {
			curbs[t.CenterlineID][*t.Curb] = true
		}
	}

	var rows []statRow
	err = d.WithContext(ctx).Raw(statJoinSelect+`
WHERE c.id IN ?
ORDER BY c.id`, ids).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("blockfaces: run statistics: %w", err)
	}

	// Keep only the statistics on curbs this run covered.
	kept := rows[:0]
	for _, row := range rows {
		if row.Curb != nil && !curbs[row.CenterlineID][*row.Curb] {
			row.Curb, row.RubbishPerMeter, row.NumRuns = nil, nil, nil
		}
		kept = append(kept, row)
	}
	return assemble(kept, includeNA), nil
}

func byCenterlineID(ctx context.Context, d *gorm.DB, id int) (*BlockfaceOut, error) {
	var rows []statRow
	err := d.WithContext(ctx).Raw(statJoinSelect+`WHERE c.id = ?`, id).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("blockfaces: centerline %d: %w", id, err)
	}
	out := assemble(rows, true)
	if len(out) == 0 {
		return nil, fmt.Errorf("blockfaces: centerline %d vanished mid-query", id)
	}
	return &out[0], nil
}
