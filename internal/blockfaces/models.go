// Package blockfaces serves the read side of the analytics API: blockface
// statistics looked up by radius, sector, coordinate, or run.
package blockfaces

import (
	"encoding/json"

	"github.com/RubbishGeo/geo-backend/internal/geo"
)

// pageSize caps a single response so an oversized radial query cannot drag
// the database down. Deeper results are reachable through the offset param.
const pageSize = 1000

type CenterlineOut struct {
	ID             int             `json:"id"`
	Geometry       json.RawMessage `json:"geometry"`
	LengthInMeters float64         `json:"centerline_length_in_meters"`
	Name           string          `json:"centerline_name"`
}

type StatisticOut struct {
	CenterlineID       int             `json:"centerline_id"`
	CenterlineGeometry json.RawMessage `json:"centerline_geometry"`
	CenterlineLength   float64         `json:"centerline_length_in_meters"`
	CenterlineName     string          `json:"centerline_name"`
	Curb               string          `json:"curb"`
	RubbishPerMeter    float64         `json:"rubbish_per_meter"`
	NumRuns            int             `json:"num_runs"`
}

// BlockfaceOut pairs a centerline with its per-curb statistics. Curbs with no
// statistic yet are present with a null value so clients can iterate the keys
// unconditionally.
type BlockfaceOut struct {
	Centerline CenterlineOut            `json:"centerline"`
	Statistics map[string]*StatisticOut `json:"statistics"`
}

// statRow is the scan target for the centerline/statistic joins. The
// statistic columns are pointers because LEFT JOINs surface centerlines with
// no statistics at all.
type statRow struct {
	CenterlineID    int      `gorm:"column:centerline_id"`
	GeoJSON         string   `gorm:"column:geojson"`
	Name            string   `gorm:"column:name"`
	LengthInMeters  float64  `gorm:"column:length_in_meters"`
	Curb            *string  `gorm:"column:curb"`
	RubbishPerMeter *float64 `gorm:"column:rubbish_per_meter"`
	NumRuns         *int     `gorm:"column:num_runs"`
}

func emptyStatistics() map[string]*StatisticOut {
	return map[string]*StatisticOut{
		geo.CurbLeft:   nil,
		geo.CurbMiddle: nil,
		geo.CurbRight:  nil,
	}
}

// assemble folds joined rows into one BlockfaceOut per centerline, keeping
// the row order for the first appearance of each centerline. With includeNA
// unset, centerlines that have no statistic on any curb are dropped.
func assemble(rows []statRow, includeNA bool) []BlockfaceOut {
	index := map[int]int{}
	out := []BlockfaceOut{}
	for _, row := range rows {
		i, ok := index[row.CenterlineID]
		if !ok {
			index[row.CenterlineID] = len(out)
			i = len(out)
			out = append(out, BlockfaceOut{
				Centerline: CenterlineOut{
					ID:             row.CenterlineID,
					Geometry:       json.RawMessage(row.GeoJSON),
					LengthInMeters: row.LengthInMeters,
					Name:           row.Name,
				},
				Statistics: emptyStatistics(),
			})
		}
		if row.Curb != nil {
			out[i].Statistics[*row.Curb] = &StatisticOut{
				CenterlineID:       row.CenterlineID,
				CenterlineGeometry: json.RawMessage(row.GeoJSON),
				CenterlineLength:   row.LengthInMeters,
				CenterlineName:     row.Name,
				Curb:               *row.Curb,
				RubbishPerMeter:    *row.RubbishPerMeter,
				NumRuns:            *row.NumRuns,
			}
		}
	}

	if includeNA {
		return out
	}
	filtered := out[:0]
	for _, bf := range out {
		if bf.Statistics[geo.CurbLeft] != nil ||
			bf.Statistics[geo.CurbMiddle] != nil ||
			bf.Statistics[geo.CurbRight] != nil {
			filtered = append(filtered, bf)
		}
	}
	return filtered
}
