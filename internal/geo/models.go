// Package geo holds the analytics database models and the geometry helpers
// shared by the write and query paths. Geometry columns are PostGIS; values
// travel as EWKT strings through raw ST_* SQL, and the models' geometry fields
// are only scanned from ST_AsText projections.
package geo

import (
	"time"
)

// Curb side of a blockface. "middle" exists for medians and plazas.
const (
	CurbLeft   = "left"
	CurbRight  = "right"
	CurbMiddle = "middle"
)

// ValidCurb reports whether s is a known curb value.
func ValidCurb(s string) bool {
	return s == CurbLeft || s == CurbRight || s == CurbMiddle
}

// RubbishTypes is the supported pickup type vocabulary. Unknown types coerce
// to "other" at the API boundary.
var RubbishTypes = map[string]bool{
	"tobacco": true,
	"paper":   true,
	"plastic": true,
	"other":   true,
	"food":    true,
	"glass":   true,
}

// Zone is a municipality whose street grid has been imported.
type Zone struct {
	ID          int    `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"size:64;not null"`
	OsmnxName   string `json:"osmnx_name" gorm:"column:osmnx_name;size:64;not null"`
	BoundingBox string `json:"-" gorm:"column:bounding_box;type:geometry(POLYGON,4326)"`
}

func (Zone) TableName() string { return "rubbish.zones" }

// ZoneGeneration versions a zone's street grid. Centerlines carry the
// generation span they were valid for, so grid reimports never orphan old
// pickups.
type ZoneGeneration struct {
	ID             int        `json:"id" gorm:"primaryKey"`
	ZoneID         int        `json:"zone_id" gorm:"not null"`
	Generation     int        `json:"generation" gorm:"not null"`
	FinalTimestamp *time.Time `json:"final_timestamp"`
}

func (ZoneGeneration) TableName() string { return "rubbish.zone_generations" }

// Sector is a named polygon used for area queries (e.g. a neighborhood).
type Sector struct {
	ID       int    `json:"id" gorm:"primaryKey"`
	Name     string `json:"name" gorm:"uniqueIndex;not null"`
	Geometry string `json:"-" gorm:"type:geometry(POLYGON,4326)"`
}

func (Sector) TableName() string { return "rubbish.sectors" }

// Centerline is one street segment of a zone's grid.
type Centerline struct {
	ID                  int     `json:"id" gorm:"primaryKey"`
	Geometry            string  `json:"-" gorm:"type:geometry(LINESTRING,4326)"`
	FirstZoneGeneration int     `json:"first_zone_generation" gorm:"not null"`
	LastZoneGeneration  *int    `json:"last_zone_generation"`
	ZoneID              int     `json:"zone_id" gorm:"not null"`
	Osmid               int64   `json:"osmid" gorm:"not null"`
	Name                string  `json:"name" gorm:"not null"`
	LengthInMeters      float64 `json:"length_in_meters" gorm:"column:length_in_meters;not null"`
}

func (Centerline) TableName() string { return "rubbish.centerlines" }

// Pickup is one geolocated observation, snapped to its matched centerline.
// FirebaseID is the source pickup document id; FirebaseRunID is the run the
// pickup belongs to.
type Pickup struct {
	ID              int64     `json:"id" gorm:"primaryKey"`
	FirebaseID      string    `json:"firebase_id" gorm:"not null"`
	FirebaseRunID   string    `json:"firebase_run_id" gorm:"not null;index"`
	CenterlineID    int       `json:"centerline_id" gorm:"not null"`
	Type            string    `json:"type" gorm:"not null"`
	Timestamp       time.Time `json:"timestamp" gorm:"not null"`
	Geometry        string    `json:"-" gorm:"type:geometry(POINT,4326)"`
	SnappedGeometry string    `json:"-" gorm:"column:snapped_geometry;type:geometry(POINT,4326)"`
	LinearReference float64   `json:"linear_reference" gorm:"not null"`
	Curb            string    `json:"curb" gorm:"not null"`
}

func (Pickup) TableName() string { return "rubbish.pickups" }

// BlockfaceStatistic is the running rubbish density for one (centerline, curb)
// pair, updated as an incremental mean over runs.
type BlockfaceStatistic struct {
	ID              int     `json:"id" gorm:"primaryKey"`
	CenterlineID    int     `json:"centerline_id" gorm:"not null;uniqueIndex:idx_blockface_centerline_curb"`
	Curb            string  `json:"curb" gorm:"not null;uniqueIndex:idx_blockface_centerline_curb"`
	RubbishPerMeter float64 `json:"rubbish_per_meter" gorm:"not null"`
	NumRuns         int     `json:"num_runs" gorm:"not null"`
}

func (BlockfaceStatistic) TableName() string { return "rubbish.blockface_statistics" }
