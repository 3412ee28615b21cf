package pickups

import (
	"log"

	"github.com/RubbishGeo/geo-backend/internal/auth"
	"github.com/RubbishGeo/geo-backend/internal/db"
	"github.com/RubbishGeo/geo-backend/internal/geo"
)

func Init() {
	// Ensure the rubbish schema and PostGIS exist first
	if err := db.EnsureSchema(db.DB, "rubbish"); err != nil {
		log.Fatal("Failed to create rubbish schema: ", err)
	}
	if err := db.EnsurePostGIS(db.DB); err != nil {
		log.Fatal("Failed to install PostGIS: ", err)
	}

	if err := db.DB.AutoMigrate(
		&geo.Zone{}, &geo.ZoneGeneration{}, &geo.Sector{},
		&geo.Centerline{}, &geo.Pickup{}, &geo.BlockfaceStatistic{},
		&auth.APIKey{},
	); err != nil {
		log.Fatal("Failed to auto-migrate tables", err)
	}
}
