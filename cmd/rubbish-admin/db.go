package main

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/RubbishGeo/geo-backend/internal/config"
)

// openDB connects using the configured connstr (env override first, then the
// ~/.rubbish/config profile).
func openDB() (*gorm.DB, error) {
	connstr, err := config.Connstr()
	if err != nil {
		return nil, err
	}
	d, err := gorm.Open(postgres.Open(connstr), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return d, nil
}
