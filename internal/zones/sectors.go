package zones

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/RubbishGeo/geo-backend/internal/geo"
)

var ErrSectorExists = errors.New("zones: a sector with that name already exists")
var ErrSectorNotFound = errors.New("zones: no sector with that name")

// InsertSector registers a named query polygon from a GeoJSON file.
func InsertSector(ctx context.Context, d *gorm.DB, name, polygonPath string) error {
	raw, err := os.ReadFile(polygonPath)
	if err != nil {
		return fmt.Errorf("zones: reading sector file: %w", err)
	}
	ewkt, err := parseSectorPolygon(raw)
	if err != nil {
		return err
	}

	var count int64
	if err := d.WithContext(ctx).Model(&geo.Sector{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return fmt.Errorf("zones: checking sector %q: %w", name, err)
	}
	if count > 0 {
		return ErrSectorExists
	}

	err = d.WithContext(ctx).Exec(
		`INSERT INTO rubbish.sectors (name, geometry) VALUES (?, ST_GeomFromEWKT(?))`,
		name, ewkt,
	).Error
	if err != nil {
		return fmt.Errorf("zones: inserting sector %q: %w", name, err)
	}
	return nil
}

func DeleteSector(ctx context.Context, d *gorm.DB, name string) error {
	res := d.WithContext(ctx).Where("name = ?", name).Delete(&geo.Sector{})
	if res.Error != nil {
		return fmt.Errorf("zones: deleting sector %q: %w", name, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrSectorNotFound
	}
	return nil
}

func ListSectors(ctx context.Context, d *gorm.DB) ([]geo.Sector, error) {
	var out []geo.Sector
	err := d.WithContext(ctx).Raw(
		`SELECT id, name, ST_AsText(geometry) AS geometry FROM rubbish.sectors ORDER BY id`,
	).Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("zones: listing sectors: %w", err)
	}
	return out, nil
}
