package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-leads-backend/internal/domain"
)

// UpsertServices inserts or updates catalog services by primary key.
func UpsertServices(ctx context.Context, db *gorm.DB, items []domain.Service) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"slug", "name"}),
	}).Create(&items).Error
}

// UpsertCities inserts or updates catalog cities by primary key.
func UpsertCities(ctx context.Context, db *gorm.DB, items []domain.City) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"slug", "name", "state"}),
	}).Create(&items).Error
}

// ListServices returns every catalog service.
func ListServices(ctx context.Context, db *gorm.DB) ([]domain.Service, error) {
	var out []domain.Service
	err := db.WithContext(ctx).Order("name ASC").Find(&out).Error
	return out, err
}

// ListCities returns every catalog city.
func ListCities(ctx context.Context, db *gorm.DB) ([]domain.City, error) {
	var out []domain.City
	err := db.WithContext(ctx).Order("name ASC").Find(&out).Error
	return out, err
}
