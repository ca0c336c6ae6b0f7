package database

import (
	"busline/internal/reservations"
	"busline/internal/trips"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&trips.Trip{},
		&reservations.Reservation{},
	)
}
