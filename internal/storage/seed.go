package storage

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"whereabouts/backend/internal/models"
)

// defaultLocations are the permanent locations every fresh deployment
// starts with.
var defaultLocations = []models.Location{
	{ID: "office", Name: "Büro", Description: "Arbeitsplatz im Hauptgebäude", Icon: "Briefcase", Color: "bg-blue-500", IsActive: true},
	{ID: "cafe", Name: "Café Central", Description: "Gemütliches Café in der Innenstadt", Icon: "Coffee", Color: "bg-amber-500", IsActive: true},
	{ID: "gym", Name: "Fitnessstudio", Description: "Modernes Fitnessstudio mit Geräten", Icon: "Dumbbell", Color: "bg-red-500", IsActive: true},
	{ID: "library", Name: "Stadtbibliothek", Description: "Ruhiger Ort zum Lernen und Lesen", Icon: "Book", Color: "bg-green-500", IsActive: true},
	{ID: "mall", Name: "Einkaufszentrum", Description: "Shopping und Freizeit", Icon: "ShoppingBag", Color: "bg-purple-500", IsActive: true},
	{ID: "coworking", Name: "Co-Working Space", Description: "Flexibler Arbeitsplatz", Icon: "Users", Color: "bg-teal-500", IsActive: true},
}

// SeedLocations inserts the default permanent locations, leaving any
// that already exist untouched.
func (s *Service) SeedLocations(ctx context.Context) error {
	locations := make([]models.Location, len(defaultLocations))
	copy(locations, defaultLocations)
	return s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&locations).Error
}

// AutoMigrate creates or updates the schema for every model this
// service owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Location{},
		&models.CheckIn{},
		&models.HelpRequest{},
	)
}
