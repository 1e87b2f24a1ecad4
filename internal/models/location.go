package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Fixed appearance for user-created temporary locations.
const (
	TemporaryLocationIcon        = "MapPin"
	TemporaryLocationColor       = "bg-orange-500"
	TemporaryLocationDescription = "Temporäre Check-in-Karte"
)

// Location is a place users can check into. Permanent locations are
// seeded; temporary ones are user-created and hard-deleted by the reaper
// once they are empty.
type Location struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Color       string    `json:"color"`
	IsActive    bool      `gorm:"default:true" json:"isActive"`
	IsTemporary bool      `gorm:"default:false" json:"isTemporary"`
	CreatedBy   *string   `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	CheckIns []CheckIn `gorm:"foreignKey:LocationID;constraint:OnDelete:CASCADE" json:"-"`
}

func (l *Location) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return
}
