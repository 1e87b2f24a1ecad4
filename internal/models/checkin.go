package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CheckIn is one presence session. A user has at most one row with
// IsActive=true at any instant; that row's location is where they are.
type CheckIn struct {
	ID           string     `gorm:"primaryKey" json:"id"`
	UserID       string     `gorm:"not null;index" json:"userId"`
	LocationID   string     `gorm:"not null;index" json:"locationId"`
	CheckedInAt  time.Time  `gorm:"autoCreateTime" json:"checkedInAt"`
	CheckedOutAt *time.Time `json:"checkedOutAt"`
	IsActive     bool       `gorm:"default:true;index" json:"isActive"`

	User     User     `gorm:"foreignKey:UserID" json:"user"`
	Location Location `gorm:"foreignKey:LocationID" json:"location"`
}

func (c *CheckIn) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}
