package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Help request lifecycle states.
const (
	HelpStatusActive    = "ACTIVE"
	HelpStatusResolved  = "RESOLVED"
	HelpStatusCancelled = "CANCELLED"
)

// ValidHelpStatus reports whether s is one of the known statuses.
func ValidHelpStatus(s string) bool {
	return s == HelpStatusActive || s == HelpStatusResolved || s == HelpStatusCancelled
}

// HelpRequest is a broadcasted call for help from a checked-in user.
// At most one ACTIVE request may exist per (requester, location) pair.
type HelpRequest struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	RequesterID  string    `gorm:"not null;index" json:"requesterId"`
	LocationID   string    `gorm:"not null;index" json:"locationId"`
	TargetUserID *string   `json:"targetUserId"`
	Message      *string   `json:"message"`
	Status       string    `gorm:"default:ACTIVE;index" json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	Requester  User     `gorm:"foreignKey:RequesterID" json:"requester"`
	TargetUser *User    `gorm:"foreignKey:TargetUserID" json:"targetUser"`
	Location   Location `gorm:"foreignKey:LocationID" json:"location"`
}

func (h *HelpRequest) BeforeCreate(tx *gorm.DB) (err error) {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	return
}
