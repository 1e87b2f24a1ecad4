package models

import "time"

// LocationUser is one occupant inside a LocationView.
type LocationUser struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CheckedInAt time.Time `json:"checkedInAt"`
}

// LocationView is the read model served to clients: a location joined
// with its current occupants. It is recomputed on every read, never stored.
type LocationView struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Icon         string         `json:"icon"`
	Color        string         `json:"color"`
	IsActive     bool           `json:"isActive"`
	IsTemporary  bool           `json:"isTemporary"`
	CreatedBy    *string        `json:"createdBy,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	Users        int            `json:"users"`
	CurrentUsers []LocationUser `json:"currentUsers"`
}

// LocationRef is the compact location shape embedded in check-in and
// help-request views.
type LocationRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
}

// UserRef is the compact user shape embedded in other views.
type UserRef struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email *string `json:"email"`
}

// CheckInView is a check-in row with its user and location denormalized.
type CheckInView struct {
	ID           string      `json:"id"`
	UserID       string      `json:"userId"`
	LocationID   string      `json:"locationId"`
	CheckedInAt  time.Time   `json:"checkedInAt"`
	CheckedOutAt *time.Time  `json:"checkedOutAt"`
	IsActive     bool        `json:"isActive"`
	User         UserRef     `json:"user"`
	Location     LocationRef `json:"location"`
}

// HelpRequestView is a help request with requester, optional target and
// location denormalized.
type HelpRequestView struct {
	ID           string      `json:"id"`
	RequesterID  string      `json:"requesterId"`
	LocationID   string      `json:"locationId"`
	TargetUserID *string     `json:"targetUserId"`
	Message      *string     `json:"message"`
	Status       string      `json:"status"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
	Requester    UserRef     `json:"requester"`
	TargetUser   *UserRef    `json:"targetUser"`
	Location     LocationRef `json:"location"`
}

// NewCheckInView flattens a CheckIn row (with preloaded User and
// Location) into its wire shape.
func NewCheckInView(c *CheckIn) CheckInView {
	return CheckInView{
		ID:           c.ID,
		UserID:       c.UserID,
		LocationID:   c.LocationID,
		CheckedInAt:  c.CheckedInAt,
		CheckedOutAt: c.CheckedOutAt,
		IsActive:     c.IsActive,
		User: UserRef{
			ID:    c.User.ID,
			Name:  c.User.Name,
			Email: c.User.Email,
		},
		Location: LocationRef{
			ID:          c.Location.ID,
			Name:        c.Location.Name,
			Description: c.Location.Description,
			Icon:        c.Location.Icon,
			Color:       c.Location.Color,
		},
	}
}

// NewLocationView flattens a Location row (with preloaded active
// check-ins and their users) into its wire shape.
func NewLocationView(l *Location) LocationView {
	current := make([]LocationUser, 0, len(l.CheckIns))
	for i := range l.CheckIns {
		ci := &l.CheckIns[i]
		current = append(current, LocationUser{
			ID:          ci.User.ID,
			Name:        ci.User.Name,
			CheckedInAt: ci.CheckedInAt,
		})
	}
	return LocationView{
		ID:           l.ID,
		Name:         l.Name,
		Description:  l.Description,
		Icon:         l.Icon,
		Color:        l.Color,
		IsActive:     l.IsActive,
		IsTemporary:  l.IsTemporary,
		CreatedBy:    l.CreatedBy,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
		Users:        len(current),
		CurrentUsers: current,
	}
}

// NewHelpRequestView flattens a HelpRequest row (with preloaded
// relations) into its wire shape.
func NewHelpRequestView(h *HelpRequest) HelpRequestView {
	v := HelpRequestView{
		ID:           h.ID,
		RequesterID:  h.RequesterID,
		LocationID:   h.LocationID,
		TargetUserID: h.TargetUserID,
		Message:      h.Message,
		Status:       h.Status,
		CreatedAt:    h.CreatedAt,
		UpdatedAt:    h.UpdatedAt,
		Requester: UserRef{
			ID:    h.Requester.ID,
			Name:  h.Requester.Name,
			Email: h.Requester.Email,
		},
		Location: LocationRef{
			ID:          h.Location.ID,
			Name:        h.Location.Name,
			Description: h.Location.Description,
			Icon:        h.Location.Icon,
			Color:       h.Location.Color,
		},
	}
	if h.TargetUser != nil {
		v.TargetUser = &UserRef{
			ID:    h.TargetUser.ID,
			Name:  h.TargetUser.Name,
			Email: h.TargetUser.Email,
		}
	}
	return v
}
