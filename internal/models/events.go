package models

import (
	"encoding/json"
	"time"
)

// Wire event types pushed to subscribers. Both transports (SSE and
// websocket) carry the same envelope.
const (
	EventInitial         = "initial"
	EventCheckInUpdate   = "checkin_update"
	EventCheckOutUpdate  = "checkout_update"
	EventLocationCreated = "location_created"
	EventLocationDeleted = "location_deleted"
	EventHelpRequest     = "help_request"
	EventHelpUpdate      = "help_update"
	EventHelpDelete      = "help_delete"
	EventPing            = "ping"
)

// Event is the envelope delivered to every subscriber. Origin carries
// the publishing hub's instance ID so the Redis relay can drop events it
// published itself.
type Event struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
	Origin    string          `json:"origin,omitempty"`
}

// NewEvent builds an envelope around payload. A payload that fails to
// marshal is a programming error; the event is sent without data rather
// than dropped.
func NewEvent(eventType string, payload any) Event {
	ev := Event{
		Type:      eventType,
		Timestamp: time.Now().UnixMilli(),
	}
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			ev.Data = data
		}
	}
	return ev
}

// InitialState is the full-state snapshot sent to a subscriber on
// connect.
type InitialState struct {
	Locations []LocationView `json:"locations"`
	CheckIns  []CheckInView  `json:"checkIns"`
}

// LocationDeleted is the payload of a location_deleted event.
type LocationDeleted struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// HelpDeleted is the payload of a help_delete event.
type HelpDeleted struct {
	ID          string          `json:"id"`
	HelpRequest HelpRequestView `json:"helpRequest"`
}
