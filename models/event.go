// api/models/event.go
package models

import "time"

// Recognised event types. Anything else is rejected at the ingestion
// boundary.
const (
	EventView      = "view"
	EventClick     = "click"
	EventAddToCart = "add_to_cart"
	EventPurchase  = "purchase"
	EventSearch    = "search"
)

// ValidEventType reports whether t is one of the recognised event types.
func ValidEventType(t string) bool {
	switch t {
	case EventView, EventClick, EventAddToCart, EventPurchase, EventSearch:
		return true
	default:
		return false
	}
}

// Event is a single recorded customer interaction. Events are immutable
// once appended to the store.
type Event struct {
	EventID          string    `json:"eventId"`
	UserID           string    `json:"userId"`
	ItemID           string    `json:"itemId"`
	ItemName         string    `json:"itemName,omitempty"`
	Category         string    `json:"category,omitempty"`
	EventType        string    `json:"eventType"`
	Timestamp        time.Time `json:"timestamp"`
	SessionID        string    `json:"sessionId,omitempty"`
	TimeSpentSeconds float64   `json:"timeSpentSeconds,omitempty"`
	Price            float64   `json:"price,omitempty"`
}

// TrackEventRequest is the wire shape accepted by the tracking endpoints.
// EventID and IP-derived fields are filled in server side.
type TrackEventRequest struct {
	UserID           string    `json:"userId" binding:"required"`
	ItemID           string    `json:"itemId" binding:"required"`
	ItemName         string    `json:"itemName"`
	Category         string    `json:"category"`
	EventType        string    `json:"eventType" binding:"required"`
	Timestamp        time.Time `json:"timestamp"`
	SessionID        string    `json:"sessionId"`
	TimeSpentSeconds float64   `json:"timeSpentSeconds"`
	Price            float64   `json:"price"`
}

// Item is a catalog entry derived from the event log.
type Item struct {
	ItemID          string  `json:"itemId"`
	ItemName        string  `json:"itemName"`
	Category        string  `json:"category"`
	Price           float64 `json:"price"`
	PopularityCount int     `json:"popularityCount"`
}

// Recommendation is one ranked suggestion returned to a caller. Score is
// always within [0,100]; Feedback explains the dominant signal behind it.
type Recommendation struct {
	ItemID   string  `json:"itemId"`
	ItemName string  `json:"itemName"`
	Category string  `json:"category"`
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}
