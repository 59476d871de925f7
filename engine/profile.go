// api/engine/profile.go
package engine

import (
	"time"

	"github.com/rs/zerolog/log"

	"customeriq/api/models"
)

// ProfileBuilder aggregates raw events into per-user behavioral summaries.
// Building is a single pass and allocates a fresh profile every call.
type ProfileBuilder struct {
	now func() time.Time
}

// NewProfileBuilder returns a builder using the given clock. Pass time.Now
// in production; tests inject a fixed instant for deterministic recency.
func NewProfileBuilder(now func() time.Time) *ProfileBuilder {
	if now == nil {
		now = time.Now
	}
	return &ProfileBuilder{now: now}
}

// Build derives a UserProfile from the user's events. An empty event
// sequence yields a cold-start profile with all-zero counts; downstream
// components must special-case ColdStart instead of dividing by zero.
func (b *ProfileBuilder) Build(userID string, events []models.Event) models.UserProfile {
	profile := models.UserProfile{
		UserID:          userID,
		CategoryCounts:  make(map[string]int),
		CategoryRecency: make(map[string]time.Time),
		EventTypeCounts: make(map[string]int),
	}

	if len(events) == 0 {
		profile.ColdStart = true
		profile.SessionCount = 0
		return profile
	}

	viewedItems := make(map[string]struct{})
	sessions := make(map[string]struct{})

	for _, ev := range events {
		if ev.Category != "" {
			profile.CategoryCounts[ev.Category]++
			if ev.Timestamp.After(profile.CategoryRecency[ev.Category]) {
				profile.CategoryRecency[ev.Category] = ev.Timestamp
			}
		}
		profile.EventTypeCounts[ev.EventType]++

		if ev.EventType == models.EventPurchase {
			if ev.Price <= 0 {
				log.Warn().Str("user_id", userID).Str("event_id", ev.EventID).
					Msg("Purchase event without price, counting as zero spend")
			} else {
				profile.TotalSpend += ev.Price
			}
		}
		if ev.EventType == models.EventView {
			viewedItems[ev.ItemID] = struct{}{}
		}
		if ev.SessionID != "" {
			sessions[ev.SessionID] = struct{}{}
		}
		if ev.Timestamp.After(profile.LastEventAt) {
			profile.LastEventAt = ev.Timestamp
		}
	}

	profile.DistinctItemsViewed = len(viewedItems)
	profile.SessionCount = len(sessions)
	if profile.SessionCount == 0 {
		// No session identifiers recorded; treat the history as one session.
		profile.SessionCount = 1
	}

	return profile
}
