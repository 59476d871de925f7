package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"customeriq/api/models"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func ev(userID, itemID, category, eventType string, ts time.Time) models.Event {
	return models.Event{
		EventID:   itemID + eventType + ts.String(),
		UserID:    userID,
		ItemID:    itemID,
		Category:  category,
		EventType: eventType,
		Timestamp: ts,
	}
}

func TestBuildProfile(t *testing.T) {
	b := NewProfileBuilder(fixedClock)
	day := 24 * time.Hour

	events := []models.Event{
		ev("u1", "i1", "electronics", "view", testNow.Add(-3*day)),
		ev("u1", "i2", "electronics", "view", testNow.Add(-2*day)),
		ev("u1", "i1", "electronics", "click", testNow.Add(-1*day)),
		ev("u1", "i3", "books", "view", testNow.Add(-5*day)),
	}
	events[0].SessionID = "s1"
	events[1].SessionID = "s2"
	events[2].SessionID = "s2"

	purchase := ev("u1", "i1", "electronics", "purchase", testNow.Add(-12*time.Hour))
	purchase.Price = 49.5
	purchase.SessionID = "s2"
	events = append(events, purchase)

	p := b.Build("u1", events)

	assert.False(t, p.ColdStart)
	assert.Equal(t, "u1", p.UserID)

	// Category counts sum to the number of category-bearing events.
	total := 0
	for _, c := range p.CategoryCounts {
		total += c
	}
	assert.Equal(t, 5, total)
	assert.Equal(t, 4, p.CategoryCounts["electronics"])
	assert.Equal(t, 1, p.CategoryCounts["books"])

	// Recency is the max timestamp seen per category.
	assert.Equal(t, testNow.Add(-12*time.Hour), p.CategoryRecency["electronics"])
	assert.Equal(t, testNow.Add(-5*day), p.CategoryRecency["books"])

	assert.Equal(t, 3, p.EventTypeCounts["view"])
	assert.Equal(t, 1, p.EventTypeCounts["purchase"])

	// Spend accumulates from purchase events only.
	assert.Equal(t, 49.5, p.TotalSpend)

	// i1 and i2 and i3 viewed; click does not count as a view.
	assert.Equal(t, 3, p.DistinctItemsViewed)
	assert.Equal(t, 2, p.SessionCount)
	assert.Equal(t, testNow.Add(-12*time.Hour), p.LastEventAt)
}

func TestBuildProfilePurchaseWithoutPrice(t *testing.T) {
	b := NewProfileBuilder(fixedClock)
	purchase := ev("u1", "i1", "electronics", "purchase", testNow)
	// Price left at zero: warn and count zero spend, never fail.
	p := b.Build("u1", []models.Event{purchase})
	assert.Equal(t, 0.0, p.TotalSpend)
	assert.Equal(t, 1, p.EventTypeCounts["purchase"])
}

func TestBuildProfileNoSessionIDs(t *testing.T) {
	b := NewProfileBuilder(fixedClock)
	p := b.Build("u1", []models.Event{ev("u1", "i1", "electronics", "view", testNow)})
	assert.Equal(t, 1, p.SessionCount)
}

func TestBuildProfileColdStart(t *testing.T) {
	b := NewProfileBuilder(fixedClock)
	p := b.Build("ghost", nil)

	require.True(t, p.ColdStart)
	assert.Empty(t, p.CategoryCounts)
	assert.Empty(t, p.EventTypeCounts)
	assert.Zero(t, p.TotalSpend)
	assert.Zero(t, p.SessionCount)
	assert.True(t, p.LastEventAt.IsZero())
}
