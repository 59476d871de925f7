package engine

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"customeriq/api/models"
)

func TestEstimateColdStart(t *testing.T) {
	e := NewEstimator(DefaultConfig(), fixedClock)
	p := NewProfileBuilder(fixedClock).Build("ghost", nil)

	pred := e.Estimate(p)
	assert.Equal(t, "Browse", pred.NextAction)
	assert.Zero(t, pred.PurchaseProbability)
	assert.Equal(t, 100.0, pred.ChurnRisk)
	assert.Zero(t, pred.CLV)
}

func TestEstimateBounds(t *testing.T) {
	e := NewEstimator(DefaultConfig(), fixedClock)
	b := NewProfileBuilder(fixedClock)

	// A heavy buyer: many purchase signals in one session saturate the
	// probability at 100, never beyond.
	var events []models.Event
	for i := 0; i < 30; i++ {
		events = append(events, purchaseEv("u1", 20, testNow.Add(-time.Duration(i)*time.Minute)))
	}
	pred := e.Estimate(b.Build("u1", events))

	assert.Equal(t, 100.0, pred.PurchaseProbability)
	assert.GreaterOrEqual(t, pred.ChurnRisk, 0.0)
	assert.LessOrEqual(t, pred.ChurnRisk, 100.0)
}

func TestEstimatePurchaseProbabilityMonotonic(t *testing.T) {
	e := NewEstimator(DefaultConfig(), fixedClock)
	b := NewProfileBuilder(fixedClock)

	low := b.Build("u1", []models.Event{
		ev("u1", "i1", "electronics", "add_to_cart", testNow.Add(-time.Hour)),
		ev("u1", "i2", "electronics", "view", testNow.Add(-time.Hour)),
	})
	high := b.Build("u1", []models.Event{
		ev("u1", "i1", "electronics", "add_to_cart", testNow.Add(-time.Hour)),
		ev("u1", "i2", "electronics", "add_to_cart", testNow.Add(-time.Hour)),
		purchaseEv("u1", 30, testNow.Add(-time.Hour)),
	})

	assert.Greater(t, e.Estimate(high).PurchaseProbability, e.Estimate(low).PurchaseProbability)
}

func TestEstimateChurnGrowsWithInactivity(t *testing.T) {
	cfg := DefaultConfig()
	e := NewEstimator(cfg, fixedClock)
	b := NewProfileBuilder(fixedClock)

	recent := e.Estimate(b.Build("u1", []models.Event{ev("u1", "i1", "books", "view", testNow.Add(-time.Hour))}))
	dormant := e.Estimate(b.Build("u1", []models.Event{ev("u1", "i1", "books", "view", testNow.Add(-90*24*time.Hour))}))

	assert.Less(t, recent.ChurnRisk, dormant.ChurnRisk)

	// churn = 100 - 100*exp(-days/halfLife)
	expected := 100 - 100*math.Exp(-90/cfg.ChurnHalfLifeDays)
	assert.InDelta(t, expected, dormant.ChurnRisk, 1e-6)
}

func TestEstimateCLV(t *testing.T) {
	cfg := DefaultConfig()
	e := NewEstimator(cfg, fixedClock)
	b := NewProfileBuilder(fixedClock)

	p := b.Build("u1", []models.Event{purchaseEv("u1", 100, testNow.Add(-time.Hour))})
	pred := e.Estimate(p)
	assert.InDelta(t, 100*cfg.RemainingYears*cfg.RepeatPurchaseFactor, pred.CLV, 1e-9)
}

func TestEstimateNextAction(t *testing.T) {
	e := NewEstimator(DefaultConfig(), fixedClock)
	b := NewProfileBuilder(fixedClock)

	// Fresh activity with strong buying signals: purchase wins.
	var buying []models.Event
	for i := 0; i < 4; i++ {
		buying = append(buying, purchaseEv("u1", 20, testNow.Add(-time.Duration(i)*time.Hour)))
	}
	pred := e.Estimate(b.Build("u1", buying))
	require.Greater(t, pred.PurchaseProbability, browseBaseline)
	assert.Equal(t, "Purchase", pred.NextAction)

	// A long-dormant browser: churn dominates.
	dormant := e.Estimate(b.Build("u1", []models.Event{
		ev("u1", "i1", "books", "view", testNow.Add(-120*24*time.Hour)),
	}))
	assert.Equal(t, "Churn Risk", dormant.NextAction)

	// Mild activity, nothing dominant: the Browse default holds.
	mild := e.Estimate(b.Build("u1", []models.Event{
		ev("u1", "i1", "books", "view", testNow.Add(-time.Hour)),
		ev("u1", "i2", "books", "add_to_cart", testNow.Add(-time.Hour)),
	}))
	assert.Equal(t, "Browse", mild.NextAction)
}
