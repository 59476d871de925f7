package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"customeriq/api/models"
	"customeriq/api/store"
)

// scenarioStore seeds a catalog where user u1 has an all-electronics
// history including one purchase, item X (electronics) has popularity 10
// and item Y (books) popularity 50 from crowd traffic.
func scenarioStore(t *testing.T) *store.EventStore {
	t.Helper()
	s := store.NewEventStore()
	day := 24 * time.Hour

	views := []models.Event{
		ev("u1", "P1", "electronics", "view", testNow.Add(-3*day)),
		ev("u1", "P1", "electronics", "view", testNow.Add(-2*day)),
		ev("u1", "P1", "electronics", "view", testNow.Add(-1*day)),
	}
	purchase := ev("u1", "P1", "electronics", "purchase", testNow.Add(-12*time.Hour))
	purchase.Price = 50
	for _, e := range append(views, purchase) {
		e.ItemName = "Speaker"
		s.Append(e)
	}

	for i := 0; i < 10; i++ {
		e := ev(fmt.Sprintf("crowd%d", i), "X", "electronics", "view", testNow.Add(-2*day))
		e.ItemName = "Headphones"
		s.Append(e)
	}
	for i := 0; i < 50; i++ {
		e := ev(fmt.Sprintf("reader%d", i), "Y", "books", "view", testNow.Add(-2*day))
		e.ItemName = "Novel"
		s.Append(e)
	}
	return s
}

func newTestRecommender(s *store.EventStore, cfg Config) *Recommender {
	profiles := NewProfileBuilder(fixedClock)
	return NewRecommender(cfg, s, profiles, NewLiveScorer(cfg, fixedClock))
}

func TestRecommendAffinityOutranksPopularity(t *testing.T) {
	r := newTestRecommender(scenarioStore(t), DefaultConfig())

	recs, err := r.Recommend("u1", 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	// X wins on affinity despite Y's five-fold popularity lead.
	assert.Equal(t, "X", recs[0].ItemID)
	assert.Equal(t, "Y", recs[1].ItemID)
	assert.Contains(t, recs[0].Feedback, "browsing history")
}

func TestRecommendExcludesPurchasedItems(t *testing.T) {
	r := newTestRecommender(scenarioStore(t), DefaultConfig())

	recs, err := r.Recommend("u1", 10)
	require.NoError(t, err)
	for _, rec := range recs {
		assert.NotEqual(t, "P1", rec.ItemID, "purchased items must not be re-recommended")
	}
	// Fewer than k items remain after exclusion: return all, no padding.
	assert.Len(t, recs, 2)
}

func TestRecommendOrderingAndBounds(t *testing.T) {
	r := newTestRecommender(scenarioStore(t), DefaultConfig())

	recs, err := r.Recommend("u1", 1)
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	recs, err = r.Recommend("u1", 5)
	require.NoError(t, err)
	for i := 1; i < len(recs); i++ {
		assert.GreaterOrEqual(t, recs[i-1].Score, recs[i].Score, "scores must be non-increasing")
	}
	for _, rec := range recs {
		assert.GreaterOrEqual(t, rec.Score, 0.0)
		assert.LessOrEqual(t, rec.Score, 100.0)
	}
}

func TestRecommendIdempotent(t *testing.T) {
	r := newTestRecommender(scenarioStore(t), DefaultConfig())

	first, err := r.Recommend("u1", 5)
	require.NoError(t, err)
	second, err := r.Recommend("u1", 5)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRecommendColdStartUser(t *testing.T) {
	r := newTestRecommender(scenarioStore(t), DefaultConfig())

	recs, err := r.Recommend("never-seen-user", 5)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	// Pure popularity ranking: Y (50) > X (10) > P1 (4).
	assert.Equal(t, "Y", recs[0].ItemID)
	assert.Equal(t, "X", recs[1].ItemID)
	assert.Equal(t, "P1", recs[2].ItemID)
	assert.Equal(t, "Popular with other shoppers", recs[0].Feedback)
}

func TestRecommendRejectUnknownUsers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RejectUnknownUsers = true
	r := newTestRecommender(scenarioStore(t), cfg)

	_, err := r.Recommend("never-seen-user", 5)
	require.ErrorIs(t, err, ErrUnknownUser)

	// Known users are unaffected by the policy.
	recs, err := r.Recommend("u1", 2)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestRecommendTieBreaks(t *testing.T) {
	s := store.NewEventStore()
	// Three items, same category, same popularity except b2 > a1 = c3.
	for i, id := range []string{"c3", "a1", "b2", "b2"} {
		s.Append(ev(fmt.Sprintf("crowd%d", i), id, "misc", "view", testNow.Add(-time.Hour)))
	}

	r := newTestRecommender(s, DefaultConfig())
	recs, err := r.Recommend("never-seen-user", 3)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	// Higher popularity first, then lexicographic item ID.
	assert.Equal(t, "b2", recs[0].ItemID)
	assert.Equal(t, "a1", recs[1].ItemID)
	assert.Equal(t, "c3", recs[2].ItemID)
}

func TestRecommendZeroK(t *testing.T) {
	r := newTestRecommender(scenarioStore(t), DefaultConfig())
	recs, err := r.Recommend("u1", 0)
	require.NoError(t, err)
	assert.Empty(t, recs)
}
