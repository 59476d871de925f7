// api/engine/recommender.go
package engine

import (
	"errors"
	"fmt"
	"sort"

	"customeriq/api/models"
	"customeriq/api/store"
)

// ErrUnknownUser is returned by Recommend only when the deployment opts out
// of the cold-start fallback via Config.RejectUnknownUsers.
var ErrUnknownUser = errors.New("unknown user")

// Recommender orchestrates scoring over the candidate item set and returns
// ranked, deduplicated top-K recommendations.
type Recommender struct {
	cfg      Config
	events   *store.EventStore
	profiles *ProfileBuilder
	scorer   Scorer
}

func NewRecommender(cfg Config, events *store.EventStore, profiles *ProfileBuilder, scorer Scorer) *Recommender {
	return &Recommender{
		cfg:      cfg,
		events:   events,
		profiles: profiles,
		scorer:   scorer,
	}
}

// Recommend returns up to k recommendations for the user, sorted by
// non-increasing score. Items the user already purchased are excluded;
// viewed or clicked items may reappear. Users with no events get a
// popularity-only cold-start ranking unless the deployment rejects them.
func (r *Recommender) Recommend(userID string, k int) ([]models.Recommendation, error) {
	if k <= 0 {
		return nil, nil
	}

	userEvents := r.events.EventsFor(userID)
	if len(userEvents) == 0 && r.cfg.RejectUnknownUsers {
		return nil, fmt.Errorf("recommend %q: %w", userID, ErrUnknownUser)
	}

	profile := r.profiles.Build(userID, userEvents)
	return r.RecommendForProfile(profile, userEvents, k), nil
}

// RejectsUnknownUsers reports whether users with no recorded events are
// refused rather than served the cold-start ranking.
func (r *Recommender) RejectsUnknownUsers() bool {
	return r.cfg.RejectUnknownUsers
}

// RecommendForProfile scores the catalog against an already-built profile.
// Split out so the combined-insights path builds the profile once.
func (r *Recommender) RecommendForProfile(profile models.UserProfile, userEvents []models.Event, k int) []models.Recommendation {
	if k <= 0 {
		return nil
	}

	purchased := make(map[string]struct{})
	for _, ev := range userEvents {
		if ev.EventType == models.EventPurchase {
			purchased[ev.ItemID] = struct{}{}
		}
	}

	cat := NewCatalog(r.events.AllItems())

	type scored struct {
		item   models.Item
		score  float64
		signal Signal
	}
	candidates := make([]scored, 0, len(cat.Items))
	for _, item := range cat.Items {
		if _, ok := purchased[item.ItemID]; ok {
			continue
		}
		score, signal := r.scorer.Score(profile, item, cat)
		candidates = append(candidates, scored{item: item, score: score, signal: signal})
	}

	// Descending score; ties broken by higher popularity, then item ID, so
	// identical inputs always produce identical output.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].item.PopularityCount != candidates[j].item.PopularityCount {
			return candidates[i].item.PopularityCount > candidates[j].item.PopularityCount
		}
		return candidates[i].item.ItemID < candidates[j].item.ItemID
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}

	recs := make([]models.Recommendation, 0, len(candidates))
	for _, c := range candidates {
		recs = append(recs, models.Recommendation{
			ItemID:   c.item.ItemID,
			ItemName: c.item.ItemName,
			Category: c.item.Category,
			Score:    c.score,
			Feedback: feedbackFor(c.signal, c.item),
		})
	}
	return recs
}

// feedbackFor renders the human-readable explanation for the dominant
// scoring signal.
func feedbackFor(signal Signal, item models.Item) string {
	switch signal {
	case SignalAffinity:
		if item.Category != "" {
			return fmt.Sprintf("Based on your browsing history in %s", item.Category)
		}
		return "Based on your browsing history"
	case SignalRecency:
		if item.Category != "" {
			return fmt.Sprintf("Because you shopped %s recently", item.Category)
		}
		return "Because of your recent activity"
	case SignalColdStart:
		return "Popular with other shoppers"
	default:
		return "Trending item"
	}
}
