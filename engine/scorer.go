// api/engine/scorer.go
package engine

import (
	"math"
	"time"

	"customeriq/api/models"
)

// Signal identifies which scoring component contributed most to an item's
// final score. Drives the feedback string on recommendations.
type Signal string

const (
	SignalAffinity   Signal = "affinity"
	SignalRecency    Signal = "recency"
	SignalPopularity Signal = "popularity"
	SignalColdStart  Signal = "cold_start"
)

// Catalog is a snapshot of the item set with the global stats scoring
// needs. Build it once per request from EventStore.AllItems.
type Catalog struct {
	Items         []models.Item
	MaxPopularity int
}

// NewCatalog wraps an item snapshot and precomputes the popularity ceiling.
func NewCatalog(items []models.Item) Catalog {
	maxPop := 0
	for _, item := range items {
		if item.PopularityCount > maxPop {
			maxPop = item.PopularityCount
		}
	}
	return Catalog{Items: items, MaxPopularity: maxPop}
}

// Scorer computes a relevance score in [0,100] for a (profile, item) pair
// and names the dominant signal behind it. Implementations are pure:
// scoring the same inputs twice yields identical results.
type Scorer interface {
	Score(profile models.UserProfile, item models.Item, cat Catalog) (float64, Signal)
}

// LiveScorer is the behavioral scorer: a weighted sum of category affinity,
// recency decay and global popularity, each normalized to [0,1] and scaled
// to 100. Cold-start profiles collapse to pure popularity.
type LiveScorer struct {
	cfg Config
	now func() time.Time
}

func NewLiveScorer(cfg Config, now func() time.Time) *LiveScorer {
	if now == nil {
		now = time.Now
	}
	return &LiveScorer{cfg: cfg, now: now}
}

func (s *LiveScorer) Score(profile models.UserProfile, item models.Item, cat Catalog) (float64, Signal) {
	popularity := normalizedPopularity(item, cat)
	if profile.ColdStart {
		return clampScore(popularity * 100), SignalColdStart
	}

	affinity := s.affinity(profile, item)
	recency := s.recency(profile, item)

	weightedAffinity := s.cfg.AffinityWeight * affinity
	weightedRecency := s.cfg.RecencyWeight * recency
	weightedPopularity := s.cfg.PopularityWeight * popularity

	score := (weightedAffinity + weightedRecency + weightedPopularity) * 100

	dominant := SignalAffinity
	best := weightedAffinity
	if weightedRecency > best {
		dominant, best = SignalRecency, weightedRecency
	}
	if weightedPopularity > best {
		dominant = SignalPopularity
	}

	return clampScore(score), dominant
}

// affinity is the user's interaction count with the item's category,
// normalized by the strongest category. Zero for unseen categories.
func (s *LiveScorer) affinity(profile models.UserProfile, item models.Item) float64 {
	count := profile.CategoryCounts[item.Category]
	if count == 0 {
		return 0
	}
	maxCount := 0
	for _, c := range profile.CategoryCounts {
		if c > maxCount {
			maxCount = c
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}
	return float64(count) / float64(maxCount)
}

// recency decays exponentially with time since the user last touched the
// item's category. Zero for unseen categories.
func (s *LiveScorer) recency(profile models.UserProfile, item models.Item) float64 {
	last, ok := profile.CategoryRecency[item.Category]
	if !ok {
		return 0
	}
	elapsed := s.now().Sub(last)
	if elapsed < 0 {
		elapsed = 0
	}
	return math.Exp(-elapsed.Seconds() / s.cfg.RecencyHalfLife.Seconds())
}

// FallbackScorer ranks purely by global popularity. Deployments select it
// when behavioral scoring is disabled or its inputs are unavailable.
type FallbackScorer struct{}

func (FallbackScorer) Score(_ models.UserProfile, item models.Item, cat Catalog) (float64, Signal) {
	return clampScore(normalizedPopularity(item, cat) * 100), SignalPopularity
}

func normalizedPopularity(item models.Item, cat Catalog) float64 {
	maxPop := cat.MaxPopularity
	if maxPop == 0 {
		maxPop = 1
	}
	return float64(item.PopularityCount) / float64(maxPop)
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
