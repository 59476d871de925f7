// api/models/insights.go
package models

import "time"

// UserProfile is the per-user behavioral summary derived from the event
// log. Profiles are rebuilt per request and never persisted.
type UserProfile struct {
	UserID              string               `json:"userId"`
	CategoryCounts      map[string]int       `json:"categoryCounts"`
	CategoryRecency     map[string]time.Time `json:"categoryRecency"`
	EventTypeCounts     map[string]int       `json:"eventTypeCounts"`
	TotalSpend          float64              `json:"totalSpend"`
	DistinctItemsViewed int                  `json:"distinctItemsViewed"`
	SessionCount        int                  `json:"sessionCount"`
	LastEventAt         time.Time            `json:"lastEventAt"`
	ColdStart           bool                 `json:"coldStart"`
}

// Persona is the discrete behavioral label assigned to a profile.
type Persona struct {
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Traits      []string `json:"traits"`
}

// Prediction holds the bounded business heuristics for a user. These are
// rule-of-thumb numbers, not statistically validated model output.
type Prediction struct {
	NextAction          string  `json:"nextAction"`
	PurchaseProbability float64 `json:"purchaseProbability"`
	ChurnRisk           float64 `json:"churnRisk"`
	CLV                 float64 `json:"clv"`
}

// UserInsights is the combined analysis payload for one user.
type UserInsights struct {
	UserID          string           `json:"userId"`
	Profile         UserProfile      `json:"profile"`
	Persona         Persona          `json:"persona"`
	Prediction      Prediction       `json:"prediction"`
	Recommendations []Recommendation `json:"recommendations"`
}

// BatchAnalyzeResult is one slot of a batch-analyze response. Exactly one
// of Error or the insight fields is meaningful; slots keep request order.
type BatchAnalyzeResult struct {
	UserID   string        `json:"userId"`
	Insights *UserInsights `json:"insights,omitempty"`
	Error    string        `json:"error,omitempty"`
}
