// api/engine/predict.go
package engine

import (
	"math"
	"time"

	"customeriq/api/models"
)

// Estimator derives churn, purchase-probability and CLV numbers from a
// behavioral profile. All four outputs are independent bounded heuristics
// tuned by Config, not statistically validated predictions, and are
// presented to callers as business rules of thumb.
type Estimator struct {
	cfg Config
	now func() time.Time
}

func NewEstimator(cfg Config, now func() time.Time) *Estimator {
	if now == nil {
		now = time.Now
	}
	return &Estimator{cfg: cfg, now: now}
}

// browseBaseline is the score the default "Browse" action competes with.
const browseBaseline = 50.0

// Estimate computes the prediction bundle for a profile. Cold-start
// profiles resolve to Browse with zero probability and maximal churn risk.
func (e *Estimator) Estimate(p models.UserProfile) models.Prediction {
	if p.ColdStart {
		return models.Prediction{
			NextAction:          "Browse",
			PurchaseProbability: 0,
			ChurnRisk:           100,
			CLV:                 0,
		}
	}

	purchaseProb := e.purchaseProbability(p)
	churn := e.churnRisk(p)
	clv := p.TotalSpend * e.cfg.RemainingYears * e.cfg.RepeatPurchaseFactor

	// Highest value picks the action; ties go to Browse.
	action := "Browse"
	best := browseBaseline
	if purchaseProb > best {
		action, best = "Purchase", purchaseProb
	}
	if churn > best {
		action = "Churn Risk"
	}

	return models.Prediction{
		NextAction:          action,
		PurchaseProbability: purchaseProb,
		ChurnRisk:           churn,
		CLV:                 clv,
	}
}

// purchaseProbability grows monotonically with buying intent per session
// (cart adds plus purchases) and clips to [0,100].
func (e *Estimator) purchaseProbability(p models.UserProfile) float64 {
	sessions := p.SessionCount
	if sessions < 1 {
		sessions = 1
	}
	signals := p.EventTypeCounts[models.EventAddToCart] + p.EventTypeCounts[models.EventPurchase]
	perSession := float64(signals) / float64(sessions)
	return clampScore(perSession / e.cfg.PurchaseSignalsPerSession * 100)
}

// churnRisk is 100 minus a recency score that decays exponentially with
// days since the user's last event.
func (e *Estimator) churnRisk(p models.UserProfile) float64 {
	if p.LastEventAt.IsZero() {
		return 100
	}
	days := e.now().Sub(p.LastEventAt).Hours() / 24
	if days < 0 {
		days = 0
	}
	recencyScore := 100 * math.Exp(-days/e.cfg.ChurnHalfLifeDays)
	return clampScore(100 - recencyScore)
}
