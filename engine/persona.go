// api/engine/persona.go
package engine

import (
	"fmt"

	"customeriq/api/models"
)

// PersonaClassifier maps a behavioral profile to a discrete persona label.
//
// The rules form a decision list: they are evaluated top to bottom and the
// first match wins. Later rules are intentionally less specific catch-alls,
// so rule order carries meaning and must be preserved when editing. Traits
// come only from the satisfied sub-conditions of the rule that fired.
type PersonaClassifier struct {
	cfg   Config
	rules []personaRule
}

type personaRule func(p models.UserProfile, cfg Config) (models.Persona, bool)

func NewPersonaClassifier(cfg Config) *PersonaClassifier {
	return &PersonaClassifier{
		cfg: cfg,
		rules: []personaRule{
			premiumLoyalist,
			dealSeekerRegular,
			frequentQualityBuyer,
			windowShopper,
			categoryDevotee,
			newcomer,
		},
	}
}

// Classify returns the persona for a profile. Always succeeds; the General
// Shopper default catches profiles no rule claims.
func (c *PersonaClassifier) Classify(p models.UserProfile) models.Persona {
	for _, rule := range c.rules {
		if persona, ok := rule(p, c.cfg); ok {
			return persona
		}
	}
	return models.Persona{
		Label:       "General Shopper",
		Description: "Moderate engagement across categories with no single dominant pattern",
		Traits:      []string{"Mixed browsing and buying behavior"},
	}
}

func purchases(p models.UserProfile) int {
	return p.EventTypeCounts[models.EventPurchase]
}

func avgOrderValue(p models.UserProfile) float64 {
	n := purchases(p)
	if n == 0 {
		return 0
	}
	return p.TotalSpend / float64(n)
}

func premiumLoyalist(p models.UserProfile, cfg Config) (models.Persona, bool) {
	if p.TotalSpend < cfg.PremiumSpendThreshold || purchases(p) < cfg.RepeatPurchaseCount {
		return models.Persona{}, false
	}
	traits := []string{
		fmt.Sprintf("High lifetime spend ($%.0f and counting)", p.TotalSpend),
		fmt.Sprintf("Repeat buyer with %d purchases", purchases(p)),
	}
	if p.SessionCount >= cfg.FrequentSessionCount {
		traits = append(traits, "Engages across many sessions")
	}
	return models.Persona{
		Label:       "Premium Loyalist",
		Description: "High-value repeat customer with strong brand attachment",
		Traits:      traits,
	}, true
}

func dealSeekerRegular(p models.UserProfile, cfg Config) (models.Persona, bool) {
	if p.SessionCount < cfg.FrequentSessionCount || purchases(p) == 0 {
		return models.Persona{}, false
	}
	if avgOrderValue(p) >= cfg.BargainOrderValue {
		return models.Persona{}, false
	}
	traits := []string{
		fmt.Sprintf("Shops often (%d sessions recorded)", p.SessionCount),
		fmt.Sprintf("Keeps orders small ($%.2f average)", avgOrderValue(p)),
	}
	if p.EventTypeCounts[models.EventSearch] > 0 {
		traits = append(traits, "Searches before buying")
	}
	return models.Persona{
		Label:       "Deal Seeker Regular",
		Description: "Frequent visitor who buys regularly but hunts for low prices",
		Traits:      traits,
	}, true
}

func frequentQualityBuyer(p models.UserProfile, cfg Config) (models.Persona, bool) {
	if purchases(p) < cfg.RepeatPurchaseCount || avgOrderValue(p) < cfg.QualityOrderValue {
		return models.Persona{}, false
	}
	traits := []string{
		fmt.Sprintf("Invests in quality ($%.2f average order)", avgOrderValue(p)),
		fmt.Sprintf("Repeat buyer with %d purchases", purchases(p)),
	}
	return models.Persona{
		Label:       "Frequent Quality Buyer",
		Description: "Regular purchaser who consistently pays for higher-end items",
		Traits:      traits,
	}, true
}

func windowShopper(p models.UserProfile, cfg Config) (models.Persona, bool) {
	if p.EventTypeCounts[models.EventView] < cfg.BrowseViewCount || purchases(p) > 0 {
		return models.Persona{}, false
	}
	traits := []string{
		fmt.Sprintf("Browses heavily (%d views, no purchases)", p.EventTypeCounts[models.EventView]),
	}
	if p.EventTypeCounts[models.EventAddToCart] > 0 {
		traits = append(traits, "Fills carts without checking out")
	}
	return models.Persona{
		Label:       "Window Shopper",
		Description: "Explores the catalog extensively but has yet to convert",
		Traits:      traits,
	}, true
}

func categoryDevotee(p models.UserProfile, cfg Config) (models.Persona, bool) {
	total := 0
	topCategory := ""
	topCount := 0
	for category, count := range p.CategoryCounts {
		total += count
		if count > topCount || (count == topCount && category < topCategory) {
			topCategory, topCount = category, count
		}
	}
	if total < cfg.DevoteeMinCategoryHits {
		return models.Persona{}, false
	}
	if float64(topCount)/float64(total) < cfg.DevoteeCategoryShare {
		return models.Persona{}, false
	}
	traits := []string{
		fmt.Sprintf("Concentrates activity in %s", topCategory),
	}
	if purchases(p) > 0 {
		traits = append(traits, fmt.Sprintf("Buys within %s", topCategory))
	}
	return models.Persona{
		Label:       "Category Devotee",
		Description: fmt.Sprintf("Nearly all activity centers on %s", topCategory),
		Traits:      traits,
	}, true
}

func newcomer(p models.UserProfile, _ Config) (models.Persona, bool) {
	if !p.ColdStart {
		return models.Persona{}, false
	}
	return models.Persona{
		Label:       "Newcomer",
		Description: "No recorded activity yet",
		Traits:      []string{"Awaiting first interaction"},
	}, true
}
