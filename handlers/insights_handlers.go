// api/handlers/insights_handlers.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"customeriq/api/engine"
	"customeriq/api/models"
	"customeriq/api/store"
)

const defaultRecommendationCount = 5

// maxBatchUsers caps one batch-analyze request.
const maxBatchUsers = 100

type InsightsHandlers struct {
	Events      *store.EventStore
	Profiles    *engine.ProfileBuilder
	Recommender *engine.Recommender
	Personas    *engine.PersonaClassifier
	Estimator   *engine.Estimator
}

func NewInsightsHandlers(
	events *store.EventStore,
	profiles *engine.ProfileBuilder,
	recommender *engine.Recommender,
	personas *engine.PersonaClassifier,
	estimator *engine.Estimator,
) *InsightsHandlers {
	return &InsightsHandlers{
		Events:      events,
		Profiles:    profiles,
		Recommender: recommender,
		Personas:    personas,
		Estimator:   estimator,
	}
}

// GetRecommendations serves GET /users/:id/recommendations?k=N.
func (h *InsightsHandlers) GetRecommendations(c *gin.Context) {
	userID := c.Param("id")
	k, ok := parseK(c)
	if !ok {
		return
	}

	recs, err := h.Recommender.Recommend(userID, k)
	if err != nil {
		if errors.Is(err, engine.ErrUnknownUser) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown user", "userId": userID})
			return
		}
		log.Error().Str("user_id", userID).Err(err).Msg("Error computing recommendations")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute recommendations"})
		return
	}
	if recs == nil {
		recs = []models.Recommendation{}
	}

	c.JSON(http.StatusOK, gin.H{
		"userId":          userID,
		"recommendations": recs,
	})
}

// GetPersona serves GET /users/:id/persona. A user with no events gets the
// cold-start persona, never an error.
func (h *InsightsHandlers) GetPersona(c *gin.Context) {
	userID := c.Param("id")
	profile := h.Profiles.Build(userID, h.Events.EventsFor(userID))
	c.JSON(http.StatusOK, gin.H{
		"userId":  userID,
		"persona": h.Personas.Classify(profile),
	})
}

// GetPredictions serves GET /users/:id/predictions.
func (h *InsightsHandlers) GetPredictions(c *gin.Context) {
	userID := c.Param("id")
	profile := h.Profiles.Build(userID, h.Events.EventsFor(userID))
	c.JSON(http.StatusOK, gin.H{
		"userId":     userID,
		"prediction": h.Estimator.Estimate(profile),
	})
}

// GetInsights serves GET /users/:id/insights with the combined payload.
func (h *InsightsHandlers) GetInsights(c *gin.Context) {
	userID := c.Param("id")
	k, ok := parseK(c)
	if !ok {
		return
	}

	insights, err := h.analyzeUser(userID, k)
	if err != nil {
		if errors.Is(err, engine.ErrUnknownUser) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown user", "userId": userID})
			return
		}
		log.Error().Str("user_id", userID).Err(err).Msg("Error computing insights")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute insights"})
		return
	}

	c.JSON(http.StatusOK, insights)
}

// BatchAnalyzeRequest is the body of POST /analyze/batch.
type BatchAnalyzeRequest struct {
	UserIDs []string `json:"userIds" binding:"required,min=1"`
	K       int      `json:"k"`
}

// BatchAnalyze computes insights for a list of users. Results keep request
// order; a failing user yields an error marker in its slot, not a
// whole-batch failure.
func (h *InsightsHandlers) BatchAnalyze(c *gin.Context) {
	var req BatchAnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if len(req.UserIDs) > maxBatchUsers {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Too many users in one batch", "max": maxBatchUsers})
		return
	}
	k := req.K
	if k <= 0 {
		k = defaultRecommendationCount
	}

	results := make([]models.BatchAnalyzeResult, 0, len(req.UserIDs))
	for _, userID := range req.UserIDs {
		insights, err := h.analyzeUser(userID, k)
		if err != nil {
			results = append(results, models.BatchAnalyzeResult{UserID: userID, Error: err.Error()})
			continue
		}
		results = append(results, models.BatchAnalyzeResult{UserID: userID, Insights: &insights})
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// analyzeUser derives the full insight bundle for one user. The profile is
// built once and shared by the recommender, classifier and estimator.
func (h *InsightsHandlers) analyzeUser(userID string, k int) (models.UserInsights, error) {
	userEvents := h.Events.EventsFor(userID)
	profile := h.Profiles.Build(userID, userEvents)

	if profile.ColdStart && h.Recommender.RejectsUnknownUsers() {
		return models.UserInsights{}, fmt.Errorf("analyze %q: %w", userID, engine.ErrUnknownUser)
	}

	recs := h.Recommender.RecommendForProfile(profile, userEvents, k)
	if recs == nil {
		recs = []models.Recommendation{}
	}

	return models.UserInsights{
		UserID:          userID,
		Profile:         profile,
		Persona:         h.Personas.Classify(profile),
		Prediction:      h.Estimator.Estimate(profile),
		Recommendations: recs,
	}, nil
}

func parseK(c *gin.Context) (int, bool) {
	k := defaultRecommendationCount
	if v := c.Query("k"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'k' parameter. Must be a positive integer."})
			return 0, false
		}
		k = parsed
	}
	return k, true
}
