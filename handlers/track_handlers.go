// api/handlers/track_handlers.go
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"customeriq/api/models"
	"customeriq/api/store"
)

// sinkTimeout bounds the ClickHouse flush for one accepted batch.
const sinkTimeout = 15 * time.Second

// maxBatchEvents caps one tracking batch.
const maxBatchEvents = 500

type TrackHandlers struct {
	Events *store.EventStore
	Sink   *store.EventSink // nil when durability is disabled
}

func NewTrackHandlers(events *store.EventStore, sink *store.EventSink) *TrackHandlers {
	return &TrackHandlers{Events: events, Sink: sink}
}

// TrackEvent ingests a single event.
func (h *TrackHandlers) TrackEvent(c *gin.Context) {
	var req models.TrackEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	ev, err := buildEvent(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.Events.Append(ev)
	h.flush([]models.Event{ev})

	c.JSON(http.StatusOK, gin.H{"eventId": ev.EventID})
}

// BatchRejection marks one rejected event in a batch by its input index.
type BatchRejection struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// TrackEventsBatch ingests a bounded batch. Malformed events are rejected
// individually; the rest of the batch is still recorded. Elements are
// decoded one by one rather than bound as a typed slice, so a single event
// failing a required-field check never fails the whole request.
func (h *TrackHandlers) TrackEventsBatch(c *gin.Context) {
	var raws []json.RawMessage
	if err := c.ShouldBindJSON(&raws); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if len(raws) > maxBatchEvents {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Too many events in one batch", "max": maxBatchEvents})
		return
	}

	if len(raws) == 0 {
		c.JSON(http.StatusOK, gin.H{"accepted": 0, "rejected": []BatchRejection{}})
		return
	}

	accepted := make([]models.Event, 0, len(raws))
	rejected := make([]BatchRejection, 0)
	for i, raw := range raws {
		var req models.TrackEventRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			rejected = append(rejected, BatchRejection{Index: i, Error: "malformed event: " + err.Error()})
			continue
		}
		ev, err := buildEvent(req)
		if err != nil {
			rejected = append(rejected, BatchRejection{Index: i, Error: err.Error()})
			continue
		}
		accepted = append(accepted, ev)
	}

	// Within one batch input order is preserved.
	for _, ev := range accepted {
		h.Events.Append(ev)
	}
	h.flush(accepted)

	c.JSON(http.StatusOK, gin.H{
		"accepted": len(accepted),
		"rejected": rejected,
	})
}

// buildEvent validates a track request and promotes it to a stored event.
func buildEvent(req models.TrackEventRequest) (models.Event, error) {
	if req.UserID == "" {
		return models.Event{}, fmt.Errorf("userId is required")
	}
	if req.ItemID == "" {
		return models.Event{}, fmt.Errorf("itemId is required")
	}
	if !models.ValidEventType(req.EventType) {
		return models.Event{}, fmt.Errorf("unrecognised eventType %q", req.EventType)
	}
	if req.Price < 0 {
		return models.Event{}, fmt.Errorf("price must not be negative")
	}
	if req.TimeSpentSeconds < 0 {
		return models.Event{}, fmt.Errorf("timeSpentSeconds must not be negative")
	}

	ts := req.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	return models.Event{
		EventID:          uuid.New().String(),
		UserID:           req.UserID,
		ItemID:           req.ItemID,
		ItemName:         req.ItemName,
		Category:         req.Category,
		EventType:        req.EventType,
		Timestamp:        ts,
		SessionID:        req.SessionID,
		TimeSpentSeconds: req.TimeSpentSeconds,
		Price:            req.Price,
	}, nil
}

// flush forwards accepted events to the durability sink off the request
// path. Sink failures are logged, never surfaced to the tracking caller:
// the in-memory store already holds the events.
func (h *TrackHandlers) flush(events []models.Event) {
	if h.Sink == nil || len(events) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		defer cancel()
		if err := h.Sink.InsertEvents(ctx, events); err != nil {
			log.Error().Err(err).Int("events", len(events)).Msg("Failed to persist events to ClickHouse")
		}
	}()
}
