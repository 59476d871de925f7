// api/store/event_sink.go
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"customeriq/api/database"
	"customeriq/api/models"
)

// EventSink persists accepted events to ClickHouse. It is an optional
// durability layer: the in-memory EventStore stays authoritative and the
// service runs fine with a nil sink.
type EventSink struct {
	DB *database.ClickHouseClient
}

func NewEventSink(chClient *database.ClickHouseClient) *EventSink {
	return &EventSink{DB: chClient}
}

// InsertEvents writes a batch of events. Individual append failures are
// logged and the rest of the batch is still sent.
func (s *EventSink) InsertEvents(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}

	// Column names and order must match the customer_events table schema.
	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO customer_events (
			event_id, user_id, item_id, item_name, category, event_type,
			timestamp, session_id, time_spent_seconds, price
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	for _, ev := range events {
		err := batch.Append(
			ev.EventID,
			ev.UserID,
			ev.ItemID,
			ev.ItemName,
			ev.Category,
			ev.EventType,
			ev.Timestamp,
			ev.SessionID,
			ev.TimeSpentSeconds,
			ev.Price,
		)
		if err != nil {
			log.Error().Str("event_id", ev.EventID).Err(err).Msg("Error appending event to batch")
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Info().Int("events", len(events)).Msg("Persisted events to ClickHouse")
	return nil
}

// LoadEventStore rebuilds an in-memory EventStore from the persisted log,
// in timestamp order. Used at startup when no CSV bootstrap is configured.
func (s *EventSink) LoadEventStore(ctx context.Context) (*EventStore, error) {
	rows, err := s.DB.Conn.Query(ctx, `
		SELECT event_id, user_id, item_id, item_name, category, event_type,
		       timestamp, session_id, time_spent_seconds, price
		FROM customer_events
		ORDER BY timestamp ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query persisted events: %w", err)
	}
	defer rows.Close()

	es := NewEventStore()
	for rows.Next() {
		var ev models.Event
		var ts time.Time
		if err := rows.Scan(
			&ev.EventID,
			&ev.UserID,
			&ev.ItemID,
			&ev.ItemName,
			&ev.Category,
			&ev.EventType,
			&ts,
			&ev.SessionID,
			&ev.TimeSpentSeconds,
			&ev.Price,
		); err != nil {
			log.Error().Err(err).Msg("Error scanning persisted event row")
			continue
		}
		ev.Timestamp = ts
		es.Append(ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error while loading persisted events: %w", err)
	}

	log.Info().Int("events", es.Len()).Msg("Event store rebuilt from ClickHouse")
	return es, nil
}
