// api/store/event_store.go
package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"customeriq/api/models"
)

// DataFormatError reports a malformed event log or event unit. Ingestion of
// the offending unit is skipped; the caller decides whether to continue.
type DataFormatError struct {
	Reason string
}

func (e *DataFormatError) Error() string {
	return "data format error: " + e.Reason
}

var requiredColumns = []string{"user_id", "item_id", "event_type", "timestamp"}

// timestampLayouts are tried in order when parsing the timestamp column.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// EventStore holds the append-only in-memory event log. Appends are
// serialized behind a write lock; readers always see a fully applied log.
type EventStore struct {
	mu     sync.RWMutex
	events []models.Event
	byUser map[string][]int
}

// NewEventStore returns an empty store.
func NewEventStore() *EventStore {
	return &EventStore{
		byUser: make(map[string][]int),
	}
}

// LoadEventsCSV builds a store from a CSV event log on disk.
func LoadEventsCSV(path string) (*EventStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log %s: %w", path, err)
	}
	defer f.Close()
	return LoadEvents(f)
}

// LoadEvents parses a tabular event log into a new store. The header must
// contain user_id, item_id, event_type and timestamp; rows missing a user
// or item ID are skipped with a warning rather than failing the load.
func LoadEvents(r io.Reader) (*EventStore, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, &DataFormatError{Reason: fmt.Sprintf("unreadable header: %v", err)}
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, required := range requiredColumns {
		if _, ok := col[required]; !ok {
			return nil, &DataFormatError{Reason: "missing required column " + required}
		}
	}

	s := NewEventStore()
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			log.Warn().Int("line", line).Err(err).Msg("Skipping unparseable event row")
			continue
		}

		field := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		ev := models.Event{
			EventID:   field("event_id"),
			UserID:    field("user_id"),
			ItemID:    field("item_id"),
			ItemName:  field("item_name"),
			Category:  field("category"),
			EventType: strings.ToLower(field("event_type")),
			SessionID: field("session_id"),
		}
		if ev.UserID == "" || ev.ItemID == "" {
			log.Warn().Int("line", line).Msg("Skipping event row without user_id/item_id")
			continue
		}
		if ev.EventID == "" {
			ev.EventID = uuid.New().String()
		}

		ts, ok := parseTimestamp(field("timestamp"))
		if !ok {
			log.Warn().Int("line", line).Str("timestamp", field("timestamp")).
				Msg("Skipping event row with unparseable timestamp")
			continue
		}
		ev.Timestamp = ts

		if v := field("price"); v != "" {
			if price, err := strconv.ParseFloat(v, 64); err == nil {
				ev.Price = price
			}
		}
		if v := field("time_spent_seconds"); v != "" {
			if secs, err := strconv.ParseFloat(v, 64); err == nil {
				ev.TimeSpentSeconds = secs
			}
		}

		s.Append(ev)
	}

	log.Info().Int("events", s.Len()).Msg("Event log loaded")
	return s, nil
}

func parseTimestamp(v string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// Append records one event. Safe for concurrent use with readers and other
// appenders; the event becomes visible to readers all at once.
func (s *EventStore) Append(ev models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	s.byUser[ev.UserID] = append(s.byUser[ev.UserID], len(s.events)-1)
}

// EventsFor returns all events recorded for a user in original append
// order. The returned slice is a copy owned by the caller.
func (s *EventStore) EventsFor(userID string) []models.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	indices := s.byUser[userID]
	if len(indices) == 0 {
		return nil
	}
	out := make([]models.Event, 0, len(indices))
	for _, i := range indices {
		out = append(out, s.events[i])
	}
	return out
}

// HasUser reports whether at least one event exists for the user.
func (s *EventStore) HasUser(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byUser[userID]) > 0
}

// Len returns the number of events in the store.
func (s *EventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// UserIDs returns the distinct user IDs present in the store, sorted.
func (s *EventStore) UserIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.byUser))
	for id := range s.byUser {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Snapshot returns a copy of the full event log in append order.
func (s *EventStore) Snapshot() []models.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Event, len(s.events))
	copy(out, s.events)
	return out
}

// AllItems computes the distinct item catalog with popularity counts.
// Popularity is the total number of events referencing the item; name,
// category and price come from the most recent event carrying them. The
// catalog is recomputed from the current log on every call.
func (s *EventStore) AllItems() []models.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byItem := make(map[string]*models.Item)
	for _, ev := range s.events {
		item, ok := byItem[ev.ItemID]
		if !ok {
			item = &models.Item{ItemID: ev.ItemID}
			byItem[ev.ItemID] = item
		}
		item.PopularityCount++
		if ev.ItemName != "" {
			item.ItemName = ev.ItemName
		}
		if ev.Category != "" {
			item.Category = ev.Category
		}
		if ev.Price > 0 {
			item.Price = ev.Price
		}
	}

	items := make([]models.Item, 0, len(byItem))
	for _, item := range byItem {
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ItemID < items[j].ItemID })
	return items
}
