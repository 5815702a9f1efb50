package services

import (
	"context"
	"fmt"
)

// EventService answers read-only queries about events
type EventService struct {
	events EventStore
}

// NewEventService creates a new event service
func NewEventService(events EventStore) *EventService {
	return &EventService{events: events}
}

// CountEvents counts the events of a pin whose start lies in [start, end]
func (s *EventService) CountEvents(ctx context.Context, pinID string, start, end int64) (int, error) {
	events, err := s.events.ListByPinID(ctx, pinID)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}

	count := 0
	for _, e := range events {
		if e.TimeStart == nil {
			continue
		}
		if *e.TimeStart >= start && *e.TimeStart <= end {
			count++
		}
	}
	return count, nil
}
