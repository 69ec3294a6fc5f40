package eventlogger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Event struct {
	ID        uuid.UUID         `json:"id,omitempty"`
	Type      string            `json:"event_type,omitempty"`
	Data      any               `json:"event_data,omitempty"`
	Metadata  map[string]string `json:"event_metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type EventOption func(*Event)

func WithType(eventType string) EventOption {
	return func(e *Event) {
		e.Type = eventType
	}
}

func WithData(data any) EventOption {
	return func(e *Event) {
		e.Data = data
	}
}

func WithMetadata(metadata map[string]string) EventOption {
	return func(e *Event) {
		for k, v := range metadata {
			e.Metadata[k] = v
		}
	}
}

// WithTrip tags the event with the trip it belongs to so it shows up in the
// trip's activity feed.
func WithTrip(tripID uuid.UUID) EventOption {
	return func(e *Event) {
		e.Metadata["trip_id"] = tripID.String()
	}
}

func NewEvent(opts ...EventOption) Event {
	e := Event{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		Metadata:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Sink is anything an event can be written to.
type Sink interface {
	Save(ctx context.Context, e Event) error
}

// Store is a Sink that can be read back.
type Store interface {
	Sink
	GetByTrip(ctx context.Context, tripID uuid.UUID, limit int) ([]Event, error)
}

// MultiSink writes every event to all of its sinks and joins their errors.
type MultiSink []Sink

func (m MultiSink) Save(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Save(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
