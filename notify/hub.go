package notify

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Listener receives the live updates of one trip.
type Listener struct {
	tripID uuid.UUID
	ch     chan Event
}

func (l *Listener) TripID() uuid.UUID { return l.tripID }

// Events is closed once the listener is unsubscribed.
func (l *Listener) Events() <-chan Event { return l.ch }

// Hub is the process-wide registry of trip listeners. Publish holds the lock
// for the whole fan-out so every listener of a trip sees the same order.
type Hub struct {
	mu        sync.Mutex
	listeners map[uuid.UUID]map[*Listener]struct{}
	buffer    int
	log       *logrus.Logger
}

func NewHub(buffer int, log *logrus.Logger) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		listeners: make(map[uuid.UUID]map[*Listener]struct{}),
		buffer:    buffer,
		log:       log,
	}
}

func (h *Hub) Subscribe(tripID uuid.UUID) *Listener {
	l := &Listener{tripID: tripID, ch: make(chan Event, h.buffer)}

	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.listeners[tripID]
	if !ok {
		set = make(map[*Listener]struct{})
		h.listeners[tripID] = set
	}
	set[l] = struct{}{}
	return l
}

// Unsubscribe is safe to call more than once.
func (h *Hub) Unsubscribe(l *Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.listeners[l.tripID]
	if !ok {
		return
	}
	if _, ok := set[l]; !ok {
		return
	}
	delete(set, l)
	close(l.ch)
	if len(set) == 0 {
		delete(h.listeners, l.tripID)
	}
}

// Publish never blocks: a listener whose buffer is full misses the event.
func (h *Hub) Publish(tripID uuid.UUID, e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for l := range h.listeners[tripID] {
		select {
		case l.ch <- e:
		default:
			h.log.WithFields(logrus.Fields{
				"trip_id":    tripID,
				"event_type": e.Type,
			}).Warn("listener buffer full, dropping live update")
		}
	}
}

func (h *Hub) ListenerCount(tripID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners[tripID])
}
