package tracking

import (
	"errors"
	"sync"

	"github.com/TienDattttt/shoppi-sub010/internal/domain"
	"github.com/google/uuid"
)

var (
	errNilRegistry      = errors.New("registry is required")
	errSubscriberClosed = errors.New("subscriber is closed")
	errQueueFull        = errors.New("subscriber queue is full")
)

const defaultSubscriberBuffer = 64

// Event is one broadcast queued for a subscriber. Exactly one of Sample and
// Status is set.
type Event struct {
	ShipmentID string
	Sample     *domain.LocationSample
	Status     *domain.StatusUpdate
}

// Subscriber is the server-side observer handle for one connected client. It
// buffers broadcasts in a FIFO queue drained by the owning transport, which
// preserves per-room delivery order for this observer. A slow client fills
// its own queue and loses its own events; other observers are unaffected.
type Subscriber struct {
	id     string
	events chan Event

	mu     sync.Mutex
	closed bool
}

func NewSubscriber(buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &Subscriber{
		id:     uuid.NewString(),
		events: make(chan Event, buffer),
	}
}

func (s *Subscriber) ID() string { return s.id }

// Events is the ordered stream the owning transport drains.
func (s *Subscriber) Events() <-chan Event { return s.events }

func (s *Subscriber) DeliverLocation(shipmentID string, sample domain.LocationSample) error {
	return s.enqueue(Event{ShipmentID: shipmentID, Sample: &sample})
}

func (s *Subscriber) DeliverStatus(shipmentID string, update domain.StatusUpdate) error {
	return s.enqueue(Event{ShipmentID: shipmentID, Status: &update})
}

// Close marks the subscriber terminal and closes its event stream. Safe to
// call more than once; delivery after Close reports an error instead of
// panicking on the closed channel.
func (s *Subscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
}

func (s *Subscriber) enqueue(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errSubscriberClosed
	}

	select {
	case s.events <- event:
		return nil
	default:
		return errQueueFull
	}
}
