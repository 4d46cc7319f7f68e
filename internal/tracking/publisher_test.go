package tracking

import (
	"errors"
	"testing"
	"time"

	"github.com/TienDattttt/shoppi-sub010/internal/domain"
)

type recordingObserver struct {
	id        string
	locations []domain.LocationSample
	statuses  []domain.StatusUpdate
	failWith  error
}

func (o *recordingObserver) ID() string { return o.id }

func (o *recordingObserver) DeliverLocation(_ string, sample domain.LocationSample) error {
	if o.failWith != nil {
		return o.failWith
	}
	o.locations = append(o.locations, sample)
	return nil
}

func (o *recordingObserver) DeliverStatus(_ string, update domain.StatusUpdate) error {
	if o.failWith != nil {
		return o.failWith
	}
	o.statuses = append(o.statuses, update)
	return nil
}

func sampleAt(lat float64) domain.LocationSample {
	return domain.LocationSample{Latitude: lat, Longitude: 106.7, Timestamp: time.Unix(1_700_000_000, 0).UTC()}
}

func TestPublisherNoObserversDropsSample(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(nil, nil)
	publisher, err := NewPublisher(registry, nil, nil)
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}

	if got := publisher.Publish("ship-1", sampleAt(10.0)); got != 0 {
		t.Fatalf("Publish() = %d, want 0 for absent room", got)
	}
}

func TestPublisherFanOutIsolation(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(nil, nil)
	publisher, err := NewPublisher(registry, nil, nil)
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}

	healthy := &recordingObserver{id: "sess-healthy"}
	broken := &recordingObserver{id: "sess-broken", failWith: errors.New("transport stalled")}
	registry.Join("ship-1", healthy)
	registry.Join("ship-1", broken)

	if got := publisher.Publish("ship-1", sampleAt(10.0)); got != 1 {
		t.Fatalf("Publish() = %d, want 1 delivered despite one failing observer", got)
	}
	if len(healthy.locations) != 1 {
		t.Fatalf("healthy observer received %d samples, want 1", len(healthy.locations))
	}
}

func TestPublisherFIFOPerObserver(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(nil, nil)
	publisher, err := NewPublisher(registry, nil, nil)
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}

	observer := &recordingObserver{id: "sess-1"}
	registry.Join("ship-1", observer)

	publisher.Publish("ship-1", sampleAt(10.0))
	publisher.Publish("ship-1", sampleAt(11.0))

	if len(observer.locations) != 2 {
		t.Fatalf("observer received %d samples, want 2", len(observer.locations))
	}
	if observer.locations[0].Latitude != 10.0 || observer.locations[1].Latitude != 11.0 {
		t.Fatalf("samples out of order: %v", observer.locations)
	}
}

func TestPublisherStatusBroadcast(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(nil, nil)
	publisher, err := NewPublisher(registry, nil, nil)
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}

	observer := &recordingObserver{id: "sess-1"}
	registry.Join("ship-1", observer)

	update := domain.StatusUpdate{Status: domain.ShipmentStatusInTransit, Message: "left the warehouse", Timestamp: time.Now().UTC()}
	if got := publisher.PublishStatus("ship-1", update); got != 1 {
		t.Fatalf("PublishStatus() = %d, want 1", got)
	}
	if len(observer.statuses) != 1 || observer.statuses[0].Status != domain.ShipmentStatusInTransit {
		t.Fatalf("statuses = %v, want one IN_TRANSIT update", observer.statuses)
	}
}

func TestSubscriberQueueDrainsInOrder(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(nil, nil)
	publisher, err := NewPublisher(registry, nil, nil)
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}

	subscriber := NewSubscriber(8)
	registry.Join("ship-1", subscriber)

	publisher.Publish("ship-1", sampleAt(10.0))
	publisher.Publish("ship-1", sampleAt(11.0))

	first := <-subscriber.Events()
	second := <-subscriber.Events()
	if first.Sample.Latitude != 10.0 || second.Sample.Latitude != 11.0 {
		t.Fatalf("events out of order: %v then %v", first.Sample, second.Sample)
	}

	registry.Drop(subscriber.ID())
	subscriber.Close()
	subscriber.Close() // idempotent

	if err := subscriber.DeliverLocation("ship-1", sampleAt(12.0)); err == nil {
		t.Fatal("delivery after Close should report an error")
	}
	if registry.RoomExists("ship-1") {
		t.Fatal("room must be absent after the only subscriber is dropped")
	}
}

func TestSubscriberFullQueueFailsOnlyThatObserver(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(nil, nil)
	publisher, err := NewPublisher(registry, nil, nil)
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}

	slow := NewSubscriber(1)
	healthy := &recordingObserver{id: "sess-healthy"}
	registry.Join("ship-1", slow)
	registry.Join("ship-1", healthy)

	publisher.Publish("ship-1", sampleAt(10.0))
	// Second publish overflows the undrained one-slot queue.
	if got := publisher.Publish("ship-1", sampleAt(11.0)); got != 1 {
		t.Fatalf("Publish() = %d, want 1 (healthy observer only)", got)
	}
	if len(healthy.locations) != 2 {
		t.Fatalf("healthy observer received %d samples, want 2", len(healthy.locations))
	}
}
