package tracking

import (
	"github.com/TienDattttt/shoppi-sub010/internal/domain"
	"go.uber.org/zap"
)

// publishMetrics is the slice of observability.Metrics the publisher records to.
type publishMetrics interface {
	IncSamplePublished()
	IncSampleDropped()
	IncStatusBroadcast()
}

// Publisher broadcasts location samples and status updates to every observer
// of a shipment's room. Delivery is fan-out: each observer succeeds or fails
// independently, and a sample with no observers is dropped, not an error.
type Publisher struct {
	registry *Registry
	logger   *zap.Logger
	metrics  publishMetrics
}

func NewPublisher(registry *Registry, logger *zap.Logger, metrics publishMetrics) (*Publisher, error) {
	if registry == nil {
		return nil, errNilRegistry
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		registry: registry,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// Publish delivers a location sample to every current observer of the
// shipment's room and returns the number of observers it reached. Per
// observer, samples are delivered in Publish call order; across observers no
// order is promised.
func (p *Publisher) Publish(shipmentID string, sample domain.LocationSample) int {
	observers := p.registry.Observers(shipmentID)
	if len(observers) == 0 {
		if p.metrics != nil {
			p.metrics.IncSampleDropped()
		}
		return 0
	}

	delivered := 0
	for _, observer := range observers {
		if err := observer.DeliverLocation(shipmentID, sample); err != nil {
			p.logger.Warn("location delivery failed for observer",
				zap.String("shipmentId", shipmentID),
				zap.String("sessionId", observer.ID()),
				zap.Error(err),
			)
			continue
		}
		delivered++
	}

	if p.metrics != nil {
		p.metrics.IncSamplePublished()
	}
	return delivered
}

// PublishStatus broadcasts a shipment state transition through the same room.
func (p *Publisher) PublishStatus(shipmentID string, update domain.StatusUpdate) int {
	observers := p.registry.Observers(shipmentID)
	if len(observers) == 0 {
		return 0
	}

	delivered := 0
	for _, observer := range observers {
		if err := observer.DeliverStatus(shipmentID, update); err != nil {
			p.logger.Warn("status delivery failed for observer",
				zap.String("shipmentId", shipmentID),
				zap.String("sessionId", observer.ID()),
				zap.Error(err),
			)
			continue
		}
		delivered++
	}

	if p.metrics != nil {
		p.metrics.IncStatusBroadcast()
	}
	return delivered
}
