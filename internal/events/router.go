package events

import (
	"context"
	"fmt"
	"time"

	"github.com/TienDattttt/shoppi-sub010/internal/domain"
	"github.com/TienDattttt/shoppi-sub010/internal/observability"
	"go.uber.org/zap"
)

// StatusBroadcaster pushes a status update into a shipment's tracking room.
type StatusBroadcaster interface {
	PublishStatus(shipmentID string, update domain.StatusUpdate) int
}

// PushDispatcher delivers a notification to a set of users' devices.
type PushDispatcher interface {
	DispatchToUsers(ctx context.Context, intent domain.NotificationIntent, userIDs []string) (domain.BatchOutcome, error)
}

// Router turns a consumed shipment event into a room broadcast and, when the
// event asks for it, a push dispatch.
type Router struct {
	broadcaster StatusBroadcaster
	dispatcher  PushDispatcher
	logger      *zap.Logger
	now         func() time.Time
}

func NewRouter(broadcaster StatusBroadcaster, dispatcher PushDispatcher, logger *zap.Logger) (*Router, error) {
	if broadcaster == nil {
		return nil, fmt.Errorf("status broadcaster is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("push dispatcher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Router{
		broadcaster: broadcaster,
		dispatcher:  dispatcher,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// Handle processes one validated shipment event. A dispatch failure is
// returned so the delivery gets nacked and redelivered; the room broadcast
// already happened by then and is not replayed for observers.
func (r *Router) Handle(ctx context.Context, msg ShipmentEventMessage) error {
	logger := observability.WithContextLogger(r.logger, ctx)

	ts := msg.Timestamp
	if ts.IsZero() {
		ts = r.now().UTC()
	}

	delivered := r.broadcaster.PublishStatus(msg.ShipmentID, domain.StatusUpdate{
		Status:    msg.Status,
		Message:   msg.Message,
		Timestamp: ts,
	})

	logger.Debug("shipment status routed",
		zap.String("shipmentId", msg.ShipmentID),
		zap.String("status", msg.Status.String()),
		zap.Int("observers", delivered),
	)

	if msg.Notify == nil {
		return nil
	}

	intent := domain.NotificationIntent{
		Title: msg.Notify.Title,
		Body:  msg.Notify.Body,
		Data:  notifyData(msg),
	}

	batch, err := r.dispatcher.DispatchToUsers(ctx, intent, msg.UserIDs)
	if err != nil {
		return fmt.Errorf("failed to dispatch shipment notification: %w", err)
	}

	logger.Info("shipment notification dispatched",
		zap.String("shipmentId", msg.ShipmentID),
		zap.String("correlationId", msg.CorrelationID),
		zap.Int("delivered", batch.SuccessCount),
		zap.Int("failed", batch.FailureCount),
	)

	return nil
}

func notifyData(msg ShipmentEventMessage) map[string]string {
	data := make(map[string]string, len(msg.Notify.Data)+2)
	for k, v := range msg.Notify.Data {
		data[k] = v
	}
	data["shipmentId"] = msg.ShipmentID
	data["status"] = msg.Status.String()
	return data
}
