package push

import (
	"context"

	"github.com/TienDattttt/shoppi-sub010/internal/domain"
)

// Gateway is the outbound push delivery port. Implementations translate
// provider-specific errors into domain outcomes exactly once; callers never
// see provider error codes.
//
// SendOne returns a non-nil error only for transient failures, and the error
// is the provider's own, unmodified, so the caller owns the retry decision.
// SendMany returns a non-nil error only when the entire batch failed before
// any per-endpoint result existed (provider transport or auth failure);
// per-endpoint failures are reported inside the BatchOutcome instead.
type Gateway interface {
	SendOne(ctx context.Context, endpoint domain.DeviceEndpoint, intent domain.NotificationIntent) (domain.DeliveryOutcome, error)
	SendMany(ctx context.Context, endpoints []domain.DeviceEndpoint, intent domain.NotificationIntent) (domain.BatchOutcome, error)
}

// DisabledGateway is the gateway used when no push provider is configured.
// Every send degrades to a skipped outcome; absence of push configuration is
// a normal operating mode, not an error.
type DisabledGateway struct{}

func NewDisabledGateway() *DisabledGateway {
	return &DisabledGateway{}
}

func (g *DisabledGateway) SendOne(_ context.Context, endpoint domain.DeviceEndpoint, _ domain.NotificationIntent) (domain.DeliveryOutcome, error) {
	return domain.Skipped(endpoint), nil
}

func (g *DisabledGateway) SendMany(_ context.Context, endpoints []domain.DeviceEndpoint, _ domain.NotificationIntent) (domain.BatchOutcome, error) {
	var batch domain.BatchOutcome
	for _, endpoint := range endpoints {
		batch.Append(domain.Skipped(endpoint))
	}
	return batch, nil
}
