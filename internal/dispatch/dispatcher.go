package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/TienDattttt/shoppi-sub010/internal/domain"
	"github.com/TienDattttt/shoppi-sub010/internal/push"
	"github.com/TienDattttt/shoppi-sub010/internal/ratelimit"
	"go.uber.org/zap"
)

// EndpointDirectory resolves users to their registered device endpoints. It
// is the read side of the external device-registry collaborator.
type EndpointDirectory interface {
	ResolveForUsers(ctx context.Context, userIDs []string) ([]domain.DeviceEndpoint, error)
}

// InvalidEndpointReporter receives endpoints the provider declared
// permanently invalid. The dispatcher only reports; pruning the registry is
// the collaborator's job.
type InvalidEndpointReporter interface {
	ReportInvalid(ctx context.Context, endpoints []domain.DeviceEndpoint) error
}

// dispatchMetrics is the slice of observability.Metrics the dispatcher uses.
type dispatchMetrics interface {
	AddPushDelivered(count int)
	AddPushFailed(count int)
	AddPushSkipped(count int)
	AddInvalidTokens(count int)
}

// Dispatcher fans a notification intent out to device endpoints through the
// push gateway and aggregates per-recipient outcomes. It never retries:
// invalid tokens cannot succeed on retry, and transient failures are the
// caller's retry decision.
type Dispatcher struct {
	gateway   push.Gateway
	directory EndpointDirectory
	reporter  InvalidEndpointReporter
	limiter   ratelimit.RateLimiter
	logger    *zap.Logger
	metrics   dispatchMetrics
}

func NewDispatcher(
	gateway push.Gateway,
	directory EndpointDirectory,
	reporter InvalidEndpointReporter,
	limiter ratelimit.RateLimiter,
	logger *zap.Logger,
	metrics dispatchMetrics,
) (*Dispatcher, error) {
	if gateway == nil {
		return nil, fmt.Errorf("push gateway is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		gateway:   gateway,
		directory: directory,
		reporter:  reporter,
		limiter:   limiter,
		logger:    logger,
		metrics:   metrics,
	}, nil
}

// Dispatch delivers one intent to the given endpoints. The returned error is
// non-nil only when the whole batch failed at the provider level; partial
// failures live inside the BatchOutcome. Invalid endpoints are reported to
// the registry collaborator before returning.
func (d *Dispatcher) Dispatch(ctx context.Context, intent domain.NotificationIntent, recipients []domain.DeviceEndpoint) (domain.BatchOutcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var batch domain.BatchOutcome
	if err := intent.Validate(); err != nil {
		return batch, err
	}
	if len(recipients) == 0 {
		return batch, nil
	}

	if err := d.waitForPlatforms(ctx, recipients); err != nil {
		return batch, err
	}

	var sendErr error
	if len(recipients) == 1 {
		// Single-recipient sends carry the full per-platform payload.
		outcome, err := d.gateway.SendOne(ctx, recipients[0], intent)
		if outcome.Status.IsValid() {
			batch.Append(outcome)
		}
		sendErr = err
	} else {
		batch, sendErr = d.gateway.SendMany(ctx, recipients, intent)
	}

	d.record(batch)
	d.reportInvalid(ctx, batch.InvalidEndpoints)

	if sendErr != nil {
		d.logger.Error("push dispatch failed",
			zap.Int("recipients", len(recipients)),
			zap.Error(sendErr),
		)
		return batch, sendErr
	}

	d.logger.Info("push dispatched",
		zap.Int("recipients", len(recipients)),
		zap.Int("delivered", batch.SuccessCount),
		zap.Int("failed", batch.FailureCount),
		zap.Int("invalid", len(batch.InvalidEndpoints)),
	)
	return batch, nil
}

// DispatchToUsers resolves the users' device endpoints through the directory
// and dispatches to all of them. Users with no registered endpoints simply
// contribute nothing to the batch.
func (d *Dispatcher) DispatchToUsers(ctx context.Context, intent domain.NotificationIntent, userIDs []string) (domain.BatchOutcome, error) {
	if d.directory == nil {
		return domain.BatchOutcome{}, fmt.Errorf("endpoint directory is not configured")
	}
	if len(userIDs) == 0 {
		return domain.BatchOutcome{}, nil
	}

	endpoints, err := d.directory.ResolveForUsers(ctx, userIDs)
	if err != nil {
		return domain.BatchOutcome{}, fmt.Errorf("failed to resolve endpoints: %w", err)
	}

	return d.Dispatch(ctx, intent, endpoints)
}

func (d *Dispatcher) waitForPlatforms(ctx context.Context, recipients []domain.DeviceEndpoint) error {
	if d.limiter == nil {
		return nil
	}

	seen := make(map[domain.Platform]struct{}, 3)
	for _, recipient := range recipients {
		if _, ok := seen[recipient.Platform]; ok {
			continue
		}
		seen[recipient.Platform] = struct{}{}

		if err := d.limiter.Wait(ctx, strings.ToLower(recipient.Platform.String())); err != nil {
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}
	return nil
}

func (d *Dispatcher) reportInvalid(ctx context.Context, endpoints []domain.DeviceEndpoint) {
	if d.reporter == nil || len(endpoints) == 0 {
		return
	}

	if err := d.reporter.ReportInvalid(ctx, endpoints); err != nil {
		// Reporting is best-effort; the outcome already names the tokens.
		d.logger.Warn("failed to report invalid endpoints",
			zap.Int("count", len(endpoints)),
			zap.Error(err),
		)
		return
	}

	d.logger.Info("invalid endpoints reported for pruning",
		zap.Strings("tokens", domain.EndpointTokens(endpoints)),
	)
}

func (d *Dispatcher) record(batch domain.BatchOutcome) {
	if d.metrics == nil {
		return
	}

	skipped := 0
	for _, outcome := range batch.PerEndpoint {
		if outcome.Status == domain.OutcomeSkipped {
			skipped++
		}
	}

	d.metrics.AddPushDelivered(batch.SuccessCount)
	d.metrics.AddPushFailed(batch.FailureCount)
	d.metrics.AddPushSkipped(skipped)
	d.metrics.AddInvalidTokens(len(batch.InvalidEndpoints))
}
