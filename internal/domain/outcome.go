package domain

// OutcomeStatus is the closed classification of one delivery attempt.
// Provider-specific error codes are translated into this set exactly once at
// the gateway boundary; nothing downstream inspects provider error strings.
type OutcomeStatus string

const (
	// OutcomeDelivered means the provider acknowledged the message.
	OutcomeDelivered OutcomeStatus = "DELIVERED"
	// OutcomeTransient means delivery failed for a reason a retry could fix.
	OutcomeTransient OutcomeStatus = "TRANSIENT_FAILURE"
	// OutcomeInvalid means the provider reported the token unknown or revoked.
	// The endpoint must be pruned and never retried.
	OutcomeInvalid OutcomeStatus = "PERMANENTLY_INVALID"
	// OutcomeSkipped means push delivery is not configured. This is a normal
	// operating mode, not an error.
	OutcomeSkipped OutcomeStatus = "SKIPPED"
)

func (s OutcomeStatus) String() string { return string(s) }

func (s OutcomeStatus) IsValid() bool {
	switch s {
	case OutcomeDelivered, OutcomeTransient, OutcomeInvalid, OutcomeSkipped:
		return true
	}
	return false
}

// DeliveryOutcome is the result of attempting one endpoint.
type DeliveryOutcome struct {
	Endpoint          DeviceEndpoint
	Status            OutcomeStatus
	ProviderMessageID string
	Cause             error
}

func Delivered(endpoint DeviceEndpoint, providerMessageID string) DeliveryOutcome {
	return DeliveryOutcome{Endpoint: endpoint, Status: OutcomeDelivered, ProviderMessageID: providerMessageID}
}

func TransientFailure(endpoint DeviceEndpoint, cause error) DeliveryOutcome {
	return DeliveryOutcome{Endpoint: endpoint, Status: OutcomeTransient, Cause: cause}
}

func PermanentlyInvalid(endpoint DeviceEndpoint) DeliveryOutcome {
	return DeliveryOutcome{Endpoint: endpoint, Status: OutcomeInvalid}
}

func Skipped(endpoint DeviceEndpoint) DeliveryOutcome {
	return DeliveryOutcome{Endpoint: endpoint, Status: OutcomeSkipped}
}

// BatchOutcome aggregates per-endpoint outcomes for one dispatch.
// PerEndpoint is positionally aligned with the recipient list handed to the
// gateway; InvalidEndpoints enumerates the subset the caller must prune.
type BatchOutcome struct {
	SuccessCount     int
	FailureCount     int
	InvalidEndpoints []DeviceEndpoint
	PerEndpoint      []DeliveryOutcome
}

// Append records one outcome and keeps the aggregate counters consistent.
// Skipped outcomes count as neither success nor failure.
func (b *BatchOutcome) Append(outcome DeliveryOutcome) {
	b.PerEndpoint = append(b.PerEndpoint, outcome)

	switch outcome.Status {
	case OutcomeDelivered:
		b.SuccessCount++
	case OutcomeTransient:
		b.FailureCount++
	case OutcomeInvalid:
		b.FailureCount++
		b.InvalidEndpoints = append(b.InvalidEndpoints, outcome.Endpoint)
	}
}
