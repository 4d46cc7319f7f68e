package push

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/TienDattttt/shoppi-sub010/internal/domain"
	"github.com/go-resty/resty/v2"
)

const defaultLegacyTimeout = 10 * time.Second

// Registration-token error codes returned by the legacy HTTP endpoint.
const (
	legacyErrNotRegistered       = "NotRegistered"
	legacyErrInvalidRegistration = "InvalidRegistration"
)

type legacyRequest struct {
	To              string            `json:"to,omitempty"`
	RegistrationIDs []string          `json:"registration_ids,omitempty"`
	Notification    legacyBody        `json:"notification"`
	Data            map[string]string `json:"data,omitempty"`
	Priority        string            `json:"priority,omitempty"`
}

type legacyBody struct {
	Title       string `json:"title"`
	Body        string `json:"body"`
	Sound       string `json:"sound,omitempty"`
	ClickAction string `json:"click_action,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

type legacyResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
	Results []struct {
		MessageID string `json:"message_id"`
		Error     string `json:"error"`
	} `json:"results"`
}

// LegacyHTTPGateway sends pushes through an FCM legacy-protocol-compatible
// HTTP endpoint. It exists for deployments that cannot ship service-account
// credentials and run against a relay instead.
type LegacyHTTPGateway struct {
	client    *resty.Client
	endpoint  string
	serverKey string
}

func NewLegacyHTTPGateway(endpoint, serverKey string) (*LegacyHTTPGateway, error) {
	client := resty.New()
	client.SetTimeout(defaultLegacyTimeout)
	client.SetRetryCount(0)

	return NewLegacyHTTPGatewayWithClient(endpoint, serverKey, client)
}

func NewLegacyHTTPGatewayWithClient(endpoint, serverKey string, client *resty.Client) (*LegacyHTTPGateway, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("%w: legacy endpoint is required", ErrProviderUnavailable)
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid legacy endpoint: %w", err)
	}
	if strings.TrimSpace(serverKey) == "" {
		return nil, fmt.Errorf("%w: server key is required", ErrProviderUnavailable)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultLegacyTimeout)
	}
	client.SetRetryCount(0)

	return &LegacyHTTPGateway{
		client:    client,
		endpoint:  trimmedEndpoint,
		serverKey: strings.TrimSpace(serverKey),
	}, nil
}

func (g *LegacyHTTPGateway) SendOne(ctx context.Context, endpoint domain.DeviceEndpoint, intent domain.NotificationIntent) (domain.DeliveryOutcome, error) {
	if err := endpoint.Validate(); err != nil {
		return domain.DeliveryOutcome{}, err
	}
	if err := intent.Validate(); err != nil {
		return domain.DeliveryOutcome{}, err
	}

	req := legacyRequest{
		To:           endpoint.Token,
		Notification: shapeLegacyBody(intent),
		Data:         intent.Data,
		Priority:     legacyPriority(intent.Hints),
	}

	resp, err := g.post(ctx, req)
	if err != nil {
		return domain.TransientFailure(endpoint, err), err
	}

	if len(resp.Results) == 0 {
		err := &ProviderError{Message: "provider returned no results", Transient: true}
		return domain.TransientFailure(endpoint, err), err
	}

	result := resp.Results[0]
	switch {
	case result.Error == "":
		return domain.Delivered(endpoint, result.MessageID), nil
	case isLegacyTokenError(result.Error):
		return domain.PermanentlyInvalid(endpoint), nil
	default:
		err := &ProviderError{Code: result.Error, Transient: true}
		return domain.TransientFailure(endpoint, err), err
	}
}

func (g *LegacyHTTPGateway) SendMany(ctx context.Context, endpoints []domain.DeviceEndpoint, intent domain.NotificationIntent) (domain.BatchOutcome, error) {
	var batch domain.BatchOutcome
	if len(endpoints) == 0 {
		return batch, nil
	}
	if err := intent.Validate(); err != nil {
		return batch, err
	}

	req := legacyRequest{
		RegistrationIDs: domain.EndpointTokens(endpoints),
		Notification:    legacyBody{Title: intent.Title, Body: intent.Body},
		Data:            intent.Data,
		Priority:        legacyPriority(intent.Hints),
	}

	resp, err := g.post(ctx, req)
	if err != nil {
		return batch, err
	}

	for i, endpoint := range endpoints {
		if i >= len(resp.Results) {
			err := &ProviderError{Message: "provider result missing for endpoint", Transient: true}
			batch.Append(domain.TransientFailure(endpoint, err))
			continue
		}

		result := resp.Results[i]
		switch {
		case result.Error == "":
			batch.Append(domain.Delivered(endpoint, result.MessageID))
		case isLegacyTokenError(result.Error):
			batch.Append(domain.PermanentlyInvalid(endpoint))
		default:
			batch.Append(domain.TransientFailure(endpoint, &ProviderError{Code: result.Error, Transient: true}))
		}
	}

	return batch, nil
}

func (g *LegacyHTTPGateway) post(ctx context.Context, body legacyRequest) (*legacyResponse, error) {
	var parsed legacyResponse

	response, err := g.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "key="+g.serverKey).
		SetBody(body).
		SetResult(&parsed).
		Post(g.endpoint)
	if err != nil {
		return nil, &ProviderError{
			Message:   "provider request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}

	statusCode := response.StatusCode()
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return nil, &ProviderError{
			StatusCode: statusCode,
			Message:    fmt.Sprintf("provider returned status %d", statusCode),
			Transient:  isTransientHTTPStatus(statusCode),
		}
	}

	return &parsed, nil
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func isLegacyTokenError(code string) bool {
	return code == legacyErrNotRegistered || code == legacyErrInvalidRegistration
}

func shapeLegacyBody(intent domain.NotificationIntent) legacyBody {
	body := legacyBody{Title: intent.Title, Body: intent.Body}
	if intent.Hints != nil {
		body.Sound = intent.Hints.Sound
		body.ClickAction = intent.Hints.ClickAction
		body.Icon = intent.Hints.Icon
	}
	return body
}

func legacyPriority(hints *domain.PlatformHints) string {
	if hints != nil && hints.HighPriority {
		return "high"
	}
	return ""
}
