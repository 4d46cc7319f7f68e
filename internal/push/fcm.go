package push

import (
	"context"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/TienDattttt/shoppi-sub010/internal/domain"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// FCMGateway delivers pushes through Firebase Cloud Messaging.
type FCMGateway struct {
	client fcmClient
	logger *zap.Logger
}

// fcmClient is the slice of *messaging.Client the gateway uses.
type fcmClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

func NewFCMGateway(ctx context.Context, credentialsFile string, logger *zap.Logger) (*FCMGateway, error) {
	if strings.TrimSpace(credentialsFile) == "" {
		return nil, fmt.Errorf("%w: credentials file is required", ErrProviderUnavailable)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize fcm client: %w", err)
	}

	return &FCMGateway{client: client, logger: logger}, nil
}

func newFCMGatewayWithClient(client fcmClient, logger *zap.Logger) (*FCMGateway, error) {
	if client == nil {
		return nil, fmt.Errorf("fcm client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FCMGateway{client: client, logger: logger}, nil
}

func (g *FCMGateway) SendOne(ctx context.Context, endpoint domain.DeviceEndpoint, intent domain.NotificationIntent) (domain.DeliveryOutcome, error) {
	if err := endpoint.Validate(); err != nil {
		return domain.DeliveryOutcome{}, err
	}
	if err := intent.Validate(); err != nil {
		return domain.DeliveryOutcome{}, err
	}

	messageID, err := g.client.Send(ctx, singleMessage(endpoint, intent))
	if err != nil {
		if messaging.IsUnregistered(err) {
			g.logger.Debug("fcm reported token unregistered",
				zap.String("token", endpoint.Token),
			)
			return domain.PermanentlyInvalid(endpoint), nil
		}
		return domain.TransientFailure(endpoint, err), err
	}

	return domain.Delivered(endpoint, messageID), nil
}

func (g *FCMGateway) SendMany(ctx context.Context, endpoints []domain.DeviceEndpoint, intent domain.NotificationIntent) (domain.BatchOutcome, error) {
	var batch domain.BatchOutcome
	if len(endpoints) == 0 {
		return batch, nil
	}
	if err := intent.Validate(); err != nil {
		return batch, err
	}

	resp, err := g.client.SendEachForMulticast(ctx, multicastMessage(endpoints, intent))
	if err != nil {
		// The provider call itself failed; no per-endpoint results exist.
		return batch, err
	}

	for i, result := range resp.Responses {
		endpoint := endpoints[i]
		switch {
		case result.Error == nil:
			batch.Append(domain.Delivered(endpoint, result.MessageID))
		case messaging.IsUnregistered(result.Error):
			batch.Append(domain.PermanentlyInvalid(endpoint))
		default:
			batch.Append(domain.TransientFailure(endpoint, result.Error))
		}
	}

	return batch, nil
}

// singleMessage shapes the full per-platform payload for one endpoint. Only
// the target platform's presentation section is populated.
func singleMessage(endpoint domain.DeviceEndpoint, intent domain.NotificationIntent) *messaging.Message {
	msg := &messaging.Message{
		Token: endpoint.Token,
		Notification: &messaging.Notification{
			Title: intent.Title,
			Body:  intent.Body,
		},
		Data: intent.Data,
	}

	hints := intent.Hints
	if hints == nil {
		hints = &domain.PlatformHints{}
	}

	switch endpoint.Platform {
	case domain.PlatformAndroid:
		msg.Android = androidConfig(hints)
	case domain.PlatformIOS:
		msg.APNS = apnsConfig(hints)
	case domain.PlatformWeb:
		msg.Webpush = webpushConfig(hints)
	}

	return msg
}

// multicastMessage shapes the reduced shared payload for a batch. Per-platform
// sections carry only priority so one payload serves mixed platforms.
func multicastMessage(endpoints []domain.DeviceEndpoint, intent domain.NotificationIntent) *messaging.MulticastMessage {
	msg := &messaging.MulticastMessage{
		Tokens: domain.EndpointTokens(endpoints),
		Notification: &messaging.Notification{
			Title: intent.Title,
			Body:  intent.Body,
		},
		Data: intent.Data,
	}

	if intent.Hints != nil && intent.Hints.HighPriority {
		msg.Android = &messaging.AndroidConfig{Priority: "high"}
		msg.APNS = &messaging.APNSConfig{
			Headers: map[string]string{"apns-priority": "10"},
		}
	}

	return msg
}

func androidConfig(hints *domain.PlatformHints) *messaging.AndroidConfig {
	priority := "normal"
	if hints.HighPriority {
		priority = "high"
	}
	return &messaging.AndroidConfig{
		Priority: priority,
		Notification: &messaging.AndroidNotification{
			Sound:       hints.Sound,
			ClickAction: hints.ClickAction,
			Icon:        hints.Icon,
		},
	}
}

func apnsConfig(hints *domain.PlatformHints) *messaging.APNSConfig {
	priority := "5"
	if hints.HighPriority {
		priority = "10"
	}
	return &messaging.APNSConfig{
		Headers: map[string]string{"apns-priority": priority},
		Payload: &messaging.APNSPayload{
			Aps: &messaging.Aps{
				Sound: hints.Sound,
				Badge: hints.BadgeCount,
			},
		},
	}
}

func webpushConfig(hints *domain.PlatformHints) *messaging.WebpushConfig {
	return &messaging.WebpushConfig{
		Notification: &messaging.WebpushNotification{
			Icon: hints.Icon,
		},
	}
}
