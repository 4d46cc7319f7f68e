package events

import (
	"fmt"
	"strings"
	"time"

	"github.com/TienDattttt/shoppi-sub010/internal/domain"
)

// NotifyBlock asks for a push notification alongside the status broadcast.
type NotifyBlock struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// ShipmentEventMessage is the broker payload for a shipment state change.
type ShipmentEventMessage struct {
	ShipmentID    string                `json:"shipmentId"`
	Status        domain.ShipmentStatus `json:"status"`
	Message       string                `json:"message,omitempty"`
	Timestamp     time.Time             `json:"timestamp"`
	Notify        *NotifyBlock          `json:"notify,omitempty"`
	UserIDs       []string              `json:"userIds,omitempty"`
	CorrelationID string                `json:"correlationId,omitempty"`
}

func (m ShipmentEventMessage) Validate() error {
	if strings.TrimSpace(m.ShipmentID) == "" {
		return fmt.Errorf("shipmentId is required")
	}
	if !m.Status.IsValid() {
		return fmt.Errorf("invalid status %q", m.Status)
	}
	if m.Notify != nil {
		if strings.TrimSpace(m.Notify.Title) == "" {
			return fmt.Errorf("notify.title is required")
		}
		if strings.TrimSpace(m.Notify.Body) == "" {
			return fmt.Errorf("notify.body is required")
		}
		if len(m.UserIDs) == 0 {
			return fmt.Errorf("userIds are required when notify is set")
		}
	}
	return nil
}
