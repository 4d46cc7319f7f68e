package channel

import (
	"fmt"
	"strings"
	"time"

	"github.com/TienDattttt/shoppi-sub010/internal/domain"
)

// FrameType identifies one logical wire message. The protocol is transport
// agnostic; frames are JSON however the physical connection carries them.
type FrameType string

const (
	FrameJoinRoom       FrameType = "join-room"
	FrameLeaveRoom      FrameType = "leave-room"
	FrameLocationUpdate FrameType = "location-update"
	FrameStatusUpdate   FrameType = "status-update"
)

func (t FrameType) IsValid() bool {
	switch t {
	case FrameJoinRoom, FrameLeaveRoom, FrameLocationUpdate, FrameStatusUpdate:
		return true
	}
	return false
}

// LocationPayload carries one position report. Timestamp is optional on the
// wire; the receiving side stamps current time when it is absent.
type LocationPayload struct {
	Latitude  float64    `json:"lat"`
	Longitude float64    `json:"lng"`
	Heading   *float64   `json:"heading,omitempty"`
	Speed     *float64   `json:"speed,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// StatusPayload carries one shipment state transition.
type StatusPayload struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Frame is one logical protocol message in either direction.
type Frame struct {
	Type       FrameType        `json:"type"`
	ShipmentID string           `json:"shipmentId"`
	Location   *LocationPayload `json:"location,omitempty"`
	Status     *StatusPayload   `json:"status,omitempty"`
}

func JoinFrame(shipmentID string) Frame {
	return Frame{Type: FrameJoinRoom, ShipmentID: shipmentID}
}

func LeaveFrame(shipmentID string) Frame {
	return Frame{Type: FrameLeaveRoom, ShipmentID: shipmentID}
}

func LocationFrame(shipmentID string, sample domain.LocationSample) Frame {
	payload := &LocationPayload{
		Latitude:  sample.Latitude,
		Longitude: sample.Longitude,
		Heading:   sample.Heading,
		Speed:     sample.Speed,
	}
	if !sample.Timestamp.IsZero() {
		ts := sample.Timestamp
		payload.Timestamp = &ts
	}
	return Frame{Type: FrameLocationUpdate, ShipmentID: shipmentID, Location: payload}
}

func StatusFrame(shipmentID string, update domain.StatusUpdate) Frame {
	return Frame{Type: FrameStatusUpdate, ShipmentID: shipmentID, Status: &StatusPayload{
		Status:    update.Status.String(),
		Message:   update.Message,
		Timestamp: update.Timestamp,
	}}
}

func (f Frame) Validate() error {
	if !f.Type.IsValid() {
		return fmt.Errorf("%w: invalid frame type %q", domain.ErrValidation, f.Type)
	}
	if strings.TrimSpace(f.ShipmentID) == "" {
		return fmt.Errorf("%w: shipmentId is required", domain.ErrValidation)
	}
	if f.Type == FrameLocationUpdate && f.Location == nil {
		return fmt.Errorf("%w: location-update frame requires a location payload", domain.ErrValidation)
	}
	if f.Type == FrameStatusUpdate && f.Status == nil {
		return fmt.Errorf("%w: status-update frame requires a status payload", domain.ErrValidation)
	}
	return nil
}

// Sample converts a location payload into its domain form, stamping the
// receive time when the wire carried no timestamp.
func (p *LocationPayload) Sample(now func() time.Time) domain.LocationSample {
	if now == nil {
		now = time.Now
	}

	sample := domain.LocationSample{
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
		Heading:   p.Heading,
		Speed:     p.Speed,
	}
	if p.Timestamp != nil {
		sample.Timestamp = *p.Timestamp
	} else {
		sample.Timestamp = now().UTC()
	}
	return sample
}
