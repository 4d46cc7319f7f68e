package domain

import (
	"fmt"
	"strings"
	"time"
)

// ShipmentStatus represents the delivery lifecycle state of a shipment.
type ShipmentStatus string

const (
	ShipmentStatusPending   ShipmentStatus = "PENDING"
	ShipmentStatusPickedUp  ShipmentStatus = "PICKED_UP"
	ShipmentStatusInTransit ShipmentStatus = "IN_TRANSIT"
	ShipmentStatusDelivered ShipmentStatus = "DELIVERED"
	ShipmentStatusCanceled  ShipmentStatus = "CANCELED"
)

func (s ShipmentStatus) String() string { return string(s) }

func (s ShipmentStatus) IsValid() bool {
	switch s {
	case ShipmentStatusPending, ShipmentStatusPickedUp, ShipmentStatusInTransit, ShipmentStatusDelivered, ShipmentStatusCanceled:
		return true
	}
	return false
}

func ParseShipmentStatusFromString(s string) (ShipmentStatus, error) {
	st := ShipmentStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid shipment status %q", ErrValidation, s)
	}
	return st, nil
}

// LocationSample is one shipper position report. Samples carry last-value
// semantics: each one supersedes the previous for every observer, no history
// is retained.
type LocationSample struct {
	Latitude  float64
	Longitude float64
	Heading   *float64
	Speed     *float64
	Timestamp time.Time
}

func (s LocationSample) Validate() error {
	if s.Latitude < -90 || s.Latitude > 90 {
		return fmt.Errorf("%w: latitude %f out of range", ErrValidation, s.Latitude)
	}
	if s.Longitude < -180 || s.Longitude > 180 {
		return fmt.Errorf("%w: longitude %f out of range", ErrValidation, s.Longitude)
	}
	if s.Heading != nil && (*s.Heading < 0 || *s.Heading >= 360) {
		return fmt.Errorf("%w: heading %f out of range", ErrValidation, *s.Heading)
	}
	if s.Speed != nil && *s.Speed < 0 {
		return fmt.Errorf("%w: speed %f must be non-negative", ErrValidation, *s.Speed)
	}
	return nil
}

// StatusUpdate announces a shipment state transition to room observers.
type StatusUpdate struct {
	Status    ShipmentStatus
	Message   string
	Timestamp time.Time
}

func (u StatusUpdate) Validate() error {
	if !u.Status.IsValid() {
		return fmt.Errorf("%w: invalid shipment status %q", ErrValidation, u.Status)
	}
	return nil
}
