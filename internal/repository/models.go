package repository

import (
	"time"

	"github.com/TienDattttt/shoppi-sub010/internal/domain"
)

// DeviceEndpointModel is the persistence model for the device_endpoints
// table. The table is owned by the device-registry service; this module
// reads it to resolve recipients and prunes rows the provider declared
// permanently invalid.
type DeviceEndpointModel struct {
	Token     string          `gorm:"type:varchar(255);primaryKey"`
	UserID    string          `gorm:"type:varchar(64);not null;index:idx_device_endpoints_user_id"`
	Platform  domain.Platform `gorm:"type:varchar(10);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (DeviceEndpointModel) TableName() string {
	return "device_endpoints"
}

func deviceEndpointModelToDomain(m *DeviceEndpointModel) domain.DeviceEndpoint {
	if m == nil {
		return domain.DeviceEndpoint{}
	}

	return domain.DeviceEndpoint{
		Token:    m.Token,
		UserID:   m.UserID,
		Platform: m.Platform,
	}
}
