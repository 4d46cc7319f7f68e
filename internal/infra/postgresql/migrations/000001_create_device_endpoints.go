package migrations

import (
	"github.com/TienDattttt/shoppi-sub010/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createDeviceEndpointsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_device_endpoints",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.DeviceEndpointModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_device_endpoints_user_id ON device_endpoints (user_id)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.DeviceEndpointModel{})
		},
	}
}
