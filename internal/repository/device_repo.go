package repository

import (
	"context"

	"github.com/TienDattttt/shoppi-sub010/internal/domain"
	"gorm.io/gorm"
)

// DeviceEndpointRepository is the directory of registered device endpoints.
type DeviceEndpointRepository interface {
	ResolveForUsers(ctx context.Context, userIDs []string) ([]domain.DeviceEndpoint, error)
	Remove(ctx context.Context, tokens []string) error
	ReportInvalid(ctx context.Context, endpoints []domain.DeviceEndpoint) error
}

type GormDeviceEndpointRepo struct {
	db *gorm.DB
}

func NewGormDeviceEndpointRepo(db *gorm.DB) *GormDeviceEndpointRepo {
	return &GormDeviceEndpointRepo{db: db}
}

// ResolveForUsers returns every registered endpoint belonging to the given
// users. Users without registered devices simply contribute nothing.
func (r *GormDeviceEndpointRepo) ResolveForUsers(ctx context.Context, userIDs []string) ([]domain.DeviceEndpoint, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	var models []DeviceEndpointModel
	err := r.db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Order("user_id, token").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	endpoints := make([]domain.DeviceEndpoint, 0, len(models))
	for i := range models {
		endpoints = append(endpoints, deviceEndpointModelToDomain(&models[i]))
	}

	return endpoints, nil
}

// Remove deletes the given tokens. Tokens that are already gone are not an
// error; invalid reports can race with the registry's own cleanup.
func (r *GormDeviceEndpointRepo) Remove(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).
		Where("token IN ?", tokens).
		Delete(&DeviceEndpointModel{}).Error
}

// ReportInvalid prunes endpoints the push provider declared permanently
// invalid.
func (r *GormDeviceEndpointRepo) ReportInvalid(ctx context.Context, endpoints []domain.DeviceEndpoint) error {
	return r.Remove(ctx, domain.EndpointTokens(endpoints))
}
