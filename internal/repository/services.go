package repository

import (
	"context"

	"github.com/communehq/commune/internal/models"
	"gorm.io/gorm"
)

// ServiceRepository handles community-offered services
type ServiceRepository interface {
	CreateService(ctx context.Context, service *models.Service) error
	ListByCommunity(ctx context.Context, communityID string, limit, offset int) ([]*models.Service, error)
}

type serviceRepository struct {
	db *gorm.DB
}

func NewServiceRepository(db *gorm.DB) ServiceRepository {
	return &serviceRepository{db: db}
}

func (r *serviceRepository) CreateService(ctx context.Context, service *models.Service) error {
	if service == nil || service.CommunityID == "" || service.ProviderID == "" || service.Name == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(service).Error
}

func (r *serviceRepository) ListByCommunity(ctx context.Context, communityID string, limit, offset int) ([]*models.Service, error) {
	limit, offset = clampPage(limit, offset)
	services := []*models.Service{}
	err := r.db.WithContext(ctx).Preload("Provider").
		Where("community_id = ?", communityID).
		Order("name ASC").
		Limit(limit).Offset(offset).
		Find(&services).Error
	return services, err
}
