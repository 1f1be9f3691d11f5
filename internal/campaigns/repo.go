package campaigns

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aliasttt/bonusweb-sub000/pkg/db/models"
)

// Repository persists campaigns.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, campaign *models.Campaign) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]models.Campaign, error)
	Update(ctx context.Context, id, businessID uuid.UUID, fields map[string]any) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a campaign repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, campaign *models.Campaign) error {
	return r.db.WithContext(ctx).Create(campaign).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&campaign).Error; err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (r *repository) ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	err := r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("created_at DESC").
		Find(&campaigns).Error
	if err != nil {
		return nil, err
	}
	return campaigns, nil
}

// Update applies the given columns when the campaign belongs to the business.
// Returns false when no row matched.
func (r *repository) Update(ctx context.Context, id, businessID uuid.UUID, fields map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Campaign{}).
		Where("id = ? AND business_id = ?", id, businessID).
		UpdateColumns(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
