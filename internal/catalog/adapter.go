package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aliasttt/bonusweb-sub000/pkg/db/models"
)

// Adapter resolves the catalog entities that determine point value per scan:
// businesses, their products, campaigns and issued QR codes. Read-only from
// the wallet engine's perspective.
type Adapter interface {
	BusinessByID(ctx context.Context, id uuid.UUID) (*models.Business, error)
	QRCodeByToken(ctx context.Context, token string) (*models.QRCode, error)
	CampaignByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	ActiveProducts(ctx context.Context, businessID uuid.UUID, ids []uuid.UUID) ([]models.Product, error)
}

type adapter struct {
	db *gorm.DB
}

// NewAdapter returns a catalog adapter bound to the provided database.
func NewAdapter(conn *gorm.DB) Adapter {
	return &adapter{db: conn}
}

func (a *adapter) BusinessByID(ctx context.Context, id uuid.UUID) (*models.Business, error) {
	var business models.Business
	if err := a.db.WithContext(ctx).Where("id = ?", id).First(&business).Error; err != nil {
		return nil, err
	}
	return &business, nil
}

func (a *adapter) QRCodeByToken(ctx context.Context, token string) (*models.QRCode, error) {
	var qr models.QRCode
	if err := a.db.WithContext(ctx).Where("token = ? AND active", token).First(&qr).Error; err != nil {
		return nil, err
	}
	return &qr, nil
}

func (a *adapter) CampaignByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := a.db.WithContext(ctx).Where("id = ?", id).First(&campaign).Error; err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (a *adapter) ActiveProducts(ctx context.Context, businessID uuid.UUID, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []models.Product
	err := a.db.WithContext(ctx).
		Where("business_id = ? AND active AND id IN ?", businessID, ids).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}
