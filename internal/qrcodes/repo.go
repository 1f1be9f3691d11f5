package qrcodes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aliasttt/bonusweb-sub000/pkg/db/models"
)

// Repository persists business-issued QR codes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateBatch(ctx context.Context, codes []models.QRCode) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.QRCode, error)
	GetByToken(ctx context.Context, token string) (*models.QRCode, error)
	ListByBusiness(ctx context.Context, businessID uuid.UUID, unscannedOnly bool) ([]models.QRCode, error)
	Deactivate(ctx context.Context, id, businessID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a QR code repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateBatch(ctx context.Context, codes []models.QRCode) error {
	if len(codes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&codes).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.QRCode, error) {
	var code models.QRCode
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&code).Error; err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *repository) GetByToken(ctx context.Context, token string) (*models.QRCode, error) {
	var code models.QRCode
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&code).Error; err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *repository) ListByBusiness(ctx context.Context, businessID uuid.UUID, unscannedOnly bool) ([]models.QRCode, error) {
	query := r.db.WithContext(ctx).Where("business_id = ?", businessID)
	if unscannedOnly {
		query = query.Where("scanned_at IS NULL AND active")
	}

	var codes []models.QRCode
	if err := query.Order("created_at DESC").Find(&codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

// Deactivate flips the code inactive. Returns false when the code does not
// belong to the business or does not exist.
func (r *repository) Deactivate(ctx context.Context, id, businessID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.QRCode{}).
		Where("id = ? AND business_id = ? AND active", id, businessID).
		UpdateColumn("active", false)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
