package businesses

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aliasttt/bonusweb-sub000/pkg/db/models"
)

// Repository persists businesses and their product catalogs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, business *models.Business) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Business, error)
	GetByOwnerSubject(ctx context.Context, subject string) (*models.Business, error)
	List(ctx context.Context) ([]models.Business, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) (bool, error)

	CreateProduct(ctx context.Context, product *models.Product) error
	GetProduct(ctx context.Context, id, businessID uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, businessID uuid.UUID, activeOnly bool) ([]models.Product, error)
	UpdateProduct(ctx context.Context, id, businessID uuid.UUID, fields map[string]any) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a business repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, business *models.Business) error {
	return r.db.WithContext(ctx).Create(business).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Business, error) {
	var business models.Business
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&business).Error; err != nil {
		return nil, err
	}
	return &business, nil
}

func (r *repository) GetByOwnerSubject(ctx context.Context, subject string) (*models.Business, error) {
	var business models.Business
	if err := r.db.WithContext(ctx).Where("owner_subject = ?", subject).First(&business).Error; err != nil {
		return nil, err
	}
	return &business, nil
}

func (r *repository) List(ctx context.Context) ([]models.Business, error) {
	var businesses []models.Business
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&businesses).Error; err != nil {
		return nil, err
	}
	return businesses, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, fields map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Business{}).
		Where("id = ?", id).
		UpdateColumns(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *repository) GetProduct(ctx context.Context, id, businessID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("id = ? AND business_id = ?", id, businessID).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) ListProducts(ctx context.Context, businessID uuid.UUID, activeOnly bool) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Where("business_id = ?", businessID)
	if activeOnly {
		query = query.Where("active")
	}

	var products []models.Product
	if err := query.Order("title ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repository) UpdateProduct(ctx context.Context, id, businessID uuid.UUID, fields map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND business_id = ?", id, businessID).
		UpdateColumns(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
