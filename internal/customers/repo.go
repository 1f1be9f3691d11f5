package customers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aliasttt/bonusweb-sub000/pkg/db"
	"github.com/aliasttt/bonusweb-sub000/pkg/db/models"
)

// Repository manages customer profiles keyed by the external identity
// subject. Profiles are created lazily on first contact.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetOrCreateBySubject(ctx context.Context, subject string) (*models.Customer, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	SetPhone(ctx context.Context, id uuid.UUID, phone string, verifiedAt *time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a customer repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetOrCreateBySubject(ctx context.Context, subject string) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).Where("subject = ?", subject).First(&customer).Error
	if err == nil {
		return &customer, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	created := &models.Customer{ID: uuid.New(), Subject: subject}
	if err := r.db.WithContext(ctx).Create(created).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			err = r.db.WithContext(ctx).Where("subject = ?", subject).First(&customer).Error
			if err != nil {
				return nil, err
			}
			return &customer, nil
		}
		return nil, err
	}
	return created, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repository) SetPhone(ctx context.Context, id uuid.UUID, phone string, verifiedAt *time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"phone":             phone,
			"phone_verified_at": verifiedAt,
		}).Error
}
