package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer is a person transacting loyalty points. The row is created lazily
// on first contact and keyed by the subject issued by the external identity
// layer.
type Customer struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Subject         string     `gorm:"column:subject;uniqueIndex;not null"`
	Phone           *string    `gorm:"column:phone"`
	PhoneVerifiedAt *time.Time `gorm:"column:phone_verified_at"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
}
