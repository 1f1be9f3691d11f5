package models

import (
	"time"

	"github.com/google/uuid"
)

// QRCode is a business-issued single-use token. ScannedAt is null until the
// token is consumed; once set, every further award attempt is rejected.
type QRCode struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	BusinessID uuid.UUID  `gorm:"column:business_id;type:uuid;not null;index"`
	CampaignID *uuid.UUID `gorm:"column:campaign_id;type:uuid"`
	Token      string     `gorm:"column:token;uniqueIndex;not null"`
	Active     bool       `gorm:"column:active;not null;default:true"`
	ScannedAt  *time.Time `gorm:"column:scanned_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// GenerateQRToken returns an opaque token for a new QR code.
func GenerateQRToken() string {
	return uuid.New().String()
}
