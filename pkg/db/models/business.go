package models

import (
	"time"

	"github.com/google/uuid"
)

// Business represents a loyalty tenant. Customers accrue points in a wallet
// scoped to one business.
type Business struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerSubject     string    `gorm:"column:owner_subject;uniqueIndex;not null"`
	Name             string    `gorm:"column:name;not null"`
	Description      string    `gorm:"column:description"`
	Address          string    `gorm:"column:address"`
	Website          string    `gorm:"column:website"`
	RewardPointCost  int       `gorm:"column:reward_point_cost;not null;default:100"`
	ScanPasswordHash *string   `gorm:"column:scan_password_hash"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// HasScanPassword reports whether token scans against this business require a
// password check.
func (b *Business) HasScanPassword() bool {
	return b.ScanPasswordHash != nil && *b.ScanPasswordHash != ""
}
