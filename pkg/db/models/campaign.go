package models

import (
	"time"

	"github.com/google/uuid"
)

// Campaign scopes how many points a token-based scan is worth. Read-only from
// the ledger's perspective.
type Campaign struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	BusinessID    uuid.UUID  `gorm:"column:business_id;type:uuid;not null;index"`
	Name          string     `gorm:"column:name;not null"`
	Description   string     `gorm:"column:description"`
	StartAt       *time.Time `gorm:"column:start_at"`
	EndAt         *time.Time `gorm:"column:end_at"`
	IsActive      bool       `gorm:"column:is_active;not null;default:true"`
	PointsPerScan int        `gorm:"column:points_per_scan;not null;default:1"`
	DailyLimit    *int       `gorm:"column:daily_limit"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// ActiveAt reports whether the campaign window covers the given instant.
func (c *Campaign) ActiveAt(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	if c.StartAt != nil && now.Before(*c.StartAt) {
		return false
	}
	if c.EndAt != nil && now.After(*c.EndAt) {
		return false
	}
	return true
}
