package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a business menu entry. PointsReward is the number of points a
// product-basket scan contributes; reward items contribute it negatively
// (they are paid for with points).
type Product struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	BusinessID   uuid.UUID `gorm:"column:business_id;type:uuid;not null;index"`
	Title        string    `gorm:"column:title;not null"`
	PriceCents   int       `gorm:"column:price_cents;not null;default:0"`
	PointsReward int       `gorm:"column:points_reward;not null;default:0"`
	RewardItem   bool      `gorm:"column:reward_item;not null;default:false"`
	Active       bool      `gorm:"column:active;not null;default:true"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}
