package models

import (
	"time"

	"github.com/google/uuid"
)

// Wallet is the point balance of one customer at one business. PointsBalance
// is a denormalized accelerator: it must equal the sum of the wallet's
// committed points transactions at every observation instant, so every write
// to it happens in the same transaction as the ledger insert.
type Wallet struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	CustomerID      uuid.UUID `gorm:"column:customer_id;type:uuid;not null;uniqueIndex:idx_wallets_customer_business"`
	BusinessID      uuid.UUID `gorm:"column:business_id;type:uuid;not null;uniqueIndex:idx_wallets_customer_business"`
	PointsBalance   int       `gorm:"column:points_balance;not null;default:0"`
	RewardPointCost *int      `gorm:"column:reward_point_cost"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectiveRewardCost applies the wallet-level override, else the business
// default captured at call time.
func (w *Wallet) EffectiveRewardCost(businessDefault int) int {
	if w.RewardPointCost != nil && *w.RewardPointCost > 0 {
		return *w.RewardPointCost
	}
	return businessDefault
}
