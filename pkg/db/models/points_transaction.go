package models

import (
	"time"

	"github.com/google/uuid"
)

// PointsTransaction is an immutable, append-only ledger entry recording a
// signed point delta against a wallet. Rows are never updated or deleted.
type PointsTransaction struct {
	ID         int64      `gorm:"column:id;primaryKey;autoIncrement"`
	WalletID   uuid.UUID  `gorm:"column:wallet_id;type:uuid;not null;index"`
	CampaignID *uuid.UUID `gorm:"column:campaign_id;type:uuid"`
	Points     int        `gorm:"column:points;not null"`
	Note       string     `gorm:"column:note"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
}
