package models

import (
	"time"

	"github.com/google/uuid"
)

// ScanRecord deduplicates payload-based QR scans. The row is keyed by a
// canonical hash of {business, customer, sorted product ids}; its existence
// alone blocks any identical payload from awarding again.
type ScanRecord struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash;uniqueIndex:idx_scan_records_payload_hash;not null"`
	BusinessID  uuid.UUID `gorm:"column:business_id;type:uuid;not null"`
	CustomerID  uuid.UUID `gorm:"column:customer_id;type:uuid;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
