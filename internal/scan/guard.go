package scan

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aliasttt/bonusweb-sub000/pkg/db"
	"github.com/aliasttt/bonusweb-sub000/pkg/db/models"
)

// Guard enforces that a QR artifact is honored at most once. Two consumption
// models exist: token-based codes carry their own scanned_at marker, and
// payload-based scans are deduplicated by a canonical content hash.
type Guard struct {
	db *gorm.DB
}

// NewGuard returns a guard bound to the provided database handle. Pass the
// enclosing transaction so consumption marks roll back with the award.
func NewGuard(conn *gorm.DB) *Guard {
	return &Guard{db: conn}
}

// WithTx rebinds the guard to a transaction.
func (g *Guard) WithTx(tx *gorm.DB) *Guard {
	if tx == nil {
		return g
	}
	return &Guard{db: tx}
}

// ConsumeToken atomically claims a QR code. It returns false when the code
// was already consumed by an earlier (or concurrent) scan; the conditional
// update makes the claim race-safe without a separate read.
func (g *Guard) ConsumeToken(ctx context.Context, qrID uuid.UUID, now time.Time) (bool, error) {
	result := g.db.WithContext(ctx).
		Model(&models.QRCode{}).
		Where("id = ? AND scanned_at IS NULL", qrID).
		UpdateColumn("scanned_at", now)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// TokenConsumed reports whether a QR code was already claimed, without
// claiming it. Callers still need ConsumeToken for the race-safe mark; this
// exists so a dead token can be rejected as such before any other gate fires.
func (g *Guard) TokenConsumed(ctx context.Context, qrID uuid.UUID) (bool, error) {
	var count int64
	err := g.db.WithContext(ctx).
		Model(&models.QRCode{}).
		Where("id = ? AND scanned_at IS NOT NULL", qrID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// PayloadSeen reports whether a payload hash was already honored, without
// recording it.
func (g *Guard) PayloadSeen(ctx context.Context, payloadHash string) (bool, error) {
	var count int64
	err := g.db.WithContext(ctx).
		Model(&models.ScanRecord{}).
		Where("payload_hash = ?", payloadHash).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CheckAndRecord inserts a dedup row for the payload hash. A unique-constraint
// violation means the identical payload was already honored; the caller must
// reject the award, not retry.
func (g *Guard) CheckAndRecord(ctx context.Context, payloadHash string, businessID, customerID uuid.UUID) (bool, error) {
	record := &models.ScanRecord{
		ID:          uuid.New(),
		PayloadHash: payloadHash,
		BusinessID:  businessID,
		CustomerID:  customerID,
	}
	if err := g.db.WithContext(ctx).Create(record).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// PayloadHash computes the canonical dedup hash for a product-basket scan.
// Product IDs are sorted before serialization so key or array order cannot
// produce distinct hashes for the same logical scan.
func PayloadHash(businessID, customerID uuid.UUID, productIDs []uuid.UUID) string {
	sorted := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		sorted = append(sorted, id.String())
	}
	sort.Strings(sorted)

	payload := fmt.Sprintf("%s|%s|%s", businessID, customerID, strings.Join(sorted, ","))
	digest := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(digest[:])
}
