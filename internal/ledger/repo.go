package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aliasttt/bonusweb-sub000/pkg/db"
	"github.com/aliasttt/bonusweb-sub000/pkg/db/models"
	pkgerrors "github.com/aliasttt/bonusweb-sub000/pkg/errors"
	"github.com/aliasttt/bonusweb-sub000/pkg/pagination"
)

// Repository is the durable store for wallets and points transactions. All
// balance mutations go through AppendTransaction so the cached balance and
// the ledger can never diverge.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetOrCreateWallet(ctx context.Context, customerID, businessID uuid.UUID, defaultCost int) (*models.Wallet, error)
	GetWallet(ctx context.Context, customerID, businessID uuid.UUID) (*models.Wallet, error)
	LockWallet(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error)
	AppendTransaction(ctx context.Context, wallet *models.Wallet, delta int, note string, campaignID *uuid.UUID) (*models.PointsTransaction, error)
	ListWalletsByCustomer(ctx context.Context, customerID uuid.UUID) ([]WalletWithBusiness, error)
	ListTransactionsByCustomer(ctx context.Context, params HistoryParams) ([]HistoryEntry, *pagination.Cursor, error)
	SumTransactions(ctx context.Context, walletID uuid.UUID) (int, error)
	CountCampaignTransactionsSince(ctx context.Context, walletID, campaignID uuid.UUID, since time.Time) (int64, error)
}

// WalletWithBusiness is a wallet row joined with the owning business.
type WalletWithBusiness struct {
	models.Wallet
	BusinessName       string `gorm:"column:business_name"`
	BusinessRewardCost int    `gorm:"column:business_reward_cost"`
}

// HistoryEntry is a ledger row joined with the wallet's business for
// customer-facing history.
type HistoryEntry struct {
	ID         int64      `gorm:"column:id"`
	BusinessID uuid.UUID  `gorm:"column:business_id"`
	Points     int        `gorm:"column:points"`
	Note       string     `gorm:"column:note"`
	CampaignID *uuid.UUID `gorm:"column:campaign_id"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
}

// HistoryParams configures the history query.
type HistoryParams struct {
	CustomerID uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// GetOrCreateWallet resolves the unique (customer, business) wallet, creating
// it with a zero balance on first contact. A concurrent first-time creation
// loses the insert race on the unique index and transparently becomes a fetch.
func (r *repository) GetOrCreateWallet(ctx context.Context, customerID, businessID uuid.UUID, defaultCost int) (*models.Wallet, error) {
	wallet, err := r.GetWallet(ctx, customerID, businessID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cost := defaultCost
	created := &models.Wallet{
		ID:              uuid.New(),
		CustomerID:      customerID,
		BusinessID:      businessID,
		PointsBalance:   0,
		RewardPointCost: &cost,
	}
	if err := r.db.WithContext(ctx).Create(created).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return r.GetWallet(ctx, customerID, businessID)
		}
		return nil, err
	}
	return created, nil
}

func (r *repository) GetWallet(ctx context.Context, customerID, businessID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND business_id = ?", customerID, businessID).
		First(&wallet).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// LockWallet acquires an exclusive row lock for the duration of the enclosing
// transaction. SQLite serializes writers at the connection level, so the
// explicit FOR UPDATE clause is only emitted on Postgres.
func (r *repository) LockWallet(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error) {
	query := r.db.WithContext(ctx).Where("id = ?", walletID)
	if r.db.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var wallet models.Wallet
	if err := query.First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// AppendTransaction inserts the immutable ledger row and applies the delta to
// the cached balance in one unit of work. The guarded UPDATE refuses any
// delta that would take the balance negative; the enclosing transaction must
// roll back on that error so neither side commits.
func (r *repository) AppendTransaction(ctx context.Context, wallet *models.Wallet, delta int, note string, campaignID *uuid.UUID) (*models.PointsTransaction, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ? AND points_balance + ? >= 0", wallet.ID, delta).
		UpdateColumns(map[string]any{
			"points_balance": gorm.Expr("points_balance + ?", delta),
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientPoints, "points balance cannot go negative")
	}

	entry := &models.PointsTransaction{
		WalletID:   wallet.ID,
		CampaignID: campaignID,
		Points:     delta,
		Note:       note,
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}

	wallet.PointsBalance += delta
	return entry, nil
}

func (r *repository) ListWalletsByCustomer(ctx context.Context, customerID uuid.UUID) ([]WalletWithBusiness, error) {
	var rows []WalletWithBusiness
	err := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Select("wallets.*, businesses.name AS business_name, businesses.reward_point_cost AS business_reward_cost").
		Joins("JOIN businesses ON businesses.id = wallets.business_id").
		Where("wallets.customer_id = ?", customerID).
		Order("wallets.created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListTransactionsByCustomer(ctx context.Context, params HistoryParams) ([]HistoryEntry, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Model(&models.PointsTransaction{}).
		Select("points_transactions.id, wallets.business_id, points_transactions.points, points_transactions.note, points_transactions.campaign_id, points_transactions.created_at").
		Joins("JOIN wallets ON wallets.id = points_transactions.wallet_id").
		Where("wallets.customer_id = ?", params.CustomerID)
	if params.Cursor != nil {
		query = query.Where(
			"(points_transactions.created_at < ?) OR (points_transactions.created_at = ? AND points_transactions.id < ?)",
			params.Cursor.CreatedAt, params.Cursor.CreatedAt, params.Cursor.ID,
		)
	}

	var entries []HistoryEntry
	if err := query.
		Order("points_transactions.created_at DESC, points_transactions.id DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, nil, err
	}

	if len(entries) > normalized {
		entries = entries[:normalized]
		// The predicate above is strictly exclusive, so the cursor must point
		// at the last row handed out, not the first row held back.
		last := entries[normalized-1]
		return entries, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return entries, nil, nil
}

// SumTransactions recomputes a wallet balance from the ledger. The result
// must always equal the wallet's cached points_balance.
func (r *repository) SumTransactions(ctx context.Context, walletID uuid.UUID) (int, error) {
	var sum *int
	err := r.db.WithContext(ctx).
		Model(&models.PointsTransaction{}).
		Select("SUM(points)").
		Where("wallet_id = ?", walletID).
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}

func (r *repository) CountCampaignTransactionsSince(ctx context.Context, walletID, campaignID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PointsTransaction{}).
		Where("wallet_id = ? AND campaign_id = ? AND created_at >= ?", walletID, campaignID, since).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
