package rewards

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aliasttt/bonusweb-sub000/internal/catalog"
	"github.com/aliasttt/bonusweb-sub000/internal/customers"
	"github.com/aliasttt/bonusweb-sub000/internal/ledger"
	"github.com/aliasttt/bonusweb-sub000/internal/scan"
	"github.com/aliasttt/bonusweb-sub000/pkg/config"
	"github.com/aliasttt/bonusweb-sub000/pkg/db"
	"github.com/aliasttt/bonusweb-sub000/pkg/db/models"
	pkgerrors "github.com/aliasttt/bonusweb-sub000/pkg/errors"
	"github.com/aliasttt/bonusweb-sub000/pkg/pagination"
	"github.com/aliasttt/bonusweb-sub000/pkg/security"
)

// Service is the wallet engine: the single place where point deltas are
// computed and applied. Every mutation runs inside one database transaction
// covering the wallet lock, the dedup mark, the ledger insert and the cached
// balance update.
type Service interface {
	AwardTokenScan(ctx context.Context, input TokenScanInput) (*AwardResult, error)
	AwardProductScan(ctx context.Context, input ProductScanInput) (*AwardResult, error)
	Redeem(ctx context.Context, input RedeemInput) (*RedeemResult, error)
	Balance(ctx context.Context, subject string) ([]WalletBalance, error)
	History(ctx context.Context, subject string, params pagination.Params) (*HistoryResult, error)
}

// Notifier receives reward lifecycle events. Implementations must be
// best-effort; a failed notification never fails the award.
type Notifier interface {
	RewardEarned(ctx context.Context, event RewardEarnedEvent)
}

// RewardEarnedEvent is emitted when an award pushes a wallet across the
// business's reward threshold.
type RewardEarnedEvent struct {
	CustomerID      uuid.UUID `json:"customer_id"`
	BusinessID      uuid.UUID `json:"business_id"`
	BusinessName    string    `json:"business_name"`
	PointsBalance   int       `json:"points_balance"`
	RewardPointCost int       `json:"reward_point_cost"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// TokenScanInput awards a single-use QR token.
type TokenScanInput struct {
	Subject          string
	Token            string
	Note             string
	BusinessPassword string
}

// ProductScanInput awards a product basket scanned at the counter. Reward
// items contribute negatively, so a single basket may net below zero.
type ProductScanInput struct {
	Subject    string
	BusinessID uuid.UUID
	ProductIDs []uuid.UUID
}

// RedeemInput deducts points in exchange for a reward.
type RedeemInput struct {
	Subject    string
	BusinessID uuid.UUID
	Amount     int
}

// AwardResult reports a committed award.
type AwardResult struct {
	TransactionID   int64     `json:"transaction_id"`
	AwardedPoints   int       `json:"awarded_points"`
	PointsBalance   int       `json:"points_balance"`
	RewardPointCost int       `json:"reward_point_cost"`
	RewardEarned    bool      `json:"reward_earned"`
	BusinessID      uuid.UUID `json:"business_id"`
	BusinessName    string    `json:"business_name"`
}

// RedeemResult reports a committed redemption.
type RedeemResult struct {
	RedeemedPoints int `json:"redeemed_points"`
	PointsBalance  int `json:"points_balance"`
}

// WalletBalance is one row of a customer's cross-business balance view.
type WalletBalance struct {
	BusinessID      uuid.UUID `json:"business_id"`
	BusinessName    string    `json:"business_name"`
	PointsBalance   int       `json:"points_balance"`
	RewardPointCost int       `json:"reward_point_cost"`
	CanRedeem       bool      `json:"can_redeem"`
}

// HistoryEntry is one customer-facing ledger row.
type HistoryEntry struct {
	ID         int64      `json:"id"`
	BusinessID uuid.UUID  `json:"business_id"`
	Points     int        `json:"points"`
	Note       string     `json:"note"`
	CampaignID *uuid.UUID `json:"campaign_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// HistoryResult wraps a history page and the cursor for the next one.
type HistoryResult struct {
	Items  []HistoryEntry `json:"items"`
	Cursor string         `json:"cursor"`
}

// ServiceParams wires the wallet engine dependencies.
type ServiceParams struct {
	DB           *db.Client
	Ledger       ledger.Repository
	Guard        *scan.Guard
	Catalog      catalog.Adapter
	Customers    customers.Repository
	Notifier     Notifier
	Loyalty      config.LoyaltyConfig
	ScanPassword config.ScanPasswordConfig
}

type service struct {
	db           *db.Client
	ledger       ledger.Repository
	guard        *scan.Guard
	catalog      catalog.Adapter
	customers    customers.Repository
	notifier     Notifier
	loyalty      config.LoyaltyConfig
	scanPassword config.ScanPasswordConfig
}

// NewService builds the wallet engine.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "database client required")
	}
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "ledger repository required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "scan guard required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "catalog adapter required")
	}
	if params.Customers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "customer repository required")
	}
	return &service{
		db:           params.DB,
		ledger:       params.Ledger,
		guard:        params.Guard,
		catalog:      params.Catalog,
		customers:    params.Customers,
		notifier:     params.Notifier,
		loyalty:      params.Loyalty,
		scanPassword: params.ScanPassword,
	}, nil
}

func (s *service) AwardTokenScan(ctx context.Context, input TokenScanInput) (*AwardResult, error) {
	if input.Subject == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity required")
	}
	if input.Token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}

	qr, err := s.catalog.QRCodeByToken(ctx, input.Token)
	if err != nil {
		return nil, asNotFound(err, "invalid qr token")
	}
	business, err := s.catalog.BusinessByID(ctx, qr.BusinessID)
	if err != nil {
		return nil, asNotFound(err, "business not found")
	}

	if business.HasScanPassword() {
		ok, verr := security.VerifyScanPassword(input.BusinessPassword, *business.ScanPasswordHash)
		if verr != nil || !ok {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid business password")
		}
	}

	now := time.Now().UTC()
	points := s.loyalty.DefaultPointsPerScan
	var campaign *models.Campaign
	if qr.CampaignID != nil {
		campaign, err = s.catalog.CampaignByID(ctx, *qr.CampaignID)
		if err != nil {
			return nil, asNotFound(err, "campaign not found")
		}
		if !campaign.ActiveAt(now) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "campaign is not active")
		}
		points = campaign.PointsPerScan
	}

	customer, err := s.customers.GetOrCreateBySubject(ctx, input.Subject)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve customer")
	}
	wallet, err := s.ledger.GetOrCreateWallet(ctx, customer.ID, business.ID, business.RewardPointCost)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve wallet")
	}

	note := "scan"
	if input.Note != "" {
		note = "scan - " + input.Note
	}

	var result *AwardResult
	err = s.withWalletTx(ctx, func(tx *gorm.DB) error {
		led := s.ledger.WithTx(tx)
		locked, lerr := led.LockWallet(ctx, wallet.ID)
		if lerr != nil {
			return lerr
		}

		if campaign != nil && campaign.DailyLimit != nil {
			dayStart := now.Truncate(24 * time.Hour)
			count, cerr := led.CountCampaignTransactionsSince(ctx, locked.ID, campaign.ID, dayStart)
			if cerr != nil {
				return cerr
			}
			if count >= int64(*campaign.DailyLimit) {
				return pkgerrors.New(pkgerrors.CodeRateLimit, "campaign daily limit reached")
			}
		}

		// A dead token is rejected as such before any other gate fires. The
		// read-only consult does not claim the code, so the sufficiency check
		// below still precedes consumption marking and a declined scan never
		// burns the token.
		dead, derr := s.guard.WithTx(tx).TokenConsumed(ctx, qr.ID)
		if derr != nil {
			return derr
		}
		if dead {
			return pkgerrors.New(pkgerrors.CodeAlreadyScanned, "qr code already scanned")
		}

		if points < 0 && locked.PointsBalance+points < 0 {
			return pkgerrors.New(pkgerrors.CodeInsufficientPoints, "insufficient points for this scan")
		}

		consumed, gerr := s.guard.WithTx(tx).ConsumeToken(ctx, qr.ID, now)
		if gerr != nil {
			return gerr
		}
		if !consumed {
			return pkgerrors.New(pkgerrors.CodeAlreadyScanned, "qr code already scanned")
		}

		entry, aerr := led.AppendTransaction(ctx, locked, points, note, qr.CampaignID)
		if aerr != nil {
			return aerr
		}

		cost := locked.EffectiveRewardCost(business.RewardPointCost)
		result = &AwardResult{
			TransactionID:   entry.ID,
			AwardedPoints:   points,
			PointsBalance:   locked.PointsBalance,
			RewardPointCost: cost,
			RewardEarned:    locked.PointsBalance >= cost,
			BusinessID:      business.ID,
			BusinessName:    business.Name,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyRewardEarned(ctx, customer.ID, result)
	return result, nil
}

func (s *service) AwardProductScan(ctx context.Context, input ProductScanInput) (*AwardResult, error) {
	if input.Subject == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity required")
	}
	if input.BusinessID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business id is required")
	}
	ids := dedupeIDs(input.ProductIDs)
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one product id is required")
	}

	business, err := s.catalog.BusinessByID(ctx, input.BusinessID)
	if err != nil {
		return nil, asNotFound(err, "business not found")
	}
	products, err := s.catalog.ActiveProducts(ctx, business.ID, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	if len(products) != len(ids) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown or inactive product in basket")
	}

	// Menu items earn points, reward items spend them. A mixed basket may
	// net negative.
	amount := 0
	for _, product := range products {
		if product.RewardItem {
			amount -= product.PointsReward
		} else {
			amount += product.PointsReward
		}
	}

	customer, err := s.customers.GetOrCreateBySubject(ctx, input.Subject)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve customer")
	}
	wallet, err := s.ledger.GetOrCreateWallet(ctx, customer.ID, business.ID, business.RewardPointCost)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve wallet")
	}

	payloadHash := scan.PayloadHash(business.ID, customer.ID, ids)

	var result *AwardResult
	err = s.withWalletTx(ctx, func(tx *gorm.DB) error {
		led := s.ledger.WithTx(tx)
		locked, lerr := led.LockWallet(ctx, wallet.ID)
		if lerr != nil {
			return lerr
		}

		// A duplicate basket is rejected as such before the balance gate; the
		// read-only consult writes nothing. Sufficiency is still checked
		// before the dedup row is written, so a rejected basket stays
		// retryable once the customer has earned more points.
		seen, serr := s.guard.WithTx(tx).PayloadSeen(ctx, payloadHash)
		if serr != nil {
			return serr
		}
		if seen {
			return pkgerrors.New(pkgerrors.CodeAlreadyScanned, "basket already scanned")
		}

		if amount < 0 && locked.PointsBalance+amount < 0 {
			return pkgerrors.New(pkgerrors.CodeInsufficientPoints, "insufficient points for reward items")
		}

		recorded, gerr := s.guard.WithTx(tx).CheckAndRecord(ctx, payloadHash, business.ID, customer.ID)
		if gerr != nil {
			return gerr
		}
		if !recorded {
			return pkgerrors.New(pkgerrors.CodeAlreadyScanned, "basket already scanned")
		}

		entry, aerr := led.AppendTransaction(ctx, locked, amount, "product scan", nil)
		if aerr != nil {
			return aerr
		}

		cost := locked.EffectiveRewardCost(business.RewardPointCost)
		result = &AwardResult{
			TransactionID:   entry.ID,
			AwardedPoints:   amount,
			PointsBalance:   locked.PointsBalance,
			RewardPointCost: cost,
			RewardEarned:    locked.PointsBalance >= cost,
			BusinessID:      business.ID,
			BusinessName:    business.Name,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyRewardEarned(ctx, customer.ID, result)
	return result, nil
}

func (s *service) Redeem(ctx context.Context, input RedeemInput) (*RedeemResult, error) {
	if input.Subject == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity required")
	}
	if input.BusinessID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business id is required")
	}
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	if _, err := s.catalog.BusinessByID(ctx, input.BusinessID); err != nil {
		return nil, asNotFound(err, "business not found")
	}
	customer, err := s.customers.GetOrCreateBySubject(ctx, input.Subject)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve customer")
	}
	wallet, err := s.ledger.GetWallet(ctx, customer.ID, input.BusinessID)
	if err != nil {
		return nil, asNotFound(err, "wallet not found")
	}

	var result *RedeemResult
	err = s.withWalletTx(ctx, func(tx *gorm.DB) error {
		led := s.ledger.WithTx(tx)
		locked, lerr := led.LockWallet(ctx, wallet.ID)
		if lerr != nil {
			return lerr
		}
		if locked.PointsBalance < input.Amount {
			return pkgerrors.New(pkgerrors.CodeInsufficientPoints, "insufficient points")
		}
		if _, aerr := led.AppendTransaction(ctx, locked, -input.Amount, "reward redeemed", nil); aerr != nil {
			return aerr
		}
		result = &RedeemResult{
			RedeemedPoints: input.Amount,
			PointsBalance:  locked.PointsBalance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Balance(ctx context.Context, subject string) ([]WalletBalance, error) {
	if subject == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity required")
	}
	customer, err := s.customers.GetOrCreateBySubject(ctx, subject)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve customer")
	}

	rows, err := s.ledger.ListWalletsByCustomer(ctx, customer.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallets")
	}

	balances := make([]WalletBalance, 0, len(rows))
	for _, row := range rows {
		cost := row.EffectiveRewardCost(row.BusinessRewardCost)
		balances = append(balances, WalletBalance{
			BusinessID:      row.BusinessID,
			BusinessName:    row.BusinessName,
			PointsBalance:   row.PointsBalance,
			RewardPointCost: cost,
			CanRedeem:       row.PointsBalance >= cost,
		})
	}
	return balances, nil
}

func (s *service) History(ctx context.Context, subject string, params pagination.Params) (*HistoryResult, error) {
	if subject == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity required")
	}
	customer, err := s.customers.GetOrCreateBySubject(ctx, subject)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve customer")
	}

	query := ledger.HistoryParams{
		CustomerID: customer.ID,
		Limit:      params.Limit,
	}
	if params.Cursor != "" {
		cursor, perr := pagination.ParseCursor(params.Cursor)
		if perr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, perr, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.ledger.ListTransactionsByCustomer(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}

	items := make([]HistoryEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, HistoryEntry{
			ID:         row.ID,
			BusinessID: row.BusinessID,
			Points:     row.Points,
			Note:       row.Note,
			CampaignID: row.CampaignID,
			CreatedAt:  row.CreatedAt,
		})
	}

	result := &HistoryResult{Items: items}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

// withWalletTx runs fn inside one transaction with the configured lock
// timeout. A deadline hit while waiting on the row lock aborts the whole
// unit of work with no partial effect.
func (s *service) withWalletTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	txCtx := ctx
	if s.loyalty.LockTimeout > 0 {
		var cancel context.CancelFunc
		txCtx, cancel = context.WithTimeout(ctx, s.loyalty.LockTimeout)
		defer cancel()
	}

	err := s.db.WithTx(txCtx, fn)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.Wrap(pkgerrors.CodeLockTimeout, err, "timed out waiting for wallet lock")
	}
	return err
}

func (s *service) notifyRewardEarned(ctx context.Context, customerID uuid.UUID, result *AwardResult) {
	if s.notifier == nil || result == nil || !result.RewardEarned {
		return
	}
	s.notifier.RewardEarned(ctx, RewardEarnedEvent{
		CustomerID:      customerID,
		BusinessID:      result.BusinessID,
		BusinessName:    result.BusinessName,
		PointsBalance:   result.PointsBalance,
		RewardPointCost: result.RewardPointCost,
		OccurredAt:      time.Now().UTC(),
	})
}

func asNotFound(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, message)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
