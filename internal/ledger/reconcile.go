package ledger

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/aliasttt/bonusweb-sub000/pkg/db/models"
	"github.com/aliasttt/bonusweb-sub000/pkg/logger"
)

const defaultReconcileBatch = 500

// ReconcileJobParams configures the wallet reconciliation sweep.
type ReconcileJobParams struct {
	Logger *logger.Logger
	DB     *gorm.DB
	Repo   Repository
	Batch  int
}

// ReconcileJob sweeps wallets and verifies that each cached balance equals
// the sum of the wallet's committed ledger rows. It never repairs: a
// mismatch means a code path mutated a balance outside AppendTransaction and
// must be found, not papered over.
type ReconcileJob struct {
	logg  *logger.Logger
	db    *gorm.DB
	repo  Repository
	batch int
}

// NewReconcileJob builds the reconciliation sweep.
func NewReconcileJob(params ReconcileJobParams) (*ReconcileJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultReconcileBatch
	}
	return &ReconcileJob{
		logg:  params.Logger,
		db:    params.DB,
		repo:  params.Repo,
		batch: batch,
	}, nil
}

func (j *ReconcileJob) Name() string { return "wallet-reconcile" }

// Run walks every wallet in batches. All mismatches are collected so one bad
// wallet does not hide the rest.
func (j *ReconcileJob) Run(ctx context.Context) error {
	logCtx := j.logg.WithField(ctx, "job", j.Name())

	var errs error
	scanned := 0
	mismatched := 0

	var lastID string
	for {
		var wallets []models.Wallet
		query := j.db.WithContext(ctx).Order("id ASC").Limit(j.batch)
		if lastID != "" {
			query = query.Where("id > ?", lastID)
		}
		if err := query.Find(&wallets).Error; err != nil {
			return fmt.Errorf("list wallets: %w", err)
		}
		if len(wallets) == 0 {
			break
		}

		for i := range wallets {
			wallet := &wallets[i]
			scanned++

			sum, err := j.repo.SumTransactions(ctx, wallet.ID)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("sum wallet %s: %w", wallet.ID, err))
				continue
			}
			if sum != wallet.PointsBalance {
				mismatched++
				errs = multierr.Append(errs, fmt.Errorf(
					"wallet %s: cached balance %d != ledger sum %d",
					wallet.ID, wallet.PointsBalance, sum,
				))
			}
		}
		lastID = wallets[len(wallets)-1].ID.String()
	}

	reportCtx := j.logg.WithFields(logCtx, map[string]any{
		"scanned":    scanned,
		"mismatched": mismatched,
	})
	j.logg.Info(reportCtx, "wallet reconcile sweep complete")
	return errs
}
