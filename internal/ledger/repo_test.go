package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/aliasttt/bonusweb-sub000/pkg/db/models"
	pkgerrors "github.com/aliasttt/bonusweb-sub000/pkg/errors"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:ledger_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, conn.AutoMigrate(
		&models.Business{},
		&models.Customer{},
		&models.Wallet{},
		&models.PointsTransaction{},
	))
	return conn
}

func seedWallet(t *testing.T, conn *gorm.DB) (*models.Wallet, uuid.UUID, uuid.UUID) {
	t.Helper()

	business := &models.Business{ID: uuid.New(), OwnerSubject: uuid.NewString(), Name: "Cafe", RewardPointCost: 10}
	require.NoError(t, conn.Create(business).Error)

	customer := &models.Customer{ID: uuid.New(), Subject: uuid.NewString()}
	require.NoError(t, conn.Create(customer).Error)

	repo := NewRepository(conn)
	wallet, err := repo.GetOrCreateWallet(context.Background(), customer.ID, business.ID, business.RewardPointCost)
	require.NoError(t, err)
	return wallet, customer.ID, business.ID
}

func TestGetOrCreateWalletIsIdempotent(t *testing.T) {
	conn := setupLedgerTestDB(t)
	repo := NewRepository(conn)

	wallet, customerID, businessID := seedWallet(t, conn)
	require.Equal(t, 0, wallet.PointsBalance)
	require.NotNil(t, wallet.RewardPointCost)
	assert.Equal(t, 10, *wallet.RewardPointCost)

	again, err := repo.GetOrCreateWallet(context.Background(), customerID, businessID, 99)
	require.NoError(t, err)
	assert.Equal(t, wallet.ID, again.ID)
	assert.Equal(t, 10, *again.RewardPointCost)
}

func TestAppendTransactionKeepsBalanceAndLedgerInSync(t *testing.T) {
	conn := setupLedgerTestDB(t)
	repo := NewRepository(conn)
	wallet, _, _ := seedWallet(t, conn)

	_, err := repo.AppendTransaction(context.Background(), wallet, 10, "scan", nil)
	require.NoError(t, err)
	_, err = repo.AppendTransaction(context.Background(), wallet, -4, "reward redeemed", nil)
	require.NoError(t, err)

	assert.Equal(t, 6, wallet.PointsBalance)

	var stored models.Wallet
	require.NoError(t, conn.First(&stored, "id = ?", wallet.ID).Error)
	assert.Equal(t, 6, stored.PointsBalance)

	sum, err := repo.SumTransactions(context.Background(), wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.PointsBalance, sum)
}

func TestAppendTransactionRefusesNegativeBalance(t *testing.T) {
	conn := setupLedgerTestDB(t)
	repo := NewRepository(conn)
	wallet, _, _ := seedWallet(t, conn)

	_, err := repo.AppendTransaction(context.Background(), wallet, 5, "scan", nil)
	require.NoError(t, err)

	_, err = repo.AppendTransaction(context.Background(), wallet, -10, "reward redeemed", nil)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientPoints, typed.Code())

	var stored models.Wallet
	require.NoError(t, conn.First(&stored, "id = ?", wallet.ID).Error)
	assert.Equal(t, 5, stored.PointsBalance)

	var count int64
	require.NoError(t, conn.Model(&models.PointsTransaction{}).Where("wallet_id = ?", wallet.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestListTransactionsByCustomerPaginates(t *testing.T) {
	conn := setupLedgerTestDB(t)
	repo := NewRepository(conn)
	wallet, customerID, _ := seedWallet(t, conn)

	var ids []int64
	for i := 0; i < 5; i++ {
		entry, err := repo.AppendTransaction(context.Background(), wallet, 1, "scan", nil)
		require.NoError(t, err)
		ids = append(ids, entry.ID)
	}

	first, cursor, err := repo.ListTransactionsByCustomer(context.Background(), HistoryParams{
		CustomerID: customerID,
		Limit:      2,
	})
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.NotNil(t, cursor)
	assert.Equal(t, ids[4], first[0].ID)
	assert.Equal(t, ids[3], first[1].ID)

	second, cursor, err := repo.ListTransactionsByCustomer(context.Background(), HistoryParams{
		CustomerID: customerID,
		Limit:      2,
		Cursor:     cursor,
	})
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, ids[2], second[0].ID)
	assert.Equal(t, ids[1], second[1].ID)

	third, cursor, err := repo.ListTransactionsByCustomer(context.Background(), HistoryParams{
		CustomerID: customerID,
		Limit:      2,
		Cursor:     cursor,
	})
	require.NoError(t, err)
	require.Len(t, third, 1)
	assert.Equal(t, ids[0], third[0].ID)
	assert.Nil(t, cursor)
}

func TestCountCampaignTransactionsSince(t *testing.T) {
	conn := setupLedgerTestDB(t)
	repo := NewRepository(conn)
	wallet, _, _ := seedWallet(t, conn)

	campaignID := uuid.New()
	_, err := repo.AppendTransaction(context.Background(), wallet, 5, "scan", &campaignID)
	require.NoError(t, err)
	_, err = repo.AppendTransaction(context.Background(), wallet, 1, "scan", nil)
	require.NoError(t, err)

	since := time.Now().UTC().Add(-time.Hour)
	count, err := repo.CountCampaignTransactionsSince(context.Background(), wallet.ID, campaignID, since)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	future := time.Now().UTC().Add(time.Hour)
	count, err = repo.CountCampaignTransactionsSince(context.Background(), wallet.ID, campaignID, future)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
