package rewards

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

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

type capturedEvents struct {
	events []RewardEarnedEvent
}

func (c *capturedEvents) RewardEarned(_ context.Context, event RewardEarnedEvent) {
	c.events = append(c.events, event)
}

type testEnv struct {
	client   *db.Client
	service  Service
	ledger   ledger.Repository
	notifier *capturedEvents
}

func setupRewardsTest(t *testing.T) *testEnv {
	t.Helper()

	client, err := db.New(context.Background(), config.DBConfig{
		DSN:    "file:rewards_" + uuid.NewString() + "?mode=memory&cache=shared",
		Driver: "sqlite",
	}, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	if err := client.DB().AutoMigrate(
		&models.Business{},
		&models.Customer{},
		&models.Product{},
		&models.Campaign{},
		&models.Wallet{},
		&models.PointsTransaction{},
		&models.QRCode{},
		&models.ScanRecord{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	notifier := &capturedEvents{}
	ledgerRepo := ledger.NewRepository(client.DB())
	service, err := NewService(ServiceParams{
		DB:        client,
		Ledger:    ledgerRepo,
		Guard:     scan.NewGuard(client.DB()),
		Catalog:   catalog.NewAdapter(client.DB()),
		Customers: customers.NewRepository(client.DB()),
		Notifier:  notifier,
		Loyalty: config.LoyaltyConfig{
			DefaultRewardPointCost: 100,
			DefaultPointsPerScan:   1,
			LockTimeout:            5 * time.Second,
		},
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	return &testEnv{client: client, service: service, ledger: ledgerRepo, notifier: notifier}
}

func (env *testEnv) seedBusiness(t *testing.T, cost int) *models.Business {
	t.Helper()
	business := &models.Business{
		ID:              uuid.New(),
		OwnerSubject:    uuid.NewString(),
		Name:            "Corner Cafe",
		RewardPointCost: cost,
	}
	if err := env.client.DB().Create(business).Error; err != nil {
		t.Fatalf("create business: %v", err)
	}
	return business
}

func (env *testEnv) seedQRCode(t *testing.T, businessID uuid.UUID, campaignID *uuid.UUID) *models.QRCode {
	t.Helper()
	code := &models.QRCode{
		ID:         uuid.New(),
		BusinessID: businessID,
		CampaignID: campaignID,
		Token:      models.GenerateQRToken(),
		Active:     true,
	}
	if err := env.client.DB().Create(code).Error; err != nil {
		t.Fatalf("create qr code: %v", err)
	}
	return code
}

func (env *testEnv) seedProduct(t *testing.T, businessID uuid.UUID, points int, reward bool) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:           uuid.New(),
		BusinessID:   businessID,
		Title:        "Item",
		PointsReward: points,
		RewardItem:   reward,
		Active:       true,
	}
	if err := env.client.DB().Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func errorCode(t *testing.T, err error) pkgerrors.Code {
	t.Helper()
	if err == nil {
		t.Fatal("expected error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	return typed.Code()
}

func TestAwardTokenScanHappyPathAndDoubleScan(t *testing.T) {
	env := setupRewardsTest(t)
	business := env.seedBusiness(t, 100)
	code := env.seedQRCode(t, business.ID, nil)
	subject := uuid.NewString()

	result, err := env.service.AwardTokenScan(context.Background(), TokenScanInput{
		Subject: subject,
		Token:   code.Token,
	})
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if result.AwardedPoints != 1 {
		t.Fatalf("expected 1 point, got %d", result.AwardedPoints)
	}
	if result.PointsBalance != 1 {
		t.Fatalf("expected balance 1, got %d", result.PointsBalance)
	}
	if result.RewardEarned {
		t.Fatal("expected no reward at balance 1")
	}

	_, err = env.service.AwardTokenScan(context.Background(), TokenScanInput{
		Subject: subject,
		Token:   code.Token,
	})
	if got := errorCode(t, err); got != pkgerrors.CodeAlreadyScanned {
		t.Fatalf("expected ALREADY_SCANNED, got %s", got)
	}
}

func TestAwardTokenScanUnknownToken(t *testing.T) {
	env := setupRewardsTest(t)

	_, err := env.service.AwardTokenScan(context.Background(), TokenScanInput{
		Subject: uuid.NewString(),
		Token:   "nope",
	})
	if got := errorCode(t, err); got != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %s", got)
	}
}

func TestAwardTokenScanCampaignPointsAndDailyLimit(t *testing.T) {
	env := setupRewardsTest(t)
	business := env.seedBusiness(t, 100)

	limit := 1
	campaign := &models.Campaign{
		ID:            uuid.New(),
		BusinessID:    business.ID,
		Name:          "Double Points",
		IsActive:      true,
		PointsPerScan: 5,
		DailyLimit:    &limit,
	}
	if err := env.client.DB().Create(campaign).Error; err != nil {
		t.Fatalf("create campaign: %v", err)
	}

	subject := uuid.NewString()
	first := env.seedQRCode(t, business.ID, &campaign.ID)
	second := env.seedQRCode(t, business.ID, &campaign.ID)

	result, err := env.service.AwardTokenScan(context.Background(), TokenScanInput{
		Subject: subject,
		Token:   first.Token,
	})
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if result.AwardedPoints != 5 {
		t.Fatalf("expected campaign points 5, got %d", result.AwardedPoints)
	}

	_, err = env.service.AwardTokenScan(context.Background(), TokenScanInput{
		Subject: subject,
		Token:   second.Token,
	})
	if got := errorCode(t, err); got != pkgerrors.CodeRateLimit {
		t.Fatalf("expected RATE_LIMIT_EXCEEDED, got %s", got)
	}
}

func TestAwardTokenScanInactiveCampaign(t *testing.T) {
	env := setupRewardsTest(t)
	business := env.seedBusiness(t, 100)

	past := time.Now().UTC().Add(-time.Hour)
	campaign := &models.Campaign{
		ID:            uuid.New(),
		BusinessID:    business.ID,
		Name:          "Expired",
		IsActive:      true,
		PointsPerScan: 5,
		EndAt:         &past,
	}
	if err := env.client.DB().Create(campaign).Error; err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	code := env.seedQRCode(t, business.ID, &campaign.ID)

	_, err := env.service.AwardTokenScan(context.Background(), TokenScanInput{
		Subject: uuid.NewString(),
		Token:   code.Token,
	})
	if got := errorCode(t, err); got != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR, got %s", got)
	}
}

func TestAwardTokenScanRequiresScanPassword(t *testing.T) {
	env := setupRewardsTest(t)
	business := env.seedBusiness(t, 100)

	hash, err := security.HashScanPassword("s3cret", config.ScanPasswordConfig{})
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := env.client.DB().Model(business).UpdateColumn("scan_password_hash", hash).Error; err != nil {
		t.Fatalf("store hash: %v", err)
	}

	subject := uuid.NewString()
	code := env.seedQRCode(t, business.ID, nil)

	_, err = env.service.AwardTokenScan(context.Background(), TokenScanInput{
		Subject: subject,
		Token:   code.Token,
	})
	if got := errorCode(t, err); got != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected UNAUTHORIZED without password, got %s", got)
	}

	_, err = env.service.AwardTokenScan(context.Background(), TokenScanInput{
		Subject:          subject,
		Token:            code.Token,
		BusinessPassword: "wrong",
	})
	if got := errorCode(t, err); got != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected UNAUTHORIZED with wrong password, got %s", got)
	}

	result, err := env.service.AwardTokenScan(context.Background(), TokenScanInput{
		Subject:          subject,
		Token:            code.Token,
		BusinessPassword: "s3cret",
	})
	if err != nil {
		t.Fatalf("award with password: %v", err)
	}
	if result.AwardedPoints != 1 {
		t.Fatalf("expected 1 point, got %d", result.AwardedPoints)
	}
}

func TestAwardProductScanNetsBasketAndDeduplicates(t *testing.T) {
	env := setupRewardsTest(t)
	business := env.seedBusiness(t, 100)
	menu := env.seedProduct(t, business.ID, 10, false)
	reward := env.seedProduct(t, business.ID, 4, true)
	subject := uuid.NewString()

	result, err := env.service.AwardProductScan(context.Background(), ProductScanInput{
		Subject:    subject,
		BusinessID: business.ID,
		ProductIDs: []uuid.UUID{menu.ID, reward.ID},
	})
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if result.AwardedPoints != 6 {
		t.Fatalf("expected net 6 points, got %d", result.AwardedPoints)
	}

	_, err = env.service.AwardProductScan(context.Background(), ProductScanInput{
		Subject:    subject,
		BusinessID: business.ID,
		ProductIDs: []uuid.UUID{reward.ID, menu.ID},
	})
	if got := errorCode(t, err); got != pkgerrors.CodeAlreadyScanned {
		t.Fatalf("expected ALREADY_SCANNED for reordered duplicate basket, got %s", got)
	}
}

func TestAwardProductScanInsufficientStaysRetryable(t *testing.T) {
	env := setupRewardsTest(t)
	business := env.seedBusiness(t, 100)
	menu := env.seedProduct(t, business.ID, 10, false)
	reward := env.seedProduct(t, business.ID, 5, true)
	subject := uuid.NewString()

	// Empty wallet cannot pay for a reward item.
	_, err := env.service.AwardProductScan(context.Background(), ProductScanInput{
		Subject:    subject,
		BusinessID: business.ID,
		ProductIDs: []uuid.UUID{reward.ID},
	})
	if got := errorCode(t, err); got != pkgerrors.CodeInsufficientPoints {
		t.Fatalf("expected INSUFFICIENT_POINTS, got %s", got)
	}

	// Earn points, then the identical basket must still be honorable: the
	// failed attempt must not have burned the dedup slot.
	if _, err := env.service.AwardProductScan(context.Background(), ProductScanInput{
		Subject:    subject,
		BusinessID: business.ID,
		ProductIDs: []uuid.UUID{menu.ID},
	}); err != nil {
		t.Fatalf("earn points: %v", err)
	}

	result, err := env.service.AwardProductScan(context.Background(), ProductScanInput{
		Subject:    subject,
		BusinessID: business.ID,
		ProductIDs: []uuid.UUID{reward.ID},
	})
	if err != nil {
		t.Fatalf("retry basket: %v", err)
	}
	if result.PointsBalance != 5 {
		t.Fatalf("expected balance 5, got %d", result.PointsBalance)
	}
}

func TestAwardTokenScanInsufficientPreservesToken(t *testing.T) {
	env := setupRewardsTest(t)
	business := env.seedBusiness(t, 100)

	campaign := &models.Campaign{
		ID:            uuid.New(),
		BusinessID:    business.ID,
		Name:          "Spend Tokens",
		IsActive:      true,
		PointsPerScan: -5,
	}
	if err := env.client.DB().Create(campaign).Error; err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	code := env.seedQRCode(t, business.ID, &campaign.ID)
	subject := uuid.NewString()

	_, err := env.service.AwardTokenScan(context.Background(), TokenScanInput{
		Subject: subject,
		Token:   code.Token,
	})
	if got := errorCode(t, err); got != pkgerrors.CodeInsufficientPoints {
		t.Fatalf("expected INSUFFICIENT_POINTS, got %s", got)
	}

	var stored models.QRCode
	if err := env.client.DB().First(&stored, "id = ?", code.ID).Error; err != nil {
		t.Fatalf("reload code: %v", err)
	}
	if stored.ScannedAt != nil {
		t.Fatal("declined scan must not consume the token")
	}

	// Earn enough, then the same token is honored.
	for i := 0; i < 5; i++ {
		c := env.seedQRCode(t, business.ID, nil)
		if _, err := env.service.AwardTokenScan(context.Background(), TokenScanInput{Subject: subject, Token: c.Token}); err != nil {
			t.Fatalf("earn scan %d: %v", i, err)
		}
	}

	result, err := env.service.AwardTokenScan(context.Background(), TokenScanInput{
		Subject: subject,
		Token:   code.Token,
	})
	if err != nil {
		t.Fatalf("retry token: %v", err)
	}
	if result.PointsBalance != 0 {
		t.Fatalf("expected balance 0 after spend, got %d", result.PointsBalance)
	}
}

func TestAwardTokenScanDeadTokenBeatsBalanceCheck(t *testing.T) {
	env := setupRewardsTest(t)
	business := env.seedBusiness(t, 100)

	campaign := &models.Campaign{
		ID:            uuid.New(),
		BusinessID:    business.ID,
		Name:          "Spend Tokens",
		IsActive:      true,
		PointsPerScan: -5,
	}
	if err := env.client.DB().Create(campaign).Error; err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	code := env.seedQRCode(t, business.ID, &campaign.ID)

	// The code was honored at some point in the past.
	past := time.Now().UTC().Add(-time.Hour)
	if err := env.client.DB().Model(&models.QRCode{}).Where("id = ?", code.ID).Update("scanned_at", &past).Error; err != nil {
		t.Fatalf("mark scanned: %v", err)
	}

	// An under-funded wallet must still learn the token is dead, not that
	// its balance is short.
	_, err := env.service.AwardTokenScan(context.Background(), TokenScanInput{
		Subject: uuid.NewString(),
		Token:   code.Token,
	})
	if got := errorCode(t, err); got != pkgerrors.CodeAlreadyScanned {
		t.Fatalf("expected ALREADY_SCANNED for dead token, got %s", got)
	}
}

func TestAwardProductScanDuplicateBasketBeatsBalanceCheck(t *testing.T) {
	env := setupRewardsTest(t)
	business := env.seedBusiness(t, 100)
	menu := env.seedProduct(t, business.ID, 10, false)
	reward := env.seedProduct(t, business.ID, 10, true)
	subject := uuid.NewString()

	if _, err := env.service.AwardProductScan(context.Background(), ProductScanInput{
		Subject:    subject,
		BusinessID: business.ID,
		ProductIDs: []uuid.UUID{menu.ID},
	}); err != nil {
		t.Fatalf("earn points: %v", err)
	}

	result, err := env.service.AwardProductScan(context.Background(), ProductScanInput{
		Subject:    subject,
		BusinessID: business.ID,
		ProductIDs: []uuid.UUID{reward.ID},
	})
	if err != nil {
		t.Fatalf("spend basket: %v", err)
	}
	if result.PointsBalance != 0 {
		t.Fatalf("expected balance 0, got %d", result.PointsBalance)
	}

	// The wallet can no longer pay for the basket, but the duplicate
	// rejection must win over the balance one.
	_, err = env.service.AwardProductScan(context.Background(), ProductScanInput{
		Subject:    subject,
		BusinessID: business.ID,
		ProductIDs: []uuid.UUID{reward.ID},
	})
	if got := errorCode(t, err); got != pkgerrors.CodeAlreadyScanned {
		t.Fatalf("expected ALREADY_SCANNED for duplicate basket, got %s", got)
	}
}

func TestRedeemAndReconciliation(t *testing.T) {
	env := setupRewardsTest(t)
	business := env.seedBusiness(t, 3)
	subject := uuid.NewString()

	_, err := env.service.Redeem(context.Background(), RedeemInput{
		Subject:    subject,
		BusinessID: business.ID,
		Amount:     1,
	})
	if got := errorCode(t, err); got != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND without wallet, got %s", got)
	}

	var lastResult *AwardResult
	for i := 0; i < 3; i++ {
		code := env.seedQRCode(t, business.ID, nil)
		lastResult, err = env.service.AwardTokenScan(context.Background(), TokenScanInput{Subject: subject, Token: code.Token})
		if err != nil {
			t.Fatalf("scan %d: %v", i, err)
		}
	}
	if !lastResult.RewardEarned {
		t.Fatal("expected reward earned at threshold")
	}
	if len(env.notifier.events) == 0 {
		t.Fatal("expected reward earned notification")
	}

	_, err = env.service.Redeem(context.Background(), RedeemInput{
		Subject:    subject,
		BusinessID: business.ID,
		Amount:     5,
	})
	if got := errorCode(t, err); got != pkgerrors.CodeInsufficientPoints {
		t.Fatalf("expected INSUFFICIENT_POINTS, got %s", got)
	}

	result, err := env.service.Redeem(context.Background(), RedeemInput{
		Subject:    subject,
		BusinessID: business.ID,
		Amount:     3,
	})
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if result.PointsBalance != 0 {
		t.Fatalf("expected balance 0, got %d", result.PointsBalance)
	}

	var wallet models.Wallet
	if err := env.client.DB().First(&wallet, "business_id = ?", business.ID).Error; err != nil {
		t.Fatalf("load wallet: %v", err)
	}
	sum, err := env.ledger.SumTransactions(context.Background(), wallet.ID)
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if sum != wallet.PointsBalance {
		t.Fatalf("ledger sum %d diverged from cached balance %d", sum, wallet.PointsBalance)
	}
}

func TestBalanceAndHistory(t *testing.T) {
	env := setupRewardsTest(t)
	first := env.seedBusiness(t, 2)
	second := env.seedBusiness(t, 100)
	subject := uuid.NewString()

	for _, business := range []*models.Business{first, first, second} {
		code := env.seedQRCode(t, business.ID, nil)
		if _, err := env.service.AwardTokenScan(context.Background(), TokenScanInput{Subject: subject, Token: code.Token}); err != nil {
			t.Fatalf("scan: %v", err)
		}
	}

	balances, err := env.service.Balance(context.Background(), subject)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("expected 2 wallets, got %d", len(balances))
	}
	byBusiness := map[uuid.UUID]WalletBalance{}
	for _, b := range balances {
		byBusiness[b.BusinessID] = b
	}
	if got := byBusiness[first.ID]; got.PointsBalance != 2 || !got.CanRedeem {
		t.Fatalf("expected redeemable balance 2 at first business, got %+v", got)
	}
	if got := byBusiness[second.ID]; got.PointsBalance != 1 || got.CanRedeem {
		t.Fatalf("expected non-redeemable balance 1 at second business, got %+v", got)
	}

	history, err := env.service.History(context.Background(), subject, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history.Items) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(history.Items))
	}
	if history.Cursor == "" {
		t.Fatal("expected a next-page cursor")
	}

	rest, err := env.service.History(context.Background(), subject, pagination.Params{Limit: 2, Cursor: history.Cursor})
	if err != nil {
		t.Fatalf("history page 2: %v", err)
	}
	if len(rest.Items) != 1 {
		t.Fatalf("expected 1 remaining row, got %d", len(rest.Items))
	}
	if rest.Cursor != "" {
		t.Fatal("expected no cursor on final page")
	}
}
