package qrcodes

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/aliasttt/bonusweb-sub000/internal/catalog"
	"github.com/aliasttt/bonusweb-sub000/pkg/db/models"
	pkgerrors "github.com/aliasttt/bonusweb-sub000/pkg/errors"
)

func setupQRCodeTest(t *testing.T) (*gorm.DB, Service) {
	t.Helper()

	dsn := "file:qrcodes_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Business{}, &models.Campaign{}, &models.QRCode{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn, NewService(NewRepository(conn), catalog.NewAdapter(conn))
}

func seedCodeBusiness(t *testing.T, conn *gorm.DB) *models.Business {
	t.Helper()
	business := &models.Business{ID: uuid.New(), OwnerSubject: uuid.NewString(), Name: "Bakery", RewardPointCost: 10}
	if err := conn.Create(business).Error; err != nil {
		t.Fatalf("create business: %v", err)
	}
	return business
}

func TestIssueDefaultsToSingleCode(t *testing.T) {
	conn, svc := setupQRCodeTest(t)
	business := seedCodeBusiness(t, conn)

	issued, err := svc.Issue(context.Background(), IssueInput{BusinessID: business.ID})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(issued) != 1 {
		t.Fatalf("expected 1 code, got %d", len(issued))
	}
	if issued[0].Token == "" {
		t.Fatal("expected a token")
	}
}

func TestIssueRejectsForeignCampaign(t *testing.T) {
	conn, svc := setupQRCodeTest(t)
	business := seedCodeBusiness(t, conn)
	other := seedCodeBusiness(t, conn)

	campaign := &models.Campaign{ID: uuid.New(), BusinessID: other.ID, Name: "Not Yours", IsActive: true, PointsPerScan: 1}
	if err := conn.Create(campaign).Error; err != nil {
		t.Fatalf("create campaign: %v", err)
	}

	_, err := svc.Issue(context.Background(), IssueInput{BusinessID: business.ID, CampaignID: &campaign.ID, Count: 3})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestValidateReflectsCodeLifecycle(t *testing.T) {
	conn, svc := setupQRCodeTest(t)
	business := seedCodeBusiness(t, conn)

	issued, err := svc.Issue(context.Background(), IssueInput{BusinessID: business.ID})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	token := issued[0].Token

	result, err := svc.Validate(context.Background(), token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !result.Valid || result.BusinessName != business.Name {
		t.Fatalf("expected valid code for %q, got %+v", business.Name, result)
	}

	result, err = svc.Validate(context.Background(), "unknown-token")
	if err != nil {
		t.Fatalf("validate unknown: %v", err)
	}
	if result.Valid {
		t.Fatal("expected unknown token to be invalid")
	}

	now := time.Now().UTC()
	if err := conn.Model(&models.QRCode{}).Where("token = ?", token).Update("scanned_at", &now).Error; err != nil {
		t.Fatalf("mark scanned: %v", err)
	}
	result, err = svc.Validate(context.Background(), token)
	if err != nil {
		t.Fatalf("validate scanned: %v", err)
	}
	if result.Valid {
		t.Fatal("expected scanned token to be invalid")
	}
}

func TestImageRendersPNG(t *testing.T) {
	conn, svc := setupQRCodeTest(t)
	business := seedCodeBusiness(t, conn)

	issued, err := svc.Issue(context.Background(), IssueInput{BusinessID: business.ID})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	png, err := svc.Image(context.Background(), issued[0].Token, 0)
	if err != nil {
		t.Fatalf("image: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatal("expected PNG output")
	}

	_, err = svc.Image(context.Background(), "unknown-token", 256)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND for unknown token, got %v", err)
	}
}

func TestDeactivateIsScopedToBusiness(t *testing.T) {
	conn, svc := setupQRCodeTest(t)
	business := seedCodeBusiness(t, conn)
	other := seedCodeBusiness(t, conn)

	issued, err := svc.Issue(context.Background(), IssueInput{BusinessID: business.ID})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	err = svc.Deactivate(context.Background(), issued[0].ID, other.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND for foreign business, got %v", err)
	}

	if err := svc.Deactivate(context.Background(), issued[0].ID, business.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	result, err := svc.Validate(context.Background(), issued[0].Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if result.Valid {
		t.Fatal("expected deactivated code to be invalid")
	}
}
