package campaigns

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/aliasttt/bonusweb-sub000/pkg/db/models"
	pkgerrors "github.com/aliasttt/bonusweb-sub000/pkg/errors"
)

func setupCampaignTest(t *testing.T) (Service, uuid.UUID) {
	t.Helper()

	dsn := "file:campaigns_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Business{}, &models.Campaign{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	business := &models.Business{ID: uuid.New(), OwnerSubject: uuid.NewString(), Name: "Cafe", RewardPointCost: 10}
	if err := conn.Create(business).Error; err != nil {
		t.Fatalf("create business: %v", err)
	}
	return NewService(NewRepository(conn)), business.ID
}

func TestCreateValidatesInput(t *testing.T) {
	svc, businessID := setupCampaignTest(t)

	cases := []struct {
		name  string
		input CreateInput
	}{
		{"missing name", CreateInput{BusinessID: businessID, PointsPerScan: 1}},
		{"zero points", CreateInput{BusinessID: businessID, Name: "x"}},
		{"bad daily limit", CreateInput{BusinessID: businessID, Name: "x", PointsPerScan: 1, DailyLimit: intPtr(0)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected VALIDATION_ERROR, got %v", err)
			}
		})
	}

	start := time.Now().UTC()
	end := start.Add(-time.Hour)
	_, err := svc.Create(context.Background(), CreateInput{
		BusinessID: businessID, Name: "x", PointsPerScan: 1, StartAt: &start, EndAt: &end,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR for inverted window, got %v", err)
	}
}

func TestUpdateAppliesOnlyProvidedFields(t *testing.T) {
	svc, businessID := setupCampaignTest(t)

	campaign, err := svc.Create(context.Background(), CreateInput{
		BusinessID:    businessID,
		Name:          "Launch Week",
		PointsPerScan: 2,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Update(context.Background(), campaign.ID, businessID, UpdateInput{
		PointsPerScan: intPtr(5),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.PointsPerScan != 5 {
		t.Fatalf("expected points per scan 5, got %d", updated.PointsPerScan)
	}
	if updated.Name != "Launch Week" {
		t.Fatalf("expected name untouched, got %q", updated.Name)
	}

	_, err = svc.Update(context.Background(), campaign.ID, businessID, UpdateInput{})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR for empty update, got %v", err)
	}
}

func TestGetIsScopedToBusiness(t *testing.T) {
	svc, businessID := setupCampaignTest(t)

	campaign, err := svc.Create(context.Background(), CreateInput{
		BusinessID:    businessID,
		Name:          "Members Only",
		PointsPerScan: 1,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Get(context.Background(), campaign.ID, uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND for foreign business, got %v", err)
	}
}

func TestDeactivateStopsCampaign(t *testing.T) {
	svc, businessID := setupCampaignTest(t)

	campaign, err := svc.Create(context.Background(), CreateInput{
		BusinessID:    businessID,
		Name:          "Seasonal",
		PointsPerScan: 3,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Deactivate(context.Background(), campaign.ID, businessID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	reloaded, err := svc.Get(context.Background(), campaign.ID, businessID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reloaded.IsActive {
		t.Fatal("expected campaign to be inactive")
	}
	if reloaded.ActiveAt(time.Now().UTC()) {
		t.Fatal("expected inactive campaign to not be active now")
	}
}

func intPtr(v int) *int { return &v }
