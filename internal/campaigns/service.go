package campaigns

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aliasttt/bonusweb-sub000/pkg/db/models"
	pkgerrors "github.com/aliasttt/bonusweb-sub000/pkg/errors"
)

// Service manages award campaigns. A campaign only influences how much a
// token scan is worth; deleting one never touches committed ledger rows, so
// removal is modeled as deactivation.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Campaign, error)
	Get(ctx context.Context, id, businessID uuid.UUID) (*models.Campaign, error)
	List(ctx context.Context, businessID uuid.UUID) ([]models.Campaign, error)
	Update(ctx context.Context, id, businessID uuid.UUID, input UpdateInput) (*models.Campaign, error)
	Deactivate(ctx context.Context, id, businessID uuid.UUID) error
}

// CreateInput describes a new campaign.
type CreateInput struct {
	BusinessID    uuid.UUID
	Name          string
	Description   string
	PointsPerScan int
	DailyLimit    *int
	StartAt       *time.Time
	EndAt         *time.Time
}

// UpdateInput carries optional field changes; nil means leave unchanged.
type UpdateInput struct {
	Name          *string
	Description   *string
	PointsPerScan *int
	DailyLimit    *int
	StartAt       *time.Time
	EndAt         *time.Time
	IsActive      *bool
}

type service struct {
	repo Repository
}

// NewService builds the campaign service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Campaign, error) {
	if input.BusinessID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business id is required")
	}
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.PointsPerScan == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "points per scan must be non-zero")
	}
	if input.DailyLimit != nil && *input.DailyLimit <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "daily limit must be positive")
	}
	if input.StartAt != nil && input.EndAt != nil && input.EndAt.Before(*input.StartAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end must be after start")
	}

	campaign := &models.Campaign{
		ID:            uuid.New(),
		BusinessID:    input.BusinessID,
		Name:          input.Name,
		Description:   input.Description,
		StartAt:       input.StartAt,
		EndAt:         input.EndAt,
		IsActive:      true,
		PointsPerScan: input.PointsPerScan,
		DailyLimit:    input.DailyLimit,
	}
	if err := s.repo.Create(ctx, campaign); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create campaign")
	}
	return campaign, nil
}

func (s *service) Get(ctx context.Context, id, businessID uuid.UUID) (*models.Campaign, error) {
	campaign, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "campaign not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load campaign")
	}
	if campaign.BusinessID != businessID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "campaign not found")
	}
	return campaign, nil
}

func (s *service) List(ctx context.Context, businessID uuid.UUID) ([]models.Campaign, error) {
	campaigns, err := s.repo.ListByBusiness(ctx, businessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list campaigns")
	}
	return campaigns, nil
}

func (s *service) Update(ctx context.Context, id, businessID uuid.UUID, input UpdateInput) (*models.Campaign, error) {
	fields := map[string]any{}
	if input.Name != nil {
		if *input.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		fields["name"] = *input.Name
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}
	if input.PointsPerScan != nil {
		if *input.PointsPerScan == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "points per scan must be non-zero")
		}
		fields["points_per_scan"] = *input.PointsPerScan
	}
	if input.DailyLimit != nil {
		if *input.DailyLimit <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "daily limit must be positive")
		}
		fields["daily_limit"] = *input.DailyLimit
	}
	if input.StartAt != nil {
		fields["start_at"] = *input.StartAt
	}
	if input.EndAt != nil {
		fields["end_at"] = *input.EndAt
	}
	if input.IsActive != nil {
		fields["is_active"] = *input.IsActive
	}
	if len(fields) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	ok, err := s.repo.Update(ctx, id, businessID, fields)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update campaign")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "campaign not found")
	}
	return s.Get(ctx, id, businessID)
}

func (s *service) Deactivate(ctx context.Context, id, businessID uuid.UUID) error {
	ok, err := s.repo.Update(ctx, id, businessID, map[string]any{"is_active": false})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate campaign")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "campaign not found")
	}
	return nil
}
