package businesses

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aliasttt/bonusweb-sub000/pkg/config"
	"github.com/aliasttt/bonusweb-sub000/pkg/db"
	"github.com/aliasttt/bonusweb-sub000/pkg/db/models"
	pkgerrors "github.com/aliasttt/bonusweb-sub000/pkg/errors"
	"github.com/aliasttt/bonusweb-sub000/pkg/security"
)

// Service manages loyalty tenants and their product catalogs. Each identity
// subject owns at most one business.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.Business, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Business, error)
	GetByOwner(ctx context.Context, subject string) (*models.Business, error)
	List(ctx context.Context) ([]models.Business, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, input ProfileInput) (*models.Business, error)
	SetScanPassword(ctx context.Context, id uuid.UUID, password string) error
	ClearScanPassword(ctx context.Context, id uuid.UUID) error

	AddProduct(ctx context.Context, input ProductInput) (*models.Product, error)
	ListProducts(ctx context.Context, businessID uuid.UUID, activeOnly bool) ([]models.Product, error)
	UpdateProduct(ctx context.Context, id, businessID uuid.UUID, input ProductUpdateInput) (*models.Product, error)
	DeactivateProduct(ctx context.Context, id, businessID uuid.UUID) error
}

// RegisterInput creates a business for the calling owner subject.
type RegisterInput struct {
	OwnerSubject    string
	Name            string
	Description     string
	Address         string
	Website         string
	RewardPointCost int
}

// ProfileInput carries optional profile changes; nil means leave unchanged.
type ProfileInput struct {
	Name            *string
	Description     *string
	Address         *string
	Website         *string
	RewardPointCost *int
}

// ProductInput describes a new catalog entry.
type ProductInput struct {
	BusinessID   uuid.UUID
	Title        string
	PriceCents   int
	PointsReward int
	RewardItem   bool
}

// ProductUpdateInput carries optional product changes.
type ProductUpdateInput struct {
	Title        *string
	PriceCents   *int
	PointsReward *int
	RewardItem   *bool
	Active       *bool
}

type service struct {
	repo         Repository
	loyalty      config.LoyaltyConfig
	scanPassword config.ScanPasswordConfig
}

// NewService builds the business service.
func NewService(repo Repository, loyalty config.LoyaltyConfig, scanPassword config.ScanPasswordConfig) Service {
	return &service{repo: repo, loyalty: loyalty, scanPassword: scanPassword}
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*models.Business, error) {
	if input.OwnerSubject == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "owner identity required")
	}
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	cost := input.RewardPointCost
	if cost <= 0 {
		cost = s.loyalty.DefaultRewardPointCost
	}

	business := &models.Business{
		ID:              uuid.New(),
		OwnerSubject:    input.OwnerSubject,
		Name:            input.Name,
		Description:     input.Description,
		Address:         input.Address,
		Website:         input.Website,
		RewardPointCost: cost,
	}
	if err := s.repo.Create(ctx, business); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "subject already owns a business")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create business")
	}
	return business, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Business, error) {
	business, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "business not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load business")
	}
	return business, nil
}

func (s *service) GetByOwner(ctx context.Context, subject string) (*models.Business, error) {
	business, err := s.repo.GetByOwnerSubject(ctx, subject)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "business not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load business")
	}
	return business, nil
}

func (s *service) List(ctx context.Context) ([]models.Business, error) {
	businesses, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list businesses")
	}
	return businesses, nil
}

func (s *service) UpdateProfile(ctx context.Context, id uuid.UUID, input ProfileInput) (*models.Business, error) {
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
	if input.Address != nil {
		fields["address"] = *input.Address
	}
	if input.Website != nil {
		fields["website"] = *input.Website
	}
	if input.RewardPointCost != nil {
		if *input.RewardPointCost <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "reward point cost must be positive")
		}
		fields["reward_point_cost"] = *input.RewardPointCost
	}
	if len(fields) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	ok, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update business")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "business not found")
	}
	return s.Get(ctx, id)
}

func (s *service) SetScanPassword(ctx context.Context, id uuid.UUID, password string) error {
	if len(password) < 4 {
		return pkgerrors.New(pkgerrors.CodeValidation, "scan password too short")
	}

	hash, err := security.HashScanPassword(password, s.scanPassword)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash scan password")
	}
	ok, err := s.repo.Update(ctx, id, map[string]any{"scan_password_hash": hash})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store scan password")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "business not found")
	}
	return nil
}

func (s *service) ClearScanPassword(ctx context.Context, id uuid.UUID) error {
	ok, err := s.repo.Update(ctx, id, map[string]any{"scan_password_hash": nil})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear scan password")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "business not found")
	}
	return nil
}

func (s *service) AddProduct(ctx context.Context, input ProductInput) (*models.Product, error) {
	if input.BusinessID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business id is required")
	}
	if input.Title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if input.PointsReward < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "points reward cannot be negative")
	}

	product := &models.Product{
		ID:           uuid.New(),
		BusinessID:   input.BusinessID,
		Title:        input.Title,
		PriceCents:   input.PriceCents,
		PointsReward: input.PointsReward,
		RewardItem:   input.RewardItem,
		Active:       true,
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return product, nil
}

func (s *service) ListProducts(ctx context.Context, businessID uuid.UUID, activeOnly bool) ([]models.Product, error) {
	products, err := s.repo.ListProducts(ctx, businessID, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return products, nil
}

func (s *service) UpdateProduct(ctx context.Context, id, businessID uuid.UUID, input ProductUpdateInput) (*models.Product, error) {
	fields := map[string]any{}
	if input.Title != nil {
		if *input.Title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		fields["title"] = *input.Title
	}
	if input.PriceCents != nil {
		fields["price_cents"] = *input.PriceCents
	}
	if input.PointsReward != nil {
		if *input.PointsReward < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "points reward cannot be negative")
		}
		fields["points_reward"] = *input.PointsReward
	}
	if input.RewardItem != nil {
		fields["reward_item"] = *input.RewardItem
	}
	if input.Active != nil {
		fields["active"] = *input.Active
	}
	if len(fields) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	ok, err := s.repo.UpdateProduct(ctx, id, businessID, fields)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	product, err := s.repo.GetProduct(ctx, id, businessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) DeactivateProduct(ctx context.Context, id, businessID uuid.UUID) error {
	ok, err := s.repo.UpdateProduct(ctx, id, businessID, map[string]any{"active": false})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate product")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}
