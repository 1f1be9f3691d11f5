package qrcodes

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
	"gorm.io/gorm"

	"github.com/aliasttt/bonusweb-sub000/internal/catalog"
	"github.com/aliasttt/bonusweb-sub000/pkg/db/models"
	pkgerrors "github.com/aliasttt/bonusweb-sub000/pkg/errors"
)

const (
	maxBatchSize     = 500
	defaultImageSize = 256
	maxImageSize     = 1024
)

// Service manages the lifecycle of single-use QR codes: issuing, listing,
// validating and rendering. Consumption lives in the wallet engine.
type Service interface {
	Issue(ctx context.Context, input IssueInput) ([]IssuedCode, error)
	List(ctx context.Context, businessID uuid.UUID, unscannedOnly bool) ([]CodeView, error)
	Validate(ctx context.Context, token string) (*ValidationResult, error)
	Image(ctx context.Context, token string, size int) ([]byte, error)
	Deactivate(ctx context.Context, id, businessID uuid.UUID) error
}

// IssueInput creates a batch of codes for one business, optionally bound to
// a campaign.
type IssueInput struct {
	BusinessID uuid.UUID
	CampaignID *uuid.UUID
	Count      int
}

// IssuedCode is the creation view of a code, token included.
type IssuedCode struct {
	ID    uuid.UUID `json:"id"`
	Token string    `json:"token"`
}

// CodeView is the listing view of a code.
type CodeView struct {
	ID         uuid.UUID  `json:"id"`
	Token      string     `json:"token"`
	CampaignID *uuid.UUID `json:"campaign_id,omitempty"`
	Active     bool       `json:"active"`
	ScannedAt  *time.Time `json:"scanned_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ValidationResult reports whether a token is still honorable, without
// consuming it.
type ValidationResult struct {
	Valid        bool       `json:"valid"`
	BusinessID   uuid.UUID  `json:"business_id,omitempty"`
	BusinessName string     `json:"business_name,omitempty"`
	CampaignID   *uuid.UUID `json:"campaign_id,omitempty"`
}

type service struct {
	repo    Repository
	catalog catalog.Adapter
}

// NewService builds the QR code service.
func NewService(repo Repository, cat catalog.Adapter) Service {
	return &service{repo: repo, catalog: cat}
}

func (s *service) Issue(ctx context.Context, input IssueInput) ([]IssuedCode, error) {
	if input.BusinessID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business id is required")
	}
	if input.Count <= 0 {
		input.Count = 1
	}
	if input.Count > maxBatchSize {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch size too large")
	}

	if input.CampaignID != nil {
		campaign, err := s.catalog.CampaignByID(ctx, *input.CampaignID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "campaign not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load campaign")
		}
		if campaign.BusinessID != input.BusinessID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "campaign belongs to another business")
		}
	}

	codes := make([]models.QRCode, 0, input.Count)
	for i := 0; i < input.Count; i++ {
		codes = append(codes, models.QRCode{
			ID:         uuid.New(),
			BusinessID: input.BusinessID,
			CampaignID: input.CampaignID,
			Token:      models.GenerateQRToken(),
			Active:     true,
		})
	}
	if err := s.repo.CreateBatch(ctx, codes); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create qr codes")
	}

	issued := make([]IssuedCode, 0, len(codes))
	for _, code := range codes {
		issued = append(issued, IssuedCode{ID: code.ID, Token: code.Token})
	}
	return issued, nil
}

func (s *service) List(ctx context.Context, businessID uuid.UUID, unscannedOnly bool) ([]CodeView, error) {
	codes, err := s.repo.ListByBusiness(ctx, businessID, unscannedOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list qr codes")
	}

	views := make([]CodeView, 0, len(codes))
	for _, code := range codes {
		views = append(views, CodeView{
			ID:         code.ID,
			Token:      code.Token,
			CampaignID: code.CampaignID,
			Active:     code.Active,
			ScannedAt:  code.ScannedAt,
			CreatedAt:  code.CreatedAt,
		})
	}
	return views, nil
}

// Validate is a read-only pre-flight check, typically hit by the scanner app
// before it commits to an award. It never marks the code.
func (s *service) Validate(ctx context.Context, token string) (*ValidationResult, error) {
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}

	code, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ValidationResult{Valid: false}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load qr code")
	}
	if !code.Active || code.ScannedAt != nil {
		return &ValidationResult{Valid: false}, nil
	}

	business, err := s.catalog.BusinessByID(ctx, code.BusinessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load business")
	}
	return &ValidationResult{
		Valid:        true,
		BusinessID:   business.ID,
		BusinessName: business.Name,
		CampaignID:   code.CampaignID,
	}, nil
}

// Image renders the token as a PNG. The encoded content is the bare token;
// the scanner app owns the resolution scheme.
func (s *service) Image(ctx context.Context, token string, size int) ([]byte, error) {
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}
	if size <= 0 {
		size = defaultImageSize
	}
	if size > maxImageSize {
		size = maxImageSize
	}

	if _, err := s.repo.GetByToken(ctx, token); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "qr code not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load qr code")
	}

	png, err := qrcode.Encode(token, qrcode.Medium, size)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render qr image")
	}
	return png, nil
}

func (s *service) Deactivate(ctx context.Context, id, businessID uuid.UUID) error {
	if id == uuid.Nil || businessID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "qr code id is required")
	}
	ok, err := s.repo.Deactivate(ctx, id, businessID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate qr code")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "qr code not found")
	}
	return nil
}
