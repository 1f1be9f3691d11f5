package controllers

import (
	"net/http"

	"github.com/aliasttt/bonusweb-sub000/api/middleware"
	"github.com/aliasttt/bonusweb-sub000/api/responses"
	"github.com/aliasttt/bonusweb-sub000/api/validators"
	"github.com/aliasttt/bonusweb-sub000/internal/businesses"
	"github.com/aliasttt/bonusweb-sub000/pkg/db/models"
	"github.com/aliasttt/bonusweb-sub000/pkg/logger"
)

type registerBusinessRequest struct {
	Name            string `json:"name" validate:"required,min=2,max=120"`
	Description     string `json:"description" validate:"max=2000"`
	Address         string `json:"address" validate:"max=300"`
	Website         string `json:"website" validate:"max=300"`
	RewardPointCost int    `json:"reward_point_cost" validate:"min=0"`
}

type updateBusinessRequest struct {
	Name            *string `json:"name"`
	Description     *string `json:"description"`
	Address         *string `json:"address"`
	Website         *string `json:"website"`
	RewardPointCost *int    `json:"reward_point_cost"`
}

type scanPasswordRequest struct {
	Password string `json:"password" validate:"required,min=4,max=128"`
}

type productRequest struct {
	Title        string `json:"title" validate:"required,min=1,max=200"`
	PriceCents   int    `json:"price_cents" validate:"min=0"`
	PointsReward int    `json:"points_reward" validate:"min=0"`
	RewardItem   bool   `json:"reward_item"`
}

type updateProductRequest struct {
	Title        *string `json:"title"`
	PriceCents   *int    `json:"price_cents"`
	PointsReward *int    `json:"points_reward"`
	RewardItem   *bool   `json:"reward_item"`
	Active       *bool   `json:"active"`
}

type businessView struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	Address         string `json:"address,omitempty"`
	Website         string `json:"website,omitempty"`
	RewardPointCost int    `json:"reward_point_cost"`
}

func toBusinessView(b *models.Business) businessView {
	return businessView{
		ID:              b.ID.String(),
		Name:            b.Name,
		Description:     b.Description,
		Address:         b.Address,
		Website:         b.Website,
		RewardPointCost: b.RewardPointCost,
	}
}

// RegisterBusiness creates a loyalty tenant owned by the calling subject.
func RegisterBusiness(svc businesses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload registerBusinessRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		business, err := svc.Register(r.Context(), businesses.RegisterInput{
			OwnerSubject:    middleware.SubjectFromContext(r.Context()),
			Name:            payload.Name,
			Description:     payload.Description,
			Address:         payload.Address,
			Website:         payload.Website,
			RewardPointCost: payload.RewardPointCost,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toBusinessView(business))
	}
}

// ListBusinesses returns the public business directory.
func ListBusinesses(svc businesses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		views := make([]businessView, 0, len(list))
		for i := range list {
			views = append(views, toBusinessView(&list[i]))
		}
		responses.WriteSuccess(w, map[string]any{"businesses": views})
	}
}

// GetBusiness returns one business's public profile.
func GetBusiness(svc businesses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "businessId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		business, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toBusinessView(business))
	}
}

// BusinessProfile returns the caller's own business.
func BusinessProfile(svc businesses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		business, err := svc.GetByOwner(r.Context(), middleware.SubjectFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view := toBusinessView(business)
		responses.WriteSuccess(w, map[string]any{
			"business":          view,
			"has_scan_password": business.HasScanPassword(),
		})
	}
}

// UpdateBusinessProfile applies partial profile changes to the caller's business.
func UpdateBusinessProfile(svc businesses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		business, err := svc.GetByOwner(r.Context(), middleware.SubjectFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateBusinessRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.UpdateProfile(r.Context(), business.ID, businesses.ProfileInput{
			Name:            payload.Name,
			Description:     payload.Description,
			Address:         payload.Address,
			Website:         payload.Website,
			RewardPointCost: payload.RewardPointCost,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toBusinessView(updated))
	}
}

// SetScanPassword sets the password scanners must present for token awards.
func SetScanPassword(svc businesses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		business, err := svc.GetByOwner(r.Context(), middleware.SubjectFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload scanPasswordRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetScanPassword(r.Context(), business.ID, payload.Password); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"updated": true})
	}
}

// ClearScanPassword removes the scan password requirement.
func ClearScanPassword(svc businesses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		business, err := svc.GetByOwner(r.Context(), middleware.SubjectFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.ClearScanPassword(r.Context(), business.ID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"updated": true})
	}
}

// CreateProduct adds a catalog entry to the caller's business.
func CreateProduct(svc businesses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		business, err := svc.GetByOwner(r.Context(), middleware.SubjectFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload productRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.AddProduct(r.Context(), businesses.ProductInput{
			BusinessID:   business.ID,
			Title:        payload.Title,
			PriceCents:   payload.PriceCents,
			PointsReward: payload.PointsReward,
			RewardItem:   payload.RewardItem,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// ListOwnProducts returns the full catalog of the caller's business.
func ListOwnProducts(svc businesses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		business, err := svc.GetByOwner(r.Context(), middleware.SubjectFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		products, err := svc.ListProducts(r.Context(), business.ID, false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"products": products})
	}
}

// ListBusinessProducts returns a business's active products for customers.
func ListBusinessProducts(svc businesses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "businessId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		products, err := svc.ListProducts(r.Context(), id, true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"products": products})
	}
}

// UpdateProduct applies partial changes to one catalog entry.
func UpdateProduct(svc businesses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		business, err := svc.GetByOwner(r.Context(), middleware.SubjectFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), productID, business.ID, businesses.ProductUpdateInput{
			Title:        payload.Title,
			PriceCents:   payload.PriceCents,
			PointsReward: payload.PointsReward,
			RewardItem:   payload.RewardItem,
			Active:       payload.Active,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// DeleteProduct deactivates a catalog entry. Committed ledger rows that
// reference past baskets stay untouched.
func DeleteProduct(svc businesses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		business, err := svc.GetByOwner(r.Context(), middleware.SubjectFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeactivateProduct(r.Context(), productID, business.ID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}
