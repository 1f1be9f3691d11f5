package controllers

import (
	"net/http"
	"time"

	"github.com/aliasttt/bonusweb-sub000/api/middleware"
	"github.com/aliasttt/bonusweb-sub000/api/responses"
	"github.com/aliasttt/bonusweb-sub000/api/validators"
	"github.com/aliasttt/bonusweb-sub000/internal/businesses"
	"github.com/aliasttt/bonusweb-sub000/internal/campaigns"
	"github.com/aliasttt/bonusweb-sub000/pkg/logger"
)

type createCampaignRequest struct {
	Name          string     `json:"name" validate:"required,min=2,max=120"`
	Description   string     `json:"description" validate:"max=2000"`
	PointsPerScan int        `json:"points_per_scan" validate:"required"`
	DailyLimit    *int       `json:"daily_limit"`
	StartAt       *time.Time `json:"start_at"`
	EndAt         *time.Time `json:"end_at"`
}

type updateCampaignRequest struct {
	Name          *string    `json:"name"`
	Description   *string    `json:"description"`
	PointsPerScan *int       `json:"points_per_scan"`
	DailyLimit    *int       `json:"daily_limit"`
	StartAt       *time.Time `json:"start_at"`
	EndAt         *time.Time `json:"end_at"`
	IsActive      *bool      `json:"is_active"`
}

// CreateCampaign adds an award campaign to the caller's business.
func CreateCampaign(svc campaigns.Service, bizSvc businesses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		business, err := bizSvc.GetByOwner(r.Context(), middleware.SubjectFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createCampaignRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		campaign, err := svc.Create(r.Context(), campaigns.CreateInput{
			BusinessID:    business.ID,
			Name:          payload.Name,
			Description:   payload.Description,
			PointsPerScan: payload.PointsPerScan,
			DailyLimit:    payload.DailyLimit,
			StartAt:       payload.StartAt,
			EndAt:         payload.EndAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, campaign)
	}
}

// ListCampaigns returns all campaigns of the caller's business.
func ListCampaigns(svc campaigns.Service, bizSvc businesses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		business, err := bizSvc.GetByOwner(r.Context(), middleware.SubjectFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.List(r.Context(), business.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"campaigns": list})
	}
}

// UpdateCampaign applies partial changes to one campaign.
func UpdateCampaign(svc campaigns.Service, bizSvc businesses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		business, err := bizSvc.GetByOwner(r.Context(), middleware.SubjectFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		campaignID, err := validators.ParseUUIDParam(r, "campaignId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateCampaignRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		campaign, err := svc.Update(r.Context(), campaignID, business.ID, campaigns.UpdateInput{
			Name:          payload.Name,
			Description:   payload.Description,
			PointsPerScan: payload.PointsPerScan,
			DailyLimit:    payload.DailyLimit,
			StartAt:       payload.StartAt,
			EndAt:         payload.EndAt,
			IsActive:      payload.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, campaign)
	}
}

// DeleteCampaign deactivates a campaign; committed awards keep referencing it.
func DeleteCampaign(svc campaigns.Service, bizSvc businesses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		business, err := bizSvc.GetByOwner(r.Context(), middleware.SubjectFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		campaignID, err := validators.ParseUUIDParam(r, "campaignId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Deactivate(r.Context(), campaignID, business.ID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}
