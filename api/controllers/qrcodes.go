package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/aliasttt/bonusweb-sub000/api/middleware"
	"github.com/aliasttt/bonusweb-sub000/api/responses"
	"github.com/aliasttt/bonusweb-sub000/api/validators"
	"github.com/aliasttt/bonusweb-sub000/internal/businesses"
	"github.com/aliasttt/bonusweb-sub000/internal/qrcodes"
	pkgerrors "github.com/aliasttt/bonusweb-sub000/pkg/errors"
	"github.com/aliasttt/bonusweb-sub000/pkg/logger"
)

type issueQRCodesRequest struct {
	Count      int    `json:"count" validate:"min=0,max=500"`
	CampaignID string `json:"campaign_id"`
}

// IssueQRCodes creates a batch of single-use codes for the caller's business.
func IssueQRCodes(svc qrcodes.Service, bizSvc businesses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		business, err := bizSvc.GetByOwner(r.Context(), middleware.SubjectFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload issueQRCodesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var campaignID *uuid.UUID
		if payload.CampaignID != "" {
			id, perr := uuid.Parse(payload.CampaignID)
			if perr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid campaign id"))
				return
			}
			campaignID = &id
		}

		issued, err := svc.Issue(r.Context(), qrcodes.IssueInput{
			BusinessID: business.ID,
			CampaignID: campaignID,
			Count:      payload.Count,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"codes": issued})
	}
}

// ListQRCodes lists the caller's codes; ?unscanned=true narrows to honorable ones.
func ListQRCodes(svc qrcodes.Service, bizSvc businesses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		business, err := bizSvc.GetByOwner(r.Context(), middleware.SubjectFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		unscanned, err := validators.ParseQueryBool(r, "unscanned", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		codes, err := svc.List(r.Context(), business.ID, unscanned)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"codes": codes})
	}
}

// ValidateQRCode is the read-only pre-flight check for scanner apps.
func ValidateQRCode(svc qrcodes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.URL.Query().Get("token"))
		result, err := svc.Validate(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// QRCodeImage renders a code's token as a PNG.
func QRCodeImage(svc qrcodes.Service, bizSvc businesses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := bizSvc.GetByOwner(r.Context(), middleware.SubjectFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		token := strings.TrimSpace(r.URL.Query().Get("token"))
		size, err := validators.ParseQueryInt(r, "size", 0, 0, 1024)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		png, err := svc.Image(r.Context(), token, size)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WritePNG(w, png)
	}
}

// DeactivateQRCode retires a code before it is ever scanned.
func DeactivateQRCode(svc qrcodes.Service, bizSvc businesses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		business, err := bizSvc.GetByOwner(r.Context(), middleware.SubjectFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		codeID, err := validators.ParseUUIDParam(r, "codeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Deactivate(r.Context(), codeID, business.ID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deactivated": true})
	}
}
