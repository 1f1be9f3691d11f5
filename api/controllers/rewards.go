package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/aliasttt/bonusweb-sub000/api/middleware"
	"github.com/aliasttt/bonusweb-sub000/api/responses"
	"github.com/aliasttt/bonusweb-sub000/api/validators"
	"github.com/aliasttt/bonusweb-sub000/internal/rewards"
	pkgerrors "github.com/aliasttt/bonusweb-sub000/pkg/errors"
	"github.com/aliasttt/bonusweb-sub000/pkg/logger"
	"github.com/aliasttt/bonusweb-sub000/pkg/pagination"
)

type scanRequest struct {
	Token            string   `json:"token"`
	BusinessID       string   `json:"business_id"`
	ProductIDs       []string `json:"product_ids"`
	Note             string   `json:"note" validate:"max=200"`
	BusinessPassword string   `json:"business_password" validate:"max=128"`
}

type redeemRequest struct {
	BusinessID string `json:"business_id" validate:"required,uuid"`
	Amount     int    `json:"amount" validate:"required,min=1"`
}

// Scan awards points for a QR scan. The payload shape selects the flow:
// a token for single-use codes, or business_id plus product_ids for baskets.
func Scan(svc rewards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rewards service unavailable"))
			return
		}

		subject := middleware.SubjectFromContext(r.Context())

		var payload scanRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if payload.Token != "" {
			result, err := svc.AwardTokenScan(r.Context(), rewards.TokenScanInput{
				Subject:          subject,
				Token:            strings.TrimSpace(payload.Token),
				Note:             payload.Note,
				BusinessPassword: payload.BusinessPassword,
			})
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, result)
			return
		}

		businessID, err := uuid.Parse(payload.BusinessID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "token or business_id is required"))
			return
		}
		productIDs := make([]uuid.UUID, 0, len(payload.ProductIDs))
		for _, raw := range payload.ProductIDs {
			id, perr := uuid.Parse(raw)
			if perr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product ids must be uuids"))
				return
			}
			productIDs = append(productIDs, id)
		}

		result, err := svc.AwardProductScan(r.Context(), rewards.ProductScanInput{
			Subject:    subject,
			BusinessID: businessID,
			ProductIDs: productIDs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Redeem deducts points in exchange for a reward at one business.
func Redeem(svc rewards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rewards service unavailable"))
			return
		}

		var payload redeemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		businessID, err := uuid.Parse(payload.BusinessID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid business id"))
			return
		}

		result, err := svc.Redeem(r.Context(), rewards.RedeemInput{
			Subject:    middleware.SubjectFromContext(r.Context()),
			BusinessID: businessID,
			Amount:     payload.Amount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Balance lists the caller's wallet balances across businesses.
func Balance(svc rewards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rewards service unavailable"))
			return
		}

		balances, err := svc.Balance(r.Context(), middleware.SubjectFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"wallets": balances})
	}
}

// History pages through the caller's ledger entries, newest first.
func History(svc rewards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rewards service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.History(r.Context(), middleware.SubjectFromContext(r.Context()), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
