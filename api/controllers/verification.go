package controllers

import (
	"net/http"

	"github.com/aliasttt/bonusweb-sub000/api/middleware"
	"github.com/aliasttt/bonusweb-sub000/api/responses"
	"github.com/aliasttt/bonusweb-sub000/api/validators"
	"github.com/aliasttt/bonusweb-sub000/internal/verification"
	"github.com/aliasttt/bonusweb-sub000/pkg/logger"
)

type sendVerificationRequest struct {
	Phone string `json:"phone" validate:"required,min=7,max=20"`
}

type checkVerificationRequest struct {
	Phone string `json:"phone" validate:"required,min=7,max=20"`
	Code  string `json:"code" validate:"required,min=4,max=10"`
}

// SendVerification issues a phone verification code for the caller.
func SendVerification(svc verification.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload sendVerificationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Send(r.Context(), middleware.SubjectFromContext(r.Context()), payload.Phone); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"sent": true})
	}
}

// CheckVerification verifies a submitted code and stores the phone.
func CheckVerification(svc verification.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload checkVerificationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Check(r.Context(), middleware.SubjectFromContext(r.Context()), payload.Phone, payload.Code); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"verified": true})
	}
}
