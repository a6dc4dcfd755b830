package controllers

import (
	"net/http"

	"github.com/printly/printly-backend/api/responses"
	"github.com/printly/printly-backend/api/validators"
	"github.com/printly/printly-backend/internal/adminauth"
	"github.com/printly/printly-backend/pkg/logger"
)

type adminLoginRequest struct {
	Passcode string `json:"passcode"`
}

// AdminLogin exchanges the shop passcode for a capability token.
func AdminLogin(auth adminauth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req adminLoginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		session, err := auth.Login(ctx, req.Passcode)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}
