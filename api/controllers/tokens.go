package controllers

import (
	"net/http"

	"github.com/printly/printly-backend/api/responses"
	"github.com/printly/printly-backend/api/validators"
	"github.com/printly/printly-backend/internal/identity"
	"github.com/printly/printly-backend/pkg/logger"
)

type tokenRequest struct {
	Phone string `json:"phone"`
}

type tokenResponse struct {
	Token         string `json:"token"`
	IsNewIdentity bool   `json:"is_new_identity"`
}

// IssueToken mints or rotates the tracking token for a phone number. Rotation
// invalidates the previous token immediately.
func IssueToken(identities identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req tokenRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			ctx = logg.WithPhone(ctx, req.Phone)
		}

		grant, err := identities.IssueOrRotate(ctx, req.Phone)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, tokenResponse{
			Token:         grant.Token,
			IsNewIdentity: grant.IsNewIdentity,
		})
	}
}
