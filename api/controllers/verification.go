package controllers

import (
	"net/http"

	"github.com/printly/printly-backend/api/responses"
	"github.com/printly/printly-backend/api/validators"
	"github.com/printly/printly-backend/internal/messaging"
	"github.com/printly/printly-backend/internal/verification"
	"github.com/printly/printly-backend/pkg/db/models"
	pkgerrors "github.com/printly/printly-backend/pkg/errors"
	"github.com/printly/printly-backend/pkg/logger"
	"github.com/google/uuid"
)

type bulkVerifyRequest struct {
	IdentityIDs []string `json:"identity_ids"`
}

type queueEntry struct {
	models.Identity
	NotifyLink string `json:"notify_link,omitempty"`
}

// AdminListUnverified returns the verification queue with each identity's
// orders for context, plus a WhatsApp link to notify the customer when a
// shop number is configured.
func AdminListUnverified(svc verification.Service, links *messaging.Builder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		identities, err := svc.ListUnverified(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		entries := make([]queueEntry, 0, len(identities))
		for _, id := range identities {
			entry := queueEntry{Identity: id}
			if links != nil {
				if link, linkErr := links.VerificationNoticeLink(id.Phone, id.Token); linkErr == nil {
					entry.NotifyLink = link
				}
			}
			entries = append(entries, entry)
		}
		responses.WriteSuccess(w, map[string]any{"identities": entries})
	}
}

// AdminVerifyIdentity marks one identity verified.
func AdminVerifyIdentity(svc verification.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		identityID, err := validators.ParseUUIDParam(r, "identityId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Verify(ctx, identityID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "verified"})
	}
}

// AdminVerifyBulk marks a batch of identities verified and reports how many
// actually changed.
func AdminVerifyBulk(svc verification.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req bulkVerifyRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		ids := make([]uuid.UUID, 0, len(req.IdentityIDs))
		for _, raw := range req.IdentityIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "identity ids must be UUIDs").
					WithDetails(map[string]any{"value": raw}))
				return
			}
			ids = append(ids, id)
		}

		result, err := svc.VerifyBulk(ctx, ids)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
