package controllers

import (
	"net/http"

	"github.com/printly/printly-backend/api/responses"
	"github.com/printly/printly-backend/api/validators"
	"github.com/printly/printly-backend/internal/identity"
	"github.com/printly/printly-backend/internal/messaging"
	"github.com/printly/printly-backend/internal/orders"
	"github.com/printly/printly-backend/pkg/db/models"
	dbtypes "github.com/printly/printly-backend/pkg/db/types"
	"github.com/printly/printly-backend/pkg/logger"
)

type createOrderRequest struct {
	Phone      string                   `json:"phone"`
	IsNewUser  bool                     `json:"is_new_user"`
	Token      string                   `json:"token"`
	Copies     int                      `json:"copies"`
	TotalPages int                      `json:"total_pages"`
	Notes      *string                  `json:"notes"`
	Files      []dbtypes.FileDescriptor `json:"files"`
}

type orderCredentialsRequest struct {
	Phone string `json:"phone"`
	Token string `json:"token"`
}

type removeFileRequest struct {
	Phone    string `json:"phone"`
	Token    string `json:"token"`
	FileName string `json:"file_name"`
}

// CreateOrder submits a new print job. Field-level rules live in the order
// service so error attribution stays consistent between transports.
func CreateOrder(ordersSvc orders.Service, links *messaging.Builder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			ctx = logg.WithPhone(ctx, req.Phone)
		}

		out, err := ordersSvc.Create(ctx, orders.CreateInput{
			Phone:      req.Phone,
			IsNewUser:  req.IsNewUser,
			Token:      req.Token,
			Copies:     req.Copies,
			TotalPages: req.TotalPages,
			Notes:      req.Notes,
			Files:      req.Files,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if links != nil {
			out.ContactLink = links.ContactAdminLink(out.OrderID.String(), out.Token)
			out.PaymentLink = links.PaymentQueryLink(out.OrderID.String())
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, out)
	}
}

// ListOrders returns the caller's orders. Phone and token arrive as query
// parameters and must resolve jointly.
func ListOrders(identities identity.Service, ordersSvc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		owner, err := resolveCaller(r, identities)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		listed, err := ordersSvc.ListForIdentity(ctx, owner.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"orders": listed})
	}
}

// GetOrder returns one of the caller's orders.
func GetOrder(identities identity.Service, ordersSvc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		owner, err := resolveCaller(r, identities)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := ordersSvc.Get(ctx, orderID, owner.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// CancelOrder cancels one of the caller's pending, unpaid orders.
func CancelOrder(identities identity.Service, ordersSvc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req orderCredentialsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		owner, err := identities.Resolve(ctx, req.Phone, req.Token)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID.String())
		}

		if err := ordersSvc.Cancel(ctx, orderID, owner.ID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "CANCELLED"})
	}
}

// RemoveOrderFile detaches a file from a pending order, recomputing the price
// or cancelling the order when the last file goes.
func RemoveOrderFile(identities identity.Service, ordersSvc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req removeFileRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		owner, err := identities.Resolve(ctx, req.Phone, req.Token)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID.String())
		}

		order, err := ordersSvc.RemoveFile(ctx, orders.RemoveFileInput{
			OrderID:    orderID,
			IdentityID: owner.ID,
			FileName:   req.FileName,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func resolveCaller(r *http.Request, identities identity.Service) (*models.Identity, error) {
	phone, err := validators.RequireQueryString(r, "phone")
	if err != nil {
		return nil, err
	}
	token, err := validators.RequireQueryString(r, "token")
	if err != nil {
		return nil, err
	}
	return identities.Resolve(r.Context(), phone, token)
}
