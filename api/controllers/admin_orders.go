package controllers

import (
	"net/http"

	"github.com/printly/printly-backend/api/responses"
	"github.com/printly/printly-backend/api/validators"
	"github.com/printly/printly-backend/internal/orders"
	"github.com/printly/printly-backend/pkg/enums"
	pkgerrors "github.com/printly/printly-backend/pkg/errors"
	"github.com/printly/printly-backend/pkg/logger"
	"github.com/google/uuid"
)

type adminUpdateOrderRequest struct {
	Status        *string `json:"status"`
	PaymentStatus *string `json:"payment_status"`
}

// AdminListOrders returns every order, optionally filtered by status and
// payment status.
func AdminListOrders(ordersSvc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var filters orders.ListFilters
		if raw := validators.QueryString(r, "status"); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filters.Status = &status
		}
		if raw := validators.QueryString(r, "payment_status"); raw != "" {
			payment, err := enums.ParsePaymentStatus(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status filter"))
				return
			}
			filters.PaymentStatus = &payment
		}

		listed, err := ordersSvc.ListAll(ctx, filters)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"orders": listed})
	}
}

// AdminUpdateOrder sets the status and/or payment status of an order.
func AdminUpdateOrder(ordersSvc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req adminUpdateOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input := orders.AdminUpdateInput{OrderID: orderID}
		if req.Status != nil {
			status := enums.OrderStatus(*req.Status)
			input.Status = &status
		}
		if req.PaymentStatus != nil {
			payment := enums.PaymentStatus(*req.PaymentStatus)
			input.PaymentStatus = &payment
		}

		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID.String())
		}

		order, err := ordersSvc.AdminUpdate(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AdminGetOrder returns any order by id, without ownership checks.
func AdminGetOrder(ordersSvc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := ordersSvc.Get(ctx, orderID, uuid.Nil)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
