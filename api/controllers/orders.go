package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trendora-shop/trendora-backend/api/responses"
	"github.com/trendora-shop/trendora-backend/api/validators"
	ordersvc "github.com/trendora-shop/trendora-backend/internal/orders"
	"github.com/trendora-shop/trendora-backend/pkg/db/models"
	pkgerrors "github.com/trendora-shop/trendora-backend/pkg/errors"
	"github.com/trendora-shop/trendora-backend/pkg/logger"
	"github.com/trendora-shop/trendora-backend/pkg/pagination"
	"github.com/trendora-shop/trendora-backend/pkg/types"
)

// OrdersListMine returns the caller's order history, newest first.
func OrdersListMine(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := listParamsFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListMine(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderListResponse(result))
	}
}

// OrdersGetMine returns one of the caller's orders.
func OrdersGetMine(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := orderIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetMine(r.Context(), orderID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

type orderResponse struct {
	ID                uuid.UUID             `json:"id"`
	UserID            uuid.UUID             `json:"userId"`
	CheckoutSessionID uuid.UUID             `json:"checkoutId"`
	Lines             []models.LineSnapshot `json:"orderItems"`
	ShippingAddress   *types.Address        `json:"shippingAddress,omitempty"`
	PaymentMethod     string                `json:"paymentMethod"`
	TotalPrice        decimal.Decimal       `json:"totalPrice"`
	IsPaid            bool                  `json:"isPaid"`
	PaidAt            *time.Time            `json:"paidAt,omitempty"`
	IsDelivered       bool                  `json:"isDelivered"`
	DeliveredAt       *time.Time            `json:"deliveredAt,omitempty"`
	Status            string                `json:"status"`
	CreatedAt         time.Time             `json:"createdAt"`
}

type orderListResponse struct {
	Items  []orderResponse `json:"items"`
	Cursor string          `json:"cursor,omitempty"`
}

func newOrderResponse(order *models.Order) orderResponse {
	return orderResponse{
		ID:                order.ID,
		UserID:            order.UserID,
		CheckoutSessionID: order.CheckoutSessionID,
		Lines:             order.Lines,
		ShippingAddress:   order.ShippingAddress,
		PaymentMethod:     order.PaymentMethod,
		TotalPrice:        order.TotalPrice,
		IsPaid:            order.IsPaid,
		PaidAt:            order.PaidAt,
		IsDelivered:       order.IsDelivered,
		DeliveredAt:       order.DeliveredAt,
		Status:            order.Status.String(),
		CreatedAt:         order.CreatedAt,
	}
}

func newOrderListResponse(result *ordersvc.ListResult) orderListResponse {
	items := make([]orderResponse, 0, len(result.Items))
	for i := range result.Items {
		items = append(items, newOrderResponse(&result.Items[i]))
	}
	return orderListResponse{Items: items, Cursor: result.Cursor}
}

func listParamsFromQuery(r *http.Request) (ordersvc.ListParams, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultPageSize, 1, pagination.MaxPageSize)
	if err != nil {
		return ordersvc.ListParams{}, err
	}
	return ordersvc.ListParams{
		Limit:  limit,
		Cursor: validators.QueryString(r, "cursor", ""),
	}, nil
}

func orderIDFromPath(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "orderId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return id, nil
}
