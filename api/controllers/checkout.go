package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trendora-shop/trendora-backend/api/responses"
	"github.com/trendora-shop/trendora-backend/api/validators"
	checkoutsvc "github.com/trendora-shop/trendora-backend/internal/checkout"
	"github.com/trendora-shop/trendora-backend/pkg/db/models"
	"github.com/trendora-shop/trendora-backend/pkg/enums"
	pkgerrors "github.com/trendora-shop/trendora-backend/pkg/errors"
	"github.com/trendora-shop/trendora-backend/pkg/logger"
	"github.com/trendora-shop/trendora-backend/pkg/razorpay"
	"github.com/trendora-shop/trendora-backend/pkg/types"
)

// paymentIntentCreator is the slice of the gateway client the checkout
// surface needs.
type paymentIntentCreator interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string) (*razorpay.Order, error)
}

// CheckoutCreate opens a Pending session from the caller's cart contents.
func CheckoutCreate(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Create(r.Context(), userID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCheckoutResponse(session))
	}
}

// CheckoutRazorpayOrder creates a payment intent at the gateway for the
// given amount in major units.
func CheckoutRazorpayOrder(gateway paymentIntentCreator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := requireUserID(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload razorpayOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := gateway.CreateOrder(r.Context(), payload.Amount, razorpay.NewReceipt())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// CheckoutGet returns one of the caller's checkout sessions.
func CheckoutGet(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		checkoutID, err := checkoutIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Get(r.Context(), checkoutID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCheckoutResponse(session))
	}
}

// CheckoutPay marks a session paid with the gateway's confirmation payload.
func CheckoutPay(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		checkoutID, err := checkoutIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutPayRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !strings.EqualFold(payload.PaymentStatus, enums.PaymentStatusPaid.String()) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payment status must be paid"))
			return
		}

		session, err := svc.MarkPaid(r.Context(), checkoutID, userID, payload.PaymentDetails)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCheckoutResponse(session))
	}
}

// CheckoutFinalize turns a paid session into an order.
func CheckoutFinalize(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		checkoutID, err := checkoutIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Finalize(r.Context(), checkoutID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}

type checkoutItemPayload struct {
	ProductID uuid.UUID       `json:"productId" validate:"required"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"image"`
	UnitPrice decimal.Decimal `json:"price"`
	Size      string          `json:"size"`
	Colour    string          `json:"colour"`
	Quantity  int             `json:"quantity" validate:"required,min=1"`
}

type checkoutCreateRequest struct {
	CheckoutItems   []checkoutItemPayload `json:"checkoutItems" validate:"required,dive"`
	ShippingAddress *types.Address        `json:"shippingAddress,omitempty"`
	PaymentMethod   string                `json:"paymentMethod"`
	TotalPrice      decimal.Decimal       `json:"totalPrice"`
}

func (r checkoutCreateRequest) toInput() checkoutsvc.CreateInput {
	lines := make([]models.LineSnapshot, 0, len(r.CheckoutItems))
	for _, item := range r.CheckoutItems {
		lines = append(lines, models.LineSnapshot{
			ProductID: item.ProductID,
			Name:      item.Name,
			ImageURL:  item.ImageURL,
			UnitPrice: item.UnitPrice,
			Size:      item.Size,
			Colour:    item.Colour,
			Quantity:  item.Quantity,
		})
	}
	return checkoutsvc.CreateInput{
		Lines:           lines,
		ShippingAddress: r.ShippingAddress,
		PaymentMethod:   r.PaymentMethod,
		TotalPrice:      r.TotalPrice,
	}
}

type razorpayOrderRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

type checkoutPayRequest struct {
	PaymentStatus  string        `json:"paymentStatus" validate:"required"`
	PaymentDetails types.JSONMap `json:"paymentDetails,omitempty"`
}

type checkoutResponse struct {
	ID              uuid.UUID             `json:"id"`
	UserID          uuid.UUID             `json:"userId"`
	Lines           []models.LineSnapshot `json:"checkoutItems"`
	ShippingAddress *types.Address        `json:"shippingAddress,omitempty"`
	PaymentMethod   string                `json:"paymentMethod"`
	TotalPrice      decimal.Decimal       `json:"totalPrice"`
	PaymentStatus   string                `json:"paymentStatus"`
	IsPaid          bool                  `json:"isPaid"`
	PaidAt          *time.Time            `json:"paidAt,omitempty"`
	IsFinalized     bool                  `json:"isFinalized"`
	FinalizedAt     *time.Time            `json:"finalizedAt,omitempty"`
	CreatedAt       time.Time             `json:"createdAt"`
}

func newCheckoutResponse(session *models.CheckoutSession) checkoutResponse {
	return checkoutResponse{
		ID:              session.ID,
		UserID:          session.UserID,
		Lines:           session.Lines,
		ShippingAddress: session.ShippingAddress,
		PaymentMethod:   session.PaymentMethod,
		TotalPrice:      session.TotalPrice,
		PaymentStatus:   session.PaymentStatus.String(),
		IsPaid:          session.IsPaid,
		PaidAt:          session.PaidAt,
		IsFinalized:     session.IsFinalized,
		FinalizedAt:     session.FinalizedAt,
		CreatedAt:       session.CreatedAt,
	}
}

func checkoutIDFromPath(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "checkoutId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid checkout id")
	}
	return id, nil
}
