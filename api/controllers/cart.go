package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trendora-shop/trendora-backend/api/middleware"
	"github.com/trendora-shop/trendora-backend/api/responses"
	"github.com/trendora-shop/trendora-backend/api/validators"
	cartsvc "github.com/trendora-shop/trendora-backend/internal/cart"
	"github.com/trendora-shop/trendora-backend/pkg/db/models"
	pkgerrors "github.com/trendora-shop/trendora-backend/pkg/errors"
	"github.com/trendora-shop/trendora-backend/pkg/logger"
)

// CartGet returns the caller's cart. An authenticated user's identity always
// wins over a guestId query parameter.
func CartGet(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := ownerFromRequest(r, r.URL.Query().Get("guestId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Get(r.Context(), owner)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if record == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found"))
			return
		}

		responses.WriteSuccess(w, newCartResponse(record))
	}
}

// CartAddLine appends or increments a cart line.
func CartAddLine(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload cartLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		owner, err := ownerFromRequest(r, payload.GuestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.AddLine(r.Context(), owner, cartsvc.AddLineInput{
			ProductID: payload.ProductID,
			Quantity:  payload.Quantity,
			Size:      payload.Size,
			Colour:    payload.Colour,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCartResponse(record))
	}
}

// CartSetLineQuantity overwrites a line's quantity; zero or negative removes it.
func CartSetLineQuantity(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload cartLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		owner, err := ownerFromRequest(r, payload.GuestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.SetLineQuantity(r.Context(), owner, cartsvc.LineKey{
			ProductID: payload.ProductID,
			Size:      payload.Size,
			Colour:    payload.Colour,
		}, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartResponse(record))
	}
}

// CartRemoveLine drops a line from the cart.
func CartRemoveLine(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload cartLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		owner, err := ownerFromRequest(r, payload.GuestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.RemoveLine(r.Context(), owner, cartsvc.LineKey{
			ProductID: payload.ProductID,
			Size:      payload.Size,
			Colour:    payload.Colour,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartResponse(record))
	}
}

// CartMerge folds the caller's guest cart into their user cart after login.
func CartMerge(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cartMergeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.MergeGuestIntoUser(r.Context(), payload.GuestID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartResponse(record))
	}
}

type cartLineRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity"`
	Size      string    `json:"size"`
	Colour    string    `json:"colour"`
	GuestID   string    `json:"guestId,omitempty"`
}

type cartMergeRequest struct {
	GuestID string `json:"guestId" validate:"required"`
}

type cartLineResponse struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"image"`
	UnitPrice decimal.Decimal `json:"price"`
	Size      string          `json:"size"`
	Colour    string          `json:"colour"`
	Quantity  int             `json:"quantity"`
}

type cartResponse struct {
	ID         uuid.UUID          `json:"id"`
	UserID     *uuid.UUID         `json:"userId,omitempty"`
	GuestID    *string            `json:"guestId,omitempty"`
	Lines      []cartLineResponse `json:"products"`
	TotalPrice decimal.Decimal    `json:"totalPrice"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

func newCartResponse(record *models.Cart) cartResponse {
	lines := make([]cartLineResponse, 0, len(record.Lines))
	for _, line := range record.Lines {
		lines = append(lines, cartLineResponse{
			ProductID: line.ProductID,
			Name:      line.Name,
			ImageURL:  line.ImageURL,
			UnitPrice: line.UnitPrice,
			Size:      line.Size,
			Colour:    line.Colour,
			Quantity:  line.Quantity,
		})
	}
	return cartResponse{
		ID:         record.ID,
		UserID:     record.UserID,
		GuestID:    record.GuestID,
		Lines:      lines,
		TotalPrice: record.TotalPrice,
		CreatedAt:  record.CreatedAt,
		UpdatedAt:  record.UpdatedAt,
	}
}

// ownerFromRequest resolves the cart identity: the authenticated user when
// present, otherwise the supplied guest token.
func ownerFromRequest(r *http.Request, guestID string) (cartsvc.Owner, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		owner := cartsvc.GuestOwner(guestID)
		if !owner.Valid() {
			return cartsvc.Owner{}, pkgerrors.New(pkgerrors.CodeValidation, "a user or guest identity is required")
		}
		return owner, nil
	}

	userID, err := uuid.Parse(raw)
	if err != nil {
		return cartsvc.Owner{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return cartsvc.Resolve(&userID, guestID), nil
}

func requireUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return userID, nil
}
