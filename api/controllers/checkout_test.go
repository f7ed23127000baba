package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trendora-shop/trendora-backend/api/middleware"
	checkoutsvc "github.com/trendora-shop/trendora-backend/internal/checkout"
	"github.com/trendora-shop/trendora-backend/pkg/db/models"
	"github.com/trendora-shop/trendora-backend/pkg/enums"
	pkgerrors "github.com/trendora-shop/trendora-backend/pkg/errors"
	"github.com/trendora-shop/trendora-backend/pkg/razorpay"
	"github.com/trendora-shop/trendora-backend/pkg/types"
)

type stubCheckoutService struct {
	session     *models.CheckoutSession
	order       *models.Order
	err         error
	lastUserID  uuid.UUID
	lastInput   checkoutsvc.CreateInput
	lastDetails types.JSONMap
}

func (s *stubCheckoutService) Create(_ context.Context, userID uuid.UUID, input checkoutsvc.CreateInput) (*models.CheckoutSession, error) {
	s.lastUserID = userID
	s.lastInput = input
	return s.session, s.err
}

func (s *stubCheckoutService) Get(_ context.Context, _, _ uuid.UUID) (*models.CheckoutSession, error) {
	return s.session, s.err
}

func (s *stubCheckoutService) MarkPaid(_ context.Context, _, userID uuid.UUID, details types.JSONMap) (*models.CheckoutSession, error) {
	s.lastUserID = userID
	s.lastDetails = details
	return s.session, s.err
}

func (s *stubCheckoutService) Finalize(_ context.Context, _, userID uuid.UUID) (*models.Order, error) {
	s.lastUserID = userID
	return s.order, s.err
}

type stubGateway struct {
	order      *razorpay.Order
	err        error
	lastAmount decimal.Decimal
}

func (s *stubGateway) CreateOrder(_ context.Context, amount decimal.Decimal, _ string) (*razorpay.Order, error) {
	s.lastAmount = amount
	return s.order, s.err
}

func sampleSession(userID uuid.UUID) *models.CheckoutSession {
	return &models.CheckoutSession{
		ID:            uuid.New(),
		UserID:        userID,
		TotalPrice:    decimal.RequireFromString("1000"),
		PaymentStatus: enums.PaymentStatusPending,
		Lines: []models.LineSnapshot{
			{ProductID: uuid.New(), Name: "Oxford Shirt", UnitPrice: decimal.RequireFromString("500"), Quantity: 2},
		},
	}
}

func authedRequest(method, target, body string, userID uuid.UUID) *http.Request {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func withCheckoutID(req *http.Request, checkoutID string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add("checkoutId", checkoutID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestCheckoutCreateSuccess(t *testing.T) {
	userID := uuid.New()
	svc := &stubCheckoutService{session: sampleSession(userID)}
	handler := CheckoutCreate(svc, nil)

	body := `{"checkoutItems":[{"productId":"` + uuid.NewString() + `","name":"Oxford Shirt","price":"500","quantity":2}],"paymentMethod":"razorpay","totalPrice":"1000"}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/checkout", body, userID))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastUserID != userID {
		t.Fatalf("expected user id to flow through, got %s", svc.lastUserID)
	}
	if len(svc.lastInput.Lines) != 1 || svc.lastInput.Lines[0].Quantity != 2 {
		t.Fatalf("unexpected input %+v", svc.lastInput)
	}
}

func TestCheckoutCreateRequiresAuth(t *testing.T) {
	handler := CheckoutCreate(&stubCheckoutService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(`{"checkoutItems":[]}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCheckoutPayRequiresPaidStatus(t *testing.T) {
	userID := uuid.New()
	svc := &stubCheckoutService{session: sampleSession(userID)}
	handler := CheckoutPay(svc, nil)

	req := withCheckoutID(authedRequest(http.MethodPut, "/api/checkout/abc/pay", `{"paymentStatus":"failed"}`, userID), uuid.NewString())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCheckoutPayPassesDetailsThrough(t *testing.T) {
	userID := uuid.New()
	svc := &stubCheckoutService{session: sampleSession(userID)}
	handler := CheckoutPay(svc, nil)

	body := `{"paymentStatus":"paid","paymentDetails":{"razorpay_payment_id":"pay_123"}}`
	req := withCheckoutID(authedRequest(http.MethodPut, "/api/checkout/abc/pay", body, userID), uuid.NewString())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastDetails["razorpay_payment_id"] != "pay_123" {
		t.Fatalf("payment details should pass through opaque, got %+v", svc.lastDetails)
	}
}

func TestCheckoutPayConflictPassthrough(t *testing.T) {
	userID := uuid.New()
	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodeConflict, "checkout already marked as paid")}
	handler := CheckoutPay(svc, nil)

	req := withCheckoutID(authedRequest(http.MethodPut, "/api/checkout/abc/pay", `{"paymentStatus":"paid"}`, userID), uuid.NewString())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestCheckoutFinalizeReturnsOrder(t *testing.T) {
	userID := uuid.New()
	order := &models.Order{
		ID:                uuid.New(),
		UserID:            userID,
		CheckoutSessionID: uuid.New(),
		TotalPrice:        decimal.RequireFromString("1000"),
		IsPaid:            true,
		Status:            enums.OrderStatusProcessing,
	}
	svc := &stubCheckoutService{order: order}
	handler := CheckoutFinalize(svc, nil)

	req := withCheckoutID(authedRequest(http.MethodPost, "/api/checkout/abc/finalize", "", userID), order.CheckoutSessionID.String())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data orderResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != order.ID {
		t.Fatalf("unexpected order id %s", envelope.Data.ID)
	}
}

func TestCheckoutFinalizePreconditionPassthrough(t *testing.T) {
	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodePrecondition, "payment not completed")}
	handler := CheckoutFinalize(svc, nil)

	req := withCheckoutID(authedRequest(http.MethodPost, "/api/checkout/abc/finalize", "", uuid.New()), uuid.NewString())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusPreconditionFailed {
		t.Fatalf("expected 412 got %d", resp.Code)
	}
}

func TestCheckoutRazorpayOrder(t *testing.T) {
	gateway := &stubGateway{order: &razorpay.Order{ID: "order_123", Amount: 149950, Currency: "INR"}}
	handler := CheckoutRazorpayOrder(gateway, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/checkout/razorpay/order", `{"amount":"1499.50"}`, uuid.New()))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if !gateway.lastAmount.Equal(decimal.RequireFromString("1499.50")) {
		t.Fatalf("unexpected amount %s", gateway.lastAmount)
	}
}

func TestCheckoutRazorpayOrderGatewayFailure(t *testing.T) {
	gateway := &stubGateway{err: pkgerrors.New(pkgerrors.CodeGateway, "payment gateway unavailable")}
	handler := CheckoutRazorpayOrder(gateway, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/checkout/razorpay/order", `{"amount":"100"}`, uuid.New()))

	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 got %d", resp.Code)
	}
}
