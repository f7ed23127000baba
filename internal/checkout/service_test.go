package checkout

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/trendora-shop/trendora-backend/pkg/db/models"
	pkgerrors "github.com/trendora-shop/trendora-backend/pkg/errors"
	"github.com/trendora-shop/trendora-backend/pkg/types"
)

func setupCheckoutTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:checkout_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := []string{
		`CREATE TABLE IF NOT EXISTS checkout_sessions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  lines TEXT,
  shipping_address TEXT,
  payment_method TEXT NOT NULL DEFAULT '',
  total_price NUMERIC NOT NULL,
  payment_status TEXT NOT NULL DEFAULT 'pending',
  is_paid INTEGER NOT NULL DEFAULT 0,
  payment_details TEXT,
  paid_at DATETIME,
  is_finalized INTEGER NOT NULL DEFAULT 0,
  finalized_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  checkout_session_id TEXT NOT NULL,
  lines TEXT,
  shipping_address TEXT,
  payment_method TEXT NOT NULL DEFAULT '',
  total_price NUMERIC NOT NULL,
  is_paid INTEGER NOT NULL DEFAULT 1,
  paid_at DATETIME,
  is_delivered INTEGER NOT NULL DEFAULT 0,
  delivered_at DATETIME,
  status TEXT NOT NULL DEFAULT 'Processing',
  payment_status TEXT NOT NULL DEFAULT 'paid',
  payment_details TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_checkout_session_id ON orders (checkout_session_id);`,
	}
	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type stubCartCleaner struct {
	calls int
	err   error
}

func (s *stubCartCleaner) DeleteForUser(context.Context, uuid.UUID) error {
	s.calls++
	return s.err
}

func newCheckoutTestService(t *testing.T, db *gorm.DB, cleaner *stubCartCleaner) Service {
	t.Helper()
	if cleaner == nil {
		cleaner = &stubCartCleaner{}
	}
	svc, err := NewService(NewRepository(db), gormTxRunner{db: db}, cleaner, nil)
	require.NoError(t, err)
	return svc
}

func checkoutLines() []models.LineSnapshot {
	return []models.LineSnapshot{
		{
			ProductID: uuid.New(),
			Name:      "Oxford Shirt",
			UnitPrice: decimal.RequireFromString("500.00"),
			Size:      "M",
			Colour:    "Red",
			Quantity:  2,
		},
	}
}

func countOrders(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	return count
}

func TestCreateRejectsEmptyLines(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutTestService(t, db, nil)

	_, err := svc.Create(context.Background(), uuid.New(), CreateInput{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Contains(t, err.Error(), "no checkout items provided")
}

func TestCreateStartsPendingAndDerivesTotal(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutTestService(t, db, nil)
	userID := uuid.New()

	session, err := svc.Create(context.Background(), userID, CreateInput{Lines: checkoutLines()})
	require.NoError(t, err)
	assert.False(t, session.IsPaid)
	assert.False(t, session.IsFinalized)
	assert.True(t, session.TotalPrice.Equal(decimal.RequireFromString("1000")))

	loaded, err := svc.Get(context.Background(), session.ID, userID)
	require.NoError(t, err)
	require.Len(t, loaded.Lines, 1)
	assert.Equal(t, 2, loaded.Lines[0].Quantity)
}

func TestCreateCopiesLinesByValue(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutTestService(t, db, nil)
	userID := uuid.New()

	lines := checkoutLines()
	session, err := svc.Create(context.Background(), userID, CreateInput{Lines: lines})
	require.NoError(t, err)

	lines[0].Quantity = 99
	loaded, err := svc.Get(context.Background(), session.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Lines[0].Quantity)
}

func TestMarkPaidTransitionsOnce(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutTestService(t, db, nil)
	userID := uuid.New()

	session, err := svc.Create(context.Background(), userID, CreateInput{Lines: checkoutLines()})
	require.NoError(t, err)

	paid, err := svc.MarkPaid(context.Background(), session.ID, userID, types.JSONMap{"payment_id": "pay_first"})
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)
	assert.Equal(t, "paid", paid.PaymentStatus.String())
	require.NotNil(t, paid.PaidAt)
	assert.Equal(t, "pay_first", paid.PaymentDetails["payment_id"])

	_, err = svc.MarkPaid(context.Background(), session.ID, userID, types.JSONMap{"payment_id": "pay_second"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	// the losing confirmation must not overwrite the first one
	loaded, err := svc.Get(context.Background(), session.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, "pay_first", loaded.PaymentDetails["payment_id"])
	assert.Equal(t, paid.PaidAt.Unix(), loaded.PaidAt.Unix())
}

func TestMarkPaidUnknownSessionIsNotFound(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutTestService(t, db, nil)

	_, err := svc.MarkPaid(context.Background(), uuid.New(), uuid.New(), nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestMarkPaidIsScopedToOwner(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutTestService(t, db, nil)
	userID := uuid.New()

	session, err := svc.Create(context.Background(), userID, CreateInput{Lines: checkoutLines()})
	require.NoError(t, err)

	_, err = svc.MarkPaid(context.Background(), session.ID, uuid.New(), nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestFinalizeBeforePaymentFails(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutTestService(t, db, nil)
	userID := uuid.New()

	session, err := svc.Create(context.Background(), userID, CreateInput{Lines: checkoutLines()})
	require.NoError(t, err)

	_, err = svc.Finalize(context.Background(), session.ID, userID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePrecondition))
	assert.Contains(t, err.Error(), "payment not completed")
	assert.EqualValues(t, 0, countOrders(t, db))
}

func TestFinalizeCreatesOneOrderAndCleansCart(t *testing.T) {
	db := setupCheckoutTestDB(t)
	cleaner := &stubCartCleaner{}
	svc := newCheckoutTestService(t, db, cleaner)
	userID := uuid.New()

	session, err := svc.Create(context.Background(), userID, CreateInput{Lines: checkoutLines()})
	require.NoError(t, err)
	_, err = svc.MarkPaid(context.Background(), session.ID, userID, types.JSONMap{"payment_id": "pay_1"})
	require.NoError(t, err)

	order, err := svc.Finalize(context.Background(), session.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, order.CheckoutSessionID)
	assert.Equal(t, userID, order.UserID)
	assert.True(t, order.IsPaid)
	assert.True(t, order.TotalPrice.Equal(decimal.RequireFromString("1000")))
	require.Len(t, order.Lines, 1)
	assert.Equal(t, 1, cleaner.calls)
	assert.EqualValues(t, 1, countOrders(t, db))

	loaded, err := svc.Get(context.Background(), session.ID, userID)
	require.NoError(t, err)
	assert.True(t, loaded.IsFinalized)
	require.NotNil(t, loaded.FinalizedAt)
}

func TestFinalizeIsNotRepeatable(t *testing.T) {
	db := setupCheckoutTestDB(t)
	svc := newCheckoutTestService(t, db, nil)
	userID := uuid.New()

	session, err := svc.Create(context.Background(), userID, CreateInput{Lines: checkoutLines()})
	require.NoError(t, err)
	_, err = svc.MarkPaid(context.Background(), session.ID, userID, nil)
	require.NoError(t, err)
	_, err = svc.Finalize(context.Background(), session.ID, userID)
	require.NoError(t, err)

	_, err = svc.Finalize(context.Background(), session.ID, userID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.EqualValues(t, 1, countOrders(t, db))
}

func TestFinalizeSurvivesCartCleanupFailure(t *testing.T) {
	db := setupCheckoutTestDB(t)
	cleaner := &stubCartCleaner{err: fmt.Errorf("cart store down")}
	svc := newCheckoutTestService(t, db, cleaner)
	userID := uuid.New()

	session, err := svc.Create(context.Background(), userID, CreateInput{Lines: checkoutLines()})
	require.NoError(t, err)
	_, err = svc.MarkPaid(context.Background(), session.ID, userID, nil)
	require.NoError(t, err)

	order, err := svc.Finalize(context.Background(), session.ID, userID)
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, 1, cleaner.calls)
	assert.EqualValues(t, 1, countOrders(t, db))
}
