package cart

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
)

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:cart_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := []string{
		`CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  user_id TEXT,
  guest_id TEXT,
  total_price NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_carts_user_id ON carts (user_id) WHERE user_id IS NOT NULL;`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_carts_guest_id ON carts (guest_id) WHERE guest_id IS NOT NULL;`,
		`CREATE TABLE IF NOT EXISTS cart_lines (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  image_url TEXT NOT NULL DEFAULT '',
  unit_price NUMERIC NOT NULL,
  size TEXT NOT NULL DEFAULT '',
  colour TEXT NOT NULL DEFAULT '',
  quantity INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_cart_lines_identity ON cart_lines (cart_id, product_id, size, colour);`,
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

type fakeProductLoader struct {
	products map[uuid.UUID]*models.Product
}

func (f fakeProductLoader) GetByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	if p, ok := f.products[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func newCartTestService(t *testing.T, db *gorm.DB, products ...*models.Product) Service {
	t.Helper()
	loader := fakeProductLoader{products: map[uuid.UUID]*models.Product{}}
	for _, p := range products {
		loader.products[p.ID] = p
	}
	svc, err := NewService(NewRepository(db), gormTxRunner{db: db}, loader, nil)
	require.NoError(t, err)
	return svc
}

func testProduct(price string) *models.Product {
	return &models.Product{
		ID:    uuid.New(),
		Name:  "Oxford Shirt",
		Price: decimal.RequireFromString(price),
	}
}

func TestGetReturnsNilForMissingCart(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartTestService(t, db)

	cart, err := svc.Get(context.Background(), GuestOwner("guest-1"))
	require.NoError(t, err)
	assert.Nil(t, cart)
}

func TestAddLineCreatesCartAndSnapshotsPrice(t *testing.T) {
	db := setupCartTestDB(t)
	product := testProduct("500.00")
	svc := newCartTestService(t, db, product)
	owner := GuestOwner("guest-1")

	cart, err := svc.AddLine(context.Background(), owner, AddLineInput{
		ProductID: product.ID,
		Quantity:  2,
		Size:      "M",
		Colour:    "Red",
	})
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 2, cart.Lines[0].Quantity)
	assert.True(t, cart.Lines[0].UnitPrice.Equal(decimal.RequireFromString("500.00")))
	assert.True(t, cart.TotalPrice.Equal(decimal.RequireFromString("1000")), "total %s", cart.TotalPrice)

	// catalog price change never touches the snapshot
	product.Price = decimal.RequireFromString("999.00")
	got, err := svc.Get(context.Background(), owner)
	require.NoError(t, err)
	assert.True(t, got.Lines[0].UnitPrice.Equal(decimal.RequireFromString("500.00")))
}

func TestAddLineIncrementsMatchingTriple(t *testing.T) {
	db := setupCartTestDB(t)
	product := testProduct("500.00")
	svc := newCartTestService(t, db, product)
	owner := GuestOwner("guest-1")

	_, err := svc.AddLine(context.Background(), owner, AddLineInput{ProductID: product.ID, Quantity: 1, Size: "M", Colour: "Red"})
	require.NoError(t, err)
	cart, err := svc.AddLine(context.Background(), owner, AddLineInput{ProductID: product.ID, Quantity: 3, Size: "M", Colour: "Red"})
	require.NoError(t, err)

	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 4, cart.Lines[0].Quantity)
	assert.True(t, cart.TotalPrice.Equal(decimal.RequireFromString("2000")))
}

func TestAddLineKeepsVariantsDistinct(t *testing.T) {
	db := setupCartTestDB(t)
	product := testProduct("500.00")
	svc := newCartTestService(t, db, product)
	owner := GuestOwner("guest-1")

	_, err := svc.AddLine(context.Background(), owner, AddLineInput{ProductID: product.ID, Quantity: 1, Size: "M", Colour: "Red"})
	require.NoError(t, err)
	cart, err := svc.AddLine(context.Background(), owner, AddLineInput{ProductID: product.ID, Quantity: 1, Size: "M", Colour: "Blue"})
	require.NoError(t, err)

	require.Len(t, cart.Lines, 2)
	assert.True(t, cart.TotalPrice.Equal(decimal.RequireFromString("1000")))
}

func TestAddLineUnknownProduct(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartTestService(t, db)

	_, err := svc.AddLine(context.Background(), GuestOwner("guest-1"), AddLineInput{ProductID: uuid.New(), Quantity: 1})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestSetLineQuantityUpdatesAndRecomputes(t *testing.T) {
	db := setupCartTestDB(t)
	product := testProduct("250.00")
	svc := newCartTestService(t, db, product)
	owner := GuestOwner("guest-1")

	_, err := svc.AddLine(context.Background(), owner, AddLineInput{ProductID: product.ID, Quantity: 2, Size: "L", Colour: "Black"})
	require.NoError(t, err)

	cart, err := svc.SetLineQuantity(context.Background(), owner, LineKey{ProductID: product.ID, Size: "L", Colour: "Black"}, 5)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 5, cart.Lines[0].Quantity)
	assert.True(t, cart.TotalPrice.Equal(decimal.RequireFromString("1250")))
}

func TestSetLineQuantityZeroRemovesLine(t *testing.T) {
	db := setupCartTestDB(t)
	product := testProduct("250.00")
	svc := newCartTestService(t, db, product)
	owner := GuestOwner("guest-1")

	_, err := svc.AddLine(context.Background(), owner, AddLineInput{ProductID: product.ID, Quantity: 2, Size: "L", Colour: "Black"})
	require.NoError(t, err)

	for _, qty := range []int{0, -3} {
		cart, err := svc.SetLineQuantity(context.Background(), owner, LineKey{ProductID: product.ID, Size: "L", Colour: "Black"}, qty)
		if qty == 0 {
			require.NoError(t, err)
			assert.Empty(t, cart.Lines)
			assert.True(t, cart.TotalPrice.IsZero())
		} else {
			// line already gone from the first pass
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
		}
	}
}

func TestSetLineQuantityMissingLineIsNotFound(t *testing.T) {
	db := setupCartTestDB(t)
	product := testProduct("250.00")
	svc := newCartTestService(t, db, product)
	owner := GuestOwner("guest-1")

	_, err := svc.AddLine(context.Background(), owner, AddLineInput{ProductID: product.ID, Quantity: 1, Size: "M", Colour: "Red"})
	require.NoError(t, err)

	_, err = svc.SetLineQuantity(context.Background(), owner, LineKey{ProductID: product.ID, Size: "XL", Colour: "Red"}, 2)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRemoveLineMissingCartIsNotFound(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartTestService(t, db)

	_, err := svc.RemoveLine(context.Background(), GuestOwner("guest-1"), LineKey{ProductID: uuid.New()})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestMergeReassignsOwnerWhenUserHasNoCart(t *testing.T) {
	db := setupCartTestDB(t)
	product := testProduct("500.00")
	svc := newCartTestService(t, db, product)
	userID := uuid.New()

	guestCart, err := svc.AddLine(context.Background(), GuestOwner("guest-1"), AddLineInput{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)

	merged, err := svc.MergeGuestIntoUser(context.Background(), "guest-1", userID)
	require.NoError(t, err)
	assert.Equal(t, guestCart.ID, merged.ID, "re-owned, not recreated")
	require.NotNil(t, merged.UserID)
	assert.Equal(t, userID, *merged.UserID)
	assert.Nil(t, merged.GuestID)
	assert.True(t, merged.TotalPrice.Equal(decimal.RequireFromString("1000")))

	// guest lookup no longer resolves
	gone, err := svc.Get(context.Background(), GuestOwner("guest-1"))
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestMergeCombinesLinesIntoExistingUserCart(t *testing.T) {
	db := setupCartTestDB(t)
	shirt := testProduct("500.00")
	jeans := testProduct("1200.00")
	svc := newCartTestService(t, db, shirt, jeans)
	userID := uuid.New()

	_, err := svc.AddLine(context.Background(), UserOwner(userID), AddLineInput{ProductID: shirt.ID, Quantity: 1, Size: "M", Colour: "Red"})
	require.NoError(t, err)

	_, err = svc.AddLine(context.Background(), GuestOwner("guest-1"), AddLineInput{ProductID: shirt.ID, Quantity: 2, Size: "M", Colour: "Red"})
	require.NoError(t, err)
	_, err = svc.AddLine(context.Background(), GuestOwner("guest-1"), AddLineInput{ProductID: jeans.ID, Quantity: 1, Size: "32", Colour: "Indigo"})
	require.NoError(t, err)

	merged, err := svc.MergeGuestIntoUser(context.Background(), "guest-1", userID)
	require.NoError(t, err)
	require.Len(t, merged.Lines, 2)

	var shirtQty int
	for _, line := range merged.Lines {
		if line.Matches(shirt.ID, "M", "Red") {
			shirtQty = line.Quantity
		}
	}
	assert.Equal(t, 3, shirtQty)
	assert.True(t, merged.TotalPrice.Equal(decimal.RequireFromString("2700")))
}

func TestMergeIsAtMostOnce(t *testing.T) {
	db := setupCartTestDB(t)
	product := testProduct("500.00")
	svc := newCartTestService(t, db, product)
	userID := uuid.New()

	_, err := svc.AddLine(context.Background(), GuestOwner("guest-1"), AddLineInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = svc.MergeGuestIntoUser(context.Background(), "guest-1", userID)
	require.NoError(t, err)

	_, err = svc.MergeGuestIntoUser(context.Background(), "guest-1", userID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDeleteForUserIsIdempotent(t *testing.T) {
	db := setupCartTestDB(t)
	product := testProduct("500.00")
	svc := newCartTestService(t, db, product)
	userID := uuid.New()

	_, err := svc.AddLine(context.Background(), UserOwner(userID), AddLineInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteForUser(context.Background(), userID))
	require.NoError(t, svc.DeleteForUser(context.Background(), userID))

	cart, err := svc.Get(context.Background(), UserOwner(userID))
	require.NoError(t, err)
	assert.Nil(t, cart)
}
