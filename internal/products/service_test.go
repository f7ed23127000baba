package products

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/trendora-shop/trendora-backend/pkg/db/models"
	"github.com/trendora-shop/trendora-backend/pkg/enums"
	pkgerrors "github.com/trendora-shop/trendora-backend/pkg/errors"
)

func setupProductsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:products_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := []string{
		`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  price NUMERIC NOT NULL,
  discounted_price NUMERIC,
  count_in_stock INTEGER NOT NULL DEFAULT 0,
  sku TEXT NOT NULL DEFAULT '',
  category TEXT NOT NULL DEFAULT '',
  brand TEXT NOT NULL DEFAULT '',
  sizes TEXT,
  colours TEXT,
  collections TEXT NOT NULL DEFAULT '',
  material TEXT NOT NULL DEFAULT '',
  gender TEXT NOT NULL DEFAULT 'Unisex',
  images TEXT,
  is_featured INTEGER NOT NULL DEFAULT 0,
  is_published INTEGER NOT NULL DEFAULT 0,
  rating REAL NOT NULL DEFAULT 0,
  num_reviews INTEGER NOT NULL DEFAULT 0,
  tags TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_products_sku ON products (sku) WHERE sku <> '';`,
	}
	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newProductsTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

type seedSpec struct {
	name      string
	price     string
	category  string
	brand     string
	gender    enums.Gender
	rating    float64
	createdAt time.Time
}

func seedProduct(t *testing.T, db *gorm.DB, spec seedSpec) *models.Product {
	t.Helper()
	gender := spec.gender
	if gender == "" {
		gender = enums.GenderUnisex
	}
	product := &models.Product{
		Name:        spec.name,
		Description: spec.name + " description",
		Price:       decimal.RequireFromString(spec.price),
		Category:    spec.category,
		Brand:       spec.brand,
		Gender:      gender,
		Rating:      spec.rating,
		CreatedAt:   spec.createdAt,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func TestListFiltersAndSorts(t *testing.T) {
	db := setupProductsTestDB(t)
	svc := newProductsTestService(t, db)
	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	seedProduct(t, db, seedSpec{name: "Oxford Shirt", price: "500", category: "Shirts", brand: "Trendora", createdAt: base})
	seedProduct(t, db, seedSpec{name: "Linen Shirt", price: "700", category: "Shirts", brand: "Aria", createdAt: base.Add(time.Hour)})
	seedProduct(t, db, seedSpec{name: "Denim Jeans", price: "1200", category: "Jeans", brand: "Trendora", createdAt: base.Add(2 * time.Hour)})

	shirts, err := svc.List(context.Background(), ListFilters{Category: "Shirts", SortBy: SortPriceAsc})
	require.NoError(t, err)
	require.Len(t, shirts, 2)
	assert.Equal(t, "Oxford Shirt", shirts[0].Name)
	assert.Equal(t, "Linen Shirt", shirts[1].Name)

	// "all" disables the filter
	all, err := svc.List(context.Background(), ListFilters{Category: "All"})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	branded, err := svc.List(context.Background(), ListFilters{Brands: []string{"Trendora"}})
	require.NoError(t, err)
	assert.Len(t, branded, 2)

	min := decimal.RequireFromString("600")
	max := decimal.RequireFromString("1000")
	ranged, err := svc.List(context.Background(), ListFilters{MinPrice: &min, MaxPrice: &max})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, "Linen Shirt", ranged[0].Name)

	searched, err := svc.List(context.Background(), ListFilters{Search: "Denim"})
	require.NoError(t, err)
	require.Len(t, searched, 1)
	assert.Equal(t, "Denim Jeans", searched[0].Name)

	limited, err := svc.List(context.Background(), ListFilters{Limit: 1, SortBy: SortPriceDesc})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "Denim Jeans", limited[0].Name)
}

func TestListRejectsInvalidGender(t *testing.T) {
	db := setupProductsTestDB(t)
	svc := newProductsTestService(t, db)

	_, err := svc.List(context.Background(), ListFilters{Gender: enums.Gender("Robots")})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetByIDUnknownIsNotFound(t *testing.T) {
	db := setupProductsTestDB(t)
	svc := newProductsTestService(t, db)

	_, err := svc.GetByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestBestSellersOrderByRating(t *testing.T) {
	db := setupProductsTestDB(t)
	svc := newProductsTestService(t, db)
	now := time.Now().UTC()

	seedProduct(t, db, seedSpec{name: "Middling", price: "100", rating: 3.1, createdAt: now})
	seedProduct(t, db, seedSpec{name: "Favourite", price: "100", rating: 4.9, createdAt: now})

	best, err := svc.BestSellers(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, best, 2)
	assert.Equal(t, "Favourite", best[0].Name)
}

func TestNewArrivalsNewestFirst(t *testing.T) {
	db := setupProductsTestDB(t)
	svc := newProductsTestService(t, db)
	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	seedProduct(t, db, seedSpec{name: "Old", price: "100", createdAt: base})
	seedProduct(t, db, seedSpec{name: "New", price: "100", createdAt: base.Add(time.Hour)})

	arrivals, err := svc.NewArrivals(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, arrivals, 2)
	assert.Equal(t, "New", arrivals[0].Name)
}

func TestSimilarExcludesSelf(t *testing.T) {
	db := setupProductsTestDB(t)
	svc := newProductsTestService(t, db)
	now := time.Now().UTC()

	anchor := seedProduct(t, db, seedSpec{name: "Oxford Shirt", price: "500", category: "Shirts", gender: enums.GenderMen, createdAt: now})
	seedProduct(t, db, seedSpec{name: "Linen Shirt", price: "700", category: "Shirts", gender: enums.GenderMen, createdAt: now})
	seedProduct(t, db, seedSpec{name: "Denim Jeans", price: "1200", category: "Jeans", gender: enums.GenderMen, createdAt: now})

	similar, err := svc.Similar(context.Background(), anchor.ID)
	require.NoError(t, err)
	require.Len(t, similar, 1)
	assert.Equal(t, "Linen Shirt", similar[0].Name)
}

func TestCreateValidatesAndDetectsDuplicateSKU(t *testing.T) {
	db := setupProductsTestDB(t)
	svc := newProductsTestService(t, db)

	_, err := svc.Create(context.Background(), CreateInput{Name: "No Price"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	first, err := svc.Create(context.Background(), CreateInput{
		Name:  "Oxford Shirt",
		Price: decimal.RequireFromString("500"),
		SKU:   "OXF-001",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.GenderUnisex, first.Gender)

	_, err = svc.Create(context.Background(), CreateInput{
		Name:  "Oxford Shirt Again",
		Price: decimal.RequireFromString("500"),
		SKU:   "OXF-001",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestUpdatePatchesOnlyProvidedFields(t *testing.T) {
	db := setupProductsTestDB(t)
	svc := newProductsTestService(t, db)
	product := seedProduct(t, db, seedSpec{name: "Oxford Shirt", price: "500", brand: "Trendora", createdAt: time.Now().UTC()})

	newPrice := decimal.RequireFromString("550")
	updated, err := svc.Update(context.Background(), product.ID, UpdateInput{Price: &newPrice})
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(newPrice))
	assert.Equal(t, "Oxford Shirt", updated.Name)
	assert.Equal(t, "Trendora", updated.Brand)
}

func TestDeleteUnknownIsNotFound(t *testing.T) {
	db := setupProductsTestDB(t)
	svc := newProductsTestService(t, db)
	product := seedProduct(t, db, seedSpec{name: "Oxford Shirt", price: "500", createdAt: time.Now().UTC()})

	require.NoError(t, svc.Delete(context.Background(), product.ID))

	err := svc.Delete(context.Background(), product.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
