package products

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/trendora-shop/trendora-backend/pkg/db/models"
)

// Repository exposes catalog persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a products repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetByID loads a single product. The cart service uses this to snapshot
// name, image, and price at add time.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// List applies the browse filters and returns matching products.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})

	if v := normalizeFilter(filters.Collections); v != "" {
		query = query.Where("collections = ?", v)
	}
	if v := normalizeFilter(filters.Category); v != "" {
		query = query.Where("category = ?", v)
	}
	if len(filters.Materials) > 0 {
		query = query.Where("material IN ?", filters.Materials)
	}
	if len(filters.Brands) > 0 {
		query = query.Where("brand IN ?", filters.Brands)
	}
	if len(filters.Sizes) > 0 {
		query = query.Where("sizes && ?", pq.Array(filters.Sizes))
	}
	if filters.Colour != "" {
		query = query.Where("colours && ?", pq.Array([]string{filters.Colour}))
	}
	if filters.Gender != "" {
		query = query.Where("gender = ?", filters.Gender)
	}
	if filters.MinPrice != nil {
		query = query.Where("price >= ?", filters.MinPrice)
	}
	if filters.MaxPrice != nil {
		query = query.Where("price <= ?", filters.MaxPrice)
	}
	if search := strings.TrimSpace(filters.Search); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", pattern, pattern)
	}

	switch filters.SortBy {
	case SortPriceAsc:
		query = query.Order("price ASC")
	case SortPriceDesc:
		query = query.Order("price DESC")
	case SortPopularity:
		query = query.Order("rating DESC")
	default:
		query = query.Order("created_at DESC")
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// BestSellers returns products ordered by rating.
func (r *Repository) BestSellers(ctx context.Context, limit int) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Order("rating DESC, num_reviews DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// NewArrivals returns the most recently added products.
func (r *Repository) NewArrivals(ctx context.Context, limit int) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// Similar returns up to limit products sharing gender and category with the
// given product, excluding the product itself.
func (r *Repository) Similar(ctx context.Context, product *models.Product, limit int) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("id <> ? AND gender = ? AND category = ?", product.ID, product.Gender, product.Category).
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// Create inserts a catalog record.
func (r *Repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Save overwrites a catalog record.
func (r *Repository) Save(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Delete removes a catalog record.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	return res.RowsAffected, res.Error
}

func normalizeFilter(value string) string {
	v := strings.TrimSpace(value)
	if strings.EqualFold(v, "all") {
		return ""
	}
	return v
}
