package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/trendora-shop/trendora-backend/pkg/db"
	"github.com/trendora-shop/trendora-backend/pkg/db/models"
	"github.com/trendora-shop/trendora-backend/pkg/enums"
	pkgerrors "github.com/trendora-shop/trendora-backend/pkg/errors"
	"github.com/trendora-shop/trendora-backend/pkg/types"
)

const (
	defaultNewArrivalsLimit = 10
	similarProductsLimit    = 4
)

// Service exposes the catalog: public browsing plus administrative CRUD.
type Service interface {
	List(ctx context.Context, filters ListFilters) ([]models.Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	BestSellers(ctx context.Context, limit int) ([]models.Product, error)
	NewArrivals(ctx context.Context, limit int) ([]models.Product, error)
	Similar(ctx context.Context, id uuid.UUID) ([]models.Product, error)
	Create(ctx context.Context, input CreateInput) (*models.Product, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo *Repository
}

// NewService wires the catalog dependencies.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	return &service{repo: repo}, nil
}

// CreateInput is the admin payload for a new catalog record.
type CreateInput struct {
	Name            string               `json:"name" validate:"required"`
	Description     string               `json:"description"`
	Price           decimal.Decimal      `json:"price" validate:"required"`
	DiscountedPrice *decimal.Decimal     `json:"discountedPrice,omitempty"`
	CountInStock    int                  `json:"countInStock"`
	SKU             string               `json:"sku"`
	Category        string               `json:"category"`
	Brand           string               `json:"brand"`
	Sizes           []string             `json:"sizes"`
	Colours         []string             `json:"colours"`
	Collections     string               `json:"collections"`
	Material        string               `json:"material"`
	Gender          enums.Gender         `json:"gender"`
	Images          []types.ProductImage `json:"images"`
	IsFeatured      bool                 `json:"isFeatured"`
	IsPublished     bool                 `json:"isPublished"`
	Tags            []string             `json:"tags"`
}

// UpdateInput patches a catalog record; nil fields keep their current value.
type UpdateInput struct {
	Name            *string              `json:"name,omitempty"`
	Description     *string              `json:"description,omitempty"`
	Price           *decimal.Decimal     `json:"price,omitempty"`
	DiscountedPrice *decimal.Decimal     `json:"discountedPrice,omitempty"`
	CountInStock    *int                 `json:"countInStock,omitempty"`
	SKU             *string              `json:"sku,omitempty"`
	Category        *string              `json:"category,omitempty"`
	Brand           *string              `json:"brand,omitempty"`
	Sizes           []string             `json:"sizes,omitempty"`
	Colours         []string             `json:"colours,omitempty"`
	Collections     *string              `json:"collections,omitempty"`
	Material        *string              `json:"material,omitempty"`
	Gender          *enums.Gender        `json:"gender,omitempty"`
	Images          []types.ProductImage `json:"images,omitempty"`
	IsFeatured      *bool                `json:"isFeatured,omitempty"`
	IsPublished     *bool                `json:"isPublished,omitempty"`
	Tags            []string             `json:"tags,omitempty"`
}

func (s *service) List(ctx context.Context, filters ListFilters) ([]models.Product, error) {
	if filters.Gender != "" && !filters.Gender.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid gender filter")
	}
	products, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return products, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) BestSellers(ctx context.Context, limit int) ([]models.Product, error) {
	products, err := s.repo.BestSellers(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list best sellers")
	}
	return products, nil
}

func (s *service) NewArrivals(ctx context.Context, limit int) ([]models.Product, error) {
	if limit <= 0 {
		limit = defaultNewArrivalsLimit
	}
	products, err := s.repo.NewArrivals(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list new arrivals")
	}
	return products, nil
}

func (s *service) Similar(ctx context.Context, id uuid.UUID) ([]models.Product, error) {
	product, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	similar, err := s.repo.Similar(ctx, product, similarProductsLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list similar products")
	}
	return similar, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Product, error) {
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if !input.Price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product price must be positive")
	}
	gender := input.Gender
	if gender == "" {
		gender = enums.GenderUnisex
	}
	if !gender.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid gender")
	}

	product := &models.Product{
		Name:            input.Name,
		Description:     input.Description,
		Price:           input.Price,
		DiscountedPrice: input.DiscountedPrice,
		CountInStock:    input.CountInStock,
		SKU:             input.SKU,
		Category:        input.Category,
		Brand:           input.Brand,
		Sizes:           input.Sizes,
		Colours:         input.Colours,
		Collections:     input.Collections,
		Material:        input.Material,
		Gender:          gender,
		Images:          input.Images,
		IsFeatured:      input.IsFeatured,
		IsPublished:     input.IsPublished,
		Tags:            input.Tags,
	}
	if _, err := s.repo.Create(ctx, product); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return product, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Product, error) {
	product, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	applyUpdate(product, input)
	if !product.Gender.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid gender")
	}
	if !product.Price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product price must be positive")
	}

	if _, err := s.repo.Save(ctx, product); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return product, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	rows, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

func applyUpdate(product *models.Product, input UpdateInput) {
	if input.Name != nil {
		product.Name = *input.Name
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.DiscountedPrice != nil {
		product.DiscountedPrice = input.DiscountedPrice
	}
	if input.CountInStock != nil {
		product.CountInStock = *input.CountInStock
	}
	if input.SKU != nil {
		product.SKU = *input.SKU
	}
	if input.Category != nil {
		product.Category = *input.Category
	}
	if input.Brand != nil {
		product.Brand = *input.Brand
	}
	if input.Sizes != nil {
		product.Sizes = input.Sizes
	}
	if input.Colours != nil {
		product.Colours = input.Colours
	}
	if input.Collections != nil {
		product.Collections = *input.Collections
	}
	if input.Material != nil {
		product.Material = *input.Material
	}
	if input.Gender != nil {
		product.Gender = *input.Gender
	}
	if input.Images != nil {
		product.Images = input.Images
	}
	if input.IsFeatured != nil {
		product.IsFeatured = *input.IsFeatured
	}
	if input.IsPublished != nil {
		product.IsPublished = *input.IsPublished
	}
	if input.Tags != nil {
		product.Tags = input.Tags
	}
}
