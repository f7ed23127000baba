package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/trendora-shop/trendora-backend/pkg/enums"
	"github.com/trendora-shop/trendora-backend/pkg/types"
)

// Product is a catalog record. The checkout core only reads name, image, and
// price to build cart line snapshots; everything else serves catalog browsing.
type Product struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name            string               `gorm:"column:name;not null"`
	Description     string               `gorm:"column:description;not null"`
	Price           decimal.Decimal      `gorm:"column:price;type:numeric(12,2);not null"`
	DiscountedPrice *decimal.Decimal     `gorm:"column:discounted_price;type:numeric(12,2)"`
	CountInStock    int                  `gorm:"column:count_in_stock;not null;default:0"`
	SKU             string               `gorm:"column:sku;not null;default:''"`
	Category        string               `gorm:"column:category;not null;default:''"`
	Brand           string               `gorm:"column:brand;not null;default:''"`
	Sizes           pq.StringArray       `gorm:"column:sizes;type:text[]"`
	Colours         pq.StringArray       `gorm:"column:colours;type:text[]"`
	Collections     string               `gorm:"column:collections;not null;default:''"`
	Material        string               `gorm:"column:material;not null;default:''"`
	Gender          enums.Gender         `gorm:"column:gender;not null;default:'Unisex'"`
	Images          []types.ProductImage `gorm:"column:images;type:jsonb;serializer:json"`
	IsFeatured      bool                 `gorm:"column:is_featured;not null;default:false"`
	IsPublished     bool                 `gorm:"column:is_published;not null;default:false"`
	Rating          float64              `gorm:"column:rating;not null;default:0"`
	NumReviews      int                  `gorm:"column:num_reviews;not null;default:0"`
	Tags            pq.StringArray       `gorm:"column:tags;type:text[]"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PrimaryImageURL returns the first catalog image, or empty when none exist.
func (p *Product) PrimaryImageURL() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].URL
}

// EffectivePrice returns the discounted price when set, else the list price.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.DiscountedPrice != nil && p.DiscountedPrice.IsPositive() {
		return *p.DiscountedPrice
	}
	return p.Price
}
