package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/trendora-shop/trendora-backend/pkg/enums"
	"github.com/trendora-shop/trendora-backend/pkg/types"
)

// Order is the immutable record produced by finalizing a paid checkout session.
// Exactly one order exists per session (unique index on checkout_session_id).
// The checkout pipeline never mutates an order after creation; administrative
// status transitions touch only Status/IsDelivered/DeliveredAt.
type Order struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID            uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	CheckoutSessionID uuid.UUID           `gorm:"column:checkout_session_id;type:uuid;not null;uniqueIndex"`
	Lines             []LineSnapshot      `gorm:"column:lines;type:jsonb;serializer:json"`
	ShippingAddress   *types.Address      `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	PaymentMethod     string              `gorm:"column:payment_method;not null;default:''"`
	TotalPrice        decimal.Decimal     `gorm:"column:total_price;type:numeric(12,2);not null"`
	IsPaid            bool                `gorm:"column:is_paid;not null;default:true"`
	PaidAt            *time.Time          `gorm:"column:paid_at"`
	IsDelivered       bool                `gorm:"column:is_delivered;not null;default:false"`
	DeliveredAt       *time.Time          `gorm:"column:delivered_at"`
	Status            enums.OrderStatus   `gorm:"column:status;not null;default:'Processing'"`
	PaymentStatus     enums.PaymentStatus `gorm:"column:payment_status;not null;default:'paid'"`
	PaymentDetails    types.JSONMap       `gorm:"column:payment_details;type:jsonb;serializer:json"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
