package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/trendora-shop/trendora-backend/pkg/enums"
	"github.com/trendora-shop/trendora-backend/pkg/types"
)

// CheckoutSession is a frozen snapshot of cart contents plus payment lifecycle
// state. It moves Pending -> Paid -> Finalized and never backward; IsPaid and
// IsFinalized are monotonic.
type CheckoutSession struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Lines           []LineSnapshot      `gorm:"column:lines;type:jsonb;serializer:json"`
	ShippingAddress *types.Address      `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	PaymentMethod   string              `gorm:"column:payment_method;not null;default:''"`
	TotalPrice      decimal.Decimal     `gorm:"column:total_price;type:numeric(12,2);not null"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;not null;default:'pending'"`
	IsPaid          bool                `gorm:"column:is_paid;not null;default:false"`
	PaymentDetails  types.JSONMap       `gorm:"column:payment_details;type:jsonb;serializer:json"`
	PaidAt          *time.Time          `gorm:"column:paid_at"`
	IsFinalized     bool                `gorm:"column:is_finalized;not null;default:false"`
	FinalizedAt     *time.Time          `gorm:"column:finalized_at"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *CheckoutSession) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
