package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trendora-shop/trendora-backend/pkg/db/models"
	"github.com/trendora-shop/trendora-backend/pkg/enums"
	"github.com/trendora-shop/trendora-backend/pkg/types"
)

// Repository exposes persistence operations for checkout sessions and the
// orders they finalize into.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a checkout repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a new checkout session.
func (r *Repository) Create(ctx context.Context, session *models.CheckoutSession) (*models.CheckoutSession, error) {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

// FindByIDForUser loads a session scoped to its owner.
func (r *Repository) FindByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.CheckoutSession, error) {
	var session models.CheckoutSession
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// MarkPaid flips the session to paid with a single conditional update. The
// is_paid guard in the WHERE clause is what makes double webhook delivery
// safe: the second update matches zero rows instead of overwriting the first
// payment's details. Returns the number of rows transitioned (0 or 1).
func (r *Repository) MarkPaid(ctx context.Context, id, userID uuid.UUID, details types.JSONMap, paidAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CheckoutSession{}).
		Where("id = ? AND user_id = ? AND is_paid = ?", id, userID, false).
		Updates(map[string]any{
			"is_paid":         true,
			"payment_status":  enums.PaymentStatusPaid,
			"payment_details": details,
			"paid_at":         paidAt,
		})
	return res.RowsAffected, res.Error
}

// Finalize flips a paid, not-yet-finalized session to finalized. Same
// check-and-set shape as MarkPaid; concurrent finalize attempts serialize on
// the row lock and the loser matches zero rows.
func (r *Repository) Finalize(ctx context.Context, id, userID uuid.UUID, finalizedAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CheckoutSession{}).
		Where("id = ? AND user_id = ? AND is_paid = ? AND is_finalized = ?", id, userID, true, false).
		Updates(map[string]any{
			"is_finalized": true,
			"finalized_at": finalizedAt,
		})
	return res.RowsAffected, res.Error
}

// CreateOrder inserts the order produced by finalization. The unique index on
// checkout_session_id is the last line of defense against two orders for one
// session.
func (r *Repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}
