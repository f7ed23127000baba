package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/trendora-shop/trendora-backend/pkg/db"
	"github.com/trendora-shop/trendora-backend/pkg/db/models"
	"github.com/trendora-shop/trendora-backend/pkg/enums"
	pkgerrors "github.com/trendora-shop/trendora-backend/pkg/errors"
	"github.com/trendora-shop/trendora-backend/pkg/logger"
	"github.com/trendora-shop/trendora-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// cartCleaner is the cart store's cleanup hook. Finalize invokes it
// best-effort after the order is durable.
type cartCleaner interface {
	DeleteForUser(ctx context.Context, userID uuid.UUID) error
}

// Service drives the checkout session state machine:
// Pending -> Paid -> Finalized, never skipping and never reversing.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.CheckoutSession, error)
	Get(ctx context.Context, sessionID, userID uuid.UUID) (*models.CheckoutSession, error)
	MarkPaid(ctx context.Context, sessionID, userID uuid.UUID, details types.JSONMap) (*models.CheckoutSession, error)
	Finalize(ctx context.Context, sessionID, userID uuid.UUID) (*models.Order, error)
}

type service struct {
	repo   *Repository
	tx     txRunner
	carts  cartCleaner
	logger *logger.Logger
	now    func() time.Time
}

// NewService builds a checkout service backed by the provided stack.
func NewService(repo *Repository, tx txRunner, carts cartCleaner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart cleaner required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		carts:  carts,
		logger: logg,
		now:    time.Now,
	}, nil
}

// CreateInput carries the frozen cart contents a session is built from.
type CreateInput struct {
	Lines           []models.LineSnapshot
	ShippingAddress *types.Address
	PaymentMethod   string
	TotalPrice      decimal.Decimal
}

// Create opens a new session in Pending. Lines are copied by value, so later
// cart mutation cannot alter the session.
func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.CheckoutSession, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no checkout items provided")
	}
	for _, line := range input.Lines {
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout item product id is required")
		}
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout item quantity must be positive")
		}
	}

	total := input.TotalPrice
	if !total.IsPositive() {
		total = models.SnapshotTotal(input.Lines)
	}

	session := &models.CheckoutSession{
		UserID:          userID,
		Lines:           append([]models.LineSnapshot(nil), input.Lines...),
		ShippingAddress: input.ShippingAddress,
		PaymentMethod:   input.PaymentMethod,
		TotalPrice:      total,
		PaymentStatus:   enums.PaymentStatusPending,
	}
	if _, err := s.repo.Create(ctx, session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}
	return session, nil
}

// Get loads a session owned by the user.
func (s *service) Get(ctx context.Context, sessionID, userID uuid.UUID) (*models.CheckoutSession, error) {
	if sessionID == uuid.Nil || userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout id is required")
	}
	session, err := s.repo.FindByIDForUser(ctx, sessionID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout session")
	}
	return session, nil
}

// MarkPaid records a successful payment confirmation exactly once. The
// gateway payload is stored verbatim; a repeat confirmation gets Conflict and
// the original details stay untouched.
func (s *service) MarkPaid(ctx context.Context, sessionID, userID uuid.UUID, details types.JSONMap) (*models.CheckoutSession, error) {
	if sessionID == uuid.Nil || userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout id is required")
	}

	rows, err := s.repo.MarkPaid(ctx, sessionID, userID, details, s.now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark checkout paid")
	}
	if rows == 0 {
		session, err := s.repo.FindByIDForUser(ctx, sessionID, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "checkout not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout session")
		}
		if session.IsPaid {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "checkout already marked as paid")
		}
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "checkout payment state changed, retry")
	}

	return s.Get(ctx, sessionID, userID)
}

// Finalize turns a paid session into an order. The conditional update and the
// order insert share one transaction, so a session is finalized exactly once
// and every finalized session has exactly one order. Cart cleanup runs after
// commit and its failure is logged, never propagated: the order is the
// durability-critical artifact and is already safe.
func (s *service) Finalize(ctx context.Context, sessionID, userID uuid.UUID) (*models.Order, error) {
	if sessionID == uuid.Nil || userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout id is required")
	}

	var order *models.Order
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		rows, err := txRepo.Finalize(ctx, sessionID, userID, s.now().UTC())
		if err != nil {
			return err
		}
		if rows == 0 {
			session, err := txRepo.FindByIDForUser(ctx, sessionID, userID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "checkout not found")
				}
				return err
			}
			if !session.IsPaid {
				return pkgerrors.New(pkgerrors.CodePrecondition, "payment not completed")
			}
			return pkgerrors.New(pkgerrors.CodeConflict, "checkout already finalized")
		}

		session, err := txRepo.FindByIDForUser(ctx, sessionID, userID)
		if err != nil {
			return err
		}

		order = &models.Order{
			UserID:            session.UserID,
			CheckoutSessionID: session.ID,
			Lines:             append([]models.LineSnapshot(nil), session.Lines...),
			ShippingAddress:   session.ShippingAddress,
			PaymentMethod:     session.PaymentMethod,
			TotalPrice:        session.TotalPrice,
			IsPaid:            true,
			PaidAt:            session.PaidAt,
			Status:            enums.OrderStatusProcessing,
			PaymentStatus:     enums.PaymentStatusPaid,
			PaymentDetails:    session.PaymentDetails,
		}
		if _, err := txRepo.CreateOrder(ctx, order); err != nil {
			if db.IsUniqueViolation(err) {
				return pkgerrors.New(pkgerrors.CodeConflict, "checkout already finalized")
			}
			return err
		}
		return nil
	}); err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finalize checkout")
	}

	if err := s.carts.DeleteForUser(ctx, userID); err != nil {
		if s.logger != nil {
			logCtx := s.logger.WithFields(ctx, map[string]any{
				"user_id":     userID.String(),
				"checkout_id": sessionID.String(),
				"error":       err.Error(),
			})
			s.logger.Warn(logCtx, "checkout.cart_cleanup_failed")
		}
	}

	return order, nil
}
