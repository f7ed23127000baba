package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trendora-shop/trendora-backend/pkg/db"
	"github.com/trendora-shop/trendora-backend/pkg/db/models"
	pkgerrors "github.com/trendora-shop/trendora-backend/pkg/errors"
	"github.com/trendora-shop/trendora-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service exposes the cart store operations.
type Service interface {
	Get(ctx context.Context, owner Owner) (*models.Cart, error)
	AddLine(ctx context.Context, owner Owner, input AddLineInput) (*models.Cart, error)
	SetLineQuantity(ctx context.Context, owner Owner, key LineKey, quantity int) (*models.Cart, error)
	RemoveLine(ctx context.Context, owner Owner, key LineKey) (*models.Cart, error)
	MergeGuestIntoUser(ctx context.Context, guestID string, userID uuid.UUID) (*models.Cart, error)
	DeleteForUser(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	repo     *Repository
	tx       txRunner
	products productLoader
	logger   *logger.Logger
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo *Repository, tx txRunner, products productLoader, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		products: products,
		logger:   logg,
	}, nil
}

// AddLineInput captures a single add-to-cart request.
type AddLineInput struct {
	ProductID uuid.UUID
	Quantity  int
	Size      string
	Colour    string
}

// LineKey is the identity triple that addresses one cart line.
type LineKey struct {
	ProductID uuid.UUID
	Size      string
	Colour    string
}

// Get returns the owner's cart, or (nil, nil) when none exists. Absence is a
// valid empty state, not an error.
func (s *service) Get(ctx context.Context, owner Owner) (*models.Cart, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a user or guest identity is required")
	}

	cart, err := s.repo.FindByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}

// AddLine appends or increments a line, snapshotting the product's current
// name, image, and price. The snapshot never refreshes afterwards.
func (s *service) AddLine(ctx context.Context, owner Owner, input AddLineInput) (*models.Cart, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a user or guest identity is required")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.products.GetByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	var cartID uuid.UUID
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		record, err := txRepo.FindByOwner(ctx, owner)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if record == nil {
			record = &models.Cart{GuestID: nilIfEmpty(owner.GuestID), UserID: owner.UserID}
			if _, err := txRepo.Create(ctx, record); err != nil {
				return err
			}
		}
		cartID = record.ID

		line, err := txRepo.FindLine(ctx, record.ID, input.ProductID, input.Size, input.Colour)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if line != nil {
			if err := txRepo.IncrementLineQuantity(ctx, line.ID, input.Quantity); err != nil {
				return err
			}
		} else {
			newLine := &models.CartLine{
				CartID:    record.ID,
				ProductID: product.ID,
				Name:      product.Name,
				ImageURL:  product.PrimaryImageURL(),
				UnitPrice: product.EffectivePrice(),
				Size:      input.Size,
				Colour:    input.Colour,
				Quantity:  input.Quantity,
			}
			if err := txRepo.CreateLine(ctx, newLine); err != nil {
				// A concurrent add for the same triple beat us to the insert.
				if db.IsUniqueViolation(err) {
					existing, findErr := txRepo.FindLine(ctx, record.ID, input.ProductID, input.Size, input.Colour)
					if findErr != nil {
						return findErr
					}
					return txRepo.IncrementLineQuantity(ctx, existing.ID, input.Quantity)
				}
				return err
			}
		}

		return txRepo.RecomputeTotal(ctx, record.ID)
	}); err != nil {
		return nil, wrapCartErr(err, "add cart line")
	}

	return s.reload(ctx, cartID)
}

// SetLineQuantity overwrites a line's quantity. A non-positive quantity removes
// the line. A missing cart or line is NotFound so stale clients learn their
// view of the cart is gone.
func (s *service) SetLineQuantity(ctx context.Context, owner Owner, key LineKey, quantity int) (*models.Cart, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a user or guest identity is required")
	}
	if key.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	var cartID uuid.UUID
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		record, err := txRepo.FindByOwner(ctx, owner)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
			}
			return err
		}
		cartID = record.ID

		line, err := txRepo.FindLine(ctx, record.ID, key.ProductID, key.Size, key.Colour)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
			}
			return err
		}

		if quantity <= 0 {
			if err := txRepo.DeleteLine(ctx, line.ID); err != nil {
				return err
			}
		} else {
			if _, err := txRepo.SetLineQuantity(ctx, line.ID, quantity); err != nil {
				return err
			}
		}

		return txRepo.RecomputeTotal(ctx, record.ID)
	}); err != nil {
		return nil, wrapCartErr(err, "set cart line quantity")
	}

	return s.reload(ctx, cartID)
}

// RemoveLine drops the matching line. Missing cart or line is NotFound.
func (s *service) RemoveLine(ctx context.Context, owner Owner, key LineKey) (*models.Cart, error) {
	return s.SetLineQuantity(ctx, owner, key, 0)
}

// MergeGuestIntoUser folds a guest cart into the user's cart on login.
// When the user has no cart the guest cart is simply re-owned; otherwise
// matching lines are merged by quantity and the guest cart is deleted.
// Either way the guest cart ceases to exist, so a retry fails with NotFound
// instead of double-merging.
func (s *service) MergeGuestIntoUser(ctx context.Context, guestID string, userID uuid.UUID) (*models.Cart, error) {
	guest := GuestOwner(guestID)
	if !guest.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "guest id is required")
	}
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	var resultID uuid.UUID
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		guestCart, err := txRepo.FindByOwner(ctx, guest)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "guest cart not found")
			}
			return err
		}

		userCart, err := txRepo.FindByOwner(ctx, UserOwner(userID))
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if userCart == nil {
			if err := txRepo.ReassignOwner(ctx, guestCart.ID, userID); err != nil {
				return err
			}
			resultID = guestCart.ID
			return nil
		}

		for _, guestLine := range guestCart.Lines {
			match, err := txRepo.FindLine(ctx, userCart.ID, guestLine.ProductID, guestLine.Size, guestLine.Colour)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if match != nil {
				if err := txRepo.IncrementLineQuantity(ctx, match.ID, guestLine.Quantity); err != nil {
					return err
				}
				continue
			}
			moved := guestLine
			moved.ID = uuid.Nil
			moved.CartID = userCart.ID
			if err := txRepo.CreateLine(ctx, &moved); err != nil {
				return err
			}
		}

		if err := txRepo.Delete(ctx, guestCart.ID); err != nil {
			return err
		}
		if err := txRepo.RecomputeTotal(ctx, userCart.ID); err != nil {
			return err
		}
		resultID = userCart.ID
		return nil
	}); err != nil {
		return nil, wrapCartErr(err, "merge guest cart")
	}

	return s.reload(ctx, resultID)
}

// DeleteForUser removes the user's cart wholesale. Absence is not an error;
// the checkout finalizer calls this as a best-effort cleanup.
func (s *service) DeleteForUser(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if err := s.repo.DeleteByUser(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart")
	}
	return nil
}

func (s *service) reload(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByID(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart")
	}
	return cart, nil
}

func wrapCartErr(err error, op string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

func nilIfEmpty(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
