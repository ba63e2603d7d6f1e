package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/services/order/internal/domain"
	"github.com/Skotchmaster/storefront/services/order/internal/store"
)

var (
	ErrValidation = errors.New("validation") // 400
	ErrNotFound   = errors.New("not found")  // 404
	ErrEmptyCart  = errors.New("cart is empty")
	// ErrNotFoundOrForbidden hides whether another user's order exists.
	ErrNotFoundOrForbidden = errors.New("order not found")

	ErrInsufficientStock = store.ErrInsufficientStock
	ErrInvalidTransition = domain.ErrInvalidTransition
)

type InsufficientStockError struct {
	ProductID   uuid.UUID
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s", e.ProductName)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// IsBusiness reports whether err is a rule violation the caller can fix,
// as opposed to a storage failure.
func IsBusiness(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrNotFoundOrForbidden) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrInvalidTransition)
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}
