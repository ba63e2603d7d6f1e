// Package store declares the persistence contracts the order workflow runs
// against. Implementations live in package repo.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/services/order/internal/domain"
	"github.com/Skotchmaster/storefront/services/order/internal/models"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrStaleStatus means the row no longer had the expected status when the
	// conditional update ran.
	ErrStaleStatus = errors.New("order status changed concurrently")
)

// Inventory mutates Product.Quantity. Each call is a single atomic statement.
type Inventory interface {
	AvailableQuantity(ctx context.Context, productID uuid.UUID) (int, error)
	// DecrementStock fails with ErrInsufficientStock instead of going below zero.
	DecrementStock(ctx context.Context, productID uuid.UUID, amount int) error
	IncrementStock(ctx context.Context, productID uuid.UUID, amount int) error
}

// Carts reads a user's cart snapshot and empties it after checkout.
type Carts interface {
	CartByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	ClearCart(ctx context.Context, cartID uuid.UUID) error
}

type OrderFilter struct {
	Status domain.OrderStatus
	Limit  int
	Offset int
}

type Orders interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateDetails(ctx context.Context, details []models.OrderDetail) error
	AttachPayment(ctx context.Context, orderID, paymentID uuid.UUID) error
	OrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	OrdersByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, int64, error)
	OrderDetails(ctx context.Context, orderID uuid.UUID) ([]models.OrderDetail, error)
	// UpdateStatus writes to only if the stored status is still from.
	UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to domain.OrderStatus) error
}

type Payments interface {
	CreatePayment(ctx context.Context, p *models.Payment) error
}

type Outbox interface {
	EnqueueEvent(ctx context.Context, e *models.OutboxEvent) error
	PendingEvents(ctx context.Context, limit int) ([]models.OutboxEvent, error)
	MarkPublished(ctx context.Context, eventID uuid.UUID, at time.Time) error
}

// Repository is the unit of work. Writes made through the Repository handed
// to fn by Atomic commit together or not at all.
type Repository interface {
	Inventory
	Carts
	Orders
	Payments
	Outbox

	Atomic(ctx context.Context, fn func(tx Repository) error) error
	Ping(ctx context.Context) error
}
