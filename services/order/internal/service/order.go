package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/pkg/metrics"
	"github.com/Skotchmaster/storefront/services/order/internal/domain"
	"github.com/Skotchmaster/storefront/services/order/internal/models"
	"github.com/Skotchmaster/storefront/services/order/internal/store"
	"github.com/Skotchmaster/storefront/services/order/internal/util"
)

type OrderService struct {
	Repo    store.Repository
	Metrics *metrics.Orders
	Now     func() time.Time
}

type PlaceOrderInput struct {
	ShippingAddress string
	Note            string
	PaymentMethod   string
}

type ListParams struct {
	Page   int
	Size   int
	Status string
}

type OrderPage struct {
	Items []models.Order
	Total int64
	Page  int
	Size  int
}

func (s *OrderService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// PlaceOrder turns the user's cart into a pending order. Every write happens
// in one transaction; on any error nothing is persisted.
func (s *OrderService) PlaceOrder(ctx context.Context, userID uuid.UUID, in PlaceOrderInput) (*models.Order, error) {
	order, err := s.placeOrder(ctx, userID, in)
	if err != nil {
		s.Metrics.CheckoutFailed(failureReason(err))
		return nil, err
	}
	s.Metrics.OrderPlaced()
	return order, nil
}

func (s *OrderService) placeOrder(ctx context.Context, userID uuid.UUID, in PlaceOrderInput) (*models.Order, error) {
	address := strings.TrimSpace(in.ShippingAddress)
	if address == "" {
		return nil, fmt.Errorf("%w: shipping_address required", ErrValidation)
	}
	method, err := domain.ParsePaymentMethod(in.PaymentMethod)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	var placed *models.Order
	err = s.Repo.Atomic(ctx, func(tx store.Repository) error {
		cart, err := tx.CartByUser(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: cart", ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("load cart: %w", err)
		}
		if len(cart.Lines) == 0 {
			return ErrEmptyCart
		}

		total := decimal.Zero
		for _, line := range cart.Lines {
			if line.Quantity > line.Product.Quantity {
				return &InsufficientStockError{
					ProductID:   line.ProductID,
					ProductName: line.Product.Name,
					Requested:   line.Quantity,
					Available:   line.Product.Quantity,
				}
			}
			total = total.Add(line.PriceAtTime.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}

		now := s.now()
		order := &models.Order{
			UserID:          userID,
			TotalAmount:     total,
			ShippingAddress: address,
			Note:            strings.TrimSpace(in.Note),
			Status:          domain.StatusPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := tx.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		payment := newPendingPayment(order.ID, total, method)
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		if err := tx.AttachPayment(ctx, order.ID, payment.ID); err != nil {
			return fmt.Errorf("attach payment: %w", err)
		}

		details := make([]models.OrderDetail, 0, len(cart.Lines))
		for _, line := range cart.Lines {
			qty := decimal.NewFromInt(int64(line.Quantity))
			details = append(details, models.OrderDetail{
				OrderID:   order.ID,
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: line.PriceAtTime,
				Subtotal:  line.PriceAtTime.Mul(qty),
			})
		}
		if err := tx.CreateDetails(ctx, details); err != nil {
			return fmt.Errorf("create details: %w", err)
		}

		for _, line := range byProduct(cart.Lines, func(l models.CartLine) uuid.UUID { return l.ProductID }) {
			err := tx.DecrementStock(ctx, line.ProductID, line.Quantity)
			switch {
			case errors.Is(err, store.ErrInsufficientStock):
				// Another checkout took the stock after the snapshot was read.
				available, qerr := tx.AvailableQuantity(ctx, line.ProductID)
				if qerr != nil {
					return fmt.Errorf("reload stock for %s: %w", line.ProductID, qerr)
				}
				return &InsufficientStockError{
					ProductID:   line.ProductID,
					ProductName: line.Product.Name,
					Requested:   line.Quantity,
					Available:   available,
				}
			case errors.Is(err, store.ErrNotFound):
				return fmt.Errorf("%w: product %s", ErrNotFound, line.ProductID)
			case err != nil:
				return fmt.Errorf("decrement stock: %w", err)
			}
		}

		if err := tx.ClearCart(ctx, cart.ID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}

		if err := enqueue(ctx, tx, EventOrderCreated, OrderEvent{
			OrderID:     order.ID,
			UserID:      userID,
			Status:      order.Status,
			TotalAmount: total,
			Items:       eventItems(details),
			OccurredAt:  now,
		}); err != nil {
			return err
		}

		placed, err = tx.OrderByID(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return placed, nil
}

// CancelOrder cancels a pending order owned by userID and puts its stock back.
func (s *OrderService) CancelOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	var out *models.Order
	err := s.Repo.Atomic(ctx, func(tx store.Repository) error {
		o, err := tx.OrderByID(ctx, orderID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFoundOrForbidden
		}
		if err != nil {
			return fmt.Errorf("load order: %w", err)
		}
		if o.UserID != userID {
			return ErrNotFoundOrForbidden
		}

		if err := s.transition(ctx, tx, o, domain.StatusCancelled); err != nil {
			return err
		}
		out, err = tx.OrderByID(ctx, o.ID)
		if err != nil {
			return fmt.Errorf("reload order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Metrics.OrderCancelled()
	s.Metrics.StatusChanged(string(domain.StatusCancelled))
	return out, nil
}

// UpdateStatus is the admin path. It skips the ownership check but uses the
// same transition rules and stock restoration as CancelOrder.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) (*models.Order, error) {
	to, err := domain.ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	var out *models.Order
	err = s.Repo.Atomic(ctx, func(tx store.Repository) error {
		o, err := tx.OrderByID(ctx, orderID)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: order", ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("load order: %w", err)
		}
		if err := s.transition(ctx, tx, o, to); err != nil {
			return err
		}
		out, err = tx.OrderByID(ctx, o.ID)
		if err != nil {
			return fmt.Errorf("reload order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if to == domain.StatusCancelled {
		s.Metrics.OrderCancelled()
	}
	s.Metrics.StatusChanged(string(to))
	return out, nil
}

// byProduct returns a copy of items sorted by product id. Stock updates run in
// this order so concurrent transactions lock product rows in the same sequence.
func byProduct[T any](items []T, id func(T) uuid.UUID) []T {
	out := slices.Clone(items)
	slices.SortFunc(out, func(a, b T) int {
		ia, ib := id(a), id(b)
		return bytes.Compare(ia[:], ib[:])
	})
	return out
}

// transition moves o to status to inside tx. Cancelling restores the stock
// held by every detail row. o is updated in place on success.
func (s *OrderService) transition(ctx context.Context, tx store.Repository, o *models.Order, to domain.OrderStatus) error {
	from := o.Status
	if err := domain.ValidateTransition(from, to); err != nil {
		return err
	}

	err := tx.UpdateStatus(ctx, o.ID, from, to)
	if errors.Is(err, store.ErrStaleStatus) {
		current, rerr := tx.OrderByID(ctx, o.ID)
		if rerr != nil {
			return fmt.Errorf("reload order: %w", rerr)
		}
		return &domain.TransitionError{From: current.Status, To: to}
	}
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	if to == domain.StatusCancelled {
		for _, d := range byProduct(o.Details, func(d models.OrderDetail) uuid.UUID { return d.ProductID }) {
			if err := tx.IncrementStock(ctx, d.ProductID, d.Quantity); err != nil {
				return fmt.Errorf("restore stock for %s: %w", d.ProductID, err)
			}
		}
	}

	now := s.now()
	eventType := EventOrderStatusChanged
	if to == domain.StatusCancelled {
		eventType = EventOrderCancelled
	}
	if err := enqueue(ctx, tx, eventType, OrderEvent{
		OrderID:     o.ID,
		UserID:      o.UserID,
		Status:      to,
		From:        from,
		TotalAmount: o.TotalAmount,
		Items:       eventItems(o.Details),
		OccurredAt:  now,
	}); err != nil {
		return err
	}

	o.Status = to
	o.UpdatedAt = now
	return nil
}

func (s *OrderService) ListMyOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	return s.Repo.OrdersByUser(ctx, userID)
}

// GetMyOrder returns ErrNotFoundOrForbidden for orders owned by someone else.
func (s *OrderService) GetMyOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	o, err := s.Repo.OrderByID(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFoundOrForbidden
	}
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotFoundOrForbidden
	}
	return o, nil
}

func (s *OrderService) ListAll(ctx context.Context, p ListParams) (OrderPage, error) {
	var status domain.OrderStatus
	if strings.TrimSpace(p.Status) != "" {
		st, err := domain.ParseStatus(p.Status)
		if err != nil {
			return OrderPage{}, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		status = st
	}

	offset, limit := util.Calculate(p.Page, p.Size)
	items, total, err := s.Repo.ListOrders(ctx, store.OrderFilter{Status: status, Limit: limit, Offset: offset})
	if err != nil {
		return OrderPage{}, err
	}
	return OrderPage{Items: items, Total: total, Page: offset/limit + 1, Size: limit}, nil
}

func (s *OrderService) OrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderDetail, error) {
	if _, err := s.Repo.OrderByID(ctx, orderID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: order", ErrNotFound)
		}
		return nil, err
	}
	return s.Repo.OrderDetails(ctx, orderID)
}
